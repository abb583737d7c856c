package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/TIPmigs/sikad-server/internal/config"
	"github.com/TIPmigs/sikad-server/internal/models"
	"github.com/TIPmigs/sikad-server/internal/service"
)

type Handler struct {
	telemetry service.Telemetry
	positions service.PositionStore
	logger    *logrus.Logger
	validate  *validator.Validate
	cfg       *config.Config
}

func NewHandler(telemetry service.Telemetry, positions service.PositionStore, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		telemetry: telemetry,
		positions: positions,
		logger:    logger,
		validate:  validator.New(),
		cfg:       cfg,
	}
}

// reportGPS - запасной HTTP-канал телеметрии, повторяет путь MQTT-фида
func (h *Handler) reportGPS(c *gin.Context) {
	var input GPSReportRequest
	log := h.logger.WithField("method", "reportGPS")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report := &models.PositionReport{
		DeviceID:  input.DeviceID,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
	}
	result, err := h.telemetry.ProcessReport(c.Request.Context(), report)
	if err != nil {
		log.WithError(err).Warn("Failed to process position report")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid position report"})
		return
	}

	c.JSON(http.StatusOK, GPSReportResponse{
		Success:      true,
		Outcome:      string(result.Decision.Outcome),
		MatchedFence: result.MatchedFence,
	})
}

// reportEvent принимает дискретное событие устройства (движение, авария)
func (h *Handler) reportEvent(c *gin.Context) {
	var input DeviceEventRequest
	log := h.logger.WithField("method", "reportEvent")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.telemetry.HandleEvent(c.Request.Context(), input.DeviceID, models.AlertKind(input.Type))
	if err != nil {
		log.WithError(err).Error("Failed to handle device event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, GPSReportResponse{
		Success: true,
		Outcome: string(result.Decision.Outcome),
	})
}

// latestData возвращает последний снимок позиции (общий или по устройству)
func (h *Handler) latestData(c *gin.Context) {
	log := h.logger.WithField("method", "latestData")

	report, err := h.positions.Latest(c.Request.Context(), c.Query("device_id"))
	if err != nil {
		log.WithError(err).Error("Failed to get latest position snapshot")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if report == nil {
		c.JSON(http.StatusOK, LatestDataResponse{Success: false, Message: "No data available yet."})
		return
	}
	c.JSON(http.StatusOK, LatestDataResponse{Success: true, Data: report})
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
