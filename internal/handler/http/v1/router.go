package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршрут Health-check доступен без ключа
	api.GET("/system/health", h.healthCheck)

	protected := api.Group("")
	if len(h.cfg.APIKeys) > 0 {
		protected.Use(APIKeyAuthMiddleware(h.cfg, h.logger))
	}

	// Запасной канал телеметрии и события устройств
	protected.POST("/gps", h.reportGPS)
	protected.POST("/events", h.reportEvent)

	// Клиентский API последнего снимка позиции
	protected.GET("/latest-data", h.latestData)
}
