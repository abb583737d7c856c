package v1

import (
	"github.com/TIPmigs/sikad-server/internal/models"
)

// GPSReportRequest DTO для запасного HTTP-канала телеметрии
type GPSReportRequest struct {
	DeviceID  string  `json:"device_id" validate:"required"`
	Latitude  float64 `json:"latitude" validate:"required,latitude"`
	Longitude float64 `json:"longitude" validate:"required,longitude"`
}

// GPSReportResponse DTO для ответа на отчет о позиции
type GPSReportResponse struct {
	Success      bool   `json:"success"`
	Outcome      string `json:"outcome"`
	MatchedFence string `json:"matched_fence,omitempty"`
}

// DeviceEventRequest DTO для дискретного события устройства
type DeviceEventRequest struct {
	DeviceID string `json:"device_id" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=movement crash"`
}

// LatestDataResponse DTO для последнего снимка позиции
type LatestDataResponse struct {
	Success bool                   `json:"success"`
	Data    *models.PositionReport `json:"data,omitempty"`
	Message string                 `json:"message,omitempty"`
}
