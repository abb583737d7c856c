package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertKind - вид оповещения
type AlertKind string

const (
	AlertGeofenceCross AlertKind = "geofence_cross"
	AlertMovement      AlertKind = "movement"
	AlertCrash         AlertKind = "crash"
)

// Alert - запись об оповещении. Создается один раз при срабатывании,
// ядро ее после создания не изменяет (Resolved снимается вне ядра).
type Alert struct {
	ID        uuid.UUID `json:"id"`
	DeviceID  string    `json:"device_id"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}
