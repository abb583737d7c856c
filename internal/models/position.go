package models

import (
	"time"
)

// PositionReport - одно сообщение телеметрии от устройства. Не персистится ядром,
// только последний снимок уходит в side-channel.
type PositionReport struct {
	DeviceID   string    `json:"device_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	ObservedAt time.Time `json:"observed_at"`
}
