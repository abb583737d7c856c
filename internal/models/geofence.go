package models

import (
	"time"

	"github.com/google/uuid"
)

// GeoPoint - одна вершина кольца геозоны (lat/lng как в документах хранилища)
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geofence представляет разрешенную геозону, загруженную из хранилища.
// Кольцо Points может приходить незамкнутым - замыкание выполняется при компиляции.
type Geofence struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Color       string     `json:"color"`
	Points      []GeoPoint `json:"points"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
