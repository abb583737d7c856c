package models

import (
	"github.com/google/uuid"
)

// Contact - получатель SMS-оповещений из справочника контактов
type Contact struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Phone  string    `json:"phone"`
	Active bool      `json:"active"`
}
