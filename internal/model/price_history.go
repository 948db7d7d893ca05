package model

import (
	"time"

	"github.com/google/uuid"
)

// PriceHistory is one observed price of a product. Entries are append-only.
type PriceHistory struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Price     float64
	Timestamp time.Time
}

// InitMeta initializes the entry ID and observation time.
func (h *PriceHistory) InitMeta() {
	h.ID = uuid.New()
	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now()
	}
}
