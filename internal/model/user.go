package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a price-alert recipient.
type User struct {
	ID        uuid.UUID
	Email     string
	IsActive  bool
	CreatedAt time.Time
}

func (t *User) InitMeta() {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.IsActive = true
}
