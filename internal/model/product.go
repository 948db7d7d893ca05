package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform is the e-commerce site family a product page belongs to.
type Platform string

const (
	PlatformGeneric Platform = "generic"
	PlatformAmazon  Platform = "amazon"
	PlatformEbay    Platform = "ebay"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformGeneric, PlatformAmazon, PlatformEbay:
		return true
	}
	return false
}

// PlatformFromURL picks the platform by host name substring, falling back to generic.
func PlatformFromURL(rawURL string) Platform {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "amazon"):
		return PlatformAmazon
	case strings.Contains(lower, "ebay"):
		return PlatformEbay
	default:
		return PlatformGeneric
	}
}

// Product represents a tracked product page and its last observed state.
type Product struct {
	ID           uuid.UUID
	Name         string
	URL          string
	CurrentPrice *float64
	TargetPrice  *float64
	Platform     Platform
	IsActive     bool
	ImageURL     *string
	Description  *string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// InitMeta initializes the product metadata including ID and timestamps.
func (p *Product) InitMeta() {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	if p.Platform == "" {
		p.Platform = PlatformGeneric
	}
}

// Touch marks the product as updated now.
func (p *Product) Touch() {
	now := time.Now()
	p.UpdatedAt = &now
}

// Version is the last modification time, used to key derived data such as charts.
func (p *Product) Version() time.Time {
	if p.UpdatedAt != nil {
		return *p.UpdatedAt
	}
	return p.CreatedAt
}

// IsPriceDrop reports whether moving from the current price to newPrice should raise an alert:
// a previous price exists, the new one is lower, and it reaches the target.
func (p *Product) IsPriceDrop(newPrice float64) bool {
	if p.CurrentPrice == nil || p.TargetPrice == nil {
		return false
	}
	return newPrice < *p.CurrentPrice && newPrice <= *p.TargetPrice
}
