package service

import (
	"github.com/iyhunko/price-tracker/internal/model"
	reposql "github.com/iyhunko/price-tracker/internal/repository/sql"
	"github.com/iyhunko/price-tracker/internal/sqs"
)

// Outbox event types.
const (
	EventTypeProductCreated = "product.created"
	EventTypeProductDeleted = "product.deleted"
	EventTypePriceDropped   = "product.price_dropped"
)

func productMessage(action string, product *model.Product) sqs.ProductMessage {
	return sqs.ProductMessage{
		Action:      action,
		ProductID:   product.ID.String(),
		Name:        product.Name,
		URL:         product.URL,
		Price:       product.CurrentPrice,
		TargetPrice: product.TargetPrice,
	}
}

func newProductEvent(eventType string, msg sqs.ProductMessage) (*model.Event, error) {
	return reposql.CreateEvent(eventType, msg)
}
