package sqs

// Message actions.
const (
	ActionCreated      = "created"
	ActionDeleted      = "deleted"
	ActionPriceDropped = "price_dropped"
)

// ProductMessage represents a message about a tracked product event.
type ProductMessage struct {
	Action      string   `json:"action"`
	ProductID   string   `json:"product_id"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Price       *float64 `json:"price"`
	OldPrice    *float64 `json:"old_price,omitempty"`
	TargetPrice *float64 `json:"target_price,omitempty"`
	Recipients  []string `json:"recipients,omitempty"`
}
