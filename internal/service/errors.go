package service

import "errors"

var (
	// ErrProductExists is returned when a product with the same URL is already tracked.
	ErrProductExists = errors.New("product with this URL already exists")
	// ErrUserExists is returned when a user with the same e-mail is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrCheckInProgress is returned when another check of the same product holds the lock.
	ErrCheckInProgress = errors.New("price check already in progress")
	// ErrPriceUnavailable is returned when the product page yields no price.
	ErrPriceUnavailable = errors.New("price unavailable")
)
