package sql

import (
	"github.com/iyhunko/price-tracker/internal/repository"
)

// AsUniqueConstraintError exposes the driver error conversion to tests.
func AsUniqueConstraintError(err error) (*repository.UniqueConstraintError, bool) {
	return asUniqueConstraintError(err)
}
