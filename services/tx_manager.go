package services

import (
	"context"

	"gorm.io/gorm"
)

// TxManager runs fn in one database transaction. A non-nil error from fn
// rolls everything back.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}
