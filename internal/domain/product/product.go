package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("Product not found")

// Product is a catalog item shown by the storefront.
type Product struct {
	ID           string
	Name         string
	Description  string
	Price        decimal.Decimal
	Category     string
	Image        string
	CountInStock int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
