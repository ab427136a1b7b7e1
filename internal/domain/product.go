package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product — позиция каталога со складским остатком.
type Product struct {
	ID               string
	Name             string
	ShortDescription string
	Description      string
	Price            decimal.Decimal
	// Доступный остаток, никогда не уходит в минус.
	Stock     int64
	Active    bool
	Rejected  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Visible сообщает, показывается ли товар на витрине.
func (p *Product) Visible() bool {
	return p.Active && !p.Rejected
}

// Validate проверяет поля карточки товара.
func (p *Product) Validate() []error {
	var errs []error

	if p.Name == "" {
		errs = append(errs, ErrProductNameRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrPriceInvalid)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}
