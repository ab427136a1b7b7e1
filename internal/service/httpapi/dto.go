package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
)

type orderItemDTO struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type orderDTO struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Status          string         `json:"status"`
	StockDeducted   bool           `json:"stock_deducted"`
	IsCancelled     bool           `json:"is_cancelled"`
	CancelledAt     *time.Time     `json:"cancelled_at,omitempty"`
	ShippingAddress string         `json:"shipping_address,omitempty"`
	Phone           string         `json:"phone,omitempty"`
	Notes           string         `json:"notes,omitempty"`
	Total           string         `json:"total"`
	Version         int64          `json:"version"`
	Items           []orderItemDTO `json:"items"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       *time.Time     `json:"deleted_at,omitempty"`
}

func toOrderDTO(o domain.Order) orderDTO {
	items := make([]orderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDTO{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		})
	}
	return orderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		StockDeducted:   o.StockDeducted,
		IsCancelled:     o.IsCancelled,
		CancelledAt:     o.CancelledAt,
		ShippingAddress: o.ShippingAddress,
		Phone:           o.Phone,
		Notes:           o.Notes,
		Total:           o.Total().StringFixed(2),
		Version:         o.Version,
		Items:           items,
		CreatedAt:       o.CreatedAt.UTC(),
		UpdatedAt:       o.UpdatedAt.UTC(),
		DeletedAt:       o.DeletedAt,
	}
}

func toOrderDTOs(orders []domain.Order) []orderDTO {
	out := make([]orderDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderDTO(o))
	}
	return out
}

type timelineDTO struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

// productDTO — карточка для админки.
type productDTO struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	ShortDescription string    `json:"short_description,omitempty"`
	Description      string    `json:"description,omitempty"`
	Price            string    `json:"price"`
	Stock            int64     `json:"stock"`
	Active           bool      `json:"is_active"`
	Rejected         bool      `json:"is_rejected"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toProductDTO(p domain.Product) productDTO {
	return productDTO{
		ID:               p.ID,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		Price:            p.Price.StringFixed(2),
		Stock:            p.Stock,
		Active:           p.Active,
		Rejected:         p.Rejected,
		CreatedAt:        p.CreatedAt.UTC(),
		UpdatedAt:        p.UpdatedAt.UTC(),
	}
}

// storefrontProductDTO — то, что видит покупатель: без модерационных флагов.
type storefrontProductDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	ShortDescription string `json:"short_description,omitempty"`
	Description      string `json:"description,omitempty"`
	Price            string `json:"price"`
	InStock          bool   `json:"in_stock"`
	Stock            int64  `json:"stock"`
}

func toStorefrontDTO(p domain.Product) storefrontProductDTO {
	return storefrontProductDTO{
		ID:               p.ID,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		Price:            p.Price.StringFixed(2),
		InStock:          p.Stock > 0,
		Stock:            p.Stock,
	}
}

// productRequest принимает цену и строкой, и числом.
type productRequest struct {
	Name             string          `json:"name"`
	ShortDescription string          `json:"short_description"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	Stock            int64           `json:"stock"`
	Active           bool            `json:"is_active"`
}

func (r productRequest) input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:             r.Name,
		ShortDescription: r.ShortDescription,
		Description:      r.Description,
		Price:            r.Price,
		Stock:            r.Stock,
		Active:           r.Active,
	}
}
