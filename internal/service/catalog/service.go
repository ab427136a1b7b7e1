// Package catalog управляет карточками товаров и правилами витрины.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ProductInput — поля карточки, которые редактирует администратор.
type ProductInput struct {
	Name             string
	ShortDescription string
	Description      string
	Price            decimal.Decimal
	Stock            int64
	Active           bool
}

// ValidationError собирает все замечания к карточке.
type ValidationError struct {
	Errs []error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid product: %v", errors.Join(e.Errs...))
}

func (e *ValidationError) Unwrap() []error {
	return e.Errs
}

// Service — админские операции с каталогом и витрина.
type Service struct {
	repo   domain.CatalogRepository
	logger *log.Entry
	now    func() time.Time
}

// NewService создаёт сервис каталога.
func NewService(repo domain.CatalogRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog")
	}
	return &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateProduct заводит товар. Цена округляется до копеек.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (domain.Product, error) {
	now := s.now()
	product := domain.Product{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	apply(&product, in)
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, &ValidationError{Errs: errs}
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}
	s.logger.WithField("product_id", product.ID).Info("product created")
	return product, nil
}

// UpdateProduct перезаписывает карточку, включая остаток.
func (s *Service) UpdateProduct(ctx context.Context, id string, in ProductInput) (domain.Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	apply(&product, in)
	product.UpdatedAt = s.now()
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, &ValidationError{Errs: errs}
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return domain.Product{}, fmt.Errorf("update product %s: %w", id, err)
	}
	return product, nil
}

// RejectProduct снимает товар с витрины решением модератора.
func (s *Service) RejectProduct(ctx context.Context, id string) error {
	if err := s.repo.SetRejected(ctx, id, true); err != nil {
		return err
	}
	s.logger.WithField("product_id", id).Info("product rejected")
	return nil
}

// RestoreProduct возвращает отклонённый товар.
func (s *Service) RestoreProduct(ctx context.Context, id string) error {
	if err := s.repo.SetRejected(ctx, id, false); err != nil {
		return err
	}
	s.logger.WithField("product_id", id).Info("product restored")
	return nil
}

// DeleteProduct удаляет товар. Позиции заказов на него остаются.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("product_id", id).Info("product deleted")
	return nil
}

// GetProduct отдаёт карточку для админки, без фильтра видимости.
func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.Get(ctx, id)
}

// ListProducts отдаёт все товары для админки.
func (s *Service) ListProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.repo.List(ctx, domain.ProductFilter{Limit: limit})
}

// ListStorefront отдаёт только активные и не отклонённые товары.
func (s *Service) ListStorefront(ctx context.Context, limit int) ([]domain.Product, error) {
	return s.repo.List(ctx, domain.ProductFilter{OnlyVisible: true, Limit: limit})
}

// GetStorefrontProduct отдаёт товар покупателю; скрытый товар считается отсутствующим.
func (s *Service) GetStorefrontProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if !product.Visible() {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func apply(p *domain.Product, in ProductInput) {
	p.Name = in.Name
	p.ShortDescription = in.ShortDescription
	p.Description = in.Description
	p.Price = in.Price.Round(2)
	p.Stock = in.Stock
	p.Active = in.Active
}
