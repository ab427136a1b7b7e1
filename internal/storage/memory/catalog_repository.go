package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// catalogRepositoryInMemory хранит товары в памяти; изменения остатка идут под одним мьютексом,
// поэтому проверка и списание атомарны.
type catalogRepositoryInMemory struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	now      func() time.Time
}

// NewCatalogRepository создаёт in-memory реализацию CatalogRepository.
func NewCatalogRepository() domain.CatalogRepository {
	return &catalogRepositoryInMemory{
		products: make(map[string]domain.Product),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *catalogRepositoryInMemory) Create(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[product.ID]; exists {
		return domain.ErrProductExists
	}
	if product.Stock < 0 {
		return domain.ErrStockNegative
	}
	r.products[product.ID] = product
	return nil
}

func (r *catalogRepositoryInMemory) Get(_ context.Context, id string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *catalogRepositoryInMemory) Update(_ context.Context, product domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.products[product.ID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if product.Stock < 0 {
		return domain.ErrStockNegative
	}
	product.CreatedAt = current.CreatedAt
	r.products[product.ID] = product
	return nil
}

func (r *catalogRepositoryInMemory) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

// List возвращает товары, новые первыми.
func (r *catalogRepositoryInMemory) List(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.OnlyVisible && !p.Visible() {
			continue
		}
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *catalogRepositoryInMemory) SetRejected(_ context.Context, id string, rejected bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Rejected = rejected
	product.UpdatedAt = r.now()
	r.products[id] = product
	return nil
}

// DecrementStock списывает qty, только если остатка хватает.
func (r *catalogRepositoryInMemory) DecrementStock(_ context.Context, id string, qty int64) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	if product.Stock < qty {
		return &domain.InsufficientStockError{
			ProductID:   id,
			ProductName: product.Name,
			Requested:   qty,
			Available:   product.Stock,
		}
	}
	product.Stock -= qty
	product.UpdatedAt = r.now()
	r.products[id] = product
	return nil
}

// IncrementStock возвращает qty на склад.
func (r *catalogRepositoryInMemory) IncrementStock(_ context.Context, id string, qty int64) error {
	if qty <= 0 {
		return domain.ErrItemQtyInvalid
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.Stock += qty
	product.UpdatedAt = r.now()
	r.products[id] = product
	return nil
}

var _ domain.CatalogRepository = (*catalogRepositoryInMemory)(nil)
