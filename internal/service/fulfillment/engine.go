package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Engine переводит заказ между статусами и списывает/возвращает остатки.
//
// Правила:
//   - отменённый заказ не меняется (ErrOrderCancelled);
//   - переход в processing/shipped/completed списывает остатки один раз на заказ;
//   - возврат в pending после списания возвращает ровно списанное;
//   - при нехватке хотя бы одной позиции ничего не меняется.
type Engine struct {
	core
}

// NewEngine создаёт движок исполнения заказов.
func NewEngine(orders domain.OrderRepository, catalog domain.CatalogRepository, opts ...Option) *Engine {
	return &Engine{core: newCore(orders, catalog, "fulfillment", opts)}
}

// DeletionPolicy возвращает политику удаления с теми же зависимостями и той же блокировкой.
func (e *Engine) DeletionPolicy() *DeletionPolicy {
	c := e.core
	c.logger = c.logger.WithField("component", "deletion-policy")
	return &DeletionPolicy{core: c}
}

// Transition переводит заказ в newStatus.
func (e *Engine) Transition(ctx context.Context, orderID string, newStatus domain.OrderStatus) (order domain.Order, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "fulfillment.Transition", trace.WithAttributes(
		attribute.String("order.id", orderID),
		attribute.String("order.status.to", string(newStatus)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if e.metrics != nil {
			e.metrics.RecordTransition(string(newStatus), resultOf(err))
			e.metrics.RecordTransitionDuration(time.Since(start))
		}
	}()

	if orderID == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}
	if !newStatus.Valid() {
		return domain.Order{}, domain.ErrInvalidStatus
	}

	unlock, err := e.locker.Lock(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("lock order %s: %w", orderID, err)
	}
	defer unlock()
	if e.metrics != nil {
		e.metrics.InFlightStarted()
		defer e.metrics.InFlightFinished()
	}

	order, err = e.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	logger := e.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"from":     order.Status,
		"to":       newStatus,
	})

	if order.IsCancelled {
		logger.Info("transition rejected: order is cancelled")
		return order, domain.ErrOrderCancelled
	}

	prevStatus := order.Status
	prevDeducted := order.StockDeducted

	var (
		applied []domain.StockMovement
		kind    domain.StockMovementKind
	)
	switch {
	case newStatus.ConsumesStock() && !order.StockDeducted:
		kind = domain.StockMovementDeduct
		applied, err = e.deduct(ctx, order)
		if err != nil {
			logger.WithError(err).Info("stock deduction rejected")
			return order, err
		}
		order.StockDeducted = true
	case order.StockDeducted && newStatus == domain.OrderStatusPending:
		kind = domain.StockMovementRestore
		applied, err = e.restore(ctx, order)
		if err != nil {
			logger.WithError(err).Error("stock restore failed")
			return order, err
		}
		order.StockDeducted = false
	}

	if prevStatus == newStatus && prevDeducted == order.StockDeducted {
		return order, nil
	}

	order.Status = newStatus
	order.UpdatedAt = e.now()
	if err := e.orders.Save(ctx, order); err != nil {
		logger.WithError(err).Error("failed to persist order, rolling back stock")
		e.compensate(ctx, order.ID, applied)
		return domain.Order{}, fmt.Errorf("save order %s: %w", order.ID, err)
	}
	order.Version++

	switch kind {
	case domain.StockMovementDeduct:
		if e.metrics != nil {
			e.metrics.RecordUnitsDeducted(unitsOf(applied))
		}
		e.emitEvent(order.ID, domain.EventOrderStockDeducted, "", order.UpdatedAt, map[string]interface{}{
			"items": movementsPayload(applied),
		})
	case domain.StockMovementRestore:
		if e.metrics != nil {
			e.metrics.RecordUnitsRestored(unitsOf(applied))
		}
		e.emitEvent(order.ID, domain.EventOrderStockRestored, "", order.UpdatedAt, map[string]interface{}{
			"items": movementsPayload(applied),
		})
	}
	if prevStatus != newStatus {
		e.emitEvent(order.ID, domain.EventOrderStatusChanged, "", order.UpdatedAt, map[string]interface{}{
			"from":           prevStatus,
			"status":         order.Status,
			"stock_deducted": order.StockDeducted,
		})
	}

	logger.WithField("stock_deducted", order.StockDeducted).Info("order transitioned")
	return order, nil
}

// Cancel помечает заказ отменённым. Остатки не трогает: списанный товар
// остаётся списанным до ручного решения.
func (e *Engine) Cancel(ctx context.Context, orderID, reason string) (order domain.Order, err error) {
	ctx, span := e.tracer.Start(ctx, "fulfillment.Cancel", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if orderID == "" {
		return domain.Order{}, domain.ErrOrderIDRequired
	}

	unlock, err := e.locker.Lock(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("lock order %s: %w", orderID, err)
	}
	defer unlock()

	order, err = e.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.IsCancelled {
		return order, nil
	}

	now := e.now()
	order.IsCancelled = true
	order.CancelledAt = &now
	order.UpdatedAt = now
	if err := e.orders.Save(ctx, order); err != nil {
		return domain.Order{}, fmt.Errorf("save order %s: %w", order.ID, err)
	}
	order.Version++

	e.emitEvent(order.ID, domain.EventOrderCancelled, reason, now, map[string]interface{}{
		"status":         order.Status,
		"stock_deducted": order.StockDeducted,
	})
	if order.StockDeducted {
		e.logger.WithField("order_id", order.ID).Warn("order cancelled with stock still deducted")
	}
	return order, nil
}

// deduct проверяет все позиции и только потом списывает.
func (e *Engine) deduct(ctx context.Context, order domain.Order) ([]domain.StockMovement, error) {
	started := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordStepDuration(string(domain.FulfillmentStepDeduct), time.Since(started))
		}
	}()

	lines := domain.StockLines(order.Items)
	if err := e.verifyStock(ctx, lines); err != nil {
		return nil, err
	}

	applied := make([]domain.StockMovement, 0, len(lines))
	for _, line := range lines {
		if err := e.catalog.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			// Остаток успел уйти между проверкой и списанием.
			e.compensate(ctx, order.ID, applied)
			return nil, e.stockError(ctx, line, err)
		}
		applied = append(applied, domain.StockMovement{
			Kind:      domain.StockMovementDeduct,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	return applied, nil
}

// verifyStock возвращает ошибку по первой позиции, которой не хватает.
func (e *Engine) verifyStock(ctx context.Context, lines []domain.StockLine) error {
	for _, line := range lines {
		product, err := e.catalog.Get(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return &domain.InsufficientStockError{
					ProductID: line.ProductID,
					Requested: line.Quantity,
					Missing:   true,
				}
			}
			return fmt.Errorf("load product %s: %w", line.ProductID, err)
		}
		if product.Stock < line.Quantity {
			return &domain.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   line.Quantity,
				Available:   product.Stock,
			}
		}
	}
	return nil
}

// stockError приводит ошибку списания к InsufficientStockError, если это нехватка.
func (e *Engine) stockError(ctx context.Context, line domain.StockLine, err error) error {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		return stockErr
	}
	if errors.Is(err, domain.ErrProductNotFound) {
		return &domain.InsufficientStockError{ProductID: line.ProductID, Requested: line.Quantity, Missing: true}
	}
	if errors.Is(err, domain.ErrInsufficientStock) {
		stockErr = &domain.InsufficientStockError{ProductID: line.ProductID, Requested: line.Quantity}
		if product, getErr := e.catalog.Get(ctx, line.ProductID); getErr == nil {
			stockErr.ProductName = product.Name
			stockErr.Available = product.Stock
		}
		return stockErr
	}
	return fmt.Errorf("decrement stock %s: %w", line.ProductID, err)
}

// restore возвращает остатки по позициям. Удалённые из каталога товары пропускаются.
func (e *Engine) restore(ctx context.Context, order domain.Order) ([]domain.StockMovement, error) {
	started := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordStepDuration(string(domain.FulfillmentStepRestore), time.Since(started))
		}
	}()

	lines := domain.StockLines(order.Items)
	applied := make([]domain.StockMovement, 0, len(lines))
	for _, line := range lines {
		err := e.catalog.IncrementStock(ctx, line.ProductID, line.Quantity)
		if errors.Is(err, domain.ErrProductNotFound) {
			e.logger.WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": line.ProductID,
				"quantity":   line.Quantity,
			}).Warn("product missing from catalog, stock not restored")
			continue
		}
		if err != nil {
			e.compensate(ctx, order.ID, applied)
			return nil, fmt.Errorf("increment stock %s: %w", line.ProductID, err)
		}
		applied = append(applied, domain.StockMovement{
			Kind:      domain.StockMovementRestore,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	return applied, nil
}

// compensate откатывает применённые движения в обратном порядке.
func (e *Engine) compensate(ctx context.Context, orderID string, applied []domain.StockMovement) {
	if len(applied) == 0 {
		return
	}
	if e.metrics != nil {
		e.metrics.RecordCompensation()
	}
	// Откат должен дойти до конца даже после отмены запроса.
	ctx = context.WithoutCancel(ctx)

	for i := len(applied) - 1; i >= 0; i-- {
		m := applied[i]
		fields := log.Fields{"order_id": orderID, "product_id": m.ProductID, "step": "compensate"}
		err := e.withRetry(ctx, fields, func(ctx context.Context) error {
			if m.Kind == domain.StockMovementRestore {
				return e.catalog.DecrementStock(ctx, m.ProductID, m.Quantity)
			}
			return e.catalog.IncrementStock(ctx, m.ProductID, m.Quantity)
		})
		if err != nil {
			e.logger.WithError(err).WithFields(fields).WithFields(log.Fields{
				"quantity": m.Quantity,
				"kind":     m.Kind,
			}).Error("stock compensation failed")
		}
	}
}
