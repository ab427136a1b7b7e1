package fulfillment

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	deletionModeSoft = "soft"
	deletionModeHard = "hard"
)

// DeletionPolicy удаляет только завершённые заказы. Остатки при удалении не меняются.
type DeletionPolicy struct {
	core
}

// NewDeletionPolicy создаёт политику удаления. Для согласованности с Engine
// передавайте ту же блокировку через WithLocker либо используйте Engine.DeletionPolicy.
func NewDeletionPolicy(orders domain.OrderRepository, opts ...Option) *DeletionPolicy {
	return &DeletionPolicy{core: newCore(orders, nil, "deletion-policy", opts)}
}

// SoftDelete переносит завершённый заказ в архив.
func (p *DeletionPolicy) SoftDelete(ctx context.Context, orderID string) (err error) {
	ctx, span := p.tracer.Start(ctx, "fulfillment.SoftDelete", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer p.finish(span, deletionModeSoft, &err)

	if orderID == "" {
		return domain.ErrOrderIDRequired
	}

	unlock, err := p.locker.Lock(ctx, orderID)
	if err != nil {
		return fmt.Errorf("lock order %s: %w", orderID, err)
	}
	defer unlock()

	order, err := p.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusCompleted {
		return domain.ErrOrderNotCompleted
	}

	now := p.now()
	if err := p.orders.SoftDelete(ctx, orderID, now); err != nil {
		return fmt.Errorf("soft delete order %s: %w", orderID, err)
	}

	p.emitEvent(orderID, domain.EventOrderArchived, "", now, map[string]interface{}{
		"status": order.Status,
	})
	p.logger.WithField("order_id", orderID).Info("order archived")
	return nil
}

// HardDelete окончательно удаляет завершённый заказ, в том числе из архива.
// Сначала позиции, затем сам заказ.
func (p *DeletionPolicy) HardDelete(ctx context.Context, orderID string) (err error) {
	ctx, span := p.tracer.Start(ctx, "fulfillment.HardDelete", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer p.finish(span, deletionModeHard, &err)

	if orderID == "" {
		return domain.ErrOrderIDRequired
	}

	unlock, err := p.locker.Lock(ctx, orderID)
	if err != nil {
		return fmt.Errorf("lock order %s: %w", orderID, err)
	}
	defer unlock()

	order, err := p.orders.GetIncludingDeleted(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusCompleted {
		return domain.ErrOrderNotCompleted
	}

	started := time.Now()
	if purger, ok := p.orders.(domain.OrderPurger); ok {
		if err := purger.Purge(ctx, orderID); err != nil {
			return fmt.Errorf("purge order %s: %w", orderID, err)
		}
	} else {
		if err := p.orders.DeleteItems(ctx, orderID); err != nil {
			return fmt.Errorf("delete items of order %s: %w", orderID, err)
		}
		if err := p.orders.HardDelete(ctx, orderID); err != nil {
			return fmt.Errorf("hard delete order %s: %w", orderID, err)
		}
	}
	if p.metrics != nil {
		p.metrics.RecordStepDuration(string(domain.FulfillmentStepPurge), time.Since(started))
	}

	p.emitEvent(orderID, domain.EventOrderPurged, "", p.now(), map[string]interface{}{
		"user_id":    order.UserID,
		"item_count": len(order.Items),
		"total":      order.Total().StringFixed(2),
		"archived":   order.IsDeleted(),
	})
	p.logger.WithField("order_id", orderID).Info("order purged")
	return nil
}

func (p *DeletionPolicy) finish(span trace.Span, mode string, errp *error) {
	if err := *errp; err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	if p.metrics != nil {
		p.metrics.RecordDeletion(mode, resultOf(*errp))
	}
}
