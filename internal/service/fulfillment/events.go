package fulfillment

import (
	"encoding/json"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// emitEvent кладёт событие в outbox и ленту заказа. Ошибки только логируются:
// состояние заказа к этому моменту уже сохранено.
func (c *core) emitEvent(orderID, eventType, reason string, occurred time.Time, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	payload["order_id"] = orderID
	payload["ts"] = occurred.Format(time.RFC3339Nano)
	if reason != "" {
		payload["reason"] = reason
	}

	if c.outbox != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			c.logger.WithError(err).WithFields(log.Fields{
				"order_id": orderID,
				"event":    eventType,
			}).Error("marshal event failed")
		} else {
			msg := domain.OutboxMessage{
				AggregateType: "order",
				AggregateID:   orderID,
				EventType:     eventType,
				Payload:       data,
			}
			if _, err := c.outbox.Enqueue(msg); err != nil {
				c.logger.WithError(err).WithFields(log.Fields{
					"order_id": orderID,
					"event":    eventType,
				}).Error("enqueue event failed")
			} else if c.metrics != nil {
				c.metrics.RecordOutboxEvent()
			}
		}
	}

	if c.timeline != nil {
		event := domain.TimelineEvent{
			OrderID:  orderID,
			Type:     eventType,
			Reason:   reason,
			Occurred: occurred,
		}
		if err := c.timeline.Append(event); err != nil {
			c.logger.WithError(err).WithFields(log.Fields{
				"order_id": orderID,
				"event":    eventType,
			}).Warn("append timeline event failed")
		} else if c.metrics != nil {
			c.metrics.RecordTimelineEvent()
		}
	}
}

func movementsPayload(movements []domain.StockMovement) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(movements))
	for _, m := range movements {
		out = append(out, map[string]interface{}{
			"product_id": m.ProductID,
			"quantity":   m.Quantity,
		})
	}
	return out
}

func unitsOf(movements []domain.StockMovement) int64 {
	var total int64
	for _, m := range movements {
		total += m.Quantity
	}
	return total
}

// resultOf сводит ошибку к метке метрики.
func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, domain.ErrInsufficientStock):
		return metrics.ResultInsufficientStock
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrInvalidStatus):
		return metrics.ResultInvalidState
	case domain.IsNotFound(err):
		return metrics.ResultNotFound
	default:
		return metrics.ResultError
	}
}
