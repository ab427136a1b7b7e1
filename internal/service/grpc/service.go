// Package grpcsvc реализует админский gRPC API исполнения заказов.
package grpcsvc

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/fulfillment"
)

// FulfillmentService реализует FulfillmentServiceServer поверх движка исполнения.
type FulfillmentService struct {
	engine   *fulfillment.Engine
	deletion *fulfillment.DeletionPolicy
	queries  *fulfillment.Queries
	logger   *log.Entry
}

// NewFulfillmentService собирает сервис из движка, политики удаления и запросов.
func NewFulfillmentService(
	engine *fulfillment.Engine,
	deletion *fulfillment.DeletionPolicy,
	queries *fulfillment.Queries,
	logger *log.Entry,
) *FulfillmentService {
	if logger == nil {
		logger = log.WithField("component", "grpc-fulfillment")
	}
	return &FulfillmentService{engine: engine, deletion: deletion, queries: queries, logger: logger}
}

// TransitionOrder: {"order_id", "status"} -> {"order"}.
func (s *FulfillmentService) TransitionOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	orderID, err := requiredString(req, "order_id")
	if err != nil {
		return nil, err
	}
	raw, err := requiredString(req, "status")
	if err != nil {
		return nil, err
	}
	next, err := domain.ParseOrderStatus(raw)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", raw)
	}

	order, err := s.engine.Transition(ctx, orderID, next)
	if err != nil {
		return nil, toStatus(err, s.logger, methodTransitionOrder)
	}
	return response(map[string]any{"order": orderFields(order)})
}

// CancelOrder: {"order_id", "reason"?} -> {"order"}.
func (s *FulfillmentService) CancelOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	orderID, err := requiredString(req, "order_id")
	if err != nil {
		return nil, err
	}
	reason := req.GetFields()["reason"].GetStringValue()

	order, err := s.engine.Cancel(ctx, orderID, reason)
	if err != nil {
		return nil, toStatus(err, s.logger, methodCancelOrder)
	}
	return response(map[string]any{"order": orderFields(order)})
}

// SoftDeleteOrder: {"order_id"} -> {"order_id", "mode": "soft"}.
func (s *FulfillmentService) SoftDeleteOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	orderID, err := requiredString(req, "order_id")
	if err != nil {
		return nil, err
	}
	if err := s.deletion.SoftDelete(ctx, orderID); err != nil {
		return nil, toStatus(err, s.logger, methodSoftDeleteOrder)
	}
	return response(map[string]any{"order_id": orderID, "mode": "soft"})
}

// HardDeleteOrder: {"order_id"} -> {"order_id", "mode": "hard"}.
func (s *FulfillmentService) HardDeleteOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	orderID, err := requiredString(req, "order_id")
	if err != nil {
		return nil, err
	}
	if err := s.deletion.HardDelete(ctx, orderID); err != nil {
		return nil, toStatus(err, s.logger, methodHardDeleteOrder)
	}
	return response(map[string]any{"order_id": orderID, "mode": "hard"})
}

// GetOrder: {"order_id"} -> {"order", "timeline"}. Архивные заказы тоже видны.
func (s *FulfillmentService) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	orderID, err := requiredString(req, "order_id")
	if err != nil {
		return nil, err
	}
	view, err := s.queries.GetOrder(ctx, orderID)
	if err != nil {
		return nil, toStatus(err, s.logger, methodGetOrder)
	}

	timeline := make([]any, 0, len(view.Timeline))
	for _, ev := range view.Timeline {
		timeline = append(timeline, map[string]any{
			"type":     ev.Type,
			"reason":   ev.Reason,
			"occurred": ev.Occurred.UTC().Format(time.RFC3339Nano),
		})
	}
	return response(map[string]any{"order": orderFields(view.Order), "timeline": timeline})
}

func requiredString(req *structpb.Struct, field string) (string, error) {
	v := req.GetFields()[field].GetStringValue()
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", field)
	}
	return v, nil
}

func response(fields map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func orderFields(o domain.Order) map[string]any {
	items := make([]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"id":         it.ID,
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice.StringFixed(2),
		})
	}

	fields := map[string]any{
		"id":             o.ID,
		"user_id":        o.UserID,
		"status":         string(o.Status),
		"stock_deducted": o.StockDeducted,
		"is_cancelled":   o.IsCancelled,
		"total":          o.Total().StringFixed(2),
		"version":        o.Version,
		"items":          items,
		"created_at":     o.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":     o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if o.CancelledAt != nil {
		fields["cancelled_at"] = o.CancelledAt.UTC().Format(time.RFC3339Nano)
	}
	if o.DeletedAt != nil {
		fields["deleted_at"] = o.DeletedAt.UTC().Format(time.RFC3339Nano)
	}
	return fields
}

var _ FulfillmentServiceServer = (*FulfillmentService)(nil)
