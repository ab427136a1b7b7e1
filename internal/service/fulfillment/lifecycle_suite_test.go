package fulfillment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/service/fulfillment"
)

// OrderLifecycleSuite прогоняет заказ через все статусы до удаления.
type OrderLifecycleSuite struct {
	suite.Suite
	f       *fixture
	queries *fulfillment.Queries
}

func TestOrderLifecycleSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleSuite))
}

func (s *OrderLifecycleSuite) SetupTest() {
	s.f = newFixture(s.T())
	s.f.seedProduct(s.T(), "hat", 4)
	s.f.seedProduct(s.T(), "scarf", 2)
	s.queries = fulfillment.NewQueries(s.f.orders, s.f.catalog, s.f.timeline)
}

func (s *OrderLifecycleSuite) transition(id string, to domain.OrderStatus) domain.Order {
	order, err := s.f.engine.Transition(context.Background(), id, to)
	s.Require().NoError(err)
	s.Require().Equal(to, order.Status)
	return order
}

func (s *OrderLifecycleSuite) TestHappyPathToPurge() {
	t := s.T()
	s.f.seedOrder(t, "o1", domain.OrderStatusPending, line{"hat", 1}, line{"scarf", 2})

	s.transition("o1", domain.OrderStatusProcessing)
	s.Equal(int64(3), s.f.stock(t, "hat"))
	s.Equal(int64(0), s.f.stock(t, "scarf"))

	s.transition("o1", domain.OrderStatusShipped)
	completed := s.transition("o1", domain.OrderStatusCompleted)
	s.True(completed.StockDeducted)
	s.Equal(int64(3), s.f.stock(t, "hat"), "stock is deducted once")

	s.Require().NoError(s.f.deletion.SoftDelete(s.f.ctx, "o1"))
	view, err := s.queries.GetOrder(s.f.ctx, "o1")
	s.Require().NoError(err)
	s.True(view.Order.IsDeleted())

	archived, err := s.queries.ListCompletedOrders(s.f.ctx, 0)
	s.Require().NoError(err)
	s.Len(archived, 1)

	s.Require().NoError(s.f.deletion.HardDelete(s.f.ctx, "o1"))
	_, err = s.queries.GetOrder(s.f.ctx, "o1")
	s.ErrorIs(err, domain.ErrOrderNotFound)

	s.Equal(int64(3), s.f.stock(t, "hat"), "deletion never touches stock")
	s.Equal(int64(0), s.f.stock(t, "scarf"))

	events, err := s.f.timeline.List("o1")
	s.Require().NoError(err)
	s.Equal([]string{
		domain.EventOrderStockDeducted,
		domain.EventOrderStatusChanged,
		domain.EventOrderStatusChanged,
		domain.EventOrderStatusChanged,
		domain.EventOrderArchived,
		domain.EventOrderPurged,
	}, timelineTypes(events))
}

func (s *OrderLifecycleSuite) TestRollbackToPendingThenCancel() {
	t := s.T()
	s.f.seedOrder(t, "o2", domain.OrderStatusPending, line{"hat", 2})

	s.transition("o2", domain.OrderStatusShipped)
	s.Equal(int64(2), s.f.stock(t, "hat"))

	back := s.transition("o2", domain.OrderStatusPending)
	s.False(back.StockDeducted)
	s.Equal(int64(4), s.f.stock(t, "hat"))

	cancelled, err := s.f.engine.Cancel(s.f.ctx, "o2", "changed mind")
	s.Require().NoError(err)
	s.True(cancelled.IsCancelled)

	_, err = s.f.engine.Transition(s.f.ctx, "o2", domain.OrderStatusProcessing)
	s.ErrorIs(err, domain.ErrInvalidState)
	s.Equal(int64(4), s.f.stock(t, "hat"))

	s.ErrorIs(s.f.deletion.SoftDelete(s.f.ctx, "o2"), domain.ErrOrderNotCompleted)
}

func (s *OrderLifecycleSuite) TestSecondOrderCannotOversell() {
	t := s.T()
	s.f.seedOrder(t, "a", domain.OrderStatusPending, line{"scarf", 2})
	s.f.seedOrder(t, "b", domain.OrderStatusPending, line{"scarf", 1})

	s.transition("a", domain.OrderStatusProcessing)

	_, err := s.f.engine.Transition(s.f.ctx, "b", domain.OrderStatusProcessing)
	var stockErr *domain.InsufficientStockError
	s.Require().ErrorAs(err, &stockErr)
	s.Equal("scarf", stockErr.ProductID)
	s.Equal(int64(0), stockErr.Available)

	d, err := s.queries.Dashboard(s.f.ctx)
	s.Require().NoError(err)
	s.Equal(1, d.PendingOrders)
}

func timelineTypes(events []domain.TimelineEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}
