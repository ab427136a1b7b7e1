package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/catalog"
	"github.com/vladislavdragonenkov/storefront/internal/service/fulfillment"
)

// services — прикладной слой, общий для gRPC и HTTP.
type services struct {
	engine   *fulfillment.Engine
	deletion *fulfillment.DeletionPolicy
	queries  *fulfillment.Queries
	catalog  *catalog.Service
}

// buildServices собирает движок исполнения. События пишутся в outbox,
// только если их есть кому публиковать.
func buildServices(deps *runtimeDependencies, m *metrics.FulfillmentMetrics, withOutbox bool, logger *log.Entry) services {
	opts := []fulfillment.Option{
		fulfillment.WithLocker(deps.locker),
		fulfillment.WithTimeline(deps.timeline),
		fulfillment.WithMetrics(m),
		fulfillment.WithLogger(logger.WithField("component", "fulfillment")),
	}
	if withOutbox {
		opts = append(opts, fulfillment.WithOutbox(deps.outbox))
	}

	engine := fulfillment.NewEngine(deps.orders, deps.catalog, opts...)
	return services{
		engine:   engine,
		deletion: engine.DeletionPolicy(),
		queries:  fulfillment.NewQueries(deps.orders, deps.catalog, deps.timeline),
		catalog:  catalog.NewService(deps.catalog, logger.WithField("component", "catalog")),
	}
}
