// Package metrics provides Prometheus instrumentation for the game loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PriceTicks counts price updates per asset.
	PriceTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "levgame_price_ticks_total",
		Help: "Total number of price ticks",
	}, []string{"asset"})

	// PositionsOpened counts opened positions, partitioned by direction.
	PositionsOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "levgame_positions_opened_total",
		Help: "Total number of positions opened",
	}, []string{"direction"})

	// PositionsClosed counts settlements, partitioned by close reason.
	PositionsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "levgame_positions_closed_total",
		Help: "Total number of positions settled",
	}, []string{"reason"})

	// Balance tracks the player's cash balance.
	Balance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "levgame_balance",
		Help: "Current account balance",
	})

	// ActiveEvents tracks the number of live market events.
	ActiveEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "levgame_active_events",
		Help: "Number of currently active market events",
	})

	// StorageFailures counts failed loads and saves.
	StorageFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "levgame_storage_failures_total",
		Help: "Failed persistence operations",
	}, []string{"op"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
