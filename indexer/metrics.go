package indexer

import (
	"context"
	"net/http"
	"time"

	"evm-staking-indexer/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	resultOK       = "ok"
	resultNotFound = "not_found"
	resultError    = "error"

	decodeErrorLabel = "decode_error"
)

var (
	blocksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_blocks_processed_total",
		Help: "Blocks processed, by outcome.",
	}, []string{"result"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanner_events_total",
		Help: "Decoded staking events written, by event name.",
	}, []string{"event"})

	tipHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scanner_tip_height",
		Help: "Highest height persisted as the tip.",
	})

	blockDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scanner_block_duration_seconds",
		Help:    "Time spent processing a single block.",
		Buckets: prometheus.DefBuckets,
	})
)

// ServeMetrics exposes the default prometheus registry on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string) error {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown: %s", err)
		}
	}()

	logger.Info("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
