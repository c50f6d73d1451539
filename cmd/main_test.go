package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/config"
	"github.com/okian/tally/pkg/logger"
)

func memoryConfig() *config.Config {
	cfg := config.New()
	cfg.DBDriver = repository.DriverMemory
	cfg.DBDSN = ""
	return cfg
}

func TestNewService(t *testing.T) {
	convey.Convey("Given a memory-backed configuration", t, func() {
		ctx := context.Background()
		cfg := memoryConfig()

		convey.Convey("When the service is created", func() {
			svc, err := newService(ctx, cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then it is started with the configured defaults", func() {
				stats := svc.GetStats()
				convey.So(stats["started"], convey.ShouldEqual, true)
				convey.So(stats["cacheSize"], convey.ShouldEqual, cfg.CacheSize)
				convey.So(stats["defaultMetric"], convey.ShouldEqual, "totalPoints")
			})
		})

		convey.Convey("When the driver is unknown", func() {
			cfg.DBDriver = "oracle"
			_, err := newService(ctx, cfg, logger.Nop())

			convey.Convey("Then creation fails", func() {
				convey.So(errors.Is(err, repository.ErrUnknownDriver), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the default metric is unknown", func() {
			cfg.DefaultMetric = "elo"
			_, err := newService(ctx, cfg, logger.Nop())

			convey.Convey("Then creation fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a handler over an in-memory sqlite store", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.DBDSN = ":memory:"

		svc, err := newService(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		defer svc.Stop()

		handler := newHandler(ctx, cfg, svc)

		convey.Convey("Then every route is mounted", func() {
			for _, target := range []string{"/profiles", "/stats", "/healthz", "/openapi.yaml", "/api-docs", "/leaderboard"} {
				w := httptest.NewRecorder()
				handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given a running service", t, func() {
		svc, err := newService(context.Background(), memoryConfig(), logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		defer svc.Stop()

		convey.Convey("Then the updaters return once the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	convey.Convey("Given a configuration on an ephemeral port", t, func() {
		cfg := memoryConfig()
		cfg.Addr = "127.0.0.1:0"
		ctx, cancel := context.WithCancel(context.Background())

		convey.Convey("When the context is cancelled", func() {
			done := make(chan error, 1)
			go func() { done <- run(ctx, cfg) }()
			time.Sleep(50 * time.Millisecond)
			cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				select {
				case err := <-done:
					convey.So(err, convey.ShouldBeNil)
				case <-time.After(5 * time.Second):
					t.Fatal("run did not return")
				}
			})
		})
	})
}
