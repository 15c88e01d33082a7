package main

import (
	"context"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

type application struct {
	cfg     configData
	poller  *Poller
	metrics *metrics
	log     logr.Logger
}

func newApplication(cfg configData, poller *Poller, m *metrics, log logr.Logger) *application {
	return &application{cfg: cfg, poller: poller, metrics: m, log: log}
}

// run polls the sensor and serves metrics until ctx is done or the poller
// gives up.
func (a *application) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	pollCtx, stop := context.WithCancel(ctx)
	defer stop()

	g.Go(func() error {
		defer stop()
		return a.poller.Run(pollCtx)
	})
	if a.metrics != nil {
		g.Go(func() error {
			return serveMetrics(pollCtx, a.cfg.Metrics.Listen, a.metrics.handler(), a.log)
		})
	}
	return g.Wait()
}
