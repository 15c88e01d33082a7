package main

//go:generate mockgen -source=poller.go -destination=mock_poller_test.go -package=main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/zathras777/ysiodo/odo"
	"github.com/zathras777/ysiodo/rtu"
	"go.uber.org/multierr"
)

// Sensor is the part of odo.Client the poller needs.
type Sensor interface {
	ReadData() (odo.Reading, error)
}

// ReadingSink receives every successful reading.
type ReadingSink interface {
	Name() string
	Publish(ctx context.Context, r odo.Reading) error
}

// ReadObserver is told the outcome of every read attempt.
type ReadObserver interface {
	ObserveRead(err error)
}

// Poller reads the sensor on a fixed interval from a single goroutine, which
// is what serialises access to the serial line.
type Poller struct {
	sensor    Sensor
	sinks     []ReadingSink
	observer  ReadObserver
	interval  time.Duration
	maxErrors int
	log       logr.Logger

	errors int
}

func NewPoller(sensor Sensor, sinks []ReadingSink, observer ReadObserver, interval time.Duration, maxErrors int, log logr.Logger) *Poller {
	return &Poller{
		sensor:    sensor,
		sinks:     sinks,
		observer:  observer,
		interval:  interval,
		maxErrors: maxErrors,
		log:       log,
	}
}

// Run polls until ctx is done. It gives up after maxErrors consecutive
// retryable failures, or at once on a failure that retrying cannot fix.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.poll(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// poll performs one read. Only errors that must stop the poller are
// returned.
func (p *Poller) poll(ctx context.Context) error {
	r, err := p.sensor.ReadData()
	if p.observer != nil {
		p.observer.ObserveRead(err)
	}
	if err != nil {
		if !rtu.Retryable(err) {
			return fmt.Errorf("poller: %w", err)
		}
		p.errors++
		p.log.Info("read failed", "error", err.Error(), "consecutive", p.errors)
		if p.errors >= p.maxErrors {
			return fmt.Errorf("poller: giving up after %d consecutive errors: %w", p.errors, err)
		}
		return nil
	}
	p.errors = 0
	if err := p.publish(ctx, r); err != nil {
		p.log.Error(err, "publishing reading")
	}
	return nil
}

func (p *Poller) publish(ctx context.Context, r odo.Reading) error {
	var errs error
	for _, s := range p.sinks {
		if err := s.Publish(ctx, r); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errs
}
