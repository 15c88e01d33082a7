package main

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/zathras777/ysiodo/odo"
)

func provideSensor(cfg configData, log logr.Logger) (*odo.Client, func(), error) {
	address, err := resolveDevicename(cfg.Sensor.Devicename, newUSBScanner())
	if err != nil {
		return nil, nil, err
	}
	c, err := odo.Open(odo.Config{
		Serial: cfg.Sensor.rtuConfig(address),
		Device: cfg.Sensor.DeviceID,
	}, odo.WithLogger(log.WithName("odo")))
	if err != nil {
		return nil, nil, err
	}
	log.Info("sensor port open", "port", address, "device", c.Device())
	cleanup := func() {
		if err := c.Close(); err != nil {
			log.Error(err, "closing sensor port")
		}
	}
	return c, cleanup, nil
}

func provideMetrics(cfg configData) *metrics {
	if cfg.Metrics.Listen == "" {
		return nil
	}
	return newMetrics()
}

// provideMQTT connects when a broker is configured. A broker that is down
// at start is logged and the sink skips readings until it is reachable.
func provideMQTT(cfg configData, log logr.Logger) (*mqttSink, func(), error) {
	if cfg.MQTT.Host == "" {
		return nil, func() {}, nil
	}
	log = log.WithName("mqtt")
	sink := newMQTTSink(newMQTTClient(cfg.MQTT, cfg.Name), cfg.MQTT, cfg.Name, log)
	if err := sink.connect(); err != nil {
		log.Error(err, "broker unavailable")
	}
	return sink, func() { sink.Close() }, nil
}

func provideStore(ctx context.Context, cfg configData, log logr.Logger) (*store, func(), error) {
	if cfg.Database.DSN == "" {
		return nil, func() {}, nil
	}
	s, err := openStore(ctx, cfg.Database.DSN, log.WithName("store"))
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}

// provideSinks drops the sinks that are not configured.
func provideSinks(m *metrics, q *mqttSink, s *store) []ReadingSink {
	var sinks []ReadingSink
	if m != nil {
		sinks = append(sinks, m)
	}
	if q != nil {
		sinks = append(sinks, q)
	}
	if s != nil {
		sinks = append(sinks, s)
	}
	return sinks
}

func provideObserver(m *metrics) ReadObserver {
	if m == nil {
		return nil
	}
	return m
}

func providePoller(cfg configData, sensor Sensor, sinks []ReadingSink, observer ReadObserver, log logr.Logger) *Poller {
	return NewPoller(sensor, sinks, observer, cfg.interval(), cfg.MaxErrors, log.WithName("poller"))
}
