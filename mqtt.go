package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-logr/logr"
	"github.com/zathras777/ysiodo/odo"
	"go.uber.org/multierr"
)

const mqttWait = 5 * time.Second

// mqttSink publishes each measurement as a retained state topic and
// announces the sensors to Home Assistant once connected.
type mqttSink struct {
	client mqtt.Client
	cfg    mqttData
	name   string
	log    logr.Logger

	advertised bool
}

func newMQTTClient(cfg mqttData, name string) mqtt.Client {
	mqOpts := mqtt.NewClientOptions()
	mqOpts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	mqOpts.SetClientID("ysiodo-" + name)
	mqOpts.SetAutoReconnect(true)
	return mqtt.NewClient(mqOpts)
}

func newMQTTSink(client mqtt.Client, cfg mqttData, name string, log logr.Logger) *mqttSink {
	return &mqttSink{client: client, cfg: cfg, name: name, log: log}
}

// connect tries the broker once; the client reconnects by itself after
// the first successful connection.
func (s *mqttSink) connect() error {
	token := s.client.Connect()
	if !token.WaitTimeout(mqttWait) {
		return fmt.Errorf("mqtt: connecting to %s:%d timed out", s.cfg.Host, s.cfg.Port)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: connect: %w", err)
	}
	return nil
}

func (s *mqttSink) Name() string {
	return "mqtt"
}

func (s *mqttSink) Close() error {
	s.client.Disconnect(250)
	return nil
}

func measurementID(m odo.Measurement) string {
	return strings.ReplaceAll(strings.ToLower(m.Name), " ", "_")
}

func (s *mqttSink) stateTopic(m odo.Measurement) string {
	return fmt.Sprintf("%s/%s/%s/state", s.cfg.TopicPrefix, s.name, measurementID(m))
}

func (s *mqttSink) Publish(_ context.Context, r odo.Reading) error {
	if !s.client.IsConnected() {
		s.log.V(1).Info("mqtt not connected, skipping reading")
		return nil
	}
	if !s.advertised {
		if err := s.registerHA(r.Measurements); err != nil {
			s.log.Error(err, "home assistant discovery")
		} else {
			s.advertised = true
		}
	}
	var errs error
	for _, m := range r.Measurements {
		token := s.client.Publish(s.stateTopic(m), s.cfg.QoS, true, fmt.Sprintf("%.02f", m.Value))
		errs = multierr.Append(errs, wait(token))
	}
	return errs
}

func wait(token mqtt.Token) error {
	if !token.WaitTimeout(mqttWait) {
		return fmt.Errorf("mqtt: publish timed out")
	}
	return token.Error()
}

type hassAdvert struct {
	Name              string `json:"name"`
	UniqueID          string `json:"unique_id"`
	Icon              string `json:"icon,omitempty"`
	StateTopic        string `json:"state_topic"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	DeviceClass       string `json:"device_class,omitempty"`
}

func (s *mqttSink) registerHA(ms []odo.Measurement) error {
	if !s.client.IsConnected() {
		return fmt.Errorf("mqtt: not connected")
	}
	var errs error
	for _, m := range ms {
		id := measurementID(m)
		haData := hassAdvert{
			Name:              fmt.Sprintf("%s %s", s.name, strings.ReplaceAll(id, "_", " ")),
			StateTopic:        s.stateTopic(m),
			UniqueID:          fmt.Sprintf("%s_%s", s.name, id),
			UnitOfMeasurement: m.Unit,
		}
		switch m.Unit {
		case "°C":
			haData.DeviceClass = "temperature"
		case "%", "mg/L":
			haData.Icon = "mdi:water"
		case "µS/cm":
			haData.Icon = "mdi:flash"
		case "s":
			haData.DeviceClass = "duration"
		}
		jsonBytes, err := json.Marshal(haData)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		topic := fmt.Sprintf("%s/sensor/%s/%s/config", s.cfg.HassdiscoveryPrefix, s.name, id)
		errs = multierr.Append(errs, wait(s.client.Publish(topic, s.cfg.QoS, true, jsonBytes)))
	}
	return errs
}
