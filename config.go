package main

import (
	"fmt"
	"os"
	"time"

	"github.com/zathras777/ysiodo/rtu"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

type serialData struct {
	Devicename string
	Baudrate   int
	Parity     string
	DeviceID   uint8 `yaml:"device_id"`
	TimeoutMs  int   `yaml:"timeout_ms"`
}

type mqttData struct {
	Host                string
	Port                uint
	QoS                 byte
	TopicPrefix         string `yaml:"topic_prefix"`
	HassdiscoveryPrefix string `yaml:"hassdiscovery_prefix"`
}

type metricsData struct {
	Listen string
}

type databaseData struct {
	DSN string
}

type configData struct {
	Name       string
	IntervalMs int `yaml:"interval_ms"`
	MaxErrors  int `yaml:"max_errors"`
	Sensor     serialData
	MQTT       mqttData
	Metrics    metricsData
	Database   databaseData
	Simulator  serialData
}

const (
	defaultIntervalMs = 5000
	defaultMaxErrors  = 10
)

func parseConfiguration(cfgFn string) (configData, error) {
	var cfg configData
	cfgData, err := os.ReadFile(cfgFn)
	if err != nil {
		return cfg, err
	}
	if err := yaml.UnmarshalStrict(cfgData, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", cfgFn, err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", cfgFn, err)
	}
	return cfg, nil
}

func (c *configData) applyDefaults() {
	if c.Name == "" {
		c.Name = "odo"
	}
	if c.IntervalMs == 0 {
		c.IntervalMs = defaultIntervalMs
	}
	if c.MaxErrors == 0 {
		c.MaxErrors = defaultMaxErrors
	}
	c.Sensor.applyDefaults()
	c.Simulator.applyDefaults()
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "ysiodo"
	}
	if c.MQTT.HassdiscoveryPrefix == "" {
		c.MQTT.HassdiscoveryPrefix = "homeassistant"
	}
}

func (s *serialData) applyDefaults() {
	if s.Baudrate == 0 {
		s.Baudrate = 9600
	}
	if s.Parity == "" {
		s.Parity = "E"
	}
	if s.DeviceID == 0 {
		s.DeviceID = 1
	}
	if s.TimeoutMs == 0 {
		s.TimeoutMs = int(rtu.DefaultTimeout / time.Millisecond)
	}
}

func (c configData) validate() error {
	var err error
	if c.IntervalMs < 0 {
		err = multierr.Append(err, fmt.Errorf("interval_ms must be positive, got %d", c.IntervalMs))
	}
	if c.MaxErrors < 0 {
		err = multierr.Append(err, fmt.Errorf("max_errors must be positive, got %d", c.MaxErrors))
	}
	if c.MQTT.QoS > 2 {
		err = multierr.Append(err, fmt.Errorf("mqtt qos %d outside 0..2", c.MQTT.QoS))
	}
	err = multierr.Append(err, c.Sensor.validate("sensor"))
	return multierr.Append(err, c.Simulator.validate("simulator"))
}

func (s serialData) validate(section string) error {
	var err error
	switch s.Baudrate {
	case 9600, 19200, 38400, 57600, 115200:
	default:
		err = multierr.Append(err, fmt.Errorf("%s: unsupported baudrate %d", section, s.Baudrate))
	}
	switch s.Parity {
	case "N", "E", "O":
	default:
		err = multierr.Append(err, fmt.Errorf("%s: parity must be N, E or O, got %q", section, s.Parity))
	}
	if s.DeviceID < rtu.MinDevice || s.DeviceID > rtu.MaxDevice {
		err = multierr.Append(err, fmt.Errorf("%s: device_id %d outside %d..%d", section, s.DeviceID, rtu.MinDevice, rtu.MaxDevice))
	}
	if s.TimeoutMs < 0 {
		err = multierr.Append(err, fmt.Errorf("%s: timeout_ms must be positive, got %d", section, s.TimeoutMs))
	}
	return err
}

func (c configData) interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// rtuConfig returns the line settings for address. Two stop bits are used
// without parity to keep the 11 bit character.
func (s serialData) rtuConfig(address string) rtu.Config {
	stopBits := 1
	if s.Parity == "N" {
		stopBits = 2
	}
	return rtu.Config{
		Address:  address,
		BaudRate: s.Baudrate,
		DataBits: 8,
		StopBits: stopBits,
		Parity:   s.Parity,
		Timeout:  time.Duration(s.TimeoutMs) * time.Millisecond,
	}
}
