package odo

import (
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/goburrow/modbus"
	"github.com/zathras777/ysiodo/rtu"
)

// Config selects the serial port and the probe's Modbus address.
type Config struct {
	Serial rtu.Config
	Device uint8
}

// Client talks to one probe. Each call is a single synchronous round trip;
// a Client must not be shared between goroutines without external locking.
type Client struct {
	bus    *rtu.Client
	closer io.Closer
	log    logr.Logger
	now    func() time.Time
}

type Option func(*Client)

var WithLogger = func(log logr.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithClock sets the time source for reading time stamps and calibration
// times the caller leaves zero.
var WithClock = func(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// Open opens the serial port in cfg and returns a client for the probe on
// it. The address defaults to 1.
func Open(cfg Config, opts ...Option) (*Client, error) {
	c := newClient(opts)
	t, err := rtu.Open(cfg.Serial, rtu.WithLogger(c.log))
	if err != nil {
		return nil, err
	}
	if err := c.attach(t, cfg.Device); err != nil {
		t.Close()
		return nil, err
	}
	c.closer = t
	return c, nil
}

// New returns a client using an existing transport. The transport is not
// closed by Close unless it implements io.Closer.
func New(transport modbus.Transporter, device uint8, opts ...Option) (*Client, error) {
	c := newClient(opts)
	if err := c.attach(transport, device); err != nil {
		return nil, err
	}
	if closer, ok := transport.(io.Closer); ok {
		c.closer = closer
	}
	return c, nil
}

func newClient(opts []Option) *Client {
	c := &Client{log: logr.Discard(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) attach(transport modbus.Transporter, device uint8) error {
	if device == 0 {
		device = 1
	}
	bus, err := rtu.NewClient(device, transport, c.log)
	if err != nil {
		return err
	}
	c.bus = bus
	return nil
}

func (c *Client) Device() uint8 {
	return c.bus.Device()
}

func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// ReadData reads the 24 word input register data block and decodes it.
func (c *Client) ReadData() (Reading, error) {
	regs, err := c.bus.ReadInputRegisters(regData, dataWords)
	if err != nil {
		return Reading{}, fmt.Errorf("odo: read data: %w", err)
	}
	r := Reading{
		Time:         c.now(),
		Device:       c.bus.Device(),
		Registers:    append([]uint16(nil), regs...),
		Measurements: decodeReading(regs),
	}
	c.log.V(1).Info("reading", "device", r.Device, "measurements", r.Measurements)
	return r, nil
}

func (c *Client) DeviceInfo() (DeviceInfo, error) {
	regs, err := c.bus.ReadHoldingRegisters(regDeviceInfo, deviceInfoWords)
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("odo: read device info: %w", err)
	}
	return decodeDeviceInfo(regs), nil
}

// SerialSettings reads the probe's configured baud rate and parity.
func (c *Client) SerialSettings() (SerialSettings, error) {
	regs, err := c.bus.ReadHoldingRegisters(regSerialSettings, 1)
	if err != nil {
		return SerialSettings{}, fmt.Errorf("odo: read serial settings: %w", err)
	}
	parity, baud := regs[0]>>8, regs[0]&0xff
	var s SerialSettings
	for name, code := range parityCodes {
		if code == parity {
			s.Parity = name
		}
	}
	for rate, code := range baudCodes {
		if code == baud {
			s.BaudRate = rate
		}
	}
	if s.Parity == "" || s.BaudRate == 0 {
		return SerialSettings{}, fmt.Errorf("odo: serial settings word %#04x: %w", regs[0], rtu.ErrMalformedFrame)
	}
	return s, nil
}

// SetSerialSettings changes the probe's line settings. They apply to the
// next connection, so the caller must reopen the port to keep talking.
func (c *Client) SetSerialSettings(s SerialSettings) error {
	baud, ok := baudCodes[s.BaudRate]
	if !ok {
		return fmt.Errorf("odo: unsupported baud rate %d: %w", s.BaudRate, rtu.ErrInvalidParameter)
	}
	parity, ok := parityCodes[s.Parity]
	if !ok {
		return fmt.Errorf("odo: unsupported parity %q: %w", s.Parity, rtu.ErrInvalidParameter)
	}
	if err := c.bus.WriteRegister(regSerialSettings, parity<<8|baud); err != nil {
		return fmt.Errorf("odo: write serial settings: %w", err)
	}
	c.log.Info("serial settings changed", "baud", s.BaudRate, "parity", s.Parity)
	return nil
}

func (c *Client) CapSerial() (string, error) {
	regs, err := c.bus.ReadHoldingRegisters(regCapSerial, capSerialWords)
	if err != nil {
		return "", fmt.Errorf("odo: read cap serial: %w", err)
	}
	return decodeString(regs, 10), nil
}

func (c *Client) CapCoefficients() (CapCoefficients, error) {
	regs, err := c.bus.ReadHoldingRegisters(regCapCoefficient, capCoeffWords)
	if err != nil {
		return CapCoefficients{}, fmt.Errorf("odo: read cap coefficients: %w", err)
	}
	return decodeCapCoefficients(regs), nil
}

// SetCapCoefficients writes the constants printed on a replacement cap.
func (c *Client) SetCapCoefficients(cc CapCoefficients) error {
	regs, err := cc.registers()
	if err != nil {
		return err
	}
	if err := c.bus.WriteRegisters(regCapCoefficient, regs); err != nil {
		return fmt.Errorf("odo: write cap coefficients: %w", err)
	}
	return nil
}

func (c *Client) ODOCalibrationStatus() (CalibrationStatus, error) {
	return c.calibrationStatus(regODOStatus)
}

func (c *Client) ConductivityCalibrationStatus() (CalibrationStatus, error) {
	return c.calibrationStatus(regCondStatus)
}

func (c *Client) calibrationStatus(register uint16) (CalibrationStatus, error) {
	regs, err := c.bus.ReadHoldingRegisters(register, statusWords)
	if err != nil {
		return CalibrationStatus{}, fmt.Errorf("odo: read calibration status %#04x: %w", register, err)
	}
	return decodeCalibrationStatus(regs), nil
}

// ODOFactoryReset restores the factory oxygen calibration.
func (c *Client) ODOFactoryReset() error {
	return c.reset("odo", regODOReset)
}

// ConductivityFactoryReset restores the factory conductivity calibration.
func (c *Client) ConductivityFactoryReset() error {
	return c.reset("conductivity", regCondReset)
}

func (c *Client) reset(what string, register uint16) error {
	if err := c.bus.WriteRegister(register, resetValue); err != nil {
		return fmt.Errorf("odo: %s factory reset: %w", what, err)
	}
	c.log.Info("factory reset", "element", what)
	return nil
}

// Calibrate stores a calibration point the caller has already established.
// params are the values the block takes after the time: barometric pressure
// in mmHg for ODOSaturation, mg/L then salinity for ODOConcentration, the
// reference value for the conductivity kinds and none for ODOZero. A zero
// at means now.
func (c *Client) Calibrate(kind CalibrationKind, at time.Time, params ...float32) error {
	cal, ok := calibrations[kind]
	if !ok {
		return fmt.Errorf("odo: calibration kind %d: %w", kind, rtu.ErrInvalidParameter)
	}
	if len(params) != cal.params {
		return fmt.Errorf("odo: %s calibration takes %d values, got %d: %w", cal.name, cal.params, len(params), rtu.ErrInvalidParameter)
	}
	if at.IsZero() {
		at = c.now()
	}
	secs, err := epochSeconds(at)
	if err != nil {
		return err
	}
	regs := encodeUint32(secs)
	for _, p := range params {
		regs = append(regs, encodeFloat(p)...)
	}
	if err := c.bus.WriteRegisters(cal.address, regs); err != nil {
		return fmt.Errorf("odo: %s calibration: %w", cal.name, err)
	}
	c.log.Info("calibrated", "kind", cal.name, "time", at)
	return nil
}

func (c *Client) UserParameter(p UserParameter) (float32, error) {
	if err := checkUserParameter(p); err != nil {
		return 0, err
	}
	regs, err := c.bus.ReadHoldingRegisters(uint16(p), 2)
	if err != nil {
		return 0, fmt.Errorf("odo: read %s: %w", p, err)
	}
	return decodeFloat(regs), nil
}

func (c *Client) SetUserParameter(p UserParameter, v float32) error {
	if err := checkUserParameter(p); err != nil {
		return err
	}
	if err := c.bus.WriteRegisters(uint16(p), encodeFloat(v)); err != nil {
		return fmt.Errorf("odo: write %s: %w", p, err)
	}
	return nil
}

func checkUserParameter(p UserParameter) error {
	switch p {
	case TDSCoefficient, TemperatureReference, TemperatureCoefficient:
		return nil
	}
	return fmt.Errorf("odo: user parameter %#04x: %w", uint16(p), rtu.ErrInvalidParameter)
}
