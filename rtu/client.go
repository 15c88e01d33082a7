package rtu

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/goburrow/modbus"
)

// Client runs register transactions against one device. Reads go through
// BuildRead*/ParseReply; writes use goburrow's modbus.Client on top of a
// Packager so its echo checks apply.
//
// Like Transport, a Client must not be used from several goroutines at once.
type Client struct {
	device    uint8
	transport modbus.Transporter
	writer    modbus.Client
	log       logr.Logger
}

func NewClient(device uint8, transport modbus.Transporter, log logr.Logger) (*Client, error) {
	if err := checkDevice(device); err != nil {
		return nil, err
	}
	return &Client{
		device:    device,
		transport: transport,
		writer:    modbus.NewClient2(&Packager{Device: device}, transport),
		log:       log,
	}, nil
}

func (c *Client) Device() uint8 {
	return c.device
}

func (c *Client) ReadHoldingRegisters(register, count uint16) ([]uint16, error) {
	req, err := BuildReadRequest(c.device, register, count)
	if err != nil {
		return nil, err
	}
	return c.read(req)
}

func (c *Client) ReadInputRegisters(register, count uint16) ([]uint16, error) {
	req, err := BuildReadInputRequest(c.device, register, count)
	if err != nil {
		return nil, err
	}
	return c.read(req)
}

func (c *Client) read(req RequestFrame) ([]uint16, error) {
	raw, err := c.transport.Send(req)
	if err != nil {
		return nil, err
	}
	resp, err := ParseReply(req, raw)
	if err != nil {
		c.log.V(1).Info("bad reply", "device", c.device, "error", err.Error())
		return nil, err
	}
	return resp.Registers, nil
}

// WriteRegister writes a single holding register (0x06).
func (c *Client) WriteRegister(register, value uint16) error {
	if _, err := c.writer.WriteSingleRegister(register, value); err != nil {
		return fmt.Errorf("rtu: write register %#04x: %w", register, err)
	}
	return nil
}

// WriteRegisters writes consecutive holding registers (0x10).
func (c *Client) WriteRegisters(register uint16, values []uint16) error {
	if len(values) < 1 || len(values) > MaxWriteCount {
		return fmt.Errorf("rtu: %d registers outside 1..%d: %w", len(values), MaxWriteCount, ErrInvalidParameter)
	}
	data := make([]byte, 2*len(values))
	for i, v := range values {
		data[2*i] = byte(v >> 8)
		data[2*i+1] = byte(v)
	}
	if _, err := c.writer.WriteMultipleRegisters(register, uint16(len(values)), data); err != nil {
		return fmt.Errorf("rtu: write registers %#04x+%d: %w", register, len(values), err)
	}
	return nil
}
