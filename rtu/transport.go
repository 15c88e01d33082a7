package rtu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/goburrow/modbus"
	"github.com/goburrow/serial"
)

const DefaultTimeout = 3 * time.Second

// Config holds the serial line settings. The caller chooses the port.
type Config struct {
	Address  string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
	Timeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaudRate == 0 {
		c.BaudRate = 9600
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	if c.Parity == "" {
		c.Parity = "E"
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c
}

// Option configures a Transport.
type Option func(*Transport)

// WithLogger sets the logger used for frame tracing.
var WithLogger = func(log logr.Logger) Option {
	return func(t *Transport) {
		t.log = log
	}
}

// Transport exchanges frames over a serial line and satisfies
// modbus.Transporter.
//
// A Transport is not safe for concurrent use: one request may be in flight
// per port, and callers sharing a port must serialise access themselves.
type Transport struct {
	port     io.ReadWriter
	timeout  time.Duration
	frameGap time.Duration
	log      logr.Logger

	lastActivity time.Time
}

// Open opens the serial port described by cfg.
func Open(cfg Config, opts ...Option) (*Transport, error) {
	cfg = cfg.withDefaults()
	if cfg.Address == "" {
		return nil, fmt.Errorf("rtu: serial address required: %w", ErrInvalidParameter)
	}
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Address,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("rtu: open %s: %v: %w", cfg.Address, err, ErrTransport)
	}
	return NewTransport(port, cfg, opts...), nil
}

// NewTransport wraps an already open port. Only the baud rate and timeout of
// cfg are used.
func NewTransport(port io.ReadWriter, cfg Config, opts ...Option) *Transport {
	cfg = cfg.withDefaults()
	t := &Transport{
		port:     port,
		timeout:  cfg.Timeout,
		frameGap: frameDelay(cfg.BaudRate),
		log:      logr.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Close closes the port if it can be closed.
func (t *Transport) Close() error {
	if c, ok := t.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// frameDelay is the 3.5 character silence separating RTU frames, with 11 bit
// characters. Above 19200 baud the fixed 1750µs applies.
func frameDelay(baud int) time.Duration {
	if baud <= 0 || baud > 19200 {
		return 1750 * time.Microsecond
	}
	return time.Duration(38500000/baud) * time.Microsecond
}

// replySize returns the length of a normal reply to req.
func replySize(req []byte) (int, error) {
	if len(req) < 4 {
		return 0, fmt.Errorf("rtu: request of %d bytes: %w", len(req), ErrInvalidParameter)
	}
	switch req[1] {
	case modbus.FuncCodeReadHoldingRegisters, modbus.FuncCodeReadInputRegisters:
		if len(req) != 8 {
			return 0, fmt.Errorf("rtu: read request of %d bytes: %w", len(req), ErrInvalidParameter)
		}
		return 5 + 2*int(binary.BigEndian.Uint16(req[4:6])), nil
	case modbus.FuncCodeWriteSingleRegister, modbus.FuncCodeWriteMultipleRegisters:
		return writeReplySize, nil
	}
	return 0, fmt.Errorf("rtu: unsupported function %#02x: %w", req[1], ErrInvalidParameter)
}

// Send writes aduRequest and reads the reply. It returns ErrTimeout when no
// byte arrived within the timeout and ErrMalformedFrame for a truncated reply.
func (t *Transport) Send(aduRequest []byte) ([]byte, error) {
	want, err := replySize(aduRequest)
	if err != nil {
		return nil, err
	}
	if wait := t.frameGap - time.Since(t.lastActivity); wait > 0 {
		time.Sleep(wait)
	}
	defer func() { t.lastActivity = time.Now() }()

	t.log.V(1).Info("tx", "frame", fmt.Sprintf("% x", aduRequest))
	if _, err := t.port.Write(aduRequest); err != nil {
		return nil, fmt.Errorf("rtu: write: %v: %w", err, ErrTransport)
	}
	resp, err := t.readReply(want)
	if err != nil {
		return nil, err
	}
	t.log.V(1).Info("rx", "frame", fmt.Sprintf("% x", resp))
	return resp, nil
}

func (t *Transport) readReply(want int) ([]byte, error) {
	buf := make([]byte, maxFrameSize)
	n := 0
	deadline := time.Now().Add(t.timeout)
	for n < want && time.Now().Before(deadline) {
		m, err := t.port.Read(buf[n:])
		n += m
		if n >= 2 && buf[1]&0x80 != 0 {
			want = exceptionFrameSize
		}
		switch {
		case err == nil:
			if m == 0 {
				time.Sleep(time.Millisecond)
			}
		case errors.Is(err, serial.ErrTimeout), errors.Is(err, os.ErrDeadlineExceeded):
		default:
			return nil, fmt.Errorf("rtu: read: %v: %w", err, ErrTransport)
		}
	}
	switch {
	case n == 0:
		return nil, fmt.Errorf("rtu: no reply within %v: %w", t.timeout, ErrTimeout)
	case n < want:
		return nil, fmt.Errorf("rtu: reply truncated at %d of %d bytes: %w", n, want, ErrMalformedFrame)
	}
	return buf[:n], nil
}
