// Package sim is an in-memory YSI ODO RTU probe. It answers Modbus RTU
// request frames from an mbserver register image and can stand in for the
// serial port in tests.
package sim

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/goburrow/modbus"
	"github.com/goburrow/serial"
	"github.com/tbrandon/mbserver"
)

type handler func(*mbserver.Server, mbserver.Framer) ([]byte, *mbserver.Exception)

// Device is a simulated probe answering on a single address.
//
// Write and Read make it usable as the port behind an rtu.Transport: every
// complete request written produces the reply the next Read returns.
type Device struct {
	id   uint8
	srv  *mbserver.Server
	log  logr.Logger
	boot time.Time

	handlers map[uint8]handler

	mu      sync.Mutex
	pending bytes.Buffer
	silent  bool
	served  int
}

// Option configures a Device.
type Option func(*Device)

var WithLogger = func(log logr.Logger) Option {
	return func(d *Device) {
		d.log = log
	}
}

// WithBootTime sets the instant time_since_boot counts from.
var WithBootTime = func(t time.Time) Option {
	return func(d *Device) {
		d.boot = t
	}
}

// New returns a probe at address id seeded with plausible values.
func New(id uint8, opts ...Option) *Device {
	d := &Device{
		id:   id,
		srv:  mbserver.NewServer(),
		log:  logr.Discard(),
		boot: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.handlers = map[uint8]handler{
		modbus.FuncCodeReadHoldingRegisters:   mbserver.ReadHoldingRegisters,
		modbus.FuncCodeReadInputRegisters:     d.readInputRegisters,
		modbus.FuncCodeWriteSingleRegister:    d.writeRegister,
		modbus.FuncCodeWriteMultipleRegisters: d.writeRegisters,
	}
	d.seed()
	return d
}

func (d *Device) ID() uint8 {
	return d.id
}

// Served returns the number of requests answered.
func (d *Device) Served() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.served
}

// SetSilent makes the device drop every request, as an unplugged probe would.
func (d *Device) SetSilent(silent bool) {
	d.mu.Lock()
	d.silent = silent
	d.mu.Unlock()
}

// Handle answers one request frame. Frames with a bad CRC, for another
// address or with an unsupported function code get no reply.
func (d *Device) Handle(adu []byte) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.silent {
		return nil
	}
	frame, err := mbserver.NewRTUFrame(adu)
	if err != nil {
		d.log.V(1).Info("dropping frame", "frame", adu, "error", err.Error())
		return nil
	}
	if frame.Address != d.id {
		return nil
	}
	h, ok := d.handlers[frame.GetFunction()]
	if !ok {
		frame.SetException(&mbserver.IllegalFunction)
		return frame.Bytes()
	}
	if n := len(frame.GetData()); n < 4 || frame.GetFunction() == modbus.FuncCodeWriteMultipleRegisters && n < 5 {
		frame.SetException(&mbserver.IllegalDataValue)
		return frame.Bytes()
	}
	data, exc := h(d.srv, frame)
	if exc != &mbserver.Success {
		frame.SetException(exc)
	} else {
		frame.SetData(data)
	}
	d.served++
	return frame.Bytes()
}

func (d *Device) Write(p []byte) (int, error) {
	if reply := d.Handle(p); reply != nil {
		d.mu.Lock()
		d.pending.Write(reply)
		d.mu.Unlock()
	}
	return len(p), nil
}

// Read returns pending reply bytes, or serial.ErrTimeout after a short wait
// when there are none.
func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending.Len() == 0 {
		time.Sleep(time.Millisecond)
		return 0, serial.ErrTimeout
	}
	return d.pending.Read(p)
}

// HoldingRegister returns the current value of a holding register.
func (d *Device) HoldingRegister(address uint16) uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.srv.HoldingRegisters[address]
}

// SetFloat stores v at an input (input true) or holding register pair.
func (d *Device) SetFloat(input bool, address uint16, v float32) {
	d.setUint32(input, address, math.Float32bits(v))
}

func (d *Device) SetUint32(input bool, address uint16, v uint32) {
	d.setUint32(input, address, v)
}

func (d *Device) setUint32(input bool, address uint16, v uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	regs := d.srv.HoldingRegisters
	if input {
		regs = d.srv.InputRegisters
	}
	putUint32(regs, address, v)
}

func putUint32(regs []uint16, address uint16, v uint32) {
	regs[address] = uint16(v >> 16)
	regs[address+1] = uint16(v)
}

func putFloat(regs []uint16, address uint16, v float32) {
	putUint32(regs, address, math.Float32bits(v))
}

func putString(regs []uint16, address uint16, s string, words int) {
	b := make([]byte, 2*words)
	copy(b, s)
	for i := 0; i < words; i++ {
		regs[int(address)+i] = binary.BigEndian.Uint16(b[2*i:])
	}
}

func registerAndValue(frame mbserver.Framer) (uint16, uint16) {
	data := frame.GetData()
	return binary.BigEndian.Uint16(data[0:2]), binary.BigEndian.Uint16(data[2:4])
}
