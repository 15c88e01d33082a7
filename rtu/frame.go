package rtu

import (
	"encoding/binary"
	"fmt"

	"github.com/goburrow/modbus"
)

const (
	MinDevice = 1
	MaxDevice = 247

	// MaxReadCount keeps the reply byte count within a single byte.
	MaxReadCount = 125
	// MaxWriteCount is the limit for write multiple registers (0x10).
	MaxWriteCount = 123

	minFrameSize       = 5
	maxFrameSize       = 256
	exceptionFrameSize = 5
	writeReplySize     = 8
)

// RequestFrame is a complete RTU request: address, function code, data and CRC.
type RequestFrame []byte

func (f RequestFrame) Device() uint8 {
	return f[0]
}

func (f RequestFrame) Function() byte {
	return f[1]
}

// Count returns the register quantity of a read request, zero otherwise.
func (f RequestFrame) Count() uint16 {
	switch f.Function() {
	case modbus.FuncCodeReadHoldingRegisters, modbus.FuncCodeReadInputRegisters:
		return binary.BigEndian.Uint16(f[4:6])
	}
	return 0
}

// Response is a validated read reply.
type Response struct {
	Device    uint8
	Function  byte
	Registers []uint16
}

// BuildReadRequest builds a read holding registers (0x03) request.
func BuildReadRequest(device uint8, register, count uint16) (RequestFrame, error) {
	return buildRead(modbus.FuncCodeReadHoldingRegisters, device, register, count)
}

// BuildReadInputRequest builds a read input registers (0x04) request.
func BuildReadInputRequest(device uint8, register, count uint16) (RequestFrame, error) {
	return buildRead(modbus.FuncCodeReadInputRegisters, device, register, count)
}

func buildRead(fc byte, device uint8, register, count uint16) (RequestFrame, error) {
	if err := checkDevice(device); err != nil {
		return nil, err
	}
	if count < 1 || count > MaxReadCount {
		return nil, fmt.Errorf("rtu: register count %d outside 1..%d: %w", count, MaxReadCount, ErrInvalidParameter)
	}
	if uint32(register)+uint32(count) > 0x10000 {
		return nil, fmt.Errorf("rtu: registers %#04x+%d run past 0xffff: %w", register, count, ErrInvalidParameter)
	}
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], register)
	binary.BigEndian.PutUint16(data[2:4], count)
	return assemble(device, fc, data), nil
}

func assemble(device uint8, fc byte, data []byte) RequestFrame {
	frame := make([]byte, 0, len(data)+4)
	frame = append(frame, device, fc)
	frame = append(frame, data...)
	return RequestFrame(AppendCRC(frame))
}

func checkDevice(device uint8) error {
	if device < MinDevice || device > MaxDevice {
		return fmt.Errorf("rtu: device address %d outside %d..%d: %w", device, MinDevice, MaxDevice, ErrInvalidParameter)
	}
	return nil
}

// ParseResponse validates a read reply (0x03 or 0x04) from device carrying
// count registers. The CRC is checked before anything else in the frame is
// looked at. Exception replies are returned as *modbus.ModbusError.
func ParseResponse(raw []byte, device uint8, count uint16) (*Response, error) {
	if count < 1 || count > MaxReadCount {
		return nil, fmt.Errorf("rtu: register count %d outside 1..%d: %w", count, MaxReadCount, ErrInvalidParameter)
	}
	return parseRead(raw, device, 0, count)
}

// ParseReply validates raw as the reply to the read request req.
func ParseReply(req RequestFrame, raw []byte) (*Response, error) {
	if len(req) < 8 || req.Count() == 0 {
		return nil, fmt.Errorf("rtu: not a read request: %w", ErrInvalidParameter)
	}
	return parseRead(raw, req.Device(), req.Function(), req.Count())
}

// verify runs the checks shared by every reply: size, CRC, then address.
func verify(raw []byte, device uint8) error {
	if len(raw) < minFrameSize || len(raw) > maxFrameSize {
		return fmt.Errorf("rtu: frame length %d outside %d..%d: %w", len(raw), minFrameSize, maxFrameSize, ErrMalformedFrame)
	}
	if !CheckCRC(raw) {
		got, want := frameCRC(raw)
		return fmt.Errorf("rtu: got crc %#04x, computed %#04x: %w", got, want, ErrChecksum)
	}
	if raw[0] != device {
		return fmt.Errorf("rtu: reply from device %d, expected %d: %w", raw[0], device, ErrDeviceMismatch)
	}
	return nil
}

func exception(raw []byte) error {
	if len(raw) != exceptionFrameSize {
		return fmt.Errorf("rtu: exception frame of %d bytes: %w", len(raw), ErrMalformedFrame)
	}
	return &modbus.ModbusError{FunctionCode: raw[1], ExceptionCode: raw[2]}
}

// parseRead treats fc == 0 as "either read function".
func parseRead(raw []byte, device uint8, fc byte, count uint16) (*Response, error) {
	if err := verify(raw, device); err != nil {
		return nil, err
	}
	got := raw[1]
	if got&0x80 != 0 {
		if fc != 0 && got&0x7f != fc {
			return nil, fmt.Errorf("rtu: exception for function %#02x, expected %#02x: %w", got&0x7f, fc, ErrMalformedFrame)
		}
		return nil, exception(raw)
	}
	switch {
	case fc == 0 && got != modbus.FuncCodeReadHoldingRegisters && got != modbus.FuncCodeReadInputRegisters:
		return nil, fmt.Errorf("rtu: function %#02x is not a register read: %w", got, ErrMalformedFrame)
	case fc != 0 && got != fc:
		return nil, fmt.Errorf("rtu: function %#02x, expected %#02x: %w", got, fc, ErrMalformedFrame)
	}
	byteCount := int(raw[2])
	if byteCount != 2*int(count) {
		return nil, fmt.Errorf("rtu: byte count %d, expected %d: %w", byteCount, 2*int(count), ErrMalformedFrame)
	}
	if len(raw) != 5+byteCount {
		return nil, fmt.Errorf("rtu: frame length %d does not match byte count %d: %w", len(raw), byteCount, ErrMalformedFrame)
	}
	regs := make([]uint16, count)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(raw[3+2*i:])
	}
	return &Response{Device: raw[0], Function: got, Registers: regs}, nil
}
