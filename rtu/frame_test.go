package rtu

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goburrow/modbus"
)

func TestBuildReadRequestLayout(t *testing.T) {
	frame, err := BuildReadRequest(1, 0x000E, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{1, 3, 0, 14, 0, 1, 229, 201}
	if !bytes.Equal(frame, want) {
		t.Fatalf("got % x, want % x", frame, want)
	}
	if frame.Device() != 1 || frame.Function() != 3 || frame.Count() != 1 {
		t.Fatalf("accessors: device=%d function=%d count=%d", frame.Device(), frame.Function(), frame.Count())
	}
}

func TestBuildReadRequestInvalid(t *testing.T) {
	cases := []struct {
		name     string
		device   uint8
		register uint16
		count    uint16
	}{
		{"broadcast address", 0, 0, 1},
		{"reserved address", 248, 0, 1},
		{"max address", 255, 0, 1},
		{"zero count", 1, 0, 0},
		{"count too large", 1, 0, MaxReadCount + 1},
		{"past end of map", 1, 0xffff, 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := BuildReadRequest(c.device, c.register, c.count)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("got %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestParseResponseTwoRegisters(t *testing.T) {
	raw := []byte{0x01, 0x03, 0x04, 0x00, 0xC8, 0x01, 0x2C, 0x7B, 0x80}
	resp, err := ParseResponse(raw, 1, 2)
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	if resp.Device != 1 || resp.Function != 3 {
		t.Fatalf("unexpected header %+v", resp)
	}
	if len(resp.Registers) != 2 || resp.Registers[0] != 200 || resp.Registers[1] != 300 {
		t.Fatalf("registers = %v, want [200 300]", resp.Registers)
	}
}

func TestParseResponseFlippedDataBit(t *testing.T) {
	good := []byte{0x01, 0x03, 0x04, 0x00, 0xC8, 0x01, 0x2C, 0x7B, 0x80}
	for i := 3; i < 7; i++ {
		for bit := 0; bit < 8; bit++ {
			raw := append([]byte(nil), good...)
			raw[i] ^= 1 << bit
			if _, err := ParseResponse(raw, 1, 2); !errors.Is(err, ErrChecksum) {
				t.Fatalf("byte %d bit %d: got %v, want ErrChecksum", i, bit, err)
			}
		}
	}
}

func TestParseResponseDeviceMismatch(t *testing.T) {
	raw := []byte{0x02, 0x03, 0x04, 0x00, 0xC8, 0x01, 0x2C, 0x48, 0x80}
	if _, err := ParseResponse(raw, 1, 2); !errors.Is(err, ErrDeviceMismatch) {
		t.Fatalf("got %v, want ErrDeviceMismatch", err)
	}
}

func TestParseResponseMalformed(t *testing.T) {
	cases := []struct {
		name  string
		frame []byte
		count uint16
	}{
		{"too short", []byte{0x01, 0x03, 0x00}, 1},
		{"write function", AppendCRC([]byte{0x01, 0x06, 0x00, 0x01, 0x00, 0x02}), 1},
		{"byte count disagrees with request", AppendCRC([]byte{0x01, 0x03, 0x02, 0x00, 0xC8}), 2},
		{"byte count disagrees with length", AppendCRC([]byte{0x01, 0x03, 0x04, 0x00, 0xC8}), 2},
		{"odd exception size", AppendCRC([]byte{0x01, 0x83, 0x02, 0x00}), 2},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := ParseResponse(c.frame, 1, c.count); !errors.Is(err, ErrMalformedFrame) {
				t.Fatalf("got %v, want ErrMalformedFrame", err)
			}
		})
	}
}

func TestParseResponseException(t *testing.T) {
	raw := []byte{0x01, 0x83, 0x02, 0xC0, 0xF1}
	_, err := ParseResponse(raw, 1, 2)
	var mErr *modbus.ModbusError
	if !errors.As(err, &mErr) {
		t.Fatalf("got %v, want *modbus.ModbusError", err)
	}
	if mErr.ExceptionCode != modbus.ExceptionCodeIllegalDataAddress {
		t.Fatalf("exception code %d", mErr.ExceptionCode)
	}
	if Retryable(err) {
		t.Fatal("illegal data address must not be retryable")
	}
}

func TestParseReplyChecksFunction(t *testing.T) {
	req, err := BuildReadInputRequest(1, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	holding := []byte{0x01, 0x03, 0x04, 0x00, 0xC8, 0x01, 0x2C, 0x7B, 0x80}
	if _, err := ParseReply(req, holding); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("got %v, want ErrMalformedFrame", err)
	}
	input := AppendCRC([]byte{0x01, 0x04, 0x04, 0x00, 0xC8, 0x01, 0x2C})
	resp, err := ParseReply(req, input)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Function != 4 || resp.Registers[1] != 300 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrTimeout, true},
		{ErrChecksum, true},
		{ErrDeviceMismatch, true},
		{ErrMalformedFrame, true},
		{ErrInvalidParameter, false},
		{ErrTransport, false},
		{&modbus.ModbusError{FunctionCode: 0x83, ExceptionCode: modbus.ExceptionCodeServerDeviceBusy}, true},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Errorf("Retryable(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestParseResponseCountOutOfRange(t *testing.T) {
	empty := AppendCRC([]byte{0x01, 0x03, 0x00})
	for _, count := range []uint16{0, MaxReadCount + 1} {
		if _, err := ParseResponse(empty, 1, count); !errors.Is(err, ErrInvalidParameter) {
			t.Fatalf("count %d: got %v, want ErrInvalidParameter", count, err)
		}
	}
}

func TestParseReplyExceptionForOtherFunction(t *testing.T) {
	req, err := BuildReadRequest(1, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	other := AppendCRC([]byte{0x01, 0x84, 0x02})
	if _, err := ParseReply(req, other); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("got %v, want ErrMalformedFrame", err)
	}
	own := AppendCRC([]byte{0x01, 0x83, 0x02})
	var mErr *modbus.ModbusError
	if _, err := ParseReply(req, own); !errors.As(err, &mErr) {
		t.Fatalf("got %v, want *modbus.ModbusError", err)
	}
}
