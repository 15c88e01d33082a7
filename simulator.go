package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/goburrow/modbus"
	"github.com/goburrow/serial"
	"github.com/zathras777/ysiodo/internal/sim"
)

const requestMinSz = 8

// runSimulator answers requests on the simulator serial port with a
// simulated probe until ctx is done.
func runSimulator(ctx context.Context, cfg serialData, log logr.Logger) error {
	address, err := resolveDevicename(cfg.Devicename, newUSBScanner())
	if err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	rtuConfig := cfg.rtuConfig(address)
	port, err := serial.Open(&serial.Config{
		Address:  rtuConfig.Address,
		BaudRate: rtuConfig.BaudRate,
		DataBits: rtuConfig.DataBits,
		StopBits: rtuConfig.StopBits,
		Parity:   rtuConfig.Parity,
		Timeout:  time.Second,
	})
	if err != nil {
		return fmt.Errorf("simulator: failed to open %s: %w", rtuConfig.Address, err)
	}
	defer port.Close()

	dev := sim.New(cfg.DeviceID, sim.WithLogger(log))
	log.Info("simulator listening", "port", rtuConfig.Address, "device", cfg.DeviceID)
	return serveSimulator(ctx, port, dev, log)
}

type frameBuffer struct {
	buf bytes.Buffer
}

// next removes and returns the next complete request, or nil when more bytes
// are needed. Unknown function codes discard the buffer.
func (fb *frameBuffer) next() ([]byte, error) {
	b := fb.buf.Bytes()
	if len(b) < requestMinSz {
		return nil, nil
	}
	size := requestMinSz
	switch b[1] {
	case modbus.FuncCodeReadHoldingRegisters, modbus.FuncCodeReadInputRegisters, modbus.FuncCodeWriteSingleRegister:
	case modbus.FuncCodeWriteMultipleRegisters:
		size = 9 + int(b[6])
	default:
		fb.buf.Reset()
		return nil, fmt.Errorf("unsupported function %#02x", b[1])
	}
	if len(b) < size {
		return nil, nil
	}
	return append([]byte(nil), fb.buf.Next(size)...), nil
}

func serveSimulator(ctx context.Context, port io.ReadWriter, dev *sim.Device, log logr.Logger) error {
	fb := frameBuffer{}
	tmpBuf := make([]byte, 64)

	for ctx.Err() == nil {
		n, err := port.Read(tmpBuf)
		switch {
		case errors.Is(err, serial.ErrTimeout):
			// a silent line ends any partial frame
			fb.buf.Reset()
			continue
		case errors.Is(err, io.EOF):
			log.Info("simulator port closed")
			return nil
		case err != nil:
			return fmt.Errorf("simulator: %w", err)
		}
		fb.buf.Write(tmpBuf[:n])

		for {
			frame, err := fb.next()
			if err != nil {
				log.Info("bad serial frame", "error", err.Error())
				break
			}
			if frame == nil {
				break
			}
			reply := dev.Handle(frame)
			if reply == nil {
				continue
			}
			if _, err := port.Write(reply); err != nil {
				return fmt.Errorf("simulator: %w", err)
			}
		}
	}
	return nil
}
