package odo

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/goburrow/modbus"
	"github.com/zathras777/ysiodo/internal/sim"
	"github.com/zathras777/ysiodo/rtu"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newSimClient(t *testing.T) (*Client, *sim.Device) {
	t.Helper()
	dev := sim.New(1, sim.WithBootTime(fixedNow.Add(-time.Hour)))
	transport := rtu.NewTransport(dev, rtu.Config{BaudRate: 115200, Timeout: 100 * time.Millisecond})
	c, err := New(transport, 1, WithClock(func() time.Time { return fixedNow }))
	assert.NoError(t, err)
	return c, dev
}

func TestReadData(t *testing.T) {
	c, dev := newSimClient(t)
	dev.SetFloat(true, 8, 21.5)

	r, err := c.ReadData()
	assert.NoError(t, err)
	assert.Equal(t, fixedNow, r.Time)
	assert.Equal(t, uint8(1), r.Device)
	assert.Equal(t, dataWords, len(r.Registers))
	assert.Equal(t, len(dataFields), len(r.Measurements))

	temp, ok := r.Value("temperature")
	assert.True(t, ok)
	assert.Equal(t, 21.5, temp)
	assert.Equal(t, "°C", r.Measurements[3].Unit)

	sat, _ := r.Value("odo_saturation")
	assert.Equal(t, float64(float32(98.6)), sat)

	boot, _ := r.Value("time_since_boot")
	assert.True(t, boot >= 3600)

	_, ok = r.Value("reserved")
	assert.False(t, ok)
}

func TestReadDataFloatValues(t *testing.T) {
	c, dev := newSimClient(t)
	for _, want := range floatValues {
		dev.SetFloat(true, 18, want)
		r, err := c.ReadData()
		assert.NoError(t, err)
		got, ok := r.Value("salinity")
		assert.True(t, ok)
		if math.IsNaN(float64(want)) {
			assert.True(t, math.IsNaN(got), "NaN read as %v", got)
			continue
		}
		assert.Equal(t, float64(want), got)
	}

	dev.SetFloat(true, 0, 0)
	r, err := c.ReadData()
	assert.NoError(t, err)
	sat, _ := r.Value("odo_saturation")
	assert.Equal(t, 0.0, sat)
}

func TestReadDataCopiesRegisters(t *testing.T) {
	c, _ := newSimClient(t)
	r, err := c.ReadData()
	assert.NoError(t, err)
	first := r.Registers[0]
	r2, err := c.ReadData()
	assert.NoError(t, err)
	r2.Registers[0] ^= 0xffff
	assert.Equal(t, first, r.Registers[0])
}

func TestReadDataNoReply(t *testing.T) {
	c, dev := newSimClient(t)
	dev.SetSilent(true)
	_, err := c.ReadData()
	assert.True(t, errors.Is(err, rtu.ErrTimeout))
	assert.True(t, rtu.Retryable(err))
}

func TestWrongDeviceAddress(t *testing.T) {
	dev := sim.New(5)
	transport := rtu.NewTransport(dev, rtu.Config{BaudRate: 115200, Timeout: 50 * time.Millisecond})
	c, err := New(transport, 1)
	assert.NoError(t, err)
	_, err = c.ReadData()
	assert.True(t, errors.Is(err, rtu.ErrTimeout))
}

func TestNewDefaultsAddress(t *testing.T) {
	transport := rtu.NewTransport(sim.New(1), rtu.Config{})
	c, err := New(transport, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint8(1), c.Device())
	_, err = New(transport, 248)
	assert.True(t, errors.Is(err, rtu.ErrInvalidParameter))
}

func TestDeviceInfo(t *testing.T) {
	c, _ := newSimClient(t)
	info, err := c.DeviceInfo()
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x6d01), info.ProductID)
	assert.Equal(t, "1.4.2", info.Firmware())
	assert.Equal(t, "21K100547", info.SerialNumber)
	assert.Equal(t, "PCB03311", info.PCBSerialNumber)
}

func TestSerialSettings(t *testing.T) {
	c, dev := newSimClient(t)
	s, err := c.SerialSettings()
	assert.NoError(t, err)
	assert.Equal(t, SerialSettings{BaudRate: 9600, Parity: "even"}, s)
	assert.Equal(t, "E", s.RTUParity())

	assert.NoError(t, c.SetSerialSettings(SerialSettings{BaudRate: 38400, Parity: "none"}))
	assert.Equal(t, uint16(0x0002), dev.HoldingRegister(regSerialSettings))

	err = c.SetSerialSettings(SerialSettings{BaudRate: 4800, Parity: "none"})
	assert.True(t, errors.Is(err, rtu.ErrInvalidParameter))
	err = c.SetSerialSettings(SerialSettings{BaudRate: 9600, Parity: "mark"})
	assert.True(t, errors.Is(err, rtu.ErrInvalidParameter))
}

func TestSerialSettingsUnknownCode(t *testing.T) {
	c, dev := newSimClient(t)
	dev.SetUint32(false, 0x0000, 0x00000907)
	_, err := c.SerialSettings()
	assert.True(t, errors.Is(err, rtu.ErrMalformedFrame))
}

func TestCapSerialAndCoefficients(t *testing.T) {
	c, dev := newSimClient(t)
	serial, err := c.CapSerial()
	assert.NoError(t, err)
	assert.Equal(t, "22H104121", serial)

	cc, err := c.CapCoefficients()
	assert.NoError(t, err)
	assert.Equal(t, float32(1.1412), cc.K[0])
	assert.Equal(t, uint16(3), cc.KC)
	assert.Equal(t, time.Unix(1704067200, 0).UTC(), cc.ReplacementTime)

	cc.K[6] = -0.5
	cc.KC = 7
	cc.ReplacementTime = fixedNow
	assert.NoError(t, c.SetCapCoefficients(cc))
	assert.Equal(t, uint16(7), dev.HoldingRegister(0x010e))

	got, err := c.CapCoefficients()
	assert.NoError(t, err)
	assert.Equal(t, cc, got)
}

func TestFactoryReset(t *testing.T) {
	c, dev := newSimClient(t)
	before, err := c.ODOCalibrationStatus()
	assert.NoError(t, err)
	assert.False(t, before.Time.IsZero())

	assert.NoError(t, c.ODOFactoryReset())
	after, err := c.ODOCalibrationStatus()
	assert.NoError(t, err)
	assert.True(t, after.Time.IsZero())

	cond, err := c.ConductivityCalibrationStatus()
	assert.NoError(t, err)
	assert.Equal(t, uint16(97), cond.QCScore)
	assert.NoError(t, c.ConductivityFactoryReset())
	assert.Equal(t, uint16(0), dev.HoldingRegister(regCondStatus+2))
}

func TestCalibrate(t *testing.T) {
	c, dev := newSimClient(t)
	at := time.Date(2024, 5, 30, 8, 0, 0, 0, time.UTC)
	assert.NoError(t, c.Calibrate(ODOSaturation, at, 760))

	status, err := c.ODOCalibrationStatus()
	assert.NoError(t, err)
	assert.Equal(t, at, status.Time)
	assert.Equal(t, uint16(100), status.QCScore)
	bits := uint32(dev.HoldingRegister(0x0232))<<16 | uint32(dev.HoldingRegister(0x0233))
	assert.Equal(t, float32(760), math.Float32frombits(bits))

	assert.NoError(t, c.Calibrate(SpecificConductance, time.Time{}, 1413))
	status, err = c.ConductivityCalibrationStatus()
	assert.NoError(t, err)
	assert.Equal(t, fixedNow, status.Time)
}

func TestCalibrateRejectsBadArguments(t *testing.T) {
	c, dev := newSimClient(t)
	served := dev.Served()
	cases := []struct {
		kind   CalibrationKind
		params []float32
	}{
		{ODOZero, []float32{1}},
		{ODOConcentration, []float32{8.2}},
		{Conductivity, nil},
		{CalibrationKind(42), nil},
	}
	for _, tc := range cases {
		err := c.Calibrate(tc.kind, fixedNow, tc.params...)
		assert.True(t, errors.Is(err, rtu.ErrInvalidParameter), "%s: %v", tc.kind, err)
	}
	err := c.Calibrate(ODOZero, time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.Is(err, rtu.ErrInvalidParameter))
	assert.Equal(t, served, dev.Served())
}

func TestUserParameters(t *testing.T) {
	c, _ := newSimClient(t)
	v, err := c.UserParameter(TemperatureReference)
	assert.NoError(t, err)
	assert.Equal(t, float32(25), v)

	assert.NoError(t, c.SetUserParameter(TDSCoefficient, 0.7))
	v, err = c.UserParameter(TDSCoefficient)
	assert.NoError(t, err)
	assert.Equal(t, float32(0.7), v)

	_, err = c.UserParameter(UserParameter(0x0506))
	assert.True(t, errors.Is(err, rtu.ErrInvalidParameter))
}

func TestDeviceException(t *testing.T) {
	c, _ := newSimClient(t)
	// 0x0300 only accepts 1; the simulator answers anything else with
	// illegal data value.
	err := c.bus.WriteRegister(regCondReset, 2)
	var mErr *modbus.ModbusError
	assert.True(t, errors.As(err, &mErr))
	assert.Equal(t, byte(modbus.ExceptionCodeIllegalDataValue), mErr.ExceptionCode)
	assert.False(t, rtu.Retryable(err))
}
