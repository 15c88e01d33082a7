package odo

import (
	"fmt"
	"math"
	"time"

	"github.com/zathras777/ysiodo/rtu"
)

type Measurement struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

func (m Measurement) String() string {
	return fmt.Sprintf("%s=%.02f%s", m.Name, m.Value, m.Unit)
}

// Reading is one decoded pass over the data block. Registers holds the raw
// words the measurements were decoded from.
type Reading struct {
	Time         time.Time     `json:"time"`
	Device       uint8         `json:"device"`
	Registers    []uint16      `json:"registers"`
	Measurements []Measurement `json:"measurements"`
}

// Value returns the measurement called name.
func (r Reading) Value(name string) (float64, bool) {
	for _, m := range r.Measurements {
		if m.Name == name {
			return m.Value, true
		}
	}
	return 0, false
}

func decodeReading(regs []uint16) []Measurement {
	out := make([]Measurement, 0, len(dataFields))
	for _, f := range dataFields {
		m := Measurement{Name: f.name, Unit: f.unit}
		switch f.typ {
		case ieee32:
			m.Value = float64(decodeFloat(regs[f.offset:]))
		case uint32BE:
			m.Value = float64(decodeUint32(regs[f.offset:]))
		}
		out = append(out, m)
	}
	return out
}

type DeviceInfo struct {
	ProductID        uint16 `json:"product_id"`
	ModelID          uint16 `json:"model_id"`
	SubmodelID       uint16 `json:"submodel_id"`
	FirmwareMajor    uint16 `json:"firmware_major"`
	FirmwareMinor    uint16 `json:"firmware_minor"`
	FirmwareSubminor uint16 `json:"firmware_subminor"`
	HardwareMajor    uint16 `json:"hardware_major"`
	HardwareMinor    uint16 `json:"hardware_minor"`
	SerialNumber     string `json:"serial_number"`
	PCBSerialNumber  string `json:"pcb_serial_number"`
}

func (i DeviceInfo) Firmware() string {
	return fmt.Sprintf("%d.%d.%d", i.FirmwareMajor, i.FirmwareMinor, i.FirmwareSubminor)
}

func decodeDeviceInfo(regs []uint16) DeviceInfo {
	return DeviceInfo{
		ProductID:        regs[0],
		ModelID:          regs[1],
		SubmodelID:       regs[2],
		FirmwareMajor:    regs[3],
		FirmwareMinor:    regs[4],
		FirmwareSubminor: regs[5],
		HardwareMajor:    regs[6],
		HardwareMinor:    regs[7],
		SerialNumber:     decodeString(regs[8:13], 10),
		PCBSerialNumber:  decodeString(regs[13:17], 8),
	}
}

type SerialSettings struct {
	BaudRate int    `json:"baud_rate"`
	Parity   string `json:"parity"`
}

// RTUParity returns the parity letter used by rtu.Config.
func (s SerialSettings) RTUParity() string {
	switch s.Parity {
	case "odd":
		return "O"
	case "even":
		return "E"
	}
	return "N"
}

// CapCoefficients are the sensing cap constants K1..K7 and KC.
type CapCoefficients struct {
	K               [7]float32 `json:"k"`
	KC              uint16     `json:"kc"`
	ReplacementTime time.Time  `json:"replacement_time"`
}

func decodeCapCoefficients(regs []uint16) CapCoefficients {
	var c CapCoefficients
	for i := range c.K {
		c.K[i] = decodeFloat(regs[2*i:])
	}
	c.KC = regs[14]
	c.ReplacementTime = epoch(decodeUint32(regs[15:]))
	return c
}

func (c CapCoefficients) registers() ([]uint16, error) {
	secs, err := epochSeconds(c.ReplacementTime)
	if err != nil {
		return nil, err
	}
	regs := make([]uint16, 0, capCoeffWords)
	for _, k := range c.K {
		regs = append(regs, encodeFloat(k)...)
	}
	regs = append(regs, c.KC)
	return append(regs, encodeUint32(secs)...), nil
}

// CalibrationStatus is the last calibration of a sensing element. Time is
// zero when the element has never been calibrated.
type CalibrationStatus struct {
	Time    time.Time `json:"time"`
	QCScore uint16    `json:"qc_score"`
}

func decodeCalibrationStatus(regs []uint16) CalibrationStatus {
	return CalibrationStatus{
		Time:    epoch(decodeUint32(regs)),
		QCScore: regs[2],
	}
}

// epochSeconds is the inverse of epoch; the zero time maps to 0.
func epochSeconds(t time.Time) (uint32, error) {
	if t.IsZero() {
		return 0, nil
	}
	secs := t.Unix()
	if secs <= 0 || secs > math.MaxUint32 {
		return 0, fmt.Errorf("odo: time %v does not fit the device clock: %w", t, rtu.ErrInvalidParameter)
	}
	return uint32(secs), nil
}

func epoch(secs uint32) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0).UTC()
}
