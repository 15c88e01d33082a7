package sim

import (
	"time"

	"github.com/tbrandon/mbserver"
)

const (
	regSerialSettings = 0x0001
	regCapCoefficient = 0x0100
	regCapSerial      = 0x0120
	regODOReset       = 0x0200
	regODOStatus      = 0x0210
	regCondReset      = 0x0300
	regCondStatus     = 0x0310
	regUserParameters = 0x0500
	regDeviceInfo     = 0x1000

	inTimeSinceBoot = 12

	calibratedQC = 100
)

// calibrationStatus maps the first register of each calibration block to
// the status block it updates.
var calibrationStatus = map[uint16]uint16{
	0x0220: regODOStatus,
	0x0230: regODOStatus,
	0x0240: regODOStatus,
	0x0320: regCondStatus,
	0x0330: regCondStatus,
	0x0340: regCondStatus,
	0x0350: regCondStatus,
}

var defaultMeasurements = map[uint16]float32{
	0:  98.6,  // odo saturation %
	2:  8.91,  // odo mg/L
	4:  99.1,  // local saturation %
	8:  18.4,  // temperature
	10: 18.4,  // reference temperature
	14: 412,   // conductivity
	16: 455.3, // specific conductance
	18: 0.22,  // salinity
	20: 430.1, // nLF conductivity
	22: 295.9, // TDS
}

func (d *Device) seed() {
	in, hold := d.srv.InputRegisters, d.srv.HoldingRegisters
	for addr, v := range defaultMeasurements {
		putFloat(in, addr, v)
	}

	// even parity, 9600 baud
	hold[regSerialSettings] = 2<<8 | 0

	info := []uint16{0x6d01, 0x0002, 0x0001, 1, 4, 2, 3, 1}
	copy(hold[regDeviceInfo:], info)
	putString(hold, regDeviceInfo+8, "21K100547", 5)
	putString(hold, regDeviceInfo+13, "PCB03311", 4)

	k := []float32{1.1412, -0.0032, 0.00021, 1.5e-6, -2.2e-8, 0.0138, 0.00009}
	for i, v := range k {
		putFloat(hold, regCapCoefficient+uint16(2*i), v)
	}
	hold[regCapCoefficient+14] = 3
	putUint32(hold, regCapCoefficient+15, 1704067200)
	putString(hold, regCapSerial, "22H104121", 5)

	putUint32(hold, regODOStatus, 1717200000)
	hold[regODOStatus+2] = 94
	putUint32(hold, regCondStatus, 1717200000)
	hold[regCondStatus+2] = 97

	putFloat(hold, regUserParameters, 0.65)
	putFloat(hold, regUserParameters+2, 25)
	putFloat(hold, regUserParameters+4, 1.91)
}

func (d *Device) readInputRegisters(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	secs := uint32(time.Since(d.boot) / time.Second)
	putUint32(s.InputRegisters, inTimeSinceBoot, secs)
	return mbserver.ReadInputRegisters(s, frame)
}

// writeRegister applies a preset single register. Writing 1 to a reset
// register forgets the calibration; serial settings reject unknown codes.
func (d *Device) writeRegister(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	register, value := registerAndValue(frame)
	switch register {
	case regSerialSettings:
		if value>>8 > 2 || value&0xff > 4 {
			return nil, &mbserver.IllegalDataValue
		}
	case regODOReset, regCondReset:
		if value != 1 {
			return nil, &mbserver.IllegalDataValue
		}
		status := uint16(regODOStatus)
		if register == regCondReset {
			status = regCondStatus
		}
		putUint32(s.HoldingRegisters, status, 0)
		s.HoldingRegisters[status+2] = 0
		d.log.Info("factory reset", "register", register)
		return frame.GetData()[0:4], &mbserver.Success
	}
	return mbserver.WriteHoldingRegister(s, frame)
}

// writeRegisters stores a block; calibration blocks also record the
// calibration time in their status registers.
func (d *Device) writeRegisters(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data, exc := mbserver.WriteHoldingRegisters(s, frame)
	if exc != &mbserver.Success {
		return data, exc
	}
	register, _ := registerAndValue(frame)
	if status, ok := calibrationStatus[register]; ok {
		s.HoldingRegisters[status] = s.HoldingRegisters[register]
		s.HoldingRegisters[status+1] = s.HoldingRegisters[register+1]
		s.HoldingRegisters[status+2] = calibratedQC
		d.log.Info("calibrated", "register", register)
	}
	return data, exc
}
