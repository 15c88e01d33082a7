package odo

// Register addresses of the YSI ODO RTU probe. 32-bit values occupy two
// registers, high word first.
const (
	regData           = 0x0000
	regSerialSettings = 0x0001
	regCapCoefficient = 0x0100
	regCapSerial      = 0x0120
	regODOReset       = 0x0200
	regODOStatus      = 0x0210
	regCondReset      = 0x0300
	regCondStatus     = 0x0310
	regDeviceInfo     = 0x1000

	dataWords       = 24
	deviceInfoWords = 17
	capCoeffWords   = 17
	capSerialWords  = 5
	statusWords     = 3

	resetValue = 0x0001
)

type valueType int

const (
	ieee32 valueType = iota
	uint32BE
)

// field is one value of the input register data block.
type field struct {
	name   string
	unit   string
	offset int
	typ    valueType
}

// Offsets 6 and 7 are reserved.
var dataFields = []field{
	{"odo_saturation", "%", 0, ieee32},
	{"odo_concentration", "mg/L", 2, ieee32},
	{"odo_local_saturation", "%", 4, ieee32},
	{"temperature", "°C", 8, ieee32},
	{"reference_temperature", "°C", 10, ieee32},
	{"time_since_boot", "s", 12, uint32BE},
	{"conductivity", "µS/cm", 14, ieee32},
	{"specific_conductance", "µS/cm", 16, ieee32},
	{"salinity", "ppt", 18, ieee32},
	{"nlf_conductivity", "µS/cm", 20, ieee32},
	{"total_dissolved_solids", "mg/L", 22, ieee32},
}

// Fields lists the name and unit of every measurement ReadData returns, in
// order.
func Fields() []Measurement {
	out := make([]Measurement, len(dataFields))
	for i, f := range dataFields {
		out[i] = Measurement{Name: f.name, Unit: f.unit}
	}
	return out
}

var baudCodes = map[int]uint16{
	9600:   0,
	19200:  1,
	38400:  2,
	57600:  3,
	115200: 4,
}

var parityCodes = map[string]uint16{
	"none": 0,
	"odd":  1,
	"even": 2,
}

// CalibrationKind selects a calibration register block.
type CalibrationKind int

const (
	ODOZero CalibrationKind = iota
	ODOSaturation
	ODOConcentration
	Conductivity
	Salinity
	SpecificConductance
	NLFConductivity
)

type calibration struct {
	name    string
	address uint16
	params  int
}

var calibrations = map[CalibrationKind]calibration{
	ODOZero:             {"odo zero", 0x0220, 0},
	ODOSaturation:       {"odo saturation", 0x0230, 1},
	ODOConcentration:    {"odo concentration", 0x0240, 2},
	Conductivity:        {"conductivity", 0x0320, 1},
	Salinity:            {"salinity", 0x0330, 1},
	SpecificConductance: {"specific conductance", 0x0340, 1},
	NLFConductivity:     {"nlf conductivity", 0x0350, 1},
}

func (k CalibrationKind) String() string {
	if c, ok := calibrations[k]; ok {
		return c.name
	}
	return "unknown calibration"
}

// UserParameter selects one of the float32 user settings.
type UserParameter uint16

const (
	TDSCoefficient         UserParameter = 0x0500
	TemperatureReference   UserParameter = 0x0502
	TemperatureCoefficient UserParameter = 0x0504
)

func (p UserParameter) String() string {
	switch p {
	case TDSCoefficient:
		return "tds coefficient"
	case TemperatureReference:
		return "temperature reference"
	case TemperatureCoefficient:
		return "temperature coefficient"
	}
	return "unknown parameter"
}
