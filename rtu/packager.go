package rtu

import (
	"fmt"

	"github.com/goburrow/modbus"
)

// Packager frames PDUs for one device. It satisfies modbus.Packager, so a
// goburrow modbus.Client can run on top of this package's framing and errors.
type Packager struct {
	Device uint8
}

func (p *Packager) Encode(pdu *modbus.ProtocolDataUnit) ([]byte, error) {
	if err := checkDevice(p.Device); err != nil {
		return nil, err
	}
	if len(pdu.Data)+4 > maxFrameSize {
		return nil, fmt.Errorf("rtu: pdu of %d bytes does not fit a frame: %w", len(pdu.Data), ErrInvalidParameter)
	}
	return assemble(p.Device, pdu.FunctionCode, pdu.Data), nil
}

// Verify checks size, CRC and address of aduResponse against aduRequest.
func (p *Packager) Verify(aduRequest []byte, aduResponse []byte) error {
	if len(aduRequest) < 2 {
		return fmt.Errorf("rtu: empty request: %w", ErrInvalidParameter)
	}
	if err := verify(aduResponse, aduRequest[0]); err != nil {
		return err
	}
	if aduResponse[1]&0x80 != 0 && len(aduResponse) != exceptionFrameSize {
		return exception(aduResponse)
	}
	return nil
}

func (p *Packager) Decode(adu []byte) (*modbus.ProtocolDataUnit, error) {
	if len(adu) < minFrameSize {
		return nil, fmt.Errorf("rtu: frame length %d: %w", len(adu), ErrMalformedFrame)
	}
	return &modbus.ProtocolDataUnit{
		FunctionCode: adu[1],
		Data:         adu[2 : len(adu)-2],
	}, nil
}
