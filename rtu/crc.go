package rtu

import "encoding/binary"

// CRC returns the Modbus CRC-16 of msg (reflected polynomial 0xA001, seed 0xFFFF).
func CRC(msg []byte) uint16 {
	crc := uint16(0xffff)
	for _, b := range msg {
		crc ^= uint16(b)
		for bit := 0; bit < 8; bit++ {
			lsb := crc & 0x0001
			crc >>= 1
			if lsb == 1 {
				crc ^= 0xA001
			}
		}
	}
	return crc
}

// AppendCRC appends the CRC of frame, low byte first.
func AppendCRC(frame []byte) []byte {
	n := len(frame)
	frame = append(frame, 0, 0)
	binary.LittleEndian.PutUint16(frame[n:], CRC(frame[:n]))
	return frame
}

// CheckCRC reports whether a complete frame, trailing CRC included, has a zero residual.
func CheckCRC(frame []byte) bool {
	if len(frame) < 3 {
		return false
	}
	return CRC(frame) == 0
}

func frameCRC(frame []byte) (got, want uint16) {
	n := len(frame) - 2
	return binary.LittleEndian.Uint16(frame[n:]), CRC(frame[:n])
}
