package odo

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/zathras777/modbusdev"
)

func wordBytes(regs []uint16) []byte {
	b := make([]byte, 2*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(b[2*i:], r)
	}
	return b
}

// decodeFloat joins the two words and reinterprets the bits. modbusdev's
// ieee32 format mis-scales exponent 0x7f and has no zero case, so only its
// u32 join is used.
func decodeFloat(regs []uint16) float32 {
	return math.Float32frombits(decodeUint32(regs))
}

func decodeUint32(regs []uint16) uint32 {
	var v modbusdev.Value
	v.FormatBytes("u32", wordBytes(regs[:2]))
	return v.Unsigned32
}

// decodeString reads ASCII packed two characters per register, stopping at
// the first NUL and trimming padding.
func decodeString(regs []uint16, length int) string {
	b := wordBytes(regs)
	if len(b) > length {
		b = b[:length]
	}
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

func encodeFloat(v float32) []uint16 {
	return encodeUint32(math.Float32bits(v))
}

func encodeUint32(v uint32) []uint16 {
	return []uint16{uint16(v >> 16), uint16(v)}
}
