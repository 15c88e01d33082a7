// Package rtu implements the Modbus RTU side of talking to a serial sensor:
// CRC-16, request framing, reply validation and a serial transport.
//
// Wire format: [address:1][function:1][data:N][crc:2, low byte first].
//
// Errors are sentinel values wrapped with context; test them with
// errors.Is. Device exception replies surface as *modbus.ModbusError from
// github.com/goburrow/modbus. Nothing in this package retries.
package rtu
