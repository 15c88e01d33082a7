// Package odo reads and configures a YSI ODO RTU dissolved oxygen,
// temperature and conductivity probe over Modbus RTU.
//
//	c, err := odo.Open(odo.Config{Serial: rtu.Config{Address: "/dev/ttyUSB0"}})
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//	reading, err := c.ReadData()
//
// Errors wrap the sentinels of package rtu.
package odo
