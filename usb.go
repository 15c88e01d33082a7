package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const usbDevicesPath = "/sys/bus/usb/devices"

var usbSerialRe = regexp.MustCompile(`(?i)usb.*serial|serial.*usb|uart|rs-?485`)

// usbScanner finds USB serial adapters through sysfs.
type usbScanner struct {
	sysRoot string
	devRoot string
}

func newUSBScanner() usbScanner {
	return usbScanner{sysRoot: usbDevicesPath, devRoot: "/dev"}
}

// serialDevices returns the tty paths of attached adapters, sorted.
func (s usbScanner) serialDevices() ([]string, error) {
	buses, err := filepath.Glob(filepath.Join(s.sysRoot, "usb*"))
	if err != nil {
		return nil, err
	}
	found := make(map[string]bool)
	for _, bus := range buses {
		products, err := filepath.Glob(filepath.Join(bus, "*", "product"))
		if err != nil {
			continue
		}
		for _, prodFn := range products {
			if !usbSerialRe.MatchString(readFile(prodFn)) {
				continue
			}
			ttys, err := filepath.Glob(filepath.Join(filepath.Dir(prodFn), "*:*", "tty*"))
			if err != nil || len(ttys) == 0 {
				continue
			}
			name := filepath.Base(ttys[0])
			if name == "tty" {
				// ttyACM style layout: tty/ttyACM0
				inner, _ := filepath.Glob(filepath.Join(ttys[0], "tty*"))
				if len(inner) == 0 {
					continue
				}
				name = filepath.Base(inner[0])
			}
			found[filepath.Join(s.devRoot, name)] = true
		}
	}
	devices := make([]string, 0, len(found))
	for dev := range found {
		devices = append(devices, dev)
	}
	sort.Strings(devices)
	return devices, nil
}

// resolveDevicename returns name unless it asks for discovery ("auto" or
// empty), in which case the first adapter found is used.
func resolveDevicename(name string, scan usbScanner) (string, error) {
	if name != "" && name != "auto" {
		return name, nil
	}
	devices, err := scan.serialDevices()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", fmt.Errorf("no USB serial adapters found under %s", scan.sysRoot)
	}
	return devices[0], nil
}

func readFile(fn string) string {
	b, err := os.ReadFile(fn)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(string(b), "\n")
}
