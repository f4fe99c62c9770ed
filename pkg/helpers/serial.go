// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package helpers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"
)

// USBID identifies a USB serial adapter by vendor and product id.
type USBID struct {
	VID uint16
	PID uint16
}

func (id USBID) String() string {
	return fmt.Sprintf("%04x:%04x", id.VID, id.PID)
}

// ParseUSBID parses a "vid:pid" string in hex notation as printed by lsusb,
// e.g. "416:90A1" or "0416:90a1".
func ParseUSBID(s string) (USBID, error) {
	vidStr, pidStr, ok := strings.Cut(s, ":")
	if !ok {
		return USBID{}, fmt.Errorf("invalid usb id %q: expected vid:pid in hex notation", s)
	}

	vid, err := strconv.ParseUint(strings.TrimSpace(vidStr), 16, 16)
	if err != nil {
		return USBID{}, fmt.Errorf("invalid usb vendor id %q: %w", vidStr, err)
	}
	pid, err := strconv.ParseUint(strings.TrimSpace(pidStr), 16, 16)
	if err != nil {
		return USBID{}, fmt.Errorf("invalid usb product id %q: %w", pidStr, err)
	}

	return USBID{VID: uint16(vid), PID: uint16(pid)}, nil
}

// ErrNoSuchDevice is returned when no connected serial port matches the
// requested USB id.
var ErrNoSuchDevice = errors.New("no matching usb serial device found")

// FindUSBSerialDevice returns the port name of the first connected USB serial
// adapter matching the given vid:pid.
func FindUSBSerialDevice(id USBID) (string, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	for _, port := range ports {
		if !port.IsUSB {
			continue
		}

		vid, err := strconv.ParseUint(port.VID, 16, 16)
		if err != nil {
			continue
		}
		pid, err := strconv.ParseUint(port.PID, 16, 16)
		if err != nil {
			continue
		}

		if uint16(vid) == id.VID && uint16(pid) == id.PID {
			log.Debug().
				Str("port", port.Name).
				Str("usb_id", id.String()).
				Msg("found usb serial device")
			return port.Name, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNoSuchDevice, id)
}
