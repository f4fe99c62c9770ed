// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package display

import (
	"errors"
	"fmt"
)

// ErrAckTimeout is returned when the display does not acknowledge a command
// within the configured timeout. The device state is unknown afterwards;
// callers should invalidate the cache before retrying.
var ErrAckTimeout = errors.New("timeout waiting for display acknowledgement")

// ErrPortClosed is returned for operations on a closed Screen.
var ErrPortClosed = errors.New("serial port is closed")

// DeviceUnavailableError is returned when the serial channel to the display
// cannot be opened at all: no matching device, a missing or busy port, or a
// port that rejects its line configuration.
type DeviceUnavailableError struct {
	Err  error
	Path string
}

func (e *DeviceUnavailableError) Error() string {
	return fmt.Sprintf("display unavailable at %s: %v", e.Path, e.Err)
}

func (e *DeviceUnavailableError) Unwrap() error {
	return e.Err
}

// UnexpectedAckError is returned when the display responds with anything
// other than the success marker.
type UnexpectedAckError struct {
	Response byte
}

func (e *UnexpectedAckError) Error() string {
	return fmt.Sprintf("unexpected response from display: 0x%02X", e.Response)
}

// FrameSizeError is returned when a frame does not match the fixed panel
// resolution. No bytes are sent to the device in this case.
type FrameSizeError struct {
	Width  int
	Height int
}

func (e *FrameSizeError) Error() string {
	return fmt.Sprintf("invalid frame size %dx%d: panel is %dx%d", e.Width, e.Height, Width, Height)
}

// TransferAbortedError is returned when a multi-chunk image transfer fails
// partway. LastConfirmedIndex is the highest chunk index the device
// acknowledged, or -1 if none were; it is diagnostic only. Transfers are
// never resumed because only an acknowledged ImageEnd defines a stable
// device state.
type TransferAbortedError struct {
	Err                error
	LastConfirmedIndex int
}

func (e *TransferAbortedError) Error() string {
	return fmt.Sprintf("image transfer aborted (last confirmed chunk %d): %v", e.LastConfirmedIndex, e.Err)
}

func (e *TransferAbortedError) Unwrap() error {
	return e.Err
}
