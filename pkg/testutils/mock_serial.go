// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

// Package testutils provides shared test doubles for serial hardware.
package testutils

import (
	"errors"
	"time"

	"github.com/asterctl/asterctl/pkg/helpers/syncutil"
)

// MockSerialPort is a scriptable serial port double. It records every write
// and answers each read from a queue of acknowledgement bytes, so tests can
// drive the strict request/acknowledge exchange deterministically.
type MockSerialPort struct {
	ReadFunc   func(p []byte) (n int, err error)
	WriteFunc  func(p []byte) (n int, err error)
	ReadError  error
	WriteError error
	CloseError error
	TimeoutErr error
	writes     [][]byte
	acks       []byte
	closed     bool
	mu         syncutil.RWMutex
}

// NewMockSerialPort creates a mock port for testing.
func NewMockSerialPort() *MockSerialPort {
	return &MockSerialPort{}
}

// QueueAck appends acknowledgement bytes to be returned by future reads, one
// byte per read.
func (m *MockSerialPort) QueueAck(b ...byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks = append(m.acks, b...)
}

// AckAll makes the port acknowledge every command with the given byte,
// regardless of how many commands are written.
func (m *MockSerialPort) AckAll(b byte) {
	m.ReadFunc = func(p []byte) (int, error) {
		if len(p) == 0 {
			return 0, nil
		}
		p[0] = b
		return 1, nil
	}
}

// Write records the written bytes.
func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errors.New("port closed")
	}
	if m.WriteFunc != nil {
		return m.WriteFunc(p)
	}
	if m.WriteError != nil {
		return 0, m.WriteError
	}

	buf := make([]byte, len(p))
	copy(buf, p)
	m.writes = append(m.writes, buf)
	return len(p), nil
}

// Read returns one queued acknowledgement byte per call. An empty queue
// reads zero bytes, which is how go.bug.st/serial signals a read timeout.
func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, errors.New("port closed")
	}
	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}
	if m.ReadError != nil {
		return 0, m.ReadError
	}

	if len(m.acks) == 0 || len(p) == 0 {
		return 0, nil
	}
	p[0] = m.acks[0]
	m.acks = m.acks[1:]
	return 1, nil
}

// SetReadTimeout returns TimeoutErr if set.
func (m *MockSerialPort) SetReadTimeout(_ time.Duration) error {
	return m.TimeoutErr
}

// Close marks the port closed.
func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	m.closed = true
	closeError := m.CloseError
	m.mu.Unlock()
	return closeError
}

// IsClosed returns true if the port has been closed (thread-safe).
func (m *MockSerialPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Writes returns a copy of all recorded writes in order.
func (m *MockSerialPort) Writes() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// WriteCount returns how many writes the port has seen.
func (m *MockSerialPort) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.writes)
}
