// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package display

import (
	"errors"
	"time"

	"github.com/asterctl/asterctl/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// simulatedPort is an in-memory SerialPort that validates incoming commands
// and acknowledges each one, mimicking the device's half-duplex exchange.
// A read with no pending acknowledgement behaves like a timeout.
type simulatedPort struct {
	acks   []byte
	closed bool
	mu     syncutil.Mutex
}

func newSimulatedPort() *simulatedPort {
	return &simulatedPort{}
}

// Write accepts exactly one complete command per call, as produced by
// Screen.exchange.
func (p *simulatedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, errors.New("port closed")
	}

	cmd, err := decodeCommand(b)
	if err != nil {
		log.Warn().Err(err).Msg("simulated display: rejecting malformed command")
		return len(b), nil
	}

	log.Trace().Stringer("command", cmd.Kind).Uint32("offset", cmd.Offset).Msg("simulated display: command")
	p.acks = append(p.acks, ackByte)
	return len(b), nil
}

func (p *simulatedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, errors.New("port closed")
	}
	if len(p.acks) == 0 || len(b) == 0 {
		return 0, nil
	}

	n := copy(b, p.acks)
	p.acks = p.acks[n:]
	return n, nil
}

func (p *simulatedPort) SetReadTimeout(time.Duration) error {
	return nil
}

func (p *simulatedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
