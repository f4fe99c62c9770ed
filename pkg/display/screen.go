// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

// Package display drives the AOOSTAR WTR MAX / GEM12+ PRO front panel over
// its USB-UART controller, speaking a reverse-engineered binary protocol.
// Image transfers send only the 47-byte chunks that changed since the last
// confirmed frame, tracked by an invalidatable per-chunk cache.
package display

import (
	"encoding/binary"
	"fmt"
	"image"
	"time"

	"github.com/asterctl/asterctl/pkg/helpers"
	"github.com/asterctl/asterctl/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// DefaultUSBID is the USB vid:pid of the built-in display controller.
const DefaultUSBID = "0416:90a1"

const (
	// The controller's UART runs far above the classic rates; the vendor
	// tool opens it at 1.5 MBaud.
	defaultBaudRate   = 1500000
	defaultAckTimeout = 2 * time.Second
)

// SerialPort is the subset of go.bug.st/serial.Port the Screen needs,
// extracted so tests can inject a mock.
type SerialPort interface {
	Write(p []byte) (n int, err error)
	Read(p []byte) (n int, err error)
	SetReadTimeout(t time.Duration) error
	Close() error
}

// PortFactory opens a serial port. Replaceable in tests.
type PortFactory func(path string, mode *serial.Mode) (SerialPort, error)

func defaultPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// State is the transport's protocol state, for diagnostics.
type State int32

const (
	// StateIdle means no exchange is in progress.
	StateIdle State = iota
	// StateTransferring means an image transfer is in flight.
	StateTransferring
	// StateFaulted means the last exchange failed; the device state is
	// unknown until the cache is invalidated and a transfer succeeds.
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateTransferring:
		return "Transferring"
	case StateFaulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}

// Builder configures and opens a Screen.
type Builder struct {
	portFactory PortFactory
	byteOrder   binary.ByteOrder
	ackTimeout  time.Duration
	baudRate    int
	writeOnly   bool
}

func NewBuilder() *Builder {
	return &Builder{
		portFactory: defaultPortFactory,
		byteOrder:   binary.LittleEndian,
		ackTimeout:  defaultAckTimeout,
		baudRate:    defaultBaudRate,
	}
}

// WriteOnly disables acknowledgement reads. Test mode only: without acks
// there is no confirmation the device processed anything.
func (b *Builder) WriteOnly(enabled bool) *Builder {
	b.writeOnly = enabled
	return b
}

// ByteOrder sets the wire byte order of packed 16-bit color samples.
// Default is little-endian, matching the vendor tool captures.
func (b *Builder) ByteOrder(order binary.ByteOrder) *Builder {
	b.byteOrder = order
	return b
}

// BaudRate overrides the serial line rate.
func (b *Builder) BaudRate(rate int) *Builder {
	if rate > 0 {
		b.baudRate = rate
	}
	return b
}

// AckTimeout bounds the wait for each single-byte acknowledgement.
func (b *Builder) AckTimeout(d time.Duration) *Builder {
	b.ackTimeout = d
	return b
}

// PortFactory replaces the serial port constructor, for tests.
func (b *Builder) PortFactory(f PortFactory) *Builder {
	b.portFactory = f
	return b
}

// OpenDevice opens the display on an explicit serial device path.
func (b *Builder) OpenDevice(path string) (*Screen, error) {
	mode := &serial.Mode{
		BaudRate: b.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := b.portFactory(path, mode)
	if err != nil {
		return nil, &DeviceUnavailableError{Path: path, Err: err}
	}

	if err := port.SetReadTimeout(b.ackTimeout); err != nil {
		_ = port.Close()
		return nil, &DeviceUnavailableError{
			Path: path,
			Err:  fmt.Errorf("failed to set read timeout: %w", err),
		}
	}

	log.Info().Str("device", path).Msg("display connected")

	return &Screen{
		port:       port,
		path:       path,
		cache:      newFrameCache(),
		byteOrder:  b.byteOrder,
		ackTimeout: b.ackTimeout,
		writeOnly:  b.writeOnly,
	}, nil
}

// OpenUSB locates the display by USB "vid:pid" in hex notation and opens it.
func (b *Builder) OpenUSB(usbID string) (*Screen, error) {
	id, err := helpers.ParseUSBID(usbID)
	if err != nil {
		return nil, err
	}

	path, err := helpers.FindUSBSerialDevice(id)
	if err != nil {
		return nil, &DeviceUnavailableError{Path: id.String(), Err: err}
	}

	return b.OpenDevice(path)
}

// OpenDefault opens the display via the default USB id.
func (b *Builder) OpenDefault() (*Screen, error) {
	return b.OpenUSB(DefaultUSBID)
}

// Simulate opens a Screen backed by an in-memory port that acknowledges
// every command, for development without hardware.
func (b *Builder) Simulate() (*Screen, error) {
	log.Info().Msg("using simulated display")
	return &Screen{
		port:       newSimulatedPort(),
		path:       "simulated",
		cache:      newFrameCache(),
		byteOrder:  b.byteOrder,
		ackTimeout: b.ackTimeout,
		writeOnly:  b.writeOnly,
	}, nil
}

// Screen owns the exclusive serial connection to the display controller and
// sequences all protocol exchanges. The protocol is strictly half-duplex
// request/acknowledge with no pipelining; every operation holds the mutex
// for its full exchange, so at most one command is ever outstanding.
type Screen struct {
	port       SerialPort
	cache      *frameCache
	byteOrder  binary.ByteOrder
	path       string
	ackTimeout time.Duration
	state      State
	writeOnly  bool
	mu         syncutil.Mutex
}

// Path returns the serial device path the screen was opened on.
func (s *Screen) Path() string {
	return s.path
}

// State returns the last observed protocol state.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CachedChunks returns how many chunk payloads are currently confirmed in
// the partial-update cache. Diagnostic only.
func (s *Screen) CachedChunks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.size()
}

// PowerOn switches the panel on. The firmware then shows whatever image it
// retained internally, which is not guaranteed to match the cache, so the
// cache is invalidated.
func (s *Screen) PowerOn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.exchange(Command{Kind: KindPowerOn}); err != nil {
		s.state = StateFaulted
		return err
	}

	s.cache.invalidate()
	s.state = StateIdle
	log.Info().Str("device", s.path).Msg("display powered on")
	return nil
}

// PowerOff blanks and switches off the panel. Invalidates the cache for the
// same reason as PowerOn.
func (s *Screen) PowerOff() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.exchange(Command{Kind: KindPowerOff}); err != nil {
		s.state = StateFaulted
		return err
	}

	s.cache.invalidate()
	s.state = StateIdle
	log.Info().Str("device", s.path).Msg("display powered off")
	return nil
}

// Show transfers a frame to the display, sending only chunks that differ
// from the last confirmed frame. An unchanged frame sends no protocol bytes
// at all. The frame must match the fixed panel resolution; it is borrowed
// read-only for the duration of the call.
//
// On error the cache keeps entries for chunks the device acknowledged; since
// ImageEnd was not confirmed the firmware's buffer swap state is unknown, so
// callers should InvalidateCache before retrying.
func (s *Screen) Show(img image.Image) error {
	packed, err := packFrame(img, s.byteOrder)
	if err != nil {
		return err
	}
	chunks := chunkFrame(packed)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return ErrPortClosed
	}

	changed := s.cache.diff(chunks)
	if len(changed) == 0 {
		log.Debug().Str("device", s.path).Msg("frame unchanged, skipping transfer")
		return nil
	}

	start := time.Now()
	s.state = StateTransferring
	if err := s.transfer(chunks, changed); err != nil {
		s.state = StateFaulted
		return err
	}
	s.state = StateIdle

	log.Debug().
		Int("chunks", len(changed)).
		Int("cached", s.cache.size()).
		Dur("elapsed", time.Since(start)).
		Msg("image transfer complete")
	return nil
}

// InvalidateCache clears the partial-update cache, forcing a full resend on
// the next Show. Call after a failed transfer, a reconnect, or whenever
// external tooling may have written to the device.
func (s *Screen) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.invalidate()
	log.Debug().Uint64("generation", s.cache.generation).Msg("frame cache invalidated")
}

// Close releases the serial port. Further operations return ErrPortClosed.
func (s *Screen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}

	err := s.port.Close()
	s.port = nil
	if err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}

	log.Info().Str("device", s.path).Msg("display disconnected")
	return nil
}

// transfer runs one ImageStart / chunks / ImageEnd exchange. Chunks are sent
// strictly in ascending index order, matching the firmware's expectation of
// positional writes, and each cache entry is updated only after its chunk is
// acknowledged.
func (s *Screen) transfer(chunks []chunk, changed []int) error {
	if err := s.exchange(Command{Kind: KindImageStart}); err != nil {
		return &TransferAbortedError{LastConfirmedIndex: -1, Err: err}
	}

	last := -1
	for _, idx := range changed {
		ch := chunks[idx]
		cmd := Command{Kind: KindImageChunk, Offset: ch.offset, Payload: ch.payload}
		if err := s.exchange(cmd); err != nil {
			return &TransferAbortedError{LastConfirmedIndex: last, Err: err}
		}
		s.cache.confirm(ch)
		last = ch.index
	}

	if err := s.exchange(Command{Kind: KindImageEnd}); err != nil {
		return &TransferAbortedError{LastConfirmedIndex: last, Err: err}
	}

	return nil
}

// exchange transmits one command and blocks for its acknowledgement. Caller
// must hold s.mu.
func (s *Screen) exchange(cmd Command) error {
	if s.port == nil {
		return ErrPortClosed
	}

	data := cmd.encode()
	n, err := s.port.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write %s command: %w", cmd.Kind, err)
	}
	if n != len(data) {
		return fmt.Errorf("short write for %s command: %d of %d bytes", cmd.Kind, n, len(data))
	}

	if s.writeOnly {
		return nil
	}

	return s.readAck(cmd.Kind)
}

// readAck reads the single acknowledgement byte. The port's read timeout is
// set at open; go.bug.st/serial signals expiry with a zero-byte read.
func (s *Screen) readAck(kind CommandKind) error {
	buf := make([]byte, 1)
	n, err := s.port.Read(buf)
	if err != nil {
		return fmt.Errorf("failed to read %s acknowledgement: %w", kind, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", kind, ErrAckTimeout)
	}
	return decodeAck(buf[0])
}
