// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package display

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// CommandKind identifies one of the five reverse-engineered protocol
// commands. The set is closed: the firmware understands nothing else, and
// probing for further commands risks destabilizing it.
type CommandKind uint32

const (
	KindImageStart CommandKind = 0x05
	KindImageEnd   CommandKind = 0x06
	KindImageChunk CommandKind = 0x08
	KindPowerOff   CommandKind = 0x0A
	KindPowerOn    CommandKind = 0x0B
)

func (k CommandKind) String() string {
	switch k {
	case KindImageStart:
		return "ImageStart"
	case KindImageEnd:
		return "ImageEnd"
	case KindImageChunk:
		return "ImageChunk"
	case KindPowerOff:
		return "PowerOff"
	case KindPowerOn:
		return "PowerOn"
	default:
		return fmt.Sprintf("Unknown(0x%02X)", uint32(k))
	}
}

// Command is a single protocol request. Offset and Payload are only used by
// ImageChunk commands.
type Command struct {
	Payload []byte
	Offset  uint32
	Kind    CommandKind
}

// Every command starts with the same four magic bytes, followed by the
// command id as a little-endian uint32.
var commandMagic = []byte{0xAA, 0x55, 0xAA, 0x55}

// Fixed ImageStart parameter block captured from the vendor tool. The
// trailing four bytes are the packed frame length (960*376*2 = 721920)
// little-endian; the leading four are opaque.
var imageStartParams = []byte{0x04, 0x00, 0x0F, 0x2F, 0x00, 0x04, 0x0B, 0x00}

// ackByte is the single-byte success response sent by the firmware after
// every command.
const ackByte = 'A'

const headerLen = 8

// encode serializes the command into its exact wire representation.
func (c Command) encode() []byte {
	size := headerLen
	if c.Kind == KindImageStart {
		size += len(imageStartParams)
	} else if c.Kind == KindImageChunk {
		size += 4 + len(c.Payload)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, commandMagic...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(c.Kind))

	switch c.Kind {
	case KindImageStart:
		buf = append(buf, imageStartParams...)
	case KindImageChunk:
		buf = binary.LittleEndian.AppendUint32(buf, c.Offset)
		buf = append(buf, c.Payload...)
	case KindImageEnd, KindPowerOff, KindPowerOn:
		// header only
	}

	return buf
}

// decodeCommand parses wire bytes back into a Command. Used by the simulated
// device and to verify encodings are lossless.
func decodeCommand(data []byte) (Command, error) {
	if len(data) < headerLen {
		return Command{}, fmt.Errorf("command too short: %d bytes", len(data))
	}
	if !bytes.Equal(data[:4], commandMagic) {
		return Command{}, fmt.Errorf("invalid command magic: % X", data[:4])
	}

	kind := CommandKind(binary.LittleEndian.Uint32(data[4:headerLen]))
	rest := data[headerLen:]

	switch kind {
	case KindPowerOff, KindPowerOn, KindImageEnd:
		if len(rest) != 0 {
			return Command{}, fmt.Errorf("%s: unexpected %d trailing bytes", kind, len(rest))
		}
		return Command{Kind: kind}, nil
	case KindImageStart:
		if !bytes.Equal(rest, imageStartParams) {
			return Command{}, fmt.Errorf("%s: invalid parameter block: % X", kind, rest)
		}
		return Command{Kind: kind}, nil
	case KindImageChunk:
		if len(rest) < 4 {
			return Command{}, fmt.Errorf("%s: missing offset", kind)
		}
		return Command{
			Kind:    kind,
			Offset:  binary.LittleEndian.Uint32(rest[:4]),
			Payload: bytes.Clone(rest[4:]),
		}, nil
	default:
		return Command{}, fmt.Errorf("unknown command id 0x%02X", uint32(kind))
	}
}

// decodeAck validates the single-byte response following a command.
func decodeAck(b byte) error {
	if b != ackByte {
		return &UnexpectedAckError{Response: b}
	}
	return nil
}
