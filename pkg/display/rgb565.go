// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package display

import (
	"encoding/binary"
	"image"
)

// Fixed resolution of the AOOSTAR WTR MAX / GEM12+ PRO front panel.
const (
	Width  = 960
	Height = 376
)

// PackedFrameSize is the byte length of a full frame in the panel's 16-bit
// pixel format.
const PackedFrameSize = Width * Height * 2

// packRGB565 converts one 24-bit RGB sample to the panel's 16-bit format:
// top 5 bits of red, top 6 bits of green, top 5 bits of blue.
func packRGB565(r, g, b uint8) uint16 {
	return uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(b)>>3
}

// packFrame converts img into the panel's packed pixel format. The byte
// order of each 16-bit sample on the wire is not confirmed by the protocol
// captures, so it is a parameter rather than a constant.
func packFrame(img image.Image, order binary.ByteOrder) ([]byte, error) {
	bounds := img.Bounds()
	if bounds.Dx() != Width || bounds.Dy() != Height {
		return nil, &FrameSizeError{Width: bounds.Dx(), Height: bounds.Dy()}
	}

	packed := make([]byte, PackedFrameSize)
	i := 0

	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < Height; y++ {
			rowStart := rgba.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			row := rgba.Pix[rowStart : rowStart+Width*4]
			for x := 0; x < Width; x++ {
				order.PutUint16(packed[i:], packRGB565(row[x*4], row[x*4+1], row[x*4+2]))
				i += 2
			}
		}
		return packed, nil
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			order.PutUint16(packed[i:], packRGB565(uint8(r>>8), uint8(g>>8), uint8(b>>8))) //nolint:gosec // 16-bit color channels
			i += 2
		}
	}
	return packed, nil
}
