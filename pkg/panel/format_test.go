// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatValueDecimalInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		want     string
		digits   int
		decimals int
	}{
		{name: "fixed 5 with 2 decimals", digits: 5, decimals: 2, want: "00123.46°C"},
		{name: "fixed 5 with 1 decimal", digits: 5, decimals: 1, want: "00123.5°C"},
		{name: "fixed 5 integer only", digits: 5, decimals: 0, want: "00123°C"},
		{name: "auto with 2 decimals", digits: IntegerDigitsAuto, decimals: 2, want: "123.46°C"},
		{name: "auto with 1 decimal", digits: IntegerDigitsAuto, decimals: 1, want: "123.5°C"},
		{name: "auto integer only", digits: IntegerDigitsAuto, decimals: 0, want: "123°C"},
		{name: "overflow saturates to nines", digits: 2, decimals: 0, want: "99°C"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatValue("123.456", tt.digits, tt.decimals, "°C"))
		})
	}
}

func TestFormatValueIntegerInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		want     string
		digits   int
		decimals int
	}{
		{name: "fixed 5 with 2 decimals", digits: 5, decimals: 2, want: "00123.00°C"},
		{name: "fixed 5 with 1 decimal", digits: 5, decimals: 1, want: "00123.0°C"},
		{name: "auto with 2 decimals", digits: IntegerDigitsAuto, decimals: 2, want: "123.00°C"},
		{name: "overflow saturates to nines", digits: 2, decimals: 0, want: "99°C"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatValue("123", tt.digits, tt.decimals, "°C"))
		})
	}
}

func TestFormatValueNegativeInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		want     string
		digits   int
		decimals int
	}{
		{name: "sign counts against fixed width", digits: 5, decimals: 2, want: "-0123.00°C"},
		{name: "fixed 5 integer only", digits: 5, decimals: 0, want: "-0123°C"},
		{name: "auto with 1 decimal", digits: IntegerDigitsAuto, decimals: 1, want: "-123.0°C"},
		{name: "overflow saturates to nines", digits: 2, decimals: 0, want: "99°C"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatValue("-123", tt.digits, tt.decimals, "°C"))
		})
	}
}

func TestFormatValueRounding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		want     string
		digits   int
		decimals int
	}{
		// Rounding can carry into the integer part.
		{input: "1.999", digits: 2, decimals: 1, want: "02.0"},
		{input: "1.999", digits: 2, decimals: 0, want: "02"},
		{input: "1.999", digits: 1, decimals: 1, want: "2.0"},
		{input: "1.999", digits: IntegerDigitsAuto, decimals: 1, want: "2.0"},
		{input: "0.999", digits: 1, decimals: 2, want: "1.00"},
		{input: "0.999", digits: 1, decimals: 1, want: "1.0"},
		{input: "0.999", digits: 1, decimals: 0, want: "1"},
		{input: "123.6", digits: IntegerDigitsAuto, decimals: 0, want: "124"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.input, tt.digits, tt.decimals, ""),
			"input %s digits %d decimals %d", tt.input, tt.digits, tt.decimals)
	}
}

func TestFormatValueEdgeCases(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "000.0V", FormatValue("0", 3, 1, "V"))
	assert.Equal(t, "99.0%", FormatValue("999.99", 2, 1, "%"))
	// Non-numeric values pass through with the unit appended.
	assert.Equal(t, "invalidunit", FormatValue("invalid", 2, 2, "unit"))
	// Zero integer digits drop the integer part.
	assert.Equal(t, ".5", FormatValue("12.46", IntegerDigitsZero, 1, ""))
}
