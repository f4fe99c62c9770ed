// Asterctl
// Copyright (c) 2026 The Asterctl Contributors.
// SPDX-License-Identifier: MIT OR Apache-2.0

package panel

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IntegerDigitsAuto keeps every integer digit of a formatted value;
// IntegerDigitsZero drops the integer part entirely. Positive counts
// zero-pad the integer part to that width.
const (
	IntegerDigitsAuto = -1
	IntegerDigitsZero = 0
)

// FormatValue renders a sensor value as a fixed-point number with a unit
// suffix, matching the formatting rules of the AOOSTAR-X application. A
// value that does not parse as a number is passed through with the unit
// appended. An integer part wider than a positive integerDigits saturates
// to all nines.
func FormatValue(value string, integerDigits, decimalDigits int, unit string) string {
	num, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return value + unit
	}

	factor := math.Pow10(decimalDigits)
	var rounded float64
	if decimalDigits == 0 {
		rounded = math.Round(num)
	} else {
		rounded = math.Round(num*factor) / factor
	}

	// Rounding can grow the integer part (9.99 -> 10.0), so split only
	// after rounding.
	integerPart := int64(math.Trunc(rounded))
	decimalStr := ""
	if decimalDigits > 0 {
		dec := uint64(math.Round(math.Abs(rounded-math.Trunc(rounded)) * factor))
		if dec >= uint64(factor) {
			dec = 0
		}
		decimalStr = fmt.Sprintf("%0*d", decimalDigits, dec)
	}

	integerStr := strconv.FormatInt(integerPart, 10)
	var integerFilled string
	switch {
	case integerDigits <= IntegerDigitsAuto:
		integerFilled = integerStr
	case integerDigits == IntegerDigitsZero:
		integerFilled = ""
	case len(integerStr) > integerDigits:
		integerFilled = strings.Repeat("9", integerDigits)
	default:
		integerFilled = fmt.Sprintf("%0*d", integerDigits, integerPart)
	}

	formatted := integerFilled
	if decimalDigits > 0 {
		formatted += "." + decimalStr
	}
	return formatted + unit
}
