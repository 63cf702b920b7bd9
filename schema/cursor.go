// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"
	"regexp"
	"strings"
)

var hexDigitsPattern = regexp.MustCompile(`^(?:0[xX])?([0-9A-Fa-f]+)$`)

// HexCursor reads sequential byte ranges out of a hex digit string.
// A cursor is good for a single pass; create a new one per input.
type HexCursor struct {
	digits string
	index  int // offset into digits
}

// NewHexCursor validates input and returns a cursor positioned at its first byte.
// Surrounding whitespace and a single leading "0x" are ignored.
func NewHexCursor(input string) (*HexCursor, error) {
	m := hexDigitsPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, input)
	}
	return &HexCursor{digits: strings.ToLower(m[1])}, nil
}

// Position returns the number of bytes consumed so far.
func (c *HexCursor) Position() int {
	return c.index / 2
}

// Len returns the number of whole bytes in the input.
func (c *HexCursor) Len() int {
	return len(c.digits) / 2
}

// NextBytes consumes n bytes and returns them as 2*n hex digits.
// The cursor does not move when an error is returned.
func (c *HexCursor) NextBytes(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: byte count must be positive, got %d", ErrInvalidArgument, n)
	}
	// Compare in bytes so 2*n cannot overflow.
	if available := (len(c.digits) - c.index) / 2; n > available {
		return "", &InsufficientDataError{Requested: n, Available: available}
	}
	chars := n * 2
	result := c.digits[c.index : c.index+chars]
	c.index += chars
	return result, nil
}

// Remaining consumes and returns every digit not read yet. The second result
// is false when nothing was left.
func (c *HexCursor) Remaining() (string, bool) {
	if c.index >= len(c.digits) {
		return "", false
	}
	result := c.digits[c.index:]
	c.index = len(c.digits)
	return result, true
}
