// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFormat           = errors.New("schema: invalid hex format")
	ErrInvalidArgument         = errors.New("schema: invalid argument")
	ErrInsufficientData        = errors.New("schema: insufficient data")
	ErrSpec                    = errors.New("schema: invalid protocol spec")
	ErrUnresolvedSizeReference = errors.New("schema: unresolved size reference")
	ErrNoMatchingValue         = errors.New("schema: no matching value")
	ErrInvalidCaseType         = errors.New("schema: invalid case type")
	ErrInvalidCaseKey          = errors.New("schema: invalid case key")
	ErrTrailingData            = errors.New("schema: trailing data")
	ErrUnknownProtocol         = errors.New("schema: unknown protocol")
)

// SpecError reports why a protocol document was rejected.
// Path locates the offending node, e.g. specList[0].values["01"].description.
type SpecError struct {
	Path   string
	Reason string
}

func (e *SpecError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("schema: invalid protocol spec: %s", e.Reason)
	}
	return fmt.Sprintf("schema: invalid protocol spec at %s: %s", e.Path, e.Reason)
}

func (e *SpecError) Unwrap() error { return ErrSpec }

// InsufficientDataError is returned when a read asks for more bytes than remain.
// Available is counted in whole bytes.
type InsufficientDataError struct {
	Requested int
	Available int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("schema: insufficient data: expected %d bytes, found only %d", e.Requested, e.Available)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// TrailingDataError is reported after a complete decode that left digits unconsumed.
type TrailingDataError struct {
	Digits string
}

func (e *TrailingDataError) Error() string {
	return fmt.Sprintf("schema: trailing data after last field: %s", e.Digits)
}

func (e *TrailingDataError) Unwrap() error { return ErrTrailingData }

// DecodeError wraps a decode-time failure with the field being decoded and
// the cursor position (in bytes) at the time of failure.
type DecodeError struct {
	Field  string
	Offset int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q at byte %d: %v", e.Field, e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
