// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"fmt"
	"strings"
)

// matchCase returns the first case, in declaration order, whose key matches value.
// Under hexnumber semantics "01" and "1" are the same key, so the earlier one wins.
func matchCase(cases []ValueCase, value string) (ValueCase, error) {
	for _, c := range cases {
		ok, err := caseMatches(c, value)
		if err != nil {
			return ValueCase{}, err
		}
		if ok {
			return c, nil
		}
	}
	return ValueCase{}, fmt.Errorf("%w for %q", ErrNoMatchingValue, value)
}

func caseMatches(c ValueCase, value string) (bool, error) {
	switch strings.ToLower(c.caseType) {
	case CaseString:
		return strings.EqualFold(c.key, value), nil
	case CaseHexNumber:
		key, ok := hexNumber(strings.TrimPrefix(strings.TrimPrefix(c.key, "0x"), "0X"))
		if !ok {
			return false, fmt.Errorf("%w: %q should be a hex number", ErrInvalidCaseKey, c.key)
		}
		v, ok := hexNumber(value)
		if !ok {
			return false, nil
		}
		return key == v, nil
	default:
		return false, fmt.Errorf("%w %q for key %q", ErrInvalidCaseType, c.caseType, c.key)
	}
}

// hexNumber canonicalises a run of hex digits so that numerically equal runs
// compare equal as strings, whatever their length.
func hexNumber(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return "", false
		}
	}
	s = strings.TrimLeft(strings.ToLower(s), "0")
	if s == "" {
		return "0", true
	}
	return s, true
}

func isHexDigit(b byte) bool {
	return (b >= '0' && b <= '9') || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
