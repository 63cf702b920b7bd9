// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Outcome summarises one decode.
type Outcome struct {
	Err          error  // nil when every visited field decoded and matched
	Trailing     string // digits left unconsumed, "" when none
	Values       int    // value events emitted
	Descriptions int    // description events emitted
}

// OK reports whether every visited field decoded. Trailing data does not make a
// decode fail.
func (o Outcome) OK() bool { return o.Err == nil }

// Complete reports a successful decode that consumed the whole input.
func (o Outcome) Complete() bool { return o.Err == nil && o.Trailing == "" }

// decoder holds the state of a single Decode call.
type decoder struct {
	cur  *HexCursor
	sink Sink
	out  *Outcome
}

// Decode walks the protocol layout over a hex input, reporting every decoded
// field and matched case description to sink. A failure stops the walk and is
// reported once through OnError together with the undecoded digits. Digits left
// over after a successful walk are reported as a TrailingDataError.
func (p *Protocol) Decode(input string, sink Sink) Outcome {
	if sink == nil {
		sink = Discard
	}
	var out Outcome

	cur, err := NewHexCursor(input)
	if err != nil {
		out.Err = err
		log.Warn().Err(err).Str("protocol", p.name).Msg("schema.Decode rejected input")
		sink.OnError(err, "")
		return out
	}
	log.Debug().Str("protocol", p.name).Int("bytes", cur.Len()).Msg("schema.Decode start")

	d := &decoder{cur: cur, sink: sink, out: &out}
	err = d.decodeList(p.fields)
	out.Trailing, _ = cur.Remaining()
	if err != nil {
		out.Err = err
		log.Warn().Err(err).Str("protocol", p.name).Str("trailing", out.Trailing).Msg("schema.Decode failed")
		sink.OnError(err, out.Trailing)
		return out
	}
	if out.Trailing != "" {
		log.Warn().Str("protocol", p.name).Str("trailing", out.Trailing).Msg("schema.Decode trailing data")
		sink.OnError(&TrailingDataError{Digits: out.Trailing}, out.Trailing)
	}
	log.Debug().Str("protocol", p.name).Int("values", out.Values).Msg("schema.Decode ok")
	return out
}

// DecodeBytes is Decode for raw bytes.
func (p *Protocol) DecodeBytes(data []byte, sink Sink) Outcome {
	return p.Decode(hex.EncodeToString(data), sink)
}

// decodeList decodes one layout. Each call owns a fresh scope: size references
// only see siblings of the same list.
func (d *decoder) decodeList(fields []FieldSpec) error {
	scope := make(map[string]string, len(fields))
	for _, f := range fields {
		if err := d.decodeField(f, scope); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) decodeField(f FieldSpec, scope map[string]string) error {
	offset := d.cur.Position()
	size, err := resolveSize(f.size, scope)
	if err != nil {
		return &DecodeError{Field: f.name, Offset: offset, Err: err}
	}

	var value string
	if size > 0 {
		if value, err = d.cur.NextBytes(size); err != nil {
			return &DecodeError{Field: f.name, Offset: offset, Err: err}
		}
	}
	scope[f.name] = value
	d.out.Values++
	d.sink.OnValue(f.name, value)

	if !f.hasValues {
		return nil
	}
	c, err := matchCase(f.cases, value)
	if err != nil {
		return &DecodeError{Field: f.name, Offset: offset, Err: err}
	}
	log.Debug().Str("field", f.name).Str("value", value).Str("case", c.key).Msg("schema.Decode matched")
	d.out.Descriptions++
	d.sink.OnDescription(c.description)
	return d.decodeList(c.fields)
}

// resolveSize returns the byte count for a field. Referenced values are read
// as big-endian hex integers.
func resolveSize(s Size, scope map[string]string) (int, error) {
	if !s.IsRef() {
		return s.bytes, nil
	}
	raw, ok := scope[s.ref]
	if !ok {
		return 0, fmt.Errorf("%w: no field %q decoded in this list", ErrUnresolvedSizeReference, s.ref)
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 16, 31)
	if err != nil {
		return 0, fmt.Errorf("%w: value %q of %q is not a usable size", ErrUnresolvedSizeReference, raw, s.ref)
	}
	return int(n), nil
}
