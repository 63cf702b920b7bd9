// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

// Package schema provides a declarative dissector for hex-encoded binary protocols.
// A protocol document (JSON or YAML) describes the byte layout as an ordered list of
// fields; field sizes are fixed or taken from an earlier sibling's value, and a field's
// value may select a nested layout through its declared value cases.
package schema

import (
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ByteOrder is recorded from the document but values are never reinterpreted by it.
type ByteOrder string

const (
	BigEndian    ByteOrder = "BigEndian"
	LittleEndian ByteOrder = "LittleEndian"
)

// Case types understood by the decoder.
const (
	CaseHexNumber = "hexnumber"
	CaseString    = "string"
)

// Size is either a literal byte count or a reference to an earlier sibling
// whose decoded value holds the byte count.
type Size struct {
	bytes int
	ref   string
}

// IsRef reports whether the size names another field.
func (s Size) IsRef() bool { return s.ref != "" }

// Ref returns the referenced field name, or "" for literal sizes.
func (s Size) Ref() string { return s.ref }

// Bytes returns the literal byte count; it is zero for references.
func (s Size) Bytes() int { return s.bytes }

// String renders a reference as "$name" and a literal as its byte count.
func (s Size) String() string {
	if s.IsRef() {
		return "$" + s.ref
	}
	return strconv.Itoa(s.bytes)
}

// ValueCase is one branch of a field, selected when the decoded value matches Key.
type ValueCase struct {
	key         string
	caseType    string
	description string
	fields      []FieldSpec
}

// Key returns the case key as written in the document.
func (c ValueCase) Key() string { return c.key }

// Type returns the raw match type, "hexnumber" unless the document set one.
func (c ValueCase) Type() string { return c.caseType }

// Description is reported when the case matches.
func (c ValueCase) Description() string { return c.description }

// Fields returns the nested layout decoded when this case matches.
func (c ValueCase) Fields() []FieldSpec { return append([]FieldSpec(nil), c.fields...) }

// FieldSpec describes one field of a layout.
type FieldSpec struct {
	name      string
	size      Size
	hasValues bool
	cases     []ValueCase
}

// Name returns the field name, unique among its siblings.
func (f FieldSpec) Name() string { return f.name }

// Size returns the literal or referenced byte count.
func (f FieldSpec) Size() Size { return f.size }

// HasValues reports whether the field declared a values mapping, even an empty one.
func (f FieldSpec) HasValues() bool { return f.hasValues }

// Cases returns the value cases in declaration order.
func (f FieldSpec) Cases() []ValueCase { return append([]ValueCase(nil), f.cases...) }

// Protocol is a validated protocol document. It shares no memory with the document
// it was built from and is safe for concurrent use.
type Protocol struct {
	name      string
	version   string
	byteOrder ByteOrder
	reference string
	fields    []FieldSpec
}

// Document metadata. Each is "" when the document left it out, except
// ByteOrder which defaults to BigEndian.
func (p *Protocol) Name() string         { return p.name }
func (p *Protocol) Version() string      { return p.version }
func (p *Protocol) ByteOrder() ByteOrder { return p.byteOrder }
func (p *Protocol) Reference() string    { return p.reference }

// Fields returns the root layout.
func (p *Protocol) Fields() []FieldSpec { return append([]FieldSpec(nil), p.fields...) }

// FieldCount returns the number of field descriptors in the whole tree.
func (p *Protocol) FieldCount() int {
	return countFields(p.fields)
}

func countFields(fields []FieldSpec) int {
	n := len(fields)
	for _, f := range fields {
		for _, c := range f.cases {
			n += countFields(c.fields)
		}
	}
	return n
}

// ParseProtocol parses and validates a protocol document from YAML or JSON text.
func ParseProtocol(data string) (*Protocol, error) {
	return Validate(data)
}

// Validate checks doc against the protocol grammar and returns a private copy of it.
// doc may be JSON or YAML text (string or []byte), a *yaml.Node, or decoded Go values
// (map[string]any, []any, *orderedmap.OrderedMap[string, any]). Keys of plain Go maps
// carry no order and are visited sorted.
func Validate(doc any) (*Protocol, error) {
	root, err := documentNode(doc)
	if err != nil {
		log.Warn().Err(err).Msg("schema.Validate rejected document")
		return nil, err
	}
	p, err := validateProtocol(root)
	if err != nil {
		log.Warn().Err(err).Msg("schema.Validate rejected document")
		return nil, err
	}
	log.Debug().
		Str("protocol", p.name).
		Str("version", p.version).
		Int("fields", p.FieldCount()).
		Msg("schema.Validate ok")
	return p, nil
}

func validateProtocol(n *yaml.Node) (*Protocol, error) {
	if n.Kind != yaml.MappingNode {
		return nil, &SpecError{Reason: fmt.Sprintf("expected a <mapping> document, received <%s>", kindName(n))}
	}
	pairs, err := mappingPairs(n, "")
	if err != nil {
		return nil, err
	}

	p := &Protocol{byteOrder: BigEndian}
	for _, kv := range pairs {
		switch kv.key {
		case "name":
			p.name, err = text(kv.value, kv.key)
		case "version":
			p.version, err = text(kv.value, kv.key)
		case "reference":
			p.reference, err = text(kv.value, kv.key)
		case "byteOrder":
			var order string
			order, err = text(kv.value, kv.key)
			if err == nil {
				p.byteOrder, err = parseByteOrder(order)
			}
		case "specList":
			p.fields, err = validateSpecList(kv.value, kv.key)
		default:
			err = &SpecError{Reason: fmt.Sprintf("key %q is not allowed in the protocol spec", kv.key)}
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

func parseByteOrder(s string) (ByteOrder, error) {
	switch ByteOrder(s) {
	case BigEndian, LittleEndian:
		return ByteOrder(s), nil
	default:
		return "", &SpecError{Path: "byteOrder", Reason: fmt.Sprintf("expected %q or %q, received %q", BigEndian, LittleEndian, s)}
	}
}

// validateSpecList validates one layout. Size references may only name fields
// declared before them in the same list.
func validateSpecList(n *yaml.Node, path string) ([]FieldSpec, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, &SpecError{Path: path, Reason: fmt.Sprintf("should be <list> but received <%s>", kindName(n))}
	}
	seen := make(map[string]struct{}, len(n.Content))
	fields := make([]FieldSpec, 0, len(n.Content))
	for i, item := range n.Content {
		f, err := validateField(item, fmt.Sprintf("%s[%d]", path, i), seen)
		if err != nil {
			return nil, err
		}
		seen[f.name] = struct{}{}
		fields = append(fields, f)
	}
	return fields, nil
}

func validateField(n *yaml.Node, path string, seen map[string]struct{}) (FieldSpec, error) {
	if n.Kind != yaml.MappingNode {
		return FieldSpec{}, &SpecError{Path: path, Reason: fmt.Sprintf("field should be <mapping> but received <%s>", kindName(n))}
	}
	pairs, err := mappingPairs(n, path)
	if err != nil {
		return FieldSpec{}, err
	}

	var nameNode, sizeNode, valuesNode *yaml.Node
	for _, kv := range pairs {
		switch kv.key {
		case "name":
			nameNode = kv.value
		case "size":
			sizeNode = kv.value
		case "values":
			valuesNode = kv.value
		default:
			return FieldSpec{}, &SpecError{Path: path, Reason: fmt.Sprintf("invalid key %q for a field", kv.key)}
		}
	}
	if nameNode == nil {
		return FieldSpec{}, &SpecError{Path: path, Reason: `property "name" is mandatory`}
	}
	if sizeNode == nil {
		return FieldSpec{}, &SpecError{Path: path, Reason: `property "size" is mandatory`}
	}

	var f FieldSpec
	if f.name, err = text(nameNode, path+".name"); err != nil {
		return FieldSpec{}, err
	}
	if f.name == "" {
		return FieldSpec{}, &SpecError{Path: path + ".name", Reason: "must not be empty"}
	}
	if _, dup := seen[f.name]; dup {
		return FieldSpec{}, &SpecError{Path: path + ".name", Reason: fmt.Sprintf("duplicate field name %q in the same list", f.name)}
	}
	if f.size, err = validateSize(sizeNode, path+".size", seen); err != nil {
		return FieldSpec{}, err
	}
	// A null values entry means no cases, the same as leaving it out.
	if valuesNode != nil && !isNull(valuesNode) {
		f.hasValues = true
		if f.cases, err = validateValues(valuesNode, path+".values"); err != nil {
			return FieldSpec{}, err
		}
	}
	return f, nil
}

func validateSize(n *yaml.Node, path string, seen map[string]struct{}) (Size, error) {
	if n.Kind != yaml.ScalarNode {
		return Size{}, &SpecError{Path: path, Reason: fmt.Sprintf("should be <text> or <number> but received <%s>", kindName(n))}
	}
	switch n.ShortTag() {
	case "!!str":
		if _, ok := seen[n.Value]; !ok {
			return Size{}, &SpecError{Path: path, Reason: fmt.Sprintf("%q should reference an earlier field in the same list, but there is none with this name", n.Value)}
		}
		return Size{ref: n.Value}, nil
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return Size{}, &SpecError{Path: path, Reason: fmt.Sprintf("size %s is not a usable integer", n.Value)}
		}
		return literalSize(v, n.Value, path)
	case "!!float":
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) || v != math.Trunc(v) {
			return Size{}, &SpecError{Path: path, Reason: fmt.Sprintf("size %s is not an integer", n.Value)}
		}
		return literalSize(int64(v), n.Value, path)
	default:
		return Size{}, &SpecError{Path: path, Reason: fmt.Sprintf("should be <text> or <number> but received <%s>", kindName(n))}
	}
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func literalSize(v int64, raw, path string) (Size, error) {
	if v < 0 {
		return Size{}, &SpecError{Path: path, Reason: fmt.Sprintf("size %s is negative", raw)}
	}
	if v > math.MaxInt32 {
		return Size{}, &SpecError{Path: path, Reason: fmt.Sprintf("size %s is too large", raw)}
	}
	return Size{bytes: int(v)}, nil
}

func validateValues(n *yaml.Node, path string) ([]ValueCase, error) {
	if n.Kind != yaml.MappingNode {
		return nil, &SpecError{Path: path, Reason: fmt.Sprintf("should be <mapping> but received <%s>", kindName(n))}
	}
	pairs, err := mappingPairs(n, path)
	if err != nil {
		return nil, err
	}
	cases := make([]ValueCase, 0, len(pairs))
	for _, kv := range pairs {
		c, err := validateCase(kv.key, kv.value, fmt.Sprintf("%s[%q]", path, kv.key))
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func validateCase(key string, n *yaml.Node, path string) (ValueCase, error) {
	if n.Kind != yaml.MappingNode {
		return ValueCase{}, &SpecError{Path: path, Reason: fmt.Sprintf("value should be <mapping> but received <%s>", kindName(n))}
	}
	pairs, err := mappingPairs(n, path)
	if err != nil {
		return ValueCase{}, err
	}

	c := ValueCase{key: key, caseType: CaseHexNumber}
	hasDescription := false
	for _, kv := range pairs {
		switch kv.key {
		case "description":
			c.description, err = text(kv.value, path+".description")
			hasDescription = true
		case "type":
			c.caseType, err = text(kv.value, path+".type")
		case "specList":
			c.fields, err = validateSpecList(kv.value, path+".specList")
		default:
			err = &SpecError{Path: path, Reason: fmt.Sprintf("invalid key %q for a value", kv.key)}
		}
		if err != nil {
			return ValueCase{}, err
		}
	}
	if !hasDescription {
		return ValueCase{}, &SpecError{Path: path, Reason: `property "description" is mandatory for values`}
	}
	return c, nil
}
