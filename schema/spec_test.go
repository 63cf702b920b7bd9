// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"errors"
	"os"
	"testing"

	"github.com/elliotchance/orderedmap/v3"
)

func mustReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestParseProtocolBasic(t *testing.T) {
	p, err := ParseProtocol(`{"name": "Basic Name", "version": "1.0", "specList": [{"name": "Payload", "size": 2}]}`)
	if err != nil {
		t.Fatalf("ParseProtocol: %v", err)
	}
	if p.Name() != "Basic Name" || p.Version() != "1.0" {
		t.Errorf("metadata = %q %q", p.Name(), p.Version())
	}
	if p.ByteOrder() != BigEndian {
		t.Errorf("ByteOrder() = %q, want default %q", p.ByteOrder(), BigEndian)
	}
	fields := p.Fields()
	if len(fields) != 1 {
		t.Fatalf("len(Fields()) = %d, want 1", len(fields))
	}
	if fields[0].Name() != "Payload" || fields[0].Size().IsRef() || fields[0].Size().Bytes() != 2 {
		t.Errorf("field = %q size %s", fields[0].Name(), fields[0].Size())
	}
	if fields[0].HasValues() {
		t.Errorf("HasValues() = true for a field without values")
	}
}

func TestParseProtocolFullSpec(t *testing.T) {
	p, err := ParseProtocol(mustReadFile(t, "testdata/full.json"))
	if err != nil {
		t.Fatalf("ParseProtocol: %v", err)
	}
	if p.Reference() != "https://url.for/documentation" {
		t.Errorf("Reference() = %q", p.Reference())
	}
	if p.FieldCount() != 5 {
		t.Errorf("FieldCount() = %d, want 5", p.FieldCount())
	}

	version := p.Fields()[0]
	cases := version.Cases()
	if len(cases) != 2 || cases[0].Key() != "01" || cases[1].Key() != "02" {
		t.Fatalf("cases = %+v, want keys 01, 02 in order", cases)
	}
	if cases[0].Type() != CaseHexNumber {
		t.Errorf("default case type = %q, want %q", cases[0].Type(), CaseHexNumber)
	}

	payload := cases[0].Fields()[0].Cases()
	wantKeys := []string{"AABBCCDD", "00112233", "09090909"}
	for i, c := range payload {
		if c.Key() != wantKeys[i] {
			t.Errorf("payload case %d = %q, want %q", i, c.Key(), wantKeys[i])
		}
	}

	data := cases[1].Fields()[1]
	if !data.Size().IsRef() || data.Size().Ref() != "Payload Size" {
		t.Errorf("Payload Data size = %s, want reference to Payload Size", data.Size())
	}
}

func TestParseProtocolYAML(t *testing.T) {
	p, err := ParseProtocol(mustReadFile(t, "testdata/sensor.yaml"))
	if err != nil {
		t.Fatalf("ParseProtocol: %v", err)
	}
	if p.Name() != "Sensor Frame" || p.Version() != "2.1" {
		t.Errorf("metadata = %q %q", p.Name(), p.Version())
	}
	cases := p.Fields()[0].Cases()
	if len(cases) != 2 || cases[0].Key() != "1" || cases[1].Key() != "0x0F" {
		t.Fatalf("cases = %+v", cases)
	}
	status := cases[1].Fields()[0].Cases()
	if status[0].Key() != "BEEF" || status[0].Type() != CaseString {
		t.Errorf("status case = %q type %q", status[0].Key(), status[0].Type())
	}
}

func TestValidateAcceptsIntegralFloatSize(t *testing.T) {
	p, err := Validate(`{"specList": [{"name": "A", "size": 2.0}]}`)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := p.Fields()[0].Size().Bytes(); got != 2 {
		t.Errorf("size = %d, want 2", got)
	}
}

func TestValidateWithoutSpecList(t *testing.T) {
	p, err := Validate(`{"name": "Empty"}`)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(p.Fields()) != 0 {
		t.Errorf("Fields() = %v, want none", p.Fields())
	}
}

func TestValidateNullValues(t *testing.T) {
	docs := []string{
		`{"specList": [{"name": "A", "size": 1, "values": null}, {"name": "B", "size": 1}]}`,
		"specList:\n  - name: A\n    size: 1\n    values:\n  - name: B\n    size: 1\n",
	}
	for _, doc := range docs {
		p, err := Validate(doc)
		if err != nil {
			t.Fatalf("Validate(%q): %v", doc, err)
		}
		f := p.Fields()[0]
		if f.HasValues() || len(f.Cases()) != 0 {
			t.Errorf("HasValues() = %v, Cases() = %v; want no cases", f.HasValues(), f.Cases())
		}

		var rec Recorder
		out := p.Decode("ff01", &rec)
		if !out.Complete() {
			t.Errorf("Decode() = %+v, want complete", out)
		}
		if out.Descriptions != 0 {
			t.Errorf("Descriptions = %d, want 0", out.Descriptions)
		}
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
	}{
		{"empty document", ``, ""},
		{"malformed", `{"name":`, ""},
		{"root list", `[]`, ""},
		{"unknown top-level key", `{"name": "x", "foo": 1}`, ""},
		{"name not text", `{"name": 1}`, "name"},
		{"version not text", `{"version": 1.0}`, "version"},
		{"reference not text", `{"reference": []}`, "reference"},
		{"specList not a list", `{"specList": {}}`, "specList"},
		{"unknown byte order", `{"byteOrder": "MiddleEndian"}`, "byteOrder"},
		{"field not a mapping", `{"specList": ["a"]}`, "specList[0]"},
		{"missing name", `{"specList": [{"size": 1}]}`, "specList[0]"},
		{"missing size", `{"specList": [{"name": "a"}]}`, "specList[0]"},
		{"empty name", `{"specList": [{"name": "", "size": 1}]}`, "specList[0].name"},
		{"negative size", `{"specList": [{"name": "a", "size": -1}]}`, "specList[0].size"},
		{"fractional size", `{"specList": [{"name": "a", "size": 1.5}]}`, "specList[0].size"},
		{"huge size", `{"specList": [{"name": "a", "size": 99999999999}]}`, "specList[0].size"},
		{"boolean size", `{"specList": [{"name": "a", "size": true}]}`, "specList[0].size"},
		{"alias cycle", "specList: &l\n  - name: a\n    size: 1\n    values:\n      \"01\": {description: x, specList: *l}\n", `specList[0].values["01"].specList`},
		{"forward reference", `{"specList": [{"name": "b", "size": "a"}, {"name": "a", "size": 1}]}`, "specList[0].size"},
		{"self reference", `{"specList": [{"name": "a", "size": "a"}]}`, "specList[0].size"},
		{"missing reference", `{"specList": [{"name": "a", "size": 1}, {"name": "b", "size": "c"}]}`, "specList[1].size"},
		{
			"cross-scope reference",
			`{"specList": [{"name": "Len", "size": 1, "values": {"01": {"description": "x", "specList": [{"name": "Data", "size": "Len"}]}}}]}`,
			`specList[0].values["01"].specList[0].size`,
		},
		{"duplicate sibling", `{"specList": [{"name": "a", "size": 1}, {"name": "a", "size": 2}]}`, "specList[1].name"},
		{"duplicate key", `{"specList": [{"name": "a", "size": 1, "size": 2}]}`, "specList[0]"},
		{"unknown field key", `{"specList": [{"name": "a", "size": 1, "kind": "x"}]}`, "specList[0]"},
		{"values not a mapping", `{"specList": [{"name": "a", "size": 1, "values": []}]}`, "specList[0].values"},
		{"case not a mapping", `{"specList": [{"name": "a", "size": 1, "values": {"01": "x"}}]}`, `specList[0].values["01"]`},
		{"missing description", `{"specList": [{"name": "a", "size": 1, "values": {"01": {}}}]}`, `specList[0].values["01"]`},
		{"description not text", `{"specList": [{"name": "a", "size": 1, "values": {"01": {"description": 5}}}]}`, `specList[0].values["01"].description`},
		{"type not text", `{"specList": [{"name": "a", "size": 1, "values": {"01": {"description": "x", "type": 1}}}]}`, `specList[0].values["01"].type`},
		{"unknown case key", `{"specList": [{"name": "a", "size": 1, "values": {"01": {"description": "x", "extra": 1}}}]}`, `specList[0].values["01"]`},
		{"case specList not a list", `{"specList": [{"name": "a", "size": 1, "values": {"01": {"description": "x", "specList": 3}}}]}`, `specList[0].values["01"].specList`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Validate(tt.doc)
			if err == nil {
				t.Fatalf("Validate() = %+v, want error", p)
			}
			if p != nil {
				t.Errorf("Validate() returned a protocol alongside %v", err)
			}
			if !errors.Is(err, ErrSpec) {
				t.Errorf("error %v does not match ErrSpec", err)
			}
			var se *SpecError
			if !errors.As(err, &se) {
				t.Fatalf("error %T is not a *SpecError", err)
			}
			if se.Path != tt.path {
				t.Errorf("Path = %q, want %q (reason: %s)", se.Path, tt.path, se.Reason)
			}
		})
	}
}

func TestValidateCopiesDocument(t *testing.T) {
	field := map[string]any{"name": "A", "size": 1}
	doc := map[string]any{
		"name":     "Mutable",
		"specList": []any{field},
	}
	p, err := Validate(doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}

	doc["name"] = "Changed"
	field["size"] = 5
	field["name"] = "B"

	if p.Name() != "Mutable" {
		t.Errorf("Name() = %q after mutating the source", p.Name())
	}
	f := p.Fields()[0]
	if f.Name() != "A" || f.Size().Bytes() != 1 {
		t.Errorf("field = %q size %s after mutating the source", f.Name(), f.Size())
	}

	fields := p.Fields()
	fields[0] = FieldSpec{}
	if p.Fields()[0].Name() != "A" {
		t.Errorf("mutating Fields() result changed the protocol")
	}
}

func TestValidateOrderedMapKeepsCaseOrder(t *testing.T) {
	values := orderedmap.NewOrderedMap[string, any]()
	values.Set("1", map[string]any{"description": "short"})
	values.Set("01", map[string]any{"description": "long"})

	field := orderedmap.NewOrderedMap[string, any]()
	field.Set("name", "Kind")
	field.Set("size", 1)
	field.Set("values", values)

	doc := orderedmap.NewOrderedMap[string, any]()
	doc.Set("name", "Ordered")
	doc.Set("specList", []any{field})

	p, err := Validate(doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	cases := p.Fields()[0].Cases()
	if len(cases) != 2 || cases[0].Key() != "1" || cases[1].Key() != "01" {
		t.Errorf("case keys = %q, %q; want 1, 01", cases[0].Key(), cases[1].Key())
	}
}

func TestValidatePlainMapSortsCaseKeys(t *testing.T) {
	doc := map[string]any{
		"specList": []any{map[string]any{
			"name": "Kind",
			"size": 1,
			"values": map[string]any{
				"1":  map[string]any{"description": "short"},
				"01": map[string]any{"description": "long"},
			},
		}},
	}
	p, err := Validate(doc)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	cases := p.Fields()[0].Cases()
	if cases[0].Key() != "01" || cases[1].Key() != "1" {
		t.Errorf("case keys = %q, %q; want 01, 1", cases[0].Key(), cases[1].Key())
	}
}
