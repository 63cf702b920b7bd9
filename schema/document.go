// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
	"gopkg.in/yaml.v3"
)

// keyValue is one entry of a mapping node, in document order.
type keyValue struct {
	key   string
	value *yaml.Node
}

// documentNode turns any accepted document form into the root yaml.Node.
// Validation always walks nodes so value cases keep their declared order.
func documentNode(doc any) (*yaml.Node, error) {
	switch v := doc.(type) {
	case string:
		return parseDocument([]byte(v))
	case []byte:
		return parseDocument(v)
	case yaml.Node:
		return rootNode(&v)
	case *yaml.Node:
		return rootNode(v)
	default:
		return toNode(doc)
	}
}

func parseDocument(data []byte) (*yaml.Node, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		// Some JSON (tab indentation) is not valid YAML.
		jn, jerr := parseJSONNode(data)
		if jerr != nil {
			return nil, &SpecError{Reason: fmt.Sprintf("failed to parse document: %v", err)}
		}
		return jn, nil
	}
	return rootNode(&node)
}

func rootNode(n *yaml.Node) (*yaml.Node, error) {
	if n == nil {
		return nil, &SpecError{Reason: "empty document"}
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, &SpecError{Reason: "empty document"}
		}
		n = n.Content[0]
	}
	if n.Kind == 0 {
		return nil, &SpecError{Reason: "empty document"}
	}
	return n, nil
}

// parseJSONNode builds a node tree from JSON tokens so object key order survives.
func parseJSONNode(data []byte) (*yaml.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := jsonValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after JSON document")
	}
	return n, nil
}

func jsonValue(dec *json.Decoder) (*yaml.Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				v, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, strNode(key), v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for dec.More() {
				v, err := jsonValue(dec)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return strNode(t), nil
	case json.Number:
		return numberNode(t.String()), nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t)}, nil
	case nil:
		return nullNode(), nil
	}
	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}

// toNode converts decoded Go values into a node tree.
func toNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return nullNode(), nil
	case *yaml.Node:
		return rootNode(t)
	case string:
		return strNode(t), nil
	case json.Number:
		return numberNode(t.String()), nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range t {
			c, err := toNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, c)
		}
		return n, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			c, err := toNode(t[k])
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, strNode(k), c)
		}
		return n, nil
	case *orderedmap.OrderedMap[string, any]:
		if t == nil {
			return nullNode(), nil
		}
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for el := t.Front(); el != nil; el = el.Next() {
			c, err := toNode(el.Value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, strNode(el.Key), c)
		}
		return n, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(v); err != nil {
			return nil, &SpecError{Reason: fmt.Sprintf("unsupported document value %T: %v", v, err)}
		}
		return n, nil
	}
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func numberNode(s string) *yaml.Node {
	tag := "!!int"
	if strings.ContainsAny(s, ".eE") {
		tag = "!!float"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: s}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// mappingPairs returns the entries of a mapping node, rejecting duplicate keys.
func mappingPairs(n *yaml.Node, path string) ([]keyValue, error) {
	pairs := make([]keyValue, 0, len(n.Content)/2)
	seen := make(map[string]struct{}, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if k.Kind != yaml.ScalarNode {
			return nil, &SpecError{Path: path, Reason: fmt.Sprintf("mapping keys should be scalars, received <%s>", kindName(k))}
		}
		if _, dup := seen[k.Value]; dup {
			return nil, &SpecError{Path: path, Reason: fmt.Sprintf("duplicate key %q", k.Value)}
		}
		seen[k.Value] = struct{}{}
		pairs = append(pairs, keyValue{key: k.Value, value: n.Content[i+1]})
	}
	return pairs, nil
}

func text(n *yaml.Node, path string) (string, error) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!str" {
		return "", &SpecError{Path: path, Reason: fmt.Sprintf("should be <text> but received <%s>", kindName(n))}
	}
	return n.Value, nil
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!str":
			return "text"
		case "!!int", "!!float":
			return "number"
		case "!!bool":
			return "boolean"
		case "!!null":
			return "null"
		default:
			return n.ShortTag()
		}
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "list"
	case yaml.AliasNode:
		// Aliases are not expanded: they could form cycles.
		return "alias"
	}
	return "unknown"
}
