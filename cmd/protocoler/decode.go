// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elliotchance/orderedmap/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/MultiTechSystems/protocoler/events"
	"github.com/MultiTechSystems/protocoler/schema"
)

var errDecodeFailed = errors.New("decode failed")

type decodeOptions struct {
	specFile string
	name     string
	base64   bool
}

func newDecodeCmd(a *app) *cobra.Command {
	var opts decodeOptions
	cmd := &cobra.Command{
		Use:   "decode [payload]",
		Short: "Decode a payload with a protocol document",
		Long: `The decode command walks a protocol document over a payload and prints
every decoded field with the description of the value case it matched.

The payload is hex (an optional 0x prefix is accepted) or, with --base64,
standard base64. It is read from stdin when no argument is given.

Example:
  protocoler decode --spec sensor.yaml 0x0102aabb
  protocoler decode --name sensor --base64 AQKquw==
  echo 0102aabb | protocoler decode --spec sensor.yaml --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, a, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.specFile, "spec", "s", "", "Protocol document (JSON or YAML)")
	cmd.Flags().StringVarP(&opts.name, "name", "n", "", "Configured protocol name (default: the config default)")
	cmd.Flags().BoolVar(&opts.base64, "base64", false, "Payload is base64 instead of hex")
	return cmd
}

// decodedField is one value event with the description of the case it matched.
type decodedField struct {
	name        string
	value       string
	description string
	matched     bool
}

func runDecode(cmd *cobra.Command, a *app, opts decodeOptions, args []string) error {
	input, err := readPayload(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if opts.base64 {
		if input, err = base64ToHex(input); err != nil {
			return err
		}
	}
	p, err := resolveProtocol(a, opts)
	if err != nil {
		return err
	}

	runID := uuid.New()
	logger := log.With().Str("run", runID.String()).Str("protocol", p.Name()).Logger()
	logger.Debug().Int("digits", len(input)).Msg("protocoler: decode start")

	var fields []decodedField
	emitter := events.NewEmitter()
	if _, err := emitter.On(schema.EventValue, func(ev schema.Event) {
		fields = append(fields, decodedField{name: ev.Name, value: ev.Value})
	}); err != nil {
		return err
	}
	if _, err := emitter.On(schema.EventDescription, func(ev schema.Event) {
		// A description always follows the value that selected it.
		if n := len(fields); n > 0 {
			fields[n-1].description = ev.Description
			fields[n-1].matched = true
		}
	}); err != nil {
		return err
	}
	if _, err := emitter.On(schema.EventError, func(ev schema.Event) {
		logger.Debug().Err(ev.Err).Str("trailing", ev.Trailing).Msg("protocoler: decode reported")
	}); err != nil {
		return err
	}

	out := p.Decode(input, emitter)
	logger.Info().
		Bool("ok", out.OK()).
		Int("values", out.Values).
		Int("trailing_digits", len(out.Trailing)).
		Msg("protocoler: decode done")

	w := cmd.OutOrStdout()
	if a.jsonOut {
		if err := writeOrderedJSON(w, decodeSummary(runID, p, fields, out)); err != nil {
			return err
		}
	} else {
		printDecode(w, p, fields, out)
	}
	if !out.OK() {
		return fmt.Errorf("%w: %v", errDecodeFailed, out.Err)
	}
	return nil
}

func readPayload(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read payload: %w", err)
	}
	payload := strings.TrimSpace(string(data))
	if payload == "" {
		return "", fmt.Errorf("no payload given")
	}
	return payload, nil
}

// base64ToHex accepts padded or unpadded standard base64.
func base64ToHex(s string) (string, error) {
	s = strings.TrimSpace(s)
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var rawErr error
		if data, rawErr = base64.RawStdEncoding.DecodeString(s); rawErr != nil {
			return "", fmt.Errorf("%w: payload is not base64: %v", schema.ErrInvalidFormat, err)
		}
	}
	return hex.EncodeToString(data), nil
}

func resolveProtocol(a *app, opts decodeOptions) (*schema.Protocol, error) {
	if opts.specFile != "" {
		if opts.name != "" {
			return nil, fmt.Errorf("--spec and --name are mutually exclusive")
		}
		return loadProtocolFile(opts.specFile)
	}
	cfg, err := a.loadedConfig()
	if err != nil {
		return nil, fmt.Errorf("no --spec given and %w", err)
	}
	entry, ok := cfg.Spec(opts.name)
	if !ok {
		if opts.name == "" {
			return nil, fmt.Errorf("config has no default spec; use --name")
		}
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownProtocol, opts.name)
	}
	return loadProtocolFile(entry.Path)
}

func loadProtocolFile(path string) (*schema.Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spec: %w", err)
	}
	p, err := schema.Validate(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func printDecode(w io.Writer, p *schema.Protocol, fields []decodedField, out schema.Outcome) {
	title := p.Name()
	if title == "" {
		title = "(unnamed protocol)"
	}
	if p.Version() != "" {
		title += " v" + p.Version()
	}
	fmt.Fprintf(w, "%s\n\n", title)
	for _, f := range fields {
		if f.matched {
			fmt.Fprintf(w, "  %s = %s (%s)\n", f.name, f.value, f.description)
		} else {
			fmt.Fprintf(w, "  %s = %s\n", f.name, f.value)
		}
	}
	switch {
	case !out.OK():
		fmt.Fprintf(w, "\n✗ %v\n", out.Err)
		if out.Trailing != "" {
			fmt.Fprintf(w, "  undecoded: %s\n", out.Trailing)
		}
	case out.Trailing != "":
		fmt.Fprintf(w, "\n! trailing data: %s\n", out.Trailing)
	default:
		fmt.Fprintf(w, "\n✓ decoded %d fields\n", len(fields))
	}
}

func decodeSummary(runID uuid.UUID, p *schema.Protocol, fields []decodedField, out schema.Outcome) *orderedmap.OrderedMap[string, any] {
	summary := orderedmap.NewOrderedMap[string, any]()
	summary.Set("run", runID.String())
	summary.Set("protocol", p.Name())
	summary.Set("version", p.Version())
	summary.Set("ok", out.OK())
	summary.Set("complete", out.Complete())

	list := make([]any, 0, len(fields))
	for _, f := range fields {
		entry := orderedmap.NewOrderedMapWithCapacity[string, any](3)
		entry.Set("name", f.name)
		entry.Set("value", f.value)
		if f.matched {
			entry.Set("description", f.description)
		}
		list = append(list, entry)
	}
	summary.Set("fields", list)

	if out.Trailing != "" {
		summary.Set("trailing", out.Trailing)
	}
	if out.Err != nil {
		summary.Set("error", out.Err.Error())
	}
	return summary
}

// writeOrderedJSON writes v as indented JSON, keeping ordered map keys in insertion order.
func writeOrderedJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	if err := encodeOrdered(&buf, v); err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := w.Write(out.Bytes())
	return err
}

func encodeOrdered(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case *orderedmap.OrderedMap[string, any]:
		buf.WriteByte('{')
		first := true
		for el := t.Front(); el != nil; el = el.Next() {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			key, err := json.Marshal(el.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := encodeOrdered(buf, el.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeOrdered(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(data)
	}
	return nil
}
