// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MultiTechSystems/protocoler/schema"
)

var errInvalidSpecs = errors.New("one or more protocol documents are invalid")

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <spec>...",
		Short: "Validate protocol documents",
		Long: `The validate command checks protocol documents against the document
grammar and reports the first problem found in each, with its location.

Example:
  protocoler validate sensor.yaml
  protocoler validate specs/*.json --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, a, args)
		},
	}
}

type validateResult struct {
	File     string `json:"file"`
	Valid    bool   `json:"valid"`
	Name     string `json:"name,omitempty"`
	Version  string `json:"version,omitempty"`
	Fields   int    `json:"fields,omitempty"`
	Location string `json:"location,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runValidate(cmd *cobra.Command, a *app, files []string) error {
	results := make([]validateResult, 0, len(files))
	failed := false
	for _, file := range files {
		res := validateResult{File: file}
		p, err := loadProtocolFile(file)
		if err != nil {
			failed = true
			res.Error = err.Error()
			var se *schema.SpecError
			if errors.As(err, &se) {
				res.Location = se.Path
			}
		} else {
			res.Valid = true
			res.Name = p.Name()
			res.Version = p.Version()
			res.Fields = p.FieldCount()
		}
		results = append(results, res)
	}

	w := cmd.OutOrStdout()
	if a.jsonOut {
		if err := printJSON(w, results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Valid {
				fmt.Fprintf(w, "✓ %s: %q version %q, %d fields\n", res.File, res.Name, res.Version, res.Fields)
			} else {
				fmt.Fprintf(w, "✗ %s\n", res.Error)
			}
		}
	}
	if failed {
		return errInvalidSpecs
	}
	return nil
}
