// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the protocols named in the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadedConfig()
			if err != nil {
				return err
			}
			reg, err := cfg.Registry()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if a.jsonOut {
				type entry struct {
					Name    string `json:"name"`
					Default bool   `json:"default"`
					Version string `json:"version,omitempty"`
				}
				entries := make([]entry, 0, len(reg.Names()))
				for _, name := range reg.Names() {
					p, _ := reg.Get(name)
					entries = append(entries, entry{Name: name, Default: name == cfg.Default, Version: p.Version()})
				}
				return printJSON(w, entries)
			}
			for _, name := range reg.Names() {
				p, _ := reg.Get(name)
				marker := " "
				if name == cfg.Default {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %s\t%s\n", marker, name, p.Version())
			}
			return nil
		},
	}
}
