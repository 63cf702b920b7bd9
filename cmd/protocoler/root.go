// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/MultiTechSystems/protocoler/internal/config"
	"github.com/MultiTechSystems/protocoler/internal/logging"
)

// app carries the global flags and the loaded config for one command run.
type app struct {
	verbose    bool
	jsonOut    bool
	noColor    bool
	configPath string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "protocoler",
		Short: "Decode binary payloads with declarative protocol documents",
		Long: `protocoler dissects hex-encoded binary payloads using a protocol document
(JSON or YAML) that lists the fields, their sizes and the value cases that
select nested layouts.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	// Global flags
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default ./"+config.DefaultFile+" when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "Output in JSON format")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored log output")

	root.AddCommand(
		newDecodeCmd(a),
		newValidateCmd(a),
		newListCmd(a),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads the config and installs the logger. Precedence is flags, then
// environment, then config file, then the runtime profile.
func (a *app) setup() error {
	opts := logging.DefaultOptions(logging.ProfileRuntime)

	path := a.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultFile); err == nil {
			path = config.DefaultFile
		}
	}
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		a.cfg = &cfg
		cfg.Apply(&opts)
	}

	logging.ApplyEnv(&opts)
	if a.verbose {
		opts.Level = zerolog.DebugLevel
	}
	if a.noColor {
		opts.NoColor = true
	}
	logging.Apply(opts)
	log.Debug().Str("config", path).Msg("protocoler: configured")
	return nil
}

var errNoConfig = errors.New("no config loaded (use --config or create " + config.DefaultFile + ")")

func (a *app) loadedConfig() (*config.Config, error) {
	if a.cfg == nil {
		return nil, errNoConfig
	}
	return a.cfg, nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
