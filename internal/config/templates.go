// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"os"
)

func Template() string {
	return configTemplate
}

// WriteTemplate writes the starter config to path, refusing to replace an
// existing file unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(configTemplate), 0o600)
}

const configTemplate = `# protocoler configuration
default = "sensor"

[log]
level = "info"
timestamp = true
no_color = false

[[specs]]
name = "sensor"
path = "specs/sensor.yaml"
`
