// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package main

import (
	"fmt"
	"os"

	"github.com/cindertrace/axtl/pkg/transport"
	"gopkg.in/yaml.v3"
)

// cliConfig layers a CRC width selection on top of transport.Config.
// The library's Config carries CRC parameters but not which engine
// width they belong to - that's only fixed once a TransportLayer is
// instantiated, which happens at the CLI layer once a width is known.
type cliConfig struct {
	transport.Config `yaml:",inline"`
	CRCWidth         int `yaml:"crc_width"`
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		Config:   transport.DefaultConfig(),
		CRCWidth: 16,
	}
}

func loadCLIConfig(path string) (cliConfig, error) {
	cfg := defaultCLIConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cliConfig{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
