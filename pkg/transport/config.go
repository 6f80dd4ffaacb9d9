// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the immutable parameters a TransportLayer is
// constructed from. Zero Config is not valid; build one from
// DefaultConfig or LoadConfig.
type Config struct {
	StartByte            byte   `yaml:"start_byte"`
	Delimiter            byte   `yaml:"delimiter"`
	// CRC parameters are kept at 32-bit width regardless of the engine
	// width a TransportLayer is instantiated with; New truncates them
	// to W via an explicit conversion, so a CRC-32 polynomial works
	// equally well as a CRC-8 or CRC-16 one.
	Polynomial           uint32 `yaml:"crc_polynomial"`
	InitialValue         uint32 `yaml:"crc_initial"`
	FinalXOR             uint32 `yaml:"crc_final_xor"`
	TimeoutMicros        int    `yaml:"timeout_us"`
	AllowStartByteErrors bool   `yaml:"allow_start_byte_errors"`
	MaxPayloadSize       int    `yaml:"max_payload_size"`
	DeviceBufferSize     int    `yaml:"device_buffer_size"`
}

// DefaultConfig returns the parameters the reference firmware expects:
// CRC-16 CCITT-FALSE, start byte 129, zero delimiter, 20ms inter-byte
// timeout.
func DefaultConfig() Config {
	c := Config{
		StartByte:            129,
		Delimiter:            0x00,
		Polynomial:           0x1021,
		InitialValue:         0xFFFF,
		FinalXOR:             0x0000,
		TimeoutMicros:        20000,
		AllowStartByteErrors: false,
		MaxPayloadSize:       maxPayloadSize,
	}
	c.DeviceBufferSize = c.MaxPayloadSize + 2 + 2 // overhead+delimiter, CRC-16 postamble
	return c
}

// LoadConfig reads a YAML document at path and overlays it onto
// DefaultConfig. A field absent from the file keeps its default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("transport: reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("transport: parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate reports whether the configuration is internally consistent
// for constructing a TransportLayer.
func (c Config) Validate() error {
	if c.MaxPayloadSize < minPayloadSize || c.MaxPayloadSize > maxPayloadSize {
		return fmt.Errorf("transport: max payload size %d out of range [%d, %d]", c.MaxPayloadSize, minPayloadSize, maxPayloadSize)
	}
	if c.TimeoutMicros <= 0 {
		return fmt.Errorf("transport: timeout_us must be positive, got %d", c.TimeoutMicros)
	}
	return nil
}
