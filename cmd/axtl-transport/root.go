// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package main

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	portName   string
	baudRate   int
	configPath string

	// Config overrides; only applied when the user actually set the flag.
	crcWidthFlag int
	timeoutFlag  int
	maxPayload   int
)

var rootCmd = &cobra.Command{
	Use:     "axtl-transport",
	Short:   "Exercise the axtl serial transport layer",
	Version: "1.0.0",
	Long: `axtl-transport is a developer harness for the axtl serial transport
layer: stage and send raw frames, loop receiving them, watch live
traffic in a terminal UI, or mirror a port's byte stream over a
WebSocket for a remote monitor to attach to.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device (required)")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file with transport defaults")
	rootCmd.PersistentFlags().IntVar(&crcWidthFlag, "crc-width", 16, "CRC width: 8, 16, or 32")
	rootCmd.PersistentFlags().IntVar(&timeoutFlag, "timeout-us", 0, "Inter-byte timeout override, in microseconds")
	rootCmd.PersistentFlags().IntVar(&maxPayload, "max-payload", 0, "Maximum payload size override")
	rootCmd.MarkPersistentFlagRequired("port")
}

// resolveConfig merges the YAML-loaded config (if --config was given)
// with any override flags the user actually set, flags winning.
func resolveConfig(cmd *cobra.Command) (cliConfig, error) {
	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		return cliConfig{}, err
	}
	if cmd.Flags().Changed("crc-width") {
		cfg.CRCWidth = crcWidthFlag
	}
	if cmd.Flags().Changed("timeout-us") {
		cfg.TimeoutMicros = timeoutFlag
	}
	if cmd.Flags().Changed("max-payload") {
		cfg.MaxPayloadSize = maxPayload
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
