// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var sendHex string

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Stage a payload and send one frame",
	Long: `Stage the given bytes and emit one wire frame: start byte,
payload-size byte, COBS-encoded packet, and CRC postamble.

Exit codes:
  0 - frame sent
  1 - payload rejected or send failed
  2 - connection error`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendHex, "hex", "", "Payload bytes as hex, e.g. 01020304 (required)")
	sendCmd.MarkFlagRequired("hex")
}

func runSend(cmd *cobra.Command, args []string) error {
	payload, err := hex.DecodeString(sendHex)
	if err != nil {
		return fmt.Errorf("--hex: %w", err)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	layer, err := openLayer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection error: %v\n", err)
		os.Exit(2)
	}
	defer layer.Close()

	if _, st := layer.Write(payload, 0); !st.Ok() {
		fmt.Printf("write failed: %s\n", st)
		os.Exit(1)
	}

	st := layer.Send()
	fmt.Printf("send: %s\n", st)
	if !st.Ok() {
		if err := layer.LastError(); err != nil {
			fmt.Printf("underlying error: %v\n", err)
		}
		os.Exit(1)
	}

	return nil
}
