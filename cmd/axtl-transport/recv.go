// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"

	"github.com/cindertrace/axtl/pkg/transport"
	"github.com/spf13/cobra"
)

var recvOnce bool

var recvCmd = &cobra.Command{
	Use:   "recv",
	Short: "Loop receiving frames and print each payload",
	Long: `Loop calling Receive, printing each decoded payload as hex along
with the resulting Status. Runs until interrupted, unless --once is
given.`,
	RunE: runRecv,
}

func init() {
	rootCmd.AddCommand(recvCmd)
	recvCmd.Flags().BoolVar(&recvOnce, "once", false, "Stop after the first received frame")
}

func runRecv(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("axtl-transport recv - port %s @ %d baud\n", portName, baudRate)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for {
		st := layer.Receive()
		if !st.Ok() {
			if err := layer.LastError(); err != nil {
				log.Printf("recv: %s (%v)", st, err)
			} else {
				log.Printf("recv: %s", st)
			}
			// An empty line is not a frame: keep polling.
			noFrame := st == transport.StatusNoBytesToParseFromBuffer || st == transport.StatusPacketStartByteNotFoundError
			if recvOnce && !noFrame {
				os.Exit(1)
			}
			continue
		}

		buf := make([]byte, layer.PayloadSize())
		if _, readSt := layer.Read(buf, 0); !readSt.Ok() {
			log.Printf("read staged payload: %s", readSt)
			continue
		}

		fmt.Printf("%s  %s\n", st, hex.EncodeToString(buf))
		if recvOnce {
			return nil
		}
	}
}
