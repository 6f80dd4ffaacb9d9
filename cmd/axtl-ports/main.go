// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Command axtl-ports lists the serial ports visible to the OS.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial/enumerator"
)

var rootCmd = &cobra.Command{
	Use:     "axtl-ports",
	Short:   "List available serial ports",
	Version: "1.0.0",
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return fmt.Errorf("enumerating serial ports: %w", err)
	}

	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}

	for _, p := range ports {
		if p.IsUSB {
			fmt.Printf("%s  USB VID:PID=%s:%s", p.Name, p.VID, p.PID)
			if p.Product != "" {
				fmt.Printf(" product=%q", p.Product)
			}
			if p.SerialNumber != "" {
				fmt.Printf(" serial=%q", p.SerialNumber)
			}
			fmt.Println()
		} else {
			fmt.Println(p.Name)
		}
	}

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
