// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package main

import (
	"fmt"

	"github.com/cindertrace/axtl/pkg/transport"
)

// Layer is the subset of transport.TransportLayer[W]'s method set the
// CLI needs. Width is fixed at compile time per instantiation
// (transport.TransportLayer[uint8], [uint16], [uint32]), so picking a
// width from a runtime flag means dispatching to one of three concrete
// instantiations behind this interface rather than parameterizing a
// single call site.
type Layer interface {
	Write(data []byte, startIndex int) (int, transport.Status)
	Read(dest []byte, startIndex int) (int, transport.Status)
	Send() transport.Status
	Receive() transport.Status
	Status() transport.Status
	Stats() transport.Stats
	PayloadSize() int
	LastError() error
	Close() error
}

// openLayer opens the configured serial port and builds a TransportLayer
// over it at the width cfg.CRCWidth names.
func openLayer(cfg cliConfig) (Layer, error) {
	port, err := transport.OpenPort(portName, baudRate)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", portName, err)
	}

	switch cfg.CRCWidth {
	case 8:
		layer, err := transport.New[uint8](cfg.Config, port)
		if err != nil {
			port.Close()
			return nil, err
		}
		return layer, nil
	case 16:
		layer, err := transport.New[uint16](cfg.Config, port)
		if err != nil {
			port.Close()
			return nil, err
		}
		return layer, nil
	case 32:
		layer, err := transport.New[uint32](cfg.Config, port)
		if err != nil {
			port.Close()
			return nil, err
		}
		return layer, nil
	default:
		port.Close()
		return nil, fmt.Errorf("unsupported crc width %d (want 8, 16, or 32)", cfg.CRCWidth)
	}
}
