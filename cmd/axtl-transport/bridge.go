// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/cindertrace/axtl/pkg/transport"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

var bridgeListen string

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Mirror a port's raw byte stream over a WebSocket",
	Long: `Open the serial port and mirror its raw byte stream over a
WebSocket server, for a remote monitor to attach to. No framing is
injected by the bridge itself - bytes go through exactly as the port
produced and accepted them.`,
	RunE: runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)
	bridgeCmd.Flags().StringVar(&bridgeListen, "listen", ":8900", "Address to listen on for the WebSocket bridge")
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func runBridge(cmd *cobra.Command, args []string) error {
	port, err := transport.OpenPort(portName, baudRate)
	if err != nil {
		return fmt.Errorf("opening serial port %s: %w", portName, err)
	}
	defer port.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("bridge: upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		bridgeSession(port, conn)
	})

	fmt.Printf("axtl-transport bridge - port %s @ %d baud, listening on %s\n", portName, baudRate, bridgeListen)
	return http.ListenAndServe(bridgeListen, mux)
}

// bridgeSession pumps bytes between the serial port and one WebSocket
// client until either side closes. Every connecting client gets its
// own bridgeSession; concurrent sessions share the port without
// coordination, so with more than one client attached they race for
// inbound bytes and each byte reaches only the session that read it.
func bridgeSession(port transport.Port, conn *websocket.Conn) {
	done := make(chan struct{})
	stop := make(chan struct{})

	go func() {
		defer close(done)
		// Closing conn unblocks the ReadMessage loop below when the
		// port side ends first.
		defer conn.Close()
		var buf []byte
		for {
			select {
			case <-stop:
				return
			default:
			}
			b, ok, err := port.ReadOne()
			if err != nil {
				log.Printf("bridge: port read: %v", err)
				return
			}
			if !ok {
				if len(buf) > 0 {
					if err := conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
						return
					}
					buf = buf[:0]
				}
				continue
			}
			buf = append(buf, b)
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		if err := port.WriteAll(data); err != nil {
			log.Printf("bridge: port write: %v", err)
			break
		}
	}

	close(stop)
	<-done
}
