// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"time"
	"unsafe"
)

// Stats counts outcomes across the lifetime of a TransportLayer. It
// exists for observability only; nothing in the state machine reads
// these counters back.
type Stats struct {
	Sent           uint64
	Received       uint64
	CRCFailures    uint64
	Timeouts       uint64
	ResyncDiscards uint64
	DecodeFailures uint64
}

// TransportLayer implements the packet construction/parsing state
// machine over a Port, using a COBS codec and a CRC engine of width W.
// One instance owns its staging buffers and its Port exclusively; it
// is not safe for concurrent use, and two instances must never share
// a Port.
type TransportLayer[W Width] struct {
	cfg  Config
	port Port
	crc  *Engine[W]

	txBuf     []byte
	txTracker int

	rxBuf     []byte
	rxTracker int

	status Status
	stats  Stats
	ioErr  error
}

// New constructs a TransportLayer bound to port, using cfg's CRC
// parameters truncated to W's width. Staging buffers are sized once
// from cfg.MaxPayloadSize and never grow.
func New[W Width](cfg Config, port Port) (*TransportLayer[W], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := NewEngine[W](W(cfg.Polynomial), W(cfg.InitialValue), W(cfg.FinalXOR))
	bufSize := cfg.MaxPayloadSize + 2 + engine.ByteWidth()

	return &TransportLayer[W]{
		cfg:   cfg,
		port:  port,
		crc:   engine,
		txBuf: make([]byte, bufSize),
		rxBuf: make([]byte, bufSize),
	}, nil
}

// Status returns the status code left by the most recently completed
// operation.
func (t *TransportLayer[W]) Status() Status { return t.status }

// Stats returns a snapshot of the outcome counters.
func (t *TransportLayer[W]) Stats() Stats { return t.stats }

// PayloadSize returns the number of bytes currently staged for
// reading: the decoded payload size left by the last successful
// Receive, or 0 after ResetReceive. A schema-less caller reads exactly
// this many bytes rather than guessing at cfg.MaxPayloadSize.
func (t *TransportLayer[W]) PayloadSize() int { return t.rxTracker }

// Close releases the underlying port.
func (t *TransportLayer[W]) Close() error { return t.port.Close() }

func (t *TransportLayer[W]) fail(s Status) Status {
	t.status = s
	return s
}

// LastError returns the port error, if any, recorded during the most
// recent Send or Receive; it is nil when that call met no port error.
// Status alone cannot distinguish "the link went quiet" from "the OS
// handle errored out from under us"; this recovers that detail.
func (t *TransportLayer[W]) LastError() error { return t.ioErr }

// ResetSend clears the transmission staging buffer and tracker without
// sending anything.
func (t *TransportLayer[W]) ResetSend() {
	t.txBuf[0] = 0
	t.txTracker = 0
}

// ResetReceive clears the reception staging buffer and tracker.
func (t *TransportLayer[W]) ResetReceive() {
	t.rxBuf[0] = 0
	t.rxTracker = 0
}

// Write copies the bytes of data into the transmission payload region
// starting at payload offset startIndex (buffer index startIndex+1)
// and returns the next free offset. The tracker is raised to
// max(tracker, startIndex+len(data)); it never shrinks when an
// overwrite touches only already-staged bytes.
func (t *TransportLayer[W]) Write(data []byte, startIndex int) (int, Status) {
	byteCount := len(data)
	if startIndex < 0 || startIndex+byteCount > t.cfg.MaxPayloadSize {
		return startIndex, t.fail(StatusWritePayloadTooSmallError)
	}

	copy(t.txBuf[startIndex+1:startIndex+1+byteCount], data)

	next := startIndex + byteCount
	if next > t.txTracker {
		t.txTracker = next
	}
	return next, t.fail(StatusPacketSent)
}

// Read copies len(dest) bytes from the reception payload region
// starting at offset startIndex into dest. The read may not extend
// past the staged payload tracker, so a caller can never observe stale
// bytes left over from a prior receive.
func (t *TransportLayer[W]) Read(dest []byte, startIndex int) (int, Status) {
	byteCount := len(dest)
	if startIndex < 0 || startIndex+byteCount > t.rxTracker {
		return startIndex, t.fail(StatusReadPayloadTooSmallError)
	}

	copy(dest, t.rxBuf[startIndex+1:startIndex+1+byteCount])
	return startIndex + byteCount, t.fail(StatusPacketReceived)
}

// WriteValue writes the in-memory byte representation of v into the
// transmission payload at startIndex, sized by unsafe.Sizeof(v). No
// reflection or type introspection occurs — the caller's type
// parameter fixes the byte count at compile time.
func WriteValue[W Width, T any](t *TransportLayer[W], v T, startIndex int) (int, Status) {
	size := int(unsafe.Sizeof(v))
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	return t.Write(bytes, startIndex)
}

// ReadValue reads unsafe.Sizeof(T) bytes from the reception payload at
// startIndex and reinterprets them in place as a T.
func ReadValue[W Width, T any](t *TransportLayer[W], startIndex int) (T, Status) {
	var v T
	size := int(unsafe.Sizeof(v))
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	_, st := t.Read(bytes, startIndex)
	return v, st
}

// Send encodes the staged transmission payload, appends its CRC, and
// writes preamble+packet+postamble to the port in one call. tracker
// must be at least 1. Any failure in encoding or checksumming leaves
// the buffer untouched and propagates the sub-component's status
// unchanged; nothing is written to the port in that case.
func (t *TransportLayer[W]) Send() Status {
	t.ioErr = nil
	if t.txTracker < 1 {
		return t.fail(StatusNothingToSend)
	}

	if t.txTracker+2+t.crc.ByteWidth() > t.cfg.DeviceBufferSize {
		return t.fail(StatusPacketExceedsDeviceBufferError)
	}

	packetSize, st := Encode(t.txBuf, t.txTracker, t.cfg.Delimiter)
	if !st.Ok() {
		return t.fail(st)
	}

	crc, st := t.crc.Compute(t.txBuf, 0, packetSize)
	if !st.Ok() {
		return t.fail(st)
	}

	end, st := t.crc.Append(t.txBuf, packetSize, crc)
	if !st.Ok() {
		return t.fail(st)
	}

	preamble := [2]byte{t.cfg.StartByte, byte(t.txTracker)}
	if err := t.port.WriteAll(preamble[:]); err != nil {
		t.ioErr = err
		return t.fail(StatusPacketSendIOError)
	}
	if err := t.port.WriteAll(t.txBuf[:end]); err != nil {
		t.ioErr = err
		return t.fail(StatusPacketSendIOError)
	}

	t.stats.Sent++
	t.ResetSend()
	return t.fail(StatusPacketSent)
}

// MustSend calls Send and panics if it does not succeed. Grounded in
// callers that treat a transmit failure on a healthy link as a
// programmer error rather than a recoverable runtime condition.
func (t *TransportLayer[W]) MustSend() {
	if st := t.Send(); !st.Ok() {
		panic("transport: send failed: " + st.String())
	}
}

// Available reports whether the Serial Port Facade has at least one
// inbound byte waiting.
func (t *TransportLayer[W]) Available() (bool, error) {
	n, err := t.port.AvailableBytes()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Receive resets the reception buffer and runs the reception state
// machine: HUNT_START, READ_PACKET, READ_POSTAMBLE, VALIDATE, DECODE,
// DONE. On success the reception tracker holds the decoded payload
// size and the returned status is StatusPacketReceived; on any
// failure the tracker is left at 0 and the status identifies the
// fault. Every failure is a clean abort — callers re-invoke Receive
// on the next poll.
func (t *TransportLayer[W]) Receive() Status {
	t.ioErr = nil
	t.ResetReceive()

	if st := t.huntStart(); !st.Ok() {
		return st
	}

	packetSize, st := t.readPacket()
	if !st.Ok() {
		return st
	}

	if st := t.readPostamble(packetSize); !st.Ok() {
		return st
	}

	total := packetSize + t.crc.ByteWidth()
	crc, st := t.crc.Compute(t.rxBuf, 0, total)
	if !st.Ok() {
		return t.fail(st)
	}
	if crc != 0 {
		t.stats.CRCFailures++
		return t.fail(StatusCRCCheckFailed)
	}

	payloadSize, st := Decode(t.rxBuf, packetSize, t.cfg.Delimiter)
	if !st.Ok() {
		t.stats.DecodeFailures++
		return t.fail(st)
	}

	t.rxTracker = payloadSize
	t.stats.Received++
	return t.fail(StatusPacketReceived)
}

// huntStart drains currently-available bytes, discarding each until
// one matches the configured start byte. It never blocks waiting for
// more bytes to arrive — if the stream empties first, the caller polls
// Receive again later.
func (t *TransportLayer[W]) huntStart() Status {
	for {
		n, err := t.port.AvailableBytes()
		if err != nil || n == 0 {
			t.ioErr = err
			if t.cfg.AllowStartByteErrors {
				return t.fail(StatusPacketStartByteNotFoundError)
			}
			return t.fail(StatusNoBytesToParseFromBuffer)
		}

		b, ok, err := t.port.ReadOne()
		if err != nil {
			t.ioErr = err
		}
		if err != nil || !ok {
			if t.cfg.AllowStartByteErrors {
				return t.fail(StatusPacketStartByteNotFoundError)
			}
			return t.fail(StatusNoBytesToParseFromBuffer)
		}

		if b == t.cfg.StartByte {
			return StatusPacketReceived
		}
		t.stats.ResyncDiscards++
	}
}

// readPacket reads bytes into rxBuf[0..] until the delimiter is seen,
// maintaining an inter-byte timer that resets on every successful
// read. No payload-size preamble byte is consumed: the wire's inbound
// framing omits it, unlike the outbound direction.
func (t *TransportLayer[W]) readPacket() (int, Status) {
	limit := len(t.rxBuf) - t.crc.ByteWidth()
	timeout := time.Duration(t.cfg.TimeoutMicros) * time.Microsecond
	deadline := time.Now().Add(timeout)

	pos := 0
	for {
		if pos >= limit {
			return 0, t.fail(StatusPacketOutOfBufferSpaceError)
		}

		b, ok, err := t.port.ReadOne()
		if err != nil {
			t.ioErr = err
			return 0, t.fail(StatusPacketTimeoutError)
		}
		if ok {
			t.rxBuf[pos] = b
			pos++
			deadline = time.Now().Add(timeout)
			if b == t.cfg.Delimiter {
				return pos, StatusPacketReceived
			}
			continue
		}

		if time.Now().After(deadline) {
			t.stats.Timeouts++
			return 0, t.fail(StatusPacketTimeoutError)
		}
	}
}

// readPostamble reads the CRC width's worth of bytes immediately after
// the packet, each bounded by its own inter-byte timeout.
func (t *TransportLayer[W]) readPostamble(packetSize int) Status {
	timeout := time.Duration(t.cfg.TimeoutMicros) * time.Microsecond
	width := t.crc.ByteWidth()

	for i := 0; i < width; i++ {
		deadline := time.Now().Add(timeout)
		for {
			b, ok, err := t.port.ReadOne()
			if err != nil {
				t.ioErr = err
				return t.fail(StatusPostambleTimeoutError)
			}
			if ok {
				t.rxBuf[packetSize+i] = b
				break
			}
			if time.Now().After(deadline) {
				t.stats.Timeouts++
				return t.fail(StatusPostambleTimeoutError)
			}
		}
	}
	return StatusPacketReceived
}
