// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package transport

import (
	"bytes"
	"testing"
)

// makeBuffer lays out a raw payload into the [overhead][payload][delimiter-slot] shape
// Encode expects: index 0 zeroed, payload at 1..n, one free delimiter slot at n+1.
func makeBuffer(payload []byte) []byte {
	buf := make([]byte, len(payload)+2)
	copy(buf[1:], payload)
	return buf
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"no delimiters", []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{"single byte", []byte{0x42}},
		{"single delimiter byte", []byte{0}},
		{"leading delimiter", []byte{0, 1, 2, 3}},
		{"trailing delimiter", []byte{1, 2, 3, 0}},
		{"consecutive delimiters", []byte{1, 2, 3, 0, 0, 6, 0, 8, 0, 0}},
		{"all delimiters", bytes.Repeat([]byte{0}, 20)},
		{"max payload all zero", bytes.Repeat([]byte{0}, maxPayloadSize)},
		{"max payload no delimiter", bytes.Repeat([]byte{0xFF}, maxPayloadSize)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := makeBuffer(tt.payload)

			packetSize, st := Encode(buf, len(tt.payload), 0)
			if !st.Ok() {
				t.Fatalf("Encode() status = %v, want Ok", st)
			}
			if packetSize != len(tt.payload)+2 {
				t.Fatalf("Encode() packetSize = %d, want %d", packetSize, len(tt.payload)+2)
			}

			for i := 1; i <= len(tt.payload); i++ {
				if buf[i] == 0 {
					t.Fatalf("encoded buffer contains delimiter at payload index %d", i)
				}
			}

			payloadSize, st := Decode(buf, packetSize, 0)
			if !st.Ok() {
				t.Fatalf("Decode() status = %v, want Ok", st)
			}
			if payloadSize != len(tt.payload) {
				t.Fatalf("Decode() payloadSize = %d, want %d", payloadSize, len(tt.payload))
			}
			if !bytes.Equal(buf[1:1+payloadSize], tt.payload) {
				t.Fatalf("decoded payload = %v, want %v", buf[1:1+payloadSize], tt.payload)
			}
		})
	}
}

func TestEncodeBoundaries(t *testing.T) {
	t.Run("payload size 0 rejected", func(t *testing.T) {
		buf := make([]byte, 10)
		if _, st := Encode(buf, 0, 0); st != StatusCOBSEncoderTooSmall {
			t.Fatalf("Encode(size=0) status = %v, want StatusCOBSEncoderTooSmall", st)
		}
	})

	t.Run("payload size 255 rejected", func(t *testing.T) {
		buf := make([]byte, 260)
		if _, st := Encode(buf, 255, 0); st != StatusCOBSEncoderTooLarge {
			t.Fatalf("Encode(size=255) status = %v, want StatusCOBSEncoderTooLarge", st)
		}
	})

	t.Run("payload size 1 succeeds", func(t *testing.T) {
		buf := makeBuffer([]byte{5})
		if _, st := Encode(buf, 1, 0); !st.Ok() {
			t.Fatalf("Encode(size=1) status = %v, want Ok", st)
		}
	})

	t.Run("payload size 254 succeeds", func(t *testing.T) {
		buf := makeBuffer(bytes.Repeat([]byte{1}, 254))
		if _, st := Encode(buf, 254, 0); !st.Ok() {
			t.Fatalf("Encode(size=254) status = %v, want Ok", st)
		}
	})

	t.Run("buffer too small for packet", func(t *testing.T) {
		buf := make([]byte, 5)
		if _, st := Encode(buf, 10, 0); st != StatusCOBSEncoderPacketLargerThanBuffer {
			t.Fatalf("Encode() status = %v, want StatusCOBSEncoderPacketLargerThanBuffer", st)
		}
	})
}

func TestDecodeBoundaries(t *testing.T) {
	t.Run("packet size 2 rejected", func(t *testing.T) {
		buf := make([]byte, 10)
		if _, st := Decode(buf, 2, 0); st != StatusCOBSDecoderTooSmall {
			t.Fatalf("Decode(size=2) status = %v, want StatusCOBSDecoderTooSmall", st)
		}
	})

	t.Run("packet size 257 rejected", func(t *testing.T) {
		buf := make([]byte, 260)
		if _, st := Decode(buf, 257, 0); st != StatusCOBSDecoderTooLarge {
			t.Fatalf("Decode(size=257) status = %v, want StatusCOBSDecoderTooLarge", st)
		}
	})

	t.Run("packet size 3 succeeds", func(t *testing.T) {
		buf := makeBuffer([]byte{7})
		Encode(buf, 1, 0)
		if _, st := Decode(buf, 3, 0); !st.Ok() {
			t.Fatalf("Decode(size=3) status = %v, want Ok", st)
		}
	})

	t.Run("packet size 256 succeeds", func(t *testing.T) {
		buf := makeBuffer(bytes.Repeat([]byte{1}, 254))
		Encode(buf, 254, 0)
		if _, st := Decode(buf, 256, 0); !st.Ok() {
			t.Fatalf("Decode(size=256) status = %v, want Ok", st)
		}
	})
}

func TestEncodeIdempotence(t *testing.T) {
	buf := makeBuffer([]byte{1, 2, 3})
	if _, st := Encode(buf, 3, 0); !st.Ok() {
		t.Fatalf("first Encode() status = %v, want Ok", st)
	}

	before := append([]byte(nil), buf...)
	if _, st := Encode(buf, 3, 0); st != StatusCOBSPayloadAlreadyEncoded {
		t.Fatalf("second Encode() status = %v, want StatusCOBSPayloadAlreadyEncoded", st)
	}
	if !bytes.Equal(buf, before) {
		t.Fatal("second Encode() mutated an already-encoded buffer")
	}
}

func TestDecodeIdempotence(t *testing.T) {
	buf := makeBuffer([]byte{1, 2, 3})
	packetSize, _ := Encode(buf, 3, 0)
	if _, st := Decode(buf, packetSize, 0); !st.Ok() {
		t.Fatalf("first Decode() status = %v, want Ok", st)
	}

	before := append([]byte(nil), buf...)
	if _, st := Decode(buf, packetSize, 0); st != StatusCOBSPacketAlreadyDecoded {
		t.Fatalf("second Decode() status = %v, want StatusCOBSPacketAlreadyDecoded", st)
	}
	if !bytes.Equal(buf, before) {
		t.Fatal("second Decode() mutated an already-decoded buffer")
	}
}

func TestDecodeRejectsCorruptedPackets(t *testing.T) {
	t.Run("unable to find delimiter", func(t *testing.T) {
		buf := makeBuffer([]byte{1, 2, 3})
		Encode(buf, 3, 0)
		buf[0] = 200 // hop far past the packet end
		if _, st := Decode(buf, 5, 0); st != StatusCOBSUnableToFindDelimiter {
			t.Fatalf("Decode() status = %v, want StatusCOBSUnableToFindDelimiter", st)
		}
	})

	t.Run("delimiter found too early", func(t *testing.T) {
		buf := makeBuffer([]byte{1, 2, 3})
		Encode(buf, 3, 0)
		buf[0] = 1
		buf[1] = 0 // a literal delimiter sitting where a hop distance is expected
		if _, st := Decode(buf, 5, 0); st != StatusCOBSDelimiterFoundTooEarly {
			t.Fatalf("Decode() status = %v, want StatusCOBSDelimiterFoundTooEarly", st)
		}
	})
}

func TestNonZeroDelimiterToleratesOverheadCollision(t *testing.T) {
	// Open question from the design notes: the overhead byte is allowed
	// to equal a non-zero delimiter after encoding. Exercise a payload
	// with no occurrence of the delimiter, so overhead == distance to
	// the appended delimiter == len(payload)+1, and pick a delimiter
	// value that makes that distance equal the delimiter itself.
	delim := byte(4)
	payload := []byte{1, 2, 3} // len+1 == 4 == delim

	buf := makeBuffer(payload)
	packetSize, st := Encode(buf, len(payload), delim)
	if !st.Ok() {
		t.Fatalf("Encode() status = %v, want Ok", st)
	}
	if buf[0] != delim {
		t.Fatalf("test setup invalid: overhead = %d, want %d to collide with delimiter", buf[0], delim)
	}

	payloadSize, st := Decode(buf, packetSize, delim)
	if !st.Ok() {
		t.Fatalf("Decode() status = %v, want Ok even though overhead == delimiter", st)
	}
	if !bytes.Equal(buf[1:1+payloadSize], payload) {
		t.Fatalf("decoded payload = %v, want %v", buf[1:1+payloadSize], payload)
	}
}
