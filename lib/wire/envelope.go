// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformed is wrapped by every decoding error in this package and
// in lib/message. Callers classify undecodable input with errors.Is.
var ErrMalformed = errors.New("malformed message")

// Kind distinguishes the direction and purpose of an envelope. The
// numeric values are protocol constants.
type Kind int32

const (
	// KindUnspecified is the zero value. It never appears on a valid
	// envelope; Decode rejects it.
	KindUnspecified Kind = 0

	// KindRequest asks the peer to perform work and answer with a
	// KindResponse carrying the same correlation id.
	KindRequest Kind = 1

	// KindResponse answers a previously received KindRequest.
	KindResponse Kind = 2

	// KindNotification is fire-and-forget. Its correlation id is zero
	// and no response is expected.
	KindNotification Kind = 3

	// KindExit tells the peer that this side is shutting down and that
	// resources held for it can be released. Correlation id is zero.
	KindExit Kind = 4
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnspecified:
		return "unspecified"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	case KindExit:
		return "exit"
	default:
		return fmt.Sprintf("unknown(%d)", int32(k))
	}
}

// valid reports whether k is one of the defined non-zero kinds.
func (k Kind) valid() bool {
	return k >= KindRequest && k <= KindExit
}

// Field numbers of the Envelope message.
const (
	fieldKind          protowire.Number = 1
	fieldCorrelationID protowire.Number = 2
	fieldPayload       protowire.Number = 3
)

// Envelope is the outer frame exchanged across the boundary.
type Envelope struct {
	// Kind selects how the receiver routes the envelope.
	Kind Kind

	// CorrelationID pairs a request with its response. It is assigned
	// by the side that issues the request and echoed verbatim by the
	// responder. Zero for notifications and exit signals.
	CorrelationID uint64

	// Payload is the opaque body (an encoded lib/message value for
	// requests and responses). After Decode it aliases the input
	// buffer.
	Payload []byte
}

// Encode serializes e. Zero-valued fields are omitted.
func Encode(e Envelope) []byte {
	size := 0
	if e.Kind != KindUnspecified {
		size += protowire.SizeTag(fieldKind) + protowire.SizeVarint(uint64(e.Kind))
	}
	if e.CorrelationID != 0 {
		size += protowire.SizeTag(fieldCorrelationID) + protowire.SizeVarint(e.CorrelationID)
	}
	if len(e.Payload) > 0 {
		size += protowire.SizeTag(fieldPayload) + protowire.SizeBytes(len(e.Payload))
	}

	buffer := make([]byte, 0, size)
	if e.Kind != KindUnspecified {
		buffer = protowire.AppendTag(buffer, fieldKind, protowire.VarintType)
		buffer = protowire.AppendVarint(buffer, uint64(e.Kind))
	}
	if e.CorrelationID != 0 {
		buffer = protowire.AppendTag(buffer, fieldCorrelationID, protowire.VarintType)
		buffer = protowire.AppendVarint(buffer, e.CorrelationID)
	}
	if len(e.Payload) > 0 {
		buffer = protowire.AppendTag(buffer, fieldPayload, protowire.BytesType)
		buffer = protowire.AppendBytes(buffer, e.Payload)
	}
	return buffer
}

// Decode parses an encoded envelope. Returns an error wrapping
// ErrMalformed if the bytes are not a valid envelope or if the kind is
// missing or unknown. Request and response envelopes must carry a
// non-zero correlation id.
func Decode(data []byte) (Envelope, error) {
	var envelope Envelope
	err := ForEachField(data, func(number protowire.Number, fieldType protowire.Type, value []byte) (int, error) {
		switch number {
		case fieldKind:
			kind, n, err := ConsumeInt32(fieldType, value, "envelope.kind")
			envelope.Kind = Kind(kind)
			return n, err
		case fieldCorrelationID:
			correlationID, n, err := ConsumeVarint(fieldType, value, "envelope.correlation_id")
			envelope.CorrelationID = correlationID
			return n, err
		case fieldPayload:
			payload, n, err := ConsumeBytes(fieldType, value, "envelope.payload")
			envelope.Payload = payload
			return n, err
		}
		return SkipField(number, fieldType, value)
	})
	if err != nil {
		return Envelope{}, err
	}

	if !envelope.Kind.valid() {
		return Envelope{}, fmt.Errorf("%w: envelope kind %s", ErrMalformed, envelope.Kind)
	}
	if (envelope.Kind == KindRequest || envelope.Kind == KindResponse) && envelope.CorrelationID == 0 {
		return Envelope{}, fmt.Errorf("%w: %s envelope without correlation id", ErrMalformed, envelope.Kind)
	}
	return envelope, nil
}
