// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// FieldFunc handles one field during ForEachField. The value slice
// starts at the field's value (the tag has been consumed) and extends
// to the end of the message. The function returns how many bytes of
// value it consumed.
type FieldFunc func(number protowire.Number, fieldType protowire.Type, value []byte) (int, error)

// ForEachField walks the top-level fields of a protobuf-encoded
// message in order, calling handle for each one. Shared by the
// envelope and every lib/message type so that all decoders apply the
// same strictness.
func ForEachField(data []byte, handle FieldFunc) error {
	for len(data) > 0 {
		number, fieldType, tagLength := protowire.ConsumeTag(data)
		if tagLength < 0 {
			return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(tagLength))
		}
		data = data[tagLength:]

		valueLength, err := handle(number, fieldType, data)
		if err != nil {
			return err
		}
		data = data[valueLength:]
	}
	return nil
}

// ConsumeVarint decodes a varint field value. The name identifies the
// field in error messages.
func ConsumeVarint(fieldType protowire.Type, value []byte, name string) (uint64, int, error) {
	if fieldType != protowire.VarintType {
		return 0, 0, fmt.Errorf("%w: %s has wire type %d, want varint", ErrMalformed, name, fieldType)
	}
	decoded, n := protowire.ConsumeVarint(value)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: %s: %v", ErrMalformed, name, protowire.ParseError(n))
	}
	return decoded, n, nil
}

// ConsumeInt32 decodes a varint field value holding an int32.
// Negative values arrive sign-extended to 64 bits. Anything outside
// the int32 range is malformed rather than truncated.
func ConsumeInt32(fieldType protowire.Type, value []byte, name string) (int32, int, error) {
	decoded, n, err := ConsumeVarint(fieldType, value, name)
	if err != nil {
		return 0, 0, err
	}
	signed := int64(decoded)
	if signed < math.MinInt32 || signed > math.MaxInt32 {
		return 0, 0, fmt.Errorf("%w: %s value %d out of int32 range", ErrMalformed, name, decoded)
	}
	return int32(signed), n, nil
}

// ConsumeBytes decodes a length-delimited field value. The returned
// slice aliases value.
func ConsumeBytes(fieldType protowire.Type, value []byte, name string) ([]byte, int, error) {
	if fieldType != protowire.BytesType {
		return nil, 0, fmt.Errorf("%w: %s has wire type %d, want bytes", ErrMalformed, name, fieldType)
	}
	decoded, n := protowire.ConsumeBytes(value)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: %s: %v", ErrMalformed, name, protowire.ParseError(n))
	}
	return decoded, n, nil
}

// ConsumeString decodes a length-delimited field value as a string.
func ConsumeString(fieldType protowire.Type, value []byte, name string) (string, int, error) {
	decoded, n, err := ConsumeBytes(fieldType, value, name)
	if err != nil {
		return "", 0, err
	}
	return string(decoded), n, nil
}

// SkipField consumes the value of a field the decoder does not know.
func SkipField(number protowire.Number, fieldType protowire.Type, value []byte) (int, error) {
	n := protowire.ConsumeFieldValue(number, fieldType, value)
	if n < 0 {
		return 0, fmt.Errorf("%w: field %d: %v", ErrMalformed, number, protowire.ParseError(n))
	}
	return n, nil
}
