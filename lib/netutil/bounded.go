// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"io"

	"github.com/jpillora/sizestr"
)

// DefaultMaxBodySize is the response body bound used when a caller
// passes a non-positive limit: 32 MB, well above the largest explorer
// responses the engine requests.
const DefaultMaxBodySize int64 = 32 << 20

// ErrBodyTooLarge is returned by ReadBounded when the body exceeds the
// limit.
var ErrBodyTooLarge = errors.New("body exceeds size limit")

// ReadBounded reads body to the end, failing with ErrBodyTooLarge
// instead of truncating when more than limit bytes are available.
func ReadBounded(body io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %s", ErrBodyTooLarge, sizestr.ToString(limit))
	}
	return data, nil
}
