// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bureau-foundation/corebridge/lib/wire"
)

// HTTPRequest describes an HTTP call the engine wants the host to
// perform.
type HTTPRequest struct {
	// Method is the HTTP method ("GET", "POST", ...). Empty means GET.
	Method string

	// URL is the absolute request URL.
	URL string

	// Headers are passed through to the outgoing request unmodified.
	Headers map[string]string

	// Body is sent only when non-empty.
	Body []byte
}

// HTTPResponse is the success sub-message of a ServiceHTTPRequest.
// Any status code is a success at this layer; only transport failures
// produce an error Response.
type HTTPResponse struct {
	Code int32
	Body []byte
}

// Marshal encodes r. Header entries are written in key order so that
// equal requests produce identical bytes.
func (r HTTPRequest) Marshal() []byte {
	var buffer []byte
	if r.Method != "" {
		buffer = appendString(buffer, 1, r.Method)
	}
	if r.URL != "" {
		buffer = appendString(buffer, 2, r.URL)
	}

	keys := make([]string, 0, len(r.Headers))
	for key := range r.Headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		// Map fields are encoded as repeated entry messages with the
		// key in field 1 and the value in field 2.
		var entry []byte
		entry = appendString(entry, 1, key)
		entry = appendString(entry, 2, r.Headers[key])
		buffer = appendBytes(buffer, 3, entry)
	}

	if len(r.Body) > 0 {
		buffer = appendBytes(buffer, 4, r.Body)
	}
	return buffer
}

// UnmarshalHTTPRequest decodes an HTTPRequest. Headers is nil when the
// request carries no header entries.
func UnmarshalHTTPRequest(data []byte) (HTTPRequest, error) {
	var request HTTPRequest
	err := wire.ForEachField(data, func(number protowire.Number, fieldType protowire.Type, value []byte) (int, error) {
		switch number {
		case 1:
			decoded, n, err := wire.ConsumeString(fieldType, value, "http_request.method")
			request.Method = decoded
			return n, err
		case 2:
			decoded, n, err := wire.ConsumeString(fieldType, value, "http_request.url")
			request.URL = decoded
			return n, err
		case 3:
			entry, n, err := wire.ConsumeBytes(fieldType, value, "http_request.headers")
			if err != nil {
				return 0, err
			}
			key, headerValue, err := unmarshalMapEntry(entry)
			if err != nil {
				return 0, err
			}
			if request.Headers == nil {
				request.Headers = make(map[string]string)
			}
			request.Headers[key] = headerValue
			return n, nil
		case 4:
			decoded, n, err := wire.ConsumeBytes(fieldType, value, "http_request.body")
			request.Body = decoded
			return n, err
		}
		return wire.SkipField(number, fieldType, value)
	})
	if err != nil {
		return HTTPRequest{}, err
	}
	return request, nil
}

func unmarshalMapEntry(data []byte) (string, string, error) {
	var key, value string
	err := wire.ForEachField(data, func(number protowire.Number, fieldType protowire.Type, fieldValue []byte) (int, error) {
		switch number {
		case 1:
			decoded, n, err := wire.ConsumeString(fieldType, fieldValue, "http_request.headers.key")
			key = decoded
			return n, err
		case 2:
			decoded, n, err := wire.ConsumeString(fieldType, fieldValue, "http_request.headers.value")
			value = decoded
			return n, err
		}
		return wire.SkipField(number, fieldType, fieldValue)
	})
	return key, value, err
}

// Marshal encodes r.
func (r HTTPResponse) Marshal() []byte {
	var buffer []byte
	if r.Code != 0 {
		buffer = appendInt32(buffer, 1, r.Code)
	}
	if len(r.Body) > 0 {
		buffer = appendBytes(buffer, 2, r.Body)
	}
	return buffer
}

// UnmarshalHTTPResponse decodes an HTTPResponse.
func UnmarshalHTTPResponse(data []byte) (HTTPResponse, error) {
	var response HTTPResponse
	err := wire.ForEachField(data, func(number protowire.Number, fieldType protowire.Type, value []byte) (int, error) {
		switch number {
		case 1:
			decoded, n, err := wire.ConsumeInt32(fieldType, value, "http_response.code")
			response.Code = decoded
			return n, err
		case 2:
			decoded, n, err := wire.ConsumeBytes(fieldType, value, "http_response.body")
			response.Body = decoded
			return n, err
		}
		return wire.SkipField(number, fieldType, value)
	})
	if err != nil {
		return HTTPResponse{}, err
	}
	return response, nil
}
