// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bureau-foundation/corebridge/lib/wire"
)

// Discriminators for service requests (engine to host).
const (
	// ServiceHTTPRequest asks the host to perform an HTTP call. Body is
	// an encoded HTTPRequest; a successful Response body is an encoded
	// HTTPResponse.
	ServiceHTTPRequest int32 = 0
)

// Discriminators for core requests (host to engine).
const (
	// CoreGetVersion asks the engine for its library version. Body is
	// empty; a successful Response body is an encoded
	// GetVersionResponse.
	CoreGetVersion int32 = 0

	// CoreFetch asks the engine to fetch a URL through the host's HTTP
	// service and return the result. Body is an encoded FetchRequest;
	// a successful Response body is an encoded HTTPResponse. Used to
	// verify the full round trip (host to engine to host) in
	// diagnostics.
	CoreFetch int32 = 100
)

// Request is the generic request shape: a discriminator selecting the
// handler and an encoded type-specific sub-message.
type Request struct {
	Type int32
	Body []byte
}

// Response is the generic response shape. A non-empty Error means the
// request failed at the application level; Body is then ignored.
type Response struct {
	Error string
	Body  []byte
}

// ErrorResponse builds a failed Response from a formatted message.
func ErrorResponse(format string, args ...any) Response {
	return Response{Error: fmt.Sprintf(format, args...)}
}

// Failed reports whether the response carries an application error.
func (r Response) Failed() bool {
	return r.Error != ""
}

// Marshal encodes r.
func (r Request) Marshal() []byte {
	var buffer []byte
	if r.Type != 0 {
		buffer = appendInt32(buffer, 1, r.Type)
	}
	if len(r.Body) > 0 {
		buffer = appendBytes(buffer, 2, r.Body)
	}
	return buffer
}

// UnmarshalRequest decodes a Request.
func UnmarshalRequest(data []byte) (Request, error) {
	var request Request
	err := wire.ForEachField(data, func(number protowire.Number, fieldType protowire.Type, value []byte) (int, error) {
		switch number {
		case 1:
			decoded, n, err := wire.ConsumeInt32(fieldType, value, "request.type")
			request.Type = decoded
			return n, err
		case 2:
			decoded, n, err := wire.ConsumeBytes(fieldType, value, "request.body")
			request.Body = decoded
			return n, err
		}
		return wire.SkipField(number, fieldType, value)
	})
	if err != nil {
		return Request{}, err
	}
	return request, nil
}

// Marshal encodes r.
func (r Response) Marshal() []byte {
	var buffer []byte
	if r.Error != "" {
		buffer = appendString(buffer, 1, r.Error)
	}
	if len(r.Body) > 0 {
		buffer = appendBytes(buffer, 2, r.Body)
	}
	return buffer
}

// UnmarshalResponse decodes a Response.
func UnmarshalResponse(data []byte) (Response, error) {
	var response Response
	err := wire.ForEachField(data, func(number protowire.Number, fieldType protowire.Type, value []byte) (int, error) {
		switch number {
		case 1:
			decoded, n, err := wire.ConsumeString(fieldType, value, "response.error")
			response.Error = decoded
			return n, err
		case 2:
			decoded, n, err := wire.ConsumeBytes(fieldType, value, "response.body")
			response.Body = decoded
			return n, err
		}
		return wire.SkipField(number, fieldType, value)
	})
	if err != nil {
		return Response{}, err
	}
	return response, nil
}

// GetVersionResponse is the body of a successful CoreGetVersion
// response.
type GetVersionResponse struct {
	Major int32
	Minor int32
	Patch int32
}

// String formats the version as major.minor.patch.
func (v GetVersionResponse) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Marshal encodes v.
func (v GetVersionResponse) Marshal() []byte {
	var buffer []byte
	if v.Major != 0 {
		buffer = appendInt32(buffer, 1, v.Major)
	}
	if v.Minor != 0 {
		buffer = appendInt32(buffer, 2, v.Minor)
	}
	if v.Patch != 0 {
		buffer = appendInt32(buffer, 3, v.Patch)
	}
	return buffer
}

// UnmarshalGetVersionResponse decodes a GetVersionResponse.
func UnmarshalGetVersionResponse(data []byte) (GetVersionResponse, error) {
	var version GetVersionResponse
	err := wire.ForEachField(data, func(number protowire.Number, fieldType protowire.Type, value []byte) (int, error) {
		var target *int32
		switch number {
		case 1:
			target = &version.Major
		case 2:
			target = &version.Minor
		case 3:
			target = &version.Patch
		default:
			return wire.SkipField(number, fieldType, value)
		}
		decoded, n, err := wire.ConsumeInt32(fieldType, value, fmt.Sprintf("version field %d", number))
		*target = decoded
		return n, err
	})
	if err != nil {
		return GetVersionResponse{}, err
	}
	return version, nil
}

// FetchRequest is the body of a CoreFetch request.
type FetchRequest struct {
	URL string
}

// Marshal encodes f.
func (f FetchRequest) Marshal() []byte {
	if f.URL == "" {
		return nil
	}
	return appendString(nil, 1, f.URL)
}

// UnmarshalFetchRequest decodes a FetchRequest.
func UnmarshalFetchRequest(data []byte) (FetchRequest, error) {
	var fetch FetchRequest
	err := wire.ForEachField(data, func(number protowire.Number, fieldType protowire.Type, value []byte) (int, error) {
		if number == 1 {
			decoded, n, err := wire.ConsumeString(fieldType, value, "fetch.url")
			fetch.URL = decoded
			return n, err
		}
		return wire.SkipField(number, fieldType, value)
	})
	if err != nil {
		return FetchRequest{}, err
	}
	return fetch, nil
}

// int32 fields use the standard protobuf encoding: negative values are
// sign-extended to 64 bits.
func appendInt32(buffer []byte, number protowire.Number, value int32) []byte {
	buffer = protowire.AppendTag(buffer, number, protowire.VarintType)
	return protowire.AppendVarint(buffer, uint64(int64(value)))
}

func appendBytes(buffer []byte, number protowire.Number, value []byte) []byte {
	buffer = protowire.AppendTag(buffer, number, protowire.BytesType)
	return protowire.AppendBytes(buffer, value)
}

func appendString(buffer []byte, number protowire.Number, value string) []byte {
	buffer = protowire.AppendTag(buffer, number, protowire.BytesType)
	return protowire.AppendString(buffer, value)
}
