// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package message

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/bureau-foundation/corebridge/lib/wire"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []Request{
		{Type: ServiceHTTPRequest, Body: HTTPRequest{Method: "GET", URL: "https://example.test/"}.Marshal()},
		{Type: CoreFetch, Body: []byte{0x01}},
		{Type: -3},
		{},
	}
	for _, want := range tests {
		got, err := UnmarshalRequest(want.Marshal())
		if err != nil {
			t.Fatalf("UnmarshalRequest(%+v): %v", want, err)
		}
		if got.Type != want.Type || !bytes.Equal(got.Body, want.Body) {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []Response{
		{Body: HTTPResponse{Code: 200, Body: []byte("ok")}.Marshal()},
		{Error: "dial tcp: connection refused"},
		{},
	}
	for _, want := range tests {
		got, err := UnmarshalResponse(want.Marshal())
		if err != nil {
			t.Fatalf("UnmarshalResponse(%+v): %v", want, err)
		}
		if got.Error != want.Error || !bytes.Equal(got.Body, want.Body) {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
		if got.Failed() != (want.Error != "") {
			t.Errorf("Failed() = %v for %+v", got.Failed(), want)
		}
	}
}

func TestHTTPRequestRoundTrip(t *testing.T) {
	want := HTTPRequest{
		Method: "POST",
		URL:    "https://explorer.example.test/blockchain/v3/transactions/send",
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"X-Ledger-Node": "btc",
			"Empty":         "",
		},
		Body: []byte(`{"tx":"0100"}`),
	}

	got, err := UnmarshalHTTPRequest(want.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalHTTPRequest: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestHTTPRequestMarshalIsDeterministic(t *testing.T) {
	request := HTTPRequest{
		URL:     "https://example.test",
		Headers: map[string]string{"b": "2", "a": "1", "c": "3", "d": "4"},
	}
	first := request.Marshal()
	for i := 0; i < 20; i++ {
		if !bytes.Equal(request.Marshal(), first) {
			t.Fatal("Marshal produced different bytes for the same request")
		}
	}
}

func TestHTTPRequestWithoutHeaders(t *testing.T) {
	got, err := UnmarshalHTTPRequest(HTTPRequest{URL: "https://example.test"}.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalHTTPRequest: %v", err)
	}
	if got.Headers != nil {
		t.Errorf("Headers = %v, want nil", got.Headers)
	}
	if got.Body != nil {
		t.Errorf("Body = %v, want nil", got.Body)
	}
}

func TestHTTPResponseRoundTrip(t *testing.T) {
	for _, want := range []HTTPResponse{
		{Code: 200, Body: []byte(`{"height":812345}`)},
		{Code: 404},
		{Code: 0},
	} {
		got, err := UnmarshalHTTPResponse(want.Marshal())
		if err != nil {
			t.Fatalf("UnmarshalHTTPResponse: %v", err)
		}
		if got.Code != want.Code || !bytes.Equal(got.Body, want.Body) {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestGetVersionResponse(t *testing.T) {
	want := GetVersionResponse{Major: 4, Minor: 0, Patch: 12}
	got, err := UnmarshalGetVersionResponse(want.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalGetVersionResponse: %v", err)
	}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
	if got.String() != "4.0.12" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestFetchRequestRoundTrip(t *testing.T) {
	want := FetchRequest{URL: "https://example.test/version"}
	got, err := UnmarshalFetchRequest(want.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalFetchRequest: %v", err)
	}
	if got != want {
		t.Fatalf("round trip = %+v, want %+v", got, want)
	}
}

func TestRequestFieldNumbers(t *testing.T) {
	var expected []byte
	expected = protowire.AppendTag(expected, 1, protowire.VarintType)
	expected = protowire.AppendVarint(expected, 100)
	expected = protowire.AppendTag(expected, 2, protowire.BytesType)
	expected = protowire.AppendBytes(expected, []byte("body"))

	got := Request{Type: CoreFetch, Body: []byte("body")}.Marshal()
	if !bytes.Equal(got, expected) {
		t.Fatalf("Marshal = %x, want %x", got, expected)
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	wrongType := protowire.AppendTag(nil, 1, protowire.BytesType)
	wrongType = protowire.AppendBytes(wrongType, []byte("x"))

	badHeaderEntry := protowire.AppendTag(nil, 3, protowire.BytesType)
	badHeaderEntry = protowire.AppendBytes(badHeaderEntry, []byte{0x0a, 0x05, 'a'})

	if _, err := UnmarshalRequest(wrongType); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("UnmarshalRequest = %v, want ErrMalformed", err)
	}
	if _, err := UnmarshalHTTPRequest(badHeaderEntry); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("UnmarshalHTTPRequest = %v, want ErrMalformed", err)
	}
	if _, err := UnmarshalResponse([]byte{0x12, 0x09}); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("UnmarshalResponse = %v, want ErrMalformed", err)
	}
}

func TestUnmarshalRejectsWideInt32(t *testing.T) {
	// Each value truncates to a valid int32 (2 or 100) if narrowed
	// without a range check.
	wide := func(number protowire.Number, value uint64) []byte {
		data := protowire.AppendTag(nil, number, protowire.VarintType)
		return protowire.AppendVarint(data, value)
	}

	if request, err := UnmarshalRequest(wide(1, 1<<32|100)); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("UnmarshalRequest = %+v, %v; want ErrMalformed", request, err)
	}
	if response, err := UnmarshalHTTPResponse(wide(1, 1<<32|200)); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("UnmarshalHTTPResponse = %+v, %v; want ErrMalformed", response, err)
	}
	if version, err := UnmarshalGetVersionResponse(wide(2, 1<<32|2)); !errors.Is(err, wire.ErrMalformed) {
		t.Errorf("UnmarshalGetVersionResponse = %+v, %v; want ErrMalformed", version, err)
	}

	// Negative int32 values are sign-extended on the wire and stay valid.
	request, err := UnmarshalRequest(Request{Type: -3}.Marshal())
	if err != nil || request.Type != -3 {
		t.Fatalf("UnmarshalRequest(-3) = %+v, %v", request, err)
	}
}

func TestErrorResponse(t *testing.T) {
	response := ErrorResponse("no handler for request type %d", 7)
	if response.Error != "no handler for request type 7" {
		t.Fatalf("Error = %q", response.Error)
	}
	if !response.Failed() {
		t.Fatal("Failed() = false")
	}
}
