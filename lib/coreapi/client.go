// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package coreapi is the host's typed client for core requests: the
// calls the host makes into the engine. It encodes each call as a
// message.Request, sends it through anything that can perform a
// request/response round trip (a *bridge.Bridge in production), and
// decodes the typed response body.
package coreapi

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/corebridge/lib/message"
	"github.com/bureau-foundation/corebridge/lib/version"
)

// Requester performs one request/response round trip. A response
// carrying an error string must be reported as a non-nil error.
type Requester interface {
	Request(ctx context.Context, request message.Request) (message.Response, error)
}

// Client issues core requests.
type Client struct {
	requester Requester
}

// NewClient creates a Client sending through requester.
func NewClient(requester Requester) *Client {
	return &Client{requester: requester}
}

// Version asks the engine for its library version.
func (c *Client) Version(ctx context.Context) (version.Semver, error) {
	response, err := c.requester.Request(ctx, message.Request{Type: message.CoreGetVersion})
	if err != nil {
		return version.Semver{}, fmt.Errorf("get version: %w", err)
	}
	reported, err := message.UnmarshalGetVersionResponse(response.Body)
	if err != nil {
		return version.Semver{}, fmt.Errorf("get version: decoding response: %w", err)
	}
	if reported.Major < 0 || reported.Minor < 0 || reported.Patch < 0 {
		return version.Semver{}, fmt.Errorf("get version: engine reported negative version %s", reported)
	}
	return version.Semver{
		Major: uint32(reported.Major),
		Minor: uint32(reported.Minor),
		Patch: uint32(reported.Patch),
	}, nil
}

// CheckVersion fetches the engine version and fails if it is older
// than minimum.
func (c *Client) CheckVersion(ctx context.Context, minimum version.Semver) (version.Semver, error) {
	engineVersion, err := c.Version(ctx)
	if err != nil {
		return version.Semver{}, err
	}
	if !engineVersion.AtLeast(minimum) {
		return engineVersion, fmt.Errorf("engine version %s is older than required %s", engineVersion, minimum)
	}
	return engineVersion, nil
}

// Fetch asks the engine to retrieve url. The engine performs the call
// through the host's own HTTP service, so a successful Fetch proves
// the full host to engine to host round trip works.
func (c *Client) Fetch(ctx context.Context, url string) (message.HTTPResponse, error) {
	response, err := c.requester.Request(ctx, message.Request{
		Type: message.CoreFetch,
		Body: message.FetchRequest{URL: url}.Marshal(),
	})
	if err != nil {
		return message.HTTPResponse{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	result, err := message.UnmarshalHTTPResponse(response.Body)
	if err != nil {
		return message.HTTPResponse{}, fmt.Errorf("fetch %s: decoding response: %w", url, err)
	}
	return result, nil
}
