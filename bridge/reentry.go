// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"runtime"
	"strings"
)

// callbackFrames name the bridge functions that user callbacks run
// beneath: request handlers under invoke, OnNotification under
// handleNotification.
var callbackFrames = []string{
	"/bridge.(*Bridge).invoke",
	"/bridge.(*Bridge).handleNotification",
}

// inCallback reports whether the calling goroutine is running a
// request handler or notification callback of any Bridge. Go has no
// goroutine-local state, so this walks the caller's stack.
func inCallback() bool {
	pcs := make([]uintptr, 64)
	for {
		n := runtime.Callers(2, pcs)
		if n < len(pcs) {
			pcs = pcs[:n]
			break
		}
		pcs = make([]uintptr, 2*len(pcs))
	}

	frames := runtime.CallersFrames(pcs)
	for {
		frame, more := frames.Next()
		for _, suffix := range callbackFrames {
			if strings.HasSuffix(frame.Function, suffix) {
				return true
			}
		}
		if !more {
			return false
		}
	}
}
