// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hostservice

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleLimiterTTL is how long a host's bucket survives without use.
const idleLimiterTTL = 10 * time.Minute

// sweepInterval is the number of Allow calls between idle sweeps.
const sweepInterval = 512

// hostLimiter keeps one token bucket per remote host. A nil
// *hostLimiter allows everything.
type hostLimiter struct {
	limit rate.Limit
	burst int

	mu     sync.Mutex
	byHost map[string]*hostBucket
	calls  uint64
}

type hostBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newHostLimiter returns nil (unlimited) when perSecond is not
// positive. A non-positive burst is raised to 1.
func newHostLimiter(perSecond float64, burst int) *hostLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &hostLimiter{
		limit:  rate.Limit(perSecond),
		burst:  burst,
		byHost: make(map[string]*hostBucket),
	}
}

// allow consumes one token for host at now.
func (l *hostLimiter) allow(host string, now time.Time) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, exists := l.byHost[host]
	if !exists {
		bucket = &hostBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.byHost[host] = bucket
	}
	bucket.lastSeen = now
	allowed := bucket.limiter.AllowN(now, 1)

	l.calls++
	if l.calls%sweepInterval == 0 {
		cutoff := now.Add(-idleLimiterTTL)
		for key, candidate := range l.byHost {
			if candidate.lastSeen.Before(cutoff) {
				delete(l.byHost, key)
			}
		}
	}
	return allowed
}
