// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cancel provides the cancellation/budget primitives that flow
// from a top-level invocation down through DAG stage, node, agent, provider
// stream, and tool call. It is a thin layer over context.Context: a
// cancellation token IS a context.Context in this module, and every
// suspension point (network I/O, tool I/O, file I/O) is expected to select
// on ctx.Done(). Timeout is modeled as just another cancellation source.
package cancel

import (
	"context"
	"time"
)

// Source owns a cancellation scope and its release function. Cancel is
// idempotent and safe to call multiple times or after the scope has already
// ended, matching context.CancelFunc semantics.
type Source struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSource creates a child cancellation scope of parent with no timeout.
// Call Cancel to propagate cancellation to every descendant that observes
// Ctx().Done().
func NewSource(parent context.Context) *Source {
	ctx, cancel := context.WithCancel(parent)
	return &Source{ctx: ctx, cancel: cancel}
}

// NewTimeoutSource creates a child scope that cancels itself after d elapses,
// in addition to being cancellable directly via Cancel.
func NewTimeoutSource(parent context.Context, d time.Duration) *Source {
	ctx, cancel := context.WithTimeout(parent, d)
	return &Source{ctx: ctx, cancel: cancel}
}

// Ctx returns the scope's context; descendants derive their own child scopes
// from this context so cancellation propagates parent→child automatically.
func (s *Source) Ctx() context.Context { return s.ctx }

// Cancel requests cancellation of this scope and everything derived from it.
func (s *Source) Cancel() { s.cancel() }

// Done reports whether the scope has already been cancelled or expired.
func (s *Source) Done() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// Err returns the reason the scope ended, or nil if it is still active.
func (s *Source) Err() error { return s.ctx.Err() }
