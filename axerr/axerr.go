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

// Package axerr centralizes the error taxonomy every surfaced axle error
// belongs to, so the DAG scheduler and CLI can branch on Kind without string
// matching. Every core component wraps the errors it raises in an Error
// carrying one of the Kinds below.
package axerr

import "fmt"

// Kind classifies a failure by source, independent of its Go type.
type Kind string

const (
	// KindProviderTransport covers HTTP failure or stream-parse failure
	// talking to a provider. Fatal for the current turn.
	KindProviderTransport Kind = "provider_transport"

	// KindProviderSemantic covers finish-reason=error, content-filter, or
	// safety rejections reported by the provider itself. Fatal for the
	// current turn.
	KindProviderSemantic Kind = "provider_semantic"

	// KindToolNotFound means the model invoked a tool name the registry
	// doesn't know. Fatal for the node; a structured tool-result recording
	// the not-found is appended to history before terminating.
	KindToolNotFound Kind = "tool_not_found"

	// KindToolExecution means a registered tool's Execute returned an
	// error. The loop continues to the next turn; the model may recover.
	KindToolExecution Kind = "tool_execution"

	// KindParseMalformedToolArgs means the accumulated tool-call argument
	// buffer failed to JSON-decode. Fatal for the turn.
	KindParseMalformedToolArgs Kind = "parse_malformed_tool_args"

	// KindParseSchemaMismatch means terminal text lacked a required tag.
	// Fatal for the node.
	KindParseSchemaMismatch Kind = "parse_schema_mismatch"

	// KindCycle means the DAG definition contains a dependency cycle.
	// Fatal at parse time; no execution occurs.
	KindCycle Kind = "cycle"

	// KindUnknownDep means a node's dependency set references an id that
	// isn't a key in the DAG definition. Fatal at parse time.
	KindUnknownDep Kind = "unknown_dependency"

	// KindCancelled means a cooperative cancel or timeout ended the
	// operation. Carries the partial result, not a hard failure.
	KindCancelled Kind = "cancelled"

	// KindBudget means maxIterations (or another bound) was exceeded.
	// Fatal for the node.
	KindBudget Kind = "budget"
)

// Error is the single error type every core component constructs. It
// satisfies error and Unwrap, and carries enough structure for a caller to
// branch on Kind and to report NodeID/ToolName without parsing a message.
type Error struct {
	Kind     Kind
	Message  string
	Cause    error
	NodeID   string
	ToolName string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.NodeID != "" {
		msg = fmt.Sprintf("%s [node=%s]", msg, e.NodeID)
	}
	if e.ToolName != "" {
		msg = fmt.Sprintf("%s [tool=%s]", msg, e.ToolName)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New constructs a bare Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error) *Error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// WithNode returns a copy of e annotated with a node id.
func (e *Error) WithNode(nodeID string) *Error {
	clone := *e
	clone.NodeID = nodeID
	return &clone
}

// WithTool returns a copy of e annotated with a tool name.
func (e *Error) WithTool(toolName string) *Error {
	clone := *e
	clone.ToolName = toolName
	return &clone
}

// Is reports whether err is an *Error of the given kind, unwrapping as
// needed. This lets callers write axerr.Is(err, axerr.KindCancelled).
func Is(err error, kind Kind) bool {
	for err != nil {
		if ae, ok := err.(*Error); ok {
			if ae.Kind == kind {
				return true
			}
			err = ae.Cause
			continue
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// KindOf extracts the Kind of err if it is (or wraps) an *Error, and
// reports whether one was found.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if ae, ok := err.(*Error); ok {
			return ae.Kind, true
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}
