/*
 * Copyright 2019 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package hibf

import "github.com/pkg/errors"

// ErrKind classifies an Error into one of four error kinds.
type ErrKind int

const (
	// ConfigInvalid reports a Config field outside its allowed range.
	ConfigInvalid ErrKind = iota
	// LayoutInfeasible reports that no binning assignment satisfies the
	// requested bin budget (simple binning with U >= B, or hierarchical
	// binning that cannot fit even one user bin per technical bin).
	LayoutInfeasible
	// BuilderCallbackFailed reports that building the layout's IBFs failed
	// during Build, e.g. because the external input callback panicked (the
	// builder recovers the panic into an error). The callback has no error
	// return, so panicking is its only way to signal a failure.
	BuilderCallbackFailed
	// Serialization reports a truncated stream or a version mismatch
	// while encoding/decoding a layout or archive.
	Serialization
)

// String renders the error kind's name.
func (k ErrKind) String() string {
	switch k {
	case ConfigInvalid:
		return "ConfigInvalid"
	case LayoutInfeasible:
		return "LayoutInfeasible"
	case BuilderCallbackFailed:
		return "BuilderCallbackFailed"
	case Serialization:
		return "Serialization"
	default:
		return "Unknown"
	}
}

// Error is the structured error value every hibf API boundary returns,
// naming the kind of failure and a human-readable reason.
type Error struct {
	Kind   ErrKind
	Reason string
	cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return e.Kind.String() + ": " + e.Reason + ": " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.Reason
}

// Unwrap exposes the wrapped cause, if any, for errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.cause }

// newError builds an *Error with no wrapped cause.
func newError(kind ErrKind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// wrapError builds an *Error wrapping cause, annotated with a stack trace
// via errors.WithStack.
func wrapError(kind ErrKind, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, cause: errors.WithStack(cause)}
}
