// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package errors

import (
	"errors"
	"fmt"
)

// RemoteAuthorityErrorCode classifies a remote authority resolution failure.
type RemoteAuthorityErrorCode string

const (
	// RemoteAuthorityUnknown is used when the resolver did not classify the failure.
	RemoteAuthorityUnknown RemoteAuthorityErrorCode = "Unknown"
	// RemoteAuthorityNotAvailable is used when the remote is permanently unavailable.
	RemoteAuthorityNotAvailable RemoteAuthorityErrorCode = "NotAvailable"
	// RemoteAuthorityTemporarilyNotAvailable is used when the remote can be retried later.
	RemoteAuthorityTemporarilyNotAvailable RemoteAuthorityErrorCode = "TemporarilyNotAvailable"
	// RemoteAuthorityNoResolverFound is used when no resolver registered for an authority prefix.
	RemoteAuthorityNoResolverFound RemoteAuthorityErrorCode = "NoResolverFound"
	// RemoteAuthorityInvalidAuthority is used when a resolver does not understand the authority.
	RemoteAuthorityInvalidAuthority RemoteAuthorityErrorCode = "InvalidAuthority"
)

// RemoteAuthorityError is the typed error reported by remote authority resolvers.
// Detail carries resolver specific data and is passed through untouched.
type RemoteAuthorityError struct {
	Code    RemoteAuthorityErrorCode
	Message string
	Detail  any
}

var _ error = (*RemoteAuthorityError)(nil)

// NewRemoteAuthorityError creates a RemoteAuthorityError.
func NewRemoteAuthorityError(code RemoteAuthorityErrorCode, message string, detail any) *RemoteAuthorityError {
	return &RemoteAuthorityError{Code: code, Message: message, Detail: detail}
}

// NewErrNoResolverFound creates the error returned when no resolver handles the given prefix.
func NewErrNoResolverFound(prefix string) *RemoteAuthorityError {
	return NewRemoteAuthorityError(RemoteAuthorityNoResolverFound, fmt.Sprintf("no remote extension installed to resolve %s", prefix), nil)
}

// NewErrInvalidAuthority creates the error returned for a malformed authority.
func NewErrInvalidAuthority(authority string) *RemoteAuthorityError {
	return NewRemoteAuthorityError(RemoteAuthorityInvalidAuthority, fmt.Sprintf("not an authority I can handle: %s", authority), nil)
}

// Error implements the standard error interface
func (e *RemoteAuthorityError) Error() string {
	return fmt.Sprintf("remote authority error (%s): %s", e.Code, e.Message)
}

// Is reports whether target is a RemoteAuthorityError with the same code.
func (e *RemoteAuthorityError) Is(target error) bool {
	var other *RemoteAuthorityError
	if errors.As(target, &other) {
		return other.Code == e.Code
	}
	return false
}

// IsRemoteAuthorityError reports whether err carries a RemoteAuthorityError.
// When code is empty any code matches.
func IsRemoteAuthorityError(err error, code RemoteAuthorityErrorCode) bool {
	var rae *RemoteAuthorityError
	if !errors.As(err, &rae) {
		return false
	}
	return code == "" || rae.Code == code
}

// AsRemoteAuthorityError returns the RemoteAuthorityError carried by err, if any.
func AsRemoteAuthorityError(err error) (*RemoteAuthorityError, bool) {
	var rae *RemoteAuthorityError
	if errors.As(err, &rae) {
		return rae, true
	}
	return nil, false
}
