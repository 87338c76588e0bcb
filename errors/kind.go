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

import "errors"

// Kind classifies a failure for the caller-facing result
type Kind int

const (
	// KindNone means no failure
	KindNone Kind = iota
	// KindConnectivity means no site was reachable
	KindConnectivity
	// KindRangeExhausted means no identifier was left in a site's range
	KindRangeExhausted
	// KindPermissionDenied means a master-only write was refused
	KindPermissionDenied
	// KindRemoteProcedure means a stored procedure failed
	KindRemoteProcedure
	// KindPartialWrite means the second of two dependent writes failed
	KindPartialWrite
	// KindNotFound means a keyed read matched nothing
	KindNotFound
	// KindInvalidInput means the request could not be routed
	KindInvalidInput
	// KindInternal covers everything else
	KindInternal
)

var kindNames = map[Kind]string{
	KindNone:             "none",
	KindConnectivity:     "connectivity",
	KindRangeExhausted:   "range_exhausted",
	KindPermissionDenied: "permission_denied",
	KindRemoteProcedure:  "remote_procedure",
	KindPartialWrite:     "partial_write",
	KindNotFound:         "not_found",
	KindInvalidInput:     "invalid_input",
	KindInternal:         "internal",
}

// String returns the machine-readable name of the kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindInternal]
}

// KindOf classifies err. Partial writes are checked first since they wrap
// the remote procedure error of the failed step.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrPartialWrite):
		return KindPartialWrite
	case errors.Is(err, ErrConnectivity):
		return KindConnectivity
	case errors.Is(err, ErrRangeExhausted):
		return KindRangeExhausted
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrRemoteProcedure):
		return KindRemoteProcedure
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownEntity), errors.Is(err, ErrUnknownSite):
		return KindInvalidInput
	default:
		return KindInternal
	}
}
