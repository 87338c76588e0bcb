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

package result

import (
	gerrors "github.com/clinicnet/shardroute/errors"
	"github.com/clinicnet/shardroute/site"
)

// Result is the uniform outcome of a model operation.
// Site is the site the operation ran at, empty when none could be resolved.
type Result[T any] struct {
	OK    bool
	Value T
	Err   error
	Kind  gerrors.Kind
	Site  site.ID
}

// Ok returns a successful result
func Ok[T any](at site.ID, value T) Result[T] {
	return Result[T]{OK: true, Value: value, Kind: gerrors.KindNone, Site: at}
}

// Fail returns a failed result classified by the error kind.
// Value keeps whatever the operation produced before failing, e.g. the key of a partial write.
func Fail[T any](at site.ID, value T, err error) Result[T] {
	if err == nil {
		return Ok(at, value)
	}
	return Result[T]{OK: false, Value: value, Err: err, Kind: gerrors.KindOf(err), Site: at}
}

// From builds the result of a call returning a value and an error
func From[T any](at site.ID, value T, err error) Result[T] {
	return Fail(at, value, err)
}

// Message returns the human-readable error, empty on success
func (r Result[T]) Message() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Unwrap returns the value and error pair
func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}

// Map converts the value of a successful result. A failed result keeps its
// error and site and carries the zero value of U.
func Map[T, U any](r Result[T], convert func(T) U) Result[U] {
	if !r.OK {
		var zero U
		return Result[U]{OK: false, Value: zero, Err: r.Err, Kind: r.Kind, Site: r.Site}
	}
	return Ok(r.Site, convert(r.Value))
}
