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
	"strings"
)

var (
	// ErrConnectivity is returned when no configured site answered its probe.
	ErrConnectivity = errors.New("no configured site is reachable")
	// ErrRangeExhausted is returned when every identifier of a site's range is taken.
	ErrRangeExhausted = errors.New("identifier range exhausted")
	// ErrPermissionDenied is returned when a master-only write is attempted from another site.
	ErrPermissionDenied = errors.New("operation only permitted at the master site")
	// ErrRemoteProcedure is returned when a stored procedure call fails natively.
	ErrRemoteProcedure = errors.New("stored procedure call failed")
	// ErrPartialWrite is returned when the first of two dependent writes succeeded and the second failed.
	ErrPartialWrite = errors.New("partial write")
	// ErrUnknownEntity is returned when an entity type has no descriptor or range.
	ErrUnknownEntity = errors.New("unknown entity type")
	// ErrUnknownSite is returned when a site identifier is not configured.
	ErrUnknownSite = errors.New("unknown site")
	// ErrNotFound is returned when a keyed read matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidInput is returned when caller supplied data cannot be routed.
	ErrInvalidInput = errors.New("invalid input")
)

// ConnectivityError reports that every site in the preference list failed its probe.
type ConnectivityError struct {
	// Attempted lists the probed sites in probe order
	Attempted []string
}

var _ error = (*ConnectivityError)(nil)

// NewConnectivityError creates an instance of ConnectivityError
func NewConnectivityError(attempted ...string) *ConnectivityError {
	return &ConnectivityError{Attempted: attempted}
}

// Error implements the standard error interface
func (e *ConnectivityError) Error() string {
	if len(e.Attempted) == 0 {
		return ErrConnectivity.Error()
	}
	return fmt.Sprintf("%s (tried %s)", ErrConnectivity, strings.Join(e.Attempted, ", "))
}

// Is matches ErrConnectivity
func (e *ConnectivityError) Is(target error) bool {
	return target == ErrConnectivity
}

// RangeExhaustedError reports that a site has no free identifier left for an entity type.
type RangeExhaustedError struct {
	Entity string
	Site   string
	Min    int64
	Max    int64
}

var _ error = (*RangeExhaustedError)(nil)

// NewRangeExhaustedError creates an instance of RangeExhaustedError
func NewRangeExhaustedError(entity, site string, min, max int64) *RangeExhaustedError {
	return &RangeExhaustedError{Entity: entity, Site: site, Min: min, Max: max}
}

// Error implements the standard error interface
func (e *RangeExhaustedError) Error() string {
	return fmt.Sprintf("no %s identifier available in range %d-%d at site %s", e.Entity, e.Min, e.Max, e.Site)
}

// Is matches ErrRangeExhausted
func (e *RangeExhaustedError) Is(target error) bool {
	return target == ErrRangeExhausted
}

// PermissionDeniedError reports a centralized write attempted away from the master.
// No database call is made when this error is produced.
type PermissionDeniedError struct {
	Entity    string
	Operation string
	Site      string
	Master    string
}

var _ error = (*PermissionDeniedError)(nil)

// NewPermissionDeniedError creates an instance of PermissionDeniedError
func NewPermissionDeniedError(entity, operation, site, master string) *PermissionDeniedError {
	return &PermissionDeniedError{Entity: entity, Operation: operation, Site: site, Master: master}
}

// Error implements the standard error interface
func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("%s of %s is only permitted at master site %s (current site: %s)", e.Operation, e.Entity, e.Master, e.Site)
}

// Is matches ErrPermissionDenied
func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// RemoteProcedureError wraps the native failure of a stored procedure call.
type RemoteProcedureError struct {
	Procedure string
	Site      string
	err       error
}

var _ error = (*RemoteProcedureError)(nil)

// NewRemoteProcedureError creates an instance of RemoteProcedureError
func NewRemoteProcedureError(procedure, site string, cause error) *RemoteProcedureError {
	return &RemoteProcedureError{Procedure: procedure, Site: site, err: cause}
}

// Error implements the standard error interface
func (e *RemoteProcedureError) Error() string {
	return fmt.Sprintf("procedure %s at site %s: %v", e.Procedure, e.Site, e.err)
}

// Is matches ErrRemoteProcedure
func (e *RemoteProcedureError) Is(target error) bool {
	return target == ErrRemoteProcedure
}

func (e *RemoteProcedureError) Unwrap() error {
	return e.err
}

// PartialWriteError reports that a staff row was created but its contract was not.
// Key identifies the staff row so that a human or a retry process can finish or compensate.
type PartialWriteError struct {
	// Site is the owner-site code of the created row
	Site int
	// LocalID is the local identifier of the created row
	LocalID int64
	// Compensated states whether the created row has been removed since
	Compensated bool
	// CompensationErr holds the failure of the compensating action, if any
	CompensationErr error
	err             error
}

var _ error = (*PartialWriteError)(nil)

// NewPartialWriteError creates an instance of PartialWriteError
func NewPartialWriteError(site int, localID int64, cause error) *PartialWriteError {
	return &PartialWriteError{Site: site, LocalID: localID, err: cause}
}

// Error implements the standard error interface
func (e *PartialWriteError) Error() string {
	state := "left in place"
	switch {
	case e.Compensated:
		state = "compensated"
	case e.CompensationErr != nil:
		state = fmt.Sprintf("compensation failed: %v", e.CompensationErr)
	}
	return fmt.Sprintf("%s: record (%d, %d) created, dependent write failed (%s): %v", ErrPartialWrite, e.Site, e.LocalID, state, e.err)
}

// Is matches ErrPartialWrite
func (e *PartialWriteError) Is(target error) bool {
	return target == ErrPartialWrite
}

func (e *PartialWriteError) Unwrap() error {
	return e.err
}
