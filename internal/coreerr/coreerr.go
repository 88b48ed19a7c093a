/*
 * Taleä - Core error classification.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package coreerr classifies the error conditions the Sirius core can
// raise, per the propagation policy: Processor errors are caught and
// routed to an IVT vector, Breakpoint errors are soft stops the scheduler
// resumes from, everything else propagates to the caller of run_for.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the scheduler and CPU dispatch loop.
type Kind int

const (
	// Processor is a CPU-synchronous condition destined for an IVT vector.
	Processor Kind = iota
	// Bus is a routing failure (NoSegment, CrossesBoundary).
	Bus
	// Breakpoint is a soft stop: read-only write, debugger breakpoint hit.
	Breakpoint
	// Protocol is an invalid interrupt-controller operation.
	Protocol
	// IO is a host-side I/O failure from a storage collaborator.
	IO
)

func (k Kind) String() string {
	switch k {
	case Processor:
		return "processor"
	case Bus:
		return "bus"
	case Breakpoint:
		return "breakpoint"
	case Protocol:
		return "protocol"
	case IO:
		return "io"
	default:
		return "unknown"
	}
}

// Native IVT vector numbers for Processor errors.
const (
	BusError           uint32 = 2
	AddressError       uint32 = 3
	IllegalInstruction uint32 = 4
	ZeroDivide         uint32 = 5
	PrivilegeViolation uint32 = 6
	PageFault          uint32 = 7
	AccessViolation    uint32 = 8
)

// CoreError is the error type carried across package boundaries inside
// the core. Native is only meaningful when Kind == Processor.
type CoreError struct {
	Kind   Kind
	Native uint32
	msg    string
	err    error
}

func (e *CoreError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *CoreError) Unwrap() error {
	return e.err
}

// New builds a CoreError of a given kind with a message.
func New(kind Kind, msg string) *CoreError {
	return &CoreError{Kind: kind, msg: msg}
}

// Wrap builds a CoreError of a given kind, wrapping an underlying error.
func Wrap(kind Kind, msg string, err error) *CoreError {
	return &CoreError{Kind: kind, msg: msg, err: err}
}

// Processorf builds a Processor-kind CoreError for the given native vector.
func Processorf(native uint32, format string, args ...any) *CoreError {
	return &CoreError{Kind: Processor, Native: native, msg: fmt.Sprintf(format, args...)}
}

// ProcessorWrap builds a Processor-kind CoreError for the given native
// vector, wrapping an underlying bus or device error.
func ProcessorWrap(native uint32, msg string, err error) *CoreError {
	return &CoreError{Kind: Processor, Native: native, msg: msg, err: err}
}

// NoSegment reports that no bus block covers an address.
func NoSegment(addr uint64) *CoreError {
	return New(Bus, fmt.Sprintf("no segment mapped at address 0x%x", addr))
}

// CrossesBoundary reports that an access spans past the end of its block.
func CrossesBoundary(addr uint64) *CoreError {
	return New(Bus, fmt.Sprintf("access at 0x%x crosses segment boundary", addr))
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// As extracts the CoreError from err, if any.
func As(err error) (*CoreError, bool) {
	var ce *CoreError
	ok := errors.As(err, &ce)
	return ce, ok
}
