// Copyright 2024 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pdf

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// ErrorKind classifies errors raised while reconstructing a damaged file.
// The kind decides whether an error may be swallowed locally (skip the
// current object or container and keep going) or must abort the whole
// repair attempt.
type ErrorKind int

const (
	// KindSyntax is a bad token sequence. Always recoverable at the
	// scanner level by skipping ahead to the next token.
	KindSyntax ErrorKind = iota

	// KindFormat is structurally nonsensical data, such as a corrupt
	// object-stream header. Recoverable by skipping the offending unit.
	KindFormat

	// KindSystem is an I/O or resource failure. Always fatal, always
	// re-raised, never swallowed.
	KindSystem

	// KindTryLater signals that data is not yet available (progressive
	// loading). Always re-raised, never treated as a local failure.
	KindTryLater

	// KindRepairFailed means repair was already attempted on this
	// document. Fatal and non-retryable.
	KindRepairFailed

	// KindNoObjects means the scan produced nothing usable. Fatal.
	KindNoObjects

	// KindRepaired is the informational "file was repaired" condition
	// reported when RepairOptions.ReportRepair is set.
	KindRepaired
)

func (k ErrorKind) String() string {
	switch k {
	case KindSyntax:
		return "syntax"
	case KindFormat:
		return "format"
	case KindSystem:
		return "system"
	case KindTryLater:
		return "trylater"
	case KindRepairFailed:
		return "repair failed"
	case KindNoObjects:
		return "no objects"
	case KindRepaired:
		return "repaired"
	}
	return "unknown"
}

// RepairError is an error tagged with an ErrorKind. It follows the
// usual wrapping conventions so callers can use errors.As / errors.Is.
type RepairError struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "scan", "expand object stream"
	Err  error  // underlying error, may be nil
}

func (e *RepairError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pdf: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pdf: %s (%s)", e.Op, e.Kind)
}

func (e *RepairError) Unwrap() error {
	return e.Err
}

// repairErrf builds a tagged error from a format string.
func repairErrf(kind ErrorKind, format string, args ...interface{}) error {
	return &RepairError{Kind: kind, Op: fmt.Sprintf(format, args...)}
}

// wrapSystem tags an underlying I/O error as fatal, adding context in
// the errors.Wrap style.
func wrapSystem(err error, op string) error {
	return &RepairError{Kind: KindSystem, Op: op, Err: errors.Wrap(err, "i/o failure")}
}

// errKind extracts the ErrorKind from err. Untagged errors are treated
// as syntax errors: anything we did not explicitly classify came from
// tokenizing untrusted bytes.
func errKind(err error) ErrorKind {
	var re *RepairError
	if stderrors.As(err, &re) {
		return re.Kind
	}
	return KindSyntax
}

// isFatal reports whether err must bypass local skip-and-continue
// handling and propagate to the top of the repair call.
func isFatal(err error) bool {
	switch errKind(err) {
	case KindSystem, KindTryLater:
		return true
	}
	return false
}

// systemErr tags read errors other than EOF as fatal system errors.
// A short read at end of file is a normal condition for a truncated
// document and is not an error at all here.
func systemErr(err error, op string) error {
	if err == nil || err == io.EOF {
		return nil
	}
	return wrapSystem(err, op)
}
