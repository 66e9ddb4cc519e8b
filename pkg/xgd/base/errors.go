/*
   xgdctl - Xbox security sector tools
   Copyright (c) 2024, the xgdctl authors

   This file is part of xgdctl.

   xgdctl is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   xgdctl is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with xgdctl. If not, see <http://www.gnu.org/licenses/>.
*/

package base

import (
	"errors"
	"fmt"
)

// Class is the severity class of a domain error.
type Class int

const (
	// StructuralError means the input is not a sector we can work with
	StructuralError Class = iota + 1
	// UnsupportedRepair means the repair engine refuses to touch the sector
	UnsupportedRepair
	// IntegrityWarning is reported, processing continues
	IntegrityWarning
	// ConflictError is fatal for repair, advisory during validation
	ConflictError
)

//
func (c Class) String() string {

	switch c {

	case StructuralError:
		return "StructuralError"

	case UnsupportedRepair:
		return "UnsupportedRepair"

	case IntegrityWarning:
		return "IntegrityWarning"

	case ConflictError:
		return "ConflictError"

	default:
		return "<unknown>"
	}
}

// Code identifies a specific condition.
type Code string

const (
	InvalidSize              Code = "InvalidSize"
	UnknownVariant           Code = "UnknownVariant"
	UnknownSignature         Code = "UnknownSignature"
	UnresolvedVariant        Code = "UnresolvedVariant"
	UnsupportedVariant       Code = "UnsupportedVariant"
	UnexpectedValue          Code = "UnexpectedValue"
	ReservedData             Code = "ReservedData"
	MirrorMismatch           Code = "MirrorMismatch"
	CountMismatch            Code = "CountMismatch"
	CT01Conflict             Code = "CT01Conflict"
	CprMaiMismatch           Code = "CprMaiMismatch"
	UnsupportedChallengeType Code = "UnsupportedChallengeType"
	UnexpectedChallengeID    Code = "UnexpectedChallengeId"
	NoMatchingChallenge      Code = "NoMatchingChallenge"
	AmbiguousChallenge       Code = "AmbiguousChallenge"
	MismatchedTypes          Code = "MismatchedTypes"
	MismatchedData           Code = "MismatchedData"
	MismatchedResponse       Code = "MismatchedResponse"
	InvalidAngle             Code = "InvalidAngle"
	ZeroedAngle              Code = "ZeroedAngle"
	InvalidPermutation       Code = "InvalidPermutation"
	InvalidTimestamp         Code = "InvalidTimestamp"
)

/*
	Error is a classified domain error. Two errors match under errors.Is when
	their codes are equal, so callers can test against the sentinel values
	below regardless of the message.
*/
type Error struct {
	Class Class
	Code  Code
	Msg   string
}

//
func NewError(class Class, code Code, format string, args ...interface{}) *Error {
	return &Error{Class: class, Code: code, Msg: fmt.Sprintf(format, args...)}
}

//
func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

//
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

//
var (
	ErrInvalidSize        = &Error{Class: StructuralError, Code: InvalidSize}
	ErrUnknownVariant     = &Error{Class: StructuralError, Code: UnknownVariant}
	ErrUnknownSignature   = &Error{Class: StructuralError, Code: UnknownSignature}
	ErrUnsupportedVariant = &Error{Class: UnsupportedRepair, Code: UnsupportedVariant}
	ErrCT01Conflict       = &Error{Class: ConflictError, Code: CT01Conflict}
	ErrCprMaiMismatch     = &Error{Class: UnsupportedRepair, Code: CprMaiMismatch}
	ErrAmbiguous          = &Error{Class: ConflictError, Code: AmbiguousChallenge}
	ErrMismatchedTypes    = &Error{Class: UnsupportedRepair, Code: MismatchedTypes}
	ErrInvalidPermutation = &Error{Class: StructuralError, Code: InvalidPermutation}
)

// ClassOf returns the class of the first classified error in err's chain.
func ClassOf(err error) (Class, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Class, true
	}
	return 0, false
}

// RefusedError is returned when the repair engine declines to modify a sector.
// It wraps the classified cause.
type RefusedError struct {
	Cause error
}

//
func Refuse(cause error) *RefusedError {
	return &RefusedError{Cause: cause}
}

//
func (r *RefusedError) Error() string {
	return fmt.Sprintf("repair refused: %v", r.Cause)
}

//
func (r *RefusedError) Unwrap() error {
	return r.Cause
}

//
func IsRefused(err error) bool {
	var r *RefusedError
	return errors.As(err, &r)
}
