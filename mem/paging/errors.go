package paging

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures reported by the engine.
type ErrorKind int

// The kinds of errors that the engine can report.
const (
	ConfigurationError ErrorKind = iota + 1
	InvalidJobSize
	JobTooLarge
	InsufficientFrames
	InvalidAddress
	JobNotFound
	AddressOutOfBounds
	PageIndexOutOfBounds
	PageTableInconsistency
	InvalidJobID
	InvalidFrameSelection
)

var errorKindNames = map[ErrorKind]string{
	ConfigurationError:     "ConfigurationError",
	InvalidJobSize:         "InvalidJobSize",
	JobTooLarge:            "JobTooLarge",
	InsufficientFrames:     "InsufficientFrames",
	InvalidAddress:         "InvalidAddress",
	JobNotFound:            "JobNotFound",
	AddressOutOfBounds:     "AddressOutOfBounds",
	PageIndexOutOfBounds:   "PageIndexOutOfBounds",
	PageTableInconsistency: "PageTableInconsistency",
	InvalidJobID:           "InvalidJobID",
	InvalidFrameSelection:  "InvalidFrameSelection",
}

func (k ErrorKind) String() string {
	name, ok := errorKindNames[k]
	if !ok {
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}

	return name
}

// Internal tells if the kind can only be produced by a broken invariant
// inside the engine, rather than by bad input.
func (k ErrorKind) Internal() bool {
	switch k {
	case PageIndexOutOfBounds, PageTableInconsistency, InvalidFrameSelection:
		return true
	default:
		return false
	}
}

// Error is the error type returned by all the engine operations. The fields
// that are not relevant to the Kind are left as zero.
type Error struct {
	Kind ErrorKind

	JobID  JobID
	PageID PageID

	// Value is the rejected input: a size, an address, or a count.
	Value int
	// Limit is the bound that Value violated: the size ceiling, the job
	// size, or the number of available frames.
	Limit int

	msg string
}

func (e *Error) Error() string {
	return e.msg
}

// Is makes errors.Is match any two errors of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// Internal tells if the error reveals an engine bug.
func (e *Error) Internal() bool {
	return e.Kind.Internal()
}

// Sentinels for errors.Is.
var (
	ErrConfiguration          = &Error{Kind: ConfigurationError, msg: "invalid configuration"}
	ErrInvalidJobSize         = &Error{Kind: InvalidJobSize, msg: "invalid job size"}
	ErrJobTooLarge            = &Error{Kind: JobTooLarge, msg: "job too large"}
	ErrInsufficientFrames     = &Error{Kind: InsufficientFrames, msg: "insufficient frames"}
	ErrInvalidAddress         = &Error{Kind: InvalidAddress, msg: "invalid address"}
	ErrJobNotFound            = &Error{Kind: JobNotFound, msg: "job not found"}
	ErrAddressOutOfBounds     = &Error{Kind: AddressOutOfBounds, msg: "address out of bounds"}
	ErrPageIndexOutOfBounds   = &Error{Kind: PageIndexOutOfBounds, msg: "page index out of bounds"}
	ErrPageTableInconsistency = &Error{Kind: PageTableInconsistency, msg: "page table inconsistency"}
	ErrInvalidJobID           = &Error{Kind: InvalidJobID, msg: "invalid job id"}
	ErrInvalidFrameSelection  = &Error{Kind: InvalidFrameSelection, msg: "invalid frame selection"}
)

// IsInternal tells if err, or any error it wraps, is an internal-consistency
// failure of the engine.
func IsInternal(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Internal()
}

// KindOf returns the kind of the engine error wrapped in err, or 0 if err
// does not come from the engine.
func KindOf(err error) ErrorKind {
	var e *Error
	if !errors.As(err, &e) {
		return 0
	}

	return e.Kind
}

func newConfigurationError(field string, value int) *Error {
	return &Error{
		Kind:  ConfigurationError,
		Value: value,
		msg: fmt.Sprintf(
			"invalid configuration: %s must be positive, got %d", field, value),
	}
}

func newInvalidJobSizeError(size int) *Error {
	return &Error{
		Kind:  InvalidJobSize,
		Value: size,
		msg:   fmt.Sprintf("invalid job size %d: must be positive", size),
	}
}

func newJobTooLargeError(size, limit int) *Error {
	return &Error{
		Kind:  JobTooLarge,
		Value: size,
		Limit: limit,
		msg: fmt.Sprintf(
			"job size %d exceeds the maximum of %d bytes", size, limit),
	}
}

func newInsufficientFramesError(required, available int) *Error {
	return &Error{
		Kind:  InsufficientFrames,
		Value: required,
		Limit: available,
		msg: fmt.Sprintf(
			"not enough free frames: need %d frames, but only %d are available",
			required, available),
	}
}

func newInvalidAddressError(addr int) *Error {
	return &Error{
		Kind:  InvalidAddress,
		Value: addr,
		msg: fmt.Sprintf(
			"invalid logical address %d: must be non-negative", addr),
	}
}

func newJobNotFoundError(jobID JobID) *Error {
	return &Error{
		Kind:  JobNotFound,
		JobID: jobID,
		Value: int(jobID),
		msg:   fmt.Sprintf("job ID %d not found", jobID),
	}
}

func newAddressOutOfBoundsError(jobID JobID, addr, size int) *Error {
	return &Error{
		Kind:  AddressOutOfBounds,
		JobID: jobID,
		Value: addr,
		Limit: size,
		msg: fmt.Sprintf(
			"logical address %d is out of bounds for job %d (size: %d)",
			addr, jobID, size),
	}
}

func newPageIndexOutOfBoundsError(jobID JobID, index, numPages int) *Error {
	return &Error{
		Kind:  PageIndexOutOfBounds,
		JobID: jobID,
		Value: index,
		Limit: numPages,
		msg: fmt.Sprintf(
			"page number %d is out of bounds for job %d (%d pages)",
			index, jobID, numPages),
	}
}

func newPageTableInconsistencyError(jobID JobID, pageID PageID) *Error {
	return &Error{
		Kind:   PageTableInconsistency,
		JobID:  jobID,
		PageID: pageID,
		msg: fmt.Sprintf(
			"page %d of job %d not found in page table", pageID, jobID),
	}
}

func newInvalidJobIDError(jobID JobID) *Error {
	return &Error{
		Kind:  InvalidJobID,
		JobID: jobID,
		Value: int(jobID),
		msg:   fmt.Sprintf("invalid job ID %d: must be positive", jobID),
	}
}

func newInvalidFrameSelectionError(reason string) *Error {
	return &Error{
		Kind: InvalidFrameSelection,
		msg:  "invalid frame selection: " + reason,
	}
}

func newInvariantViolationError(format string, args ...any) *Error {
	return &Error{
		Kind: PageTableInconsistency,
		msg:  "invariant violated: " + fmt.Sprintf(format, args...),
	}
}
