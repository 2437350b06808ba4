package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

const (
	// argument err
	ErrInvalidParameter = 1101
	ErrUnknownAlgorithm = 1102
	ErrUnknownTransform = 1103

	// file err
	ErrOpenFile = 1201
	ErrReadFile = 1202
	ErrStatFile = 1203

	// checkpoint err
	ErrCheckpointLoad = 1301
	ErrCheckpointSave = 1302

	// service err
	ErrServiceStopped = 1501
	ErrJobCanceled    = 1502
	ErrPoolOverload   = 1503

	// other err
	ErrUnknown = 1701
)

var ErrCode = map[uint32]string{
	ErrInvalidParameter: "Invalid parameter",
	ErrUnknownAlgorithm: "Unknown digest algorithm",
	ErrUnknownTransform: "Unknown block transform",
	ErrOpenFile:         "Failed to open file",
	ErrReadFile:         "Failed to read file",
	ErrStatFile:         "Failed to stat file",
	ErrCheckpointLoad:   "Failed to load checkpoint",
	ErrCheckpointSave:   "Failed to save checkpoint",
	ErrServiceStopped:   "Hash service is not running",
	ErrJobCanceled:      "Hash job canceled",
	ErrPoolOverload:     "Too many concurrent hash jobs",
	ErrUnknown:          "Unknown error",
}

// CodedError attaches one of the numeric codes above to an underlying error.
type CodedError struct {
	Code uint32
	Err  error
}

// New wraps err with code. A nil err yields an error carrying only the
// code description.
func New(code uint32, err error) *CodedError {
	return &CodedError{Code: code, Err: err}
}

func (e *CodedError) Error() string {
	desc, ok := ErrCode[e.Code]
	if !ok {
		desc = ErrCode[ErrUnknown]
	}
	if e.Err == nil {
		return fmt.Sprintf("%s (%d)", desc, e.Code)
	}
	return fmt.Sprintf("%s (%d): %v", desc, e.Code, e.Err)
}

// Cause implements the causer interface of github.com/pkg/errors.
func (e *CodedError) Cause() error { return e.Err }

// Code returns the code of the outermost CodedError in err's cause chain,
// or ErrUnknown.
func Code(err error) uint32 {
	for err != nil {
		if ce, ok := err.(*CodedError); ok {
			return ce.Code
		}
		cause, ok := err.(interface{ Cause() error })
		if !ok {
			break
		}
		err = cause.Cause()
	}
	return ErrUnknown
}

// Is reports whether pkgerrors.Cause(err) is target.
func Is(err, target error) bool {
	return pkgerrors.Cause(err) == target
}
