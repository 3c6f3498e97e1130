package model

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrLocked is wrapped by an IOError when another process holds the file.
var ErrLocked = errors.New("file is locked")

// IOError reports a missing, locked or unreadable file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) NotFound() bool { return errors.Is(e.Err, fs.ErrNotExist) }

func (e *IOError) PermissionDenied() bool { return errors.Is(e.Err, fs.ErrPermission) }

func (e *IOError) Locked() bool { return errors.Is(e.Err, ErrLocked) }

// FormatError reports an unrecognized container or a corrupted header.
type FormatError struct {
	Path   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "invalid file format"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// UnsupportedFormatError is returned for extensions no adapter handles.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q: %s", e.Ext, e.Path)
}

// UnsupportedOperationError reports a change the target format cannot represent.
type UnsupportedOperationError struct {
	Op     string
	Format Format
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	msg := fmt.Sprintf("%s is not supported for %s", e.Op, e.Format)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// EncodingError reports text the chosen charset cannot hold without loss.
type EncodingError struct {
	Key    string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %s: %s", e.Key, e.Reason)
}

type UnknownTagKeyError struct {
	Key    string
	Format Format
	Reason string
}

func (e *UnknownTagKeyError) Error() string {
	msg := fmt.Sprintf("tag key %q cannot be written to %s", e.Key, e.Format)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

type InvalidPictureError struct {
	Kind   ImageKind
	Reason string
	Err    error
}

func (e *InvalidPictureError) Error() string {
	msg := fmt.Sprintf("invalid %s picture", e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidPictureError) Unwrap() error { return e.Err }

// Warning is a non-fatal problem met while decoding, such as a malformed
// frame that was skipped.
type Warning struct {
	Stage   string
	Message string
}

func (w Warning) String() string {
	return w.Stage + ": " + w.Message
}

const (
	ClassIO                   = "IOError"
	ClassFormat               = "FormatError"
	ClassUnsupportedFormat    = "UnsupportedFormat"
	ClassUnsupportedOperation = "UnsupportedOperation"
	ClassEncoding             = "EncodingError"
	ClassUnknownTagKey        = "UnknownTagKey"
	ClassInvalidPicture       = "InvalidPictureData"
	ClassUnknown              = "Unknown"
)

// Classify returns the error class name callers report to the user.
func Classify(err error) string {
	var (
		ioErr          *IOError
		formatErr      *FormatError
		unsupportedFmt *UnsupportedFormatError
		unsupportedOp  *UnsupportedOperationError
		encodingErr    *EncodingError
		unknownKey     *UnknownTagKeyError
		pictureErr     *InvalidPictureError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ioErr):
		return ClassIO
	case errors.As(err, &unsupportedFmt):
		return ClassUnsupportedFormat
	case errors.As(err, &unsupportedOp):
		return ClassUnsupportedOperation
	case errors.As(err, &encodingErr):
		return ClassEncoding
	case errors.As(err, &unknownKey):
		return ClassUnknownTagKey
	case errors.As(err, &pictureErr):
		return ClassInvalidPicture
	case errors.As(err, &formatErr):
		return ClassFormat
	default:
		return ClassUnknown
	}
}
