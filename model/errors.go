package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedOrigin       = errors.New("unsupported origin")
	ErrDownloadFailed          = errors.New("download failed")
	ErrAccessDenied            = errors.New("access denied")
	ErrDownloadArtifactMissing = errors.New("download artifact missing")
	ErrEffectApplication       = errors.New("effect application failed")
	ErrDurableUpload           = errors.New("durable upload failed")
	ErrAssetNotFound           = errors.New("asset not found")
	ErrInvalidParameters       = errors.New("invalid parameters")
)

// ToolError is a failure of an external executable, carrying its diagnostic output.
type ToolError struct {
	Kind       error
	Command    string
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%v (cmd=%s exit=%d)", e.Kind, e.Command, e.ExitCode)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}

// Is lets errors.Is match the error kind. AccessDenied is a subset of DownloadFailed.
func (e *ToolError) Is(target error) bool {
	if e == nil {
		return false
	}
	if target == e.Kind {
		return true
	}
	return e.Kind == ErrAccessDenied && target == ErrDownloadFailed
}

// Unwrap exposes the underlying process error.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
