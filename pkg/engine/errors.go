package engine

import "errors"

// Runtime errors are recoverable: the requested operation is a no-op and
// GameState is left unchanged. Manifest problems are caught before any
// session exists (see pkg/manifest); ErrSceneNotFound past that point means
// a validation gap and is surfaced as fatal at finalize.
var (
	ErrIllegalTransition  = errors.New("illegal transition")
	ErrUnknownChoice      = errors.New("unknown choice")
	ErrNavigationDisabled = errors.New("navigation disabled")
	ErrAttemptsExceeded   = errors.New("quiz attempts exceeded")
	ErrInvalidSelection   = errors.New("invalid option selection")
	ErrNotQuizScene       = errors.New("scene is not a quiz")
	ErrNotTerminal        = errors.New("current scene is not terminal")
	ErrSessionEnded       = errors.New("session already ended")
	ErrSceneNotFound      = errors.New("scene not found in manifest")
)
