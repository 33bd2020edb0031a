package domain

import "errors"

var (
	ErrEmptyPrompt       = errors.New("prompt is empty")
	ErrBusy              = errors.New("another request is in progress")
	ErrInvalidTransition = errors.New("action not allowed in current mode")
	ErrNoActivePrompt    = errors.New("no active prompt")
	ErrPromptNotFound    = errors.New("prompt version not found")
	ErrSessionReset      = errors.New("session was reset")
	ErrModelNotFound     = errors.New("model not found")
)
