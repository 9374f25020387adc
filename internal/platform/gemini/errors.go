package gemini

import "errors"

// Error definitions for the gemini package.
var (
	ErrInvalidConfig   = errors.New("invalid gemini configuration")
	ErrEmptyPrompt     = errors.New("prompt cannot be empty")
	ErrInvalidResponse = errors.New("invalid response from gemini")
	ErrContentBlocked  = errors.New("content blocked by safety filters")
)
