package tools

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArguments wraps every argument decoding or validation failure.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrUnknownTool is returned for names that are not registered.
	ErrUnknownTool = errors.New("unknown tool")
)

func invalidArgs(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArguments, fmt.Sprintf(format, args...))
}
