package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/bleio"
)

// FormatUserError turns an error chain into a single actionable line.
func FormatUserError(err error) string {
	switch {
	case errors.Is(err, bleio.ErrIncorrectSegments), errors.Is(err, bleio.ErrInvalidNumber):
		return fmt.Sprintf("%v (expected a MAC address like C8:FD:19:12:7F:CD)", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("%v (is the device in range and advertising?)", err)
	}
	return err.Error()
}
