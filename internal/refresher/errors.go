package refresher

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnresolvedIdentity = errors.New("unresolved printer identity")
	ErrTransportFailure   = errors.New("transport failure")
	ErrAuthFailure        = errors.New("authentication failure")
	ErrMalformedResponse  = errors.New("malformed response")
)

// wrap tags err with marker and a printer/operation prefix so callers can
// classify it with errors.Is.
func wrap(marker error, printer, operation, message string, err error) error {
	parts := make([]string, 0, 3)
	if printer = strings.TrimSpace(printer); printer != "" {
		parts = append(parts, printer)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "refresh failure"
	}
	if marker == nil {
		marker = ErrTransportFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}
