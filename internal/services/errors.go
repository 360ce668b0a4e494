package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classify pipeline failures. Per-item faults (fetch, media,
// categorization, render) are caught at the phase boundary and counted;
// storage faults abort the run because continuing risks divergence between
// the in-memory catalog and disk.
var (
	ErrFetch          = errors.New("fetch fault")
	ErrMedia          = errors.New("media fault")
	ErrCategorization = errors.New("categorization fault")
	ErrRender         = errors.New("render fault")
	ErrStorage        = errors.New("storage fault")
	ErrSync           = errors.New("sync fault")
)

// Wrap builds an error message that includes phase context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrMedia
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsStorageFault reports whether err carries the storage marker. Storage
// faults must propagate past the phase loop and halt the run.
func IsStorageFault(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsItemFault reports whether err is a recoverable per-item fault that the
// phase executor may count and skip.
func IsItemFault(err error) bool {
	return errors.Is(err, ErrFetch) ||
		errors.Is(err, ErrMedia) ||
		errors.Is(err, ErrCategorization) ||
		errors.Is(err, ErrRender)
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
