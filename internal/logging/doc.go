// Package logging builds the slog loggers used across curator and provides
// attribute helpers plus context-derived fields (item, phase, run) so every
// component logs with a consistent vocabulary.
package logging
