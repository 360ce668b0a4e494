// Package services provides shared helpers for external collaborator
// integrations: the fault taxonomy used to classify phase failures and
// context annotations that flow item, phase, and run identifiers into
// structured logs.
package services
