package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaViolation is returned when a required file, column or row is absent.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrUnmappedZone is returned when a zone id has no region.
	ErrUnmappedZone = errors.New("unmapped zone")
	// ErrResourceClassificationConflict is returned when a resource label matches
	// rules for more than one category.
	ErrResourceClassificationConflict = errors.New("resource classification conflict")
	// ErrUnclassifiedResource is returned when a resource label matches no rule.
	ErrUnclassifiedResource = errors.New("unclassified resource")
	// ErrMissingPriorPeriod marks a non-first period compiled without carry-forward.
	ErrMissingPriorPeriod = errors.New("missing prior period")
	// ErrMissingCaseFolder marks a case pairing whose folder does not exist.
	ErrMissingCaseFolder = errors.New("missing case folder")
	// ErrCaseOrder is returned when a case order is not a permutation of the cases present.
	ErrCaseOrder = errors.New("invalid case order")
)

// SchemaError describes a missing or malformed part of a solver file.
type SchemaError struct {
	File   string
	Field  string
	Detail string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("schema violation in ")
	b.WriteString(e.File)
	if e.Field != "" {
		fmt.Fprintf(&b, ": %q", e.Field)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchemaViolation }

// UnmappedZoneError names a zone id missing from the region map.
type UnmappedZoneError struct {
	Zone int
	File string
}

func (e *UnmappedZoneError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("zone %d has no region", e.Zone)
	}
	return fmt.Sprintf("%s: zone %d has no region", e.File, e.Zone)
}

func (e *UnmappedZoneError) Is(target error) bool { return target == ErrUnmappedZone }

// ClassificationError reports a resource label that did not resolve to exactly
// one category. Categories is empty when nothing matched.
type ClassificationError struct {
	Label      string
	Categories []ResourceCategory
}

func (e *ClassificationError) Error() string {
	if len(e.Categories) == 0 {
		return fmt.Sprintf("resource %q matches no category", e.Label)
	}
	names := make([]string, len(e.Categories))
	for i, c := range e.Categories {
		names[i] = string(c)
	}
	return fmt.Sprintf("resource %q matches multiple categories: %s", e.Label, strings.Join(names, ", "))
}

func (e *ClassificationError) Is(target error) bool {
	if len(e.Categories) == 0 {
		return target == ErrUnclassifiedResource
	}
	return target == ErrResourceClassificationConflict
}
