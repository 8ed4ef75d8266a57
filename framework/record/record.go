// Package record holds immutable test records and the builders that produce them.
//
// A builder is a value: every setter returns a new builder, so a builder can be
// shared and extended without affecting records already built from it.
//
//	base := record.NewContact().FirstName("Ada")
//	a, _ := base.LastName("Lovelace").Build()
//	b := base.BuildGeneric()
//
// Records have no id until the Web API assigns one; WithID attaches it once.
package record

import (
	"errors"
	"fmt"
)

var (
	// ErrIDAssigned indicates WithID was called on a record that already has an id
	ErrIDAssigned = errors.New("record id already assigned")

	// ErrEmptyID indicates WithID was called with an empty id
	ErrEmptyID = errors.New("record id is empty")

	// ErrMissingField indicates a required column has no value
	ErrMissingField = errors.New("required field missing")
)

// Record is a row that can be created through the Web API
type Record interface {
	// Collection returns the collection name used in API paths
	Collection() string
	// Fields returns the creation payload; only set columns are included
	Fields() map[string]any
	// ID returns the id assigned by the Web API, if any
	ID() (string, bool)
}

// MissingFieldError names the required column that was not set
type MissingFieldError struct {
	Table string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: required field %s is not set", e.Table, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// setIfNotEmpty adds a column to a payload only when it has a value
func setIfNotEmpty(fields map[string]any, column, value string) {
	if value != "" {
		fields[column] = value
	}
}

func assignID(current, id string) (string, error) {
	if current != "" {
		return "", ErrIDAssigned
	}
	if id == "" {
		return "", ErrEmptyID
	}
	return id, nil
}
