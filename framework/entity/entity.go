// Package entity describes the tables the suite reads and writes through the Web API.
package entity

import "sort"

// Descriptor identifies a table to the Web API gateway and to the UI.
// The collection name is fixed at construction; Fields is owned by the caller
// and is used both as a creation payload and as a cache of a record's columns.
type Descriptor struct {
	logicalName           string
	logicalCollectionName string
	primaryIDAttribute    string

	// Fields maps column names to values
	Fields map[string]any
}

// New creates a Descriptor for a table.
// logicalName is the singular name used by app routing (etn=contact),
// collectionName the plural Web API segment (contacts).
func New(logicalName, collectionName, primaryIDAttribute string) *Descriptor {
	return &Descriptor{
		logicalName:           logicalName,
		logicalCollectionName: collectionName,
		primaryIDAttribute:    primaryIDAttribute,
		Fields:                make(map[string]any),
	}
}

// LogicalName returns the singular table name
func (d *Descriptor) LogicalName() string {
	return d.logicalName
}

// LogicalCollectionName returns the plural Web API resource segment
func (d *Descriptor) LogicalCollectionName() string {
	return d.logicalCollectionName
}

// PrimaryIDAttribute returns the column holding the record id, e.g. contactid
func (d *Descriptor) PrimaryIDAttribute() string {
	return d.primaryIDAttribute
}

// WithFields returns a copy of the descriptor with its own Fields map
func (d *Descriptor) WithFields(fields map[string]any) *Descriptor {
	cp := *d
	cp.Fields = make(map[string]any, len(fields))
	for k, v := range fields {
		cp.Fields[k] = v
	}
	return &cp
}

// FieldNames returns the keys of Fields in sorted order
func (d *Descriptor) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Contact returns a fresh descriptor for the contact table
func Contact() *Descriptor {
	return New("contact", "contacts", "contactid")
}

// Account returns a fresh descriptor for the account table
func Account() *Descriptor {
	return New("account", "accounts", "accountid")
}

// All returns descriptors for every table the suite provisions records in
func All() []*Descriptor {
	return []*Descriptor{
		Contact(),
		Account(),
	}
}

// ByLogicalName returns a fresh descriptor for a known table
func ByLogicalName(name string) (*Descriptor, bool) {
	for _, d := range All() {
		if d.logicalName == name {
			return d, true
		}
	}
	return nil, false
}

// ByCollectionName returns a fresh descriptor for a known Web API collection
func ByCollectionName(name string) (*Descriptor, bool) {
	for _, d := range All() {
		if d.logicalCollectionName == name {
			return d, true
		}
	}
	return nil, false
}
