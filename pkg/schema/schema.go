// Package schema defines the logical column types, typed cell values,
// and column descriptors shared by the intuition, casting, statistics,
// and partition stages.
package schema

import (
	"strings"

	"github.com/stratum-data/stratum/pkg/errors"
	"github.com/stratum-data/stratum/pkg/json"
	stringpool "github.com/stratum-data/stratum/pkg/strings"
)

// Type is the logical type of a column. Unknown is a first-class
// variant, not a sentinel string.
type Type uint8

const (
	// TypeUnknown means no classifiable values were seen
	TypeUnknown Type = iota
	// TypeInteger is a 64-bit signed integer column
	TypeInteger
	// TypeFloat is a 64-bit float column
	TypeFloat
	// TypeDate is a calendar date column
	TypeDate
	// TypeTime is a time-of-day column
	TypeTime
	// TypeDatetime is a full timestamp column
	TypeDatetime
	// TypeString is a text column
	TypeString
)

var typeNames = map[Type]string{
	TypeUnknown:  "unknown",
	TypeInteger:  "integer",
	TypeFloat:    "float",
	TypeDate:     "date",
	TypeTime:     "time",
	TypeDatetime: "datetime",
	TypeString:   "string",
}

var typesByName = map[string]Type{
	"unknown":  TypeUnknown,
	"integer":  TypeInteger,
	"int":      TypeInteger,
	"float":    TypeFloat,
	"real":     TypeFloat,
	"date":     TypeDate,
	"time":     TypeTime,
	"datetime": TypeDatetime,
	"string":   TypeString,
	"text":     TypeString,
	"varchar":  TypeString,
}

// String returns the canonical name of the type.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseType resolves a type name to a Type.
func ParseType(name string) (Type, error) {
	if t, ok := typesByName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t, nil
	}
	return TypeUnknown, errors.New(errors.ErrorTypeValidation,
		stringpool.Sprintf("unknown logical type %q", name))
}

// IsNumber reports whether the type is integer or float.
func (t Type) IsNumber() bool { return t == TypeInteger || t == TypeFloat }

// IsText reports whether the type is string.
func (t Type) IsText() bool { return t == TypeString }

// IsDate reports whether the type carries a calendar date component.
func (t Type) IsDate() bool { return t == TypeDate || t == TypeDatetime }

// IsTime reports whether the type carries a time-of-day component.
func (t Type) IsTime() bool { return t == TypeTime || t == TypeDatetime }

// promotion ranks for merging intuited types across chunks.
var promotionRank = map[Type]int{
	TypeUnknown:  0,
	TypeInteger:  1,
	TypeFloat:    2,
	TypeDate:     3,
	TypeTime:     4,
	TypeDatetime: 5,
	TypeString:   6,
}

// Promote merges two intuited types; the higher-ranked type wins.
// Ordering: unknown < integer < float < date < time < datetime < string.
func Promote(a, b Type) Type {
	if promotionRank[b] > promotionRank[a] {
		return b
	}
	return a
}

// Column describes one output column: its schema position, name,
// declared logical type, and casting/statistics hints.
type Column struct {
	// Position is the 0-based position in the schema order
	Position int `json:"position" msgpack:"position"`
	// Name is the column identifier
	Name string `json:"name" msgpack:"name"`
	// Type is the declared logical type
	Type Type `json:"type" msgpack:"type"`
	// Description is free-form documentation
	Description string `json:"description,omitempty" msgpack:"description"`
	// Converter optionally names a custom converter in the registry
	Converter string `json:"converter,omitempty" msgpack:"-"`
	// Default is substituted for empty-like cells when set
	Default interface{} `json:"default,omitempty" msgpack:"-"`
	// Primary marks a primary key column
	Primary bool `json:"primary,omitempty" msgpack:"-"`
	// HasCodes marks a non-string column that also carried string
	// sentinel values in the source
	HasCodes bool `json:"has_codes,omitempty" msgpack:"-"`
}

// Schema is an ordered list of columns with a name lookup built once.
// Schema order defines row field order everywhere downstream.
type Schema struct {
	Name    string
	columns []*Column
	index   map[string]int
}

// NewSchema creates an empty schema.
func NewSchema(name string) *Schema {
	return &Schema{
		Name:  name,
		index: make(map[string]int),
	}
}

// AddColumn appends a column, assigning its position. Adding a column
// with a duplicate name returns an error.
func (s *Schema) AddColumn(col *Column) error {
	if _, ok := s.index[col.Name]; ok {
		return errors.New(errors.ErrorTypeValidation,
			stringpool.Sprintf("duplicate column %q", col.Name))
	}
	col.Position = len(s.columns)
	s.index[col.Name] = col.Position
	s.columns = append(s.columns, col)
	return nil
}

// Columns returns the ordered column descriptors.
func (s *Schema) Columns() []*Column {
	return s.columns
}

// Len returns the column count.
func (s *Schema) Len() int {
	return len(s.columns)
}

// Column returns the descriptor at position i.
func (s *Schema) Column(i int) *Column {
	return s.columns[i]
}

// ByName returns the descriptor with the given name.
func (s *Schema) ByName(name string) (*Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.columns[i], true
}

// MarshalJSON renders the schema as its name and ordered columns.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string    `json:"name"`
		Columns []*Column `json:"columns"`
	}{s.Name, s.columns})
}

// Names returns the ordered column names.
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, col := range s.columns {
		names[i] = col.Name
	}
	return names
}
