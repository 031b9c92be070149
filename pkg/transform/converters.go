// Package transform casts raw rows to a declared schema, compiling one
// conversion routine per schema and accumulating per-cell errors
// without discarding rows.
package transform

import (
	stderrors "errors"
	"strconv"
	"strings"

	"github.com/stratum-data/stratum/pkg/errors"
	"github.com/stratum-data/stratum/pkg/schema"
	stringpool "github.com/stratum-data/stratum/pkg/strings"
)

// ConvertFunc converts one raw cell value to its typed form. Converters
// must be idempotent: feeding an already-converted value back in
// returns it unchanged.
type ConvertFunc func(v interface{}) (interface{}, error)

// Registry maps converter names to functions. Custom converters are
// registered explicitly and handed to the caster at construction; there
// is no global lookup.
type Registry struct {
	converters map[string]ConvertFunc
}

// NewRegistry creates an empty converter registry.
func NewRegistry() *Registry {
	return &Registry{converters: make(map[string]ConvertFunc)}
}

// Register adds a named converter, replacing any previous registration.
func (r *Registry) Register(name string, fn ConvertFunc) {
	r.converters[name] = fn
}

// Lookup returns the named converter.
func (r *Registry) Lookup(name string) (ConvertFunc, bool) {
	fn, ok := r.converters[name]
	return fn, ok
}

// builtinConverter returns the built-in converter for a logical type.
func builtinConverter(t schema.Type) (ConvertFunc, error) {
	switch t {
	case schema.TypeInteger:
		return castInteger, nil
	case schema.TypeFloat:
		return castFloat, nil
	case schema.TypeString, schema.TypeUnknown:
		return castString, nil
	case schema.TypeDate:
		return castDate, nil
	case schema.TypeTime:
		return castTime, nil
	case schema.TypeDatetime:
		return castDatetime, nil
	default:
		return nil, errors.New(errors.ErrorTypeValidation,
			stringpool.Sprintf("no built-in converter for type %s", t))
	}
}

// castInteger converts to int64. Overflow is fatal rather than
// recoverable: a value that silently wraps would corrupt downstream
// statistics and storage.
func castInteger(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		i := int64(n)
		if float64(i) != n {
			return nil, errors.New(errors.ErrorTypeData,
				stringpool.Sprintf("float %v is not an integer", n))
		}
		return i, nil
	case string:
		s := strings.TrimSpace(n)
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			var numErr *strconv.NumError
			if stderrors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
				return nil, errors.Wrap(err, errors.ErrorTypeOverflow, "integer overflow").
					WithDetail("value", s)
			}
			// Values like "3.0" still cast cleanly through float.
			if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
				return castInteger(f)
			}
			return nil, errors.Wrap(err, errors.ErrorTypeData, "not an integer")
		}
		return i, nil
	default:
		return nil, errors.New(errors.ErrorTypeData,
			stringpool.Sprintf("cannot cast %T to integer", v))
	}
}

// castFloat converts to float64.
func castFloat(v interface{}) (interface{}, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "not a float")
		}
		return f, nil
	default:
		return nil, errors.New(errors.ErrorTypeData,
			stringpool.Sprintf("cannot cast %T to float", v))
	}
}

// castString converts to string.
func castString(v interface{}) (interface{}, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return stringpool.ValueToString(v), nil
}

// castDate converts to schema.Date.
func castDate(v interface{}) (interface{}, error) {
	switch d := v.(type) {
	case schema.Date:
		return d, nil
	case schema.Timestamp:
		return schema.NewDate(d.Year(), d.Month(), d.Day()), nil
	case string:
		parsed, err := schema.ParseDate(strings.TrimSpace(d))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "not a date")
		}
		return parsed, nil
	default:
		return nil, errors.New(errors.ErrorTypeData,
			stringpool.Sprintf("cannot cast %T to date", v))
	}
}

// castTime converts to schema.TimeOfDay.
func castTime(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case schema.TimeOfDay:
		return t, nil
	case schema.Timestamp:
		return schema.NewTimeOfDay(t.Hour(), t.Minute(), t.Second()), nil
	case string:
		parsed, err := schema.ParseTimeOfDay(strings.TrimSpace(t))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "not a time")
		}
		return parsed, nil
	default:
		return nil, errors.New(errors.ErrorTypeData,
			stringpool.Sprintf("cannot cast %T to time", v))
	}
}

// castDatetime converts to schema.Timestamp.
func castDatetime(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case schema.Timestamp:
		return t, nil
	case schema.Date:
		return schema.NewTimestamp(t.Time), nil
	case string:
		parsed, err := schema.ParseTimestamp(strings.TrimSpace(t))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "not a datetime")
		}
		return parsed, nil
	default:
		return nil, errors.New(errors.ErrorTypeData,
			stringpool.Sprintf("cannot cast %T to datetime", v))
	}
}
