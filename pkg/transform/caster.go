package transform

import (
	"context"

	"go.uber.org/zap"

	"github.com/stratum-data/stratum/pkg/errors"
	"github.com/stratum-data/stratum/pkg/logger"
	"github.com/stratum-data/stratum/pkg/rows"
	"github.com/stratum-data/stratum/pkg/schema"
	stringpool "github.com/stratum-data/stratum/pkg/strings"
)

// CastError records one failed cell conversion: the column, the type it
// was being cast to, the offending value, and the underlying error text.
type CastError struct {
	Column string `json:"column"`
	Type   string `json:"type"`
	Value  string `json:"value"`
	Error  string `json:"error"`
}

// RowErrors collects the cast errors of one row.
type RowErrors struct {
	RowIndex int64       `json:"row"`
	Errors   []CastError `json:"errors"`
}

// ErrorHook may rewrite a cast row and its accumulated errors before
// the errors are appended to the running log; returning a non-nil error
// escalates the row's failures to a fatal failure.
type ErrorHook func(row rows.Row, errs []CastError) (rows.Row, []CastError, error)

// colCaster is one compiled per-column conversion: where to read the
// raw value from and how to convert it.
type colCaster struct {
	name     string
	typ      schema.Type
	fn       ConvertFunc
	srcIndex int // -1 when the column is absent from the source
	def      interface{}
}

// Caster converts raw rows to a schema, one compiled routine per
// schema. Rebuilding after a schema change is cheap relative to row
// processing, so schemas may grow incrementally during construction.
type Caster struct {
	schema   *schema.Schema
	registry *Registry
	hook     ErrorHook
	log      *zap.Logger

	compiled []colCaster
	srcNames *rows.Header // nil selects positional mode

	errorLog []RowErrors
	rowIndex int64
}

// NewCaster compiles a conversion routine for the schema. srcHeader
// names the source columns; pass nil for positional sources. registry
// resolves custom converters named by schema columns.
func NewCaster(s *schema.Schema, srcHeader *rows.Header, registry *Registry) (*Caster, error) {
	if registry == nil {
		registry = NewRegistry()
	}
	c := &Caster{
		schema:   s,
		registry: registry,
		srcNames: srcHeader,
		log:      logger.With(zap.String("stage", "caster")),
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetErrorHook installs the per-row error hook.
func (c *Caster) SetErrorHook(hook ErrorHook) {
	c.hook = hook
}

// compile resolves a converter per schema column and binds each to its
// source position.
func (c *Caster) compile() error {
	compiled := make([]colCaster, 0, c.schema.Len())
	for _, col := range c.schema.Columns() {
		var fn ConvertFunc
		if col.Converter != "" {
			custom, ok := c.registry.Lookup(col.Converter)
			if !ok {
				return errors.New(errors.ErrorTypeValidation,
					stringpool.Sprintf("unknown converter %q for column %q", col.Converter, col.Name))
			}
			fn = custom
		} else {
			builtin, err := builtinConverter(col.Type)
			if err != nil {
				return err
			}
			fn = builtin
		}

		srcIndex := col.Position
		if c.srcNames != nil {
			if i, ok := c.srcNames.Index(col.Name); ok {
				srcIndex = i
			} else {
				srcIndex = -1
			}
		}

		compiled = append(compiled, colCaster{
			name:     col.Name,
			typ:      col.Type,
			fn:       fn,
			srcIndex: srcIndex,
			def:      col.Default,
		})
	}
	c.compiled = compiled
	return nil
}

// AddColumn grows the schema by one column and recompiles the routine.
func (c *Caster) AddColumn(col *schema.Column) error {
	if err := c.schema.AddColumn(col); err != nil {
		return err
	}
	return c.compile()
}

// Cast converts one raw row into schema order. Cell failures are
// recorded, not raised; the returned row always has schema cardinality.
// Only integer overflow aborts. Casting an already-cast row is a no-op.
func (c *Caster) Cast(raw rows.Row) (rows.Row, error) {
	out := make(rows.Row, len(c.compiled))
	var rowErrs []CastError

	for i, cc := range c.compiled {
		var v interface{}
		if cc.srcIndex >= 0 && cc.srcIndex < len(raw) {
			v = raw[cc.srcIndex]
		}

		if rows.Nothing(v) {
			if cc.def != nil {
				out[i] = cc.def
			}
			continue
		}

		converted, err := cc.fn(v)
		if err != nil {
			if errors.IsType(err, errors.ErrorTypeOverflow) {
				c.log.Error("integer overflow during cast",
					zap.String("column", cc.name),
					zap.Int64("row", c.rowIndex))
				return nil, errors.Wrap(err, errors.ErrorTypeOverflow, "fatal cast failure").
					WithDetail("column", cc.name).
					WithDetail("row", c.rowIndex)
			}
			rowErrs = append(rowErrs, CastError{
				Column: cc.name,
				Type:   cc.typ.String(),
				Value:  stringpool.ValueToString(v),
				Error:  err.Error(),
			})
			continue
		}
		out[i] = converted
	}

	if c.hook != nil && len(rowErrs) > 0 {
		rewritten, errs, err := c.hook(out, rowErrs)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "error hook escalated row failure").
				WithDetail("row", c.rowIndex)
		}
		out, rowErrs = rewritten, errs
	}

	if len(rowErrs) > 0 {
		c.errorLog = append(c.errorLog, RowErrors{RowIndex: c.rowIndex, Errors: rowErrs})
	}
	c.rowIndex++
	return out, nil
}

// Errors returns the running per-row error log.
func (c *Caster) Errors() []RowErrors {
	return c.errorLog
}

// ErrorCount returns the number of rows that accumulated cast errors.
func (c *Caster) ErrorCount() int {
	return len(c.errorLog)
}

// Schema returns the output schema.
func (c *Caster) Schema() *schema.Schema {
	return c.schema
}

// pipe adapts the caster to the rows.Pipe contract.
type pipe struct {
	caster   *Caster
	upstream rows.Pipe
}

// Pipe returns a stage that casts every row flowing through it.
func (c *Caster) Pipe(upstream rows.Pipe) rows.Pipe {
	return &pipe{caster: c, upstream: upstream}
}

// Next implements rows.Pipe.
func (p *pipe) Next(ctx context.Context) (rows.Row, error) {
	raw, err := p.upstream.Next(ctx)
	if err != nil {
		return nil, err
	}
	return p.caster.Cast(raw)
}
