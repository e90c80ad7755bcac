package crawler

import (
	"errors"
	"fmt"
)

// OrderDirection is the order a query returns records in, by the plan's
// update timestamp field
type OrderDirection string

const (
	Ascending  OrderDirection = "ASC"
	Descending OrderDirection = "DESC"
)

func (d OrderDirection) Valid() bool {
	return d == Ascending || d == Descending
}

// Query is an opaque, executor-specific query descriptor. The engine only
// asks it which order it really requests so a Plan can be checked against
// its declaration.
type Query interface {
	Direction() (OrderDirection, error)
}

// Plan declares how one resource kind is fetched, ordered and named.
//
// The stop condition assumes that pages arrive newest history first and
// that records are monotonic in TimestampField. Order must therefore
// match what Query actually requests; Validate enforces it.
type Plan struct {
	Resource       string
	Query          Query
	Order          OrderDirection
	TimestampField string
	FilenameOf     func(Record) (string, error)
}

// Validate reports every problem with the plan at once
func (p Plan) Validate() error {
	var errs []error

	if p.Resource == "" {
		errs = append(errs, errors.New("resource name is empty"))
	}
	if p.TimestampField == "" {
		errs = append(errs, errors.New("timestamp field is empty"))
	}
	if p.FilenameOf == nil {
		errs = append(errs, errors.New("filename derivation is missing"))
	}
	if !p.Order.Valid() {
		errs = append(errs, fmt.Errorf("unknown order direction %q", p.Order))
	}

	if p.Query == nil {
		errs = append(errs, errors.New("query is missing"))
	} else if dir, err := p.Query.Direction(); err != nil {
		errs = append(errs, err)
	} else if p.Order.Valid() && dir != p.Order {
		errs = append(errs, fmt.Errorf("%w: declared %s, query requests %s", ErrOrderMismatch, p.Order, dir))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidPlan, p.Resource, errors.Join(errs...))
	}
	return nil
}

// FieldFilename derives "<value of field>.json". Numbers are rendered
// without a fractional part.
func FieldFilename(field string) func(Record) (string, error) {
	return func(r Record) (string, error) {
		switch v := r[field].(type) {
		case string:
			if v == "" {
				return "", fmt.Errorf("record field %q is empty", field)
			}
			return v + ".json", nil
		case float64:
			return fmt.Sprintf("%.0f.json", v), nil
		case int:
			return fmt.Sprintf("%d.json", v), nil
		case int64:
			return fmt.Sprintf("%d.json", v), nil
		case nil:
			return "", fmt.Errorf("record has no %q field", field)
		default:
			return fmt.Sprintf("%v.json", v), nil
		}
	}
}
