// Package filter parses field__lookup query parameters into filters and
// compiles them to parameterized SQL.
//
// Every entity declares the fields and lookups it accepts. Parsing is
// strict: a parameter that is neither a declared field__lookup nor one of
// the global parameters (fields, format, limit, offset, ordering) fails the
// whole request with a *ParamError listing what is available.
package filter

import (
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Lookup is the comparison applied to a field.
type Lookup string

const (
	Exact      Lookup = "exact"
	IExact     Lookup = "iexact"
	Contains   Lookup = "contains"
	IContains  Lookup = "icontains"
	In         Lookup = "in"
	StartsWith Lookup = "startswith"
	IStarts    Lookup = "istartswith"
	IsNull     Lookup = "isnull"
	Gt         Lookup = "gt"
	Gte        Lookup = "gte"
	Lt         Lookup = "lt"
	Lte        Lookup = "lte"
	Date       Lookup = "date"
)

// Lookup groups shared by field declarations.
var (
	NumberLookups   = []Lookup{Exact, In, Gt, Gte, Lt, Lte, IsNull}
	TextLookups     = []Lookup{Exact, IExact, Contains, IContains, In, StartsWith, IStarts, IsNull}
	SlugLookups     = []Lookup{Exact, In}
	DateTimeLookups = []Lookup{Exact, Gt, Gte, Lt, Lte, IsNull, Date}
)

// GlobalParams are accepted by every schema.
var GlobalParams = []string{"fields", "format", "limit", "offset", "ordering"}

const separator = "__"

// Kind is the type of a field's values.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindTime
)

// Field declares a filterable field.
type Field struct {
	// Column is the SQL expression compared against.
	Column string

	// Exists, when set, is a correlated subquery with one %s where the
	// predicate on Column goes, e.g. "EXISTS (SELECT 1 FROM t WHERE t.id = r.id AND %s)".
	Exists string

	Kind    Kind
	Lookups []Lookup
}

// Schema declares the filterable fields of one entity.
type Schema struct {
	Name   string
	Fields map[string]Field

	// Order is the deterministic ORDER BY tail applied to every query.
	Order string

	// Orderable maps ordering names to columns.
	Orderable map[string]string
}

// Available lists every accepted parameter, sorted.
func (s Schema) Available() []string {
	var out []string
	for name, f := range s.Fields {
		out = append(out, name)
		for _, l := range f.Lookups {
			out = append(out, name+separator+string(l))
		}
	}
	out = append(out, GlobalParams...)
	sort.Strings(out)
	return slices.Compact(out)
}

// Condition is one parsed field__lookup=value parameter.
type Condition struct {
	Name   string
	Field  Field
	Lookup Lookup
	Value  any
	Values []any
}

// Filter is a parsed set of conditions with paging and ordering.
type Filter struct {
	Schema     Schema
	Conditions []Condition
	Limit      int
	Offset     int
	Ordering   string
}

// ParamError lists parameters the schema does not accept.
type ParamError struct {
	Wrong     []string
	Available []string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("wrong parameter(s): %s. Available: %s",
		strings.Join(e.Wrong, ", "), strings.Join(e.Available, ", "))
}

// ValueError reports a parameter whose value cannot be used.
type ValueError struct {
	Param string
	Value string
	Err   error
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid value %q for %s: %v", e.Value, e.Param, e.Err)
}

func (e *ValueError) Unwrap() error { return e.Err }

// Parse validates params against schema and builds a Filter.
func Parse(schema Schema, params url.Values) (*Filter, error) {
	var wrong []string
	f := &Filter{Schema: schema}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := params[key]
		if slices.Contains(GlobalParams, key) {
			if err := f.applyGlobal(key, values); err != nil {
				return nil, err
			}
			continue
		}

		name, lookup := splitParam(key)
		field, ok := schema.Fields[name]
		if !ok || !slices.Contains(field.Lookups, lookup) {
			wrong = append(wrong, key)
			continue
		}
		for _, raw := range values {
			cond, err := parseCondition(key, name, field, lookup, raw)
			if err != nil {
				return nil, err
			}
			f.Conditions = append(f.Conditions, cond)
		}
	}

	if len(wrong) > 0 {
		return nil, &ParamError{Wrong: wrong, Available: schema.Available()}
	}
	return f, nil
}

// ParsePairs parses "key=value" strings as given on a command line.
func ParsePairs(schema Schema, pairs []string) (*Filter, error) {
	params := url.Values{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, &ValueError{Param: p, Value: "", Err: fmt.Errorf("expected key=value")}
		}
		params.Add(k, v)
	}
	return Parse(schema, params)
}

func splitParam(key string) (string, Lookup) {
	if i := strings.LastIndex(key, separator); i >= 0 {
		lookup := Lookup(key[i+len(separator):])
		if isLookup(lookup) {
			return key[:i], lookup
		}
	}
	return key, Exact
}

func isLookup(l Lookup) bool {
	switch l {
	case Exact, IExact, Contains, IContains, In, StartsWith, IStarts, IsNull, Gt, Gte, Lt, Lte, Date:
		return true
	}
	return false
}

func (f *Filter) applyGlobal(key string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	switch key {
	case "limit", "offset":
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return &ValueError{Param: key, Value: v, Err: fmt.Errorf("must be a non-negative integer")}
		}
		if key == "limit" {
			f.Limit = n
		} else {
			f.Offset = n
		}
	case "ordering":
		name := strings.TrimPrefix(v, "-")
		if _, ok := f.Schema.Orderable[name]; !ok {
			return &ValueError{Param: key, Value: v, Err: fmt.Errorf("cannot order by %q", name)}
		}
		f.Ordering = v
	}
	return nil
}

func parseCondition(param, name string, field Field, lookup Lookup, raw string) (Condition, error) {
	cond := Condition{Name: name, Field: field, Lookup: lookup}

	switch lookup {
	case IsNull:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return cond, &ValueError{Param: param, Value: raw, Err: err}
		}
		cond.Value = b
		return cond, nil
	case In:
		for _, part := range strings.Split(raw, ",") {
			v, err := convert(field.Kind, strings.TrimSpace(part))
			if err != nil {
				return cond, &ValueError{Param: param, Value: raw, Err: err}
			}
			cond.Values = append(cond.Values, v)
		}
		return cond, nil
	case Date:
		d, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
		if err != nil {
			return cond, &ValueError{Param: param, Value: raw, Err: err}
		}
		cond.Values = []any{d.UnixMilli(), d.AddDate(0, 0, 1).UnixMilli()}
		return cond, nil
	}

	v, err := convert(field.Kind, raw)
	if err != nil {
		return cond, &ValueError{Param: param, Value: raw, Err: err}
	}
	cond.Value = v
	return cond, nil
}

// TimeLayouts are the accepted formats for time values, tried in order.
var TimeLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02 15:04", time.DateOnly}

// ParseTime parses s with the first matching layout in TimeLayouts.
// Values without a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range TimeLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func convert(kind Kind, raw string) (any, error) {
	switch kind {
	case KindNumber:
		return strconv.ParseInt(raw, 10, 64)
	case KindTime:
		t, err := ParseTime(raw)
		if err != nil {
			return nil, err
		}
		return t.UnixMilli(), nil
	default:
		return raw, nil
	}
}
