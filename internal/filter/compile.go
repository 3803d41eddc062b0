package filter

import (
	"fmt"
	"strings"
)

// Compile turns f into a WHERE clause (without the keyword, "1 = 1" when
// empty), its arguments, and an ORDER BY/LIMIT tail.
//
// Values are always bound as parameters, never interpolated. Every tail
// ends with the schema's stable order so results are deterministic.
func Compile(f *Filter) (where string, args []any, tail string, err error) {
	if f == nil {
		return "1 = 1", nil, "", nil
	}

	var parts []string
	for _, c := range f.Conditions {
		sql, cargs, err := compileCondition(c)
		if err != nil {
			return "", nil, "", fmt.Errorf("compile %s: %w", c.Name, err)
		}
		parts = append(parts, sql)
		args = append(args, cargs...)
	}
	where = "1 = 1"
	if len(parts) > 0 {
		where = strings.Join(parts, " AND ")
	}

	var b strings.Builder
	b.WriteString(" ORDER BY ")
	if f.Ordering != "" {
		name, desc := strings.CutPrefix(f.Ordering, "-")
		b.WriteString(f.Schema.Orderable[name])
		if desc {
			b.WriteString(" DESC")
		}
		b.WriteString(", ")
	}
	b.WriteString(f.Schema.Order)
	if f.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", f.Limit)
		if f.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", f.Offset)
		}
	} else if f.Offset > 0 {
		fmt.Fprintf(&b, " LIMIT -1 OFFSET %d", f.Offset)
	}

	return where, args, b.String(), nil
}

func compileCondition(c Condition) (string, []any, error) {
	col := c.Field.Column

	if c.Lookup == IsNull && c.Field.Exists != "" {
		sql := fmt.Sprintf(c.Field.Exists, "1 = 1")
		if c.Value.(bool) {
			sql = "NOT " + sql
		}
		return sql, nil, nil
	}

	var pred string
	var args []any
	switch c.Lookup {
	case Exact:
		pred, args = col+" = ?", []any{c.Value}
	case IExact:
		pred, args = fmt.Sprintf("casefold(%s) = casefold(?)", col), []any{c.Value}
	case Contains:
		pred, args = fmt.Sprintf("instr(%s, ?) > 0", col), []any{c.Value}
	case IContains:
		pred, args = fmt.Sprintf("instr(casefold(%s), casefold(?)) > 0", col), []any{c.Value}
	case StartsWith:
		pred, args = fmt.Sprintf("instr(%s, ?) = 1", col), []any{c.Value}
	case IStarts:
		pred, args = fmt.Sprintf("instr(casefold(%s), casefold(?)) = 1", col), []any{c.Value}
	case Gt:
		pred, args = col+" > ?", []any{c.Value}
	case Gte:
		pred, args = col+" >= ?", []any{c.Value}
	case Lt:
		pred, args = col+" < ?", []any{c.Value}
	case Lte:
		pred, args = col+" <= ?", []any{c.Value}
	case In:
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(c.Values)), ", ")
		pred, args = fmt.Sprintf("%s IN (%s)", col, marks), c.Values
	case Date:
		pred, args = fmt.Sprintf("(%s >= ? AND %s < ?)", col, col), c.Values
	case IsNull:
		pred = col + " IS NOT NULL"
		if c.Value.(bool) {
			pred = col + " IS NULL"
		}
	default:
		return "", nil, fmt.Errorf("unsupported lookup %q", c.Lookup)
	}

	if c.Field.Exists != "" {
		pred = fmt.Sprintf(c.Field.Exists, pred)
	}
	return pred, args, nil
}
