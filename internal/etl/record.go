package etl

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"csvhouse/internal/domain"
)

// ── Record schema ─────────────────────────────────────────
// Every source emits domain.Record. The schema below is the one shape
// the pipeline knows; sources map their raw fields onto it by name.

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // "int32" | "string" | "float32"
}

// Schema describes the shape of records coming from a source.
type Schema struct {
	Fields []Field `json:"fields"`
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// RecordSchema is the schema of domain.Record in canonical column order.
var RecordSchema = &Schema{Fields: []Field{
	{Name: "id", Type: "int32"},
	{Name: "name", Type: "string"},
	{Name: "surname", Type: "string"},
	{Name: "age", Type: "int32"},
	{Name: "salary", Type: "float32"},
}}

// HeaderIndex maps each Record column to its position in headers.
// Matching is case-insensitive and ignores surrounding spaces; extra
// headers are ignored. A missing column is an error.
func HeaderIndex(headers []string) (map[string]int, error) {
	pos := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}
	idx := make(map[string]int, len(domain.Columns))
	var missing []string
	for _, col := range domain.Columns {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		idx[col] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("header is missing column(s): %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// ParseRecord builds a Record from raw text values located through idx.
func ParseRecord(row []string, idx map[string]int) (domain.Record, error) {
	var r domain.Record
	var err error
	if r.ID, err = ParseInt32(row[idx["id"]]); err != nil {
		return r, fmt.Errorf("id: %w", err)
	}
	r.Name = strings.TrimSpace(row[idx["name"]])
	r.Surname = strings.TrimSpace(row[idx["surname"]])
	if r.Age, err = ParseInt32(row[idx["age"]]); err != nil {
		return r, fmt.Errorf("age: %w", err)
	}
	if r.Salary, err = ParseFloat32(row[idx["salary"]]); err != nil {
		return r, fmt.Errorf("salary: %w", err)
	}
	return r, nil
}

// ParseInt32 parses an integer. Integral float text such as "30.0" is
// accepted since spreadsheet exports often write integers that way.
func ParseInt32(s string) (int32, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 32); err == nil {
		return int32(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%q is not a 32-bit integer", s)
	}
	return int32(f), nil
}

// ParseFloat32 parses a finite decimal number. NaN and Inf are rejected.
func ParseFloat32(s string) (float32, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return float32(f), nil
}
