package domain

// Columns is the canonical column order of a Record, shared by every
// store dialect, the CSV header check and Record.Values.
var Columns = []string{"id", "name", "surname", "age", "salary"}

// Record is one row of the data table.
type Record struct {
	ID      int32   `json:"id" yaml:"id" bson:"id"`
	Name    string  `json:"name" yaml:"name" bson:"name"`
	Surname string  `json:"surname" yaml:"surname" bson:"surname"`
	Age     int32   `json:"age" yaml:"age" bson:"age"`
	Salary  float32 `json:"salary" yaml:"salary" bson:"salary"`
}

// Values returns the row tuple in Columns order.
func (r Record) Values() []any {
	return []any{r.ID, r.Name, r.Surname, r.Age, r.Salary}
}

// Table is an ordered in-memory set of records (file or generation order).
type Table []Record

// Head returns at most n leading records.
func (t Table) Head(n int) Table {
	if n > len(t) {
		n = len(t)
	}
	if n < 0 {
		n = 0
	}
	return t[:n]
}
