package reminder

import "fmt"

// Category is one of the five fixed reminder domains served by the upstream
// API. The set is closed; DispatchOrder fixes the processing order.
type Category int

const (
	Motor Category = iota
	BTS
	Domain
	PaymentType
	Generic
)

// DispatchOrder is the fixed category order used by every dispatch cycle.
var DispatchOrder = [...]Category{Motor, BTS, Domain, PaymentType, Generic}

// Key returns the top-level JSON key the upstream API uses for the category.
func (c Category) Key() string {
	switch c {
	case Motor:
		return "motor"
	case BTS:
		return "bts"
	case Domain:
		return "domain"
	case PaymentType:
		return "jenispembayaran"
	case Generic:
		return "reminder"
	}
	return ""
}

func (c Category) String() string { return c.Key() }

// ErrUnknownCategory indicates a Category outside the closed set was passed
// to the formatter. This is a programming error, not a runtime condition.
type unknownCategoryError struct{ c Category }

func (e *unknownCategoryError) Error() string {
	return fmt.Sprintf("unknown reminder category %d", int(e.c))
}

// ExpiredStatus values as sent by the upstream API.
const (
	StatusSoon   = "soon"
	StatusToday  = "today"
	StatusPassed = "passed"
)

// Record is a single reminder row. The upstream contract is loosely typed
// and varies per category, so records stay generic maps with accessors.
type Record map[string]any

// Str returns the string at the given (possibly nested) key path, or ""
// when any step is missing or not an object. It never panics.
func (r Record) Str(path ...string) string {
	var cur any = map[string]any(r)
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[p]
		if !ok {
			return ""
		}
	}
	switch v := cur.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ExpiredStatus returns the record's shared expired_status field ("" if absent).
func (r Record) ExpiredStatus() string { return r.Str("expired_status") }

// Phone returns the raw phone value for the record under the given
// category's accessor (each category stores the phone differently).
func (r Record) Phone(c Category) string {
	switch c {
	case Motor:
		return r.Str("karyawan", "no_hp")
	case BTS, Domain:
		return r.Str("telepon")
	case PaymentType, Generic:
		return r.Str("telepon", "nomor_telepon")
	}
	return ""
}

// Batch is one fetch result: every category mapped to its ordered records.
// Categories absent from the response map to empty slices.
type Batch map[Category][]Record

// Records returns the ordered records for a category (nil-safe).
func (b Batch) Records(c Category) []Record {
	if b == nil {
		return nil
	}
	return b[c]
}

// Total counts records across all categories.
func (b Batch) Total() int {
	n := 0
	for _, recs := range b {
		n += len(recs)
	}
	return n
}
