package domain

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ValueKind tags the closed set of types a profile field or criterion
// comparison value may carry. Comparisons dispatch on the tag; a kind mismatch
// is a validation error, never a silent coercion.
type ValueKind string

const (
	KindNumber    ValueKind = "number"
	KindString    ValueKind = "string"
	KindDate      ValueKind = "date"
	KindStringSet ValueKind = "string_set"
)

// FieldValue is a tagged union over {number, string, date, set-of-string}.
// The zero value has no kind and matches nothing; construct through the
// Number/String/Date/StringSet helpers.
type FieldValue struct {
	kind ValueKind
	num  float64
	str  string
	date time.Time
	set  []string
}

func Number(v float64) FieldValue { return FieldValue{kind: KindNumber, num: v} }

func String(v string) FieldValue { return FieldValue{kind: KindString, str: v} }

func Date(v time.Time) FieldValue { return FieldValue{kind: KindDate, date: v.UTC()} }

// StringSet builds a set value. Members are deduplicated and stored sorted so
// equal sets have equal representations.
func StringSet(members ...string) FieldValue {
	dedup := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		dedup = append(dedup, m)
	}
	sort.Strings(dedup)
	return FieldValue{kind: KindStringSet, set: dedup}
}

// Kind returns the tag of the value. The zero FieldValue returns "".
func (v FieldValue) Kind() ValueKind { return v.kind }

// IsZero reports whether the value was never constructed.
func (v FieldValue) IsZero() bool { return v.kind == "" }

// Accessors return the typed value and whether the tag matched.

func (v FieldValue) Number() (float64, bool) { return v.num, v.kind == KindNumber }

func (v FieldValue) Str() (string, bool) { return v.str, v.kind == KindString }

func (v FieldValue) Date() (time.Time, bool) { return v.date, v.kind == KindDate }

func (v FieldValue) StringSet() ([]string, bool) {
	if v.kind != KindStringSet {
		return nil, false
	}
	return slices.Clone(v.set), true
}

// Contains reports set membership. False for non-set values.
func (v FieldValue) Contains(member string) bool {
	if v.kind != KindStringSet {
		return false
	}
	_, found := slices.BinarySearch(v.set, member)
	return found
}

// Equal compares two values of the same kind. Values of different kinds are
// never equal.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == other.num
	case KindString:
		return v.str == other.str
	case KindDate:
		return v.date.Equal(other.date)
	case KindStringSet:
		return slices.Equal(v.set, other.set)
	}
	return false
}

// CanonicalString returns a stable textual encoding used for content-addressed
// cache keys. Equal values always produce identical encodings.
func (v FieldValue) CanonicalString() string {
	switch v.kind {
	case KindNumber:
		return "n:" + strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return "s:" + v.str
	case KindDate:
		return "d:" + v.date.UTC().Format(time.RFC3339Nano)
	case KindStringSet:
		return "ss:" + strings.Join(v.set, "\x1f")
	}
	return ""
}

// String implements fmt.Stringer for logs and failure reasons.
func (v FieldValue) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return v.str
	case KindDate:
		return v.date.Format("2006-01-02")
	case KindStringSet:
		return fmt.Sprintf("{%s}", strings.Join(v.set, ", "))
	}
	return "<unset>"
}
