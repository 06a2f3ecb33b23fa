package taxonomy

import (
	"fmt"
	"sort"
)

// Carry holds the running min/max carried across a chain of summary
// evaluations for a single attribute (spec §4.B).
type Carry struct {
	Max Value
	Min Value
}

// Evaluate is the pure Summary Evaluator (spec component B). It flattens any
// list-valued elements, applies the named summary, and folds the result into
// the running max/min carriers when the summary is "max" or "min".
//
// Evaluate never mutates its inputs; it returns the updated carriers.
func Evaluate(name SummaryName, values []Value, carry Carry) (Value, Carry, error) {
	flat, err := flatten(values)
	if err != nil {
		return nil, carry, err
	}

	if len(flat) == 0 {
		return nil, carry, ErrEmptySummaryInput
	}

	switch name {
	case SummaryCount:
		return LongValue(len(flat)), carry, nil
	case SummaryMax:
		v, err := extremum(flat, true)
		if err != nil {
			return nil, carry, err
		}

		if carry.Max != nil {
			v = greaterValue(v, carry.Max)
		}

		carry.Max = v

		return v, carry, nil
	case SummaryMin:
		v, err := extremum(flat, false)
		if err != nil {
			return nil, carry, err
		}

		if carry.Min != nil {
			v = lesserValue(v, carry.Min)
		}

		carry.Min = v

		return v, carry, nil
	case SummaryMean:
		v, err := mean(flat)

		return v, carry, err
	case SummaryMedian:
		v, err := median(flat, medianAverage)

		return v, carry, err
	case SummaryMedianHigh:
		v, err := median(flat, medianHigh)

		return v, carry, err
	case SummaryMedianLow:
		v, err := median(flat, medianLow)

		return v, carry, err
	case SummaryMode, SummaryMostCommon:
		v, err := mode(flat)

		return v, carry, err
	case SummaryList:
		return ListValue(flat), carry, nil
	default:
		return nil, carry, fmt.Errorf("%w: %s", ErrUnknownSummary, name)
	}
}

// ListValue is a pseudo-Value wrapping the "list" summary's unreduced slice.
// It does not implement a single scalar Raw() the way the others do; callers
// that need the underlying slice type-assert to ListValue directly.
type ListValue []Value

// Type implements Value; list-valued attributes still declare a concrete
// element ValueType via the attribute's metadata, not via this wrapper.
func (ListValue) Type() ValueType { return "" }

// FieldName implements Value.
func (ListValue) FieldName() string { return "" }

// Raw implements Value.
func (l ListValue) Raw() interface{} { return []Value(l) }

// Dedup returns a copy of l with set-equality duplicates removed, preserving
// first-seen order (spec §4.B: "a later consumer must deduplicate ... before
// propagation").
func (l ListValue) Dedup() ListValue {
	seen := make(map[interface{}]struct{}, len(l))
	out := make(ListValue, 0, len(l))

	for _, v := range l {
		key := v.Raw()
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, v)
	}

	return out
}

// valueClass groups value types that freely interoperate in numeric
// comparisons/averaging (long and double), matching Python's own int/float
// interop in statistics.median, max(), min(): a median over an even-length
// long sample promotes to a float average, and that float must still combine
// with a sibling's untouched long median one level up.
func valueClass(t ValueType) ValueType {
	if t == ValueLong || t == ValueDouble {
		return ValueDouble
	}

	return t
}

// flatten splices any ListValue elements into the result, per spec §4.B
// ("pre-flattened: any list-valued element is spliced in").
func flatten(values []Value) ([]Value, error) {
	out := make([]Value, 0, len(values))

	var class ValueType

	for _, v := range values {
		if lv, ok := v.(ListValue); ok {
			sub, err := flatten([]Value(lv))
			if err != nil {
				return nil, err
			}

			out = append(out, sub...)

			continue
		}

		vclass := valueClass(v.Type())

		if class == "" {
			class = vclass
		} else if vclass != class {
			return nil, fmt.Errorf("%w: %s vs %s", ErrMixedValueTypes, class, vclass)
		}

		out = append(out, v)
	}

	return out, nil
}

func extremum(values []Value, max bool) (Value, error) {
	best := values[0]

	for _, v := range values[1:] {
		if max {
			best = greaterValue(v, best)
		} else {
			best = lesserValue(v, best)
		}
	}

	return best, nil
}

func greaterValue(a, b Value) Value {
	if numeric(a) > numeric(b) {
		return a
	}

	return b
}

func lesserValue(a, b Value) Value {
	if numeric(a) < numeric(b) {
		return a
	}

	return b
}

// numeric extracts a comparable float64 for ordering numeric values; keyword
// values compare lexicographically via their ordinal byte sum, matching the
// source's reliance on Python's generic comparison for max()/min() over any
// orderable type.
func numeric(v Value) float64 {
	switch t := v.(type) {
	case LongValue:
		return float64(t)
	case DoubleValue:
		return float64(t)
	case KeywordValue:
		var sum float64
		for _, r := range string(t) {
			sum = sum*256 + float64(r)
		}

		return sum
	default:
		return 0
	}
}

func mean(values []Value) (Value, error) {
	var sum float64

	for _, v := range values {
		sum += numeric(v)
	}

	return DoubleValue(sum / float64(len(values))), nil
}

// medianMode selects which of Python's three median variants to compute.
type medianMode int

const (
	medianAverage medianMode = iota // statistics.median: averages the two middle values
	medianLow                       // statistics.median_low: lower of the two middle values
	medianHigh                      // statistics.median_high: higher of the two middle values
)

func median(values []Value, mode medianMode) (Value, error) {
	sorted := make([]Value, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return numeric(sorted[i]) < numeric(sorted[j]) })

	n := len(sorted)
	mid := n / 2

	if n%2 == 1 {
		return sorted[mid], nil
	}

	switch mode {
	case medianLow:
		return sorted[mid-1], nil
	case medianHigh:
		return sorted[mid], nil
	default:
		lo, hi := numeric(sorted[mid-1]), numeric(sorted[mid])

		return DoubleValue((lo + hi) / 2), nil
	}
}

func mode(values []Value) (Value, error) {
	counts := make(map[interface{}]int, len(values))
	order := make([]interface{}, 0, len(values))
	byKey := make(map[interface{}]Value, len(values))

	for _, v := range values {
		key := v.Raw()
		if _, ok := counts[key]; !ok {
			order = append(order, key)
			byKey[key] = v
		}

		counts[key]++
	}

	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}

	return byKey[best], nil
}
