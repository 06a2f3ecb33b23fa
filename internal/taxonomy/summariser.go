package taxonomy

// SummariseOverride supplies an explicit values list (and optional running
// carriers) in place of an attribute's own raw observations. Used by the
// upward driver when folding descendant contributions (spec §4.C step 1:
// "start from the explicit override").
type SummariseOverride struct {
	Values []Value
	Carry  Carry
}

// Summarise is the Attribute Summariser (spec component C). It mutates attr
// in place to hold the canonical summary, and returns the pending traverse
// value (nil if the attribute produced no contribution) plus the updated
// min/max carriers.
func Summarise(attr *AttributeRecord, meta AttributeType, override *SummariseOverride) (Value, Carry, error) {
	values, carry, ok := workingValues(attr, meta, override)
	if !ok {
		return nil, Carry{}, nil
	}

	if len(meta.Summary) == 0 {
		return nil, Carry{}, nil
	}

	var traverseValue Value

	for i, summary := range meta.Summary {
		value, updated, err := Evaluate(summary, values, carry)
		if err != nil {
			if err == ErrEmptySummaryInput { //nolint:errorlint // sentinel compared directly by design
				return nil, Carry{}, nil
			}

			return nil, Carry{}, err
		}

		carry = updated

		switch {
		case i == 0:
			attr.CanonicalValue = value
			attr.Count = len(values)
			attr.AggregationMethod = NormaliseMethod(summary)
			attr.AggregationSource = SourceDirect
			traverseValue = value
		case meta.HasTraverse() && summary == meta.Traverse:
			traverseValue = value
		}

		if summary == SummaryList {
			if lv, ok := traverseValue.(ListValue); ok {
				traverseValue = lv.Dedup()
			}
		}
	}

	attr.Min = carry.Min
	attr.Max = carry.Max

	return traverseValue, carry, nil
}

// workingValues builds the flattened value list a summary chain runs over,
// per spec §4.C step 1: explicit override first, else the attribute's own
// raw "values", else "no summary".
func workingValues(attr *AttributeRecord, meta AttributeType, override *SummariseOverride) ([]Value, Carry, bool) {
	if override != nil {
		if len(override.Values) == 0 {
			return nil, Carry{}, false
		}

		return override.Values, override.Carry, true
	}

	if len(attr.Values) == 0 {
		return nil, Carry{}, false
	}

	values := make([]Value, 0, len(attr.Values))

	for _, obs := range attr.Values {
		values = append(values, obs.Value)
	}

	_ = meta // meta.ValueType drives wire serialisation at the boundary, not this extraction

	return values, Carry{}, true
}
