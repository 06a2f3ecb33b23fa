package backend

import (
	"encoding/json"
	"fmt"

	"github.com/genomehubs/fillcore/internal/taxonomy"
)

// wireNode is the JSON shape of a node document (spec §6's node document
// schema). Attributes are kept as a raw JSON array so each entry's
// dynamically-named "<vtype>_value" field can be decoded against the
// attribute type table rather than a fixed struct shape.
type wireNode struct {
	TaxonID    string          `json:"taxon_id"`
	Parent     *string         `json:"parent"`
	NodeDepth  int             `json:"node_depth"` //nolint:tagliatelle // matches spec wire shape
	Lineage    []wireLineage   `json:"lineage"`
	Attributes json.RawMessage `json:"attributes"`
}

type wireLineage struct {
	TaxonID   string `json:"taxon_id"`
	NodeDepth int    `json:"node_depth"` //nolint:tagliatelle // matches spec wire shape
}

// encodeAttributes serialises a node's attribute records to the JSONB
// payload stored in node_attributes. The canonical value's wire field name
// is chosen from each attribute's declared ValueType in table, not from the
// value's own FieldName(): a median over "long"-typed observations can
// legitimately carry a DoubleValue at runtime (an averaged median), but it
// still belongs under "long_value" on the wire, matching the source's
// dynamic attribute[value_type] = value assignment.
func encodeAttributes(attrs []*taxonomy.AttributeRecord, table *taxonomy.TypeTable) ([]byte, error) {
	out := make([]map[string]interface{}, 0, len(attrs))

	for _, a := range attrs {
		meta, ok := table.Lookup(a.Key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", taxonomy.ErrUnknownAttributeKey, a.Key)
		}

		out = append(out, encodeAttribute(a, meta))
	}

	return json.Marshal(out)
}

func encodeAttribute(a *taxonomy.AttributeRecord, meta taxonomy.AttributeType) map[string]interface{} {
	m := map[string]interface{}{
		"key":                a.Key,
		"count":              a.Count,
		"aggregation_method": string(a.AggregationMethod),
		"aggregation_source": string(a.AggregationSource),
	}

	fieldName := taxonomy.FieldNameFor(meta.ValueType)

	if a.CanonicalValue != nil {
		m[fieldName] = a.CanonicalValue.Raw()
	}

	if a.Min != nil {
		m["min"] = a.Min.Raw()
	}

	if a.Max != nil {
		m["max"] = a.Max.Raw()
	}

	if len(a.Values) > 0 {
		values := make([]map[string]interface{}, 0, len(a.Values))
		for _, obs := range a.Values {
			values = append(values, map[string]interface{}{fieldName: obs.Value.Raw()})
		}

		m["values"] = values
	}

	return m
}

// decodeAttributes parses a node_attributes JSONB payload back into
// AttributeRecords, resolving each key's declared ValueType via table (with
// alias resolution, per internal/taxonomy.TypeTable.Lookup).
func decodeAttributes(raw json.RawMessage, table *taxonomy.TypeTable) ([]*taxonomy.AttributeRecord, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var entries []map[string]interface{}

	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decoding attributes: %w", err)
	}

	records := make([]*taxonomy.AttributeRecord, 0, len(entries))

	for _, m := range entries {
		key, _ := m["key"].(string)

		meta, ok := table.Lookup(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", taxonomy.ErrUnknownAttributeKey, key)
		}

		rec, err := decodeAttribute(m, meta)
		if err != nil {
			return nil, fmt.Errorf("decoding attribute %q: %w", key, err)
		}

		records = append(records, rec)
	}

	return records, nil
}

func decodeAttribute(m map[string]interface{}, meta taxonomy.AttributeType) (*taxonomy.AttributeRecord, error) {
	rec := &taxonomy.AttributeRecord{
		Key:               meta.Key,
		AggregationMethod: taxonomy.SummaryName(stringField(m, "aggregation_method")),
		AggregationSource: taxonomy.AggregationSource(stringField(m, "aggregation_source")),
	}

	if count, ok := m["count"].(float64); ok {
		rec.Count = int(count)
	}

	fieldName := taxonomy.FieldNameFor(meta.ValueType)

	if raw, ok := m[fieldName]; ok {
		v, err := valueFromRaw(meta.ValueType, raw)
		if err != nil {
			return nil, err
		}

		rec.CanonicalValue = v
	}

	if raw, ok := m["min"]; ok {
		v, err := valueFromRaw(meta.ValueType, raw)
		if err != nil {
			return nil, err
		}

		rec.Min = v
	}

	if raw, ok := m["max"]; ok {
		v, err := valueFromRaw(meta.ValueType, raw)
		if err != nil {
			return nil, err
		}

		rec.Max = v
	}

	if rawValues, ok := m["values"].([]interface{}); ok {
		for _, rv := range rawValues {
			entry, ok := rv.(map[string]interface{})
			if !ok {
				continue
			}

			raw, ok := entry[fieldName]
			if !ok {
				continue
			}

			v, err := valueFromRaw(meta.ValueType, raw)
			if err != nil {
				return nil, err
			}

			rec.Values = append(rec.Values, taxonomy.Observation{Value: v})
		}
	}

	return rec, nil
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)

	return s
}

// valueFromRaw constructs a typed Value from a JSON-decoded interface{}
// (numbers always arrive as float64), using vtype to pick the concrete type
// rather than the Go runtime type of raw.
func valueFromRaw(vtype taxonomy.ValueType, raw interface{}) (taxonomy.Value, error) {
	switch vtype {
	case taxonomy.ValueLong:
		n, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: expected numeric long_value, got %T", taxonomy.ErrMixedValueTypes, raw)
		}

		// A "long"-declared attribute can still carry a fractional canonical
		// value on the wire (an even-count median averages two longs into a
		// float, same as encodeAttribute writes it under long_value). Only
		// collapse to LongValue when the stored number is actually integral,
		// so a round-trip through the store doesn't truncate precision.
		if n != float64(int64(n)) {
			return taxonomy.DoubleValue(n), nil
		}

		return taxonomy.LongValue(int64(n)), nil
	case taxonomy.ValueDouble:
		n, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: expected numeric double_value, got %T", taxonomy.ErrMixedValueTypes, raw)
		}

		return taxonomy.DoubleValue(n), nil
	case taxonomy.ValueKeyword, taxonomy.ValueDate:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected string keyword_value, got %T", taxonomy.ErrMixedValueTypes, raw)
		}

		return taxonomy.KeywordValue(s), nil
	default:
		return nil, fmt.Errorf("%w: %s", taxonomy.ErrUnknownAttributeKey, vtype)
	}
}

// nodeFromWire assembles a taxonomy.Node from its wire row plus pre-decoded attributes.
func nodeFromWire(w wireNode, table *taxonomy.TypeTable) (*taxonomy.Node, error) {
	attrs, err := decodeAttributes(w.Attributes, table)
	if err != nil {
		return nil, err
	}

	lineage := make([]taxonomy.LineageEntry, 0, len(w.Lineage))
	for _, l := range w.Lineage {
		lineage = append(lineage, taxonomy.LineageEntry{TaxonID: l.TaxonID, Depth: l.NodeDepth})
	}

	return &taxonomy.Node{
		TaxonID:    w.TaxonID,
		Parent:     w.Parent,
		Depth:      w.NodeDepth,
		Lineage:    lineage,
		Attributes: attrs,
	}, nil
}
