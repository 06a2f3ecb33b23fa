// Package taxonomy provides the data model and pure aggregation logic for the
// attribute-fill engine: the attribute type table, the summary evaluator, the
// per-attribute summariser, and the descendant accumulator.
package taxonomy

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy domain.
var (
	// ErrEmptySummaryInput is returned when a summary is evaluated over zero values.
	ErrEmptySummaryInput = errors.New("empty summary input")
	// ErrUnknownSummary is returned for a summary name not in the known set.
	ErrUnknownSummary = errors.New("unknown summary name")
	// ErrMixedValueTypes is returned when a value list contains more than one value type.
	ErrMixedValueTypes = errors.New("mixed value types in summary input")
	// ErrUnknownAttributeKey is returned when a traverse request names a key absent from the type table.
	ErrUnknownAttributeKey = errors.New("unknown attribute key")
)

type (
	// AggregationSource names which part of the tree contributed a summary.
	AggregationSource string

	// SummaryName names one of the known summary statistics.
	SummaryName string

	// Direction restricts propagation of a traverse value across levels.
	Direction string

	// ValueType names the declared type of an attribute's canonical value.
	ValueType string
)

// AggregationSource values, per spec §3.
const (
	SourceDirect     AggregationSource = "direct"
	SourceDescendant AggregationSource = "descendant"
	SourceAncestor   AggregationSource = "ancestor"
)

// SummaryName values, per spec §4.B.
const (
	SummaryCount       SummaryName = "count"
	SummaryMax         SummaryName = "max"
	SummaryMin         SummaryName = "min"
	SummaryMean        SummaryName = "mean"
	SummaryMedian      SummaryName = "median"
	SummaryMedianHigh  SummaryName = "median_high"
	SummaryMedianLow   SummaryName = "median_low"
	SummaryMode        SummaryName = "mode"
	SummaryMostCommon  SummaryName = "most_common"
	SummaryList        SummaryName = "list"
)

// Direction values, per spec §3.
const (
	DirectionBoth       Direction = ""
	DirectionAncestor   Direction = "ancestor"
	DirectionDescendant Direction = "descendant"
)

// ValueType values; the set is open, these are the ones the core ships fixtures for.
const (
	ValueLong    ValueType = "long"
	ValueDouble  ValueType = "double"
	ValueKeyword ValueType = "keyword"
	ValueDate    ValueType = "date"
)

// NormaliseMethod collapses median_high/median_low to median for aggregation_method
// recording, per the Open Question in spec §9 resolved unconditionally (not just on
// non-first summaries).
func NormaliseMethod(name SummaryName) SummaryName {
	if name == SummaryMedianHigh || name == SummaryMedianLow {
		return SummaryMedian
	}

	return name
}

// Value is the tagged union described in spec §9's Design Notes: an attribute's
// canonical value, carrying enough information to know its own "<vtype>_value"
// wire field name and to compare/flatten with other values of the same type.
type Value interface {
	// Type returns the declared value type this value belongs to.
	Type() ValueType
	// FieldName returns the wire field name, e.g. "long_value".
	FieldName() string
	// Raw returns the underlying Go value (int64, float64, string, ...).
	Raw() interface{}
}

type (
	// LongValue is an integer-valued attribute value.
	LongValue int64
	// DoubleValue is a floating point attribute value.
	DoubleValue float64
	// KeywordValue is a string-valued attribute value.
	KeywordValue string
)

// Type implements Value.
func (LongValue) Type() ValueType { return ValueLong }

// FieldName implements Value.
func (LongValue) FieldName() string { return "long_value" }

// Raw implements Value.
func (v LongValue) Raw() interface{} { return int64(v) }

// Type implements Value.
func (DoubleValue) Type() ValueType { return ValueDouble }

// FieldName implements Value.
func (DoubleValue) FieldName() string { return "double_value" }

// Raw implements Value.
func (v DoubleValue) Raw() interface{} { return float64(v) }

// Type implements Value.
func (KeywordValue) Type() ValueType { return ValueKeyword }

// FieldName implements Value.
func (KeywordValue) FieldName() string { return "keyword_value" }

// Raw implements Value.
func (v KeywordValue) Raw() interface{} { return string(v) }

// FieldNameFor returns the "<vtype>_value" field name for a value type.
func FieldNameFor(vtype ValueType) string {
	return fmt.Sprintf("%s_value", vtype)
}

type (
	// Observation is a single raw per-observation record carried in an attribute's
	// "values" list before summarisation (spec §3).
	Observation struct {
		Value Value
	}

	// AttributeRecord is the tagged entry a node carries for one attribute key
	// (spec §3). Values holds the node's own raw observations and persists
	// across runs alongside the derived CanonicalValue/Min/Max/Count fields,
	// so a later run can always re-derive the same summary from the same
	// inputs without needing to re-fetch anything. A record with no Values of
	// its own (e.g. one stamped by the downward pass, or one folded purely
	// from descendant contributions) simply carries the derived fields.
	AttributeRecord struct {
		Key                string
		CanonicalValue     Value
		Count              int
		AggregationMethod  SummaryName
		AggregationSource  AggregationSource
		Min                Value
		Max                Value
		Values             []Observation
	}

	// AttributeType is the per-key metadata from the attribute type table (spec §3, §4.A).
	AttributeType struct {
		Key               string
		ValueType         ValueType
		Summary           []SummaryName // ordered; empty when the key takes no part upward
		Traverse          SummaryName   // zero value means "unset"
		TraverseDirection Direction
	}

	// LineageEntry is one ancestor entry in a node's lineage sequence (spec §3).
	LineageEntry struct {
		TaxonID string
		Depth   int
	}

	// Node is a taxonomic record (spec §3).
	Node struct {
		TaxonID    string
		Parent     *string
		Depth      int
		Lineage    []LineageEntry
		Attributes []*AttributeRecord
	}
)

// HasTraverse reports whether the attribute type nominates a traverse value.
func (a AttributeType) HasTraverse() bool {
	return a.Traverse != ""
}

// ParticipatesUpward reports whether the key is in the upward propagation set
// (spec §4.A: keys whose summary chain is configured).
func (a AttributeType) ParticipatesUpward() bool {
	return len(a.Summary) > 0
}

// ParticipatesDownward reports whether the key is in the downward propagation
// set (spec §4.A: traverse is set and direction isn't restricted to ancestor-only).
func (a AttributeType) ParticipatesDownward() bool {
	return a.HasTraverse() && a.TraverseDirection != DirectionAncestor
}

// Attribute returns the node's attribute record for key, if present.
func (n *Node) Attribute(key string) (*AttributeRecord, bool) {
	for _, a := range n.Attributes {
		if a.Key == key {
			return a, true
		}
	}

	return nil, false
}

// UpsertAttribute replaces the attribute record with the same key, or appends
// it if absent. Invariant 1 in spec §3: a key appears at most once per node.
func (n *Node) UpsertAttribute(rec *AttributeRecord) {
	for i, a := range n.Attributes {
		if a.Key == rec.Key {
			n.Attributes[i] = rec

			return
		}
	}

	n.Attributes = append(n.Attributes, rec)
}
