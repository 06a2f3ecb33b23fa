package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// wireAttributeType is the YAML-facing shape of an attribute type entry;
// AttributeType itself stays free of struct tags so the pure aggregation
// code in this package has no serialisation concerns.
type wireAttributeType struct {
	Type              string   `yaml:"type"`
	Summary           []string `yaml:"summary"`
	Traverse          string   `yaml:"traverse"`
	TraverseDirection string   `yaml:"traverse_direction"` //nolint:tagliatelle // snake_case matches upstream config convention
}

// wireTypeTable is the top-level YAML document shape: a map of attribute key
// to its metadata, following the genomehubs "types.attributes" convention
// (original_source/src/genomehubs/lib/fill.py: template["types"]["attributes"]).
type wireTypeTable struct {
	Attributes map[string]wireAttributeType `yaml:"attributes"`
}

// TypeTable is the read-only Attribute Type Table (spec component A): a
// per-run, immutable mapping from attribute key to metadata, plus the two
// derived key sets spec §4.A defines.
type TypeTable struct {
	types map[string]AttributeType
	alias *AliasResolver

	upwardKeys   map[string]struct{}
	downwardKeys map[string]struct{}
}

// NewTypeTable builds a TypeTable from already-parsed metadata, computing the
// upward/downward key sets once at construction (spec §4.A).
func NewTypeTable(types map[string]AttributeType, alias *AliasResolver) *TypeTable {
	t := &TypeTable{
		types:        types,
		alias:        alias,
		upwardKeys:   make(map[string]struct{}),
		downwardKeys: make(map[string]struct{}),
	}

	for key, meta := range types {
		if meta.ParticipatesUpward() {
			t.upwardKeys[key] = struct{}{}
		}

		if meta.ParticipatesDownward() {
			t.downwardKeys[key] = struct{}{}
		}
	}

	return t
}

// Load reads an attribute type table from a YAML file (spec §6: "the core
// receives a prebuilt attribute-type table"; this is how a fixture or a
// standalone run supplies one). aliasPath is optional; pass "" to skip alias
// resolution.
func Load(path, aliasPath string) (*TypeTable, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("reading attribute type table: %w", err)
	}

	var wire wireTypeTable

	if err := yaml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parsing attribute type table: %w", err)
	}

	types := make(map[string]AttributeType, len(wire.Attributes))

	for key, w := range wire.Attributes {
		meta := AttributeType{
			Key:               key,
			ValueType:         ValueType(w.Type),
			TraverseDirection: Direction(w.TraverseDirection),
		}

		if w.Traverse != "" {
			meta.Traverse = SummaryName(w.Traverse)
		}

		for _, s := range w.Summary {
			meta.Summary = append(meta.Summary, SummaryName(s))
		}

		types[key] = meta
	}

	var alias *AliasResolver

	if aliasPath != "" {
		alias, err = LoadAliasResolver(aliasPath)
		if err != nil {
			return nil, fmt.Errorf("loading attribute key aliases: %w", err)
		}
	}

	return NewTypeTable(types, alias), nil
}

// Lookup resolves key (applying alias resolution first, if configured) and
// returns its metadata.
func (t *TypeTable) Lookup(key string) (AttributeType, bool) {
	if t.alias != nil {
		key = t.alias.Resolve(key)
	}

	meta, ok := t.types[key]

	return meta, ok
}

// UpwardKeys returns the set of attribute keys participating in the upward
// pass (spec §4.A).
func (t *TypeTable) UpwardKeys() map[string]struct{} {
	return t.upwardKeys
}

// DownwardKeys returns the set of attribute keys participating in the
// downward pass (spec §4.A).
func (t *TypeTable) DownwardKeys() map[string]struct{} {
	return t.downwardKeys
}

// Has reports whether key (after alias resolution) names a known attribute.
func (t *TypeTable) Has(key string) bool {
	_, ok := t.Lookup(key)

	return ok
}

// RequireKnown validates a traverse request's attribute key against the
// table, returning ErrUnknownAttributeKey (a config error per spec §7) if it
// names nothing in this run's type table.
func (t *TypeTable) RequireKnown(key string) error {
	if !t.Has(key) {
		return fmt.Errorf("%w: %s", ErrUnknownAttributeKey, key)
	}

	return nil
}
