package traverse

import (
	"context"
	"sort"

	"github.com/genomehubs/fillcore/internal/backend"
	"github.com/genomehubs/fillcore/internal/taxonomy"
)

// fakeStore is an in-memory backend.Store used to exercise the traversal
// drivers against the spec's A/B/C/D/E/F tree fixture without a database.
type fakeStore struct {
	nodes    map[string]*taxonomy.Node
	children map[string][]string
	updates  []backend.Update
}

func newFakeStore(nodes ...*taxonomy.Node) *fakeStore {
	s := &fakeStore{
		nodes:    make(map[string]*taxonomy.Node),
		children: make(map[string][]string),
	}

	for _, n := range nodes {
		s.nodes[n.TaxonID] = n

		if n.Parent != nil {
			s.children[*n.Parent] = append(s.children[*n.Parent], n.TaxonID)
		}
	}

	return s
}

func (s *fakeStore) subtree(root string) []*taxonomy.Node {
	var out []*taxonomy.Node

	var walk func(id string)
	walk = func(id string) {
		for _, childID := range s.children[id] {
			out = append(out, s.nodes[childID])
			walk(childID)
		}
	}

	walk(root)

	return out
}

func (s *fakeStore) MaxDepthUnder(ctx context.Context, root string) (int, error) {
	rootNode, ok := s.nodes[root]
	if !ok {
		return 0, backend.ErrRootNotFound
	}

	maxDepth := rootNode.Depth

	for _, n := range s.subtree(root) {
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
	}

	return maxDepth - rootNode.Depth, nil
}

func (s *fakeStore) StreamNodesAtDepth(ctx context.Context, root string, depth int, out chan<- *taxonomy.Node) error {
	defer close(out)

	rootNode, ok := s.nodes[root]
	if !ok {
		return backend.ErrRootNotFound
	}

	if depth == 0 {
		out <- rootNode

		return nil
	}

	var matches []*taxonomy.Node

	for _, n := range s.subtree(root) {
		if n.Depth-rootNode.Depth == depth {
			matches = append(matches, n)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].TaxonID < matches[j].TaxonID })

	for _, n := range matches {
		out <- n
	}

	return nil
}

func (s *fakeStore) StreamDescendantsMissing(ctx context.Context, root string, keys []string, out chan<- *taxonomy.Node) error {
	defer close(out)

	var matches []*taxonomy.Node

	for _, n := range s.subtree(root) {
		for _, key := range keys {
			if _, ok := n.Attribute(key); !ok {
				matches = append(matches, n)

				break
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].TaxonID < matches[j].TaxonID })

	for _, n := range matches {
		out <- n
	}

	return nil
}

func (s *fakeStore) BulkUpdate(ctx context.Context, updates []backend.Update) error {
	s.updates = append(s.updates, updates...)

	for _, u := range updates {
		s.nodes[u.TaxonID] = u.Node
	}

	return nil
}

func (s *fakeStore) HealthCheck(ctx context.Context) error { return nil }
