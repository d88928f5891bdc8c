package hierarchy

import (
	"sort"

	metering "gridbill/internal/metering/domain"
)

// Edge is a directed parent/child meter connection.
type Edge struct {
	ParentID string
	ChildID  string
}

// Resolver answers structural queries over the meter connection graph.
// Connections ideally form a forest, but corrupted data can contain cycles;
// every traversal guards with a per-path visited set rather than assuming
// acyclicity. Detected cycles are collected as data-quality warnings instead
// of failing the query.
type Resolver struct {
	children map[string][]string
	parents  map[string]string
	cycles   map[string]struct{}
}

// NewResolver builds a resolver from explicit connection edges.
func NewResolver(edges []Edge) *Resolver {
	r := &Resolver{
		children: make(map[string][]string),
		parents:  make(map[string]string),
		cycles:   make(map[string]struct{}),
	}
	for _, e := range edges {
		if e.ParentID == "" || e.ChildID == "" || e.ParentID == e.ChildID {
			continue
		}
		r.children[e.ParentID] = append(r.children[e.ParentID], e.ChildID)
		if _, exists := r.parents[e.ChildID]; !exists {
			r.parents[e.ChildID] = e.ParentID
		}
	}
	return r
}

// DeriveConnectionsFromIndents infers parent links from a user-assigned
// indent level per meter and the meters' display order: each meter's parent
// is the nearest preceding meter whose indent is exactly one less. This is
// the fallback hierarchy source when no explicit edges exist.
func DeriveConnectionsFromIndents(ordered []metering.Meter, indents map[string]int) []Edge {
	var edges []Edge
	for i, meter := range ordered {
		level := indents[meter.ID]
		if level <= 0 {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			if indents[ordered[j].ID] == level-1 {
				edges = append(edges, Edge{ParentID: ordered[j].ID, ChildID: meter.ID})
				break
			}
		}
	}
	return edges
}

// Depth returns the longest path from the meter down to a leaf: 0 for a
// leaf, 1 + max child depth otherwise. Revisiting a meter on the current
// path terminates that branch at 0 and records a cycle warning.
func (r *Resolver) Depth(meterID string) int {
	return r.depth(meterID, make(map[string]struct{}))
}

func (r *Resolver) depth(meterID string, path map[string]struct{}) int {
	if _, onPath := path[meterID]; onPath {
		r.cycles[meterID] = struct{}{}
		return 0
	}
	children := r.children[meterID]
	if len(children) == 0 {
		return 0
	}

	path[meterID] = struct{}{}
	defer delete(path, meterID)

	deepest := 0
	for _, child := range children {
		if d := r.depth(child, path); d > deepest {
			deepest = d
		}
	}
	return 1 + deepest
}

// SortByDepth orders meters ascending by depth so leaves come before their
// parents; bottom-up aggregation depends on this ordering. Ties are broken
// by descending meter-number string comparison for a stable, deterministic
// order.
func (r *Resolver) SortByDepth(meters []metering.Meter) []metering.Meter {
	ordered := make([]metering.Meter, len(meters))
	copy(ordered, meters)
	depths := make(map[string]int, len(ordered))
	for _, m := range ordered {
		depths[m.ID] = r.Depth(m.ID)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		di, dj := depths[ordered[i].ID], depths[ordered[j].ID]
		if di != dj {
			return di < dj
		}
		return ordered[i].Number > ordered[j].Number
	})
	return ordered
}

// Children returns the direct children of a meter.
func (r *Resolver) Children(meterID string) []string {
	children := r.children[meterID]
	out := make([]string, len(children))
	copy(out, children)
	return out
}

// IsVisible reports whether a meter should be shown given the set of
// expanded parents: a parentless meter is always visible; otherwise the
// meter is visible iff its parent is expanded and itself visible.
func (r *Resolver) IsVisible(meterID string, expanded map[string]struct{}) bool {
	return r.isVisible(meterID, expanded, make(map[string]struct{}))
}

func (r *Resolver) isVisible(meterID string, expanded, path map[string]struct{}) bool {
	if _, onPath := path[meterID]; onPath {
		r.cycles[meterID] = struct{}{}
		return false
	}
	parent, hasParent := r.parents[meterID]
	if !hasParent {
		return true
	}
	if _, ok := expanded[parent]; !ok {
		return false
	}
	path[meterID] = struct{}{}
	return r.isVisible(parent, expanded, path)
}

// Descendants returns every meter reachable below the given meter.
func (r *Resolver) Descendants(meterID string) []string {
	var out []string
	visited := map[string]struct{}{meterID: {}}
	r.walk(meterID, visited, func(id string) { out = append(out, id) })
	return out
}

// LeafIDs returns the leaf meters of the subtree rooted at the given meter,
// including the meter itself when it has no children.
func (r *Resolver) LeafIDs(meterID string) []string {
	if len(r.children[meterID]) == 0 {
		return []string{meterID}
	}
	var out []string
	visited := map[string]struct{}{meterID: {}}
	r.walk(meterID, visited, func(id string) {
		if len(r.children[id]) == 0 {
			out = append(out, id)
		}
	})
	return out
}

// ParentIDs returns every meter that has at least one child, sorted.
func (r *Resolver) ParentIDs() []string {
	out := make([]string, 0, len(r.children))
	for id := range r.children {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Resolver) walk(meterID string, visited map[string]struct{}, visit func(string)) {
	for _, child := range r.children[meterID] {
		if _, seen := visited[child]; seen {
			r.cycles[child] = struct{}{}
			continue
		}
		visited[child] = struct{}{}
		visit(child)
		r.walk(child, visited, visit)
	}
}

// CycleWarnings returns the meters at which a connection cycle was detected
// during any traversal so far, sorted for deterministic reporting.
func (r *Resolver) CycleWarnings() []string {
	out := make([]string, 0, len(r.cycles))
	for id := range r.cycles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
