// Package dag holds the dependency graph behind a transaction plan.
package dag

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Graph is a directed graph of named nodes. An edge from A to B means B
// depends on A.
type Graph struct {
	*simple.DirectedGraph
	name  string
	attrs encoding.Attributes
	ids   map[string]int64
}

// New creates an empty Graph.
func New(name string) *Graph {
	return &Graph{
		DirectedGraph: simple.NewDirectedGraph(),
		name:          name,
		ids:           make(map[string]int64),
	}
}

// Node is a named node of a Graph.
type Node struct {
	graph.Node
	name  string
	attrs encoding.Attributes
}

// Name returns the name the node was added with.
func (n *Node) Name() string {
	return n.name
}

// DOTID implements dot.Node.
func (n *Node) DOTID() string {
	return n.name
}

func (n *Node) Attributes() []encoding.Attribute {
	return n.attrs.Attributes()
}

func (n *Node) SetAttribute(attr encoding.Attribute) error {
	return n.attrs.SetAttribute(attr)
}

// DOTID implements dot.Graph.
func (g *Graph) DOTID() string {
	return g.name
}

func (g *Graph) Attributes() []encoding.Attribute {
	return g.attrs.Attributes()
}

func (g *Graph) SetAttribute(attr encoding.Attribute) error {
	return g.attrs.SetAttribute(attr)
}

// AddNamed adds a node called name. Names must be unique.
func (g *Graph) AddNamed(name string, label string) (*Node, error) {
	if _, exists := g.ids[name]; exists {
		return nil, fmt.Errorf("node with name '%s' already exists", name)
	}

	n := &Node{Node: g.DirectedGraph.NewNode(), name: name}
	if label != "" {
		if err := n.SetAttribute(encoding.Attribute{Key: "label", Value: label}); err != nil {
			return nil, err
		}
	}

	g.DirectedGraph.AddNode(n)
	g.ids[name] = n.ID()
	return n, nil
}

// Named returns the node called name.
func (g *Graph) Named(name string) (*Node, bool) {
	id, ok := g.ids[name]
	if !ok {
		return nil, false
	}
	return g.DirectedGraph.Node(id).(*Node), true
}

// AddDependency records that node "to" depends on node "from".
func (g *Graph) AddDependency(from, to string) error {
	fromNode, ok := g.Named(from)
	if !ok {
		return fmt.Errorf("node '%s' does not exist", from)
	}
	toNode, ok := g.Named(to)
	if !ok {
		return fmt.Errorf("node '%s' does not exist", to)
	}
	if fromNode.ID() == toNode.ID() {
		return fmt.Errorf("node '%s' cannot depend on itself", from)
	}

	g.SetEdge(simple.Edge{F: fromNode, T: toNode})
	return nil
}

// Levels groups the nodes so that every node only depends on nodes of
// earlier levels. Nodes within a level are ordered by insertion. A cycle
// yields a topo.Unorderable error.
func (g *Graph) Levels() ([][]*Node, error) {
	sorted, err := topo.SortStabilized(g, byID)
	if err != nil {
		return nil, fmt.Errorf("topological sort failed: %w", err)
	}

	depth := make(map[int64]int, len(sorted))
	var levels [][]*Node
	for _, n := range sorted {
		level := 0
		preds := g.To(n.ID())
		for preds.Next() {
			if d := depth[preds.Node().ID()] + 1; d > level {
				level = d
			}
		}
		depth[n.ID()] = level

		for len(levels) <= level {
			levels = append(levels, nil)
		}
		levels[level] = append(levels[level], n.(*Node))
	}

	for _, level := range levels {
		sort.Slice(level, func(i, j int) bool {
			return level[i].ID() < level[j].ID()
		})
	}
	return levels, nil
}

// ExportToDot exports the graph to Graphviz .dot format.
func (g *Graph) ExportToDot() (string, error) {
	data, err := dot.Marshal(g, "", "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to export graph to DOT format: %w", err)
	}
	return string(data), nil
}

func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID() < nodes[j].ID()
	})
}
