package kb

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hornkb/internal/term"
)

// maxTraceDepth bounds tree expansion; the justification graph is acyclic
// but deeply chained derivations are cut off rather than rendered in full.
const maxTraceDepth = 32

// DerivationSource classifies a trace node.
type DerivationSource string

const (
	SourceAsserted DerivationSource = "asserted"
	SourceDerived  DerivationSource = "derived"
)

// DerivationNode is one node of a justification tree. Each child pair
// (fact, rule) is one derivation step supporting this node's item.
type DerivationNode struct {
	Item     string
	Kind     string // "fact" or "rule"
	Source   DerivationSource
	Depth    int
	Children []*DerivationNode
}

// DerivationTrace is the materialized justification tree below one item.
type DerivationTrace struct {
	ID        string
	Root      *DerivationNode
	Total     int
	CreatedAt time.Time
}

// TraceFact builds the justification tree for a stored fact. The second
// return value is false when no equal fact is stored.
func (kb *KnowledgeBase) TraceFact(stmt term.Statement) (*DerivationTrace, bool) {
	f := kb.lookupFact(stmt)
	if f == nil {
		return nil, false
	}
	trace := &DerivationTrace{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}
	trace.Root = buildFactNode(f, 0, trace)
	return trace, true
}

func buildFactNode(f *Fact, depth int, trace *DerivationTrace) *DerivationNode {
	trace.Total++
	node := &DerivationNode{
		Item:   f.Statement.String(),
		Kind:   "fact",
		Source: SourceDerived,
		Depth:  depth,
	}
	if f.Asserted {
		node.Source = SourceAsserted
	}
	if depth >= maxTraceDepth {
		return node
	}
	for _, j := range f.SupportedBy {
		node.Children = append(node.Children,
			buildFactNode(j.Fact, depth+1, trace),
			buildRuleNode(j.Rule, depth+1, trace))
	}
	return node
}

func buildRuleNode(r *Rule, depth int, trace *DerivationTrace) *DerivationNode {
	trace.Total++
	node := &DerivationNode{
		Item:   r.String(),
		Kind:   "rule",
		Source: SourceDerived,
		Depth:  depth,
	}
	if r.Asserted {
		node.Source = SourceAsserted
	}
	if depth >= maxTraceDepth {
		return node
	}
	for _, j := range r.SupportedBy {
		node.Children = append(node.Children,
			buildFactNode(j.Fact, depth+1, trace),
			buildRuleNode(j.Rule, depth+1, trace))
	}
	return node
}

// RenderASCII renders the trace as an indented tree.
func (t *DerivationTrace) RenderASCII() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Trace %s (%d nodes)\n", t.ID, t.Total))
	sb.WriteString(strings.Repeat("=", 60) + "\n")
	renderNodeASCII(&sb, t.Root, "", true)
	return sb.String()
}

func renderNodeASCII(sb *strings.Builder, node *DerivationNode, prefix string, isLast bool) {
	connector := "├── "
	if isLast {
		connector = "└── "
	}
	if node.Depth == 0 {
		connector = ""
	}

	marker := "[derived]"
	if node.Source == SourceAsserted {
		marker = "[asserted]"
	}
	sb.WriteString(fmt.Sprintf("%s%s%s %s %s\n", prefix, connector, node.Item, node.Kind, marker))

	childPrefix := prefix
	if node.Depth > 0 {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}
	for i, child := range node.Children {
		renderNodeASCII(sb, child, childPrefix, i == len(node.Children)-1)
	}
}

// RenderJSON renders the trace as indented JSON.
func (t *DerivationTrace) RenderJSON() ([]byte, error) {
	type jsonNode struct {
		Item     string      `json:"item"`
		Kind     string      `json:"kind"`
		Source   string      `json:"source"`
		Depth    int         `json:"depth"`
		Children []*jsonNode `json:"children,omitempty"`
	}

	var convert func(*DerivationNode) *jsonNode
	convert = func(n *DerivationNode) *jsonNode {
		jn := &jsonNode{
			Item:   n.Item,
			Kind:   n.Kind,
			Source: string(n.Source),
			Depth:  n.Depth,
		}
		for _, child := range n.Children {
			jn.Children = append(jn.Children, convert(child))
		}
		return jn
	}

	return json.MarshalIndent(struct {
		ID    string    `json:"id"`
		Total int       `json:"total"`
		Root  *jsonNode `json:"root"`
	}{t.ID, t.Total, convert(t.Root)}, "", "  ")
}
