package kb

import (
	"strings"

	"hornkb/internal/term"
)

// Justification records one derivation step: the derived item follows from
// applying Rule to Fact.
type Justification struct {
	Fact *Fact
	Rule *Rule
}

// Item is the tagged variant accepted by the knowledge base API: either a
// *Fact or a *Rule.
type Item interface {
	String() string
	isItem()
}

// Fact is a ground statement plus its justification record. Two facts are
// equal iff their statements are equal; the justification fields are
// bookkeeping owned by the knowledge base.
type Fact struct {
	Statement term.Statement

	// Asserted is true iff the fact was introduced externally rather than
	// derived. Toggled by re-assertion and retraction.
	Asserted bool

	// SupportedBy lists the derivations currently keeping the fact alive.
	SupportedBy []Justification

	// Reverse edges: items this fact is a justifier of.
	supportsFacts []*Fact
	supportsRules []*Rule
}

// NewFact builds a fact. With no justifications it is an external assertion;
// with justifications it is a derivation.
func NewFact(stmt term.Statement, supportedBy ...Justification) *Fact {
	return &Fact{
		Statement:   stmt,
		Asserted:    len(supportedBy) == 0,
		SupportedBy: supportedBy,
	}
}

func (*Fact) isItem() {}

func (f *Fact) String() string { return f.Statement.String() }

// Equal reports statement equality, ignoring justification state.
func (f *Fact) Equal(other *Fact) bool { return f.Statement.Equal(other.Statement) }

// Supports returns the items this fact currently justifies.
func (f *Fact) Supports() (facts []*Fact, rules []*Rule) {
	return append([]*Fact(nil), f.supportsFacts...), append([]*Rule(nil), f.supportsRules...)
}

// Rule pairs a conjunctive antecedent with a single consequent, plus the same
// justification record as Fact. Two rules are equal iff antecedent and
// consequent match structurally.
type Rule struct {
	LHS []term.Statement
	RHS term.Statement

	Asserted    bool
	SupportedBy []Justification

	supportsFacts []*Fact
	supportsRules []*Rule
}

// NewRule builds a rule. With no justifications it is an external axiom;
// with justifications it is a residual rule produced by partial application.
func NewRule(lhs []term.Statement, rhs term.Statement, supportedBy ...Justification) *Rule {
	return &Rule{
		LHS:         lhs,
		RHS:         rhs,
		Asserted:    len(supportedBy) == 0,
		SupportedBy: supportedBy,
	}
}

func (*Rule) isItem() {}

func (r *Rule) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, l := range r.LHS {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(l.String())
	}
	sb.WriteString(") -> ")
	sb.WriteString(r.RHS.String())
	return sb.String()
}

// Equal reports structural equality of antecedent and consequent, ignoring
// justification state.
func (r *Rule) Equal(other *Rule) bool {
	return term.EqualStatements(r.LHS, other.LHS) && r.RHS.Equal(other.RHS)
}

// Supports returns the items this rule currently justifies.
func (r *Rule) Supports() (facts []*Fact, rules []*Rule) {
	return append([]*Fact(nil), r.supportsFacts...), append([]*Rule(nil), r.supportsRules...)
}

// removeFactRef drops the first pointer-identical occurrence of target.
func removeFactRef(list []*Fact, target *Fact) []*Fact {
	for i, f := range list {
		if f == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// removeRuleRef drops the first pointer-identical occurrence of target.
func removeRuleRef(list []*Rule, target *Rule) []*Rule {
	for i, r := range list {
		if r == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
