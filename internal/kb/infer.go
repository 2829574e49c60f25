package kb

import (
	"go.uber.org/zap"

	"hornkb/internal/term"
)

// inferForward applies one forward-chaining step to a (fact, rule) pair. If
// the fact unifies with the rule's first antecedent the resulting derivation
// is submitted back for ingest: a new fact when the antecedent is exhausted,
// otherwise a residual rule over the instantiated remainder. Later
// antecedents are resolved when matching facts arrive and are inferred
// against the residual rule in turn.
func (kb *KnowledgeBase) inferForward(f *Fact, r *Rule) {
	theta, ok := term.Match(f.Statement, r.LHS[0])
	if !ok {
		return
	}
	just := Justification{Fact: f, Rule: r}

	if len(r.LHS) == 1 {
		derived := term.Instantiate(r.RHS, theta)
		if !derived.Ground() {
			// The consequent used a variable the antecedent never binds;
			// nothing ground can be concluded from it.
			kb.log.Warn("discarding non-ground derivation",
				zap.Stringer("fact", f.Statement),
				zap.Stringer("rule", r))
			return
		}
		kb.log.Debug("derived fact",
			zap.Stringer("fact", derived),
			zap.Stringer("from", f.Statement))
		kb.ingestFact(&Fact{Statement: derived, SupportedBy: []Justification{just}})
		return
	}

	residual := &Rule{
		LHS:         term.InstantiateAll(r.LHS[1:], theta),
		RHS:         term.Instantiate(r.RHS, theta),
		SupportedBy: []Justification{just},
	}
	kb.log.Debug("derived residual rule", zap.Stringer("rule", residual))
	kb.ingestRule(residual)
}
