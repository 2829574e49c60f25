// Package kb implements a forward-chaining knowledge base with truth
// maintenance for the function-free Horn fragment. Facts and rules carry
// justification records; ingest eagerly saturates derivable consequences, and
// retraction propagates through the justification graph so that anything
// whose support has been removed is withdrawn while independently asserted
// knowledge survives.
package kb

import (
	"go.uber.org/zap"

	"hornkb/internal/term"
)

// Config holds knowledge base tuning.
type Config struct {
	// FactLimit is a soft capacity for the fact collection. Crossing 85%
	// utilization logs a warning; the limit never rejects an ingest.
	// 0 disables the check.
	FactLimit int

	// DepthWarn is the recursive ingest depth past which a warning is
	// logged. Saturation in this fragment always terminates, so the
	// threshold exists for diagnostics only. 0 disables the check.
	DepthWarn int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FactLimit: 100000,
		DepthWarn: 64,
	}
}

// KnowledgeBase owns the fact and rule collections and the justification
// graph between them. It is single-threaded and not reentrant: callers must
// serialize operations, and retraction must not be invoked from within an
// ingest.
type KnowledgeBase struct {
	cfg Config
	log *zap.Logger

	facts []*Fact
	rules []*Rule

	depth           int
	depthWarned     bool
	factLimitWarned bool
}

// New creates an empty knowledge base. A nil logger disables diagnostics.
func New(cfg Config, logger *zap.Logger) *KnowledgeBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBase{cfg: cfg, log: logger}
}

// Facts returns the stored facts in insertion order.
func (kb *KnowledgeBase) Facts() []*Fact {
	return append([]*Fact(nil), kb.facts...)
}

// Rules returns the stored rules in insertion order.
func (kb *KnowledgeBase) Rules() []*Rule {
	return append([]*Rule(nil), kb.rules...)
}

// Assert ingests an externally asserted fact or rule.
func (kb *KnowledgeBase) Assert(item Item) error { return kb.Add(item) }

// Add ingests a fact or rule. New items are appended and inferred against
// every member of the opposite collection, recursively ingesting derivations.
// An item equal to a stored one is merged instead: re-derivations contribute
// their justification to the stored item, bare re-assertions set its
// Asserted flag.
func (kb *KnowledgeBase) Add(item Item) error {
	switch it := item.(type) {
	case *Fact:
		if !it.Statement.Ground() {
			kb.log.Warn("rejecting non-ground fact", zap.Stringer("fact", it.Statement))
			return ErrNonGroundFact
		}
		kb.ingestFact(it)
	case *Rule:
		if len(it.LHS) == 0 {
			kb.log.Warn("rejecting rule with empty antecedent", zap.Stringer("rhs", it.RHS))
			return ErrEmptyRule
		}
		kb.ingestRule(it)
	}
	return nil
}

// BindingSet is one query answer: a binding paired with the facts it was
// derived against.
type BindingSet struct {
	Bindings term.Binding
	Facts    []*Fact
}

// ListOfBindings is an ordered query result.
type ListOfBindings []BindingSet

// Ask matches a pattern statement against every stored fact and returns the
// successful bindings with their witness facts. The pattern must be
// fact-shaped: a single statement whose predicate is a constant. An invalid
// pattern returns an empty result and ErrInvalidAsk.
func (kb *KnowledgeBase) Ask(pattern term.Statement) (ListOfBindings, error) {
	if pattern.Predicate == "" || term.IsVariableName(pattern.Predicate) {
		kb.log.Warn("invalid ask", zap.Stringer("pattern", pattern))
		return nil, ErrInvalidAsk
	}
	var out ListOfBindings
	for _, f := range kb.facts {
		if theta, ok := term.Match(pattern, f.Statement); ok {
			out = append(out, BindingSet{Bindings: theta, Facts: []*Fact{f}})
		}
	}
	kb.log.Debug("ask", zap.Stringer("pattern", pattern), zap.Int("answers", len(out)))
	return out, nil
}

// Retract withdraws a fact or rule. An asserted fact first loses its
// assertion and survives while derivations still support it; anything left
// without assertion or support is removed, and removal cascades to
// dependents that lose their last justification. Asserted rules are axioms
// and are never removed. Retracting an absent item is a no-op.
func (kb *KnowledgeBase) Retract(item Item) {
	switch it := item.(type) {
	case *Fact:
		f := kb.lookupFact(it.Statement)
		if f == nil {
			return
		}
		kb.log.Debug("retract fact", zap.Stringer("fact", f.Statement))
		if f.Asserted {
			f.Asserted = false
			if len(f.SupportedBy) > 0 {
				return
			}
		}
		kb.removeFact(f)
	case *Rule:
		r := kb.lookupRule(it)
		if r == nil {
			return
		}
		if r.Asserted {
			kb.log.Debug("skipping retraction of asserted rule", zap.Stringer("rule", r))
			return
		}
		kb.log.Debug("retract rule", zap.Stringer("rule", r))
		kb.removeRule(r)
	}
}

// lookupFact returns the stored fact equal to stmt, or nil.
func (kb *KnowledgeBase) lookupFact(stmt term.Statement) *Fact {
	for _, f := range kb.facts {
		if f.Statement.Equal(stmt) {
			return f
		}
	}
	return nil
}

// lookupRule returns the stored rule structurally equal to r, or nil.
func (kb *KnowledgeBase) lookupRule(r *Rule) *Rule {
	for _, kr := range kb.rules {
		if kr.Equal(r) {
			return kr
		}
	}
	return nil
}

// ingestFact appends a new fact and saturates it against the stored rules,
// or merges it into an equal stored fact.
func (kb *KnowledgeBase) ingestFact(f *Fact) {
	if existing := kb.lookupFact(f.Statement); existing != nil {
		kb.mergeFact(existing, f)
		return
	}
	kb.facts = append(kb.facts, f)
	kb.wireFact(f)
	kb.maybeWarnFactLimit()

	kb.enterIngest()
	// Inference runs against the rule collection as stored at this point;
	// rules appended by recursive derivation saturate against the whole
	// store on their own ingest.
	for _, r := range kb.rules {
		kb.inferForward(f, r)
	}
	kb.leaveIngest()
}

// ingestRule appends a new rule and saturates it against the stored facts,
// or merges it into an equal stored rule.
func (kb *KnowledgeBase) ingestRule(r *Rule) {
	if existing := kb.lookupRule(r); existing != nil {
		kb.mergeRule(existing, r)
		return
	}
	kb.rules = append(kb.rules, r)
	kb.wireRule(r)

	kb.enterIngest()
	for _, f := range kb.facts {
		kb.inferForward(f, r)
	}
	kb.leaveIngest()
}

// wireFact records the reverse edges for a newly stored fact's incoming
// justifications.
func (kb *KnowledgeBase) wireFact(f *Fact) {
	for _, j := range f.SupportedBy {
		j.Fact.supportsFacts = append(j.Fact.supportsFacts, f)
		j.Rule.supportsFacts = append(j.Rule.supportsFacts, f)
	}
}

// wireRule records the reverse edges for a newly stored rule's incoming
// justifications.
func (kb *KnowledgeBase) wireRule(r *Rule) {
	for _, j := range r.SupportedBy {
		j.Fact.supportsRules = append(j.Fact.supportsRules, r)
		j.Rule.supportsRules = append(j.Rule.supportsRules, r)
	}
}

// mergeFact folds an incoming duplicate into the stored fact. A re-derivation
// contributes its justifications; a bare re-assertion restores the Asserted
// flag.
func (kb *KnowledgeBase) mergeFact(existing, incoming *Fact) {
	if len(incoming.SupportedBy) == 0 {
		existing.Asserted = true
		return
	}
	for _, j := range incoming.SupportedBy {
		if kb.wouldCycleFact(existing, j) {
			kb.log.Debug("dropping cyclic justification",
				zap.Stringer("fact", existing.Statement))
			continue
		}
		existing.SupportedBy = append(existing.SupportedBy, j)
		j.Fact.supportsFacts = append(j.Fact.supportsFacts, existing)
		j.Rule.supportsFacts = append(j.Rule.supportsFacts, existing)
	}
}

// mergeRule folds an incoming duplicate into the stored rule.
func (kb *KnowledgeBase) mergeRule(existing, incoming *Rule) {
	if len(incoming.SupportedBy) == 0 {
		existing.Asserted = true
		return
	}
	for _, j := range incoming.SupportedBy {
		if kb.wouldCycleRule(existing, j) {
			kb.log.Debug("dropping cyclic justification", zap.Stringer("rule", existing))
			continue
		}
		existing.SupportedBy = append(existing.SupportedBy, j)
		j.Fact.supportsRules = append(j.Fact.supportsRules, existing)
		j.Rule.supportsRules = append(j.Rule.supportsRules, existing)
	}
}

// wouldCycleFact reports whether justifying target by j would close a cycle
// in the derivation graph, i.e. whether target already appears among the
// transitive justifiers of either endpoint of j. Fresh items can never be
// ancestors, so the check only runs on merge.
func (kb *KnowledgeBase) wouldCycleFact(target *Fact, j Justification) bool {
	seen := make(map[any]bool)
	return justifiedVia(j.Fact, target, seen) || justifiedVia(j.Rule, target, seen)
}

func (kb *KnowledgeBase) wouldCycleRule(target *Rule, j Justification) bool {
	seen := make(map[any]bool)
	return justifiedVia(j.Fact, target, seen) || justifiedVia(j.Rule, target, seen)
}

// justifiedVia walks SupportedBy edges upward from item and reports whether
// target (a *Fact or *Rule) is item itself or one of its transitive
// justifiers.
func justifiedVia(item, target any, seen map[any]bool) bool {
	if item == target {
		return true
	}
	if seen[item] {
		return false
	}
	seen[item] = true
	for _, j := range supportedBy(item) {
		if justifiedVia(j.Fact, target, seen) || justifiedVia(j.Rule, target, seen) {
			return true
		}
	}
	return false
}

// supportedBy returns the justification list of a fact or rule.
func supportedBy(item any) []Justification {
	switch it := item.(type) {
	case *Fact:
		return it.SupportedBy
	case *Rule:
		return it.SupportedBy
	}
	return nil
}

// removeFact deletes a fact whose assertion and support are gone: detaches
// every remaining justification edge in both directions, cascades to
// dependents that lose their last justification, and drops the fact from the
// collection.
func (kb *KnowledgeBase) removeFact(f *Fact) {
	for _, j := range f.SupportedBy {
		j.Fact.supportsFacts = removeFactRef(j.Fact.supportsFacts, f)
		j.Rule.supportsFacts = removeFactRef(j.Rule.supportsFacts, f)
	}
	f.SupportedBy = nil

	dependFacts := f.supportsFacts
	dependRules := f.supportsRules
	f.supportsFacts = nil
	f.supportsRules = nil

	kb.facts = removeFactRef(kb.facts, f)
	kb.log.Debug("removed fact", zap.Stringer("fact", f.Statement))

	for _, x := range dependFacts {
		kb.dropFactJustifications(x, func(j Justification) bool { return j.Fact == f })
		kb.retractDependentFact(x)
	}
	for _, x := range dependRules {
		kb.dropRuleJustifications(x, func(j Justification) bool { return j.Fact == f })
		kb.retractDependentRule(x)
	}
}

// removeRule is the rule-side counterpart of removeFact, matching on the
// rule component of dependent justifications.
func (kb *KnowledgeBase) removeRule(r *Rule) {
	for _, j := range r.SupportedBy {
		j.Fact.supportsRules = removeRuleRef(j.Fact.supportsRules, r)
		j.Rule.supportsRules = removeRuleRef(j.Rule.supportsRules, r)
	}
	r.SupportedBy = nil

	dependFacts := r.supportsFacts
	dependRules := r.supportsRules
	r.supportsFacts = nil
	r.supportsRules = nil

	kb.rules = removeRuleRef(kb.rules, r)
	kb.log.Debug("removed rule", zap.Stringer("rule", r))

	for _, x := range dependFacts {
		kb.dropFactJustifications(x, func(j Justification) bool { return j.Rule == r })
		kb.retractDependentFact(x)
	}
	for _, x := range dependRules {
		kb.dropRuleJustifications(x, func(j Justification) bool { return j.Rule == r })
		kb.retractDependentRule(x)
	}
}

// dropFactJustifications removes the justifications of x matching drop,
// detaching x from the surviving endpoint of each removed edge.
func (kb *KnowledgeBase) dropFactJustifications(x *Fact, drop func(Justification) bool) {
	kept := x.SupportedBy[:0]
	for _, j := range x.SupportedBy {
		if !drop(j) {
			kept = append(kept, j)
			continue
		}
		j.Fact.supportsFacts = removeFactRef(j.Fact.supportsFacts, x)
		j.Rule.supportsFacts = removeFactRef(j.Rule.supportsFacts, x)
	}
	x.SupportedBy = kept
}

// dropRuleJustifications removes the justifications of x matching drop,
// detaching x from the surviving endpoint of each removed edge.
func (kb *KnowledgeBase) dropRuleJustifications(x *Rule, drop func(Justification) bool) {
	kept := x.SupportedBy[:0]
	for _, j := range x.SupportedBy {
		if !drop(j) {
			kept = append(kept, j)
			continue
		}
		j.Fact.supportsRules = removeRuleRef(j.Fact.supportsRules, x)
		j.Rule.supportsRules = removeRuleRef(j.Rule.supportsRules, x)
	}
	x.SupportedBy = kept
}

// retractDependentFact removes a dependent that has lost both assertion and
// support; anything still asserted or supported survives.
func (kb *KnowledgeBase) retractDependentFact(x *Fact) {
	if x.Asserted || len(x.SupportedBy) > 0 {
		return
	}
	kb.removeFact(x)
}

// retractDependentRule removes a dependent rule left without assertion or
// support.
func (kb *KnowledgeBase) retractDependentRule(x *Rule) {
	if x.Asserted || len(x.SupportedBy) > 0 {
		return
	}
	kb.removeRule(x)
}

func (kb *KnowledgeBase) enterIngest() {
	kb.depth++
	if kb.cfg.DepthWarn > 0 && kb.depth > kb.cfg.DepthWarn && !kb.depthWarned {
		kb.depthWarned = true
		kb.log.Warn("ingest recursion unusually deep", zap.Int("depth", kb.depth))
	}
}

func (kb *KnowledgeBase) leaveIngest() {
	kb.depth--
}

func (kb *KnowledgeBase) maybeWarnFactLimit() {
	if kb.cfg.FactLimit == 0 || kb.factLimitWarned {
		return
	}
	utilization := float64(len(kb.facts)) / float64(kb.cfg.FactLimit)
	if utilization >= 0.85 {
		kb.factLimitWarned = true
		kb.log.Warn("fact collection nearing configured capacity",
			zap.Int("facts", len(kb.facts)),
			zap.Int("limit", kb.cfg.FactLimit))
	}
}
