package kb

import "fmt"

// CheckConsistency validates the structural guarantees the knowledge base
// maintains across every public operation: no duplicate facts or rules,
// every stored fact ground, every item either asserted or supported, every
// justification edge mirrored by reverse edges, and an acyclic derivation
// graph. It exists for tests and diagnostics; a non-nil return is a bug in
// the engine, not in caller input.
func (kb *KnowledgeBase) CheckConsistency() error {
	for i, f := range kb.facts {
		if !f.Statement.Ground() {
			return fmt.Errorf("stored fact %s is not ground", f)
		}
		for _, other := range kb.facts[i+1:] {
			if f.Equal(other) {
				return fmt.Errorf("duplicate fact %s", f)
			}
		}
		if !f.Asserted && len(f.SupportedBy) == 0 {
			return fmt.Errorf("fact %s is neither asserted nor supported", f)
		}
		for _, j := range f.SupportedBy {
			if !containsFact(j.Fact.supportsFacts, f) {
				return fmt.Errorf("fact %s missing from supports of justifier fact %s", f, j.Fact)
			}
			if !containsFact(j.Rule.supportsFacts, f) {
				return fmt.Errorf("fact %s missing from supports of justifier rule %s", f, j.Rule)
			}
			if kb.lookupFact(j.Fact.Statement) != j.Fact {
				return fmt.Errorf("justifier fact %s of %s is not stored", j.Fact, f)
			}
			if kb.lookupRule(j.Rule) != j.Rule {
				return fmt.Errorf("justifier rule %s of %s is not stored", j.Rule, f)
			}
		}
		for _, x := range f.supportsFacts {
			if !hasJustifierFact(x.SupportedBy, f) {
				return fmt.Errorf("dangling supports edge from fact %s to fact %s", f, x)
			}
		}
		for _, x := range f.supportsRules {
			if !hasJustifierFact(x.SupportedBy, f) {
				return fmt.Errorf("dangling supports edge from fact %s to rule %s", f, x)
			}
		}
	}

	for i, r := range kb.rules {
		for _, other := range kb.rules[i+1:] {
			if r.Equal(other) {
				return fmt.Errorf("duplicate rule %s", r)
			}
		}
		if !r.Asserted && len(r.SupportedBy) == 0 {
			return fmt.Errorf("rule %s is neither asserted nor supported", r)
		}
		for _, j := range r.SupportedBy {
			if !containsRule(j.Fact.supportsRules, r) {
				return fmt.Errorf("rule %s missing from supports of justifier fact %s", r, j.Fact)
			}
			if !containsRule(j.Rule.supportsRules, r) {
				return fmt.Errorf("rule %s missing from supports of justifier rule %s", r, j.Rule)
			}
		}
		for _, x := range r.supportsFacts {
			if !hasJustifierRule(x.SupportedBy, r) {
				return fmt.Errorf("dangling supports edge from rule %s to fact %s", r, x)
			}
		}
		for _, x := range r.supportsRules {
			if !hasJustifierRule(x.SupportedBy, r) {
				return fmt.Errorf("dangling supports edge from rule %s to rule %s", r, x)
			}
		}
	}

	done := make(map[any]bool)
	for _, f := range kb.facts {
		if cyclicFrom(f, make(map[any]bool), done) {
			return fmt.Errorf("derivation cycle through fact %s", f)
		}
	}
	for _, r := range kb.rules {
		if cyclicFrom(r, make(map[any]bool), done) {
			return fmt.Errorf("derivation cycle through rule %s", r)
		}
	}
	return nil
}

// cyclicFrom performs a DFS over SupportedBy edges looking for a back edge.
func cyclicFrom(item any, onPath, done map[any]bool) bool {
	if done[item] {
		return false
	}
	if onPath[item] {
		return true
	}
	onPath[item] = true
	for _, j := range supportedBy(item) {
		if cyclicFrom(j.Fact, onPath, done) || cyclicFrom(j.Rule, onPath, done) {
			return true
		}
	}
	onPath[item] = false
	done[item] = true
	return false
}

func containsFact(list []*Fact, target *Fact) bool {
	for _, f := range list {
		if f == target {
			return true
		}
	}
	return false
}

func containsRule(list []*Rule, target *Rule) bool {
	for _, r := range list {
		if r == target {
			return true
		}
	}
	return false
}

func hasJustifierFact(justs []Justification, f *Fact) bool {
	for _, j := range justs {
		if j.Fact == f {
			return true
		}
	}
	return false
}

func hasJustifierRule(justs []Justification, r *Rule) bool {
	for _, j := range justs {
		if j.Rule == r {
			return true
		}
	}
	return false
}
