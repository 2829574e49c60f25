package kb

// Stats is a point-in-time summary of the knowledge base.
type Stats struct {
	TotalFacts    int `json:"total_facts"`
	TotalRules    int `json:"total_rules"`
	AssertedFacts int `json:"asserted_facts"`
	AssertedRules int `json:"asserted_rules"`
	DerivedFacts  int `json:"derived_facts"`
	DerivedRules  int `json:"derived_rules"`

	// PredicateCounts maps each predicate to its fact count.
	PredicateCounts map[string]int `json:"predicate_counts"`
}

// Stats computes collection totals and per-predicate fact counts.
func (kb *KnowledgeBase) Stats() Stats {
	s := Stats{
		TotalFacts:      len(kb.facts),
		TotalRules:      len(kb.rules),
		PredicateCounts: make(map[string]int),
	}
	for _, f := range kb.facts {
		s.PredicateCounts[f.Statement.Predicate]++
		if f.Asserted {
			s.AssertedFacts++
		} else {
			s.DerivedFacts++
		}
	}
	for _, r := range kb.rules {
		if r.Asserted {
			s.AssertedRules++
		} else {
			s.DerivedRules++
		}
	}
	return s
}
