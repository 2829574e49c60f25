package kb

import "errors"

// The only error kinds the knowledge base surfaces. Retracting an absent
// item is a silent no-op rather than an error.
var (
	// ErrInvalidAsk reports a query pattern that is not fact-shaped: a
	// single statement whose predicate is a constant.
	ErrInvalidAsk = errors.New("ask pattern is not fact-shaped")

	// ErrNonGroundFact reports an ingested fact containing variables.
	ErrNonGroundFact = errors.New("fact statement contains variables")

	// ErrEmptyRule reports a rule with an empty antecedent.
	ErrEmptyRule = errors.New("rule has an empty antecedent")
)
