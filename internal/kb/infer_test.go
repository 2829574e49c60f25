package kb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hornkb/internal/term"
)

func TestResidualRuleShape(t *testing.T) {
	k := newTestKB(t)
	require.NoError(t, k.Assert(NewFact(stmt("parent", "a", "b"))))
	require.NoError(t, k.Assert(NewRule(
		[]term.Statement{stmt("parent", "?x", "?y"), stmt("parent", "?y", "?z")},
		stmt("grandparent", "?x", "?z"),
	)))

	var residual *Rule
	for _, r := range k.Rules() {
		if !r.Asserted {
			residual = r
			break
		}
	}
	require.NotNil(t, residual)

	// The consumed antecedent is gone; the remainder and the consequent are
	// instantiated under the unifier of the first antecedent.
	require.Len(t, residual.LHS, 1)
	assert.True(t, residual.LHS[0].Equal(stmt("parent", "b", "?z")))
	assert.True(t, residual.RHS.Equal(stmt("grandparent", "a", "?z")))
	require.Len(t, residual.SupportedBy, 1)
	assert.True(t, residual.SupportedBy[0].Fact.Statement.Equal(stmt("parent", "a", "b")))
}

func TestOnlyFirstAntecedentIsConsumed(t *testing.T) {
	k := newTestKB(t)
	// The fact matches the second antecedent but not the first; nothing may
	// be derived from it until a first-antecedent match arrives.
	require.NoError(t, k.Assert(NewFact(stmt("q", "a"))))
	require.NoError(t, k.Assert(NewRule(
		[]term.Statement{stmt("p", "?x"), stmt("q", "?x")},
		stmt("r", "?x"),
	)))
	assert.Len(t, k.Rules(), 1)
	assert.Nil(t, k.lookupFact(stmt("r", "a")))

	// The first-antecedent match triggers the residual, which the earlier
	// fact then completes.
	require.NoError(t, k.Assert(NewFact(stmt("p", "a"))))
	assert.NotNil(t, k.lookupFact(stmt("r", "a")))
}

func TestNonGroundDerivationIsDiscarded(t *testing.T) {
	k := newTestKB(t)
	// The consequent uses a variable the antecedent never binds.
	require.NoError(t, k.Assert(NewRule(
		[]term.Statement{stmt("p", "?x")}, stmt("q", "?x", "?unbound"))))
	require.NoError(t, k.Assert(NewFact(stmt("p", "a"))))

	for _, f := range k.Facts() {
		assert.True(t, f.Statement.Ground(), "non-ground statement stored: %s", f)
	}
	require.NoError(t, k.CheckConsistency())
}

func TestLongDerivationChain(t *testing.T) {
	k := newTestKB(t)
	const depth = 20
	for i := 0; i < depth; i++ {
		require.NoError(t, k.Assert(NewRule(
			[]term.Statement{stmt(fmt.Sprintf("n%d", i), "?x")},
			stmt(fmt.Sprintf("n%d", i+1), "?x"),
		)))
	}
	require.NoError(t, k.Assert(NewFact(stmt("n0", "seed"))))

	assert.NotNil(t, k.lookupFact(stmt(fmt.Sprintf("n%d", depth), "seed")))
	assert.Equal(t, depth+1, k.Stats().TotalFacts)
	require.NoError(t, k.CheckConsistency())

	// Tearing out the seed unwinds the whole chain.
	k.Retract(NewFact(stmt("n0", "seed")))
	assert.Zero(t, k.Stats().TotalFacts)
	require.NoError(t, k.CheckConsistency())
}

func TestDerivationsAreDeterministic(t *testing.T) {
	build := func() []string {
		k := New(DefaultConfig(), nil)
		_ = k.Assert(NewFact(stmt("isa", "cube", "block")))
		_ = k.Assert(NewFact(stmt("isa", "pyramid", "block")))
		_ = k.Assert(NewRule([]term.Statement{stmt("isa", "?x", "block")}, stmt("movable", "?x")))
		_ = k.Assert(NewRule([]term.Statement{stmt("movable", "?x")}, stmt("liftable", "?x")))
		return snapshot(k)
	}
	assert.Equal(t, build(), build())
}
