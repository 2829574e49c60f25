package parser

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"hornkb/internal/kb"
)

// LoadFiles parses the given knowledge files concurrently, then applies
// their directives to kbase serially in argument order (the knowledge base
// is single-threaded). Fact and rule directives are asserted and retract
// directives applied; ask directives are rejected because a knowledge file
// declares state rather than running a script. Returns the number of
// directives applied.
func LoadFiles(ctx context.Context, kbase *kb.KnowledgeBase, paths []string) (int, error) {
	parsed := make([][]Directive, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			ds, err := ParseFile(path)
			if err != nil {
				return err
			}
			parsed[i] = ds
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	applied := 0
	for _, ds := range parsed {
		for _, d := range ds {
			if err := Apply(kbase, d); err != nil {
				return applied, err
			}
			applied++
		}
	}
	return applied, nil
}

// Apply executes one non-query directive against a knowledge base.
func Apply(kbase *kb.KnowledgeBase, d Directive) error {
	switch d.Kind {
	case KindFact:
		if err := kbase.Assert(kb.NewFact(d.Statement)); err != nil {
			return fmt.Errorf("%s:%d: %w", d.File, d.Line, err)
		}
	case KindRule:
		if err := kbase.Assert(kb.NewRule(d.LHS, d.RHS)); err != nil {
			return fmt.Errorf("%s:%d: %w", d.File, d.Line, err)
		}
	case KindRetract:
		kbase.Retract(kb.NewFact(d.Statement))
	case KindAsk:
		return &ParseError{File: d.File, Line: d.Line, Msg: "ask directives are only valid in scripts"}
	}
	return nil
}
