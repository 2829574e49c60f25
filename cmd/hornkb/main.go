// Command hornkb is the command-line harness around the knowledge base:
// it loads textual knowledge files, runs scripts, answers queries, and
// watches knowledge directories for changes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hornkb/internal/config"
	"hornkb/internal/kb"
	"hornkb/internal/logging"
	"hornkb/internal/parser"
	"hornkb/internal/term"
	"hornkb/internal/watch"
)

var (
	// Global flags
	verbose    bool
	configPath string
	kbFiles    []string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "hornkb",
	Short: "hornkb - forward-chaining knowledge base with truth maintenance",
	Long: `hornkb stores ground facts and Horn rules, derives consequences the
moment knowledge arrives, answers pattern queries, and withdraws everything
that loses its justification when knowledge is retracted.

Knowledge files are line-oriented:

  fact: (isa cube block)
  rule: ((parent ?x ?y) (parent ?y ?z)) -> (grandparent ?x ?z)

Scripts may additionally use ask: and retract: directives.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run <script.kb>...",
	Short: "Execute knowledge scripts (fact/rule/ask/retract directives)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kbase := newKB()
		for _, path := range args {
			directives, err := parser.ParseFile(path)
			if err != nil {
				return err
			}
			for _, d := range directives {
				if err := execute(kbase, d); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <pattern>",
	Short: "Load knowledge files and run one query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kbase, err := loadKB(cmd.Context())
		if err != nil {
			return err
		}
		pattern, err := parser.ParseStatement(args[0])
		if err != nil {
			return err
		}
		answers, err := kbase.Ask(pattern)
		if err != nil {
			return err
		}
		printAnswers(pattern, answers)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Load knowledge files and print knowledge base statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		kbase, err := loadKB(cmd.Context())
		if err != nil {
			return err
		}
		printStats(kbase.Stats())
		return nil
	},
}

var traceCmd = &cobra.Command{
	Use:   "trace <statement>",
	Short: "Load knowledge files and print the justification tree of a fact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kbase, err := loadKB(cmd.Context())
		if err != nil {
			return err
		}
		stmt, err := parser.ParseStatement(args[0])
		if err != nil {
			return err
		}
		trace, ok := kbase.TraceFact(stmt)
		if !ok {
			fmt.Println(errorStyle.Render("no such fact: " + stmt.String()))
			return nil
		}
		fmt.Print(trace.RenderASCII())
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a knowledge directory and reload on change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w, err := watch.New(watch.Config{
			Dir:       args[0],
			Extension: cfg.Watch.Extension,
			Debounce:  cfg.Watch.Debounce,
			Knowledge: knowledgeConfig(),
		}, logger.Named("watch"), func(kbase *kb.KnowledgeBase) {
			printStats(kbase.Stats())
		})
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		w.Stop()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "hornkb.yaml", "Path to config file")

	for _, c := range []*cobra.Command{askCmd, statsCmd, traceCmd} {
		c.Flags().StringSliceVar(&kbFiles, "kb", nil, "Knowledge file to load (repeatable)")
	}

	rootCmd.AddCommand(runCmd, askCmd, statsCmd, traceCmd, watchCmd)
}

func newKB() *kb.KnowledgeBase {
	return kb.New(knowledgeConfig(), logger.Named("kb"))
}

func knowledgeConfig() kb.Config {
	return kb.Config{
		FactLimit: cfg.Knowledge.FactLimit,
		DepthWarn: cfg.Knowledge.DepthWarn,
	}
}

func loadKB(ctx context.Context) (*kb.KnowledgeBase, error) {
	kbase := newKB()
	if _, err := parser.LoadFiles(ctx, kbase, kbFiles); err != nil {
		return nil, err
	}
	return kbase, nil
}

// execute runs one script directive, printing query results as they occur.
func execute(kbase *kb.KnowledgeBase, d parser.Directive) error {
	if d.Kind != parser.KindAsk {
		return parser.Apply(kbase, d)
	}
	answers, err := kbase.Ask(d.Statement)
	if err != nil {
		return fmt.Errorf("%s:%d: %w", d.File, d.Line, err)
	}
	printAnswers(d.Statement, answers)
	return nil
}

func printAnswers(pattern term.Statement, answers kb.ListOfBindings) {
	fmt.Println(titleStyle.Render("? " + pattern.String()))
	if len(answers) == 0 {
		fmt.Println(emptyStyle.Render("  no matches"))
		return
	}
	for _, a := range answers {
		line := "  " + a.Bindings.String()
		if len(a.Facts) > 0 {
			line += dimStyle.Render("  via " + a.Facts[0].String())
		}
		fmt.Println(answerStyle.Render(line))
	}
}

func printStats(s kb.Stats) {
	fmt.Println(titleStyle.Render("knowledge base"))
	fmt.Printf("  facts: %d (%d asserted, %d derived)\n", s.TotalFacts, s.AssertedFacts, s.DerivedFacts)
	fmt.Printf("  rules: %d (%d asserted, %d derived)\n", s.TotalRules, s.AssertedRules, s.DerivedRules)
	for pred, n := range s.PredicateCounts {
		fmt.Println(dimStyle.Render(fmt.Sprintf("    %s: %d", pred, n)))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
		os.Exit(1)
	}
}
