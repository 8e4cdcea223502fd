package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/kwscore/internal/agreement"
	"github.com/ogulcanaydogan/kwscore/internal/config"
	"github.com/ogulcanaydogan/kwscore/internal/hash"
	policyrego "github.com/ogulcanaydogan/kwscore/internal/policy/rego"
	policyyaml "github.com/ogulcanaydogan/kwscore/internal/policy/yaml"
	"github.com/ogulcanaydogan/kwscore/internal/records"
	"github.com/ogulcanaydogan/kwscore/internal/report"
	"github.com/ogulcanaydogan/kwscore/internal/scoring"
	"github.com/ogulcanaydogan/kwscore/internal/store"
	"github.com/ogulcanaydogan/kwscore/pkg/types"
)

const (
	exitScoreFail  = 12
	exitPolicyFail = 13
)

type cliError struct {
	code int
	err  error
}

func (e cliError) Error() string { return e.err.Error() }

func main() {
	root := newRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		var ce cliError
		if errors.As(err, &ce) {
			fmt.Fprintln(os.Stderr, ce.err)
			os.Exit(ce.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	loadSettings   = config.LoadSettings
	ociPullFunc    = store.PullOCI
	ociPublishFunc = store.PublishOCI
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kwscore",
		Short:         "Score LLM judge results for the keyword classification pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			env, err := loadSettings(cmd.Context())
			if err != nil {
				return err
			}
			var level slog.Level
			if err := level.UnmarshalText([]byte(env.LogLevel)); err != nil {
				return fmt.Errorf("log level %q: %w", env.LogLevel, err)
			}
			logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			cmd.SetContext(clog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}
	root.AddCommand(newInitCommand())
	root.AddCommand(newScoreCommand())
	root.AddCommand(newMultiClassCommand())
	root.AddCommand(newPollCommand())
	root.AddCommand(newAgreementCommand())
	root.AddCommand(newKappaCommand())
	root.AddCommand(newReportCommand())
	root.AddCommand(newGateCommand())
	root.AddCommand(newHistoryCommand())
	root.AddCommand(newPublishCommand())
	root.AddCommand(newServeCommand())
	return root
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter kwscore.yaml, gate policy and local run archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(store.DefaultArchiveDir, 0o755); err != nil {
				return fmt.Errorf("create local store: %w", err)
			}
			if !hash.FileExists(config.DefaultConfigPath) {
				if err := os.WriteFile(config.DefaultConfigPath, []byte(defaultConfigYAML), 0o644); err != nil {
					return err
				}
			}
			if !hash.FileExists("policy/examples/gates.yaml") {
				if err := os.MkdirAll("policy/examples", 0o755); err != nil {
					return err
				}
				if err := os.WriteFile("policy/examples/gates.yaml", []byte(defaultPolicyYAML), 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "initialized kwscore config, gate policy, and local run archive")
			return nil
		},
	}
}

// project bundles what most commands resolve before doing work.
type project struct {
	env   config.Settings
	cfg   config.ProjectConfig
	table config.Table
}

func loadProject(ctx context.Context, cfgPath string) (project, error) {
	env, err := loadSettings(ctx)
	if err != nil {
		return project{}, err
	}
	if cfgPath == "" {
		cfgPath = env.ConfigPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return project{}, err
	}
	table, err := cfg.Table()
	if err != nil {
		return project{}, fmt.Errorf("module table: %w", err)
	}
	return project{env: env, cfg: cfg, table: table}, nil
}

func (p project) records() records.Options {
	return records.Options{
		S3: records.S3Options{
			Endpoint:  p.env.S3.Endpoint,
			Region:    p.env.S3.Region,
			AccessKey: p.env.S3.AccessKey,
			SecretKey: p.env.S3.SecretKey,
		},
		EntrySchema: p.cfg.EntrySchema,
	}
}

func (p project) historyPath() string {
	if p.env.HistoryDB != "" {
		return p.env.HistoryDB
	}
	return p.cfg.HistoryPath
}

func (p project) concurrency(flag int) int {
	if flag > 0 {
		return flag
	}
	return p.env.Concurrency
}

// jobs resolves what to score: explicit locations for one module, or the
// discovered result files under the results directory.
func (p project) jobs(module string, locations []string) ([]scoring.Job, error) {
	if len(locations) > 0 {
		if module == "" {
			module = config.ModuleFromFilename(locations[0])
		}
		if module == "" {
			return nil, fmt.Errorf("--module is required when it cannot be inferred from %s", locations[0])
		}
		return []scoring.Job{{Module: config.NormalizeModuleID(module), Locations: locations}}, nil
	}
	found, err := config.Discover(p.cfg.ResultsDir, p.cfg.PathRules)
	if err != nil {
		return nil, err
	}
	jobs := scoring.JobsFromDiscovery(found)
	if module != "" {
		want := config.NormalizeModuleID(module)
		filtered := jobs[:0]
		for _, j := range jobs {
			if j.Module == want {
				filtered = append(filtered, j)
			}
		}
		jobs = filtered
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no result files found under %s", p.cfg.ResultsDir)
	}
	return jobs, nil
}

type outputs struct {
	json, markdown, js, prom string
}

func (o outputs) write(s types.Summary) ([]string, error) {
	var written []string
	steps := []struct {
		path  string
		write func(string) error
	}{
		{o.json, func(p string) error { return report.WriteJSON(p, s) }},
		{o.markdown, func(p string) error { return report.WriteMarkdown(p, s) }},
		{o.js, func(p string) error { return report.WriteJS(p, "MODULES_DATA", s.Results) }},
		{o.prom, func(p string) error { return report.WritePrometheus(p, s) }},
	}
	for _, step := range steps {
		if step.path == "" {
			continue
		}
		if err := step.write(step.path); err != nil {
			return written, fmt.Errorf("write %s: %w", step.path, err)
		}
		written = append(written, step.path)
	}
	return written, nil
}

func newScoreCommand() *cobra.Command {
	var module, cfgPath, format string
	var out outputs
	var record, archive bool
	var determinismCheck, concurrency int
	cmd := &cobra.Command{
		Use:   "score [locations...]",
		Short: "Score judge results per module",
		Long: "Score judge results per module. With locations, they are scored as one module " +
			"(--module or inferred from the first file name); without, result files are discovered " +
			"under the configured results directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := loadProject(ctx, cfgPath)
			if err != nil {
				return err
			}
			jobs, err := p.jobs(module, args)
			if err != nil {
				return err
			}
			summary := scoring.ScoreAll(ctx, jobs, scoring.AllOptions{
				Table:            p.table,
				Records:          p.records(),
				Concurrency:      p.concurrency(concurrency),
				DeterminismCheck: determinismCheck,
			})
			written, err := out.write(summary)
			if err != nil {
				return err
			}
			if err := printSummary(cmd.OutOrStdout(), format, summary); err != nil {
				return err
			}
			if record {
				if err := recordHistory(ctx, p.historyPath(), summary); err != nil {
					return err
				}
			}
			if archive && len(written) > 0 {
				if _, err := store.Archive(store.DefaultArchiveDir, summary.RunID, written...); err != nil {
					return err
				}
			}
			if summary.Failures > 0 {
				return cliError{code: exitScoreFail, err: fmt.Errorf("%d module run(s) failed to score", summary.Failures)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "module id (m02, m12b, ...)")
	cmd.Flags().StringVar(&cfgPath, "config", "", "project config path (default $KWSCORE_CONFIG or kwscore.yaml)")
	cmd.Flags().StringVar(&format, "format", "table", "stdout format (table|json|md)")
	cmd.Flags().StringVar(&out.json, "out", "", "summary JSON output path")
	cmd.Flags().StringVar(&out.markdown, "md", "", "markdown report output path")
	cmd.Flags().StringVar(&out.js, "js", "", "dashboard JS data output path")
	cmd.Flags().StringVar(&out.prom, "prom", "", "Prometheus textfile output path")
	cmd.Flags().BoolVar(&record, "record", false, "record results in the run history")
	cmd.Flags().BoolVar(&archive, "archive", false, "copy written outputs to "+store.DefaultArchiveDir)
	cmd.Flags().IntVar(&determinismCheck, "determinism-check", 1, "score each module multiple times and compare hashes")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "modules scored in parallel (default $KWSCORE_CONCURRENCY)")
	return cmd
}

func printSummary(w io.Writer, format string, s types.Summary) error {
	switch format {
	case "table":
		return report.RenderTable(w, s)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "md":
		_, err := io.WriteString(w, report.BuildMarkdown(s))
		return err
	default:
		return fmt.Errorf("unsupported format %s", format)
	}
}

func recordHistory(ctx context.Context, path string, s types.Summary) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create history dir: %w", err)
		}
	}
	h, err := store.OpenHistory(path)
	if err != nil {
		return err
	}
	defer h.Close()
	n, err := h.Record(ctx, store.RunEntriesFromSummary(s))
	if err != nil {
		return err
	}
	clog.FromContext(ctx).Infof("recorded %d run(s) in %s", n, path)
	return nil
}

func newMultiClassCommand() *cobra.Command {
	var module, cfgPath, outPath string
	var determinismCheck int
	cmd := &cobra.Command{
		Use:   "multiclass [locations...]",
		Short: "Score a multi-class module and print its confusion grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if module == "" {
				return fmt.Errorf("--module is required")
			}
			p, err := loadProject(ctx, cfgPath)
			if err != nil {
				return err
			}
			cfg, err := p.table.Lookup(module)
			if err != nil {
				return err
			}
			if cfg.Mode != types.ModeMultiClass {
				return fmt.Errorf("module %s is scored as %s, not multiclass", cfg.ID, cfg.Mode)
			}
			jobs, err := p.jobs(cfg.ID, args)
			if err != nil {
				return err
			}
			r, err := scoring.ScoreModule(ctx, scoring.Options{
				Module:           cfg.ID,
				Locations:        jobs[0].Locations,
				Table:            p.table,
				Records:          p.records(),
				DeterminismCheck: determinismCheck,
			})
			if err != nil {
				return err
			}
			if r.MultiClass == nil {
				return fmt.Errorf("module %s produced no multi-class metrics", cfg.ID)
			}
			if outPath != "" {
				if err := report.WriteJSON(outPath, r); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if err := report.RenderConfusionGrid(w, *r.MultiClass); err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%s: %d scored, %d excluded, macro F1 %.1f\n", r.Key, r.MultiClass.Total, r.MultiClass.Excluded, r.MultiClass.MacroF1)
			return nil
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "multi-class module id")
	cmd.Flags().StringVar(&cfgPath, "config", "", "project config path")
	cmd.Flags().StringVar(&outPath, "out", "", "result JSON output path")
	cmd.Flags().IntVar(&determinismCheck, "determinism-check", 1, "score multiple times and compare hashes")
	return cmd
}

func newPollCommand() *cobra.Command {
	var rubricID, cfgPath, outPath string
	var judgeFlags []string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Aggregate several judges by majority vote (panel of LLM evaluators)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			judges, err := parseJudges(judgeFlags)
			if err != nil {
				return err
			}
			p, err := loadProject(ctx, cfgPath)
			if err != nil {
				return err
			}
			res, err := scoring.ScorePanel(ctx, rubricID, judges, scoring.AllOptions{
				Records:     p.records(),
				Concurrency: p.concurrency(concurrency),
			})
			if err != nil {
				return err
			}
			if outPath != "" {
				if err := report.WriteJSON(outPath, res); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if err := report.RenderPanelTable(w, res); err != nil {
				return err
			}
			s := res.Summary
			fmt.Fprintf(w, "\n%d evaluations, %d unanimous (%.1f%%), %d split, %d need review, %d errors\n",
				s.TotalEvaluations, s.UnanimousCount, s.UnanimousRate*100, s.SplitDecisions, s.NeedsReview, s.Errors)
			return nil
		},
	}
	cmd.Flags().StringVar(&rubricID, "rubric", "", "rubric id to aggregate (default every rubric)")
	cmd.Flags().StringArrayVar(&judgeFlags, "judge", nil, "judge as name=location[,location] (repeatable)")
	cmd.Flags().StringVar(&cfgPath, "config", "", "project config path")
	cmd.Flags().StringVar(&outPath, "out", "", "panel JSON output path")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "judges loaded in parallel")
	return cmd
}

func parseJudges(raw []string) (map[string][]string, error) {
	out := make(map[string][]string, len(raw))
	for _, r := range raw {
		name, locs, ok := strings.Cut(r, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --judge %q, want name=location[,location]", r)
		}
		locations := splitCSV(locs)
		if len(locations) == 0 {
			return nil, fmt.Errorf("judge %s has no locations", name)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("judge %s given twice", name)
		}
		out[name] = locations
	}
	return out, nil
}

func newAgreementCommand() *cobra.Command {
	var humanPath, llmPath, outPath, mdPath string
	var tolerance float64
	var strict bool
	cmd := &cobra.Command{
		Use:   "agreement",
		Short: "Compare LLM judge scores with human labels",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if humanPath == "" || llmPath == "" {
				return fmt.Errorf("--human and --llm are required")
			}
			human, skippedHuman, err := agreement.LoadHumanLabels(ctx, humanPath)
			if err != nil {
				return err
			}
			llm, skippedLLM, err := agreement.LoadLLMScores(ctx, llmPath)
			if err != nil {
				return err
			}
			if skippedHuman+skippedLLM > 0 {
				clog.FromContext(ctx).Warnf("skipped %d human and %d llm rows", skippedHuman, skippedLLM)
			}
			r, scoreErr := agreement.Score(human, llm, tolerance)
			if outPath != "" {
				if err := report.WriteJSON(outPath, r); err != nil {
					return err
				}
			}
			if mdPath != "" {
				if err := os.WriteFile(mdPath, []byte(report.BuildAgreementMarkdown(r)), 0o644); err != nil {
					return err
				}
			}
			if scoreErr != nil {
				return scoreErr
			}
			w := cmd.OutOrStdout()
			if err := report.RenderAgreementTable(w, r); err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%d samples, verdict %s\n", r.TotalSamples, r.Verdict)
			if strict && r.Verdict == types.NotCalibrated {
				return cliError{code: exitPolicyFail, err: fmt.Errorf("judge is not calibrated against human labels")}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&humanPath, "human", "", "human labels CSV")
	cmd.Flags().StringVar(&llmPath, "llm", "", "LLM judge results JSON")
	cmd.Flags().Float64Var(&tolerance, "tolerance", agreement.DefaultTolerance, "allowed score difference for within-tolerance agreement")
	cmd.Flags().StringVar(&outPath, "out", "", "agreement JSON output path")
	cmd.Flags().StringVar(&mdPath, "md", "", "agreement markdown output path")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the judge is not calibrated")
	return cmd
}

func newKappaCommand() *cobra.Command {
	var module, cfgPath, outPath, mdPath string
	var against []string
	var weighted bool
	cmd := &cobra.Command{
		Use:   "kappa [locations...]",
		Short: "Cohen's kappa of a run against ground truth, or between two runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := loadProject(ctx, cfgPath)
			if err != nil {
				return err
			}
			jobs, err := p.jobs(module, args)
			if err != nil {
				return err
			}
			if len(jobs) != 1 {
				return fmt.Errorf("kappa compares one module at a time; set --module")
			}
			cfg, err := p.table.Lookup(jobs[0].Module)
			if err != nil {
				return err
			}
			corpus, err := records.Load(ctx, jobs[0].Locations, p.records())
			if err != nil {
				return err
			}

			title := "Model vs Ground Truth"
			a, b := agreement.TruthLabels(corpus.Records, cfg.ExpectedFields, cfg.OutputFields)
			if len(against) > 0 {
				other, err := records.Load(ctx, against, p.records())
				if err != nil {
					return err
				}
				title = "Model A vs Model B"
				a, b = agreement.ModelLabels(corpus.Records, other.Records, cfg.OutputFields)
			}
			compute := agreement.Kappa
			if weighted {
				compute = agreement.WeightedKappa
			}
			r, err := compute(a, b)
			if err != nil {
				return fmt.Errorf("%s: %w", cfg.ID, err)
			}

			if outPath != "" {
				if err := report.WriteJSON(outPath, r); err != nil {
					return err
				}
			}
			if mdPath != "" {
				if err := os.WriteFile(mdPath, []byte(report.BuildKappaMarkdown(title, r)), 0o644); err != nil {
					return err
				}
			}
			w := cmd.OutOrStdout()
			if err := report.RenderKappaTable(w, r); err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%s (%s): kappa %.4f %s, observed %.4f, expected %.4f, %d samples\n",
				title, cfg.ID, r.Kappa, r.Interpretation, r.ObservedAgreement, r.ExpectedAgreement, r.Samples)
			return nil
		},
	}
	cmd.Flags().StringVar(&module, "module", "", "module id (inferred from the first location when omitted)")
	cmd.Flags().StringArrayVar(&against, "against", nil, "second run to compare with instead of ground truth (repeatable)")
	cmd.Flags().BoolVar(&weighted, "weighted", false, "use quadratic weights for ordinal labels")
	cmd.Flags().StringVar(&cfgPath, "config", "", "project config path")
	cmd.Flags().StringVar(&outPath, "out", "", "kappa JSON output path")
	cmd.Flags().StringVar(&mdPath, "md", "", "kappa markdown output path")
	return cmd
}

func newReportCommand() *cobra.Command {
	var inPath, format, outPath string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a summary JSON as markdown, dashboard JS or Prometheus textfile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if inPath == "" || outPath == "" {
				return fmt.Errorf("--in and --out are required")
			}
			s, err := readSummary(inPath)
			if err != nil {
				return err
			}
			switch format {
			case "md":
				err = report.WriteMarkdown(outPath, s)
			case "js":
				err = report.WriteJS(outPath, "MODULES_DATA", s.Results)
			case "prom":
				err = report.WritePrometheus(outPath, s)
			default:
				return fmt.Errorf("unsupported format %s", format)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "summary JSON input")
	cmd.Flags().StringVar(&format, "format", "md", "output format (md|js|prom)")
	cmd.Flags().StringVar(&outPath, "out", "", "output path")
	return cmd
}

func readSummary(path string) (types.Summary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.Summary{}, err
	}
	var s types.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		return types.Summary{}, fmt.Errorf("decode summary %s: %w", path, err)
	}
	return s, nil
}

func newGateCommand() *cobra.Command {
	var policyPath, cfgPath, summaryPath, sourceType, engine, regoPolicyPath string
	cmd := &cobra.Command{
		Use:   "gate",
		Short: "Check a summary against metric gates and return non-zero on violations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if policyPath == "" {
				p, err := loadProject(ctx, cfgPath)
				if err != nil {
					return err
				}
				policyPath = p.cfg.GatePolicy
			}
			if policyPath == "" {
				return fmt.Errorf("--policy is required")
			}
			if summaryPath == "" {
				return fmt.Errorf("--summary is required")
			}
			var s types.Summary
			switch sourceType {
			case "local":
				var err error
				if s, err = readSummary(summaryPath); err != nil {
					return err
				}
			case "oci":
				tmpDir, err := os.MkdirTemp("", "kwscore-oci-gate-")
				if err != nil {
					return err
				}
				defer os.RemoveAll(tmpDir)
				if s, err = ociPullFunc(ctx, summaryPath, filepath.Join(tmpDir, "summary.json")); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported source %s", sourceType)
			}
			policy, err := policyyaml.LoadPolicy(policyPath)
			if err != nil {
				return err
			}

			violations := []string{}
			switch engine {
			case "yaml":
				violations = policyyaml.Evaluate(policy, s)
			case "rego":
				result, err := policyrego.Evaluate(ctx, regoPolicyPath, policyrego.BuildInput(policy, s))
				if err != nil {
					return err
				}
				if !result.Allow {
					violations = append(violations, result.Violations...)
					if len(violations) == 0 {
						violations = append(violations, "rego policy denied the summary")
					}
				}
			default:
				return fmt.Errorf("unsupported policy engine %s", engine)
			}
			w := cmd.OutOrStdout()
			if len(violations) > 0 {
				for _, v := range violations {
					fmt.Fprintln(w, v)
				}
				return cliError{code: exitPolicyFail, err: fmt.Errorf("metric gate failed")}
			}
			fmt.Fprintln(w, "metric gate passed")
			return nil
		},
	}
	cmd.Flags().StringVar(&policyPath, "policy", "", "gate policy YAML path (default the project gate_policy)")
	cmd.Flags().StringVar(&cfgPath, "config", "", "project config path")
	cmd.Flags().StringVar(&summaryPath, "summary", "", "summary JSON path, or OCI reference with --source oci")
	cmd.Flags().StringVar(&sourceType, "source", "local", "summary source type (local|oci)")
	cmd.Flags().StringVar(&engine, "engine", "yaml", "policy engine (yaml|rego)")
	cmd.Flags().StringVar(&regoPolicyPath, "rego-policy", "policy/examples/gates.rego", "rego policy path (used with --engine rego)")
	return cmd
}

func newHistoryCommand() *cobra.Command {
	var cfgPath, dbPath string
	historyCmd := &cobra.Command{Use: "history", Short: "Inspect and update the run history"}
	historyCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "project config path")
	historyCmd.PersistentFlags().StringVar(&dbPath, "db", "", "history database (default $KWSCORE_HISTORY_DB or the project history_path)")

	open := func(ctx context.Context) (*store.History, error) {
		path := dbPath
		if path == "" {
			p, err := loadProject(ctx, cfgPath)
			if err != nil {
				return nil, err
			}
			path = p.historyPath()
		}
		if !hash.FileExists(path) {
			return nil, fmt.Errorf("no run history at %s", path)
		}
		return store.OpenHistory(path)
	}

	var module, format string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()
			runs, err := h.Runs(cmd.Context(), module)
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), format, runs)
		},
	}
	listCmd.Flags().StringVar(&module, "module", "", "only runs of this module")
	listCmd.Flags().StringVar(&format, "format", "table", "output format (table|json)")

	var bestFormat string
	bestCmd := &cobra.Command{
		Use:   "best",
		Short: "Show the best run per module, prompt version, model and dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer h.Close()
			runs, err := h.Best(cmd.Context())
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), bestFormat, runs)
		},
	}
	bestCmd.Flags().StringVar(&bestFormat, "format", "table", "output format (table|json)")

	var inPath string
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Record a summary JSON in the run history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if inPath == "" {
				return fmt.Errorf("--in is required")
			}
			s, err := readSummary(inPath)
			if err != nil {
				return err
			}
			path := dbPath
			if path == "" {
				p, err := loadProject(cmd.Context(), cfgPath)
				if err != nil {
					return err
				}
				path = p.historyPath()
			}
			return recordHistory(cmd.Context(), path, s)
		},
	}
	recordCmd.Flags().StringVar(&inPath, "in", "", "summary JSON input")

	historyCmd.AddCommand(listCmd, bestCmd, recordCmd)
	return historyCmd
}

func printRuns(w io.Writer, format string, runs []store.RunEntry) error {
	switch format {
	case "json":
		if runs == nil {
			runs = []store.RunEntry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	case "table":
		return report.RenderRuns(w, runs)
	default:
		return fmt.Errorf("unsupported format %s", format)
	}
}

func newPublishCommand() *cobra.Command {
	var inPath, ociRef string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a summary JSON to an OCI registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if inPath == "" || ociRef == "" {
				return fmt.Errorf("--in and --oci are required")
			}
			pinned, err := ociPublishFunc(cmd.Context(), inPath, ociRef)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pinned)
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "summary JSON path")
	cmd.Flags().StringVar(&ociRef, "oci", "", "OCI destination")
	return cmd
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

const defaultConfigYAML = `results_dir: results
history_path: .kwscore/history.db
gate_policy: policy/examples/gates.yaml
path_rules:
  m02:
    - results/m02_*
    - results/M02_*
  m04:
    - results/m04_*
    - results/M04_*
  m12b:
    - results/m12b_*
# modules:
#   - id: m13
#     skip_missing_expected: true
`

const defaultPolicyYAML = `version: "1"
gates:
  - id: G001
    modules: ["m02", "m04", "m05", "m12", "m13", "m14", "m15", "m16"]
    metric: f1
    min: 70
    message: Binary classifier F1 regressed below 70.
  - id: G002
    modules: ["m12b"]
    metric: macro_f1
    min: 60
  - id: G003
    modules: ["m0[6-9]", "m1[01]"]
    metric: pass_rate
    min: 80
`
