package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nvandessel/sweepgen/internal/config"
	"github.com/nvandessel/sweepgen/internal/evaluator"
	"github.com/nvandessel/sweepgen/internal/pathutil"
	"github.com/nvandessel/sweepgen/internal/runner"
	"github.com/nvandessel/sweepgen/internal/sweep"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a parameter sweep and write stitched documents",
		Long: `Sweep one or two model parameters, run an evaluator at every point and
write one stitched JSON document per combination and replica to
<output>/<evaluator>/<evaluator><replica>/<combination>.json.

Flags override the fields of --request, which override the config file.

Examples:
  sweepgen generate -e shannon_entropy --param "leak rate=0.1:0.9:0.1"
  sweepgen generate -e memory_capacity --training --generate-input \
    --param "leak rate=0.1:0.5:0.1" --param "spectral radius=0.5:1.5:0.5" --double
  sweepgen generate --request sweep.yaml --datasets 5 --seed 42`,
		RunE: runGenerate,
	}

	cmd.Flags().String("request", "", "YAML sweep request file")
	cmd.Flags().StringP("evaluator", "e", "", "Evaluator name (see 'sweepgen evaluators')")
	cmd.Flags().StringArray("param", nil, "Swept parameter as name=start:stop:step (repeatable, ordered)")
	cmd.Flags().StringArray("eval-param", nil, "Evaluator parameter as name=value (repeatable, ordered)")
	cmd.Flags().StringArray("bind", nil, "Route a swept name: name=config:<key> or name=param:<name> (repeatable)")
	cmd.Flags().IntP("datasets", "n", 1, "Replicas per combination")
	cmd.Flags().StringP("output", "o", "", "Output directory (default from config)")
	cmd.Flags().Bool("create-output", false, "Create the output directory when it does not exist")
	cmd.Flags().Bool("double", false, "Sweep every unordered pair of parameters")
	cmd.Flags().Bool("training", false, "Build subjects with a trainable readout")
	cmd.Flags().Bool("generate-input", false, "Synthesize a random input sequence for every step")
	cmd.Flags().Bool("keep-build", false, "Keep build directories after stitching")
	cmd.Flags().Uint64("seed", 0, "Base seed; 0 draws random replica seeds")
	cmd.Flags().String("input-policy", "", "per-step or per-replica (default from config)")

	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}
	opts, err := req.Options(cfg)
	if err != nil {
		return err
	}
	if mkdir, _ := cmd.Flags().GetBool("create-output"); mkdir {
		if err := pathutil.EnsureDir(opts.OutputDir); err != nil {
			return err
		}
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	logger := newLogger(cmd, cfg)
	r := runner.New(cfg.Producer(), evaluator.Builtin(), logger, runner.WithTraceLevel(cfg.Logging.Level))
	summary, err := r.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return json.NewEncoder(out).Encode(summary)
	}

	printDivider(out, "sweep "+summary.Evaluator)
	for _, d := range summary.Documents {
		fmt.Fprintf(out, "  %-40s #%d  %5d steps  %8s  %s\n",
			d.Combination, d.Replica, d.Steps, humanize.Bytes(uint64(d.Bytes)), d.Path)
	}
	fmt.Fprintf(out, "\nRun %s: %d documents in %s\n",
		summary.RunID, len(summary.Documents), summary.Finished.Sub(summary.Started).Round(time.Millisecond))
	return nil
}

// requestFromFlags starts from --request when given and applies every flag
// that was set explicitly.
func requestFromFlags(cmd *cobra.Command) (*config.Request, error) {
	req := &config.Request{Datasets: 1}
	if path, _ := cmd.Flags().GetString("request"); path != "" {
		loaded, err := config.LoadRequest(path)
		if err != nil {
			return nil, err
		}
		req = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("evaluator") {
		req.Evaluator, _ = flags.GetString("evaluator")
	}
	if flags.Changed("datasets") {
		req.Datasets, _ = flags.GetInt("datasets")
	}
	if flags.Changed("output") {
		req.Output, _ = flags.GetString("output")
	}
	if flags.Changed("double") {
		req.DoubleSweep, _ = flags.GetBool("double")
	}
	if flags.Changed("training") {
		req.Training, _ = flags.GetBool("training")
	}
	if flags.Changed("generate-input") {
		req.GenerateInput, _ = flags.GetBool("generate-input")
	}
	if flags.Changed("keep-build") {
		keep, _ := flags.GetBool("keep-build")
		req.KeepBuildPath = &keep
	}
	if flags.Changed("seed") {
		seed, _ := flags.GetUint64("seed")
		req.Seed = &seed
	}
	if flags.Changed("input-policy") {
		req.InputPolicy, _ = flags.GetString("input-policy")
	}

	if flags.Changed("param") {
		texts, _ := flags.GetStringArray("param")
		specs := make(sweep.Specs, 0, len(texts))
		for _, text := range texts {
			spec, err := sweep.ParseSpec(text)
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
		}
		req.Parameters = specs
	}
	if flags.Changed("eval-param") {
		texts, _ := flags.GetStringArray("eval-param")
		params := make(evaluator.Params, 0, len(texts))
		for _, text := range texts {
			p, err := evaluator.ParseParam(text)
			if err != nil {
				return nil, err
			}
			params = append(params, p)
		}
		req.EvaluatorParams = params
	}
	if flags.Changed("bind") {
		texts, _ := flags.GetStringArray("bind")
		if req.Bindings == nil {
			req.Bindings = make(map[string]string, len(texts))
		}
		for _, text := range texts {
			name, target, ok := strings.Cut(text, "=")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("binding %q: want name=config:<key> or name=param:<name>", text)
			}
			req.Bindings[strings.TrimSpace(name)] = target
		}
	}
	return req, nil
}
