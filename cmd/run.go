package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-messaging/internal/pipeline"
	anthropicpkg "github.com/sells-group/prospect-messaging/pkg/anthropic"
	"github.com/sells-group/prospect-messaging/pkg/brightdata"
)

const dryRunLimit = 5

var (
	runInput       string
	runOutput      string
	runConcurrency int64
	runModel       string
	runLimit       int
	runDryRun      bool
	runReprocess   bool
	runOffline     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the messaging pipeline over a prospect list",
	Long:  "Reads a CSV or XLSX prospect list, gathers LinkedIn and website context, synthesizes briefs and messaging, and writes the enriched CSV plus a companion errors file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Flag overrides land in config before anything is built from it.
		if runConcurrency > 0 {
			cfg.Pipeline.MaxConcurrentProspects = runConcurrency
		}
		if runModel != "" {
			cfg.Anthropic.BriefModel = runModel
			cfg.Anthropic.MessagingModel = runModel
		}

		if !runOffline {
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		prospects, err := pipeline.ReadProspects(runInput)
		if err != nil {
			return err
		}
		if runDryRun && len(prospects) > dryRunLimit {
			prospects = prospects[:dryRunLimit]
			zap.L().Info("dry run: truncated input", zap.Int("prospects", len(prospects)))
		}
		if runLimit > 0 && len(prospects) > runLimit {
			prospects = prospects[:runLimit]
		}
		if len(prospects) == 0 {
			return eris.Errorf("run: no prospects in %s", runInput)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		var aiClient anthropicpkg.Client
		var bdClient brightdata.Client
		if runOffline {
			aiClient = &pipeline.StubAnthropicClient{}
			bdClient = &pipeline.StubBrightDataClient{}
		} else {
			aiClient = anthropicpkg.NewClient(cfg.Anthropic.Key)
			bdClient = brightdata.NewClient(cfg.BrightData.Key, cfg.BrightData.DatasetID,
				brightdata.WithBaseURL(cfg.BrightData.BaseURL))
		}

		p := pipeline.New(cfg, st, aiClient, bdClient, pipeline.WithReprocess(runReprocess))

		result, err := p.Run(ctx, runInput, prospects)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		if err := pipeline.WriteOutput(runOutput, result.Successes); err != nil {
			return err
		}
		errPath, err := pipeline.WriteErrors(runOutput, result.Failures)
		if err != nil {
			return err
		}

		zap.L().Info("run complete",
			zap.String("output", runOutput),
			zap.Int("succeeded", len(result.Successes)),
			zap.Int("failed", len(result.Failures)),
			zap.Int64("input_tokens", result.Usage.InputTokens),
			zap.Int64("output_tokens", result.Usage.OutputTokens),
		)

		fmt.Fprintf(os.Stderr, "Wrote %d prospects to %s\n", len(result.Successes), runOutput)
		if errPath != "" {
			fmt.Fprintf(os.Stderr, "Wrote %d failures to %s\n", len(result.Failures), errPath)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "input prospect list, .csv or .xlsx (required)")
	runCmd.Flags().StringVar(&runOutput, "output", "prospects_out.csv", "output CSV path")
	runCmd.Flags().Int64Var(&runConcurrency, "concurrency", 0, "max concurrent prospects (0 = config default)")
	runCmd.Flags().StringVar(&runModel, "model", "", "override both synthesis models")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "process at most N prospects (0 = all)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, fmt.Sprintf("process only the first %d prospects", dryRunLimit))
	runCmd.Flags().BoolVar(&runReprocess, "reprocess", false, "re-run synthesis stages even for cached prospects")
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "use stub clients instead of live APIs")
	_ = runCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(runCmd)
}
