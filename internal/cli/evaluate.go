package cli

import (
	"encoding/json"
	"fmt"

	"papereval/internal/evaluation"
	"papereval/internal/util"

	"github.com/spf13/cobra"
)

var (
	evalKind   string
	evalOutput string
	evalJSON   bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <url|path>",
	Short: "Evaluate a paper and print the report",
	Long: `Evaluate fetches the paper, builds its index and answers the question set
of the chosen evaluation (methodology, robustness, significance or
comprehensive, the default).

Examples:
  papereval evaluate paper.pdf
  papereval evaluate https://example.org/paper.pdf -e robustness -o report.md`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVarP(&evalKind, "evaluation", "e", "comprehensive", "methodology, robustness, significance or comprehensive")
	evaluateCmd.Flags().StringVarP(&evalOutput, "output", "o", "", "also write the report to this file")
	evaluateCmd.Flags().BoolVar(&evalJSON, "json", false, "print the report as JSON")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	kind, err := evaluation.ParseKind(evalKind)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	s, err := openSession(ctx, cfg, logger, args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	rep, err := s.pipe.Evaluator.Evaluate(ctx, s.paper, kind)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	out := rep.Markdown()
	if evalJSON {
		raw, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		out = string(raw) + "\n"
	}
	fmt.Fprint(cmd.OutOrStdout(), out)

	if evalOutput != "" {
		if evalJSON {
			err = util.WriteJSONAtomic(evalOutput, rep)
		} else {
			err = util.WriteTextAtomic(evalOutput, rep.Markdown())
		}
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", evalOutput)
	}
	return nil
}
