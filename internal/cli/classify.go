package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"papereval/internal/analysis"
	"papereval/internal/classify"

	"github.com/spf13/cobra"
)

var (
	classifyCriteria bool
	classifyJSON     bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <url|path>",
	Short: "Classify the research type of a paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyCriteria, "criteria", false, "also request criteria tailored to the research type")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "output as JSON")
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cfg, logger, args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	c := classify.New(s.pipe.LLM)
	chunks := s.paper.Index.Chunks()
	cls, err := c.Classify(ctx, s.paper.Text, chunks)
	if err != nil {
		logger.Warn("classification failed, using default type", "error", err)
		cls = classify.Fallback("Classification failed: " + err.Error())
		cls.Degraded = true
	}
	out := struct {
		Classification classify.Classification `json:"classification"`
		Criteria       *classify.Criteria      `json:"criteria,omitempty"`
	}{Classification: cls}
	if classifyCriteria {
		crit, err := c.Criteria(ctx, cls.ResearchType, s.paper.Text, chunks, analysis.ComputeStats(s.paper.Text))
		if err != nil {
			return fmt.Errorf("criteria: %w", err)
		}
		out.Criteria = &crit
	}

	w := cmd.OutOrStdout()
	if classifyJSON {
		raw, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(raw))
		return nil
	}
	fmt.Fprintf(w, "Research type: %s (confidence: %s)\n", cls.ResearchType, cls.Confidence)
	fmt.Fprintf(w, "Description:   %s\n", cls.Info.Description)
	if cls.Rationale != "" {
		fmt.Fprintf(w, "Rationale:     %s\n", cls.Rationale)
	}
	if cls.Characteristics != "" {
		fmt.Fprintf(w, "Characteristics:\n%s\n", cls.Characteristics)
	}
	fmt.Fprintf(w, "Evaluation focus: %s\n", strings.Join(cls.Info.EvaluationFocus, ", "))
	if out.Criteria != nil {
		printCriteria(w, "Methodology", out.Criteria.Methodology)
		printCriteria(w, "Robustness", out.Criteria.Robustness)
		printCriteria(w, "Significance", out.Criteria.Significance)
	}
	return nil
}

func printCriteria(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s criteria:\n", title)
	for i, it := range items {
		fmt.Fprintf(w, "%d. %s\n", i+1, it)
	}
}
