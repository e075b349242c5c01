package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"papereval/internal/analysis"
	"papereval/internal/models"
	"papereval/internal/retrieval"
	"papereval/internal/util"

	"github.com/spf13/cobra"
)

var (
	queryText string
	queryType string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query <url|path>",
	Short: "Find the passages of a paper that answer a question",
	Long: `Query embeds the question, ranks the paper's chunks by cosine similarity and
re-ranks them with the heuristic for the query type. Without -t the type is
inferred from the question wording.

Examples:
  papereval query paper.pdf -q "what statistical tests were used" -t statistics
  papereval query paper.pdf -q "main contribution" -k 3 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "question to resolve (required)")
	queryCmd.Flags().StringVarP(&queryType, "type", "t", "", "query type: research_question, methodology, statistics, results, theory, limitations, significance")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of passages (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	_ = queryCmd.MarkFlagRequired("query")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, cfg, logger, args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	qt := retrieval.ParseQueryType(queryType)
	if queryType == "" {
		qt = retrieval.InferQueryType(queryText)
	}
	ranked, err := s.pipe.Resolver.Resolve(ctx, s.paper.Index, queryText, qt, queryTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	results := passageResults(queryText, retrieval.Hydrate(s.paper.Index, ranked))

	if queryJSON {
		raw, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	}
	printPassages(cmd.OutOrStdout(), queryText, qt, results)
	return nil
}

const snippetRunes = 400

func passageResults(query string, passages []retrieval.Passage) []models.PassageResult {
	out := make([]models.PassageResult, 0, len(passages))
	for _, p := range passages {
		out = append(out, models.PassageResult{
			ChunkID:    p.ChunkID,
			Title:      p.Chunk.Title,
			Snippet:    util.DisplayEvidenceSnippet(p.Chunk.Text, query, snippetRunes),
			Similarity: p.Similarity,
			Score:      p.Score,
			Kind:       string(analysis.ParagraphMetadata(p.Chunk.Text).Type),
		})
	}
	return out
}

func printPassages(w io.Writer, query string, qt retrieval.QueryType, results []models.PassageResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No passages found.")
		return
	}
	fmt.Fprintf(w, "Found %d passages for: %s (%s)\n\n", len(results), query, qt)
	for i, r := range results {
		fmt.Fprintf(w, "--- [%d] %s (score: %.3f, similarity: %.3f, %s) ---\n", i+1, r.Title, r.Score, r.Similarity, r.Kind)
		fmt.Fprintln(w, r.Snippet)
		fmt.Fprintln(w)
	}
}
