package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"papereval/internal/evaluation"
	"papereval/internal/retrieval"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp <url|path>",
	Short: "Serve a paper's index as MCP tools over stdio",
	Long: `Mcp builds the paper's index once and serves it to an MCP client on
stdin/stdout. Tools: query_paper returns ranked passages for a question,
evaluate_paper runs an evaluation and returns the markdown report.`,
	Args: cobra.ExactArgs(1),
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout belongs to the protocol; progress goes to stderr.
	s, err := openSession(cmd.Context(), cfg, logger, args[0], cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()
	logger.Info("serving paper over mcp stdio", "paper_id", s.paper.ID, "chunks", s.paper.Index.Len())
	return server.ServeStdio(newMCPServer(s))
}

func newMCPServer(s *session) *server.MCPServer {
	srv := server.NewMCPServer("papereval", "0.1.0", server.WithToolCapabilities(false))

	query := mcp.NewTool("query_paper",
		mcp.WithDescription("Find the passages of the loaded paper that best answer a question"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Question or search text"),
		),
		mcp.WithString("query_type",
			mcp.Description("research_question, methodology, statistics, results, theory, limitations or significance; inferred when empty"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of passages to return"),
		),
	)
	srv.AddTool(query, queryPaperHandler(s))

	evaluate := mcp.NewTool("evaluate_paper",
		mcp.WithDescription("Evaluate the loaded paper and return the markdown report"),
		mcp.WithString("evaluation",
			mcp.Description("methodology, robustness, significance or comprehensive"),
		),
	)
	srv.AddTool(evaluate, evaluatePaperHandler(s))
	return srv
}

func queryPaperHandler(s *session) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		qt := retrieval.ParseQueryType(request.GetString("query_type", ""))
		if qt == "" {
			qt = retrieval.InferQueryType(q)
		}
		ranked, err := s.pipe.Resolver.Resolve(ctx, s.paper.Index, q, qt, request.GetInt("top_k", 0))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var response string
		for _, r := range passageResults(q, retrieval.Hydrate(s.paper.Index, ranked)) {
			raw, err := json.Marshal(r)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			response += fmt.Sprintf("%s\n", string(raw))
		}
		return mcp.NewToolResultText(response), nil
	}
}

func evaluatePaperHandler(s *session) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, err := evaluation.ParseKind(request.GetString("evaluation", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rep, err := s.pipe.Evaluator.Evaluate(ctx, s.paper, kind)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(rep.Markdown()), nil
	}
}
