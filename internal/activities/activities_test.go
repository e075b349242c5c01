package activities

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"papereval/internal/config"
	"papereval/internal/evaluation"
	"papereval/internal/paper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

func newTestActivities(t *testing.T) *Activities {
	t.Helper()
	dir := t.TempDir()
	return &Activities{
		cfg: config.Config{
			DataInRoot:   filepath.Join(dir, "in"),
			DataOutRoot:  filepath.Join(dir, "out"),
			ChunkSize:    200,
			ChunkOverlap: 40,
		},
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		fetcher: paper.NewFetcher(filepath.Join(dir, "in", "papers"), time.Second),
	}
}

func TestFetchAndExtractLocalPaper(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	a := newTestActivities(t)
	env.RegisterActivity(a.FetchPaperActivity)
	env.RegisterActivity(a.ExtractTextActivity)

	src := filepath.Join(t.TempDir(), "paper.txt")
	require.NoError(t, os.WriteFile(src, []byte("A Study of Things\nJane Doe\n\nWe measure things carefully."), 0o644))

	val, err := env.ExecuteActivity(a.FetchPaperActivity, FetchPaperInput{URL: src})
	require.NoError(t, err)
	var fetched FetchPaperOutput
	require.NoError(t, val.Get(&fetched))
	assert.Len(t, fetched.PaperID, 64)
	assert.True(t, strings.HasSuffix(fetched.Path, fetched.PaperID+".txt"))

	val, err = env.ExecuteActivity(a.ExtractTextActivity, ExtractTextInput{PaperPath: fetched.Path})
	require.NoError(t, err)
	var extracted ExtractTextOutput
	require.NoError(t, val.Get(&extracted))
	assert.Contains(t, extracted.Text, "We measure things carefully.")
}

func TestExtractTextWithoutTextIsNonRetryable(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	a := newTestActivities(t)
	env.RegisterActivity(a.ExtractTextActivity)

	path := filepath.Join(t.TempDir(), "blank.txt")
	require.NoError(t, os.WriteFile(path, []byte(" \n\n \n"), 0o644))

	_, err := env.ExecuteActivity(a.ExtractTextActivity, ExtractTextInput{PaperPath: path})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "NoExtractableText", appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestChunkTextUsesConfigDefaults(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	a := newTestActivities(t)
	env.RegisterActivity(a.ChunkTextActivity)

	text := strings.Repeat("The sample was drawn at random. ", 30)
	val, err := env.ExecuteActivity(a.ChunkTextActivity, ChunkTextInput{PaperID: "p1", Text: text, ChunkOverlap: -1})
	require.NoError(t, err)
	var out ChunkTextOutput
	require.NoError(t, val.Get(&out))
	require.Greater(t, len(out.Chunks), 1)
	for i, c := range out.Chunks {
		assert.Equal(t, i, c.ID)
		assert.LessOrEqual(t, c.End-c.Start, 200)
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
	}
	assert.Less(t, out.Chunks[1].Start, out.Chunks[0].End)
}

func TestExtractMetadata(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	a := newTestActivities(t)
	env.RegisterActivity(a.ExtractMetadataActivity)

	text := "Panel Attrition\nA. Author\n\nAbstract\nWe study how respondents leave survey panels over time and what that does to estimates drawn from the remaining sample.\n\n1. Introduction\nMore text."
	val, err := env.ExecuteActivity(a.ExtractMetadataActivity, ExtractMetadataInput{Text: text})
	require.NoError(t, err)
	var out ExtractMetadataOutput
	require.NoError(t, val.Get(&out))
	assert.Equal(t, "Panel Attrition", out.Title)
	assert.Equal(t, "A. Author", out.Authors)
	assert.Contains(t, out.Abstract, "respondents leave survey panels")
}

func TestWriteReport(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	a := newTestActivities(t)
	env.RegisterActivity(a.WriteReportActivity)

	rep := evaluation.Report{Kind: evaluation.Methodology, PaperID: "p1", PaperURL: "https://example.org/p.pdf", Summary: "Sound design."}
	val, err := env.ExecuteActivity(a.WriteReportActivity, WriteReportInput{EvaluationID: "e1", Report: rep})
	require.NoError(t, err)
	var out WriteReportOutput
	require.NoError(t, val.Get(&out))

	assert.Equal(t, filepath.Join(a.cfg.DataOutRoot, "evaluations", "e1", "report.md"), out.MarkdownPath)
	md, err := os.ReadFile(out.MarkdownPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(md), "# METHODOLOGY EVALUATION\n\nPaper URL: https://example.org/p.pdf"))
	raw, err := os.ReadFile(out.JSONPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"paper_id": "p1"`)
}
