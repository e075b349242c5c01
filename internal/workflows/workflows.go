package workflows

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"papereval/internal/activities"
	"papereval/internal/models"
	"papereval/internal/providers"
	"papereval/internal/retry"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetEvaluationStatus = "GetEvaluationStatus"

type providerState struct {
	disabledUntil map[int]time.Time
	retries       map[string]int
}

func newProviderState() providerState {
	return providerState{disabledUntil: map[int]time.Time{}, retries: map[string]int{}}
}

// PaperEvaluationWorkflow fetches a paper, indexes it and runs one evaluation.
// It returns the final evaluation status. A paper without extractable text
// ends the run as failed without a workflow error.
func PaperEvaluationWorkflow(ctx workflow.Context, input EvaluationInput) (string, error) {
	status := EvaluationStatus{
		EvaluationID: input.EvaluationID,
		PaperURL:     input.PaperURL,
		Kind:         input.Kind,
		CurrentStep:  "init",
		Status:       models.StatusRunning,
		RetryCounts:  map[string]int{},
		Steps:        map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetEvaluationStatus, func() (EvaluationStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: retry.Policy{
			MaxAttempts:        2,
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
		}.Temporal(),
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	cooldown := durationOrDefault(input.CooldownSeconds, 900)
	providerCount := defaultCount(input.EmbedProviders)
	state := newProviderState()

	fail := func(reason string, err error) (string, error) {
		status.Status = models.StatusFailed
		status.FailReason = reason
		status.Steps[status.CurrentStep] = "failed"
		dctx, _ := workflow.NewDisconnectedContext(ctx)
		_ = workflow.ExecuteActivity(dctx, "UpdateEvaluationStatusActivity", activities.UpdateEvaluationStatusInput{
			EvaluationID: input.EvaluationID,
			Status:       models.StatusFailed,
			PaperID:      status.PaperID,
			FailReason:   reason,
		}).Get(dctx, nil)
		if err != nil {
			return "", err
		}
		return status.Status, nil
	}

	_ = workflow.ExecuteActivity(ctx, "UpdateEvaluationStatusActivity", activities.UpdateEvaluationStatusInput{EvaluationID: input.EvaluationID, Status: models.StatusRunning}).Get(ctx, nil)

	status.begin("fetch_paper")
	var fetchOut activities.FetchPaperOutput
	if err := workflow.ExecuteActivity(ctx, "FetchPaperActivity", activities.FetchPaperInput{URL: input.PaperURL}).Get(ctx, &fetchOut); err != nil {
		return fail("fetch paper: "+rootMessage(err), err)
	}
	status.PaperID = fetchOut.PaperID
	status.done()
	paperStatus := activities.UpdatePaperStatusInput{
		PaperID:   fetchOut.PaperID,
		SourceURL: input.PaperURL,
		Filename:  filepath.Base(fetchOut.Path),
		SizeBytes: fetchOut.SizeBytes,
		Status:    models.StatusRunning,
	}
	_ = workflow.ExecuteActivity(ctx, "UpdatePaperStatusActivity", paperStatus).Get(ctx, nil)

	status.begin("extract_text")
	var textOut activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{PaperPath: fetchOut.Path}).Get(ctx, &textOut); err != nil {
		if isNoTextError(err) {
			paperStatus.Status = models.StatusFailed
			paperStatus.FailReason = "no extractable text found (OCR not enabled)"
			_ = workflow.ExecuteActivity(ctx, "UpdatePaperStatusActivity", paperStatus).Get(ctx, nil)
			return fail(paperStatus.FailReason, nil)
		}
		return fail("extract text: "+rootMessage(err), err)
	}
	status.done()

	status.begin("extract_metadata")
	var metaOut activities.ExtractMetadataOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractMetadataActivity", activities.ExtractMetadataInput{Text: textOut.Text}).Get(ctx, &metaOut); err != nil {
		return fail("extract metadata: "+rootMessage(err), err)
	}
	paperStatus.Title = metaOut.Title
	paperStatus.Authors = metaOut.Authors
	paperStatus.Abstract = metaOut.Abstract
	status.done()

	status.begin("chunk_text")
	var chunkOut activities.ChunkTextOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkTextActivity", activities.ChunkTextInput{PaperID: fetchOut.PaperID, Text: textOut.Text, ChunkSize: input.ChunkSize, ChunkOverlap: input.ChunkOverlap}).Get(ctx, &chunkOut); err != nil {
		return fail("chunk text: "+rootMessage(err), err)
	}
	status.ChunkCount = len(chunkOut.Chunks)
	status.done()

	status.begin("embed_chunks")
	embedOut, err := callEmbedWithFailover(ctx, &state, providerCount, cooldown, activities.EmbedChunksInput{
		EvaluationID: input.EvaluationID,
		PaperID:      fetchOut.PaperID,
		Chunks:       chunkOut.Chunks,
	}, status.RetryCounts, input.PreferredEmbedProviderIndex, input.StrictEmbedProvider)
	if err != nil {
		return fail("embed chunks: "+rootMessage(err), err)
	}
	status.Providers = append(status.Providers, embedOut.ProviderName)
	status.done()

	paperStatus.Status = models.StatusCompleted
	if err := workflow.ExecuteActivity(ctx, "UpdatePaperStatusActivity", paperStatus).Get(ctx, nil); err != nil {
		return fail("update paper: "+rootMessage(err), err)
	}

	// The evaluator retries each LLM call itself, so a failed run is not repeated.
	status.begin("evaluate")
	evalCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	var evalOut activities.EvaluatePaperOutput
	if err := workflow.ExecuteActivity(evalCtx, "EvaluatePaperActivity", activities.EvaluatePaperInput{
		EvaluationID:       input.EvaluationID,
		PaperID:            fetchOut.PaperID,
		PaperURL:           input.PaperURL,
		Title:              metaOut.Title,
		Text:               textOut.Text,
		Kind:               input.Kind,
		EmbedProviderIndex: embedOut.ProviderIndex,
	}).Get(evalCtx, &evalOut); err != nil {
		return fail("evaluate: "+rootMessage(err), err)
	}
	rep := evalOut.Report
	status.ResearchType = rep.Classification.ResearchType
	status.Degraded = rep.Degraded
	status.done()

	status.begin("write_report")
	var writeOut activities.WriteReportOutput
	if err := workflow.ExecuteActivity(ctx, "WriteReportActivity", activities.WriteReportInput{EvaluationID: input.EvaluationID, Report: rep}).Get(ctx, &writeOut); err != nil {
		return fail("write report: "+rootMessage(err), err)
	}
	status.ReportPath = writeOut.MarkdownPath
	status.done()

	status.begin("complete")
	if err := workflow.ExecuteActivity(ctx, "CompleteEvaluationActivity", activities.CompleteEvaluationInput{
		EvaluationID: input.EvaluationID,
		ResearchType: status.ResearchType,
		ReportPath:   writeOut.MarkdownPath,
		Degraded:     rep.Degraded,
	}).Get(ctx, nil); err != nil {
		return fail("complete evaluation: "+rootMessage(err), err)
	}
	status.done()

	status.Status = models.StatusCompleted
	if rep.Degraded {
		status.Status = models.StatusDegraded
	}
	return status.Status, nil
}

// callEmbedWithFailover walks the embedding providers starting at preferredIdx
// until one embeds the chunks. Quota failures bench a provider for cooldown.
func callEmbedWithFailover(ctx workflow.Context, state *providerState, providerCount int, cooldown time.Duration, input activities.EmbedChunksInput, retryCounts map[string]int, preferredIdx int, strict bool) (activities.EmbedChunksOutput, error) {
	if retryCounts == nil {
		retryCounts = map[string]int{}
	}
	if preferredIdx < 0 || preferredIdx >= providerCount {
		preferredIdx = 0
	}
	// One activity attempt per provider pass; the embedding client retries inside it.
	embedCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	var lastErr error
	maxAttempts := providerCount * 4
	if strict {
		maxAttempts = 4
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		idx := preferredIdx
		if !strict {
			idx = (preferredIdx + attempt) % providerCount
		}
		if isProviderDisabled(ctx, state, idx) {
			continue
		}
		input.ProviderIndex = idx
		var out activities.EmbedChunksOutput
		err := workflow.ExecuteActivity(embedCtx, "EmbedChunksActivity", input).Get(embedCtx, &out)
		if err == nil {
			_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{Operation: "embed", EvaluationID: input.EvaluationID, PaperID: input.PaperID, ProviderName: out.ProviderName, Model: out.Model, Status: "ok"}).Get(ctx, nil)
			return out, nil
		}
		lastErr = err
		errType := classify(err)
		_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{Operation: "embed", EvaluationID: input.EvaluationID, PaperID: input.PaperID, ProviderName: fmt.Sprintf("provider-%d", idx), Status: "error", ErrorType: string(errType)}).Get(ctx, nil)
		key := fmt.Sprintf("embed-%d", idx)
		retryCounts[key]++
		state.retries[key]++
		switch errType {
		case providers.ErrorQuota, providers.ErrorAuth:
			disableProviderUntil(ctx, state, idx, cooldown)
		case providers.ErrorRate:
			if retryCounts[key] <= 2 {
				_ = workflow.Sleep(ctx, time.Duration(retryCounts[key]*2)*time.Second)
				if !strict {
					attempt--
				}
			} else {
				disableProviderUntil(ctx, state, idx, 2*time.Minute)
			}
		case providers.ErrorTransient:
			if retryCounts[key] <= 2 {
				_ = workflow.Sleep(ctx, time.Duration(retryCounts[key])*time.Second)
				if !strict {
					attempt--
				}
			}
		case providers.ErrorContext:
			return activities.EmbedChunksOutput{}, err
		default:
			disableProviderUntil(ctx, state, idx, time.Minute)
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("all embed providers exhausted")
	}
	return activities.EmbedChunksOutput{}, lastErr
}

// classify prefers the error type an activity attached to a non-retryable
// failure over re-reading the message.
func classify(err error) providers.ErrorType {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		switch t := providers.ErrorType(appErr.Type()); t {
		case providers.ErrorQuota, providers.ErrorRate, providers.ErrorTransient,
			providers.ErrorPermanent, providers.ErrorContext, providers.ErrorAuth:
			return t
		}
	}
	return providers.ClassifyError(err)
}

func isProviderDisabled(ctx workflow.Context, state *providerState, idx int) bool {
	until, ok := state.disabledUntil[idx]
	if !ok {
		return false
	}
	return workflow.Now(ctx).Before(until)
}

func disableProviderUntil(ctx workflow.Context, state *providerState, idx int, d time.Duration) {
	state.disabledUntil[idx] = workflow.Now(ctx).Add(d)
}

func isNoTextError(err error) bool {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() == "NoExtractableText" {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no extractable text")
}

// rootMessage strips the activity error wrapping so stored fail reasons
// stay readable.
func rootMessage(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message()
	}
	return err.Error()
}

func durationOrDefault(seconds int, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

func defaultCount(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
