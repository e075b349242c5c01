package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.UpdateEvaluationStatusActivity)
	w.RegisterActivity(a.FetchPaperActivity)
	w.RegisterActivity(a.ExtractTextActivity)
	w.RegisterActivity(a.ExtractMetadataActivity)
	w.RegisterActivity(a.UpdatePaperStatusActivity)
	w.RegisterActivity(a.ChunkTextActivity)
	w.RegisterActivity(a.EmbedChunksActivity)
	w.RegisterActivity(a.EvaluatePaperActivity)
	w.RegisterActivity(a.WriteReportActivity)
	w.RegisterActivity(a.CompleteEvaluationActivity)
	w.RegisterActivity(a.LogLLMCallActivity)
}
