package evaluation

import (
	"fmt"
	"strings"

	"papereval/internal/analysis"
	"papereval/internal/classify"
	"papereval/internal/retrieval"
)

// AnalysisPrompt asks one sub-question over the resolved excerpts.
func AnalysisPrompt(question string, passages []retrieval.Passage, overview string) string {
	var b strings.Builder
	b.WriteString("You are analyzing a research paper. ")
	if overview != "" {
		fmt.Fprintf(&b, "The paper is about: %s\n\n", overview)
	}
	b.WriteString("Based on the following excerpts from the paper:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[Excerpt %d from %s]\n%s\n\n", i+1, p.Chunk.Title, p.Chunk.Text)
	}
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Please provide a detailed and accurate answer based strictly on the provided excerpts. " +
		"If the information needed is not contained in the excerpts, acknowledge this limitation rather than speculating.")
	return b.String()
}

type synthesisInput struct {
	category       Category
	stats          analysis.Stats
	keywords       []analysis.TermCount
	classification classify.Classification
	criteria       []string
	findings       []Finding
}

func synthesisPrompt(in synthesisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provide a comprehensive evaluation of the %s in this paper.\n\n", in.category.Title)
	fmt.Fprintf(&b, "Research type: %s (confidence: %s). %s\n", in.classification.ResearchType,
		in.classification.Confidence, in.classification.Info.Description)
	if focus := in.classification.Info.EvaluationFocus; len(focus) > 0 {
		fmt.Fprintf(&b, "Papers of this type are usually judged on: %s.\n", strings.Join(focus, ", "))
	}
	fmt.Fprintf(&b, "\nPaper statistics:\n%s\n", in.stats.Describe())
	fmt.Fprintf(&b, "\nKeyword frequencies:\n%s\n", analysis.FormatKeywordCounts(in.keywords))
	if len(in.criteria) > 0 {
		b.WriteString("\nTailored criteria:\n")
		for i, c := range in.criteria {
			fmt.Fprintf(&b, "%d. %s\n", i+1, c)
		}
	}
	b.WriteString("\nFindings:\n")
	for _, f := range in.findings {
		if f.Error != "" {
			fmt.Fprintf(&b, "\n%s:\n(no answer: %s)\n", f.Question, f.Error)
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n%s\n", f.Question, f.Answer)
	}
	b.WriteString("\nBased on the above, provide a detailed evaluation covering:\n")
	for i, a := range in.category.Aspects {
		fmt.Fprintf(&b, "%d. %s\n", i+1, a)
	}
	b.WriteString("\nStructure your evaluation with clear sections, highlighting both strengths and weaknesses.")
	return b.String()
}

func finalPrompt(sections []Section, stats analysis.Stats) string {
	var b strings.Builder
	b.WriteString("Provide a comprehensive evaluation of this research paper based on the following assessments:\n")
	for _, s := range sections {
		fmt.Fprintf(&b, "\n%s EVALUATION:\n", strings.ToUpper(string(s.Kind)))
		if s.Summary == "" {
			b.WriteString("(not available)\n")
			continue
		}
		b.WriteString(s.Summary + "\n")
	}
	fmt.Fprintf(&b, "\nPaper statistics:\n%s\n- Most common terms: %s\n", stats.Describe(), analysis.FormatTerms(stats.Top(10)))
	b.WriteString(`
Based on all of the above, provide a final evaluation that:
1. Summarizes the key strengths and weaknesses across all dimensions
2. Gives an overall assessment of the paper's quality and contribution
3. Offers constructive suggestions for improvement
4. Concludes with a final verdict on the paper's merit

Structure your evaluation with clear sections and a final summary.`)
	return b.String()
}
