package retrieval

import "strings"

// QueryType selects the re-ranking heuristic applied to a query's candidates.
type QueryType string

const (
	ResearchQuestion QueryType = "research_question"
	Methodology      QueryType = "methodology"
	Statistics       QueryType = "statistics"
	Results          QueryType = "results"
	Theory           QueryType = "theory"
	Limitations      QueryType = "limitations"
	Significance     QueryType = "significance"
	Generic          QueryType = "generic"
)

func ParseQueryType(s string) QueryType {
	return QueryType(strings.ToLower(strings.TrimSpace(s)))
}

var inferRules = []struct {
	typ      QueryType
	keywords []string
}{
	{Statistics, []string{"statistic", "significance test", "p-value", "confidence interval", "analyze data", "analyse data", "regression", "sample size"}},
	{Limitations, []string{"limitation", "threat", "weakness", "shortcoming", "caveat"}},
	{Methodology, []string{"method", "approach", "experimental design", "data collection", "procedure", "technique", "confound"}},
	{Results, []string{"result", "finding", "reliable", "performance", "accuracy", "outcome"}},
	{Theory, []string{"theory", "theorem", "proof", "equation", "formal", "model"}},
	{ResearchQuestion, []string{"research question", "main contribution", "objective", "aim of", "hypothes", "purpose"}},
	{Significance, []string{"significan", "impact", "novel", "advance", "generaliz", "contribution", "implication"}},
}

// InferQueryType guesses a type from free-form question wording. Questions
// that match nothing are Generic.
func InferQueryType(question string) QueryType {
	q := strings.ToLower(question)
	for _, rule := range inferRules {
		for _, k := range rule.keywords {
			if strings.Contains(q, k) {
				return rule.typ
			}
		}
	}
	return Generic
}
