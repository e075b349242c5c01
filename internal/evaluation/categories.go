package evaluation

import (
	"fmt"
	"strings"

	"papereval/internal/retrieval"
)

type Kind string

const (
	Methodology   Kind = "methodology"
	Robustness    Kind = "robustness"
	Significance  Kind = "significance"
	Comprehensive Kind = "comprehensive"
)

var Kinds = []Kind{Methodology, Robustness, Significance, Comprehensive}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == "" {
		return Comprehensive, nil
	}
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown evaluation type %q (want methodology, robustness, significance or comprehensive)", s)
}

// Categories expands k into the categories it evaluates.
func (k Kind) Categories() []Category {
	if k == Comprehensive {
		return []Category{categories[Methodology], categories[Robustness], categories[Significance]}
	}
	c, ok := categories[k]
	if !ok {
		return nil
	}
	return []Category{c}
}

// Question is one targeted sub-question and the retrieval heuristic it uses.
type Question struct {
	Text string              `json:"text"`
	Type retrieval.QueryType `json:"query_type"`
}

type Category struct {
	Kind      Kind
	Title     string
	Questions []Question
	// Keywords are counted in the full text and reported to the synthesis prompt.
	Keywords []string
	// Aspects are the points the synthesis must cover.
	Aspects []string
}

var categories = map[Kind]Category{
	Methodology: {
		Kind:  Methodology,
		Title: "research methodology",
		Questions: []Question{
			{"What methods does this paper use?", retrieval.Methodology},
			{"How is the experimental design structured?", retrieval.Methodology},
			{"What data collection techniques are used?", retrieval.Methodology},
			{"How does the paper analyze data?", retrieval.Statistics},
			{"What are the limitations of the methodology?", retrieval.Limitations},
		},
		Keywords: []string{"method", "approach", "technique", "procedure", "experiment", "study", "analysis", "design", "protocol", "framework", "model", "algorithm", "implementation", "evaluation", "validation", "testing", "measurement", "assessment", "data collection", "sampling"},
		Aspects: []string{
			"Appropriateness of methods for the research question",
			"Experimental design quality",
			"Data collection and analysis techniques",
			"Methodological limitations and biases",
			"Overall assessment of methodological rigor",
		},
	},
	Robustness: {
		Kind:  Robustness,
		Title: "research robustness",
		Questions: []Question{
			{"How reliable are the results in this paper?", retrieval.Results},
			{"What statistical methods are used to ensure validity?", retrieval.Statistics},
			{"How does the paper address potential confounding variables?", retrieval.Methodology},
			{"What limitations or threats to validity are discussed?", retrieval.Limitations},
			{"How generalizable are the findings of this paper?", retrieval.Significance},
		},
		Keywords: []string{"robust", "reliability", "validity", "reproducibility", "replication", "generalizability", "significance", "p-value", "confidence interval", "effect size", "power", "sample size", "bias", "confound", "limitation", "threat", "error", "uncertainty", "variance", "outlier"},
		Aspects: []string{
			"Reliability and reproducibility of results",
			"Statistical significance and effect sizes",
			"Treatment of confounding variables and biases",
			"Generalizability of findings",
			"Overall assessment of research robustness",
		},
	},
	Significance: {
		Kind:  Significance,
		Title: "research significance and innovation",
		Questions: []Question{
			{"What is the main contribution of this paper?", retrieval.ResearchQuestion},
			{"How does this paper advance the field?", retrieval.Significance},
			{"What novel ideas or approaches does this paper introduce?", retrieval.Significance},
			{"What is the potential impact of this research?", retrieval.Significance},
			{"How does this paper compare to related work?", retrieval.Generic},
		},
		Keywords: []string{"contribution", "novel", "new", "advance", "improve", "enhance", "outperform", "state-of-the-art", "breakthrough", "innovation", "impact", "important", "significant", "major", "key", "crucial", "critical", "essential", "valuable", "useful"},
		Aspects: []string{
			"Importance of the research question in the field",
			"Novelty of approach or findings",
			"Advancement of knowledge in the field",
			"Potential impact on theory or practice",
			"Overall assessment of research significance",
		},
	},
}
