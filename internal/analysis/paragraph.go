package analysis

import (
	"regexp"
	"strings"
)

type ParagraphType string

const (
	ParagraphGeneral          ParagraphType = "general"
	ParagraphTechnical        ParagraphType = "technical"
	ParagraphLiteratureReview ParagraphType = "literature_review"
	ParagraphContribution     ParagraphType = "contribution"
	ParagraphResults          ParagraphType = "results"
)

var (
	numericPattern   = regexp.MustCompile(`\d+\.\d+|\d+%`)
	figureRefPattern = regexp.MustCompile(`[Ff]ig(?:ure)?\.?\s*\d+|[Tt]able\.?\s*\d+`)
)

// Paragraph describes the content markers of one paragraph.
type Paragraph struct {
	Citations int           `json:"citations"`
	Equations int           `json:"equations"`
	Numeric   int           `json:"numerical_content"`
	Figures   int           `json:"figures"`
	Type      ParagraphType `json:"type"`
	Length    int           `json:"length"`
}

func ParagraphMetadata(p string) Paragraph {
	m := Paragraph{
		Citations: len(citationPattern.FindAllStringIndex(p, -1)),
		Equations: len(equationPattern.FindAllStringIndex(p, -1)),
		Numeric:   len(numericPattern.FindAllStringIndex(p, -1)),
		Figures:   len(figureRefPattern.FindAllStringIndex(p, -1)),
		Type:      ParagraphGeneral,
		Length:    len([]rune(p)),
	}
	lower := strings.ToLower(p)
	switch {
	case m.Equations > 5:
		m.Type = ParagraphTechnical
	case m.Citations > 3:
		m.Type = ParagraphLiteratureReview
	case strings.Contains(lower, "we propose") || strings.Contains(lower, "our approach"):
		m.Type = ParagraphContribution
	case strings.Contains(lower, "experiment") && m.Numeric > 3:
		m.Type = ParagraphResults
	}
	return m
}
