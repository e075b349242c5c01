// Package classify assigns a paper one research type and asks the LLM for
// evaluation criteria tailored to that type.
package classify

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"papereval/internal/analysis"
	"papereval/internal/vector"
)

var ErrUnknownType = errors.New("unknown research type")

// Completer answers a prompt. providers.Caller satisfies it.
type Completer interface {
	Complete(ctx context.Context, op, prompt string, excerpts []string) (string, error)
}

type Classification struct {
	ResearchType    string       `json:"research_type"`
	Confidence      string       `json:"confidence"`
	Rationale       string       `json:"rationale"`
	Characteristics string       `json:"characteristics"`
	Info            ResearchType `json:"type_info"`
	Degraded        bool         `json:"degraded,omitempty"`
}

// Fallback is the classification used when the LLM gives no usable answer.
func Fallback(reason string) Classification {
	return Classification{
		ResearchType: DefaultType,
		Confidence:   "low",
		Rationale:    reason,
		Info:         mustLookup(DefaultType),
	}
}

type Criteria struct {
	ResearchType    string          `json:"research_type"`
	Description     string          `json:"type_description"`
	Methodology     []string        `json:"methodology_criteria"`
	Robustness      []string        `json:"robustness_criteria"`
	Significance    []string        `json:"significance_criteria"`
	EvaluationFocus []string        `json:"evaluation_focus"`
	Classification  *Classification `json:"classification_details,omitempty"`
}

type Classifier struct {
	llm Completer
}

func New(llm Completer) *Classifier {
	return &Classifier{llm: llm}
}

// Classify labels the paper from its abstract, falling back to the
// introduction and then to the first chunks. An unknown label from the LLM
// yields the default type with low confidence.
func (c *Classifier) Classify(ctx context.Context, text string, chunks []vector.Chunk) (Classification, error) {
	out, err := c.llm.Complete(ctx, "classify", classificationPrompt(text, chunks), nil)
	if err != nil {
		return Classification{}, fmt.Errorf("classify research type: %w", err)
	}
	return ParseClassification(out), nil
}

// Criteria asks for criteria tailored to typ. An empty typ classifies first.
func (c *Classifier) Criteria(ctx context.Context, typ string, text string, chunks []vector.Chunk, stats analysis.Stats) (Criteria, error) {
	var details *Classification
	if typ == "" {
		cl, err := c.Classify(ctx, text, chunks)
		if err != nil {
			return Criteria{}, err
		}
		typ, details = cl.ResearchType, &cl
	}
	info, ok := Lookup(typ)
	if !ok {
		return Criteria{}, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	out, err := c.llm.Complete(ctx, "criteria", criteriaPrompt(info, stats), nil)
	if err != nil {
		return Criteria{}, fmt.Errorf("tailored criteria: %w", err)
	}
	crit := ParseCriteria(out)
	crit.ResearchType = info.Name
	crit.Description = info.Description
	crit.EvaluationFocus = info.EvaluationFocus
	crit.Classification = details
	return crit, nil
}

func classificationPrompt(text string, chunks []vector.Chunk) string {
	var b strings.Builder
	b.WriteString("I need to classify a research paper into one of the following types:\n\n")
	for _, t := range Types {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	abstract, ok := analysis.ExtractAbstract(text)
	if ok {
		fmt.Fprintf(&b, "\nHere is the paper's abstract:\n\n%s\n", abstract)
	} else {
		b.WriteString("\nAbstract not found. Using paper excerpts instead:\n")
		if intro, found := analysis.ExtractIntroduction(text, 1000); found {
			fmt.Fprintf(&b, "\nFrom introduction:\n%s\n", intro)
		} else {
			for i, ch := range chunks {
				if i == 2 {
					break
				}
				fmt.Fprintf(&b, "\nExcerpt %d:\n%s\n", i+1, head(ch.Text, 500))
			}
		}
	}
	b.WriteString(`
Classify this paper into exactly ONE of the research types listed above. Focus on:
1. The primary research methodology described
2. The main contribution of the paper
3. The type of results or findings presented
4. The overall structure and approach

Do not over-weight the mere presence of data, statistical terms or generic research vocabulary.

Format your response as:
RESEARCH_TYPE: [type]
CONFIDENCE: [high/medium/low]
RATIONALE: [detailed explanation]
KEY_CHARACTERISTICS: [bullet points of key characteristics]
`)
	return b.String()
}

func criteriaPrompt(info ResearchType, s analysis.Stats) string {
	return fmt.Sprintf(`I need tailored evaluation criteria for a research paper of type: %s (%s).

This type of research should typically focus on: %s.

Paper statistics:
%s

Create evaluation criteria for three aspects:

1. Methodology: which methodological elements matter for this type, what rigor means here, common pitfalls, applicable standards.
2. Robustness: how to assess reliability and validity, appropriate robustness checks, required level of evidence, generalizability or transferability.
3. Significance: how to assess the contribution, what counts as novelty, how to judge theoretical or practical impact.

Give 5-7 specific criteria per aspect.

Format your response as:

METHODOLOGY_CRITERIA:
1. [criterion]
2. [criterion]

ROBUSTNESS_CRITERIA:
1. [criterion]
2. [criterion]

SIGNIFICANCE_CRITERIA:
1. [criterion]
2. [criterion]
`, info.Name, info.Description, strings.Join(info.EvaluationFocus, ", "), s.Describe())
}

var (
	numbered  = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
	typeClean = strings.NewReplacer(" ", "_", "-", "_", "[", "", "]", "", "`", "")
)

func field(line, key string) (string, bool) {
	line = strings.TrimLeft(line, "*-# ")
	if !strings.HasPrefix(line, key) {
		return "", false
	}
	v := strings.TrimPrefix(line, key)
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(v), "*")), true
}

// ParseClassification reads the RESEARCH_TYPE / CONFIDENCE / RATIONALE /
// KEY_CHARACTERISTICS block. Lines after KEY_CHARACTERISTICS belong to it.
func ParseClassification(out string) Classification {
	var (
		cl     Classification
		inKeys bool
		keys   []string
	)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := field(line, "RESEARCH_TYPE:"); ok {
			cl.ResearchType = typeClean.Replace(strings.ToLower(v))
			inKeys = false
		} else if v, ok := field(line, "CONFIDENCE:"); ok {
			cl.Confidence = strings.ToLower(strings.Trim(v, "[]"))
			inKeys = false
		} else if v, ok := field(line, "RATIONALE:"); ok {
			cl.Rationale = v
			inKeys = false
		} else if v, ok := field(line, "KEY_CHARACTERISTICS:"); ok {
			inKeys = true
			if v != "" {
				keys = append(keys, v)
			}
		} else if inKeys && line != "" {
			keys = append(keys, line)
		}
	}
	cl.Characteristics = strings.Join(keys, "\n")

	info, ok := Lookup(cl.ResearchType)
	if !ok {
		fb := Fallback("Failed to determine research type from abstract/introduction. Defaulting to " + DefaultType + " with low confidence.")
		fb.Characteristics = cl.Characteristics
		return fb
	}
	cl.Info = info
	return cl
}

// ParseCriteria collects the numbered items under each *_CRITERIA header.
func ParseCriteria(out string) Criteria {
	var (
		crit    Criteria
		section *[]string
	)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.Contains(line, "METHODOLOGY_CRITERIA:"):
			section = &crit.Methodology
		case strings.Contains(line, "ROBUSTNESS_CRITERIA:"):
			section = &crit.Robustness
		case strings.Contains(line, "SIGNIFICANCE_CRITERIA:"):
			section = &crit.Significance
		default:
			m := numbered.FindStringSubmatch(line)
			if m != nil && section != nil {
				*section = append(*section, strings.TrimSpace(m[1]))
			}
		}
	}
	return crit
}

func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
