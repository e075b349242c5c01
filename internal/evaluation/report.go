package evaluation

import (
	"fmt"
	"strings"
	"time"

	"papereval/internal/analysis"
	"papereval/internal/classify"
	"papereval/internal/retrieval"
	"papereval/internal/vector"
)

type Finding struct {
	Question  string                 `json:"question"`
	QueryType retrieval.QueryType    `json:"query_type"`
	Passages  []vector.RankedPassage `json:"passages,omitempty"`
	Answer    string                 `json:"answer,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

type Section struct {
	Kind     Kind                 `json:"kind"`
	Summary  string               `json:"summary,omitempty"`
	Findings []Finding            `json:"findings"`
	Keywords []analysis.TermCount `json:"keywords"`
	Degraded bool                 `json:"degraded,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Failed reports whether the section produced neither a summary nor any answer.
func (s Section) Failed() bool {
	if s.Summary != "" {
		return false
	}
	for _, f := range s.Findings {
		if f.Error == "" {
			return false
		}
	}
	return true
}

type Report struct {
	Kind           Kind                    `json:"kind"`
	PaperID        string                  `json:"paper_id"`
	PaperURL       string                  `json:"paper_url"`
	Title          string                  `json:"title,omitempty"`
	Classification classify.Classification `json:"classification"`
	Criteria       *classify.Criteria      `json:"criteria,omitempty"`
	Stats          analysis.Stats          `json:"stats"`
	Sections       []Section               `json:"sections"`
	Summary        string                  `json:"summary"`
	Degraded       bool                    `json:"degraded"`
	Error          string                  `json:"error,omitempty"`
	GeneratedAt    time.Time               `json:"generated_at"`
}

// Markdown renders the report in the layout written to --output files.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s EVALUATION\n\n", strings.ToUpper(string(r.Kind)))
	fmt.Fprintf(&b, "Paper URL: %s\n\n", r.PaperURL)
	if r.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", r.Title)
	}
	fmt.Fprintf(&b, "Research type: %s (confidence: %s)\n\n", r.Classification.ResearchType, r.Classification.Confidence)
	if r.Degraded {
		b.WriteString("> Partial evaluation: some steps failed, see notes below.\n\n")
	}
	if r.Summary != "" {
		b.WriteString(strings.TrimSpace(r.Summary))
		b.WriteString("\n\n")
	}

	multi := len(r.Sections) > 1
	for _, s := range r.Sections {
		if multi {
			fmt.Fprintf(&b, "## %s\n\n", titleCase(string(s.Kind)))
			if s.Summary != "" {
				b.WriteString(strings.TrimSpace(s.Summary))
				b.WriteString("\n\n")
			}
		}
		if s.Error != "" {
			fmt.Fprintf(&b, "_Note: %s_\n\n", s.Error)
		}
		fmt.Fprintf(&b, "### %s findings\n\n", titleCase(string(s.Kind)))
		for _, f := range s.Findings {
			fmt.Fprintf(&b, "#### %s\n\n", f.Question)
			if f.Error != "" {
				fmt.Fprintf(&b, "_Unanswered: %s_\n\n", f.Error)
				continue
			}
			b.WriteString(strings.TrimSpace(f.Answer))
			b.WriteString("\n\n")
			if len(f.Passages) > 0 {
				refs := make([]string, 0, len(f.Passages))
				for _, p := range f.Passages {
					refs = append(refs, fmt.Sprintf("chunk %d (%.3f)", p.ChunkID, p.Score))
				}
				fmt.Fprintf(&b, "_Passages: %s_\n\n", strings.Join(refs, ", "))
			}
		}
	}
	if r.Error != "" {
		fmt.Fprintf(&b, "_Note: %s_\n", r.Error)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
