package retrieval

import (
	"regexp"
	"strings"
	"sync"

	"papereval/internal/config"
	"papereval/internal/vector"
)

// Candidate is one passage offered to a heuristic.
type Candidate struct {
	Chunk          vector.Chunk
	Similarity     float64
	DocumentLength int
}

// Heuristic maps a candidate to its final score. Implementations must be
// pure and deterministic.
type Heuristic interface {
	Score(c Candidate) float64
}

// HeuristicFunc adapts a plain function to Heuristic.
type HeuristicFunc func(c Candidate) float64

func (f HeuristicFunc) Score(c Candidate) float64 { return f(c) }

// Identity ranks by similarity alone.
var Identity Heuristic = HeuristicFunc(func(c Candidate) float64 { return c.Similarity })

// Registry is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex
	m  map[QueryType]Heuristic
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: map[QueryType]Heuristic{}}
}

// Register replaces any heuristic already bound to t.
func (r *Registry) Register(t QueryType, h Heuristic) {
	r.mu.Lock()
	r.m[t] = h
	r.mu.Unlock()
}

// Lookup never fails: unregistered types get Identity.
func (r *Registry) Lookup(t QueryType) Heuristic {
	r.mu.RLock()
	h, ok := r.m[t]
	r.mu.RUnlock()
	if !ok || h == nil {
		return Identity
	}
	return h
}

var (
	numericToken = regexp.MustCompile(`\d+\.\d+|\d+%`)
	digitToken   = regexp.MustCompile(`\b\d[\d.,]*\b`)
	statPattern  = regexp.MustCompile(`(?i)(\bp\s*[<>=≤]\s*0?\.\d+|\b\d{2}\s*%\s*(ci|confidence interval)\b|\bn\s*=\s*\d+|\bt\s*\(\s*\d+\s*\)|\bf\s*\(\s*\d+\s*,\s*\d+\s*\)|\bchi[- ]square|χ2|\bsd\s*=|standard deviation|\br\s*=\s*-?0?\.\d+|cohen'?s d|odds ratio|\bstatistically significant\b)`)
	methodWords  = []string{"method", "approach", "technique", "procedure", "protocol"}
	equationSyms = []string{"=", "+", "∑", "∫", "∂", "∇", "≈", "≤", "≥", "∈", "λ", "σ", "μ"}
)

// Boost multiplies similarity by factor when match reports true. A
// non-positive factor disables the boost.
func Boost(factor float64, match func(c Candidate) bool) Heuristic {
	if factor <= 0 {
		factor = 1
	}
	return HeuristicFunc(func(c Candidate) float64 {
		if match(c) {
			return c.Similarity * factor
		}
		return c.Similarity
	})
}

// EarlyInDocument matches chunks starting in the first cutoff fraction of the document.
func EarlyInDocument(cutoff float64) func(Candidate) bool {
	return func(c Candidate) bool {
		if c.DocumentLength <= 0 {
			return false
		}
		return float64(c.Chunk.Start) < cutoff*float64(c.DocumentLength)
	}
}

// HasStatistics matches statistical notation or at least three digit runs.
func HasStatistics(c Candidate) bool {
	return statPattern.MatchString(c.Chunk.Text) || len(digitToken.FindAllString(c.Chunk.Text, -1)) >= 3
}

// MentionsMethod matches chunks that talk about a method or procedure.
func MentionsMethod(c Candidate) bool {
	t := strings.ToLower(c.Chunk.Text)
	for _, w := range methodWords {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

// NumericHeavy matches chunks with more than two decimals or percentages.
func NumericHeavy(c Candidate) bool {
	return len(numericToken.FindAllString(c.Chunk.Text, -1)) > 2
}

// EquationHeavy matches chunks with more than two math symbols.
func EquationHeavy(c Candidate) bool {
	n := 0
	for _, s := range equationSyms {
		n += strings.Count(c.Chunk.Text, s)
	}
	return n > 2
}

// DefaultRegistry registers the built-in heuristics with weights from h.
// Limitations, significance and generic queries rank by similarity.
func DefaultRegistry(h config.Heuristics) *Registry {
	r := NewRegistry()
	r.Register(ResearchQuestion, Boost(h.PositionalBoost, EarlyInDocument(h.PositionalCutoff)))
	r.Register(Statistics, Boost(h.StatisticsBoost, HasStatistics))
	r.Register(Methodology, Boost(h.MethodologyBoost, MentionsMethod))
	r.Register(Results, Boost(h.ResultsBoost, NumericHeavy))
	r.Register(Theory, Boost(h.TheoryBoost, EquationHeavy))
	return r
}
