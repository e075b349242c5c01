// Package analysis derives cheap lexical statistics from a paper's text. The
// numbers feed the classifier and the category synthesis prompts.
package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultCommonWords is how many frequent terms ComputeStats keeps.
const DefaultCommonWords = 30

var (
	wordPattern      = regexp.MustCompile(`\b\w+\b`)
	sentenceSplit    = regexp.MustCompile(`[.!?]+`)
	paragraphSplit   = regexp.MustCompile(`\n\s*\n`)
	citationPattern  = regexp.MustCompile(`\[\d+\]|\(\w+\s+et\s+al\.`)
	figurePattern    = regexp.MustCompile(`[Ff]ig(?:ure)?\.?\s*\d+`)
	tablePattern     = regexp.MustCompile(`[Tt]able\.?\s*\d+`)
	equationPattern  = regexp.MustCompile(`[=><≥≤±×÷≈≠∝∞∫∑∏√]`)
	statisticalTerms = regexp.MustCompile(`\bp(?:\s*[<>=]|\s*value)\s*[<>=]?\s*0\.\d+|\bt\s*\(\s*\d+\s*\)\s*[<>=]\s*\d+\.\d+|chi[\s-]*square|anova|manova|regression|correlation|mean|median|standard\s+deviation|variance|significance|statistical|sample\s+size`)
	methodologyTerms = regexp.MustCompile(`\b(?:methodology|method|approach|technique|procedure|experiment|study|analysis|design|protocol|framework|model|algorithm|implementation|evaluation|validation|testing|measurement|assessment|data\s+collection|sampling)`)
	sectionHeading   = regexp.MustCompile(`^\s*(?:\d+\.?\s*)?[A-Z][A-Za-z ]+$`)
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the and of to a in for is on that by this with as are be we our from an or
		at not it which have was were has been can will their they these those such but also than when where who
		what how why all any some no nor only own same so too very`) {
		stopwords[w] = struct{}{}
	}
}

// TermCount is a term with its number of occurrences.
type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

type Stats struct {
	WordCount             int         `json:"word_count"`
	SentenceCount         int         `json:"sentence_count"`
	ParagraphCount        int         `json:"paragraph_count"`
	CitationCount         int         `json:"citation_count"`
	FigureCount           int         `json:"figure_count"`
	TableCount            int         `json:"table_count"`
	EquationCount         int         `json:"equation_count"`
	StatisticalTermsCount int         `json:"statistical_terms_count"`
	MethodologyTermsCount int         `json:"methodology_terms_count"`
	SectionCount          int         `json:"section_count"`
	CommonWords           []TermCount `json:"common_words"`
}

// ComputeStats counts words, sentences, paragraphs and the markers of
// scholarly text (citations, figures, tables, equation symbols).
func ComputeStats(text string) Stats {
	lower := strings.ToLower(text)
	words := wordPattern.FindAllString(lower, -1)

	s := Stats{
		WordCount:             len(words),
		SentenceCount:         countNonBlank(sentenceSplit.Split(text, -1)),
		ParagraphCount:        countNonBlank(paragraphSplit.Split(text, -1)),
		CitationCount:         len(citationPattern.FindAllStringIndex(text, -1)),
		FigureCount:           len(figurePattern.FindAllStringIndex(text, -1)),
		TableCount:            len(tablePattern.FindAllStringIndex(text, -1)),
		EquationCount:         len(equationPattern.FindAllStringIndex(text, -1)),
		StatisticalTermsCount: len(statisticalTerms.FindAllStringIndex(lower, -1)),
		MethodologyTermsCount: len(methodologyTerms.FindAllStringIndex(lower, -1)),
		SectionCount:          countSections(text),
	}

	freq := map[string]int{}
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		freq[w]++
	}
	s.CommonWords = topTerms(freq, DefaultCommonWords)
	return s
}

// Top returns at most n of the most common words.
func (s Stats) Top(n int) []TermCount {
	if n >= len(s.CommonWords) {
		return s.CommonWords
	}
	return s.CommonWords[:n]
}

// Describe renders the counts as the bullet list used in prompts.
func (s Stats) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Word count: %d\n", s.WordCount)
	fmt.Fprintf(&b, "- Citation count: %d\n", s.CitationCount)
	fmt.Fprintf(&b, "- Figure count: %d\n", s.FigureCount)
	fmt.Fprintf(&b, "- Table count: %d\n", s.TableCount)
	fmt.Fprintf(&b, "- Equation count: %d\n", s.EquationCount)
	fmt.Fprintf(&b, "- Statistical terms count: %d\n", s.StatisticalTermsCount)
	fmt.Fprintf(&b, "- Methodology terms count: %d", s.MethodologyTermsCount)
	return b.String()
}

// FormatTerms joins terms as "term (count)".
func FormatTerms(terms []TermCount) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, fmt.Sprintf("%s (%d)", t.Term, t.Count))
	}
	return strings.Join(parts, ", ")
}

// KeywordCounts counts whole-word, case-insensitive occurrences of each
// keyword. The result is ordered by count descending, then keyword.
func KeywordCounts(text string, keywords []string) []TermCount {
	lower := strings.ToLower(text)
	out := make([]TermCount, 0, len(keywords))
	for _, k := range keywords {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(strings.ToLower(k)) + `\b`)
		out = append(out, TermCount{Term: k, Count: len(re.FindAllStringIndex(lower, -1))})
	}
	sortTerms(out)
	return out
}

// FormatKeywordCounts renders counts as "keyword: n" pairs.
func FormatKeywordCounts(counts []TermCount) string {
	parts := make([]string, 0, len(counts))
	for _, c := range counts {
		parts = append(parts, fmt.Sprintf("%s: %d", c.Term, c.Count))
	}
	return strings.Join(parts, ", ")
}

func topTerms(freq map[string]int, n int) []TermCount {
	out := make([]TermCount, 0, len(freq))
	for t, c := range freq {
		out = append(out, TermCount{Term: t, Count: c})
	}
	sortTerms(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func sortTerms(ts []TermCount) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Count != ts[j].Count {
			return ts[i].Count > ts[j].Count
		}
		return ts[i].Term < ts[j].Term
	})
}

func countNonBlank(parts []string) int {
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// countSections counts short capitalised lines that look like headings,
// optionally numbered ("3. Results").
func countSections(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || len(line) > 80 {
			continue
		}
		if sectionHeading.MatchString(line) {
			n++
		}
	}
	return n
}
