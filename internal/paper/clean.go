package paper

import (
	"bufio"
	"regexp"
	"strings"

	"papereval/internal/util"
)

var (
	pageNumberLine = regexp.MustCompile(`\n\s*\d+\s*\n`)
	artifactLine   = regexp.MustCompile(`\n[^a-zA-Z0-9\s.,;:()\[\]{}\-_=+*/\\]{2,}\n`)
	hyphenBreak    = regexp.MustCompile(`(\w+)-\n(\w+)`)
	blankRun       = regexp.MustCompile(`\n{3,}`)
)

// Clean strips extraction artifacts: bare page numbers, symbol-only
// header and footer lines, hyphenated line breaks and runs of blank lines.
func Clean(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = util.SanitizeText(text)
	text = pageNumberLine.ReplaceAllString(text, "\n")
	text = artifactLine.ReplaceAllString(text, "\n")
	text = hyphenBreak.ReplaceAllString(text, "${1}${2}")
	text = blankRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Metadata guesses title and authors from the first non-empty lines.
func Metadata(text string) (title, authors string) {
	s := bufio.NewScanner(strings.NewReader(text))
	lines := make([]string, 0, 2)
	for s.Scan() && len(lines) < 2 {
		if line := strings.TrimSpace(s.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		title = lines[0]
	}
	if len(lines) > 1 {
		authors = lines[1]
	}
	return title, authors
}
