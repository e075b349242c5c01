package analysis

import (
	"regexp"
	"strings"
)

var (
	abstractPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)abstract[:\s]*\n+([^\n]+(?:\n[^\n]+)*?)(?:\n\s*\n|\n\s*1\.|\n\s*Introduction|\z)`),
		regexp.MustCompile(`(?i)summary[:\s]*\n+([^\n]+(?:\n[^\n]+)*?)(?:\n\s*\n|\n\s*1\.|\n\s*Introduction|\z)`),
		regexp.MustCompile(`(?i)overview[:\s]*\n+([^\n]+(?:\n[^\n]+)*?)(?:\n\s*\n|\n\s*1\.|\n\s*Introduction|\z)`),
	}
	introPattern  = regexp.MustCompile(`(?i)(?:1\.|I\.)?\s*Introduction\s*\n+([^\n]+(?:\n[^\n]+)*?)(?:\n\s*\n|\n\s*2\.|\n\s*II\.|\z)`)
	frontMatter   = regexp.MustCompile(`(?i)^(keywords|index terms|table of contents)`)
	collapseSpace = regexp.MustCompile(`\s+`)
)

// ExtractAbstract finds the abstract (or summary / overview) block. Without
// one it returns the first substantial paragraph among the first three.
// ok is false when nothing usable is found.
func ExtractAbstract(text string) (abstract string, ok bool) {
	for _, re := range abstractPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			a := strings.TrimSpace(collapseSpace.ReplaceAllString(m[1], " "))
			if a != "" {
				return a, true
			}
		}
	}
	paras := paragraphSplit.Split(text, -1)
	if len(paras) > 3 {
		paras = paras[:3]
	}
	for _, p := range paras {
		p = strings.TrimSpace(p)
		if len(p) > 100 && !frontMatter.MatchString(p) {
			return p, true
		}
	}
	return "", false
}

// ExtractIntroduction returns the first paragraph of the introduction,
// truncated to limit bytes on a rune boundary.
func ExtractIntroduction(text string, limit int) (string, bool) {
	m := introPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return truncate(strings.TrimSpace(m[1]), limit), true
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
