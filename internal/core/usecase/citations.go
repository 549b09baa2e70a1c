package usecase

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kvasnikov/faq-chatbot/internal/core/domain"
)

const (
	previewMaxChars = 240
	// Token-set Jaccard similarity above which two chunk texts collapse
	// into one citation.
	duplicateTextThreshold = 0.85
)

// assembleCitations deduplicates the ranked shortlist and assigns stable
// citation identifiers. Guarantees: ids are contiguous starting at 1, no two
// citations share an origin id, previews never expose internal scores.
func assembleCitations(ranked []domain.RankedCandidate) []domain.Citation {
	citations := make([]domain.Citation, 0, len(ranked))
	seenOrigins := make(map[string]struct{}, len(ranked))
	keptTokens := make([]map[string]struct{}, 0, len(ranked))

	for _, rc := range ranked {
		if _, dup := seenOrigins[rc.OriginID]; dup {
			continue
		}
		tokens := toTokenSet(rc.Text)
		if isNearDuplicate(tokens, keptTokens) {
			continue
		}

		id := len(citations) + 1
		citations = append(citations, domain.Citation{
			ID:       id,
			Label:    fmt.Sprintf("[%d]", id),
			Title:    citationTitle(rc.Candidate),
			Section:  rc.Section,
			URL:      rc.URL,
			Preview:  buildPreview(rc.Text),
			Kind:     rc.SourceKind,
			OriginID: rc.OriginID,
		})
		seenOrigins[rc.OriginID] = struct{}{}
		keptTokens = append(keptTokens, tokens)
	}
	return citations
}

// buildEvidenceBlock renders the numbered passages handed to the answer
// model. Labels match the citation ids so [n] references in the generated
// text map back to the citation list.
func buildEvidenceBlock(citations []domain.Citation) string {
	var b strings.Builder
	for _, c := range citations {
		descriptor := c.Title
		if c.Section != "" {
			descriptor += " - " + c.Section
		}
		if c.URL != "" && c.URL != c.Title {
			descriptor += " - " + c.URL
		}
		b.WriteString(c.Label)
		b.WriteString(" ")
		b.WriteString(descriptor)
		b.WriteString("\n")
		b.WriteString(c.Preview)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func citationTitle(c domain.Candidate) string {
	switch {
	case c.Title != "":
		return c.Title
	case c.URL != "":
		return c.URL
	default:
		return "Source"
	}
}

func buildPreview(text string) string {
	oneLine := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(oneLine) <= previewMaxChars {
		return oneLine
	}
	// Truncate by runes so a multi-byte character is never split.
	runes := []rune(oneLine)
	return string(runes[:previewMaxChars]) + " ..."
}

func isNearDuplicate(tokens map[string]struct{}, kept []map[string]struct{}) bool {
	for _, existing := range kept {
		if jaccard(tokens, existing) > duplicateTextThreshold {
			return true
		}
	}
	return false
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for token := range small {
		if _, ok := large[token]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
