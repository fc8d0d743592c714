package llm

import (
	"strconv"
	"strings"

	"github.com/xhad/prove/internal/models"
)

// CitationMatcher reports whether a generated answer appears to reference a
// study. Matching is best-effort over free text; false positives and false
// negatives are acceptable.
type CitationMatcher func(answer string, study models.Study) bool

// MatchCitations filters studies to those the default matcher finds cited in
// the answer, preserving input order.
func MatchCitations(answer string, studies []models.Study) []models.Study {
	return MatchCitationsWith(answer, studies, SurnameYearMatcher)
}

func MatchCitationsWith(answer string, studies []models.Study, matcher CitationMatcher) []models.Study {
	var cited []models.Study
	for _, study := range studies {
		if matcher(answer, study) {
			cited = append(cited, study)
		}
	}
	return cited
}

// SurnameYearMatcher matches when the first author's surname and the
// publication year both appear in the answer, the way generated prose
// usually cites a study ("Smith et al., 2019").
func SurnameYearMatcher(answer string, study models.Study) bool {
	surname := firstAuthorSurname(study.Authors)
	if surname == "" {
		return false
	}

	lowered := strings.ToLower(answer)
	if !strings.Contains(lowered, strings.ToLower(surname)) {
		return false
	}
	return strings.Contains(answer, strconv.Itoa(study.Year))
}

// firstAuthorSurname pulls a surname out of the comma-joined authors string.
// PubMed formats names "Last First", arXiv keeps the raw "First Last" order,
// so the longer of the first author's first and last tokens is used.
func firstAuthorSurname(authors string) string {
	first := authors
	if idx := strings.Index(authors, ","); idx >= 0 {
		first = authors[:idx]
	}

	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) == 1 {
		return fields[0]
	}

	head, tail := fields[0], fields[len(fields)-1]
	if len(tail) > len(head) {
		return tail
	}
	return head
}
