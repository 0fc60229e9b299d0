package processor

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"ldexplorer/models"
)

// DefaultMatchCutoff is the minimum similarity ratio for a phenotype match.
const DefaultMatchCutoff = 0.6

// BestMatch picks the ontology trait closest to term. Names are compared
// lower-cased and trimmed; when two traits share a name the later one is
// used. The score is the sequence-matcher ratio over characters and must
// reach cutoff. Equal scores prefer the lexicographically greater name.
func BestMatch(term string, traits []models.OntologyTrait, cutoff float64) (models.TraitMatch, bool) {
	byName := make(map[string]models.OntologyTrait, len(traits))
	for _, tr := range traits {
		byName[normalizeTrait(tr.Trait)] = tr
	}

	word := strings.Split(normalizeTrait(term), "")
	matcher := difflib.NewMatcher(nil, word)

	bestName := ""
	bestScore := -1.0
	for name := range byName {
		matcher.SetSeq1(strings.Split(name, ""))
		if matcher.RealQuickRatio() < cutoff || matcher.QuickRatio() < cutoff {
			continue
		}
		score := matcher.Ratio()
		if score < cutoff {
			continue
		}
		if score > bestScore || (score == bestScore && name > bestName) {
			bestScore = score
			bestName = name
		}
	}
	if bestScore < 0 {
		return models.TraitMatch{}, false
	}

	tr := byName[bestName]
	return models.TraitMatch{
		UserInput:    term,
		MatchedTrait: tr.Trait,
		EFOID:        tr.ShortForm,
	}, true
}

func normalizeTrait(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
