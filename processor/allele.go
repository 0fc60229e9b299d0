package processor

import (
	"strings"

	"gopkg.in/guregu/null.v3"
)

// ParseCorrelation reads an LD correlated-allele descriptor such as
// "A=G,C=T" into an origin to linked allele map. Pairs that do not contain
// exactly one '=' are ignored; later duplicates win.
func ParseCorrelation(descriptor string) map[string]string {
	mapping := make(map[string]string)
	for _, pair := range strings.Split(descriptor, ",") {
		parts := strings.Split(pair, "=")
		if len(parts) != 2 {
			continue
		}
		mapping[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return mapping
}

// ParseAllelePair splits "(G/T)" into its alleles.
func ParseAllelePair(pair string) []string {
	pair = strings.Trim(strings.TrimSpace(pair), "()")
	if pair == "" {
		return nil
	}
	alleles := strings.Split(pair, "/")
	for i := range alleles {
		alleles[i] = strings.TrimSpace(alleles[i])
	}
	return alleles
}

// MapAlleles orients a linked variant to riskAllele. It returns the linked
// allele inherited with the risk allele and the first other allele of the
// pair, if any. ok is false when the variant cannot be oriented.
func MapAlleles(descriptor, allelePair, riskAllele string) (correlated string, nonCorrelated null.String, ok bool) {
	if descriptor == "" || allelePair == "" || riskAllele == "" {
		return "", null.String{}, false
	}

	correlated = ParseCorrelation(descriptor)[riskAllele]
	if correlated == "" {
		return "", null.String{}, false
	}

	for _, allele := range ParseAllelePair(allelePair) {
		if allele != correlated {
			return correlated, null.StringFrom(allele), true
		}
	}
	return correlated, null.String{}, true
}
