package processor

import (
	"ldexplorer/models"
)

// DefaultPValueThreshold keeps associations with p < 1e-2.
const DefaultPValueThreshold = 1e-2

const unknownAllele = "?"

// SelectRiskSNPs expands associations into risk SNPs and keeps the significant
// ones: a known allele and a non-zero p-value below threshold. A SNP listed
// by several associations keeps its first occurrence.
func SelectRiskSNPs(assocs []models.Association, threshold float64) []models.RiskSNP {
	var out []models.RiskSNP
	for _, a := range assocs {
		for _, pair := range a.RiskAlleles() {
			snp := models.RiskSNP{
				ID:            pair.SNPID,
				RiskAllele:    pair.Allele,
				RiskFrequency: a.RiskFrequency.String(),
				OddsRatio:     a.OddsRatio,
				PValue:        a.PValue.Float64,
			}
			if !isSignificant(snp, a, threshold) {
				continue
			}
			out = append(out, snp)
		}
	}
	return DedupeRiskSNPs(out)
}

func isSignificant(snp models.RiskSNP, a models.Association, threshold float64) bool {
	if snp.RiskAllele == unknownAllele || snp.RiskAllele == "" || snp.ID == "" {
		return false
	}
	if !a.PValue.Valid || a.PValue.Float64 == 0 {
		return false
	}
	return a.PValue.Float64 < threshold
}

// DedupeRiskSNPs drops repeated ids, keeping the first.
func DedupeRiskSNPs(snps []models.RiskSNP) []models.RiskSNP {
	seen := make(map[string]struct{}, len(snps))
	out := make([]models.RiskSNP, 0, len(snps))
	for _, s := range snps {
		if _, ok := seen[s.ID]; ok {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}
