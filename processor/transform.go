package processor

import (
	"ldexplorer/logger"
	"ldexplorer/models"
)

// Transform orients every linked variant of every result to its risk SNP's
// allele. Variants without a correlated allele are dropped; the output has
// one entry per input result in the same order.
func Transform(results []models.LDResult) []models.TransformedEntry {
	log := logger.GetLogger().WithComponent("transformer")

	out := make([]models.TransformedEntry, 0, len(results))
	for _, res := range results {
		entry := models.TransformedEntry{SNP: res.SNP}
		for _, lv := range res.Linked {
			correlated, other, ok := MapAlleles(lv.CorrelatedAlleles, lv.Alleles, res.SNP.RiskAllele)
			if !ok {
				log.WithFields(logger.Fields{
					"snp":         res.SNP.ID,
					"linked":      lv.RSID,
					"descriptor":  lv.CorrelatedAlleles,
					"risk_allele": res.SNP.RiskAllele,
				}).Debug("no correlated allele, variant dropped")
				continue
			}
			entry.Linked = append(entry.Linked, models.TransformedLinkedSNP{
				RSID:                lv.RSID,
				CorrelatedAllele:    correlated,
				NonCorrelatedAllele: other,
				R2:                  lv.R2,
			})
		}
		out = append(out, entry)
	}
	return out
}
