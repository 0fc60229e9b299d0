package processor

import (
	"ldexplorer/models"
)

// Flatten turns a report into one row per correlated-allele trait record,
// ordered by risk SNP id then linked SNP order.
func Flatten(report models.LDReport) []models.ReportRow {
	var rows []models.ReportRow
	for _, id := range report.Keys() {
		entry := report[id]
		for _, linked := range entry.LinkedSNPs {
			for _, tr := range linked.CorrelatedTraits {
				rows = append(rows, models.ReportRow{
					InputSNP:         id,
					RiskAllele:       entry.RiskAllele,
					LinkedRS:         linked.RSID,
					R2:               linked.R2,
					CorrelatedAllele: linked.CorrelatedAllele,
					Trait:            tr.Trait,
					OddsRatio:        tr.OddsRatio,
					RiskFrequency:    tr.RiskFrequency,
					Beta:             tr.Beta,
					BetaUnit:         tr.BetaUnit,
					BetaDirection:    tr.BetaDirection,
					PValue:           tr.PValue,
				})
			}
		}
	}
	return rows
}
