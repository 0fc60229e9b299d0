package processor

import (
	"strings"

	"ldexplorer/models"
)

// Filter returns a pruned copy of report. The input is never modified.
//
// Entries with an odds ratio outside [MinOdds, MaxOdds] are dropped; entries
// without an odds ratio always pass. The correlated trait list of each linked
// SNP is narrowed by WithTrait and TraitKeyword, and linked SNPs (then
// entries) left empty are dropped. Non-correlated traits pass through as is.
func Filter(report models.LDReport, opts models.FilterOptions) models.LDReport {
	keyword := strings.ToLower(opts.TraitKeyword)
	out := make(models.LDReport)

	for id, entry := range report {
		if !oddsInRange(entry, opts) {
			continue
		}

		var linked []models.LinkedSNPReport
		for _, snp := range entry.LinkedSNPs {
			traits := filterTraits(snp.CorrelatedTraits, opts.WithTrait, keyword)
			if len(traits) == 0 {
				continue
			}
			cp := snp
			cp.CorrelatedTraits = traits
			cp.NonCorrelatedTraits = append([]models.TraitRecord(nil), snp.NonCorrelatedTraits...)
			linked = append(linked, cp)
		}
		if len(linked) == 0 {
			continue
		}

		entry.LinkedSNPs = linked
		out[id] = entry
	}
	return out
}

func oddsInRange(entry models.ReportEntry, opts models.FilterOptions) bool {
	if !entry.OddsRatio.Valid {
		return true
	}
	or := entry.OddsRatio.Float64
	if opts.MaxOdds.Valid && or > opts.MaxOdds.Float64 {
		return false
	}
	if opts.MinOdds.Valid && or < opts.MinOdds.Float64 {
		return false
	}
	return true
}

func filterTraits(traits []models.TraitRecord, withTrait bool, keyword string) []models.TraitRecord {
	out := make([]models.TraitRecord, 0, len(traits))
	for _, tr := range traits {
		if withTrait && !tr.Trait.Valid {
			continue
		}
		if keyword != "" && (!tr.Trait.Valid || !strings.Contains(strings.ToLower(tr.Trait.String), keyword)) {
			continue
		}
		out = append(out, tr)
	}
	return out
}
