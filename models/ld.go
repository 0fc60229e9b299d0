package models

import (
	"sort"

	"gopkg.in/guregu/null.v3"
)

// RiskSNP is a variant significantly associated with the queried phenotype.
type RiskSNP struct {
	ID            string     `json:"id"`
	RiskAllele    string     `json:"risk_allele"`
	RiskFrequency string     `json:"risk_frequency"`
	OddsRatio     null.Float `json:"odds_ratio"`
	PValue        float64    `json:"pvalue"`
}

// LDQuery describes one LD proxy lookup.
type LDQuery struct {
	Variant     string
	Population  string
	GenomeBuild string
	Window      int
	Statistic   string // "r2" or "d"
	Threshold   float64
}

// LinkedVariant is one row of the LD proxy table.
type LinkedVariant struct {
	RSID              string  `json:"rs"`
	Coord             string  `json:"coord"`
	Alleles           string  `json:"alleles"`
	MAF               float64 `json:"maf"`
	Distance          int     `json:"distance"`
	DPrime            float64 `json:"dprime"`
	R2                float64 `json:"r2"`
	CorrelatedAlleles string  `json:"correlated_alleles"`
	FORGEdb           string  `json:"forgedb"`
	RegulomeDB        string  `json:"regulomedb"`
	Function          string  `json:"function"`
}

// LDResult pairs a risk SNP with its raw LD partners.
type LDResult struct {
	SNP    RiskSNP
	Linked []LinkedVariant
}

// TransformedLinkedSNP is a linked variant with its alleles oriented to the
// risk allele of the originating SNP.
type TransformedLinkedSNP struct {
	RSID                string      `json:"rs"`
	CorrelatedAllele    string      `json:"correlated_allele"`
	NonCorrelatedAllele null.String `json:"non_correlated_allele"`
	R2                  float64     `json:"r2"`
}

type TransformedEntry struct {
	SNP    RiskSNP
	Linked []TransformedLinkedSNP
}

// TraitRecord is a trait found for an allele of a linked SNP. A record with
// a null Trait is the placeholder seeded into every slot.
type TraitRecord struct {
	Allele        string      `json:"allele"`
	Trait         null.String `json:"trait"`
	RiskFrequency null.String `json:"risk_frequency"`
	OddsRatio     null.Float  `json:"odds_ratio"`
	Beta          null.Float  `json:"beta"`
	BetaUnit      null.String `json:"beta_unit"`
	BetaDirection null.String `json:"beta_direction"`
	PValue        null.Float  `json:"pvalue"`
}

// PlaceholderTrait returns the empty record for allele.
func PlaceholderTrait(allele string) TraitRecord {
	return TraitRecord{Allele: allele}
}

type LinkedSNPReport struct {
	RSID                string        `json:"linked_rs"`
	R2                  float64       `json:"r2"`
	CorrelatedAllele    string        `json:"correlated_allele"`
	NonCorrelatedAllele null.String   `json:"non_correlated_allele"`
	CorrelatedTraits    []TraitRecord `json:"correlated_allele_traits"`
	NonCorrelatedTraits []TraitRecord `json:"non_correlated_allele_traits"`
}

type ReportEntry struct {
	SNPID      string            `json:"rs"`
	RiskAllele string            `json:"risk_allele"`
	OddsRatio  null.Float        `json:"odds_ratio"`
	LinkedSNPs []LinkedSNPReport `json:"linked_snps"`
}

// LDReport maps a risk SNP id to its annotated LD partners.
type LDReport map[string]ReportEntry

// Keys returns the report's SNP ids in sorted order.
func (r LDReport) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReportRow is one flattened trait record of a report.
type ReportRow struct {
	InputSNP         string      `json:"input_snp"`
	RiskAllele       string      `json:"risk_allele"`
	LinkedRS         string      `json:"linked_rs"`
	R2               float64     `json:"r2"`
	CorrelatedAllele string      `json:"correlated_allele"`
	Trait            null.String `json:"trait"`
	OddsRatio        null.Float  `json:"odds_ratio"`
	RiskFrequency    null.String `json:"risk_frequency"`
	Beta             null.Float  `json:"beta"`
	BetaUnit         null.String `json:"beta_unit"`
	BetaDirection    null.String `json:"beta_direction"`
	PValue           null.Float  `json:"pvalue"`
}

// FilterOptions narrows a report. Zero value keeps everything.
type FilterOptions struct {
	MinOdds      null.Float
	MaxOdds      null.Float
	WithTrait    bool
	TraitKeyword string
}
