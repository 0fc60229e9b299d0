package writer

import (
	"strconv"

	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"

	"ldexplorer/models"
	"ldexplorer/processor"
)

// csvRow mirrors models.ReportRow with nulls rendered as empty cells.
type csvRow struct {
	InputSNP         string `csv:"input_snp"`
	RiskAllele       string `csv:"risk_allele"`
	LinkedRS         string `csv:"linked_rs"`
	R2               string `csv:"r2"`
	CorrelatedAllele string `csv:"correlated_allele"`
	Trait            string `csv:"trait"`
	OddsRatio        string `csv:"odds_ratio"`
	RiskFrequency    string `csv:"risk_frequency"`
	Beta             string `csv:"beta"`
	BetaUnit         string `csv:"beta_unit"`
	BetaDirection    string `csv:"beta_direction"`
	PValue           string `csv:"pvalue"`
}

func formatFloat(f null.Float) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'g', -1, 64)
}

func toCSVRow(row models.ReportRow) *csvRow {
	return &csvRow{
		InputSNP:         row.InputSNP,
		RiskAllele:       row.RiskAllele,
		LinkedRS:         row.LinkedRS,
		R2:               strconv.FormatFloat(row.R2, 'g', -1, 64),
		CorrelatedAllele: row.CorrelatedAllele,
		Trait:            row.Trait.String,
		OddsRatio:        formatFloat(row.OddsRatio),
		RiskFrequency:    row.RiskFrequency.String,
		Beta:             formatFloat(row.Beta),
		BetaUnit:         row.BetaUnit.String,
		BetaDirection:    row.BetaDirection.String,
		PValue:           formatFloat(row.PValue),
	}
}

// EncodeCSV writes the flattened rows of report with a header line.
func EncodeCSV(report models.LDReport) ([]byte, error) {
	flat := processor.Flatten(report)
	rows := make([]*csvRow, 0, len(flat))
	for _, row := range flat {
		rows = append(rows, toCSVRow(row))
	}
	return gocsv.MarshalBytes(&rows)
}
