package processor

import (
	"encoding/json"
	"testing"

	"ldexplorer/models"
)

func decodeAssociations(t *testing.T, payload string) []models.Association {
	t.Helper()
	var out []models.Association
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		t.Fatalf("decode associations: %v", err)
	}
	return out
}

func TestSelectRiskSNPs(t *testing.T) {
	assocs := decodeAssociations(t, `[
  {"pvalue": 1e-10, "orPerCopyNum": 1.3, "riskFrequency": "0.2",
   "loci": [{"strongestRiskAlleles": [{"riskAlleleName": "rs1-T"}, {"riskAlleleName": "rs2-?"}]}]},
  {"pvalue": 0.5, "orPerCopyNum": 1.1,
   "loci": [{"strongestRiskAlleles": [{"riskAlleleName": "rs3-A"}]}]},
  {"pvalue": 0, "loci": [{"strongestRiskAlleles": [{"riskAlleleName": "rs4-A"}]}]},
  {"pvalue": null, "loci": [{"strongestRiskAlleles": [{"riskAlleleName": "rs5-A"}]}]},
  {"pvalue": 1e-3, "loci": [{"strongestRiskAlleles": [{"riskAlleleName": "rs6-G"}, {"riskAlleleName": "bad"}]}]},
  {"pvalue": 1e-4, "orPerCopyNum": 9.9, "loci": [{"strongestRiskAlleles": [{"riskAlleleName": "rs1-C"}]}]}
]`)

	got := SelectRiskSNPs(assocs, DefaultPValueThreshold)
	if len(got) != 2 {
		t.Fatalf("expected 2 SNPs, got %d: %+v", len(got), got)
	}

	first := got[0]
	if first.ID != "rs1" || first.RiskAllele != "T" || first.RiskFrequency != "0.2" || first.OddsRatio.Float64 != 1.3 || first.PValue != 1e-10 {
		t.Errorf("unexpected first SNP: %+v", first)
	}
	second := got[1]
	if second.ID != "rs6" || second.RiskFrequency != models.NotReported || second.OddsRatio.Valid {
		t.Errorf("unexpected second SNP: %+v", second)
	}
}

func TestSelectRiskSNPsNone(t *testing.T) {
	assocs := decodeAssociations(t, `[{"pvalue": 0.2, "loci": [{"strongestRiskAlleles": [{"riskAlleleName": "rs1-T"}]}]}]`)
	if got := SelectRiskSNPs(assocs, DefaultPValueThreshold); len(got) != 0 {
		t.Fatalf("expected no SNPs, got %+v", got)
	}
}

func TestFlatten(t *testing.T) {
	rows := Flatten(sampleReport())
	// rs1: rs10 has 3 correlated records, rs11 has 1; rs2: 1; rs3: 1; rs4: none
	if len(rows) != 6 {
		t.Fatalf("expected 6 rows, got %d", len(rows))
	}
	if rows[0].InputSNP != "rs1" || rows[0].LinkedRS != "rs10" || rows[0].Trait.Valid {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Trait.String != "Alzheimer's disease" || rows[1].CorrelatedAllele != "C" {
		t.Errorf("unexpected second row: %+v", rows[1])
	}
	if rows[len(rows)-1].InputSNP != "rs3" {
		t.Errorf("rows not ordered by SNP id: %+v", rows[len(rows)-1])
	}
}
