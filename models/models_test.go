package models

import (
	"encoding/json"
	"testing"
)

func TestAssociationDecode(t *testing.T) {
	payload := `{
  "pvalue": 3e-8,
  "orPerCopyNum": 1.21,
  "betaNum": null,
  "betaUnit": null,
  "riskFrequency": "0.27",
  "loci": [{"strongestRiskAlleles": [
    {"riskAlleleName": "rs429358-C"},
    {"riskAlleleName": "rs1-A-B"},
    {"riskAlleleName": "chr19:44908684"}
  ]}],
  "_links": {"efoTraits": {"href": "http://gwas/associations/1/efoTraits"}}
}`
	var a Association
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !a.PValue.Valid || a.PValue.Float64 != 3e-8 {
		t.Errorf("unexpected pvalue: %+v", a.PValue)
	}
	if !a.OddsRatio.Valid || a.OddsRatio.Float64 != 1.21 {
		t.Errorf("unexpected odds ratio: %+v", a.OddsRatio)
	}
	if a.Beta.Valid || a.BetaUnit.Valid {
		t.Errorf("expected null beta fields: %+v %+v", a.Beta, a.BetaUnit)
	}
	if a.RiskFrequency.String() != "0.27" {
		t.Errorf("unexpected frequency: %s", a.RiskFrequency)
	}
	if a.Links.EFOTraits.Href != "http://gwas/associations/1/efoTraits" {
		t.Errorf("unexpected link: %s", a.Links.EFOTraits.Href)
	}

	pairs := a.RiskAlleles()
	if len(pairs) != 1 || pairs[0].SNPID != "rs429358" || pairs[0].Allele != "C" {
		t.Fatalf("unexpected risk alleles: %+v", pairs)
	}
}

func TestRiskFrequencyForms(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"riskFrequency": 0.5}`, "0.5"},
		{`{"riskFrequency": "NR"}`, "NR"},
		{`{"riskFrequency": null}`, NotReported},
		{`{}`, NotReported},
	}
	for _, c := range cases {
		var a Association
		if err := json.Unmarshal([]byte(c.in), &a); err != nil {
			t.Fatalf("unmarshal %s: %v", c.in, err)
		}
		if got := a.RiskFrequency.String(); got != c.want {
			t.Errorf("%s: got %q want %q", c.in, got, c.want)
		}
	}

	if RiskFrequency("0.3").Float().Float64 != 0.3 {
		t.Errorf("numeric frequency not parsed")
	}
	if RiskFrequency("NR").Float().Valid {
		t.Errorf("NR should not parse as number")
	}
}

func TestToTraitRecord(t *testing.T) {
	var a Association
	if err := json.Unmarshal([]byte(`{"pvalue": 1e-5, "orPerCopyNum": 2.0, "betaDirection": "increase"}`), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rec := a.ToTraitRecord("T", "LDL cholesterol")
	if rec.Allele != "T" || rec.Trait.String != "LDL cholesterol" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.RiskFrequency.String != NotReported {
		t.Errorf("expected NR frequency, got %+v", rec.RiskFrequency)
	}
	if rec.BetaDirection.String != "increase" || rec.OddsRatio.Float64 != 2.0 {
		t.Errorf("association fields not carried: %+v", rec)
	}
}

func TestPlaceholderEncodesNulls(t *testing.T) {
	data, err := json.Marshal(PlaceholderTrait("G"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"allele":"G","trait":null,"risk_frequency":null,"odds_ratio":null,"beta":null,"beta_unit":null,"beta_direction":null,"pvalue":null}`
	if string(data) != want {
		t.Fatalf("got %s\nwant %s", data, want)
	}
}

func TestReportKeysSorted(t *testing.T) {
	r := LDReport{"rs9": {}, "rs1": {}, "rs5": {}}
	keys := r.Keys()
	if len(keys) != 3 || keys[0] != "rs1" || keys[1] != "rs5" || keys[2] != "rs9" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestNormalizePopulation(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"ceu", "CEU", true},
		{" EUR ", "EUR", true},
		{"ceu+yri", "CEU+YRI", true},
		{"XYZ", "", false},
		{"", "", false},
		{"CEU+", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizePopulation(c.in)
		if got != c.want || ok != c.ok {
			t.Errorf("NormalizePopulation(%q) = %q, %v; want %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
	if len(PopulationCodes()) != len(Populations) {
		t.Errorf("PopulationCodes incomplete")
	}
}
