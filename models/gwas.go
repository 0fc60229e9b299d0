package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"gopkg.in/guregu/null.v3"
)

// NotReported is the GWAS Catalog marker for a missing risk allele frequency.
const NotReported = "NR"

// OntologyTrait is one EFO trait returned by the ontology search.
type OntologyTrait struct {
	Trait     string `json:"trait"`
	ShortForm string `json:"shortForm"`
}

// TraitMatch is the resolved phenotype.
type TraitMatch struct {
	UserInput    string `json:"user_input"`
	MatchedTrait string `json:"matched_trait"`
	EFOID        string `json:"efo_id"`
}

// RiskFrequency accepts the catalog's frequency as a JSON string or number.
// Null and missing values read back as NotReported through String.
type RiskFrequency string

func (f *RiskFrequency) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = RiskFrequency(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = RiskFrequency(n.String())
	return nil
}

func (f RiskFrequency) String() string {
	if f == "" {
		return NotReported
	}
	return string(f)
}

// Float returns the frequency as a number when it is one.
func (f RiskFrequency) Float() null.Float {
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

type RiskAlleleRef struct {
	RiskAlleleName string `json:"riskAlleleName"`
}

type Locus struct {
	StrongestRiskAlleles []RiskAlleleRef `json:"strongestRiskAlleles"`
}

type Link struct {
	Href string `json:"href"`
}

type AssociationLinks struct {
	EFOTraits Link `json:"efoTraits"`
}

// Association is one GWAS Catalog association resource.
type Association struct {
	PValue        null.Float       `json:"pvalue"`
	OddsRatio     null.Float       `json:"orPerCopyNum"`
	Beta          null.Float       `json:"betaNum"`
	BetaUnit      null.String      `json:"betaUnit"`
	BetaDirection null.String      `json:"betaDirection"`
	RiskFrequency RiskFrequency    `json:"riskFrequency"`
	Loci          []Locus          `json:"loci"`
	Links         AssociationLinks `json:"_links"`
}

// RiskAlleles returns every well-formed "ID-ALLELE" pair of the association's
// loci, in order. Names without exactly one '-' are skipped.
func (a Association) RiskAlleles() []AllelePair {
	var out []AllelePair
	for _, locus := range a.Loci {
		for _, ref := range locus.StrongestRiskAlleles {
			pair, ok := ParseRiskAlleleName(ref.RiskAlleleName)
			if !ok {
				continue
			}
			out = append(out, pair)
		}
	}
	return out
}

// AllelePair is a parsed risk allele name.
type AllelePair struct {
	SNPID  string
	Allele string
}

func ParseRiskAlleleName(name string) (AllelePair, bool) {
	parts := strings.Split(name, "-")
	if len(parts) != 2 {
		return AllelePair{}, false
	}
	return AllelePair{SNPID: strings.TrimSpace(parts[0]), Allele: strings.TrimSpace(parts[1])}, true
}

// ToTraitRecord converts the association into a trait record for allele.
func (a Association) ToTraitRecord(allele, trait string) TraitRecord {
	return TraitRecord{
		Allele:        allele,
		Trait:         null.NewString(trait, trait != ""),
		RiskFrequency: null.StringFrom(a.RiskFrequency.String()),
		OddsRatio:     a.OddsRatio,
		Beta:          a.Beta,
		BetaUnit:      a.BetaUnit,
		BetaDirection: a.BetaDirection,
		PValue:        a.PValue,
	}
}
