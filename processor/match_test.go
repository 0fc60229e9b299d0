package processor

import (
	"testing"

	"ldexplorer/models"
)

func TestBestMatch(t *testing.T) {
	traits := []models.OntologyTrait{
		{Trait: "Alzheimer's disease", ShortForm: "MONDO_0004975"},
		{Trait: "Alzheimer disease biomarker measurement", ShortForm: "EFO_0006514"},
		{Trait: "type 2 diabetes mellitus", ShortForm: "MONDO_0005148"},
		{Trait: "breast carcinoma", ShortForm: "EFO_0000305"},
	}
	cases := []struct {
		term   string
		wantID string
		wantOK bool
	}{
		{"Alzheimer's disease", "MONDO_0004975", true},
		{"  alzheimers disease ", "MONDO_0004975", true},
		{"type 2 diabetes", "MONDO_0005148", true},
		{"xyzzy", "", false},
	}
	for _, c := range cases {
		got, ok := BestMatch(c.term, traits, DefaultMatchCutoff)
		if ok != c.wantOK {
			t.Fatalf("%q: ok = %v, want %v", c.term, ok, c.wantOK)
		}
		if got.EFOID != c.wantID {
			t.Errorf("%q: got %s, want %s", c.term, got.EFOID, c.wantID)
		}
		if ok && got.UserInput != c.term {
			t.Errorf("%q: user input not kept: %q", c.term, got.UserInput)
		}
	}
}

func TestBestMatchOfficialName(t *testing.T) {
	got, ok := BestMatch("ASTHMA", []models.OntologyTrait{{Trait: "Asthma", ShortForm: "MONDO_0004979"}}, DefaultMatchCutoff)
	if !ok || got.MatchedTrait != "Asthma" {
		t.Fatalf("unexpected match: %+v ok=%v", got, ok)
	}
}

func TestBestMatchDuplicateNamesLaterWins(t *testing.T) {
	traits := []models.OntologyTrait{
		{Trait: "Asthma", ShortForm: "EFO_1"},
		{Trait: " asthma ", ShortForm: "EFO_2"},
	}
	got, ok := BestMatch("asthma", traits, DefaultMatchCutoff)
	if !ok || got.EFOID != "EFO_2" {
		t.Fatalf("expected later duplicate, got %+v", got)
	}
}

func TestBestMatchTiePrefersGreaterName(t *testing.T) {
	traits := []models.OntologyTrait{
		{Trait: "abd", ShortForm: "EFO_D"},
		{Trait: "abe", ShortForm: "EFO_E"},
	}
	for i := 0; i < 20; i++ {
		got, ok := BestMatch("abc", traits, DefaultMatchCutoff)
		if !ok || got.EFOID != "EFO_E" {
			t.Fatalf("expected EFO_E on tie, got %+v", got)
		}
	}
}

func TestBestMatchEmptyCandidates(t *testing.T) {
	if _, ok := BestMatch("asthma", nil, DefaultMatchCutoff); ok {
		t.Fatalf("expected no match without candidates")
	}
}
