package main

import (
	"flag"
	"io"
	"testing"

	"ldexplorer/config"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("ldexplorer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(newFlagSet(), []string{
		"-phenotype", "type 2 diabetes",
		"-population", "CEU",
		"-min-odds", "1.5",
		"-with-trait",
		"-trait-filter", "glucose",
		"-format", "CSV",
		"-workers", "4",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f := opts.filter()
	if !f.MinOdds.Valid || f.MinOdds.Float64 != 1.5 {
		t.Errorf("min odds not set: %+v", f.MinOdds)
	}
	if f.MaxOdds.Valid {
		t.Errorf("max odds should stay null")
	}
	if !f.WithTrait || f.TraitKeyword != "glucose" {
		t.Errorf("unexpected filter: %+v", f)
	}

	cfg := config.Default()
	if err := opts.apply(&cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Output.Format != "csv" || cfg.Pipeline.MaxWorkers != 4 {
		t.Errorf("overrides not applied: %+v %+v", cfg.Output, cfg.Pipeline)
	}
}

func TestParseFlagsRejectsBadOdds(t *testing.T) {
	if _, err := parseFlags(newFlagSet(), []string{"-max-odds", "high"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyRejectsInvalidFormat(t *testing.T) {
	opts, err := parseFlags(newFlagSet(), []string{"-format", "xml"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg := config.Default()
	if err := opts.apply(&cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestApplyThreshold(t *testing.T) {
	defaults := config.Default()
	cases := []struct {
		name string
		args []string
		want float64
	}{
		{"unset keeps config", nil, defaults.LDLink.Threshold},
		{"zero overrides", []string{"-threshold", "0"}, 0},
		{"value overrides", []string{"-threshold", "0.5"}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := parseFlags(newFlagSet(), tc.args)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			cfg := config.Default()
			if err := opts.apply(&cfg); err != nil {
				t.Fatalf("apply: %v", err)
			}
			if cfg.LDLink.Threshold != tc.want {
				t.Fatalf("threshold = %v, want %v", cfg.LDLink.Threshold, tc.want)
			}
		})
	}
}
