// Package pipeline runs the LD exploration: phenotype resolution, risk SNP
// selection, LD fan-out, allele orientation and trait back-annotation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ldexplorer/config"
	"ldexplorer/internal/metrics"
	"ldexplorer/logger"
	"ldexplorer/models"
	"ldexplorer/processor"
)

// TraitSearcher is the ontology search of the GWAS Catalog.
type TraitSearcher interface {
	SearchTraits(ctx context.Context, term string) ([]models.OntologyTrait, error)
}

type Options struct {
	MaxWorkers      int
	TraitWorkers    int
	VariantPrefix   string
	MatchCutoff     float64
	PValueThreshold float64
	GenomeBuild     string
	Window          int
	Statistic       string
	Threshold       float64
}

// OptionsFromConfig maps the pipeline, gwas and ldlink sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxWorkers:      cfg.Pipeline.MaxWorkers,
		TraitWorkers:    cfg.Pipeline.TraitWorkers,
		VariantPrefix:   cfg.Pipeline.VariantPrefix,
		MatchCutoff:     cfg.Pipeline.MatchCutoff,
		PValueThreshold: cfg.GWAS.PValueThreshold,
		GenomeBuild:     cfg.LDLink.GenomeBuild,
		Window:          cfg.LDLink.Window,
		Statistic:       cfg.LDLink.Statistic,
		Threshold:       cfg.LDLink.Threshold,
	}
}

// RunStats summarises the remote lookups of one run.
type RunStats struct {
	LD            LookupStats   `json:"ld"`
	Annotation    AnnotateStats `json:"annotation"`
	RiskSNPs      int           `json:"risk_snps"`
	LinkedSNPs    int           `json:"linked_snps"`
	DurationMilli int64         `json:"duration_ms"`
}

type Result struct {
	RunID      string            `json:"run_id"`
	Match      models.TraitMatch `json:"match"`
	Population string            `json:"population"`
	RiskSNPs   []models.RiskSNP  `json:"risk_snps"`
	Report     models.LDReport   `json:"report"`
	Stats      RunStats          `json:"stats"`
	StartedAt  time.Time         `json:"started_at"`
}

// Explorer wires the stages together. It holds no per-run state and may be
// shared between concurrent runs.
type Explorer struct {
	traits    TraitSearcher
	assocs    AssociationSource
	fetcher   *Fetcher
	annotator *Annotator
	opts      Options
	log       *logger.Log
}

func NewExplorer(traits TraitSearcher, assocs AssociationSource, ld LDSource, opts Options) *Explorer {
	if opts.MatchCutoff <= 0 {
		opts.MatchCutoff = processor.DefaultMatchCutoff
	}
	if opts.PValueThreshold <= 0 {
		opts.PValueThreshold = processor.DefaultPValueThreshold
	}
	if opts.Statistic == "" {
		opts.Statistic = config.StatisticR2
	}

	query := models.LDQuery{
		GenomeBuild: opts.GenomeBuild,
		Window:      opts.Window,
		Statistic:   opts.Statistic,
		Threshold:   opts.Threshold,
	}
	return &Explorer{
		traits:    traits,
		assocs:    assocs,
		fetcher:   NewFetcher(ld, opts.MaxWorkers, opts.VariantPrefix, query),
		annotator: NewAnnotator(assocs, opts.TraitWorkers),
		opts:      opts,
		log:       logger.GetLogger(),
	}
}

// ResolvePhenotype maps a free-text phenotype to its closest EFO trait.
func (e *Explorer) ResolvePhenotype(ctx context.Context, phenotype string) (models.TraitMatch, error) {
	term := strings.TrimSpace(phenotype)
	if term == "" {
		return models.TraitMatch{}, fmt.Errorf("%w: phenotype is empty", models.ErrInvalidInput)
	}

	candidates, err := e.traits.SearchTraits(ctx, term)
	if err != nil {
		return models.TraitMatch{}, fmt.Errorf("resolve phenotype %q: %w", phenotype, err)
	}

	match, ok := processor.BestMatch(term, candidates, e.opts.MatchCutoff)
	if !ok {
		return models.TraitMatch{}, fmt.Errorf("%w: %q", models.ErrPhenotypeNotFound, phenotype)
	}
	match.UserInput = phenotype
	return match, nil
}

// RiskSNPs returns the significant risk SNPs of an EFO trait.
func (e *Explorer) RiskSNPs(ctx context.Context, efoID string) ([]models.RiskSNP, error) {
	assocs, err := e.assocs.AssociationsByTrait(ctx, efoID)
	if err != nil {
		return nil, fmt.Errorf("risk SNPs for %s: %w", efoID, err)
	}
	snps := processor.SelectRiskSNPs(assocs, e.opts.PValueThreshold)
	if len(snps) == 0 {
		return nil, fmt.Errorf("%w for %s (p < %g)", models.ErrNoSignificantSNPs, efoID, e.opts.PValueThreshold)
	}
	return snps, nil
}

// Run executes the whole exploration for phenotype in population. Failures to
// resolve the phenotype or its risk SNPs are returned; failures of single LD
// or annotation lookups only shrink the report.
func (e *Explorer) Run(ctx context.Context, phenotype, population string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := e.log.WithComponent("explorer").WithFields(logger.Fields{
		"run_id":     runID,
		"phenotype":  phenotype,
		"population": population,
	})

	res, err := e.run(ctx, log, runID, phenotype, population)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveRun(runStatus(err), elapsed)
		log.WithError(err).Error("exploration failed")
		return nil, err
	}

	res.StartedAt = start.UTC()
	res.Stats.DurationMilli = elapsed.Milliseconds()
	metrics.ObserveRun(metrics.StatusOK, elapsed)
	e.emitSummary(res)
	return res, nil
}

func (e *Explorer) run(ctx context.Context, log *logger.Entry, runID, phenotype, population string) (*Result, error) {
	pop, ok := models.NormalizePopulation(population)
	if !ok {
		return nil, fmt.Errorf("%w: unknown population %q", models.ErrInvalidInput, population)
	}

	match, err := e.ResolvePhenotype(ctx, phenotype)
	if err != nil {
		return nil, err
	}
	log.WithFields(logger.Fields{"matched_trait": match.MatchedTrait, "efo_id": match.EFOID}).Info("phenotype resolved")

	snps, err := e.RiskSNPs(ctx, match.EFOID)
	if err != nil {
		return nil, err
	}
	logger.LogDataFlowEntry(log, "gwas_catalog", "ld_fetcher", len(snps), "risk_snps")

	results, ldStats := e.fetcher.FetchAll(ctx, snps, pop)
	transformed := processor.Transform(results)
	linked := 0
	for _, t := range transformed {
		linked += len(t.Linked)
	}
	logger.LogDataFlowEntry(log, "transformer", "annotator", linked, "linked_snps")

	report, annStats := e.annotator.Annotate(ctx, transformed)

	return &Result{
		RunID:      runID,
		Match:      match,
		Population: pop,
		RiskSNPs:   snps,
		Report:     report,
		Stats: RunStats{
			LD:         ldStats,
			Annotation: annStats,
			RiskSNPs:   len(snps),
			LinkedSNPs: linked,
		},
	}, nil
}

func runStatus(err error) string {
	switch {
	case errors.Is(err, models.ErrPhenotypeNotFound), errors.Is(err, models.ErrNoSignificantSNPs), errors.Is(err, models.ErrInvalidInput):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return metrics.StatusFailed
}

func (e *Explorer) emitSummary(res *Result) {
	fields := logger.Fields{
		"run_id":     res.RunID,
		"efo_id":     res.Match.EFOID,
		"population": res.Population,
	}
	metrics.Emit(e.log, "explorer", "risk_snps", res.Stats.RiskSNPs, "gauge", fields)
	metrics.Emit(e.log, "explorer", "ld_lookups", res.Stats.LD.OK+res.Stats.LD.Failed, "counter", fields)
	metrics.Emit(e.log, "explorer", "ld_lookup_failures", res.Stats.LD.Failed, "counter", fields)
	metrics.Emit(e.log, "explorer", "association_lookups", res.Stats.Annotation.Associations.OK+res.Stats.Annotation.Associations.Failed, "counter", fields)
	metrics.Emit(e.log, "explorer", "trait_lookups", res.Stats.Annotation.Traits.OK+res.Stats.Annotation.Traits.Failed, "counter", fields)
	metrics.Emit(e.log, "explorer", "report_entries", len(res.Report), "gauge", fields)
}
