package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"ldexplorer/internal/metrics"
	"ldexplorer/logger"
	"ldexplorer/models"
)

// AssociationSource is the association side of the GWAS Catalog.
type AssociationSource interface {
	AssociationsByTrait(ctx context.Context, efoID string) ([]models.Association, error)
	AssociationsBySNP(ctx context.Context, rsID string) ([]models.Association, error)
	TraitsByLink(ctx context.Context, href string) ([]string, error)
}

// AnnotateStats counts the association and trait-link lookups of a run.
type AnnotateStats struct {
	Associations LookupStats `json:"associations"`
	Traits       LookupStats `json:"traits"`
	Dropped      int64       `json:"dropped_linked_snps"`
}

// Annotator attaches every trait a linked SNP is associated with to the
// allele slot it was reported for.
type Annotator struct {
	assocs  AssociationSource
	workers int
	log     *logger.Log
}

func NewAnnotator(assocs AssociationSource, workers int) *Annotator {
	if workers <= 0 {
		workers = 1
	}
	return &Annotator{assocs: assocs, workers: workers, log: logger.GetLogger()}
}

type annotateTask struct {
	entry int
	slot  int
	snp   models.TransformedLinkedSNP
}

// Annotate builds the report for entries. Linked SNPs keep their order within
// each entry. A linked SNP whose association lookup fails, or whose rs id is
// empty, is left out of the report. Trait-link lookups are coalesced within
// this call only, so concurrent runs never share an in-flight request.
func (a *Annotator) Annotate(ctx context.Context, entries []models.TransformedEntry) (models.LDReport, AnnotateStats) {
	log := a.log.WithComponent("annotator")
	start := time.Now()

	slots := make([][]*models.LinkedSNPReport, len(entries))
	var tasks []annotateTask
	for i, entry := range entries {
		slots[i] = make([]*models.LinkedSNPReport, len(entry.Linked))
		for j, snp := range entry.Linked {
			tasks = append(tasks, annotateTask{entry: i, slot: j, snp: snp})
		}
	}

	var (
		stats AnnotateStats
		links singleflight.Group
		g     errgroup.Group
	)
	g.SetLimit(a.workers)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			// each task owns its slot, so no lock is needed
			slots[task.entry][task.slot] = a.annotateLinked(ctx, &links, task.snp, &stats)
			return nil
		})
	}
	_ = g.Wait()

	report := make(models.LDReport, len(entries))
	for i, entry := range entries {
		re := models.ReportEntry{
			SNPID:      entry.SNP.ID,
			RiskAllele: entry.SNP.RiskAllele,
			OddsRatio:  entry.SNP.OddsRatio,
			LinkedSNPs: make([]models.LinkedSNPReport, 0, len(entry.Linked)),
		}
		for _, linked := range slots[i] {
			if linked == nil {
				stats.Dropped++
				continue
			}
			re.LinkedSNPs = append(re.LinkedSNPs, *linked)
		}
		report[entry.SNP.ID] = re
	}

	logger.LogPerformanceEntry(log, "annotator", "annotate", time.Since(start), logger.Fields{
		"linked_snps": len(tasks),
		"dropped":     stats.Dropped,
	})
	return report, stats
}

func (a *Annotator) annotateLinked(ctx context.Context, links *singleflight.Group, snp models.TransformedLinkedSNP, stats *AnnotateStats) *models.LinkedSNPReport {
	log := a.log.WithComponent("annotator").WithField("linked_rs", snp.RSID)
	if snp.RSID == "" {
		log.Debug("linked SNP without rs id dropped")
		return nil
	}

	assocs, err := a.assocs.AssociationsBySNP(ctx, snp.RSID)
	if err != nil {
		atomic.AddInt64(&stats.Associations.Failed, 1)
		metrics.IncrementLookup(metrics.ServiceAssociation, metrics.StatusFailed)
		logger.RecordLookup("gwas_association:failed")
		log.WithError(err).Warn("association lookup failed, linked SNP dropped")
		return nil
	}
	atomic.AddInt64(&stats.Associations.OK, 1)
	metrics.IncrementLookup(metrics.ServiceAssociation, metrics.StatusOK)
	logger.RecordLookup("gwas_association:ok")

	out := &models.LinkedSNPReport{
		RSID:                snp.RSID,
		R2:                  snp.R2,
		CorrelatedAllele:    snp.CorrelatedAllele,
		NonCorrelatedAllele: snp.NonCorrelatedAllele,
		CorrelatedTraits:    []models.TraitRecord{models.PlaceholderTrait(snp.CorrelatedAllele)},
		NonCorrelatedTraits: []models.TraitRecord{models.PlaceholderTrait(snp.NonCorrelatedAllele.String)},
	}

	for _, assoc := range assocs {
		pairs := assoc.RiskAlleles()
		if len(pairs) == 0 {
			continue
		}
		href := assoc.Links.EFOTraits.Href
		if href == "" {
			atomic.AddInt64(&stats.Traits.Skipped, 1)
			log.Debug("association without trait link skipped")
			continue
		}

		traits, err := a.traitNames(ctx, links, href)
		if err != nil {
			atomic.AddInt64(&stats.Traits.Failed, 1)
			metrics.IncrementLookup(metrics.ServiceTrait, metrics.StatusFailed)
			logger.RecordLookup("gwas_trait:failed")
			log.WithError(err).WithField("href", href).Warn("trait lookup failed")
			continue
		}
		atomic.AddInt64(&stats.Traits.OK, 1)
		metrics.IncrementLookup(metrics.ServiceTrait, metrics.StatusOK)
		logger.RecordLookup("gwas_trait:ok")

		for _, pair := range pairs {
			for _, name := range traits {
				rec := assoc.ToTraitRecord(pair.Allele, name)
				if pair.Allele == snp.CorrelatedAllele {
					out.CorrelatedTraits = append(out.CorrelatedTraits, rec)
				} else {
					out.NonCorrelatedTraits = append(out.NonCorrelatedTraits, rec)
				}
			}
		}
	}
	return out
}

// traitNames coalesces concurrent lookups of the same link.
func (a *Annotator) traitNames(ctx context.Context, links *singleflight.Group, href string) ([]string, error) {
	v, err, _ := links.Do(href, func() (interface{}, error) {
		return a.assocs.TraitsByLink(ctx, href)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}
