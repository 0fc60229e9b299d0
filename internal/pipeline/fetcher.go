package pipeline

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ldexplorer/internal/metrics"
	"ldexplorer/logger"
	"ldexplorer/models"
)

// LDSource is the LD proxy service.
type LDSource interface {
	Proxy(ctx context.Context, q models.LDQuery) ([]models.LinkedVariant, error)
}

// LookupStats counts remote lookups by outcome.
type LookupStats struct {
	OK      int64 `json:"ok"`
	Failed  int64 `json:"failed"`
	Skipped int64 `json:"skipped"`
}

// Fetcher expands risk SNPs to their LD partners with a bounded worker pool.
type Fetcher struct {
	ld      LDSource
	workers int
	prefix  string
	query   models.LDQuery
	log     *logger.Log
}

// NewFetcher uses query as the template for every lookup; its Variant and
// Population are filled per call.
func NewFetcher(ld LDSource, workers int, variantPrefix string, query models.LDQuery) *Fetcher {
	if workers <= 0 {
		workers = 10
	}
	return &Fetcher{
		ld:      ld,
		workers: workers,
		prefix:  variantPrefix,
		query:   query,
		log:     logger.GetLogger(),
	}
}

// FetchAll returns one result per SNP, in completion order. SNPs whose id
// lacks the variant prefix get an empty list without a lookup, and a failed
// lookup yields an empty list instead of aborting the batch.
func (f *Fetcher) FetchAll(ctx context.Context, snps []models.RiskSNP, population string) ([]models.LDResult, LookupStats) {
	log := f.log.WithComponent("ld_fetcher").WithFields(logger.Fields{
		"population": population,
		"snps":       len(snps),
		"workers":    f.workers,
	})
	start := time.Now()

	var (
		mu      sync.Mutex
		results = make([]models.LDResult, 0, len(snps))
		stats   LookupStats
		g       errgroup.Group
	)
	g.SetLimit(f.workers)

	for _, snp := range snps {
		snp := snp
		g.Go(func() error {
			res := models.LDResult{SNP: snp}

			if f.prefix != "" && !strings.HasPrefix(snp.ID, f.prefix) {
				atomic.AddInt64(&stats.Skipped, 1)
				metrics.IncrementLookup(metrics.ServiceLDLink, metrics.StatusSkipped)
				log.WithField("snp", snp.ID).Debug("not an rs id, LD lookup skipped")
			} else {
				q := f.query
				q.Variant = snp.ID
				q.Population = population

				linked, err := f.ld.Proxy(ctx, q)
				if err != nil {
					atomic.AddInt64(&stats.Failed, 1)
					metrics.IncrementLookup(metrics.ServiceLDLink, metrics.StatusFailed)
					logger.RecordLookup("ldlink:failed")
					log.WithError(err).WithField("snp", snp.ID).Warn("LD lookup failed")
				} else {
					atomic.AddInt64(&stats.OK, 1)
					metrics.IncrementLookup(metrics.ServiceLDLink, metrics.StatusOK)
					logger.RecordLookup("ldlink:ok")
					res.Linked = linked
				}
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logger.LogPerformanceEntry(log, "ld_fetcher", "fetch_all", time.Since(start), logger.Fields{
		"ok":      stats.OK,
		"failed":  stats.Failed,
		"skipped": stats.Skipped,
	})
	return results, stats
}
