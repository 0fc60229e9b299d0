package logger

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type componentStat struct {
	warns  int64
	errors int64
}

var (
	components sync.Map // map[string]*componentStat
	lookups    sync.Map // map[string]*int64
)

func statFor(component string) *componentStat {
	v, _ := components.LoadOrStore(component, &componentStat{})
	return v.(*componentStat)
}

func recordWarn(component string) {
	atomic.AddInt64(&statFor(component).warns, 1)
}

func recordError(component string) {
	atomic.AddInt64(&statFor(component).errors, 1)
}

// RecordLookup counts one remote lookup under name (for example "ldlink:ok").
func RecordLookup(name string) {
	v, _ := lookups.LoadOrStore(name, new(int64))
	atomic.AddInt64(v.(*int64), 1)
}

// Counts returns the warn and error totals recorded for component.
func Counts(component string) (warns, errors int64) {
	v, ok := components.Load(component)
	if !ok {
		return 0, 0
	}
	cs := v.(*componentStat)
	return atomic.LoadInt64(&cs.warns), atomic.LoadInt64(&cs.errors)
}

// StartReport logs a runtime report every interval until ctx is done.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func snapshot() (map[string]map[string]int64, map[string]int64) {
	perComponent := map[string]map[string]int64{}
	components.Range(func(k, v any) bool {
		cs := v.(*componentStat)
		perComponent[k.(string)] = map[string]int64{
			"warns":  atomic.LoadInt64(&cs.warns),
			"errors": atomic.LoadInt64(&cs.errors),
		}
		return true
	})
	perLookup := map[string]int64{}
	lookups.Range(func(k, v any) bool {
		perLookup[k.(string)] = atomic.LoadInt64(v.(*int64))
		return true
	})
	return perComponent, perLookup
}

func logReport(ctx context.Context, log *Log) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	perComponent, perLookup := snapshot()

	heapMB := float64(mem.HeapAlloc) / 1024 / 1024
	log.WithComponent("report").WithFields(Fields{
		"goroutines":    runtime.NumGoroutine(),
		"heap_alloc_mb": heapMB,
		"gc_cycles":     mem.NumGC,
		"components":    perComponent,
		"lookups":       perLookup,
	}).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("HeapAllocMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(heapMB)},
		{MetricName: aws.String("Goroutines"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(runtime.NumGoroutine()))},
	}

	names := make([]string, 0, len(perLookup))
	for name := range perLookup {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("Lookups"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Lookup"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(perLookup[name])),
		})
	}
	for name, stats := range perComponent {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String("Warnings"),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{{Name: aws.String("Component"), Value: aws.String(name)}},
			Value:      aws.Float64(float64(stats["warns"])),
		})
	}

	publishMetrics(ctx, data)
}
