package scan

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ParallelScan runs one independent Orchestrator.Scan per exchange
// concurrently (each owning its own adapter/cache/gate), waits for all,
// and aggregates a performance breakdown, per spec §4.6. A failure on one
// exchange yields success=false for that exchange only; the scan as a
// whole continues.
func ParallelScan(ctx context.Context, orchestrators map[string]*Orchestrator, req Request) ParallelResult {
	start := time.Now()

	type outcome struct {
		exchange string
		result   Result
		err      error
		duration time.Duration
	}

	outcomes := make(chan outcome, len(orchestrators))
	var wg sync.WaitGroup
	for name, o := range orchestrators {
		wg.Add(1)
		go func(name string, o *Orchestrator) {
			defer wg.Done()
			s := time.Now()
			res, err := o.Scan(ctx, req)
			outcomes <- outcome{exchange: name, result: res, err: err, duration: time.Since(s)}
		}(name, o)
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var sequential time.Duration
	var all []Signal
	var perf []ExchangePerformance
	for oc := range outcomes {
		sequential += oc.duration
		p := ExchangePerformance{Exchange: oc.exchange, Duration: oc.duration}
		if oc.err != nil {
			p.Success = false
			p.Error = oc.err.Error()
		} else {
			p.Success = true
			p.SignalCount = len(oc.result.Signals)
			all = append(all, oc.result.Signals...)
		}
		perf = append(perf, p)
	}

	filterStart := time.Now()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CombinedScore > all[j].CombinedScore
	})
	filtering := time.Since(filterStart)

	parallelDuration := time.Since(start)
	speedup := 1.0
	if parallelDuration > 0 {
		speedup = float64(sequential) / float64(parallelDuration)
	}

	sort.Slice(perf, func(i, j int) bool { return perf[i].Exchange < perf[j].Exchange })

	return ParallelResult{
		Signals: all,
		Timing: ParallelTiming{
			ParallelDuration:    parallelDuration,
			SequentialEstimated: sequential,
			Speedup:             speedup,
			TimeSaved:           sequential - parallelDuration,
			Filtering:           filtering,
			PerExchange:         perf,
		},
	}
}
