package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sawpanic/marketscanner/internal/adapter"
	"github.com/sawpanic/marketscanner/internal/continuous"
	"github.com/sawpanic/marketscanner/internal/scan"
	"github.com/sawpanic/marketscanner/internal/scoring"
	"github.com/sawpanic/marketscanner/internal/store"
)

// Deps is every component the control API reads from, kept as a plain
// struct (not an interface) so handlers can reach concrete fields (ranging
// over Orchestrators, reading Pipeline's buffers) without a wide
// interface. Built by internal/service.Scanner at wiring time.
type Deps struct {
	Exchanges      map[string]adapter.Exchange
	Orchestrators  map[string]*scan.Orchestrator
	Pipeline       *continuous.Pipeline
	Store          *store.DayFileStore
	Metrics        *Metrics
	Registry       *prometheus.Registry
	StartTime      time.Time
	DefaultSymbols []adapter.Symbol
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorWire{Error: message})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "no such endpoint: "+r.URL.Path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	adapters := make(map[string]string, len(s.deps.Exchanges))
	for name := range s.deps.Exchanges {
		adapters[name] = "ok"
	}
	writeJSON(w, http.StatusOK, HealthWire{
		Status:   "ok",
		UptimeS:  time.Since(s.deps.StartTime).Seconds(),
		Adapters: adapters,
	})
}

func (s *Server) resolveExchangeNames(raw interface{}) []string {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// handleScan implements POST /api/scanner/scan, per spec §6. A single
// exchange runs Orchestrator.Scan; an array of exchanges (or parallel=true
// with one exchange) runs scan.ParallelScan.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var body ScanRequestBody
	body.Timeframe = "medium"
	body.Exchange = "kucoinfutures"
	body.Signal = "all"
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	names := s.resolveExchangeNames(body.Exchange)
	if len(names) == 0 {
		writeError(w, http.StatusBadRequest, "exchange: must name at least one configured exchange")
		return
	}

	minStrength := 50.0
	if body.MinStrength != nil {
		minStrength = *body.MinStrength
	}
	fullAnalysis := true
	if body.FullAnalysis != nil {
		fullAnalysis = *body.FullAnalysis
	}
	req := scan.Request{
		Timeframe:     ResolveTimeframe(body.Timeframe),
		MarketType:    adapter.MarketFuture,
		QuoteCurrency: "USDT",
		SignalFilter:  body.Signal,
		MinStrength:   minStrength,
		FullAnalysis:  fullAnalysis,
		TopN:          50,
	}
	if req.SignalFilter == "" {
		req.SignalFilter = "all"
	}

	parallel := body.Parallel || len(names) > 1
	start := time.Now()

	if !parallel {
		o, ok := s.deps.Orchestrators[names[0]]
		if !ok {
			writeError(w, http.StatusBadRequest, "exchange: unknown exchange "+names[0])
			return
		}
		res, err := o.Scan(r.Context(), req)
		if err != nil {
			s.deps.Metrics.ObserveScan(names[0], "error", time.Since(start))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.deps.Metrics.ObserveScan(names[0], "ok", time.Since(start))
		s.recordScan(res.Signals)

		signals := make([]SignalWire, 0, len(res.Signals))
		for _, sig := range res.Signals {
			signals = append(signals, ToSignalWire(names[0], sig))
			s.deps.Metrics.IncSignalsEmitted(names[0], sig.Label.WireSignal())
		}
		writeJSON(w, http.StatusOK, ScanResponseWire{
			Signals: signals,
			Metadata: ScanMetadataWire{
				Count:           len(signals),
				Timeframe:       body.Timeframe,
				Exchange:        names[0],
				Timestamp:       time.Now().UTC().Format(time.RFC3339),
				DurationSeconds: time.Since(start).Seconds(),
				Performance: map[string]interface{}{
					"initialization_seconds": res.Timing.Initialization.Seconds(),
					"scan_execution_seconds": res.Timing.ScanExecution.Seconds(),
					"filtering_seconds":      res.Timing.Filtering.Seconds(),
					"total_seconds":          res.Timing.Total.Seconds(),
					"total_scanned":          res.TotalScanned,
					"dropped":                res.Dropped,
				},
				FiltersApplied: map[string]interface{}{
					"signal":       req.SignalFilter,
					"min_strength": minStrength,
				},
			},
		})
		return
	}

	orchestrators := make(map[string]*scan.Orchestrator, len(names))
	for _, name := range names {
		if o, ok := s.deps.Orchestrators[name]; ok {
			orchestrators[name] = o
		}
	}
	if len(orchestrators) == 0 {
		writeError(w, http.StatusBadRequest, "exchange: no configured exchange matched the request")
		return
	}
	result := scan.ParallelScan(r.Context(), orchestrators, req)
	s.recordScan(result.Signals)

	signals := make([]SignalWire, 0, len(result.Signals))
	for _, sig := range result.Signals {
		signals = append(signals, ToSignalWire(sig.Symbol.ExchangeID, sig))
	}

	perExchange := make([]map[string]interface{}, 0, len(result.Timing.PerExchange))
	for _, p := range result.Timing.PerExchange {
		perExchange = append(perExchange, map[string]interface{}{
			"exchange":     p.Exchange,
			"success":      p.Success,
			"duration":     p.Duration.Seconds(),
			"signal_count": p.SignalCount,
			"error":        p.Error,
		})
	}

	writeJSON(w, http.StatusOK, ScanResponseWire{
		Signals: signals,
		Metadata: ScanMetadataWire{
			Count:           len(signals),
			Timeframe:       body.Timeframe,
			Exchange:        names,
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
			DurationSeconds: result.Timing.ParallelDuration.Seconds(),
			Performance: map[string]interface{}{
				"per_exchange":         perExchange,
				"sequential_estimated": result.Timing.SequentialEstimated.Seconds(),
				"speedup":              result.Timing.Speedup,
				"time_saved":           result.Timing.TimeSaved.Seconds(),
			},
			FiltersApplied: map[string]interface{}{
				"signal":       req.SignalFilter,
				"min_strength": minStrength,
			},
		},
	})
}

// handleSignalsQuery implements GET /api/scanner/signals: the rows of the
// most recent scan (synchronous or continuous full scan), filtered.
func (s *Server) handleSignalsQuery(w http.ResponseWriter, r *http.Request) {
	signals, ok := s.latestScan()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no scan has completed yet")
		return
	}

	q := r.URL.Query()
	exchange := q.Get("exchange")
	timeframe := q.Get("timeframe")
	signalFilter := q.Get("signal")
	minStrength := parseFloatQuery(r, "minStrength", 0)

	out := make([]SignalWire, 0, len(signals))
	for _, sig := range signals {
		if timeframe != "" && string(sig.Timeframe) != timeframe {
			continue
		}
		if signalFilter != "" && signalFilter != "all" && sig.Label.WireSignal() != signalFilter {
			continue
		}
		if sig.Strength < minStrength {
			continue
		}
		ex := sig.Symbol.ExchangeID
		if exchange != "" && ex != exchange {
			continue
		}
		out = append(out, ToSignalWire(ex, sig))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"signals": out, "count": len(out)})
}

func (s *Server) handleContinuousStart(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pipeline.Running() {
		writeError(w, http.StatusServiceUnavailable, "continuous pipeline already running")
		return
	}
	if err := s.deps.Pipeline.Start(context.Background()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"running": true})
}

func (s *Server) handleContinuousStop(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Pipeline.Running() {
		writeError(w, http.StatusServiceUnavailable, "continuous pipeline is not running")
		return
	}
	s.deps.Pipeline.Stop()
	writeJSON(w, http.StatusOK, map[string]bool{"running": false})
}

func (s *Server) handleContinuousStatus(w http.ResponseWriter, r *http.Request) {
	ticks, signals := s.deps.Pipeline.BufferSizes()
	writeJSON(w, http.StatusOK, ContinuousStatusWire{
		Running:     s.deps.Pipeline.Running(),
		MarketState: s.deps.Pipeline.MarketState(),
		Buffers:     map[string]int{"ticks": ticks, "signals": signals},
	})
}

func (s *Server) handleContinuousSignals(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Pipeline.Running() {
		writeError(w, http.StatusServiceUnavailable, "continuous pipeline is not running")
		return
	}
	q := r.URL.Query()
	symbol := q.Get("symbol")
	timeframe := q.Get("timeframe")
	minScore := parseFloatQuery(r, "min_score", 0)
	limit := parseIntQuery(r, "limit", 50)

	var entries []continuous.SignalEntry
	for _, key := range s.deps.Pipeline.AllSignalKeys() {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		exchange, pair, tf := parts[0], parts[1], parts[2]
		if symbol != "" && pair != symbol {
			continue
		}
		if timeframe != "" && tf != timeframe {
			continue
		}
		for _, e := range s.deps.Pipeline.SignalBuffer(exchange, pair, adapter.Timeframe(tf)).Snapshot() {
			if e.CombinedScore >= minScore {
				entries = append(entries, e)
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CombinedScore != entries[j].CombinedScore {
			return entries[i].CombinedScore > entries[j].CombinedScore
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"signals": entries, "count": len(entries)})
}

func (s *Server) handleConfluence(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	minScore := parseFloatQuery(r, "min_score", 0)

	exchange := r.URL.Query().Get("exchange")
	if exchange == "" {
		for name := range s.deps.Exchanges {
			exchange = name
			break
		}
	}
	c := s.deps.Pipeline.QueryConfluence(exchange, symbol, minScore)
	writeJSON(w, http.StatusOK, ToConfluenceWire(c))
}

func (s *Server) handleMarketState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Pipeline.MarketState())
}

func (s *Server) handleTrainingData(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	days := parseIntQuery(r, "days", 7)
	exchange := r.URL.Query().Get("exchange")
	if exchange == "" {
		for name := range s.deps.Exchanges {
			exchange = name
			break
		}
	}

	ds, err := s.deps.Store.LoadRange(exchange, symbol, days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, TrainingDataWire{
		Symbol:     symbol,
		Signals:    ds.Signals,
		Clustering: ds.Clustering,
		OHLCV:      ds.OHLCV,
	})
}

func (s *Server) handlePositionCalculate(w http.ResponseWriter, r *http.Request) {
	var body PositionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.EntryPrice <= 0 {
		writeError(w, http.StatusBadRequest, "entryPrice: must be positive")
		return
	}
	if body.StopLoss <= 0 {
		writeError(w, http.StatusBadRequest, "stopLoss: must be positive")
		return
	}
	if body.Leverage <= 0 {
		body.Leverage = 1
	}
	pos := scoring.CalculatePositionSize(body.AccountBalance, body.RiskPerTrade, body.EntryPrice, body.StopLoss, body.Leverage, body.FeeRate)
	writeJSON(w, http.StatusOK, ToPositionWire(pos))
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.deps.Pipeline.Broadcast.ServeHTTP(w, r)
}
