package matching

import (
	"errors"

	"soa-reconciliation-service/internal/canonical"
)

// RunState tracks the orchestrator lifecycle for one reconciliation run.
type RunState string

const (
	StateInitialized RunState = "INITIALIZED"
	StateMatching    RunState = "MATCHING"
	StateAggregated  RunState = "AGGREGATED"
	StateDone        RunState = "DONE"
)

// ErrRunConsumed is returned when Run is called on an orchestrator that has
// already aggregated a report. Reports are frozen after aggregation; a new
// run requires a new orchestrator.
var ErrRunConsumed = errors.New("reconciliation run already aggregated")

// LineOutcome pairs a successfully matched line with its match result.
type LineOutcome struct {
	Line   canonical.SoaLine
	Result MatchResult
}

// Summary aggregates run counts for reporting.
type Summary struct {
	TotalLines        int `json:"total_lines"`
	Matched           int `json:"matched"`
	Unmatched         int `json:"unmatched"`
	MalformedLines    int `json:"malformed_lines"`
	MalformedInvoices int `json:"malformed_invoices"`
	PoolRemaining     int `json:"pool_remaining"`
}

// Report is the frozen aggregate of one statement-to-ledger run.
type Report struct {
	Matches       []LineOutcome
	Discrepancies []Discrepancy
	Summary       Summary
}

// Orchestrator drives one reconciliation run: it adapts raw records, invokes
// the engine per line in statement order, retires matched invoices from the
// pool and aggregates the report. Each run owns its pool exclusively; nothing
// here coordinates across concurrent runs.
type Orchestrator struct {
	engine *Engine
	state  RunState
}

func NewOrchestrator(engine *Engine) *Orchestrator {
	return &Orchestrator{engine: engine, state: StateInitialized}
}

func (o *Orchestrator) State() RunState {
	return o.state
}

// Run processes every SOA line in the supplied order against the invoice
// pool. Malformed records degrade to error discrepancies and the run
// continues; no single line aborts the whole run. An invoice consumed by one
// line is never offered to a later line. The returned report is frozen.
func (o *Orchestrator) Run(rawLines []canonical.RawSoaLineRecord, rawInvoices []canonical.RawInvoiceRecord, opts Options) (*Report, error) {
	if o.state != StateInitialized {
		return nil, ErrRunConsumed
	}
	o.state = StateMatching

	report := &Report{}
	report.Summary.TotalLines = len(rawLines)

	pool := make([]*canonical.Invoice, 0, len(rawInvoices))
	for _, raw := range rawInvoices {
		inv, err := canonical.AdaptInvoice(raw)
		if err != nil {
			report.Discrepancies = append(report.Discrepancies, *shapeDiscrepancy("", raw.Ref, err))
			report.Summary.MalformedInvoices++
			continue
		}
		pool = append(pool, &inv)
	}

	for _, raw := range rawLines {
		line, err := canonical.AdaptSoaLine(raw)
		if err != nil {
			report.Discrepancies = append(report.Discrepancies, *shapeDiscrepancy(raw.Ref, "", err))
			report.Summary.MalformedLines++
			report.Summary.Unmatched++
			continue
		}

		res := o.engine.MatchLine(line, pool, opts)
		if res.Matched() {
			pool = removeInvoice(pool, res.Invoice)
			report.Matches = append(report.Matches, LineOutcome{Line: line, Result: res})
			report.Summary.Matched++
			if res.Candidates > 1 {
				report.Discrepancies = append(report.Discrepancies, *duplicateCandidate(line, res))
			}
		} else {
			report.Summary.Unmatched++
		}

		if d := Classify(line, res); d != nil {
			report.Discrepancies = append(report.Discrepancies, *d)
		}
	}

	report.Summary.PoolRemaining = len(pool)
	o.state = StateAggregated
	return report, nil
}

func removeInvoice(pool []*canonical.Invoice, inv *canonical.Invoice) []*canonical.Invoice {
	for i, candidate := range pool {
		if candidate == inv {
			return append(pool[:i], pool[i+1:]...)
		}
	}
	return pool
}
