package matching

import (
	"strings"

	"github.com/shopspring/decimal"

	"soa-reconciliation-service/internal/canonical"
)

// Pass identifies which matching strategy accepted a line. Passes run in
// ascending order and the first success wins.
type Pass int

const (
	PassNone            Pass = 0
	PassExact           Pass = 1
	PassDateTolerance   Pass = 2
	PassFuzzyDoc        Pass = 3
	PassAmountTolerance Pass = 4
	PassPartial         Pass = 5
)

// MatchResult is the outcome of matching one SOA line against the pool.
// AmountDelta is line amount minus invoice total (passes 4 and 5); DayDelta
// is line date minus invoice date in calendar days (pass 2). Candidates
// counts how many pool invoices qualified under the winning pass.
type MatchResult struct {
	Invoice     *canonical.Invoice
	Pass        Pass
	AmountDelta decimal.Decimal
	DayDelta    int
	Candidates  int
}

// Matched reports whether any pass accepted the line.
func (r MatchResult) Matched() bool {
	return r.Invoice != nil
}

// Engine executes the ordered pass sequence for a single SOA line. It is
// pure and stateless apart from its tolerance configuration.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// MatchLine runs the passes strictly in order against the candidate pool and
// returns the first pass that qualifies at least one invoice. Within a pass
// the earliest qualifying invoice in pool order wins. Pass 5 is skipped
// entirely unless the line or the run-level options opt in.
func (e *Engine) MatchLine(line canonical.SoaLine, pool []*canonical.Invoice, opts Options) MatchResult {
	if res, ok := e.runPass(PassExact, line, pool, e.qualifiesExact); ok {
		return res
	}
	if res, ok := e.runPass(PassDateTolerance, line, pool, e.qualifiesDateTolerance); ok {
		return res
	}
	if res, ok := e.runPass(PassFuzzyDoc, line, pool, e.qualifiesFuzzyDoc); ok {
		return res
	}
	if res, ok := e.runPass(PassAmountTolerance, line, pool, e.qualifiesAmountTolerance); ok {
		return res
	}
	if partialEnabled(line, opts) {
		if res, ok := e.runPass(PassPartial, line, pool, e.qualifiesPartial); ok {
			return res
		}
	}
	return MatchResult{}
}

func (e *Engine) runPass(pass Pass, line canonical.SoaLine, pool []*canonical.Invoice, qualifies func(canonical.SoaLine, *canonical.Invoice) bool) (MatchResult, bool) {
	var winner *canonical.Invoice
	count := 0
	for _, inv := range pool {
		if !qualifies(line, inv) {
			continue
		}
		if winner == nil {
			winner = inv
		}
		count++
	}
	if winner == nil {
		return MatchResult{}, false
	}

	res := MatchResult{Invoice: winner, Pass: pass, Candidates: count}
	switch pass {
	case PassDateTolerance:
		res.DayDelta = dayDelta(line, winner)
	case PassAmountTolerance, PassPartial:
		res.AmountDelta = line.Amount.Sub(winner.TotalAmount)
	}
	return res, true
}

// partialEnabled gates pass 5. Any one of the three opt-in signals suffices;
// with none present the pass never executes.
func partialEnabled(line canonical.SoaLine, opts Options) bool {
	return line.AllowPartial || line.MatchMode == canonical.MatchModePartial || opts.AllowPartial
}

func (e *Engine) qualifiesExact(line canonical.SoaLine, inv *canonical.Invoice) bool {
	return docEqual(line.DocNumber, inv.InvoiceNumber) &&
		line.Amount.Equal(inv.TotalAmount) &&
		line.Currency == inv.Currency &&
		datesEqualOrAbsent(line, inv)
}

func (e *Engine) qualifiesDateTolerance(line canonical.SoaLine, inv *canonical.Invoice) bool {
	if !docEqual(line.DocNumber, inv.InvoiceNumber) ||
		!line.Amount.Equal(inv.TotalAmount) ||
		line.Currency != inv.Currency {
		return false
	}
	if line.Date == nil || inv.InvoiceDate == nil {
		// An absent date already satisfies pass 1; there is no delta to
		// tolerate here.
		return false
	}
	days := dayDelta(line, inv)
	if days < 0 {
		days = -days
	}
	return days <= e.cfg.DateToleranceDays
}

func (e *Engine) qualifiesFuzzyDoc(line canonical.SoaLine, inv *canonical.Invoice) bool {
	return fuzzyDocEqual(line.DocNumber, inv.InvoiceNumber) &&
		line.Amount.Equal(inv.TotalAmount) &&
		line.Currency == inv.Currency
}

func (e *Engine) qualifiesAmountTolerance(line canonical.SoaLine, inv *canonical.Invoice) bool {
	if !docEqual(line.DocNumber, inv.InvoiceNumber) || line.Currency != inv.Currency {
		return false
	}
	diff := line.Amount.Sub(inv.TotalAmount).Abs()
	if diff.LessThanOrEqual(e.cfg.AmountToleranceAbs) {
		return true
	}
	if inv.TotalAmount.IsZero() {
		return false
	}
	// Relative tolerance is computed against the invoice total, never the
	// line amount.
	return diff.Div(inv.TotalAmount).LessThanOrEqual(e.cfg.AmountTolerancePct)
}

func (e *Engine) qualifiesPartial(line canonical.SoaLine, inv *canonical.Invoice) bool {
	return docEqual(line.DocNumber, inv.InvoiceNumber) &&
		line.Currency == inv.Currency &&
		line.Amount.LessThan(inv.TotalAmount)
}

func docEqual(a, b string) bool {
	return strings.ToUpper(strings.TrimSpace(a)) == strings.ToUpper(strings.TrimSpace(b))
}

// fuzzyDocEqual compares document numbers after normalization: uppercase,
// separator characters removed, leading zeros stripped from the trailing
// digit run. Numbers are equivalent when the digit cores match and the alpha
// prefixes either match or one side has none, so "INV-001", "INV001" and
// "001" all collapse together while "INV-001" and "PO-001" stay distinct.
func fuzzyDocEqual(a, b string) bool {
	ap, ad := normalizeDoc(a)
	bp, bd := normalizeDoc(b)
	if ad != bd {
		return false
	}
	if ad == "" {
		return ap == bp
	}
	return ap == bp || ap == "" || bp == ""
}

func normalizeDoc(s string) (prefix, digits string) {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch {
		case r == ' ' || r == '\t' || r == '-' || r == '/':
			continue
		default:
			b.WriteRune(r)
		}
	}
	norm := b.String()

	i := len(norm)
	for i > 0 && norm[i-1] >= '0' && norm[i-1] <= '9' {
		i--
	}
	prefix, digits = norm[:i], norm[i:]
	digits = strings.TrimLeft(digits, "0")
	if digits == "" && i < len(norm) {
		digits = "0"
	}
	return prefix, digits
}

func datesEqualOrAbsent(line canonical.SoaLine, inv *canonical.Invoice) bool {
	if line.Date == nil || inv.InvoiceDate == nil {
		return true
	}
	return line.Date.Equal(*inv.InvoiceDate)
}

// dayDelta is line date minus invoice date in whole calendar days. Both
// dates are midnight-normalized by the shape adapter.
func dayDelta(line canonical.SoaLine, inv *canonical.Invoice) int {
	return int(line.Date.Sub(*inv.InvoiceDate).Hours() / 24)
}
