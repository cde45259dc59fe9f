package canonical

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Field alias tables. Legacy ingestion paths wrote the same business fields
// under different keys; adaptation resolves the first alias present.
var (
	invoiceNumberAliases = []string{"invoice_number", "invoice_no", "inv_number", "number"}
	invoiceAmountAliases = []string{"total_amount", "amount", "invoice_amount", "gross_total"}
	invoiceDateAliases   = []string{"invoice_date", "doc_date", "date"}

	lineDocAliases    = []string{"doc_number", "document_no", "invoice_ref", "reference"}
	lineAmountAliases = []string{"amount", "line_amount", "stated_amount"}
	lineDateAliases   = []string{"line_date", "statement_date", "date"}

	currencyAliases = []string{"currency", "currency_code", "ccy"}
)

// AdaptInvoice maps a raw storage record onto the canonical invoice shape.
// Required fields: invoice number, amount, currency.
func AdaptInvoice(raw RawInvoiceRecord) (Invoice, error) {
	number, err := requiredString(raw.Ref, raw.Fields, invoiceNumberAliases)
	if err != nil {
		return Invoice{}, err
	}
	amount, err := requiredAmount(raw.Ref, raw.Fields, invoiceAmountAliases)
	if err != nil {
		return Invoice{}, err
	}
	currency, err := requiredString(raw.Ref, raw.Fields, currencyAliases)
	if err != nil {
		return Invoice{}, err
	}
	date, err := optionalDate(raw.Ref, raw.Fields, invoiceDateAliases)
	if err != nil {
		return Invoice{}, err
	}

	return Invoice{
		Ref:           raw.Ref,
		InvoiceNumber: number,
		TotalAmount:   amount,
		Currency:      currency,
		InvoiceDate:   date,
	}, nil
}

// AdaptSoaLine maps a raw statement line onto the canonical SOA line shape.
// Required fields: document number, amount, currency. The partial-match
// opt-in flags are optional but type-checked when present.
func AdaptSoaLine(raw RawSoaLineRecord) (SoaLine, error) {
	doc, err := requiredString(raw.Ref, raw.Fields, lineDocAliases)
	if err != nil {
		return SoaLine{}, err
	}
	amount, err := requiredAmount(raw.Ref, raw.Fields, lineAmountAliases)
	if err != nil {
		return SoaLine{}, err
	}
	currency, err := requiredString(raw.Ref, raw.Fields, currencyAliases)
	if err != nil {
		return SoaLine{}, err
	}
	date, err := optionalDate(raw.Ref, raw.Fields, lineDateAliases)
	if err != nil {
		return SoaLine{}, err
	}

	line := SoaLine{
		Ref:       raw.Ref,
		DocNumber: doc,
		Amount:    amount,
		Currency:  currency,
		Date:      date,
	}

	if v, ok := lookup(raw.Fields, []string{"allow_partial", "partial_ok"}); ok {
		b, ok := v.(bool)
		if !ok {
			return SoaLine{}, &ShapeError{Ref: raw.Ref, Field: "allow_partial", Reason: fmt.Sprintf("expected bool, got %T", v)}
		}
		line.AllowPartial = b
	}

	if v, ok := lookup(raw.Fields, []string{"match_mode", "mode"}); ok {
		s, ok := v.(string)
		if !ok {
			return SoaLine{}, &ShapeError{Ref: raw.Ref, Field: "match_mode", Reason: fmt.Sprintf("expected string, got %T", v)}
		}
		switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
		case MatchModeStrict:
			line.MatchMode = MatchModeStrict
		case MatchModePartial:
			line.MatchMode = MatchModePartial
		default:
			return SoaLine{}, &ShapeError{Ref: raw.Ref, Field: "match_mode", Reason: fmt.Sprintf("unknown mode %q", s)}
		}
	}

	return line, nil
}

func lookup(fields map[string]any, aliases []string) (any, bool) {
	for _, key := range aliases {
		if v, ok := fields[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func requiredString(ref string, fields map[string]any, aliases []string) (string, error) {
	v, ok := lookup(fields, aliases)
	if !ok {
		return "", &ShapeError{Ref: ref, Field: aliases[0], Reason: "required field missing"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ShapeError{Ref: ref, Field: aliases[0], Reason: fmt.Sprintf("expected string, got %T", v)}
	}
	if strings.TrimSpace(s) == "" {
		return "", &ShapeError{Ref: ref, Field: aliases[0], Reason: "required field empty"}
	}
	return s, nil
}

func requiredAmount(ref string, fields map[string]any, aliases []string) (decimal.Decimal, error) {
	v, ok := lookup(fields, aliases)
	if !ok {
		return decimal.Decimal{}, &ShapeError{Ref: ref, Field: aliases[0], Reason: "required field missing"}
	}
	d, err := coerceDecimal(v)
	if err != nil {
		return decimal.Decimal{}, &ShapeError{Ref: ref, Field: aliases[0], Reason: err.Error()}
	}
	return d, nil
}

// coerceDecimal accepts the amount encodings seen in stored payloads: decimal
// strings, json.Number from decoded documents, and raw float64 from older
// writers.
func coerceDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("not a decimal string: %q", n)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("not a decimal number: %q", n.String())
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case decimal.Decimal:
		return n, nil
	default:
		return decimal.Decimal{}, fmt.Errorf("expected number, got %T", v)
	}
}

func optionalDate(ref string, fields map[string]any, aliases []string) (*time.Time, error) {
	v, ok := lookup(fields, aliases)
	if !ok {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &ShapeError{Ref: ref, Field: aliases[0], Reason: fmt.Sprintf("expected date string, got %T", v)}
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil, &ShapeError{Ref: ref, Field: aliases[0], Reason: fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s)}
	}
	return &t, nil
}
