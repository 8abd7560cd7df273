// Package aiextract parses BOQ sheets that defeat the mapped and
// heuristic parsers by asking a language model to do the reading. Model
// output is untrusted: every response goes through a JSON repair chain
// and every numeric field is re-parsed locally.
package aiextract

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/veldt-group/boq-cli/internal/boq"
	"github.com/veldt-group/boq-cli/internal/model"
	"github.com/veldt-group/boq-cli/internal/parse"
	"github.com/veldt-group/boq-cli/pkg/anthropic"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 8192

	// maxSheetChars bounds the sheet text sent per request; beyond this
	// the sheet is split into windows.
	maxSheetChars = 24000

	// maxCatalogEntries bounds the catalog summary in the system prompt.
	maxCatalogEntries = 300
)

const systemPrompt = `You are a quantity surveyor's assistant. You read one worksheet of
an electrical Bill of Quantities and return the material line items as a JSON array.

Return ONLY a JSON array, no prose. Each element:
{
  "item_code": "",        // reference like 1.1 or A12, "" if none
  "description": "",      // full item description
  "unit": "",             // unit as written, "" if none
  "quantity": 0,          // number or null
  "supply_rate": 0,       // number or null
  "install_rate": 0,      // number or null
  "total_rate": 0,        // number or null
  "amount": 0,            // number or null
  "rate_only": false      // true when the row is marked Rate Only
}

Skip headings, notes, totals, carried-forward rows, and blank rows.
Keep descriptions verbatim. Never invent quantities or rates.`

// Extractor drives model-based sheet extraction.
type Extractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithModel overrides the default model.
func WithModel(m string) Option {
	return func(e *Extractor) {
		if m != "" {
			e.model = m
		}
	}
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(e *Extractor) {
		if rps > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewExtractor creates an Extractor with sane defaults.
func NewExtractor(client anthropic.Client, opts ...Option) *Extractor {
	e := &Extractor{
		client:    client,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
		limiter:   rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CatalogSummary renders the master catalog as a compact code/name list
// for the system prompt, truncated to keep token cost bounded.
func CatalogSummary(materials []model.MasterMaterial) string {
	var b strings.Builder
	b.WriteString("Known master materials (code: name):\n")
	for i, m := range materials {
		if i >= maxCatalogEntries {
			fmt.Fprintf(&b, "... and %d more\n", len(materials)-maxCatalogEntries)
			break
		}
		fmt.Fprintf(&b, "%s: %s\n", m.Code, m.Name)
	}
	return b.String()
}

// ExtractSheet asks the model to read one sheet and returns the items
// numbered from lastRow+1. The catalog summary rides in a cached system
// block since it repeats for every sheet of an upload.
func (e *Extractor) ExtractSheet(ctx context.Context, uploadID string, sheet boq.Sheet, catalogSummary string, lastRow int) ([]model.ExtractedItem, int, error) {
	var all []model.ExtractedItem
	row := lastRow

	for _, window := range splitWindows(sheet.Lines, maxSheetChars) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, lastRow, eris.Wrap(err, "aiextract: rate limit wait")
		}

		resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.model,
			MaxTokens: e.maxTokens,
			System: []anthropic.SystemBlock{
				{Text: systemPrompt},
				{Text: catalogSummary, CacheControl: &anthropic.CacheControl{TTL: "5m"}},
			},
			Messages: []anthropic.Message{
				{Role: "user", Content: fmt.Sprintf("Sheet %q:\n\n%s", sheet.Name, window)},
			},
		})
		if err != nil {
			return nil, lastRow, eris.Wrapf(err, "aiextract: sheet %s", sheet.Name)
		}
		resp.Usage.LogCost(e.model, "extract")

		rawItems, err := parseItems(resp.Text())
		if err != nil {
			return nil, lastRow, eris.Wrapf(err, "aiextract: sheet %s", sheet.Name)
		}

		for _, ri := range rawItems {
			item, ok := ri.toExtractedItem(uploadID, sheet, row+1)
			if !ok {
				continue
			}
			row++
			all = append(all, item)
		}
	}

	zap.L().Debug("ai extraction complete",
		zap.String("upload_id", uploadID),
		zap.String("sheet", sheet.Name),
		zap.Int("items", len(all)))
	return all, row, nil
}

// splitWindows cuts sheet lines into chunks of at most maxChars,
// breaking only on line boundaries.
func splitWindows(lines []string, maxChars int) []string {
	if len(lines) == 0 {
		return nil
	}

	var windows []string
	var b strings.Builder
	for _, line := range lines {
		if b.Len() > 0 && b.Len()+len(line)+1 > maxChars {
			windows = append(windows, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
	}
	if b.Len() > 0 {
		windows = append(windows, b.String())
	}
	return windows
}

// rawItem holds one model-returned line with untrusted field types.
// Numbers may arrive as strings, formatted strings, or null.
type rawItem struct {
	ItemCode    any    `json:"item_code"`
	Description string `json:"description"`
	Unit        any    `json:"unit"`
	Quantity    any    `json:"quantity"`
	SupplyRate  any    `json:"supply_rate"`
	InstallRate any    `json:"install_rate"`
	TotalRate   any    `json:"total_rate"`
	Amount      any    `json:"amount"`
	RateOnly    bool   `json:"rate_only"`
}

func (ri rawItem) toExtractedItem(uploadID string, sheet boq.Sheet, rowNumber int) (model.ExtractedItem, bool) {
	desc := strings.TrimSpace(ri.Description)
	if len(desc) < 3 {
		return model.ExtractedItem{}, false
	}

	item := model.ExtractedItem{
		UploadID:    uploadID,
		RowNumber:   rowNumber,
		BillNumber:  sheet.BillNumber(),
		BillName:    sheet.Name,
		ItemCode:    toString(ri.ItemCode),
		Description: desc,
		Unit:        unitPtr(toString(ri.Unit)),
		Quantity:    numberPtr(ri.Quantity),
		SupplyRate:  numberPtr(ri.SupplyRate),
		InstallRate: numberPtr(ri.InstallRate),
		TotalRate:   numberPtr(ri.TotalRate),
		Amount:      numberPtr(ri.Amount),
		IsRateOnly:  ri.RateOnly,
	}

	boq.DeriveRates(&item)
	item.CalculatedTotal = item.QuantityOr(0) * item.TotalRateOr(0)
	return item, true
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", s), "0"), ".")
	default:
		return ""
	}
}

func numberPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	n := parse.ParseRate(v)
	if n <= 0 {
		return nil
	}
	return &n
}

func unitPtr(s string) *string {
	if s == "" {
		return nil
	}
	return parse.StandardUnitPtr(&s)
}
