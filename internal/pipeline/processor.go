// Package pipeline orchestrates one BOQ processing run: segment the
// document, parse each sheet, match items against the master catalog,
// validate pricing, persist the result set, and feed verified rates back
// into the catalog.
package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veldt-group/boq-cli/internal/aggregate"
	"github.com/veldt-group/boq-cli/internal/aiextract"
	"github.com/veldt-group/boq-cli/internal/boq"
	"github.com/veldt-group/boq-cli/internal/matcher"
	"github.com/veldt-group/boq-cli/internal/model"
	"github.com/veldt-group/boq-cli/internal/outlier"
	"github.com/veldt-group/boq-cli/internal/store"
)

// learnConfidenceFloor is the minimum match confidence before an item's
// rates may flow back into the master catalog.
const learnConfidenceFloor = 0.7

// Options tunes one processing run.
type Options struct {
	// Mappings maps sheet names to explicit column layouts. Sheets
	// without an entry fall through to AI or heuristic parsing.
	Mappings map[string]model.ColumnMapping

	// UseAI enables model-based extraction for unmapped sheets. Parsing
	// falls back to heuristics when the model output is unusable.
	UseAI bool
}

// Processor runs uploads end to end.
type Processor struct {
	store store.Store
	ai    *aiextract.Extractor // nil disables AI extraction
}

// New creates a Processor. ai may be nil.
func New(st store.Store, ai *aiextract.Extractor) *Processor {
	return &Processor{store: st, ai: ai}
}

// Process runs the full pipeline for one upload. The upload moves to
// processing immediately and lands on completed or failed; failure
// details are stored on the upload record.
func (p *Processor) Process(ctx context.Context, uploadID, boqText string, opts Options) (*model.ProcessSummary, error) {
	if err := p.store.MarkProcessing(ctx, uploadID); err != nil {
		return nil, err
	}

	summary, err := p.run(ctx, uploadID, boqText, opts)
	if err != nil {
		if markErr := p.store.MarkFailed(ctx, uploadID, eris.ToString(err, false)); markErr != nil {
			zap.L().Error("mark failed failed", zap.String("upload_id", uploadID), zap.Error(markErr))
		}
		return nil, err
	}

	if err := p.store.MarkCompleted(ctx, uploadID, *summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (p *Processor) run(ctx context.Context, uploadID, boqText string, opts Options) (*model.ProcessSummary, error) {
	materials, err := p.store.ActiveMaterials(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := p.store.ActiveCategories(ctx)
	if err != nil {
		return nil, err
	}

	sheets := boq.SplitSheets(boqText)
	if len(sheets) == 0 {
		return nil, eris.Errorf("no material sheets found in upload %s", uploadID)
	}

	items, err := p.parseSheets(ctx, uploadID, sheets, materials, opts)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, eris.Errorf("no line items extracted from upload %s", uploadID)
	}

	mt := matcher.New(materials, categories)
	byID := make(map[string]model.MasterMaterial, len(materials))
	for _, m := range materials {
		byID[m.ID] = m
	}

	tracker := aggregate.NewTracker()
	summary := &model.ProcessSummary{TotalItems: len(items)}

	for i := range items {
		it := &items[i]

		res := mt.Match(it.Description)
		it.MatchedMaterialID = res.MaterialID
		it.MatchConfidence = res.Confidence
		it.SuggestedCategoryID = res.CategoryID
		it.SuggestedCategoryName = res.CategoryName
		it.IsNewItem = !res.Matched()
		if res.Matched() {
			summary.MatchedItems++
		}

		in := outlier.Input{
			Description:    it.Description,
			Quantity:       it.QuantityOr(0),
			TotalRate:      it.TotalRateOr(0),
			Amount:         amountOr(it, 0),
			RateOnlyMarker: it.IsRateOnly,
			Matched:        res.Matched(),
			Confidence:     res.Confidence,
		}
		if it.SupplyRate != nil {
			in.SupplyRate = *it.SupplyRate
		}
		if it.InstallRate != nil {
			in.InstallRate = *it.InstallRate
		}
		if res.Matched() {
			master := byID[*res.MaterialID]
			in.MasterSupply = master.SupplyCost()
			in.MasterInstall = master.InstallCost()
		}

		v := outlier.Detect(in)
		it.IsOutlier = v.IsOutlier
		it.OutlierReason = v.OutlierReason
		it.IsRateOnly = v.IsRateOnly
		it.MathValidated = v.MathValidated
		if v.IsOutlier {
			summary.OutlierItems++
		}

		// Outliers stay in the statistics; the run log is a survey of
		// what was priced, not of what passed validation.
		if res.Matched() && it.TotalRateOr(0) > 0 {
			tracker.Observe(*res.MaterialID, it.TotalRateOr(0), it.QuantityOr(0))
		}
	}

	if err := p.store.ReplaceItems(ctx, uploadID, items); err != nil {
		return nil, err
	}

	summary.MasterUpdated = p.learn(ctx, items, byID)
	summary.MaterialsObserved = tracker.Len()

	zap.L().Info("upload processed",
		zap.String("upload_id", uploadID),
		zap.Int("sheets", len(sheets)),
		zap.Int("total_items", summary.TotalItems),
		zap.Int("matched_items", summary.MatchedItems),
		zap.Int("outlier_items", summary.OutlierItems),
		zap.Int("master_updated", summary.MasterUpdated),
		zap.Int("materials_observed", summary.MaterialsObserved))
	logRateStats(tracker)

	return summary, nil
}

// parseSheets extracts items sheet by sheet. Row numbering is global
// across the upload, so sheets run sequentially.
func (p *Processor) parseSheets(ctx context.Context, uploadID string, sheets []boq.Sheet, materials []model.MasterMaterial, opts Options) ([]model.ExtractedItem, error) {
	var catalogSummary string
	if opts.UseAI && p.ai != nil {
		catalogSummary = aiextract.CatalogSummary(materials)
	}

	var items []model.ExtractedItem
	lastRow := 0
	for _, sheet := range sheets {
		var parsed []model.ExtractedItem

		if mapping, ok := opts.Mappings[sheet.Name]; ok && mapping.HasDescription() {
			parsed, lastRow = boq.ParseMapped(uploadID, sheet, mapping, lastRow)
			items = append(items, parsed...)
			continue
		}

		if opts.UseAI && p.ai != nil {
			var err error
			parsed, lastRow, err = p.ai.ExtractSheet(ctx, uploadID, sheet, catalogSummary, lastRow)
			if err == nil {
				items = append(items, parsed...)
				continue
			}
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "pipeline: cancelled")
			}
			zap.L().Warn("ai extraction failed, falling back to heuristics",
				zap.String("upload_id", uploadID),
				zap.String("sheet", sheet.Name),
				zap.Error(err))
		}

		parsed, lastRow = boq.ParseHeuristic(uploadID, sheet, lastRow)
		items = append(items, parsed...)
	}
	return items, nil
}

// learn feeds verified rates back into the master catalog. Fill-only:
// a master field already carrying a value is never touched, and only the
// first qualifying item per material is used. Learning failures are
// logged and skipped; they never fail the run.
func (p *Processor) learn(ctx context.Context, items []model.ExtractedItem, byID map[string]model.MasterMaterial) int {
	learned := make(map[string]bool)
	updated := 0

	for _, it := range items {
		if it.MatchedMaterialID == nil || it.MatchConfidence < learnConfidenceFloor {
			continue
		}
		if it.IsOutlier || it.IsRateOnly {
			continue
		}
		id := *it.MatchedMaterialID
		if learned[id] {
			continue
		}
		master, ok := byID[id]
		if !ok {
			continue
		}
		learned[id] = true

		// A master cost stored as 0 is as unset as a null one.
		update := model.MasterUpdate{MaterialID: id}
		if master.SupplyCost() == 0 && it.SupplyRate != nil {
			update.SupplyCost = it.SupplyRate
		}
		if master.InstallCost() == 0 && it.InstallRate != nil {
			update.InstallCost = it.InstallRate
		}
		if (master.Unit == nil || *master.Unit == "") && it.Unit != nil {
			update.Unit = it.Unit
		}
		if update.Empty() {
			continue
		}

		if err := p.store.ApplyMasterUpdate(ctx, update); err != nil {
			zap.L().Warn("master learning skipped",
				zap.String("material_id", id),
				zap.Error(err))
			continue
		}
		updated++
	}
	return updated
}

func logRateStats(tracker *aggregate.Tracker) {
	for _, r := range tracker.All() {
		zap.L().Debug("rate stats",
			zap.String("material_id", r.MaterialID),
			zap.Int("count", r.Count),
			zap.Float64("min", r.Min),
			zap.Float64("max", r.Max),
			zap.Float64("weighted_avg", r.WeightedAverage()))
	}
}

func amountOr(it *model.ExtractedItem, def float64) float64 {
	if it.Amount == nil {
		return def
	}
	return *it.Amount
}
