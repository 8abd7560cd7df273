package model

import "time"

// UploadStatus tracks the lifecycle of one BOQ upload.
type UploadStatus string

const (
	UploadStatusPending    UploadStatus = "pending"
	UploadStatusProcessing UploadStatus = "processing"
	UploadStatusCompleted  UploadStatus = "completed"
	UploadStatusFailed     UploadStatus = "failed"
)

// Upload is one submitted BOQ document, processed as a single background run.
type Upload struct {
	ID            string       `json:"id"`
	FileName      string       `json:"file_name"`
	Status        UploadStatus `json:"status"`
	Error         string       `json:"error,omitempty"`
	TotalItems    int          `json:"total_items"`
	MatchedItems  int          `json:"matched_items"`
	MasterUpdated int          `json:"master_updated"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// ExtractedItem is one normalized, matched, validated BOQ line item. The
// engine replaces all items for an upload on every run.
type ExtractedItem struct {
	UploadID    string `json:"upload_id"`
	RowNumber   int    `json:"row_number"` // 1-based, global across sheets
	BillNumber  string `json:"bill_number,omitempty"`
	BillName    string `json:"bill_name,omitempty"`
	SectionCode string `json:"section_code,omitempty"`
	SectionName string `json:"section_name,omitempty"`

	ItemCode    string   `json:"item_code,omitempty"`
	Description string   `json:"description"`
	Unit        *string  `json:"unit,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"` // nil = not yet quantified
	SupplyRate  *float64 `json:"supply_rate,omitempty"`
	InstallRate *float64 `json:"install_rate,omitempty"`
	TotalRate   *float64 `json:"total_rate,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`

	MatchedMaterialID     *string `json:"matched_material_id,omitempty"`
	MatchConfidence       float64 `json:"match_confidence"`
	SuggestedCategoryID   *string `json:"suggested_category_id,omitempty"`
	SuggestedCategoryName *string `json:"suggested_category_name,omitempty"`

	IsNewItem       bool    `json:"is_new_item"`
	IsOutlier       bool    `json:"is_outlier"`
	OutlierReason   string  `json:"outlier_reason,omitempty"`
	IsRateOnly      bool    `json:"is_rate_only"`
	MathValidated   bool    `json:"math_validated"`
	CalculatedTotal float64 `json:"calculated_total"`
}

// QuantityOr returns the quantity or def when unquantified.
func (it ExtractedItem) QuantityOr(def float64) float64 {
	if it.Quantity == nil {
		return def
	}
	return *it.Quantity
}

// TotalRateOr returns the total rate or def when unset.
func (it ExtractedItem) TotalRateOr(def float64) float64 {
	if it.TotalRate == nil {
		return def
	}
	return *it.TotalRate
}

// ProcessSummary holds the counters written to the upload record on
// completion.
type ProcessSummary struct {
	TotalItems    int `json:"total_items"`
	MatchedItems  int `json:"matched_items"`
	MasterUpdated int `json:"master_updated"`
	OutlierItems  int `json:"outlier_items"`

	// MaterialsObserved counts distinct matched materials that fed the
	// per-run rate statistics. Logged, not persisted.
	MaterialsObserved int `json:"materials_observed"`
}

// Float64Ptr returns a pointer to v. Convenience for optional rate fields.
func Float64Ptr(v float64) *float64 { return &v }

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }
