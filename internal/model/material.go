// Package model defines the domain types shared across the BOQ engine:
// master catalog entries, column mappings, extracted line items, and
// upload lifecycle records.
package model

// MasterMaterial is a canonical price-book entry. Maintained externally;
// the engine mutates it only through the guarded rate-learning path.
type MasterMaterial struct {
	ID                  string   `json:"id"`
	Code                string   `json:"code"`
	Name                string   `json:"name"`
	CategoryID          *string  `json:"category_id,omitempty"`
	Unit                *string  `json:"unit,omitempty"`
	StandardSupplyCost  *float64 `json:"standard_supply_cost,omitempty"`
	StandardInstallCost *float64 `json:"standard_install_cost,omitempty"`
}

// SupplyCost returns the standard supply cost, or 0 when unset.
func (m MasterMaterial) SupplyCost() float64 {
	if m.StandardSupplyCost == nil {
		return 0
	}
	return *m.StandardSupplyCost
}

// InstallCost returns the standard install cost, or 0 when unset.
func (m MasterMaterial) InstallCost() float64 {
	if m.StandardInstallCost == nil {
		return 0
	}
	return *m.StandardInstallCost
}

// TotalCost returns supply plus install.
func (m MasterMaterial) TotalCost() float64 {
	return m.SupplyCost() + m.InstallCost()
}

// MaterialCategory is a catalog category, optionally part of a hierarchy.
// Read-only to this engine; used for match fallback suggestions.
type MaterialCategory struct {
	ID       string  `json:"id"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

// MasterUpdate is one guarded fill-only amendment to a master material,
// produced by the learning pass. Fields left nil are untouched; the store
// must never overwrite an existing non-zero value with any of these.
type MasterUpdate struct {
	MaterialID  string
	SupplyCost  *float64
	InstallCost *float64
	Unit        *string
}

// Empty reports whether the update carries no changes.
func (u MasterUpdate) Empty() bool {
	return u.SupplyCost == nil && u.InstallCost == nil && u.Unit == nil
}
