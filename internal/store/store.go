// Package store persists uploads, extracted items, and the master
// material catalog behind a single interface with PostgreSQL and SQLite
// implementations.
package store

import (
	"context"

	"github.com/veldt-group/boq-cli/internal/model"
)

// UploadFilter specifies criteria for listing uploads.
type UploadFilter struct {
	Status model.UploadStatus `json:"status,omitempty"`
	Limit  int                `json:"limit,omitempty"`
	Offset int                `json:"offset,omitempty"`
}

// itemChunkSize bounds how many extracted items travel in one insert.
const itemChunkSize = 100

// Store defines the persistence interface for the BOQ engine.
type Store interface {
	// Uploads
	CreateUpload(ctx context.Context, id, fileName string) (*model.Upload, error)
	GetUpload(ctx context.Context, id string) (*model.Upload, error)
	ListUploads(ctx context.Context, filter UploadFilter) ([]model.Upload, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, summary model.ProcessSummary) error
	MarkFailed(ctx context.Context, id string, errMsg string) error

	// Master catalog
	ActiveMaterials(ctx context.Context) ([]model.MasterMaterial, error)
	ActiveCategories(ctx context.Context) ([]model.MaterialCategory, error)
	UpsertMaterials(ctx context.Context, materials []model.MasterMaterial) (int, error)
	UpsertCategories(ctx context.Context, categories []model.MaterialCategory) (int, error)
	ApplyMasterUpdate(ctx context.Context, update model.MasterUpdate) error

	// Extracted items
	ReplaceItems(ctx context.Context, uploadID string, items []model.ExtractedItem) error
	ItemsForUpload(ctx context.Context, uploadID string) ([]model.ExtractedItem, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
