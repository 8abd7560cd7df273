package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/veldt-group/boq-cli/internal/db"
	"github.com/veldt-group/boq-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_upload":    `INSERT INTO uploads (id, file_name, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
	"get_upload":       `SELECT id, file_name, status, error, total_items, matched_items, master_updated, created_at, updated_at FROM uploads WHERE id = $1`,
	"mark_processing":  `UPDATE uploads SET status = $1, error = '', updated_at = $2 WHERE id = $3`,
	"active_materials": `SELECT id, code, name, category_id, unit, standard_supply_cost, standard_install_cost FROM master_materials WHERE is_active ORDER BY code`,
	"delete_items":     `DELETE FROM extracted_items WHERE upload_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS uploads (
	id             TEXT PRIMARY KEY,
	file_name      TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	error          TEXT NOT NULL DEFAULT '',
	total_items    INTEGER NOT NULL DEFAULT 0,
	matched_items  INTEGER NOT NULL DEFAULT 0,
	master_updated INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS material_categories (
	id        TEXT PRIMARY KEY,
	code      TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL,
	parent_id TEXT,
	is_active BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS master_materials (
	id                    TEXT PRIMARY KEY,
	code                  TEXT NOT NULL UNIQUE,
	name                  TEXT NOT NULL,
	category_id           TEXT REFERENCES material_categories(id),
	unit                  TEXT,
	standard_supply_cost  DOUBLE PRECISION,
	standard_install_cost DOUBLE PRECISION,
	is_active             BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS extracted_items (
	upload_id               TEXT NOT NULL REFERENCES uploads(id),
	row_number              INTEGER NOT NULL,
	bill_number             TEXT NOT NULL DEFAULT '',
	bill_name               TEXT NOT NULL DEFAULT '',
	section_code            TEXT NOT NULL DEFAULT '',
	section_name            TEXT NOT NULL DEFAULT '',
	item_code               TEXT NOT NULL DEFAULT '',
	description             TEXT NOT NULL,
	unit                    TEXT,
	quantity                DOUBLE PRECISION,
	supply_rate             DOUBLE PRECISION,
	install_rate            DOUBLE PRECISION,
	total_rate              DOUBLE PRECISION,
	amount                  DOUBLE PRECISION,
	matched_material_id     TEXT,
	match_confidence        DOUBLE PRECISION NOT NULL DEFAULT 0,
	suggested_category_id   TEXT,
	suggested_category_name TEXT,
	is_new_item             BOOLEAN NOT NULL DEFAULT FALSE,
	is_outlier              BOOLEAN NOT NULL DEFAULT FALSE,
	outlier_reason          TEXT NOT NULL DEFAULT '',
	is_rate_only            BOOLEAN NOT NULL DEFAULT FALSE,
	math_validated          BOOLEAN NOT NULL DEFAULT TRUE,
	calculated_total        DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (upload_id, row_number)
);

CREATE INDEX IF NOT EXISTS idx_uploads_status ON uploads(status);
CREATE INDEX IF NOT EXISTS idx_materials_category ON master_materials(category_id);
CREATE INDEX IF NOT EXISTS idx_items_material ON extracted_items(matched_material_id);
CREATE INDEX IF NOT EXISTS idx_items_outlier ON extracted_items(upload_id, is_outlier);
`

// itemColumns is the insert column order for extracted_items; itemRow
// must stay in sync with it.
var itemColumns = []string{
	"upload_id", "row_number", "bill_number", "bill_name",
	"section_code", "section_name", "item_code", "description",
	"unit", "quantity", "supply_rate", "install_rate",
	"total_rate", "amount", "matched_material_id", "match_confidence",
	"suggested_category_id", "suggested_category_name", "is_new_item", "is_outlier",
	"outlier_reason", "is_rate_only", "math_validated", "calculated_total",
}

func itemRow(it model.ExtractedItem) []any {
	return []any{
		it.UploadID, it.RowNumber, it.BillNumber, it.BillName,
		it.SectionCode, it.SectionName, it.ItemCode, it.Description,
		it.Unit, it.Quantity, it.SupplyRate, it.InstallRate,
		it.TotalRate, it.Amount, it.MatchedMaterialID, it.MatchConfidence,
		it.SuggestedCategoryID, it.SuggestedCategoryName, it.IsNewItem, it.IsOutlier,
		it.OutlierReason, it.IsRateOnly, it.MathValidated, it.CalculatedTotal,
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateUpload(ctx context.Context, id, fileName string) (*model.Upload, error) {
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO uploads (id, file_name, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, fileName, string(model.UploadStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert upload %s", id)
	}

	return &model.Upload{
		ID:        id,
		FileName:  fileName,
		Status:    model.UploadStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) GetUpload(ctx context.Context, id string) (*model.Upload, error) {
	var u model.Upload
	err := s.pool.QueryRow(ctx,
		`SELECT id, file_name, status, error, total_items, matched_items, master_updated, created_at, updated_at
		 FROM uploads WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.FileName, &u.Status, &u.Error, &u.TotalItems, &u.MatchedItems, &u.MasterUpdated, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get upload %s", id)
	}
	return &u, nil
}

func (s *PostgresStore) ListUploads(ctx context.Context, filter UploadFilter) ([]model.Upload, error) {
	query := `SELECT id, file_name, status, error, total_items, matched_items, master_updated, created_at, updated_at FROM uploads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list uploads")
	}
	defer rows.Close()

	var uploads []model.Upload
	for rows.Next() {
		var u model.Upload
		if err := rows.Scan(&u.ID, &u.FileName, &u.Status, &u.Error, &u.TotalItems, &u.MatchedItems, &u.MasterUpdated, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan upload")
		}
		uploads = append(uploads, u)
	}
	return uploads, eris.Wrap(rows.Err(), "postgres: list uploads iterate")
}

func (s *PostgresStore) MarkProcessing(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE uploads SET status = $1, error = '', updated_at = $2 WHERE id = $3`,
		string(model.UploadStatusProcessing), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark processing %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("upload not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, id string, summary model.ProcessSummary) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE uploads SET status = $1, total_items = $2, matched_items = $3, master_updated = $4, updated_at = $5 WHERE id = $6`,
		string(model.UploadStatusCompleted), summary.TotalItems, summary.MatchedItems, summary.MasterUpdated, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark completed %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("upload not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE uploads SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.UploadStatusFailed), errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark failed %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("upload not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ActiveMaterials(ctx context.Context) ([]model.MasterMaterial, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, code, name, category_id, unit, standard_supply_cost, standard_install_cost
		 FROM master_materials WHERE is_active ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: active materials")
	}
	defer rows.Close()

	var materials []model.MasterMaterial
	for rows.Next() {
		var m model.MasterMaterial
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.CategoryID, &m.Unit, &m.StandardSupplyCost, &m.StandardInstallCost); err != nil {
			return nil, eris.Wrap(err, "postgres: scan material")
		}
		materials = append(materials, m)
	}
	return materials, eris.Wrap(rows.Err(), "postgres: active materials iterate")
}

func (s *PostgresStore) ActiveCategories(ctx context.Context) ([]model.MaterialCategory, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, code, name, parent_id FROM material_categories WHERE is_active ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: active categories")
	}
	defer rows.Close()

	var categories []model.MaterialCategory
	for rows.Next() {
		var c model.MaterialCategory
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.ParentID); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category")
		}
		categories = append(categories, c)
	}
	return categories, eris.Wrap(rows.Err(), "postgres: active categories iterate")
}

func (s *PostgresStore) UpsertMaterials(ctx context.Context, materials []model.MasterMaterial) (int, error) {
	if len(materials) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(materials))
	for _, m := range materials {
		rows = append(rows, []any{m.ID, m.Code, m.Name, m.CategoryID, m.Unit, m.StandardSupplyCost, m.StandardInstallCost, true, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "master_materials",
		Columns:      []string{"id", "code", "name", "category_id", "unit", "standard_supply_cost", "standard_install_cost", "is_active", "updated_at"},
		ConflictKeys: []string{"code"},
		// Keep the stored id on re-import: extracted items reference it.
		UpdateCols: []string{"name", "category_id", "unit", "standard_supply_cost", "standard_install_cost", "is_active", "updated_at"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert materials")
	}
	return int(n), nil
}

func (s *PostgresStore) UpsertCategories(ctx context.Context, categories []model.MaterialCategory) (int, error) {
	if len(categories) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, []any{c.ID, c.Code, c.Name, c.ParentID, true})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "material_categories",
		Columns:      []string{"id", "code", "name", "parent_id", "is_active"},
		ConflictKeys: []string{"code"},
		UpdateCols:   []string{"name", "parent_id", "is_active"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert categories")
	}
	return int(n), nil
}

// ApplyMasterUpdate fills missing master fields only. A field already
// holding a non-zero value is never overwritten, regardless of what the
// update carries.
func (s *PostgresStore) ApplyMasterUpdate(ctx context.Context, update model.MasterUpdate) error {
	if update.Empty() {
		return nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE master_materials SET
			standard_supply_cost = CASE
				WHEN standard_supply_cost IS NULL OR standard_supply_cost = 0
				THEN COALESCE($2, standard_supply_cost) ELSE standard_supply_cost END,
			standard_install_cost = CASE
				WHEN standard_install_cost IS NULL OR standard_install_cost = 0
				THEN COALESCE($3, standard_install_cost) ELSE standard_install_cost END,
			unit = CASE
				WHEN unit IS NULL OR unit = ''
				THEN COALESCE($4, unit) ELSE unit END,
			updated_at = $5
		 WHERE id = $1`,
		update.MaterialID, update.SupplyCost, update.InstallCost, update.Unit, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: apply master update %s", update.MaterialID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("material not found: %s", update.MaterialID)
	}
	return nil
}

// ReplaceItems swaps the full item set for an upload: prior rows are
// deleted, then the new rows are copied in chunks so one bad batch does
// not stall the whole write path unobserved.
func (s *PostgresStore) ReplaceItems(ctx context.Context, uploadID string, items []model.ExtractedItem) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM extracted_items WHERE upload_id = $1`, uploadID); err != nil {
		return eris.Wrapf(err, "postgres: delete items for %s", uploadID)
	}

	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, itemRow(it))
	}

	for i, chunk := range db.ChunkRows(rows, itemChunkSize) {
		if _, err := db.CopyFrom(ctx, s.pool, "extracted_items", itemColumns, chunk); err != nil {
			zap.L().Error("item chunk insert failed",
				zap.String("upload_id", uploadID),
				zap.Int("chunk", i),
				zap.Int("rows", len(chunk)),
				zap.Error(err))
			return eris.Wrapf(err, "postgres: insert items chunk %d for %s", i, uploadID)
		}
	}
	return nil
}

func (s *PostgresStore) ItemsForUpload(ctx context.Context, uploadID string) ([]model.ExtractedItem, error) {
	query := `SELECT ` + joinColumns(itemColumns) + ` FROM extracted_items WHERE upload_id = $1 ORDER BY row_number`
	rows, err := s.pool.Query(ctx, query, uploadID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: items for %s", uploadID)
	}
	defer rows.Close()

	var items []model.ExtractedItem
	for rows.Next() {
		var it model.ExtractedItem
		if err := rows.Scan(
			&it.UploadID, &it.RowNumber, &it.BillNumber, &it.BillName,
			&it.SectionCode, &it.SectionName, &it.ItemCode, &it.Description,
			&it.Unit, &it.Quantity, &it.SupplyRate, &it.InstallRate,
			&it.TotalRate, &it.Amount, &it.MatchedMaterialID, &it.MatchConfidence,
			&it.SuggestedCategoryID, &it.SuggestedCategoryName, &it.IsNewItem, &it.IsOutlier,
			&it.OutlierReason, &it.IsRateOnly, &it.MathValidated, &it.CalculatedTotal,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan item")
		}
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "postgres: items iterate")
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
