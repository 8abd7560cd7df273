package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/veldt-group/boq-cli/internal/db"
	"github.com/veldt-group/boq-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: sqlDB}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS uploads (
	id             TEXT PRIMARY KEY,
	file_name      TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	error          TEXT NOT NULL DEFAULT '',
	total_items    INTEGER NOT NULL DEFAULT 0,
	matched_items  INTEGER NOT NULL DEFAULT 0,
	master_updated INTEGER NOT NULL DEFAULT 0,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS material_categories (
	id        TEXT PRIMARY KEY,
	code      TEXT NOT NULL UNIQUE,
	name      TEXT NOT NULL,
	parent_id TEXT,
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS master_materials (
	id                    TEXT PRIMARY KEY,
	code                  TEXT NOT NULL UNIQUE,
	name                  TEXT NOT NULL,
	category_id           TEXT REFERENCES material_categories(id),
	unit                  TEXT,
	standard_supply_cost  REAL,
	standard_install_cost REAL,
	is_active             INTEGER NOT NULL DEFAULT 1,
	updated_at            DATETIME NOT NULL DEFAULT (datetime('now'))
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
	quantity                REAL,
	supply_rate             REAL,
	install_rate            REAL,
	total_rate              REAL,
	amount                  REAL,
	matched_material_id     TEXT,
	match_confidence        REAL NOT NULL DEFAULT 0,
	suggested_category_id   TEXT,
	suggested_category_name TEXT,
	is_new_item             INTEGER NOT NULL DEFAULT 0,
	is_outlier              INTEGER NOT NULL DEFAULT 0,
	outlier_reason          TEXT NOT NULL DEFAULT '',
	is_rate_only            INTEGER NOT NULL DEFAULT 0,
	math_validated          INTEGER NOT NULL DEFAULT 1,
	calculated_total        REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (upload_id, row_number)
);

CREATE INDEX IF NOT EXISTS idx_uploads_status ON uploads(status);
CREATE INDEX IF NOT EXISTS idx_materials_category ON master_materials(category_id);
CREATE INDEX IF NOT EXISTS idx_items_material ON extracted_items(matched_material_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s %s", entity, id)
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func (s *SQLiteStore) CreateUpload(ctx context.Context, id, fileName string) (*model.Upload, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (id, file_name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, fileName, string(model.UploadStatusPending), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert upload %s", id)
	}

	return &model.Upload{
		ID:        id,
		FileName:  fileName,
		Status:    model.UploadStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetUpload(ctx context.Context, id string) (*model.Upload, error) {
	var u model.Upload
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, status, error, total_items, matched_items, master_updated, created_at, updated_at
		 FROM uploads WHERE id = ?`,
		id,
	).Scan(&u.ID, &u.FileName, &u.Status, &u.Error, &u.TotalItems, &u.MatchedItems, &u.MasterUpdated, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get upload %s", id)
	}
	return &u, nil
}

func (s *SQLiteStore) ListUploads(ctx context.Context, filter UploadFilter) ([]model.Upload, error) {
	query := `SELECT id, file_name, status, error, total_items, matched_items, master_updated, created_at, updated_at FROM uploads WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list uploads")
	}
	defer rows.Close()

	var uploads []model.Upload
	for rows.Next() {
		var u model.Upload
		if err := rows.Scan(&u.ID, &u.FileName, &u.Status, &u.Error, &u.TotalItems, &u.MatchedItems, &u.MasterUpdated, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan upload")
		}
		uploads = append(uploads, u)
	}
	return uploads, eris.Wrap(rows.Err(), "sqlite: list uploads iterate")
}

func (s *SQLiteStore) MarkProcessing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE uploads SET status = ?, error = '', updated_at = ? WHERE id = ?`,
		string(model.UploadStatusProcessing), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark processing %s", id)
	}
	return checkRowsAffected(res, "upload", id)
}

func (s *SQLiteStore) MarkCompleted(ctx context.Context, id string, summary model.ProcessSummary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE uploads SET status = ?, total_items = ?, matched_items = ?, master_updated = ?, updated_at = ? WHERE id = ?`,
		string(model.UploadStatusCompleted), summary.TotalItems, summary.MatchedItems, summary.MasterUpdated, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark completed %s", id)
	}
	return checkRowsAffected(res, "upload", id)
}

func (s *SQLiteStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE uploads SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.UploadStatusFailed), errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark failed %s", id)
	}
	return checkRowsAffected(res, "upload", id)
}

func (s *SQLiteStore) ActiveMaterials(ctx context.Context) ([]model.MasterMaterial, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, name, category_id, unit, standard_supply_cost, standard_install_cost
		 FROM master_materials WHERE is_active = 1 ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: active materials")
	}
	defer rows.Close()

	var materials []model.MasterMaterial
	for rows.Next() {
		var m model.MasterMaterial
		if err := rows.Scan(&m.ID, &m.Code, &m.Name, &m.CategoryID, &m.Unit, &m.StandardSupplyCost, &m.StandardInstallCost); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan material")
		}
		materials = append(materials, m)
	}
	return materials, eris.Wrap(rows.Err(), "sqlite: active materials iterate")
}

func (s *SQLiteStore) ActiveCategories(ctx context.Context) ([]model.MaterialCategory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, code, name, parent_id FROM material_categories WHERE is_active = 1 ORDER BY code`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: active categories")
	}
	defer rows.Close()

	var categories []model.MaterialCategory
	for rows.Next() {
		var c model.MaterialCategory
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.ParentID); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category")
		}
		categories = append(categories, c)
	}
	return categories, eris.Wrap(rows.Err(), "sqlite: active categories iterate")
}

func (s *SQLiteStore) UpsertMaterials(ctx context.Context, materials []model.MasterMaterial) (int, error) {
	if len(materials) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert materials begin")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	count := 0
	for _, m := range materials {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO master_materials (id, code, name, category_id, unit, standard_supply_cost, standard_install_cost, is_active, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)
			 ON CONFLICT (code) DO UPDATE SET
				name = excluded.name,
				category_id = excluded.category_id,
				unit = excluded.unit,
				standard_supply_cost = excluded.standard_supply_cost,
				standard_install_cost = excluded.standard_install_cost,
				is_active = 1,
				updated_at = excluded.updated_at`,
			m.ID, m.Code, m.Name, m.CategoryID, m.Unit, m.StandardSupplyCost, m.StandardInstallCost, now,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert material %s", m.Code)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert materials commit")
	}
	return count, nil
}

func (s *SQLiteStore) UpsertCategories(ctx context.Context, categories []model.MaterialCategory) (int, error) {
	if len(categories) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert categories begin")
	}
	defer tx.Rollback()

	count := 0
	for _, c := range categories {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO material_categories (id, code, name, parent_id, is_active) VALUES (?, ?, ?, ?, 1)
			 ON CONFLICT (code) DO UPDATE SET name = excluded.name, parent_id = excluded.parent_id, is_active = 1`,
			c.ID, c.Code, c.Name, c.ParentID,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert category %s", c.Code)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: upsert categories commit")
	}
	return count, nil
}

func (s *SQLiteStore) ApplyMasterUpdate(ctx context.Context, update model.MasterUpdate) error {
	if update.Empty() {
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE master_materials SET
			standard_supply_cost = CASE
				WHEN standard_supply_cost IS NULL OR standard_supply_cost = 0
				THEN COALESCE(?, standard_supply_cost) ELSE standard_supply_cost END,
			standard_install_cost = CASE
				WHEN standard_install_cost IS NULL OR standard_install_cost = 0
				THEN COALESCE(?, standard_install_cost) ELSE standard_install_cost END,
			unit = CASE
				WHEN unit IS NULL OR unit = ''
				THEN COALESCE(?, unit) ELSE unit END,
			updated_at = ?
		 WHERE id = ?`,
		update.SupplyCost, update.InstallCost, update.Unit, time.Now().UTC(), update.MaterialID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: apply master update %s", update.MaterialID)
	}
	return checkRowsAffected(res, "material", update.MaterialID)
}

func (s *SQLiteStore) ReplaceItems(ctx context.Context, uploadID string, items []model.ExtractedItem) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: replace items begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM extracted_items WHERE upload_id = ?`, uploadID); err != nil {
		return eris.Wrapf(err, "sqlite: delete items for %s", uploadID)
	}

	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, itemRow(it))
	}

	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(itemColumns)), ", ") + ")"
	for i, chunk := range db.ChunkRows(rows, itemChunkSize) {
		placeholders := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(itemColumns))
		for j, row := range chunk {
			placeholders[j] = placeholder
			args = append(args, row...)
		}
		insertSQL := fmt.Sprintf(
			`INSERT INTO extracted_items (%s) VALUES %s`,
			joinColumns(itemColumns), strings.Join(placeholders, ", "),
		)
		if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert items chunk %d for %s", i, uploadID)
		}
	}

	return eris.Wrapf(tx.Commit(), "sqlite: replace items commit for %s", uploadID)
}

func (s *SQLiteStore) ItemsForUpload(ctx context.Context, uploadID string) ([]model.ExtractedItem, error) {
	query := `SELECT ` + joinColumns(itemColumns) + ` FROM extracted_items WHERE upload_id = ? ORDER BY row_number`
	rows, err := s.db.QueryContext(ctx, query, uploadID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: items for %s", uploadID)
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
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: items iterate")
}
