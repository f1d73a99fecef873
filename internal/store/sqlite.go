package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/safetyiq/recall-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	country_code  TEXT NOT NULL DEFAULT '',
	company_type  TEXT NOT NULL,
	source_role   TEXT NOT NULL DEFAULT '',
	founding_date DATETIME,
	founder_name  TEXT NOT NULL DEFAULT '',
	brief         TEXT NOT NULL DEFAULT '',
	enriched_at   DATETIME,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_name_lower ON companies(lower(name));

CREATE TABLE IF NOT EXISTS recalls (
	id                 TEXT PRIMARY KEY,
	event_type         TEXT NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	product_name       TEXT NOT NULL,
	product_type       TEXT NOT NULL DEFAULT '',
	recall_date        DATETIME NOT NULL,
	manufacturer_id    TEXT REFERENCES companies(id),
	recalling_firm_id  TEXT REFERENCES companies(id),
	batch_numbers      TEXT NOT NULL DEFAULT '',
	manufacturing_date DATETIME,
	expiry_date        DATETIME,
	reason_for_action  TEXT NOT NULL,
	source_url         TEXT NOT NULL UNIQUE,
	detail_page_url    TEXT NOT NULL DEFAULT '',
	summary_path       TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_recalls_event_type ON recalls(event_type);
CREATE INDEX IF NOT EXISTS idx_recalls_recall_date ON recalls(recall_date DESC);
CREATE INDEX IF NOT EXISTS idx_recalls_manufacturer ON recalls(manufacturer_id);
CREATE INDEX IF NOT EXISTS idx_recalls_recalling_firm ON recalls(recalling_firm_id);
CREATE INDEX IF NOT EXISTS idx_recalls_created_at ON recalls(created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertRecall(ctx context.Context, rec *model.RecallRecord) error {
	prepareRecall(rec)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recalls (`+recallColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (source_url) DO NOTHING`,
		rec.ID.String(), string(rec.EventType), rec.Title, rec.ProductName, rec.ProductType,
		rec.RecallDate, uuidPtrString(rec.ManufacturerID), uuidPtrString(rec.RecallingFirmID),
		rec.BatchNumbers, timePtrValue(rec.ManufacturingDate), timePtrValue(rec.ExpiryDate),
		rec.ReasonForAction, rec.SourceURL, rec.DetailPageURL, rec.SummaryPath,
		rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert recall %s", rec.SourceURL)
}

// InsertRecallBatch inserts expanded multi-product sub-records in one
// transaction. SQLite has no COPY protocol, so this is a plain loop.
func (s *SQLiteStore) InsertRecallBatch(ctx context.Context, recs []model.RecallRecord) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin batch")
	}
	defer tx.Rollback()

	inserted := 0
	for i := range recs {
		rec := &recs[i]
		prepareRecall(rec)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO recalls (`+recallColumns+`)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (source_url) DO NOTHING`,
			rec.ID.String(), string(rec.EventType), rec.Title, rec.ProductName, rec.ProductType,
			rec.RecallDate, uuidPtrString(rec.ManufacturerID), uuidPtrString(rec.RecallingFirmID),
			rec.BatchNumbers, timePtrValue(rec.ManufacturingDate), timePtrValue(rec.ExpiryDate),
			rec.ReasonForAction, rec.SourceURL, rec.DetailPageURL, rec.SummaryPath,
			rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: batch insert %s", rec.SourceURL)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit batch")
	}
	return inserted, nil
}

func (s *SQLiteStore) ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM recalls WHERE source_url = ?)`,
		sourceURL,
	).Scan(&exists)
	return exists, eris.Wrap(err, "sqlite: exists by source url")
}

func (s *SQLiteStore) ListRecalls(ctx context.Context, filter RecallFilter) ([]model.RecallRecord, error) {
	query := `SELECT ` + recallColumns + ` FROM recalls WHERE 1=1`
	var args []any

	if filter.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, string(filter.EventType))
	}
	query += ` ORDER BY recall_date DESC, created_at DESC`

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
		return nil, eris.Wrap(err, "sqlite: list recalls")
	}
	defer rows.Close()

	return collectRecallsSQLite(rows)
}

func (s *SQLiteStore) RecentRecalls(ctx context.Context, limit int) ([]model.RecallRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recallColumns+` FROM recalls ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent recalls")
	}
	defer rows.Close()

	return collectRecallsSQLite(rows)
}

func (s *SQLiteStore) CountsByEventType(ctx context.Context) (map[model.EventType]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_type, COUNT(*) FROM recalls GROUP BY event_type`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: counts by event type")
	}
	defer rows.Close()

	counts := make(map[model.EventType]int)
	for rows.Next() {
		var et string
		var n int
		if err := rows.Scan(&et, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event count")
		}
		counts[model.EventType(et)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: counts iterate")
}

func (s *SQLiteStore) FindCompanyByName(ctx context.Context, name string) (*model.Company, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE lower(name) = lower(?)`,
		name,
	)
	c, err := scanCompanySQLite(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: find company %q", name)
	}
	return c, nil
}

func (s *SQLiteStore) CreateCompany(ctx context.Context, c *model.Company) error {
	prepareCompany(c)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (`+companyColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Name, c.CountryCode, string(c.Type), string(c.SourceRole),
		timePtrValue(c.FoundingDate), c.FounderName, c.Brief, timePtrValue(c.EnrichedAt),
		c.CreatedAt, c.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert company %q", c.Name)
}

func (s *SQLiteStore) ListCompanies(ctx context.Context, onlyUnenriched bool, limit int) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies`
	if onlyUnenriched {
		query += ` WHERE enriched_at IS NULL`
	}
	query += ` ORDER BY name LIMIT ?`
	if limit <= 0 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanCompanySQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company")
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "sqlite: list companies iterate")
}

func (s *SQLiteStore) CountCompanies(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count companies")
}

func (s *SQLiteStore) UpdateCompanyEnrichment(ctx context.Context, id uuid.UUID, e model.Enrichment) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies
		 SET founding_date = ?, founder_name = ?, brief = ?, country_code = ?,
		     enriched_at = ?, updated_at = ?
		 WHERE id = ?`,
		timePtrValue(e.FoundingDate), e.FounderName, e.Brief, e.CountryCode, now, now, id.String(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update enrichment %s", id)
	}
	return checkRowsAffected(res, "company", id.String())
}

func (s *SQLiteStore) UpdateCompanyType(ctx context.Context, id uuid.UUID, t model.CompanyType) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET company_type = ?, updated_at = ? WHERE id = ?`,
		string(t), time.Now().UTC(), id.String(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update company type %s", id)
	}
	return checkRowsAffected(res, "company", id.String())
}

func (s *SQLiteStore) FindDuplicateCompanyGroups(ctx context.Context) ([]model.DuplicateGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, company_type FROM companies ORDER BY lower(name), created_at`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find duplicate groups")
	}
	defer rows.Close()

	var members []dupMember
	for rows.Next() {
		var m dupMember
		if err := rows.Scan(&m.id, &m.name, &m.typ); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan duplicate member")
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: duplicate groups iterate")
	}
	return groupDuplicates(members)
}

func (s *SQLiteStore) MergeCompanyInto(ctx context.Context, dupID, survivorID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin merge")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE recalls SET manufacturer_id = ?, updated_at = ? WHERE manufacturer_id = ?`,
		survivorID.String(), now, dupID.String(),
	); err != nil {
		return eris.Wrap(err, "sqlite: repoint manufacturer refs")
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE recalls SET recalling_firm_id = ?, updated_at = ? WHERE recalling_firm_id = ?`,
		survivorID.String(), now, dupID.String(),
	); err != nil {
		return eris.Wrap(err, "sqlite: repoint recalling firm refs")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM companies WHERE id = ?`,
		dupID.String(),
	); err != nil {
		return eris.Wrap(err, "sqlite: delete duplicate company")
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit merge")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

// timePtrValue converts a *time.Time into a driver-friendly nullable
// value. database/sql maps a nil any to NULL, but a typed nil pointer
// confuses some drivers.
func timePtrValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func collectRecallsSQLite(rows *sql.Rows) ([]model.RecallRecord, error) {
	var recs []model.RecallRecord
	for rows.Next() {
		rec, err := scanRecallSQLite(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: iterate recalls")
}

func scanRecallSQLite(row scannable) (*model.RecallRecord, error) {
	var rec model.RecallRecord
	var id, eventType string
	var manID, rfID sql.NullString
	var mfgDate, expDate sql.NullTime

	err := row.Scan(&id, &eventType, &rec.Title, &rec.ProductName, &rec.ProductType,
		&rec.RecallDate, &manID, &rfID, &rec.BatchNumbers, &mfgDate, &expDate,
		&rec.ReasonForAction, &rec.SourceURL, &rec.DetailPageURL, &rec.SummaryPath,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan recall")
	}

	rec.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: parse recall id")
	}
	rec.EventType = model.EventType(eventType)
	if rec.ManufacturerID, err = parseUUIDPtr(nullStringPtr(manID)); err != nil {
		return nil, err
	}
	if rec.RecallingFirmID, err = parseUUIDPtr(nullStringPtr(rfID)); err != nil {
		return nil, err
	}
	rec.ManufacturingDate = nullTimePtr(mfgDate)
	rec.ExpiryDate = nullTimePtr(expDate)
	return &rec, nil
}

func scanCompanySQLite(row scannable) (*model.Company, error) {
	var c model.Company
	var id, companyType, sourceRole string
	var foundingDate, enrichedAt sql.NullTime

	err := row.Scan(&id, &c.Name, &c.CountryCode, &companyType, &sourceRole,
		&foundingDate, &c.FounderName, &c.Brief, &enrichedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: parse company id")
	}
	c.Type = model.CompanyType(companyType)
	c.SourceRole = model.Role(sourceRole)
	c.FoundingDate = nullTimePtr(foundingDate)
	c.EnrichedAt = nullTimePtr(enrichedAt)
	return &c, nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
