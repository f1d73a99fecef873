package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/safetyiq/recall-cli/internal/db"
	"github.com/safetyiq/recall-cli/internal/model"
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

const recallColumns = `id, event_type, title, product_name, product_type, recall_date, manufacturer_id, recalling_firm_id, batch_numbers, manufacturing_date, expiry_date, reason_for_action, source_url, detail_page_url, summary_path, created_at, updated_at`

const companyColumns = `id, name, country_code, company_type, source_role, founding_date, founder_name, brief, enriched_at, created_at, updated_at`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations in the ingest loop.
var preparedStatements = map[string]string{
	"exists_source_url":    `SELECT EXISTS (SELECT 1 FROM recalls WHERE source_url = $1)`,
	"insert_recall":        `INSERT INTO recalls (` + recallColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17) ON CONFLICT (source_url) DO NOTHING`,
	"find_company_by_name": `SELECT ` + companyColumns + ` FROM companies WHERE lower(name) = lower($1)`,
	"insert_company":       `INSERT INTO companies (` + companyColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
	"count_companies":      `SELECT COUNT(*) FROM companies`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

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

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	country_code  TEXT NOT NULL DEFAULT '',
	company_type  TEXT NOT NULL,
	source_role   TEXT NOT NULL DEFAULT '',
	founding_date DATE,
	founder_name  TEXT NOT NULL DEFAULT '',
	brief         TEXT NOT NULL DEFAULT '',
	enriched_at   TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_name_lower ON companies(lower(name));

CREATE TABLE IF NOT EXISTS recalls (
	id                 TEXT PRIMARY KEY,
	event_type         TEXT NOT NULL,
	title              TEXT NOT NULL DEFAULT '',
	product_name       TEXT NOT NULL,
	product_type       TEXT NOT NULL DEFAULT '',
	recall_date        DATE NOT NULL,
	manufacturer_id    TEXT REFERENCES companies(id),
	recalling_firm_id  TEXT REFERENCES companies(id),
	batch_numbers      TEXT NOT NULL DEFAULT '',
	manufacturing_date DATE,
	expiry_date        DATE,
	reason_for_action  TEXT NOT NULL,
	source_url         TEXT NOT NULL UNIQUE,
	detail_page_url    TEXT NOT NULL DEFAULT '',
	summary_path       TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_recalls_event_type ON recalls(event_type);
CREATE INDEX IF NOT EXISTS idx_recalls_recall_date ON recalls(recall_date DESC);
CREATE INDEX IF NOT EXISTS idx_recalls_manufacturer ON recalls(manufacturer_id);
CREATE INDEX IF NOT EXISTS idx_recalls_recalling_firm ON recalls(recalling_firm_id);
CREATE INDEX IF NOT EXISTS idx_recalls_created_at ON recalls(created_at DESC);
`

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

func (s *PostgresStore) InsertRecall(ctx context.Context, rec *model.RecallRecord) error {
	prepareRecall(rec)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO recalls (`+recallColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (source_url) DO NOTHING`,
		rec.ID.String(), string(rec.EventType), rec.Title, rec.ProductName, rec.ProductType,
		rec.RecallDate, uuidPtrString(rec.ManufacturerID), uuidPtrString(rec.RecallingFirmID),
		rec.BatchNumbers, rec.ManufacturingDate, rec.ExpiryDate, rec.ReasonForAction,
		rec.SourceURL, rec.DetailPageURL, rec.SummaryPath, rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert recall %s", rec.SourceURL)
}

// InsertRecallBatch bulk-inserts expanded multi-product sub-records via
// the COPY protocol. Callers must have deduplicated source URLs first;
// COPY cannot skip conflicts.
func (s *PostgresStore) InsertRecallBatch(ctx context.Context, recs []model.RecallRecord) (int, error) {
	columns := []string{"id", "event_type", "title", "product_name", "product_type", "recall_date",
		"manufacturer_id", "recalling_firm_id", "batch_numbers", "manufacturing_date", "expiry_date",
		"reason_for_action", "source_url", "detail_page_url", "summary_path", "created_at", "updated_at"}

	rows := make([][]any, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		prepareRecall(rec)
		rows = append(rows, []any{
			rec.ID.String(), string(rec.EventType), rec.Title, rec.ProductName, rec.ProductType,
			rec.RecallDate, uuidPtrString(rec.ManufacturerID), uuidPtrString(rec.RecallingFirmID),
			rec.BatchNumbers, rec.ManufacturingDate, rec.ExpiryDate, rec.ReasonForAction,
			rec.SourceURL, rec.DetailPageURL, rec.SummaryPath, rec.CreatedAt, rec.UpdatedAt,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "recalls", columns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: insert recall batch")
	}
	return int(n), nil
}

func (s *PostgresStore) ExistsBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM recalls WHERE source_url = $1)`,
		sourceURL,
	).Scan(&exists)
	return exists, eris.Wrap(err, "postgres: exists by source url")
}

func (s *PostgresStore) ListRecalls(ctx context.Context, filter RecallFilter) ([]model.RecallRecord, error) {
	query := `SELECT ` + recallColumns + ` FROM recalls WHERE true`
	args := []any{}
	argIdx := 1

	if filter.EventType != "" {
		query += fmt.Sprintf(` AND event_type = $%d`, argIdx)
		args = append(args, string(filter.EventType))
		argIdx++
	}
	query += ` ORDER BY recall_date DESC, created_at DESC`

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
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recalls")
	}
	defer rows.Close()

	var recs []model.RecallRecord
	for rows.Next() {
		rec, err := scanRecallPG(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list recalls iterate")
}

func (s *PostgresStore) RecentRecalls(ctx context.Context, limit int) ([]model.RecallRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+recallColumns+` FROM recalls ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent recalls")
	}
	defer rows.Close()

	var recs []model.RecallRecord
	for rows.Next() {
		rec, err := scanRecallPG(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: recent recalls iterate")
}

func (s *PostgresStore) CountsByEventType(ctx context.Context) (map[model.EventType]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_type, COUNT(*) FROM recalls GROUP BY event_type`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: counts by event type")
	}
	defer rows.Close()

	counts := make(map[model.EventType]int)
	for rows.Next() {
		var et string
		var n int
		if err := rows.Scan(&et, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event count")
		}
		counts[model.EventType(et)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: counts iterate")
}

func (s *PostgresStore) FindCompanyByName(ctx context.Context, name string) (*model.Company, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE lower(name) = lower($1)`,
		name,
	)
	c, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: find company %q", name)
	}
	return c, nil
}

func (s *PostgresStore) CreateCompany(ctx context.Context, c *model.Company) error {
	prepareCompany(c)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO companies (`+companyColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		c.ID.String(), c.Name, c.CountryCode, string(c.Type), string(c.SourceRole),
		c.FoundingDate, c.FounderName, c.Brief, c.EnrichedAt, c.CreatedAt, c.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert company %q", c.Name)
}

func (s *PostgresStore) ListCompanies(ctx context.Context, onlyUnenriched bool, limit int) ([]model.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies`
	if onlyUnenriched {
		query += ` WHERE enriched_at IS NULL`
	}
	query += ` ORDER BY name LIMIT $1`
	if limit <= 0 {
		limit = 500
	}

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list companies")
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan company")
		}
		companies = append(companies, *c)
	}
	return companies, eris.Wrap(rows.Err(), "postgres: list companies iterate")
}

func (s *PostgresStore) CountCompanies(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count companies")
}

func (s *PostgresStore) UpdateCompanyEnrichment(ctx context.Context, id uuid.UUID, e model.Enrichment) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies
		 SET founding_date = $1, founder_name = $2, brief = $3, country_code = $4,
		     enriched_at = now(), updated_at = now()
		 WHERE id = $5`,
		e.FoundingDate, e.FounderName, e.Brief, e.CountryCode, id.String(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update enrichment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("company not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateCompanyType(ctx context.Context, id uuid.UUID, t model.CompanyType) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE companies SET company_type = $1, updated_at = now() WHERE id = $2`,
		string(t), id.String(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update company type %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("company not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) FindDuplicateCompanyGroups(ctx context.Context) ([]model.DuplicateGroup, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, company_type FROM companies ORDER BY lower(name), created_at`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find duplicate groups")
	}
	defer rows.Close()

	var members []dupMember
	for rows.Next() {
		var m dupMember
		if err := rows.Scan(&m.id, &m.name, &m.typ); err != nil {
			return nil, eris.Wrap(err, "postgres: scan duplicate member")
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: duplicate groups iterate")
	}
	return groupDuplicates(members)
}

// MergeCompanyInto repoints every recall referencing the duplicate to
// the survivor, then deletes the duplicate. Runs in one transaction so a
// partial merge never leaves dangling references.
func (s *PostgresStore) MergeCompanyInto(ctx context.Context, dupID, survivorID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin merge")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE recalls SET manufacturer_id = $1, updated_at = now() WHERE manufacturer_id = $2`,
		survivorID.String(), dupID.String(),
	); err != nil {
		return eris.Wrap(err, "postgres: repoint manufacturer refs")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE recalls SET recalling_firm_id = $1, updated_at = now() WHERE recalling_firm_id = $2`,
		survivorID.String(), dupID.String(),
	); err != nil {
		return eris.Wrap(err, "postgres: repoint recalling firm refs")
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM companies WHERE id = $1`,
		dupID.String(),
	); err != nil {
		return eris.Wrap(err, "postgres: delete duplicate company")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit merge")
}

// helpers

func prepareRecall(rec *model.RecallRecord) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
}

func prepareCompany(c *model.Company) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecallPG(row scannable) (*model.RecallRecord, error) {
	var rec model.RecallRecord
	var id, eventType string
	var manID, rfID *string

	err := row.Scan(&id, &eventType, &rec.Title, &rec.ProductName, &rec.ProductType,
		&rec.RecallDate, &manID, &rfID, &rec.BatchNumbers, &rec.ManufacturingDate,
		&rec.ExpiryDate, &rec.ReasonForAction, &rec.SourceURL, &rec.DetailPageURL,
		&rec.SummaryPath, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan recall")
	}

	rec.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse recall id")
	}
	rec.EventType = model.EventType(eventType)
	if rec.ManufacturerID, err = parseUUIDPtr(manID); err != nil {
		return nil, err
	}
	if rec.RecallingFirmID, err = parseUUIDPtr(rfID); err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanCompany(row scannable) (*model.Company, error) {
	var c model.Company
	var id, companyType, sourceRole string

	err := row.Scan(&id, &c.Name, &c.CountryCode, &companyType, &sourceRole,
		&c.FoundingDate, &c.FounderName, &c.Brief, &c.EnrichedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse company id")
	}
	c.Type = model.CompanyType(companyType)
	c.SourceRole = model.Role(sourceRole)
	return &c, nil
}

func parseUUIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse uuid")
	}
	return &id, nil
}

// dupMember is one company row considered during duplicate grouping.
type dupMember struct {
	id   string
	name string
	typ  string
}

func normalizeNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// groupDuplicates buckets rows already sorted by lowercased name into
// groups of two or more sharing an identity key.
func groupDuplicates(members []dupMember) ([]model.DuplicateGroup, error) {
	var groups []model.DuplicateGroup
	var cur model.DuplicateGroup
	var curKey string

	flush := func() {
		if len(cur.IDs) > 1 {
			groups = append(groups, cur)
		}
	}

	for _, m := range members {
		id, err := uuid.Parse(m.id)
		if err != nil {
			return nil, eris.Wrap(err, "store: parse duplicate id")
		}
		key := normalizeNameKey(m.name)
		if key != curKey {
			flush()
			cur = model.DuplicateGroup{Name: m.name}
			curKey = key
		}
		cur.IDs = append(cur.IDs, id)
		cur.Types = append(cur.Types, model.CompanyType(m.typ))
	}
	flush()
	return groups, nil
}
