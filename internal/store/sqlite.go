package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/roniherschmann/linkgate/internal/core"
)

type SQLite struct {
	db *sqlx.DB
}

// Open connects to dsn, tunes the pool and applies migrations.
func Open(dsn string) (*SQLite, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if strings.Contains(dsn, ":memory:") {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	if err := Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func isConstraint(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}

func (s *SQLite) CreateLink(ctx context.Context, l *core.Link) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO links(short_code, original_url, created_at, click_count, is_active) VALUES(?, ?, ?, ?, ?)`,
		l.ShortCode, l.OriginalURL, toNanos(l.CreatedAt), l.ClickCount, l.IsActive)
	if err != nil {
		if isConstraint(err) {
			return core.ErrConflict
		}
		return fmt.Errorf("insert link: %w", err)
	}
	return nil
}

const selectLink = `
SELECT l.short_code, l.original_url, l.created_at, l.click_count, l.is_active,
	(SELECT COUNT(*) FROM visits v WHERE v.link_code = l.short_code) AS visits_count
FROM links l`

func (s *SQLite) GetLink(ctx context.Context, code string) (*core.Link, error) {
	var row linkRow
	if err := s.db.GetContext(ctx, &row, selectLink+` WHERE l.short_code = ?`, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get link: %w", err)
	}
	link := row.decode()
	return &link, nil
}

func (s *SQLite) ListLinks(ctx context.Context) ([]core.Link, error) {
	var rows []linkRow
	if err := s.db.SelectContext(ctx, &rows, selectLink+` ORDER BY l.created_at DESC, l.rowid DESC`); err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	out := make([]core.Link, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.decode())
	}
	return out, nil
}

func (s *SQLite) IncrementClick(ctx context.Context, code string) error {
	return s.execOne(ctx, `UPDATE links SET click_count = click_count + 1 WHERE short_code = ?`, code)
}

func (s *SQLite) SetActive(ctx context.Context, code string, active bool) error {
	return s.execOne(ctx, `UPDATE links SET is_active = ? WHERE short_code = ?`, active, code)
}

// DeleteLink removes the link and its visits in one transaction.
func (s *SQLite) DeleteLink(ctx context.Context, code string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM links WHERE short_code = ?`, code)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM visits WHERE link_code = ?`, code); err != nil {
		return fmt.Errorf("delete visits: %w", err)
	}
	return tx.Commit()
}

func (s *SQLite) AppendVisit(ctx context.Context, v core.VisitEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO visits(link_code, ip_address, user_agent, referrer, step, visited_at) VALUES(?, ?, ?, ?, ?, ?)`,
		v.LinkCode, v.IPAddress, v.UserAgent, v.Referrer, v.Step, toNanos(v.VisitedAt))
	if err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}
	return nil
}

func (s *SQLite) ListVisits(ctx context.Context, code string) ([]core.VisitEvent, error) {
	var rows []visitRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT link_code, ip_address, user_agent, referrer, step, visited_at FROM visits WHERE link_code = ? ORDER BY id`, code)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	out := make([]core.VisitEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.decode())
	}
	return out, nil
}

func (s *SQLite) ListAds(ctx context.Context) ([]core.Ad, error) {
	var rows []adRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT id, ad_type, ad_content, position, is_active FROM ads ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list ads: %w", err)
	}
	out := make([]core.Ad, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.decode())
	}
	return out, nil
}

// CreateAd lets SQLite pick max(id)+1 for the new row.
func (s *SQLite) CreateAd(ctx context.Context, a *core.Ad) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO ads(ad_type, ad_content, position, is_active) VALUES(?, ?, ?, ?)`,
		a.AdType, a.AdContent, a.Position, a.IsActive)
	if err != nil {
		return fmt.Errorf("insert ad: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (s *SQLite) UpdateAd(ctx context.Context, a core.Ad) error {
	return s.execOne(ctx,
		`UPDATE ads SET ad_type = ?, ad_content = ?, position = ?, is_active = ? WHERE id = ?`,
		a.AdType, a.AdContent, a.Position, a.IsActive, a.ID)
}

func (s *SQLite) DeleteAd(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ads WHERE id = ?`, id)
	return err
}

func (s *SQLite) GetAdmin(ctx context.Context) (*core.AdminCredential, error) {
	var row adminRow
	if err := s.db.GetContext(ctx, &row, `SELECT username, password_hash, created_at FROM admin WHERE id = 1`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &core.AdminCredential{
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		CreatedAt:    fromNanos(row.CreatedAt),
	}, nil
}

func (s *SQLite) SaveAdmin(ctx context.Context, c core.AdminCredential) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO admin(id, username, password_hash, created_at) VALUES(1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET username = excluded.username, password_hash = excluded.password_hash`,
		c.Username, c.PasswordHash, toNanos(c.CreatedAt))
	return err
}

func (s *SQLite) Stats(ctx context.Context) (core.Stats, error) {
	var out struct {
		TotalLinks  int64 `db:"total_links"`
		ActiveLinks int64 `db:"active_links"`
		TotalClicks int64 `db:"total_clicks"`
		TotalVisits int64 `db:"total_visits"`
	}
	err := s.db.GetContext(ctx, &out, `
SELECT
	(SELECT COUNT(*) FROM links) AS total_links,
	(SELECT COUNT(*) FROM links WHERE is_active = 1) AS active_links,
	(SELECT COALESCE(SUM(click_count), 0) FROM links) AS total_clicks,
	(SELECT COUNT(*) FROM visits WHERE link_code IN (SELECT short_code FROM links)) AS total_visits`)
	if err != nil {
		return core.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return core.Stats(out), nil
}

// execOne runs an update that must touch exactly one existing row.
func (s *SQLite) execOne(ctx context.Context, q string, args ...any) error {
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Compile-time check: *SQLite implements core.Store.
var _ core.Store = (*SQLite)(nil)
