package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"localnews/internal/model"
	"localnews/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

const sourceColumns = `id, name, city, website_url, feed_url, assume_local, created_at`

const articleColumns = `id, source_id, title, url, content, published_at, fetched_at,
	location, market, is_local, is_accessible, bullet, priority, origin`

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases
	// shared across goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateSource inserts a new source and populates its ID and CreatedAt.
func (s *SQLite) CreateSource(ctx context.Context, src *model.Source) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (name, city, website_url, feed_url, assume_local, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		src.Name, src.City, src.WebsiteURL, src.FeedURL, boolToInt(src.AssumeLocal), now,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	src.ID = id
	src.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetSource returns a single source by its ID.
func (s *SQLite) GetSource(ctx context.Context, id int64) (*model.Source, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)
	return scanSource(row)
}

// ListSources returns every source ordered by ID.
func (s *SQLite) ListSources(ctx context.Context) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSources(rows)
}

// ListSourcesByCity returns the sources whose home city matches city,
// ignoring case.
func (s *SQLite) ListSourcesByCity(ctx context.Context, city string) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE city = ? COLLATE NOCASE ORDER BY id`,
		strings.TrimSpace(city),
	)
	if err != nil {
		return nil, fmt.Errorf("query sources by city: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSources(rows)
}

// FindSourceByWebsite returns the source with the given website URL. A
// trailing slash is ignored on both sides.
func (s *SQLite) FindSourceByWebsite(ctx context.Context, websiteURL string) (*model.Source, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sourceColumns+` FROM sources
		 WHERE rtrim(website_url, '/') = ? COLLATE NOCASE ORDER BY id LIMIT 1`,
		strings.TrimRight(strings.TrimSpace(websiteURL), "/"),
	)
	return scanSource(row)
}

// UpdateFeedURL sets the feed locator of a source.
func (s *SQLite) UpdateFeedURL(ctx context.Context, id int64, feedURL string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE sources SET feed_url = ? WHERE id = ?`, feedURL, id)
	if err != nil {
		return fmt.Errorf("update feed url: %w", err)
	}
	return requireRow(res, "source", id)
}

// ExistingURLs returns the set of URLs stored for a source.
func (s *SQLite) ExistingURLs(ctx context.Context, sourceID int64) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url FROM articles WHERE source_id = ?`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("query urls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	urls := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls[u] = struct{}{}
	}
	return urls, rows.Err()
}

// InsertArticles stores drafts in one transaction and returns the number of
// new rows.
func (s *SQLite) InsertArticles(ctx context.Context, drafts []model.Article) (int, error) {
	if len(drafts) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO articles
		 (source_id, title, url, content, published_at, fetched_at,
		  location, market, is_local, is_accessible, bullet, priority, origin)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, a := range drafts {
		fetched := a.FetchedAt
		if fetched.IsZero() {
			fetched = time.Now()
		}
		origin := a.Origin
		if origin == "" {
			origin = model.OriginFeed
		}

		res, err := stmt.ExecContext(ctx,
			a.SourceID, a.Title, a.URL, deref(a.Content), formatTime(a.PublishedAt), fetched.UTC().Format(timeLayout),
			deref(a.Location), deref(a.Market), nullBool(a.IsLocal), nullBool(a.IsAccessible),
			deref(a.Bullet), deref(a.Priority), string(origin),
		)
		if err != nil {
			return 0, fmt.Errorf("insert article %s: %w", a.URL, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

// ListArticles returns the articles of a source ordered by ID.
func (s *SQLite) ListArticles(ctx context.Context, sourceID int64) ([]model.Article, error) {
	return s.queryArticles(ctx, `WHERE source_id = ? ORDER BY id`, sourceID)
}

// ListArticlesMissingMarket returns articles that have no market yet.
func (s *SQLite) ListArticlesMissingMarket(ctx context.Context) ([]model.Article, error) {
	return s.queryArticles(ctx, `WHERE market IS NULL OR market = '' ORDER BY id`)
}

// SetMarket stores the resolved market of an article.
func (s *SQLite) SetMarket(ctx context.Context, id int64, market string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE articles SET market = ? WHERE id = ?`, market, id)
	if err != nil {
		return fmt.Errorf("set market: %w", err)
	}
	return requireRow(res, "article", id)
}

// ListArticlesPendingAccess returns local articles whose accessibility is
// unset. Articles not yet marked local wait for analysis to write their
// bullet first.
func (s *SQLite) ListArticlesPendingAccess(ctx context.Context) ([]model.Article, error) {
	return s.queryArticles(ctx, `WHERE is_accessible IS NULL AND is_local = 1 ORDER BY id`)
}

// SetAccessible stores the accessibility flag of an article.
func (s *SQLite) SetAccessible(ctx context.Context, id int64, accessible bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET is_accessible = ? WHERE id = ?`, boolToInt(accessible), id,
	)
	if err != nil {
		return fmt.Errorf("set accessible: %w", err)
	}
	return requireRow(res, "article", id)
}

// UpdateAnalysis writes the non-nil fields of a onto an article. Title, URL
// and source are never changed.
func (s *SQLite) UpdateAnalysis(ctx context.Context, id int64, a model.Analysis) error {
	if a.Priority != nil && (*a.Priority < 1 || *a.Priority > 5) {
		return fmt.Errorf("update analysis %d: %w", id, ErrInvalidPriority)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE articles SET
		   location = COALESCE(?, location),
		   market   = COALESCE(?, market),
		   is_local = COALESCE(?, is_local),
		   bullet   = COALESCE(?, bullet),
		   priority = COALESCE(?, priority)
		 WHERE id = ?`,
		deref(a.Location), deref(a.Market), nullBool(a.IsLocal), deref(a.Bullet), deref(a.Priority), id,
	)
	if err != nil {
		return fmt.Errorf("update analysis: %w", err)
	}
	return requireRow(res, "article", id)
}

func (s *SQLite) queryArticles(ctx context.Context, where string, args ...any) ([]model.Article, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+articleColumns+` FROM articles `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	return boolToInt(*b)
}

// deref returns *p, or nil for a NULL column when p is nil.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSource(row scannable) (*model.Source, error) {
	var src model.Source
	var assumeLocal int
	var created sql.NullString
	err := row.Scan(&src.ID, &src.Name, &src.City, &src.WebsiteURL, &src.FeedURL, &assumeLocal, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("scan source: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan source: %w", err)
	}
	src.AssumeLocal = assumeLocal == 1
	if created.Valid {
		src.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &src, nil
}

func scanSources(rows *sql.Rows) ([]model.Source, error) {
	var sources []model.Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *src)
	}
	return sources, rows.Err()
}

func scanArticle(row scannable) (model.Article, error) {
	var a model.Article
	var content, published, location, market, bullet sql.NullString
	var isLocal, isAccessible, priority sql.NullInt64
	var fetched, origin string
	err := row.Scan(&a.ID, &a.SourceID, &a.Title, &a.URL, &content, &published, &fetched,
		&location, &market, &isLocal, &isAccessible, &bullet, &priority, &origin)
	if err != nil {
		return a, fmt.Errorf("scan article: %w", err)
	}

	a.Content = nullString(content)
	a.Location = nullString(location)
	a.Market = nullString(market)
	a.Bullet = nullString(bullet)
	if published.Valid {
		t, _ := time.Parse(timeLayout, published.String)
		a.PublishedAt = &t
	}
	a.FetchedAt, _ = time.Parse(timeLayout, fetched)
	if isLocal.Valid {
		a.IsLocal = model.BoolPtr(isLocal.Int64 == 1)
	}
	if isAccessible.Valid {
		a.IsAccessible = model.BoolPtr(isAccessible.Int64 == 1)
	}
	if priority.Valid {
		p := int(priority.Int64)
		a.Priority = &p
	}
	a.Origin = model.Origin(origin)
	return a, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
