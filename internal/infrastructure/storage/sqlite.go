package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bitcompare/bitcompare/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS news_articles (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL UNIQUE,
			summary TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			published_at DATETIME NOT NULL,
			impact TEXT NOT NULL DEFAULT 'LOW',
			tags TEXT NOT NULL DEFAULT '',
			views INTEGER NOT NULL DEFAULT 0,
			shares INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS newsletter_subscriptions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			active BOOLEAN NOT NULL DEFAULT 1,
			subscribed_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS price_alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL,
			target_price REAL NOT NULL,
			alert_type TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1,
			triggered BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_price_alerts_email ON price_alerts(email);`,
		`CREATE INDEX IF NOT EXISTS idx_news_published ON news_articles(published_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// NewsRepository implementation

// SaveArticle inserts an article, deduplicating by exact title: if the title
// already exists the stored original is returned untouched.
func (s *SQLiteStore) SaveArticle(ctx context.Context, article *domain.NewsArticle) (*domain.NewsArticle, error) {
	existing, err := s.getArticleByTitle(ctx, article.Title)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	query := `INSERT INTO news_articles (title, summary, url, source, author, published_at, impact, tags)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		article.Title, article.Summary, article.URL, article.Source, article.Author,
		article.PublishedAt, string(article.Impact), strings.Join(article.Tags, ","))
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	stored := *article
	stored.ID = id
	return &stored, nil
}

const articleColumns = `id, title, summary, url, source, author, published_at, impact, tags, views, shares`

func (s *SQLiteStore) scanArticle(row *sql.Row) (*domain.NewsArticle, error) {
	var a domain.NewsArticle
	var impact, tags string
	err := row.Scan(&a.ID, &a.Title, &a.Summary, &a.URL, &a.Source, &a.Author,
		&a.PublishedAt, &impact, &tags, &a.Views, &a.Shares)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Impact = domain.NewsImpact(impact)
	if tags != "" {
		a.Tags = strings.Split(tags, ",")
	}
	return &a, nil
}

func (s *SQLiteStore) getArticleByTitle(ctx context.Context, title string) (*domain.NewsArticle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM news_articles WHERE title = ?`, title)
	return s.scanArticle(row)
}

func (s *SQLiteStore) GetArticle(ctx context.Context, id int64) (*domain.NewsArticle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM news_articles WHERE id = ?`, id)
	return s.scanArticle(row)
}

func (s *SQLiteStore) ListArticles(ctx context.Context, limit int) ([]*domain.NewsArticle, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM news_articles ORDER BY published_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*domain.NewsArticle
	for rows.Next() {
		var a domain.NewsArticle
		var impact, tags string
		if err := rows.Scan(&a.ID, &a.Title, &a.Summary, &a.URL, &a.Source, &a.Author,
			&a.PublishedAt, &impact, &tags, &a.Views, &a.Shares); err != nil {
			return nil, err
		}
		a.Impact = domain.NewsImpact(impact)
		if tags != "" {
			a.Tags = strings.Split(tags, ",")
		}
		articles = append(articles, &a)
	}
	return articles, rows.Err()
}

func (s *SQLiteStore) IncrementViews(ctx context.Context, id int64) error {
	return s.incrementCounter(ctx, "views", id)
}

func (s *SQLiteStore) IncrementShares(ctx context.Context, id int64) error {
	return s.incrementCounter(ctx, "shares", id)
}

func (s *SQLiteStore) incrementCounter(ctx context.Context, column string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE news_articles SET `+column+` = `+column+` + 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SubscriptionRepository implementation

func (s *SQLiteStore) SaveSubscription(ctx context.Context, sub *domain.NewsletterSubscription) error {
	query := `INSERT INTO newsletter_subscriptions (email, active, subscribed_at) VALUES (?, ?, ?)
			  ON CONFLICT(email) DO UPDATE SET active = excluded.active, subscribed_at = excluded.subscribed_at`
	res, err := s.db.ExecContext(ctx, query, sub.Email, sub.Active, sub.SubscribedAt)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		sub.ID = id
	}
	return nil
}

func (s *SQLiteStore) GetSubscription(ctx context.Context, email string) (*domain.NewsletterSubscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, active, subscribed_at FROM newsletter_subscriptions WHERE email = ?`, email)

	var sub domain.NewsletterSubscription
	err := row.Scan(&sub.ID, &sub.Email, &sub.Active, &sub.SubscribedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *SQLiteStore) SetSubscriptionActive(ctx context.Context, email string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE newsletter_subscriptions SET active = ? WHERE email = ?`, active, email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AlertRepository implementation

func (s *SQLiteStore) SaveAlert(ctx context.Context, alert *domain.PriceAlert) error {
	query := `INSERT INTO price_alerts (email, target_price, alert_type, active, triggered, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		alert.Email, alert.TargetPrice, string(alert.Type), alert.Active, alert.Triggered, alert.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	alert.ID = id
	return nil
}

func (s *SQLiteStore) ListAlertsByEmail(ctx context.Context, email string) ([]*domain.PriceAlert, error) {
	return s.listAlerts(ctx, `SELECT id, email, target_price, alert_type, active, triggered, created_at
		FROM price_alerts WHERE email = ? ORDER BY created_at DESC`, email)
}

func (s *SQLiteStore) ListActiveAlerts(ctx context.Context) ([]*domain.PriceAlert, error) {
	return s.listAlerts(ctx, `SELECT id, email, target_price, alert_type, active, triggered, created_at
		FROM price_alerts WHERE active = 1 AND triggered = 0`)
}

func (s *SQLiteStore) listAlerts(ctx context.Context, query string, args ...any) ([]*domain.PriceAlert, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.PriceAlert
	for rows.Next() {
		var a domain.PriceAlert
		var alertType string
		if err := rows.Scan(&a.ID, &a.Email, &a.TargetPrice, &alertType, &a.Active, &a.Triggered, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Type = domain.AlertType(alertType)
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteStore) MarkAlertTriggered(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE price_alerts SET triggered = 1, active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
