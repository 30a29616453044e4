package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"

	"github.com/tradingzbotem/sparks/pkg/domain"
)

// NewsRepository handles news item database operations
type NewsRepository struct {
	db *sqlx.DB
}

// newsItemSQL represents a news item row for SQL operations
type newsItemSQL struct {
	ID          int64      `db:"id"`
	NaturalKey  string     `db:"natural_key"`
	Title       string     `db:"title"`
	URL         string     `db:"url"`
	Source      string     `db:"source"`
	Summary     string     `db:"summary"`
	PublishedAt time.Time  `db:"published_at"`
	Category    string     `db:"category"`
	Impact      int        `db:"impact"`
	Sentiment   string     `db:"sentiment"`
	Instruments stringsSQL `db:"instruments"`
	IsDemo      bool       `db:"is_demo"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// NewNewsRepository creates a news repository over an open database
func NewNewsRepository(db *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

// UpsertRawNews inserts new items and updates existing ones matched by the
// natural key. Returns the number of rows actually added, so re-submitting
// the same batch yields zero on the second call. Enrichment columns are left
// untouched on update; ingestion never clobbers them.
func (r *NewsRepository) UpsertRawNews(ctx context.Context, items []domain.NewsItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	added := 0
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	err := retrier.Do(ctx, func() error {
		added = 0
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			if isLockError(err) {
				return err // repeater will retry this
			}
			return &criticalError{err: fmt.Errorf("begin upsert: %w", err)}
		}
		defer func() { _ = tx.Rollback() }()

		for _, item := range items {
			var exists bool
			if err := tx.GetContext(ctx, &exists,
				"SELECT EXISTS(SELECT 1 FROM news_items WHERE natural_key = ?)", item.NaturalKey()); err != nil {
				return r.retryable(fmt.Errorf("check item exists: %w", err))
			}

			row := newsItemSQL{
				NaturalKey:  item.NaturalKey(),
				Title:       item.Title,
				URL:         item.URL,
				Source:      item.Source,
				Summary:     item.Summary,
				PublishedAt: item.PublishedAt.UTC(),
				Category:    item.Category,
				Impact:      item.Impact,
				Sentiment:   string(item.Sentiment),
				Instruments: stringsSQL(item.Instruments),
				IsDemo:      item.IsDemo,
			}
			query := `
				INSERT INTO news_items (
					natural_key, title, url, source, summary, published_at,
					category, impact, sentiment, instruments, is_demo
				) VALUES (
					:natural_key, :title, :url, :source, :summary, :published_at,
					:category, :impact, :sentiment, :instruments, :is_demo
				)
				ON CONFLICT(natural_key) DO UPDATE SET
					title = excluded.title,
					url = excluded.url,
					source = excluded.source,
					summary = excluded.summary,
					published_at = excluded.published_at,
					updated_at = CURRENT_TIMESTAMP
			`
			if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
				return r.retryable(fmt.Errorf("upsert item %q: %w", item.URL, err))
			}
			if !exists {
				added++
			}
		}

		if err := tx.Commit(); err != nil {
			return r.retryable(fmt.Errorf("commit upsert: %w", err))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// ListNews returns non-demo items (unless requested) whose publish time falls
// inside the rolling window, narrowed by the remaining filters. UpdatedAt is
// the max publish time of the returned set, used as a freshness signal.
func (r *NewsRepository) ListNews(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	hours := domain.NormalizeHours(req.Hours)
	now := time.Now().UTC()
	since := now.Add(-time.Duration(hours) * time.Hour)

	// the window is closed on both ends; future-dated items from feeds with
	// broken timezones never surface
	conds := []string{"published_at >= ?", "published_at <= ?"}
	args := []any{since, now}

	if !req.IncludeDemo {
		conds = append(conds, "is_demo = 0")
	}
	if req.Query != "" {
		conds = append(conds, "(LOWER(title) LIKE ? OR LOWER(summary) LIKE ?)")
		like := "%" + strings.ToLower(req.Query) + "%"
		args = append(args, like, like)
	}
	if len(req.Categories) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(req.Categories)), ",")
		conds = append(conds, fmt.Sprintf("category IN (%s)", placeholders))
		for _, c := range req.Categories {
			args = append(args, c)
		}
	}
	if req.MinImpact > 0 {
		conds = append(conds, "impact >= ?")
		args = append(args, req.MinImpact)
	}
	if req.Sentiment != "" && req.Sentiment != domain.SentimentAny {
		conds = append(conds, "sentiment = ?")
		args = append(args, string(req.Sentiment))
	}

	query := fmt.Sprintf("SELECT * FROM news_items WHERE %s ORDER BY published_at DESC", strings.Join(conds, " AND "))

	var rows []newsItemSQL
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return domain.ListResponse{}, fmt.Errorf("list news: %w", err)
	}

	// watchlist intersection is matched in memory, instruments are stored as
	// a JSON array
	resp := domain.ListResponse{Items: []domain.NewsItem{}}
	for _, row := range rows {
		item := row.toDomain()
		if !req.Matches(item) {
			continue
		}
		resp.Items = append(resp.Items, item)
		if resp.UpdatedAt == nil || item.PublishedAt.After(*resp.UpdatedAt) {
			ts := item.PublishedAt
			resp.UpdatedAt = &ts
		}
		if req.Limit > 0 && len(resp.Items) >= req.Limit {
			break
		}
	}
	return resp, nil
}

// ListUnenriched returns the most recent items the enrichment stage has not
// touched yet
func (r *NewsRepository) ListUnenriched(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	var rows []newsItemSQL
	query := `
		SELECT * FROM news_items
		WHERE category = '' AND is_demo = 0
		ORDER BY published_at DESC
		LIMIT ?
	`
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list unenriched: %w", err)
	}

	items := make([]domain.NewsItem, len(rows))
	for i, row := range rows {
		items[i] = row.toDomain()
	}
	return items, nil
}

// UpdateEnrichment stores enrichment metadata for the item with the given URL
func (r *NewsRepository) UpdateEnrichment(ctx context.Context, url string, e domain.Enrichment) error {
	query := `
		UPDATE news_items
		SET category = ?, impact = ?, sentiment = ?, instruments = ?, updated_at = CURRENT_TIMESTAMP
		WHERE url = ?
	`
	if _, err := r.db.ExecContext(ctx, query,
		e.Category, e.Impact, string(e.Sentiment), stringsSQL(e.Instruments), url); err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}
	return nil
}

// PurgeSeedItems deletes all demo rows and leaves real rows untouched
func (r *NewsRepository) PurgeSeedItems(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM news_items WHERE is_demo = 1")
	if err != nil {
		return 0, fmt.Errorf("purge seed items: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return removed, nil
}

// retryable marks lock errors for the repeater and everything else as final
func (r *NewsRepository) retryable(err error) error {
	if isLockError(err) {
		return err
	}
	return &criticalError{err: err}
}

// toDomain converts a SQL row to the domain item
func (row newsItemSQL) toDomain() domain.NewsItem {
	return domain.NewsItem{
		ID:          row.ID,
		Title:       row.Title,
		URL:         row.URL,
		Source:      row.Source,
		Summary:     row.Summary,
		PublishedAt: row.PublishedAt,
		Category:    row.Category,
		Impact:      row.Impact,
		Sentiment:   domain.Sentiment(row.Sentiment),
		Instruments: row.Instruments,
		IsDemo:      row.IsDemo,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}
