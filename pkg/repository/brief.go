package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tradingzbotem/sparks/pkg/domain"
)

// BriefRepository handles brief database operations
type BriefRepository struct {
	db *sqlx.DB
}

// briefSQL represents a brief row for SQL operations
type briefSQL struct {
	Window      string     `db:"window"`
	BriefID     string     `db:"brief_id"`
	GeneratedAt time.Time  `db:"generated_at"`
	What        stringsSQL `db:"what"`
	Why         stringsSQL `db:"why"`
	Watch       stringsSQL `db:"watch"`
	Extended    string     `db:"extended"`
	Disclaimer  string     `db:"disclaimer"`
}

// NewBriefRepository creates a brief repository over an open database
func NewBriefRepository(db *sqlx.DB) *BriefRepository {
	return &BriefRepository{db: db}
}

// UpsertBrief replaces the currently-latest brief for the brief's window
func (r *BriefRepository) UpsertBrief(ctx context.Context, brief domain.Brief) error {
	row := briefSQL{
		Window:      string(brief.Window),
		BriefID:     brief.ID,
		GeneratedAt: brief.GeneratedAt.UTC(),
		What:        stringsSQL(brief.Bullets.What),
		Why:         stringsSQL(brief.Bullets.Why),
		Watch:       stringsSQL(brief.Bullets.Watch),
		Extended:    brief.Extended,
		Disclaimer:  brief.Disclaimer,
	}
	query := `
		INSERT INTO briefs ("window", brief_id, generated_at, what, why, watch, extended, disclaimer)
		VALUES (:window, :brief_id, :generated_at, :what, :why, :watch, :extended, :disclaimer)
		ON CONFLICT("window") DO UPDATE SET
			brief_id = excluded.brief_id,
			generated_at = excluded.generated_at,
			what = excluded.what,
			why = excluded.why,
			watch = excluded.watch,
			extended = excluded.extended,
			disclaimer = excluded.disclaimer
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert brief: %w", err)
	}
	return nil
}

// GetLatestBrief returns the latest stored brief for the window, or nil if
// none was ever generated
func (r *BriefRepository) GetLatestBrief(ctx context.Context, window domain.Window) (*domain.Brief, error) {
	var row briefSQL
	err := r.db.GetContext(ctx, &row, `SELECT * FROM briefs WHERE "window" = ?`, string(window))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest brief: %w", err)
	}

	brief := row.toDomain()
	return &brief, nil
}

// toDomain converts a SQL row to the domain brief. Bullet lists always come
// back non-nil so readers never see a partially-shaped brief.
func (row briefSQL) toDomain() domain.Brief {
	brief := domain.Brief{
		ID:          row.BriefID,
		Window:      domain.Window(row.Window),
		GeneratedAt: row.GeneratedAt,
		Bullets: domain.BriefBullets{
			What:  row.What,
			Why:   row.Why,
			Watch: row.Watch,
		},
		Extended:   row.Extended,
		Disclaimer: row.Disclaimer,
	}
	if brief.Bullets.What == nil {
		brief.Bullets.What = []string{}
	}
	if brief.Bullets.Why == nil {
		brief.Bullets.Why = []string{}
	}
	if brief.Bullets.Watch == nil {
		brief.Bullets.Watch = []string{}
	}
	return brief
}
