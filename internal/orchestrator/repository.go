package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository persists the session history.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	Complete(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, filter HistoryFilter) (*HistoryPage, error)
}

// HistoryFilter controls which records List returns.
type HistoryFilter struct {
	Kind   RecordKind // optional
	RefID  string     // optional: scene or trigger ID
	Limit  int        // default 50, max 200
	Offset int
}

// HistoryPage is one page of records, most recent first.
type HistoryPage struct {
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const recordColumns = `id, kind, ref_id, name, status, events, started_at, ended_at, duration_ms`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a record. ID and StartedAt are generated when empty.
func (r *SQLiteRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = GenerateID()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_history (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.Kind), nullableString(rec.RefID), nullableString(rec.Name),
		string(rec.Status), rec.Events,
		rec.StartedAt.UTC().Format(timeLayout), nullableTime(rec.EndedAt), nullableInt(rec.DurationMS),
	)
	if err != nil {
		return fmt.Errorf("inserting history record: %w", err)
	}
	return nil
}

// Complete stores the final status, end time and duration of a record.
func (r *SQLiteRepository) Complete(ctx context.Context, rec *Record) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE session_history SET status = ?, ended_at = ?, duration_ms = ? WHERE id = ?`,
		string(rec.Status), nullableTime(rec.EndedAt), nullableInt(rec.DurationMS), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("updating history record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Get retrieves a record by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM session_history WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("querying history record: %w", err)
	}
	return rec, nil
}

// List returns records matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter HistoryFilter) (*HistoryPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.RefID != "" {
		conditions = append(conditions, "ref_id = ?")
		args = append(args, filter.RefID)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM session_history " + where //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting history records: %w", err)
	}

	query := "SELECT " + recordColumns + " FROM session_history " + where + //nolint:gosec // WHERE built from parameterised conditions
		" ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying history records: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning history record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history records: %w", err)
	}

	return &HistoryPage{Records: records, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (*Record, error) {
	var (
		rec                Record
		kind, status       string
		refID, name, ended sql.NullString
		startedAt          string
		duration           sql.NullInt64
	)
	if err := s.Scan(&rec.ID, &kind, &refID, &name, &status, &rec.Events, &startedAt, &ended, &duration); err != nil {
		return nil, err
	}
	rec.Kind = RecordKind(kind)
	rec.Status = RecordStatus(status)
	rec.RefID = refID.String
	rec.Name = name.String

	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at %q: %w", startedAt, err)
	}
	rec.StartedAt = t

	if ended.Valid {
		e, err := time.Parse(timeLayout, ended.String)
		if err != nil {
			return nil, fmt.Errorf("parsing ended_at %q: %w", ended.String, err)
		}
		rec.EndedAt = &e
	}
	if duration.Valid {
		d := int(duration.Int64)
		rec.DurationMS = &d
	}
	return &rec, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func nullableInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
