package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	qa "mpc-plus/internal/qa/domain"
)

const recordColumns = `id, machine_id, check_category, variant, captured_at, check_date,
	measurements, leaves, approved_by, approved_at, source_path`

// RecordRepository persists check records with measurements and leaves as JSONB.
type RecordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRecordRepository constructs a repository.
func NewRecordRepository(db *sql.DB, logger *zap.Logger) *RecordRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordRepository{db: db, logger: logger}
}

// GetAll lists records matching filter ordered by capture time.
func (r *RecordRepository) GetAll(ctx context.Context, filter qa.RecordFilter) ([]qa.CheckRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("record repo: nil db")
	}
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.MachineID != "" {
		add("machine_id = $%d", filter.MachineID)
	}
	if filter.CheckCategory != "" {
		add("check_category = $%d", string(filter.CheckCategory))
	}
	if filter.Variant != "" {
		add("LOWER(variant) = LOWER($%d)", filter.Variant)
	}
	if !filter.Date.IsZero() {
		add("check_date = $%d", dayOf(filter.Date))
	}
	if !filter.StartDate.IsZero() {
		add("check_date >= $%d", dayOf(filter.StartDate))
	}
	if !filter.EndDate.IsZero() {
		add("check_date <= $%d", dayOf(filter.EndDate))
	}

	query := "SELECT " + recordColumns + "\nFROM check_records"
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY COALESCE(captured_at, check_date::timestamptz) ASC, id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []qa.CheckRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID fetches a record; nil when missing.
func (r *RecordRepository) GetByID(ctx context.Context, id string) (*qa.CheckRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("record repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM check_records
WHERE id = $1`, id)
	return scanRecord(row)
}

// Create inserts a record.
func (r *RecordRepository) Create(ctx context.Context, record qa.CheckRecord) error {
	if r == nil || r.db == nil {
		return errors.New("record repo: nil db")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	measurements, leaves, err := encodeRecord(record)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO check_records (
	`+recordColumns+`
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)`,
		record.ID, record.MachineID, string(record.CheckCategory), record.Variant, nullTime(record.Timestamp), record.Day(),
		measurements, leaves, record.ApprovedBy, nullTime(record.ApprovedDate), record.SourcePath)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", qa.ErrRecordExists, record.ID)
	}
	if err != nil {
		r.logger.Warn("check record insert failed", zap.String("id", record.ID), zap.Error(err))
	}
	return err
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Update overwrites the mutable columns of a record.
func (r *RecordRepository) Update(ctx context.Context, record qa.CheckRecord) error {
	if r == nil || r.db == nil {
		return errors.New("record repo: nil db")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	measurements, leaves, err := encodeRecord(record)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE check_records
SET machine_id = $2, check_category = $3, variant = $4, captured_at = $5, check_date = $6,
	measurements = $7, leaves = $8, approved_by = $9, approved_at = $10, source_path = $11
WHERE id = $1`,
		record.ID, record.MachineID, string(record.CheckCategory), record.Variant, nullTime(record.Timestamp), record.Day(),
		measurements, leaves, record.ApprovedBy, nullTime(record.ApprovedDate), record.SourcePath)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// Delete removes a record.
func (r *RecordRepository) Delete(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("record repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM check_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*qa.CheckRecord, error) {
	var (
		record       qa.CheckRecord
		category     string
		capturedAt   sql.NullTime
		approvedAt   sql.NullTime
		measurements []byte
		leaves       []byte
	)
	err := row.Scan(&record.ID, &record.MachineID, &category, &record.Variant, &capturedAt, &record.Date,
		&measurements, &leaves, &record.ApprovedBy, &approvedAt, &record.SourcePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	record.CheckCategory = qa.CheckCategory(category)
	record.Date = dayOf(record.Date)
	if capturedAt.Valid {
		ts := capturedAt.Time.UTC()
		record.Timestamp = &ts
	}
	if approvedAt.Valid {
		at := approvedAt.Time.UTC()
		record.ApprovedDate = &at
	}
	record.Measurements = qa.Measurements{}
	if len(measurements) > 0 {
		if err := json.Unmarshal(measurements, &record.Measurements); err != nil {
			return nil, fmt.Errorf("record repo: decode measurements of %s: %w", record.ID, err)
		}
	}
	if len(leaves) > 0 {
		if err := json.Unmarshal(leaves, &record.Leaves); err != nil {
			return nil, fmt.Errorf("record repo: decode leaves of %s: %w", record.ID, err)
		}
	}
	return &record, nil
}

func encodeRecord(record qa.CheckRecord) ([]byte, []byte, error) {
	measurements := record.Measurements
	if measurements == nil {
		measurements = qa.Measurements{}
	}
	m, err := json.Marshal(measurements)
	if err != nil {
		return nil, nil, err
	}
	leaves := record.Leaves
	if leaves == nil {
		leaves = qa.Leaves{}
	}
	l, err := json.Marshal(leaves)
	if err != nil {
		return nil, nil, err
	}
	return m, l, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return qa.ErrRecordNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
