package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/parkinsons-variant-viewer/internal/domain"
)

// SQLiteStore implements Store on database/sql with the modernc SQLite driver
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLiteStore wraps an open database whose schema has been migrated
func NewSQLiteStore(db *sql.DB, logger *logrus.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		log: logger,
	}
}

// InsertInput stores a new input variant
func (s *SQLiteStore) InsertInput(ctx context.Context, input domain.InputVariant) error {
	result, err := s.db.ExecContext(ctx, insertInputQuery(questionMark), inputArgs(input)...)
	if err != nil {
		return fmt.Errorf("failed to insert input: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", input.Key(), domain.ErrDuplicate)
	}

	s.log.WithFields(logrus.Fields{
		"patient_id":     input.PatientID,
		"variant_number": input.VariantNumber,
	}).Debug("Input variant stored")
	return nil
}

// ListInputs returns every stored input
func (s *SQLiteStore) ListInputs(ctx context.Context) ([]domain.InputVariant, error) {
	rows, err := s.db.QueryContext(ctx, listInputsQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to query inputs: %w", err)
	}
	defer rows.Close()

	var inputs []domain.InputVariant
	for rows.Next() {
		v, err := scanInput(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan input: %w", err)
		}
		inputs = append(inputs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate inputs: %w", err)
	}
	return inputs, nil
}

// SaveOutput inserts or replaces the annotation for an input
func (s *SQLiteStore) SaveOutput(ctx context.Context, patientID, variantNumber int64, annotation domain.VariantAnnotation) error {
	_, err := s.db.ExecContext(ctx, saveOutputQuery(questionMark, "CURRENT_TIMESTAMP"), outputArgs(patientID, variantNumber, annotation)...)
	if err != nil {
		return fmt.Errorf("failed to save output for patient %d variant %d: %w", patientID, variantNumber, err)
	}
	return nil
}

// ListVariantRows returns inputs joined with their outputs
func (s *SQLiteStore) ListVariantRows(ctx context.Context) ([]domain.VariantRow, error) {
	rows, err := s.db.QueryContext(ctx, listVariantRowsQuery())
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var result []domain.VariantRow
	for rows.Next() {
		r, err := scanVariantRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate variants: %w", err)
	}
	return result, nil
}

// CountInputs returns the number of stored inputs
func (s *SQLiteStore) CountInputs(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countInputsQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count inputs: %w", err)
	}
	return n, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
