package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/parkinsons-variant-viewer/internal/domain"
)

// PostgresStore implements Store on a pgx connection pool
type PostgresStore struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPostgresStore creates a store backed by pool
func NewPostgresStore(pool *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{
		db:  pool,
		log: logger,
	}
}

func (r *PostgresStore) InsertInput(ctx context.Context, input domain.InputVariant) error {
	tag, err := r.db.Exec(ctx, insertInputQuery(dollarSign), inputArgs(input)...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id":     input.PatientID,
			"variant_number": input.VariantNumber,
			"error":          err,
		}).Error("Failed to insert input variant")
		return fmt.Errorf("inserting input: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", input.Key(), domain.ErrDuplicate)
	}
	return nil
}

func (r *PostgresStore) ListInputs(ctx context.Context) ([]domain.InputVariant, error) {
	rows, err := r.db.Query(ctx, listInputsQuery())
	if err != nil {
		return nil, fmt.Errorf("querying inputs: %w", err)
	}
	defer rows.Close()

	var inputs []domain.InputVariant
	for rows.Next() {
		v, err := scanInput(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning input: %w", err)
		}
		inputs = append(inputs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating inputs: %w", err)
	}
	return inputs, nil
}

func (r *PostgresStore) SaveOutput(ctx context.Context, patientID, variantNumber int64, annotation domain.VariantAnnotation) error {
	_, err := r.db.Exec(ctx, saveOutputQuery(dollarSign, "NOW()"), outputArgs(patientID, variantNumber, annotation)...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id":     patientID,
			"variant_number": variantNumber,
			"hgvs":           annotation.HGVS,
			"error":          err,
		}).Error("Failed to save output")
		return fmt.Errorf("saving output: %w", err)
	}
	return nil
}

func (r *PostgresStore) ListVariantRows(ctx context.Context) ([]domain.VariantRow, error) {
	rows, err := r.db.Query(ctx, listVariantRowsQuery())
	if err != nil {
		return nil, fmt.Errorf("querying variants: %w", err)
	}
	defer rows.Close()

	var result []domain.VariantRow
	for rows.Next() {
		row, err := scanVariantRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning variant: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating variants: %w", err)
	}
	return result, nil
}

func (r *PostgresStore) CountInputs(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countInputsQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting inputs: %w", err)
	}
	return n, nil
}

// Close releases the pool
func (r *PostgresStore) Close() error {
	r.db.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
