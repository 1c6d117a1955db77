package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"github.com/parkinsons-variant-viewer/internal/database"
	"github.com/parkinsons-variant-viewer/internal/domain"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	config := domain.DatabaseConfig{
		Driver: domain.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	}

	runner, err := database.NewMigrationRunner(ctx, config, logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up(ctx))
	require.NoError(t, runner.Close())

	store, err := Open(ctx, config, logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store.(*SQLiteStore)
}

func sampleInput(patient, number int64) domain.InputVariant {
	return domain.InputVariant{
		PatientID:     patient,
		VariantNumber: number,
		Chrom:         "17",
		Pos:           45983420,
		ID:            null.StringFrom("rs63750424"),
		Ref:           "G",
		Alt:           "T",
	}
}

func sampleAnnotation() domain.VariantAnnotation {
	return domain.VariantAnnotation{
		HGVS:                 "NC_000017.11:g.45983420G>T",
		ClinVarID:            null.StringFrom("14234"),
		ClinicalSignificance: "Pathogenic",
		StarRating:           null.StringFrom("1"),
		ReviewStatus:         null.StringFrom("criteria provided, single submitter"),
		ConditionsAssoc:      null.StringFrom("Frontotemporal dementia"),
		Transcript:           null.StringFrom("NM_001377265.1"),
		RefSeqID:             null.StringFrom("NC_000017.11"),
		GChange:              null.StringFrom("NC_000017.11:g.45983420G>T"),
		CChange:              null.StringFrom("c.841G>A"),
		PChange:              null.StringFrom("p.Ala281Ser"),
		GeneSymbol:           null.StringFrom("MAPT"),
		HGNCID:               null.StringFrom("HGNC:6893"),
	}
}

func TestSQLiteStore_InsertAndListInputs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertInput(ctx, sampleInput(2, 1)))
	require.NoError(t, store.InsertInput(ctx, sampleInput(1, 2)))

	noID := sampleInput(1, 1)
	noID.ID = null.String{}
	require.NoError(t, store.InsertInput(ctx, noID))

	inputs, err := store.ListInputs(ctx)
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	assert.Equal(t, int64(1), inputs[0].PatientID)
	assert.Equal(t, int64(1), inputs[0].VariantNumber)
	assert.False(t, inputs[0].ID.Valid)
	assert.Equal(t, int64(2), inputs[1].VariantNumber)
	assert.Equal(t, sampleInput(2, 1), inputs[2])

	n, err := store.CountInputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteStore_InsertInput_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertInput(ctx, sampleInput(1, 1)))
	err := store.InsertInput(ctx, sampleInput(1, 1))
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	n, err := store.CountInputs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_SaveOutput_Upsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertInput(ctx, sampleInput(1, 1)))
	require.NoError(t, store.InsertInput(ctx, sampleInput(1, 2)))

	first := domain.NotFoundAnnotation("NC_000017.11:g.45983420G>T", "")
	require.NoError(t, store.SaveOutput(ctx, 1, 1, first))
	require.NoError(t, store.SaveOutput(ctx, 1, 1, sampleAnnotation()))

	rows, err := store.ListVariantRows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	annotated := rows[0]
	assert.True(t, annotated.Annotated())
	assert.Equal(t, "Pathogenic", annotated.ClinicalSignificance.String)
	assert.Equal(t, "HGNC:6893", annotated.HGNCID.String)
	assert.Equal(t, "p.Ala281Ser", annotated.PChange.String)
	assert.False(t, annotated.OMIMID.Valid)
	assert.Equal(t, "rs63750424", annotated.ID.String)

	pending := rows[1]
	assert.False(t, pending.Annotated())
	assert.Equal(t, int64(2), pending.VariantNumber)
}

func TestSQLiteStore_SaveOutput_RequiresInput(t *testing.T) {
	store := setupTestStore(t)

	err := store.SaveOutput(context.Background(), 9, 9, sampleAnnotation())
	assert.Error(t, err)
}

func TestSQLiteStore_EmptyDatabase(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rows, err := store.ListVariantRows(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err := store.CountInputs(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_DatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	logger, _ := test.NewNullLogger()
	store := NewSQLiteStore(db, logger)
	ctx := context.Background()
	dbErr := errors.New("disk I/O error")

	mock.ExpectExec("INSERT INTO inputs").WillReturnError(dbErr)
	err = store.InsertInput(ctx, sampleInput(1, 1))
	assert.ErrorIs(t, err, dbErr)
	assert.NotErrorIs(t, err, domain.ErrDuplicate)

	mock.ExpectExec("INSERT INTO inputs").WillReturnResult(sqlmock.NewResult(0, 0))
	err = store.InsertInput(ctx, sampleInput(1, 1))
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	mock.ExpectQuery("SELECT (.+) FROM inputs ORDER BY").WillReturnError(dbErr)
	_, err = store.ListInputs(ctx)
	assert.ErrorIs(t, err, dbErr)

	mock.ExpectExec("INSERT INTO outputs (.+) ON CONFLICT").WillReturnError(dbErr)
	err = store.SaveOutput(ctx, 1, 1, sampleAnnotation())
	assert.ErrorIs(t, err, dbErr)

	mock.ExpectQuery("LEFT JOIN outputs").WillReturnRows(
		sqlmock.NewRows([]string{"patient_id"}).AddRow(1),
	)
	_, err = store.ListVariantRows(ctx)
	assert.Error(t, err, "column count mismatch must surface as a scan error")

	mock.ExpectQuery("SELECT COUNT").WillReturnError(dbErr)
	_, err = store.CountInputs(ctx)
	assert.ErrorIs(t, err, dbErr)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueries(t *testing.T) {
	assert.Equal(t,
		"INSERT INTO inputs (patient_id, variant_number, chrom, pos, id, ref, alt) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT (patient_id, variant_number) DO NOTHING",
		insertInputQuery(dollarSign),
	)

	q := saveOutputQuery(questionMark, "CURRENT_TIMESTAMP")
	assert.Contains(t, q, "hgvs = excluded.hgvs")
	assert.Contains(t, q, "updated_at = CURRENT_TIMESTAMP")
	assert.Len(t, outputArgs(1, 1, sampleAnnotation()), 2+len(outputColumns))
}
