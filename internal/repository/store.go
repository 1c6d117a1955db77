// Package repository persists input variants and their ClinVar annotations.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/parkinsons-variant-viewer/internal/domain"
)

// Store is the persistence contract shared by the SQLite and Postgres backends
type Store interface {
	// InsertInput stores a new input variant; ErrDuplicate when the key exists
	InsertInput(ctx context.Context, input domain.InputVariant) error
	// ListInputs returns every input ordered by patient then variant number
	ListInputs(ctx context.Context) ([]domain.InputVariant, error)
	// SaveOutput inserts or replaces the annotation of an input
	SaveOutput(ctx context.Context, patientID, variantNumber int64, annotation domain.VariantAnnotation) error
	// ListVariantRows returns every input joined with its annotation, if any
	ListVariantRows(ctx context.Context) ([]domain.VariantRow, error)
	CountInputs(ctx context.Context) (int, error)
	Close() error
}

var inputColumns = []string{"patient_id", "variant_number", "chrom", "pos", "id", "ref", "alt"}

var outputColumns = []string{
	"hgvs", "clinvar_id", "clinical_significance", "star_rating", "review_status",
	"conditions_assoc", "transcript", "ref_seq_id", "hgnc_id", "omim_id", "gene_symbol",
	"g_change", "c_change", "p_change",
}

// placeholder renders the n-th (1-based) bind parameter for a dialect
type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollarSign(n int) string { return fmt.Sprintf("$%d", n) }

func prefixed(p string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = p + "." + c
	}
	return strings.Join(out, ", ")
}

func binds(ph placeholder, from, count int) string {
	out := make([]string, count)
	for i := range out {
		out[i] = ph(from + i)
	}
	return strings.Join(out, ", ")
}

func insertInputQuery(ph placeholder) string {
	return fmt.Sprintf(
		"INSERT INTO inputs (%s) VALUES (%s) ON CONFLICT (patient_id, variant_number) DO NOTHING",
		strings.Join(inputColumns, ", "), binds(ph, 1, len(inputColumns)),
	)
}

func listInputsQuery() string {
	return fmt.Sprintf("SELECT %s FROM inputs ORDER BY patient_id, variant_number", strings.Join(inputColumns, ", "))
}

func saveOutputQuery(ph placeholder, now string) string {
	cols := append([]string{"patient_id", "variant_number"}, outputColumns...)
	updates := make([]string, 0, len(outputColumns)+1)
	for _, c := range outputColumns {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
	}
	updates = append(updates, "updated_at = "+now)

	return fmt.Sprintf(
		"INSERT INTO outputs (%s, updated_at) VALUES (%s, %s) ON CONFLICT (patient_id, variant_number) DO UPDATE SET %s",
		strings.Join(cols, ", "), binds(ph, 1, len(cols)), now, strings.Join(updates, ", "),
	)
}

func listVariantRowsQuery() string {
	return fmt.Sprintf(`SELECT %s, %s
		FROM inputs i
		LEFT JOIN outputs o ON i.patient_id = o.patient_id AND i.variant_number = o.variant_number
		ORDER BY i.patient_id, i.variant_number`,
		prefixed("i", inputColumns), prefixed("o", outputColumns),
	)
}

const countInputsQuery = "SELECT COUNT(*) FROM inputs"

// outputArgs lists the bind values of saveOutputQuery in column order
func outputArgs(patientID, variantNumber int64, a domain.VariantAnnotation) []interface{} {
	return []interface{}{
		patientID,
		variantNumber,
		a.HGVS,
		a.ClinVarID,
		a.ClinicalSignificance,
		a.StarRating,
		a.ReviewStatus,
		a.ConditionsAssoc,
		a.Transcript,
		a.RefSeqID,
		a.HGNCID,
		a.OMIMID,
		a.GeneSymbol,
		a.GChange,
		a.CChange,
		a.PChange,
	}
}

func inputArgs(v domain.InputVariant) []interface{} {
	return []interface{}{v.PatientID, v.VariantNumber, v.Chrom, v.Pos, v.ID, v.Ref, v.Alt}
}

// scanner is an interface for sql.Row, sql.Rows and pgx.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInput(s scanner) (domain.InputVariant, error) {
	var v domain.InputVariant
	err := s.Scan(&v.PatientID, &v.VariantNumber, &v.Chrom, &v.Pos, &v.ID, &v.Ref, &v.Alt)
	return v, err
}

func scanVariantRow(s scanner) (domain.VariantRow, error) {
	var r domain.VariantRow
	err := s.Scan(
		&r.PatientID, &r.VariantNumber, &r.Chrom, &r.Pos, &r.ID, &r.Ref, &r.Alt,
		&r.HGVS, &r.ClinVarID, &r.ClinicalSignificance, &r.StarRating, &r.ReviewStatus,
		&r.ConditionsAssoc, &r.Transcript, &r.RefSeqID, &r.HGNCID, &r.OMIMID, &r.GeneSymbol,
		&r.GChange, &r.CChange, &r.PChange,
	)
	return r, err
}
