package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/parkinsons-variant-viewer/internal/domain"
	"gopkg.in/guregu/null.v3"
)

// RequiredColumns must be present in the header of an uploaded CSV
var RequiredColumns = []string{"patient_id", "variant_number", "chrom", "pos", "ref", "alt"}

type csvRow struct {
	PatientID     string `csv:"patient_id"`
	VariantNumber string `csv:"variant_number"`
	Chrom         string `csv:"chrom"`
	Pos           string `csv:"pos"`
	ID            string `csv:"id"`
	Ref           string `csv:"ref"`
	Alt           string `csv:"alt"`
}

// ParseCSV reads a CSV document with a header row. The id column is optional.
func ParseCSV(data []byte) ([]domain.InputVariant, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	if err := checkHeader(data); err != nil {
		return nil, err
	}

	var rows []*csvRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}

	variants := make([]domain.InputVariant, 0, len(rows))
	for i, row := range rows {
		// header is line 1
		line := i + 2
		v, err := row.toInput()
		if err != nil {
			return nil, fmt.Errorf("invalid CSV line %d: %w", line, err)
		}
		variants = append(variants, v)
	}
	return variants, nil
}

func checkHeader(data []byte) error {
	header, err := csv.NewReader(bytes.NewReader(data)).Read()
	if err != nil {
		return fmt.Errorf("invalid CSV header: %w", err)
	}

	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[strings.TrimSpace(col)] = true
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("invalid CSV header: missing columns %s", strings.Join(missing, ", "))
	}
	return nil
}

func (r *csvRow) toInput() (domain.InputVariant, error) {
	patientID, err := parseInt("patient_id", r.PatientID)
	if err != nil {
		return domain.InputVariant{}, err
	}
	variantNumber, err := parseInt("variant_number", r.VariantNumber)
	if err != nil {
		return domain.InputVariant{}, err
	}
	pos, err := parseInt("pos", r.Pos)
	if err != nil {
		return domain.InputVariant{}, err
	}

	id := strings.TrimSpace(r.ID)
	return domain.InputVariant{
		PatientID:     patientID,
		VariantNumber: variantNumber,
		Chrom:         strings.TrimSpace(r.Chrom),
		Pos:           pos,
		ID:            null.NewString(id, id != "" && id != "."),
		Ref:           strings.TrimSpace(r.Ref),
		Alt:           strings.TrimSpace(r.Alt),
	}, nil
}

func parseInt(field, value string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, domain.NewValidationError(field, "must be an integer", value)
	}
	return n, nil
}
