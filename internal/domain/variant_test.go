package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"
)

func TestNotFoundAnnotation(t *testing.T) {
	a := NotFoundAnnotation("NC_000017.11:g.45983420G>T", "")

	assert.Equal(t, "NC_000017.11:g.45983420G>T", a.HGVS)
	assert.Equal(t, SignificanceNotFound, a.ClinicalSignificance)
	assert.False(t, a.ClinVarID.Valid)
	assert.False(t, a.Found())
	assert.False(t, a.StarRating.Valid)
	assert.False(t, a.GeneSymbol.Valid)

	withID := NotFoundAnnotation("x", "123")
	assert.Equal(t, "123", withID.ClinVarID.String)
}

func TestVariantAnnotation_ToRecord(t *testing.T) {
	a := VariantAnnotation{
		HGVS:                 "NC_000017.11:g.45983420G>T",
		ClinVarID:            null.StringFrom("578075"),
		VariantID:            null.StringFrom("VCV000578075"),
		Chrom:                null.StringFrom("17"),
		ClinicalSignificance: "Likely benign",
		StarRating:           null.StringFrom("1"),
	}

	record := a.ToRecord()

	assert.Len(t, record, len(RecordColumns))
	for _, col := range RecordColumns {
		assert.Contains(t, record, col)
	}
	chrom, ok := record["CHROM"].(*string)
	require.True(t, ok)
	require.NotNil(t, chrom)
	assert.Equal(t, "17", *chrom)
	assert.Equal(t, "Likely benign", record["CLINICAL_SIGNIFICANCE"])
	assert.Nil(t, record["OMIM_ID"].(*string))
}

func TestInputVariant_Validate(t *testing.T) {
	valid := InputVariant{PatientID: 1, VariantNumber: 1, Chrom: "17", Pos: 45983420, Ref: "G", Alt: "T"}
	require.NoError(t, valid.Validate())
	assert.Equal(t, "patient 1 variant 1", valid.Key())

	tests := []struct {
		name   string
		mutate func(v *InputVariant)
		field  string
	}{
		{"missing patient", func(v *InputVariant) { v.PatientID = 0 }, "patient_id"},
		{"missing variant number", func(v *InputVariant) { v.VariantNumber = -1 }, "variant_number"},
		{"missing chrom", func(v *InputVariant) { v.Chrom = "" }, "chrom"},
		{"bad position", func(v *InputVariant) { v.Pos = 0 }, "pos"},
		{"missing ref", func(v *InputVariant) { v.Ref = "" }, "ref"},
		{"missing alt", func(v *InputVariant) { v.Alt = "" }, "alt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := valid
			tt.mutate(&v)
			err := v.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestVariantRow_Annotated(t *testing.T) {
	assert.False(t, VariantRow{}.Annotated())
	assert.True(t, VariantRow{HGVS: null.StringFrom("x")}.Annotated())
}
