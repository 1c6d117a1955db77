package domain

import (
	"fmt"

	"gopkg.in/guregu/null.v3"
)

// Clinical significance values produced by the normalizer
const (
	SignificanceNotFound = "Not found"
	SignificanceUnknown  = "Unknown"
)

// Star rating values
const (
	StarsNotApplicable = "N/A"
)

// InputVariant is one patient variant call as entered or uploaded
type InputVariant struct {
	PatientID     int64       `json:"patient_id"`
	VariantNumber int64       `json:"variant_number"`
	Chrom         string      `json:"chrom"`
	Pos           int64       `json:"pos"`
	ID            null.String `json:"id"`
	Ref           string      `json:"ref"`
	Alt           string      `json:"alt"`
}

// Key identifies the input within the store
func (v InputVariant) Key() string {
	return fmt.Sprintf("patient %d variant %d", v.PatientID, v.VariantNumber)
}

// Validate checks the fields required to resolve the variant
func (v InputVariant) Validate() error {
	if v.PatientID <= 0 {
		return NewValidationError("patient_id", "must be a positive integer", v.PatientID)
	}
	if v.VariantNumber <= 0 {
		return NewValidationError("variant_number", "must be a positive integer", v.VariantNumber)
	}
	if v.Chrom == "" {
		return NewValidationError("chrom", "is required", v.Chrom)
	}
	if v.Pos <= 0 {
		return NewValidationError("pos", "must be a positive integer", v.Pos)
	}
	if v.Ref == "" {
		return NewValidationError("ref", "is required", v.Ref)
	}
	if v.Alt == "" {
		return NewValidationError("alt", "is required", v.Alt)
	}
	return nil
}

// VariantAnnotation is the flat ClinVar annotation of one HGVS expression.
// Optional fields are null when the upstream record did not provide them.
type VariantAnnotation struct {
	HGVS                 string      `json:"hgvs"`
	ClinVarID            null.String `json:"clinvar_id"`
	VariantID            null.String `json:"variant_id"`
	Chrom                null.String `json:"chrom"`
	Pos                  null.String `json:"pos"`
	Ref                  null.String `json:"ref"`
	Alt                  null.String `json:"alt"`
	ClinicalSignificance string      `json:"clinical_significance"`
	StarRating           null.String `json:"star_rating"`
	ReviewStatus         null.String `json:"review_status"`
	ConditionsAssoc      null.String `json:"conditions_assoc"`
	Transcript           null.String `json:"transcript"`
	RefSeqID             null.String `json:"ref_seq_id"`
	GChange              null.String `json:"g_change"`
	CChange              null.String `json:"c_change"`
	PChange              null.String `json:"p_change"`
	HGNCID               null.String `json:"hgnc_id"`
	OMIMID               null.String `json:"omim_id"`
	GeneSymbol           null.String `json:"gene_symbol"`
}

// NotFoundAnnotation is the sentinel returned when ClinVar has no record for hgvs
func NotFoundAnnotation(hgvs, clinvarID string) VariantAnnotation {
	return VariantAnnotation{
		HGVS:                 hgvs,
		ClinVarID:            null.NewString(clinvarID, clinvarID != ""),
		ClinicalSignificance: SignificanceNotFound,
	}
}

// Found reports whether the annotation came from a ClinVar record
func (a VariantAnnotation) Found() bool {
	return a.ClinicalSignificance != SignificanceNotFound
}

// RecordColumns lists the export columns in output order
var RecordColumns = []string{
	"CHROM", "POS", "ID", "G_CHANGE", "REF", "ALT", "HGVS", "CLINVAR_ID",
	"CLINICAL_SIGNIFICANCE", "STAR_RATING", "REVIEW_STATUS", "CONDITIONS_ASSOC",
	"TRANSCRIPT", "C_CHANGE", "P_CHANGE", "REF_SEQ_ID", "HGNC_ID", "OMIM_ID", "GENE_SYMBOL",
}

// ToRecord renders the annotation as an export row keyed by RecordColumns.
// Unset fields map to nil.
func (a VariantAnnotation) ToRecord() map[string]interface{} {
	return map[string]interface{}{
		"CHROM":                 a.Chrom.Ptr(),
		"POS":                   a.Pos.Ptr(),
		"ID":                    a.VariantID.Ptr(),
		"G_CHANGE":              a.GChange.Ptr(),
		"REF":                   a.Ref.Ptr(),
		"ALT":                   a.Alt.Ptr(),
		"HGVS":                  a.HGVS,
		"CLINVAR_ID":            a.ClinVarID.Ptr(),
		"CLINICAL_SIGNIFICANCE": a.ClinicalSignificance,
		"STAR_RATING":           a.StarRating.Ptr(),
		"REVIEW_STATUS":         a.ReviewStatus.Ptr(),
		"CONDITIONS_ASSOC":      a.ConditionsAssoc.Ptr(),
		"TRANSCRIPT":            a.Transcript.Ptr(),
		"C_CHANGE":              a.CChange.Ptr(),
		"P_CHANGE":              a.PChange.Ptr(),
		"REF_SEQ_ID":            a.RefSeqID.Ptr(),
		"HGNC_ID":               a.HGNCID.Ptr(),
		"OMIM_ID":               a.OMIMID.Ptr(),
		"GENE_SYMBOL":           a.GeneSymbol.Ptr(),
	}
}

// VariantRow is an input joined with its stored annotation, if any
type VariantRow struct {
	InputVariant
	HGVS                 null.String `json:"hgvs"`
	ClinVarID            null.String `json:"clinvar_id"`
	ClinicalSignificance null.String `json:"clinical_significance"`
	StarRating           null.String `json:"star_rating"`
	ReviewStatus         null.String `json:"review_status"`
	ConditionsAssoc      null.String `json:"conditions_assoc"`
	Transcript           null.String `json:"transcript"`
	RefSeqID             null.String `json:"ref_seq_id"`
	HGNCID               null.String `json:"hgnc_id"`
	OMIMID               null.String `json:"omim_id"`
	GeneSymbol           null.String `json:"gene_symbol"`
	GChange              null.String `json:"g_change"`
	CChange              null.String `json:"c_change"`
	PChange              null.String `json:"p_change"`
}

// Annotated reports whether an output row exists for the input
func (r VariantRow) Annotated() bool {
	return r.HGVS.Valid
}
