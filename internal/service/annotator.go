package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/parkinsons-variant-viewer/pkg/external"
	"github.com/sirupsen/logrus"
)

// ClinVarSource is the part of the ClinVar client the annotator needs
type ClinVarSource interface {
	Search(ctx context.Context, hgvs string) (*external.SearchResult, error)
	Fetch(ctx context.Context, id string) (*external.RecordPayloads, error)
}

// Annotator runs the search, fetch and normalize pipeline for one HGVS expression
type Annotator struct {
	clinvar    ClinVarSource
	normalizer *Normalizer
	logger     *logrus.Logger
}

// NewAnnotator creates an annotation pipeline
func NewAnnotator(clinvar ClinVarSource, normalizer *Normalizer, logger *logrus.Logger) *Annotator {
	return &Annotator{
		clinvar:    clinvar,
		normalizer: normalizer,
		logger:     logger,
	}
}

// Annotate returns the ClinVar annotation for hgvs. A variant unknown to
// ClinVar yields the "Not found" annotation; only upstream failures during
// search or fetch are returned as errors.
func (a *Annotator) Annotate(ctx context.Context, hgvs string) (domain.VariantAnnotation, error) {
	hgvs = strings.TrimSpace(hgvs)
	if hgvs == "" {
		return domain.VariantAnnotation{}, domain.NewValidationError("hgvs", "is required", hgvs)
	}

	result, err := a.clinvar.Search(ctx, hgvs)
	if err != nil {
		return domain.VariantAnnotation{}, fmt.Errorf("failed to search ClinVar for %s: %w", hgvs, err)
	}
	if !result.Found {
		return a.normalizer.Normalize(ctx, ClinVarLookup{HGVS: hgvs}), nil
	}

	id := result.FirstID()
	records, err := a.clinvar.Fetch(ctx, id)
	if err != nil {
		return domain.VariantAnnotation{}, fmt.Errorf("failed to fetch ClinVar record %s: %w", id, err)
	}

	annotation := a.normalizer.Normalize(ctx, ClinVarLookup{
		HGVS:      hgvs,
		ClinVarID: id,
		Found:     true,
		Summary:   records.Summary,
		Detail:    records.Detail,
	})

	a.logger.WithFields(logrus.Fields{
		"hgvs":                  hgvs,
		"clinvar_id":            id,
		"clinical_significance": annotation.ClinicalSignificance,
	}).Info("Annotated variant")

	return annotation, nil
}

var _ domain.VariantAnnotator = (*Annotator)(nil)
