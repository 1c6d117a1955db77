package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/parkinsons-variant-viewer/internal/ingest"
)

// VariantStore is the subset of the repository used by batch jobs
type VariantStore interface {
	InsertInput(ctx context.Context, input domain.InputVariant) error
	ListInputs(ctx context.Context) ([]domain.InputVariant, error)
	SaveOutput(ctx context.Context, patientID, variantNumber int64, annotation domain.VariantAnnotation) error
}

// BatchReport summarises one batch run
type BatchReport struct {
	Processed int `json:"processed"`
	Annotated int `json:"annotated"`
	NotFound  int `json:"not_found"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// BatchAnnotator resolves, annotates and stores input variants one at a time
type BatchAnnotator struct {
	resolver  domain.HGVSResolver
	annotator domain.VariantAnnotator
	store     VariantStore
	config    domain.AnnotationConfig
	logger    *logrus.Logger
}

// NewBatchAnnotator creates a batch annotator
func NewBatchAnnotator(resolver domain.HGVSResolver, annotator domain.VariantAnnotator, store VariantStore, config domain.AnnotationConfig, logger *logrus.Logger) *BatchAnnotator {
	return &BatchAnnotator{
		resolver:  resolver,
		annotator: annotator,
		store:     store,
		config:    config,
		logger:    logger,
	}
}

// AnnotateAll annotates every stored input
func (b *BatchAnnotator) AnnotateAll(ctx context.Context) (BatchReport, error) {
	inputs, err := b.store.ListInputs(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("loading inputs: %w", err)
	}
	b.logger.WithField("count", len(inputs)).Info("Found variants to process")
	return b.AnnotateInputs(ctx, inputs)
}

// AnnotateInputs processes inputs in order. A variant that cannot be resolved
// or annotated is logged and the batch continues; only context cancellation
// stops the run early.
func (b *BatchAnnotator) AnnotateInputs(ctx context.Context, inputs []domain.InputVariant) (BatchReport, error) {
	var report BatchReport

	for i, input := range inputs {
		if i > 0 {
			if err := b.wait(ctx); err != nil {
				return report, err
			}
		}
		report.Processed++

		fields := logrus.Fields{
			"patient_id":     input.PatientID,
			"variant_number": input.VariantNumber,
		}

		hgvs, err := b.resolver.Genomic(input.Chrom, input.Pos, input.Ref, input.Alt)
		if err != nil {
			b.logger.WithFields(fields).WithError(err).Warnf("No HGVS found for %s:%d %s>%s", input.Chrom, input.Pos, input.Ref, input.Alt)
			report.Skipped++
			continue
		}
		fields["hgvs"] = hgvs

		annotation, err := b.annotate(ctx, hgvs)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			b.logger.WithFields(fields).WithError(err).Error("Failed to annotate variant")
			report.Failed++
			continue
		}

		if err := b.store.SaveOutput(ctx, input.PatientID, input.VariantNumber, annotation); err != nil {
			b.logger.WithFields(fields).WithError(err).Error("Failed to save annotation")
			report.Failed++
			continue
		}

		report.Annotated++
		if !annotation.Found() {
			report.NotFound++
		}
		b.logger.WithFields(fields).WithField("clinical_significance", annotation.ClinicalSignificance).
			Info("Added ClinVar data")
	}

	b.logger.WithFields(logrus.Fields{
		"processed": report.Processed,
		"annotated": report.Annotated,
		"not_found": report.NotFound,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
	}).Info("Annotation batch complete")

	return report, nil
}

// annotate retries upstream failures with exponential backoff
func (b *BatchAnnotator) annotate(ctx context.Context, hgvs string) (domain.VariantAnnotation, error) {
	policy := backoff.NewExponentialBackOff()
	if b.config.InitialBackoff > 0 {
		policy.InitialInterval = b.config.InitialBackoff
	}
	attempts := b.config.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var annotation domain.VariantAnnotation
	operation := func() error {
		var err error
		annotation, err = b.annotator.Annotate(ctx, hgvs)
		if err != nil && !domain.IsExternalServiceError(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		b.logger.WithFields(logrus.Fields{
			"hgvs":  hgvs,
			"retry": next.String(),
		}).WithError(err).Warn("ClinVar request failed, retrying")
	}

	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx), notify)
	return annotation, err
}

func (b *BatchAnnotator) wait(ctx context.Context) error {
	if b.config.BatchDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(b.config.BatchDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UploadResult reports what happened to an uploaded file
type UploadResult struct {
	Parsed     int         `json:"parsed"`
	Inserted   int         `json:"inserted"`
	Duplicates int         `json:"duplicates"`
	Report     BatchReport `json:"report"`
}

// UploadHandler ingests an uploaded VCF or CSV file and annotates its variants
type UploadHandler struct {
	store  VariantStore
	batch  *BatchAnnotator
	logger *logrus.Logger
}

// NewUploadHandler creates an upload handler
func NewUploadHandler(store VariantStore, batch *BatchAnnotator, logger *logrus.Logger) *UploadHandler {
	return &UploadHandler{store: store, batch: batch, logger: logger}
}

// HandleFile parses path, stores its variants (skipping duplicates) and
// annotates every parsed variant
func (h *UploadHandler) HandleFile(ctx context.Context, path string) (UploadResult, error) {
	variants, err := ingest.ParseFile(path)
	if err != nil {
		h.logger.WithField("file", filepath.Base(path)).WithError(err).Error("Error parsing uploaded file")
		return UploadResult{}, err
	}

	result := UploadResult{Parsed: len(variants)}
	inserted, duplicates, err := insertInputs(ctx, h.store, variants, h.logger)
	result.Inserted, result.Duplicates = inserted, duplicates
	if err != nil {
		return result, err
	}
	h.logger.WithFields(logrus.Fields{
		"file":       filepath.Base(path),
		"inserted":   inserted,
		"duplicates": duplicates,
	}).Info("Inserted variants into inputs table")

	report, err := h.batch.AnnotateInputs(ctx, variants)
	result.Report = report
	return result, err
}

// LoadVCFDir inserts the variants of every .vcf file in dir. Files are
// processed in name order; a file that fails to parse is logged and skipped.
func LoadVCFDir(ctx context.Context, dir string, store VariantStore, logger *logrus.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading VCF directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	total := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".vcf") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		variants, err := ingest.ParseFile(path)
		if err != nil {
			logger.WithField("file", entry.Name()).WithError(err).Error("Skipping VCF")
			continue
		}

		inserted, _, err := insertInputs(ctx, store, variants, logger)
		total += inserted
		if err != nil {
			return total, err
		}
		logger.WithFields(logrus.Fields{
			"file":     entry.Name(),
			"inserted": inserted,
		}).Info("Loaded VCF")
	}
	return total, nil
}

func insertInputs(ctx context.Context, store VariantStore, variants []domain.InputVariant, logger *logrus.Logger) (inserted, duplicates int, err error) {
	for _, v := range variants {
		if err := store.InsertInput(ctx, v); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				logger.WithFields(logrus.Fields{
					"patient_id":     v.PatientID,
					"variant_number": v.VariantNumber,
				}).Warn("Duplicate entry skipped")
				duplicates++
				continue
			}
			return inserted, duplicates, fmt.Errorf("storing %s: %w", v.Key(), err)
		}
		inserted++
	}
	return inserted, duplicates, nil
}
