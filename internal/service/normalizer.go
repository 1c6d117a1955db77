package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Jeffail/gabs"
	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/parkinsons-variant-viewer/pkg/external"
	"github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"
)

var (
	proteinChangePattern = regexp.MustCompile(`\(p\.[^)]*\)`)
	codingChangePattern  = regexp.MustCompile(`c\.[0-9+_>ginsdelA-Za-z:-]+`)
)

// HGNCLookup resolves gene symbols to HGNC ids
type HGNCLookup interface {
	LookupHGNCID(ctx context.Context, symbol string) (string, bool)
}

// ClinVarLookup is the input to Normalize: the search outcome for one HGVS
// expression plus the fetched payloads when a record exists.
type ClinVarLookup struct {
	HGVS      string
	ClinVarID string
	Found     bool
	Summary   external.Payload
	Detail    external.Payload
}

// Normalizer flattens ClinVar esummary documents into VariantAnnotation values
type Normalizer struct {
	hgnc   HGNCLookup
	logger *logrus.Logger
}

// NewNormalizer creates a normalizer. hgnc may be nil, in which case HGNC ids are never set.
func NewNormalizer(hgnc HGNCLookup, logger *logrus.Logger) *Normalizer {
	return &Normalizer{hgnc: hgnc, logger: logger}
}

// draft accumulates fields while the steps run
type draft struct {
	a domain.VariantAnnotation
}

func (d *draft) set(dst *null.String, value string) {
	if value != "" {
		*dst = null.StringFrom(value)
	}
}

// Normalize builds the annotation for lookup. It never fails: a step that
// cannot read its part of the document is logged and skipped.
func (n *Normalizer) Normalize(ctx context.Context, lookup ClinVarLookup) domain.VariantAnnotation {
	if !lookup.Found {
		return domain.NotFoundAnnotation(lookup.HGVS, lookup.ClinVarID)
	}

	d := &draft{a: domain.VariantAnnotation{
		HGVS:                 lookup.HGVS,
		ClinicalSignificance: domain.SignificanceUnknown,
		StarRating:           null.StringFrom(domain.StarsNotApplicable),
		ReviewStatus:         null.StringFrom(domain.SignificanceUnknown),
		ConditionsAssoc:      null.StringFrom(domain.SignificanceUnknown),
	}}
	d.set(&d.a.ClinVarID, lookup.ClinVarID)
	d.a.VariantID = d.a.ClinVarID

	doc := first(path(rootNode(lookup.Summary), "eSummaryResult", "DocumentSummarySet", "DocumentSummary"))
	if !isMapping(doc) {
		n.logger.WithFields(logrus.Fields{
			"hgvs":       lookup.HGVS,
			"clinvar_id": lookup.ClinVarID,
		}).Warn("ClinVar summary has no document summary")
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"accession", func() error { return n.accession(d, doc) }},
		{"title", func() error { return n.title(d, doc) }},
		{"classification", func() error { return n.classification(d, doc) }},
		{"conditions", func() error { return n.conditions(d, doc) }},
		{"spdi", func() error { return n.spdi(d, doc) }},
		{"coding_change", func() error { return n.codingChange(d, doc) }},
		{"chromosome", func() error { return n.chromosome(d, doc) }},
		{"gene", func() error { return n.gene(ctx, d, doc) }},
		{"protein_change", func() error { return n.proteinChange(d, doc) }},
	}

	for _, step := range steps {
		n.guard(lookup.HGVS, step.name, step.run)
	}

	return d.a
}

// guard runs one step, logging a returned error or a panic
func (n *Normalizer) guard(hgvs, step string, run func() error) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.WithFields(logrus.Fields{
				"hgvs":  hgvs,
				"step":  step,
				"panic": fmt.Sprint(r),
			}).Warn("Recovered while extracting variant details")
		}
	}()

	if err := run(); err != nil {
		n.logger.WithFields(logrus.Fields{
			"hgvs":  hgvs,
			"step":  step,
			"error": err.Error(),
		}).Warn("Error extracting variant details")
	}
}

func (n *Normalizer) accession(d *draft, doc *gabs.Container) error {
	d.set(&d.a.VariantID, text(field(doc, "accession")))
	return nil
}

// title reads "<transcript>(<gene>):<c-change> (<p-change>)"
func (n *Normalizer) title(d *draft, doc *gabs.Container) error {
	title := text(field(doc, "title"))
	if title == "" {
		return nil
	}

	transcript := title
	if i := strings.Index(title, "("); i >= 0 {
		transcript = title[:i]
	}
	d.set(&d.a.Transcript, strings.TrimSpace(transcript))

	if m := proteinChangePattern.FindString(title); m != "" {
		d.set(&d.a.PChange, strings.Trim(m, "()"))
	}
	return nil
}

func (n *Normalizer) classification(d *draft, doc *gabs.Container) error {
	germline := field(doc, "germline_classification")
	if !isMapping(germline) {
		return nil
	}

	if description := text(field(germline, "description")); description != "" {
		d.a.ClinicalSignificance = description
	}
	d.set(&d.a.ReviewStatus, text(field(germline, "review_status")))
	d.a.StarRating = null.StringFrom(StarRating(d.a.ReviewStatus.String))
	return nil
}

func (n *Normalizer) conditions(d *draft, doc *gabs.Container) error {
	traitSet := path(doc, "germline_classification", "trait_set")
	if !isMapping(traitSet) {
		return nil
	}

	var names []string
	for _, trait := range sequence(field(traitSet, "trait")) {
		if name := text(field(trait, "trait_name")); name != "" {
			names = append(names, name)
		}
		for _, xref := range sequence(path(trait, "trait_xrefs", "trait_xref")) {
			if text(field(xref, "db_source")) == "OMIM" {
				d.set(&d.a.OMIMID, text(field(xref, "db_id")))
			}
		}
	}

	if len(names) > 0 {
		d.a.ConditionsAssoc = null.StringFrom(strings.Join(names, "; "))
	}
	return nil
}

// variation returns the first variation of the record's variation set
func variation(doc *gabs.Container) *gabs.Container {
	return first(path(doc, "variation_set", "variation"))
}

// spdi reads canonical_spdi, "<refseq>:<0-based position>:<ref>:<alt>"
func (n *Normalizer) spdi(d *draft, doc *gabs.Container) error {
	spdi := text(field(variation(doc), "canonical_spdi"))
	if spdi == "" {
		return nil
	}

	parts := strings.Split(spdi, ":")
	if len(parts) < 4 {
		return fmt.Errorf("%w: canonical_spdi %q has %d parts", domain.ErrMalformedPayload, spdi, len(parts))
	}

	pos := parts[1]
	if offset, err := strconv.ParseUint(pos, 10, 64); err == nil {
		pos = strconv.FormatUint(offset+1, 10)
	}

	d.set(&d.a.RefSeqID, parts[0])
	d.set(&d.a.Pos, pos)
	d.set(&d.a.Ref, parts[2])
	d.set(&d.a.Alt, parts[3])

	if d.a.RefSeqID.Valid && d.a.Pos.Valid && d.a.Ref.Valid && d.a.Alt.Valid {
		d.a.GChange = null.StringFrom(fmt.Sprintf("%s:g.%s%s>%s", d.a.RefSeqID.String, d.a.Pos.String, d.a.Ref.String, d.a.Alt.String))
	}
	return nil
}

func (n *Normalizer) codingChange(d *draft, doc *gabs.Container) error {
	v := variation(doc)
	change := text(field(v, "cdna_change"))
	if change == "" {
		change = text(field(v, "variation_name"))
	}
	if change == "" {
		return nil
	}

	if strings.Contains(change, "c.") {
		d.set(&d.a.CChange, change)
		return nil
	}
	d.set(&d.a.CChange, codingChangePattern.FindString(change))
	return nil
}

// chromosome prefers the assembly marked "current", else the first listed
func (n *Normalizer) chromosome(d *draft, doc *gabs.Container) error {
	assemblies := sequence(path(variation(doc), "variation_loc", "assembly_set"))
	if len(assemblies) == 0 {
		return nil
	}

	chosen := assemblies[0]
	for _, assembly := range assemblies {
		if text(field(assembly, "status")) == "current" {
			chosen = assembly
			break
		}
	}

	d.set(&d.a.Chrom, text(field(chosen, "chr")))
	if !d.a.Pos.Valid {
		d.set(&d.a.Pos, text(field(chosen, "start")))
	}
	return nil
}

func (n *Normalizer) gene(ctx context.Context, d *draft, doc *gabs.Container) error {
	gene := first(path(doc, "genes", "gene"))
	symbol := text(field(gene, "symbol"))
	if symbol == "" {
		return nil
	}
	d.set(&d.a.GeneSymbol, symbol)

	if n.hgnc == nil {
		return nil
	}
	if id, ok := n.hgnc.LookupHGNCID(ctx, symbol); ok {
		d.set(&d.a.HGNCID, id)
	}
	return nil
}

func (n *Normalizer) proteinChange(d *draft, doc *gabs.Container) error {
	if d.a.PChange.Valid {
		return nil
	}
	d.set(&d.a.PChange, text(field(doc, "protein_change")))
	return nil
}
