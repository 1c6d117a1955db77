// Package hgvs builds and validates HGVS expressions for VCF-style variant calls.
package hgvs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/parkinsons-variant-viewer/internal/domain"
)

// grch38Accessions maps chromosome names to GRCh38 RefSeq accessions
var grch38Accessions = map[string]string{
	"1": "NC_000001.11", "2": "NC_000002.12", "3": "NC_000003.12", "4": "NC_000004.12",
	"5": "NC_000005.10", "6": "NC_000006.12", "7": "NC_000007.14", "8": "NC_000008.11",
	"9": "NC_000009.12", "10": "NC_000010.11", "11": "NC_000011.10", "12": "NC_000012.12",
	"13": "NC_000013.11", "14": "NC_000014.9", "15": "NC_000015.10", "16": "NC_000016.10",
	"17": "NC_000017.11", "18": "NC_000018.10", "19": "NC_000019.10", "20": "NC_000020.11",
	"21": "NC_000021.9", "22": "NC_000022.11", "X": "NC_000023.11", "Y": "NC_000024.10",
	"MT": "NC_012920.1",
}

var allelePattern = regexp.MustCompile(`^[ACGTN]+$`)

// Builder turns chromosome/position/ref/alt calls into genomic HGVS on GRCh38
type Builder struct{}

// NewBuilder creates a GRCh38 HGVS builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Accession returns the RefSeq accession of chrom ("17", "chr17", "chrX", "M")
func Accession(chrom string) (string, bool) {
	acc, ok := grch38Accessions[normalizeChrom(chrom)]
	return acc, ok
}

func normalizeChrom(chrom string) string {
	c := strings.ToUpper(strings.TrimSpace(chrom))
	c = strings.TrimPrefix(c, "CHR")
	if c == "M" {
		c = "MT"
	}
	return c
}

// Genomic returns the genomic HGVS expression for a VCF-style call. Shared
// leading and trailing bases of ref and alt (the VCF anchor) are trimmed
// before the change is classified.
func (b *Builder) Genomic(chrom string, pos int64, ref, alt string) (string, error) {
	acc, ok := Accession(chrom)
	if !ok {
		return "", domain.NewValidationError("chrom", "unknown chromosome", chrom)
	}
	if pos <= 0 {
		return "", domain.NewValidationError("pos", "position must be positive", pos)
	}

	ref = strings.ToUpper(strings.TrimSpace(ref))
	alt = strings.ToUpper(strings.TrimSpace(alt))
	if !allelePattern.MatchString(ref) {
		return "", domain.NewValidationError("ref", "reference allele must contain only A, C, G, T or N", ref)
	}
	if !allelePattern.MatchString(alt) {
		return "", domain.NewValidationError("alt", "alternate allele must contain only A, C, G, T or N", alt)
	}
	if ref == alt {
		return "", domain.NewValidationError("alt", "alternate allele equals the reference", alt)
	}

	kind := "g"
	if acc == grch38Accessions["MT"] {
		kind = "m"
	}

	start, ref, alt := trimAlleles(pos, ref, alt)

	var change string
	switch {
	case len(ref) == 1 && len(alt) == 1:
		change = fmt.Sprintf("%d%s>%s", start, ref, alt)
	case len(alt) == 0:
		change = span(start, int64(len(ref))) + "del"
	case len(ref) == 0:
		change = fmt.Sprintf("%d_%dins%s", start-1, start, alt)
	default:
		change = span(start, int64(len(ref))) + "delins" + alt
	}

	hgvs := fmt.Sprintf("%s:%s.%s", acc, kind, change)
	if err := ValidateGenomic(hgvs); err != nil {
		return "", err
	}
	return hgvs, nil
}

// trimAlleles removes the shared prefix (advancing start) then the shared suffix
func trimAlleles(pos int64, ref, alt string) (int64, string, string) {
	for len(ref) > 0 && len(alt) > 0 && ref[0] == alt[0] {
		ref, alt = ref[1:], alt[1:]
		pos++
	}
	for len(ref) > 0 && len(alt) > 0 && ref[len(ref)-1] == alt[len(alt)-1] {
		ref, alt = ref[:len(ref)-1], alt[:len(alt)-1]
	}
	return pos, ref, alt
}

func span(start, length int64) string {
	if length == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d_%d", start, start+length-1)
}

var _ domain.HGVSResolver = (*Builder)(nil)
