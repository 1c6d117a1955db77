package hgvs

import (
	"regexp"
	"strings"

	"github.com/parkinsons-variant-viewer/internal/domain"
)

// HGVS notation patterns for validation
var (
	// Genomic substitution: NC_000017.11:g.45983420G>T
	substitutionPattern = regexp.MustCompile(`^(NC_\d+\.\d+|chr[0-9XYM]+):[gm]\.\d+[ACGTN]>[ACGTN]$`)

	// Genomic deletion: NC_000004.12:g.89835580del, NC_000004.12:g.89835580_89835582del
	deletionPattern = regexp.MustCompile(`^(NC_\d+\.\d+|chr[0-9XYM]+):[gm]\.\d+(_\d+)?del$`)

	// Genomic insertion: NC_000004.12:g.89835580_89835581insAT
	insertionPattern = regexp.MustCompile(`^(NC_\d+\.\d+|chr[0-9XYM]+):[gm]\.\d+_\d+ins[ACGTN]+$`)

	// Genomic deletion-insertion: NC_000004.12:g.89835580_89835581delinsTT
	delinsPattern = regexp.MustCompile(`^(NC_\d+\.\d+|chr[0-9XYM]+):[gm]\.\d+(_\d+)?delins[ACGTN]+$`)

	// Coding notation as ClinVar names it: NM_001377265.1(MAPT):c.841G>A
	codingPattern = regexp.MustCompile(`^(NM_|NR_|XM_|XR_)\d+\.\d+(\([A-Za-z0-9-]+\))?:c\.\S+$`)

	// Protein notation: NP_000050.2:p.Gly92Cys
	proteinPattern = regexp.MustCompile(`^(NP_|XP_)\d+\.\d+(\([A-Za-z0-9-]+\))?:p\.\S+$`)
)

// ValidateGenomic checks that hgvs is a genomic expression this package can build
func ValidateGenomic(hgvs string) error {
	hgvs = strings.TrimSpace(hgvs)
	if hgvs == "" {
		return domain.NewValidationError("hgvs", "HGVS notation cannot be empty", hgvs)
	}

	for _, pattern := range []*regexp.Regexp{substitutionPattern, deletionPattern, insertionPattern, delinsPattern} {
		if pattern.MatchString(hgvs) {
			return nil
		}
	}
	return domain.NewValidationError("hgvs", "Invalid genomic HGVS notation format", hgvs)
}

// ValidateHGVS accepts genomic, coding or protein notation
func ValidateHGVS(hgvs string) error {
	hgvs = strings.TrimSpace(hgvs)
	if hgvs == "" {
		return domain.NewValidationError("hgvs", "HGVS notation cannot be empty", hgvs)
	}

	switch {
	case strings.Contains(hgvs, ":g.") || strings.Contains(hgvs, ":m."):
		return ValidateGenomic(hgvs)
	case strings.Contains(hgvs, ":c."):
		if !codingPattern.MatchString(hgvs) {
			return domain.NewValidationError("hgvs", "Invalid coding HGVS notation format", hgvs)
		}
		return nil
	case strings.Contains(hgvs, ":p."):
		if !proteinPattern.MatchString(hgvs) {
			return domain.NewValidationError("hgvs", "Invalid protein HGVS notation format", hgvs)
		}
		return nil
	}

	return domain.NewValidationError("hgvs", "Unrecognized HGVS notation format", hgvs)
}
