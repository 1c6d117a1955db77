// Package ingest parses patient variant files (VCF and CSV) into input variants.
package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/parkinsons-variant-viewer/internal/domain"
)

// ErrUnsupportedFormat is returned for files that are neither .vcf nor .csv
var ErrUnsupportedFormat = errors.New("unsupported file type")

var patientFilePattern = regexp.MustCompile(`(?i)^patient(\d+)$`)

// PatientIDFromFilename extracts the patient id from names like Patient99.vcf
func PatientIDFromFilename(path string) (int64, error) {
	stem := filepath.Base(path)
	if i := strings.Index(stem, "."); i >= 0 {
		stem = stem[:i]
	}

	m := patientFilePattern.FindStringSubmatch(stem)
	if m == nil {
		return 0, fmt.Errorf("cannot determine patient_id from VCF filename %q", filepath.Base(path))
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("cannot determine patient_id from VCF filename %q", filepath.Base(path))
	}
	return id, nil
}

// ParseFile dispatches on the file extension
func ParseFile(path string) ([]domain.InputVariant, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vcf":
		patientID, err := PatientIDFromFilename(path)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return ParseVCF(f, patientID)
	case ".csv":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return ParseCSV(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
