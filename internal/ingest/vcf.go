package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/brentp/vcfgo"
	"github.com/parkinsons-variant-viewer/internal/domain"
	"gopkg.in/guregu/null.v3"
)

const (
	// BufferSize for reading VCF input
	BufferSize = 1 << 16

	defaultFileFormat = "##fileformat=VCFv4.2\n"
)

// ParseVCF reads every record of r as a variant of patientID, numbered from 1
// in file order. Only the first ALT allele of a record is kept.
func ParseVCF(r io.Reader, patientID int64) ([]domain.InputVariant, error) {
	buffRead := bufio.NewReaderSize(r, BufferSize)

	// vcfgo insists on a fileformat line; hand-written files often omit it
	head, err := buffRead.Peek(len("##fileformat"))
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read VCF header: %w", err)
	}
	var src io.Reader = buffRead
	if !bytes.HasPrefix(head, []byte("##fileformat")) {
		src = io.MultiReader(strings.NewReader(defaultFileFormat), buffRead)
	}

	rdr, err := vcfgo.NewReader(src, false)
	if err != nil {
		if rdr == nil {
			return nil, fmt.Errorf("invalid VCF: %w", err)
		}
		// header complaints (undeclared INFO/FORMAT keys) are not fatal
		rdr.Clear()
	}

	var variants []domain.InputVariant
	for n := int64(1); ; n++ {
		variant := rdr.Read()
		if variant == nil {
			break
		}

		alts := variant.Alt()
		if len(alts) == 0 {
			return nil, fmt.Errorf("invalid VCF record %d at %s:%d: no ALT allele", n, variant.Chrom(), variant.Pos)
		}

		id := variant.Id()
		variants = append(variants, domain.InputVariant{
			PatientID:     patientID,
			VariantNumber: n,
			Chrom:         variant.Chrom(),
			Pos:           int64(variant.Pos),
			ID:            null.NewString(id, id != "" && id != "."),
			Ref:           variant.Ref(),
			Alt:           alts[0],
		})
	}

	if err := rdr.Error(); err != nil {
		return nil, fmt.Errorf("invalid VCF: %w", err)
	}

	return variants, nil
}
