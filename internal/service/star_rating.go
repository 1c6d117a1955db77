package service

import (
	"strings"

	"github.com/parkinsons-variant-viewer/internal/domain"
)

// StarRating maps a ClinVar review status to its 0-4 star rating, or "N/A"
// when the status is not recognised. Rules are checked in order.
func StarRating(status string) string {
	if status == "" {
		return "0"
	}

	s := strings.ToLower(status)
	switch {
	case strings.Contains(s, "expert panel"):
		return "4"
	case strings.Contains(s, "multiple submitters") && strings.Contains(s, "no conflict"):
		return "3"
	case strings.Contains(s, "multiple submitters"):
		return "2"
	case strings.Contains(s, "single submitter"):
		return "1"
	case strings.Contains(s, "no assertion"), strings.Contains(s, "no criteria"):
		return "0"
	default:
		return domain.StarsNotApplicable
	}
}
