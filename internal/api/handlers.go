package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parkinsons-variant-viewer/internal/domain"
	"github.com/parkinsons-variant-viewer/pkg/hgvs"
)

func (s *Server) handleListVariants(c *gin.Context) {
	rows, err := s.deps.Store.ListVariantRows(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to load variants", "")
		return
	}
	if rows == nil {
		rows = []domain.VariantRow{}
	}
	c.JSON(http.StatusOK, gin.H{
		"variants": rows,
		"count":    len(rows),
	})
}

func (s *Server) handleListInputs(c *gin.Context) {
	inputs, err := s.deps.Store.ListInputs(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		s.respondError(c, http.StatusInternalServerError, domain.ErrDatabaseError, "failed to load inputs", "")
		return
	}
	if inputs == nil {
		inputs = []domain.InputVariant{}
	}
	c.JSON(http.StatusOK, gin.H{
		"inputs": inputs,
		"count":  len(inputs),
	})
}

// handleAnnotate looks up a single HGVS expression in ClinVar without storing it
func (s *Server) handleAnnotate(c *gin.Context) {
	expr := strings.TrimSpace(c.Query("hgvs"))
	if expr == "" {
		s.respondError(c, http.StatusBadRequest, domain.ErrInvalidInput, "query parameter hgvs is required", "")
		return
	}
	if err := hgvs.ValidateHGVS(expr); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrHGVSParsing, "invalid HGVS expression", err.Error())
		return
	}

	annotation, err := s.deps.Annotator.Annotate(c.Request.Context(), expr)
	if err != nil {
		_ = c.Error(err)
		if domain.IsExternalServiceError(err) {
			s.respondError(c, http.StatusBadGateway, domain.ErrExternalAPI, "ClinVar lookup failed", err.Error())
			return
		}
		s.respondError(c, http.StatusInternalServerError, domain.ErrInternalServer, "annotation failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"annotation": annotation,
		"record":     annotation.ToRecord(),
	})
}
