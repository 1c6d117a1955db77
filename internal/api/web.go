package api

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v3"

	"github.com/parkinsons-variant-viewer/internal/domain"
)

var addFormFields = []string{"patient_id", "variant_number", "chrom", "pos", "id", "ref", "alt"}

func (s *Server) handleIndex(c *gin.Context) {
	rows, err := s.deps.Store.ListVariantRows(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Error loading variants")
		return
	}

	s.logger.WithField("count", len(rows)).Info("Displaying variants on index page")
	c.HTML(http.StatusOK, "variants.html", gin.H{
		"Title":    "Variants",
		"Variants": rows,
	})
}

func (s *Server) handleInputs(c *gin.Context) {
	inputs, err := s.deps.Store.ListInputs(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Error loading inputs")
		return
	}

	c.HTML(http.StatusOK, "inputs.html", gin.H{
		"Title":  "Input variants",
		"Inputs": inputs,
	})
}

func (s *Server) handleAddForm(c *gin.Context) {
	c.HTML(http.StatusOK, "add_variant.html", gin.H{
		"Title": "Add variant",
		"Form":  map[string]string{},
	})
}

func (s *Server) handleAddVariant(c *gin.Context) {
	form := make(map[string]string, len(addFormFields))
	for _, f := range addFormFields {
		form[f] = strings.TrimSpace(c.PostForm(f))
	}

	input, err := inputFromForm(form)
	if err == nil {
		err = input.Validate()
	}
	if err != nil {
		s.renderAddError(c, http.StatusBadRequest, form, err.Error())
		return
	}

	if err := s.deps.Store.InsertInput(c.Request.Context(), input); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			s.renderAddError(c, http.StatusConflict, form, "Variant "+form["variant_number"]+" already exists for patient "+form["patient_id"])
			return
		}
		_ = c.Error(err)
		s.renderAddError(c, http.StatusInternalServerError, form, "Could not store variant")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"patient_id":     input.PatientID,
		"variant_number": input.VariantNumber,
		"chrom":          input.Chrom,
		"pos":            input.Pos,
	}).Info("Added variant")
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) renderAddError(c *gin.Context, status int, form map[string]string, msg string) {
	c.HTML(status, "add_variant.html", gin.H{
		"Title": "Add variant",
		"Form":  form,
		"Error": msg,
	})
}

func inputFromForm(form map[string]string) (domain.InputVariant, error) {
	var v domain.InputVariant
	var err error

	if v.PatientID, err = strconv.ParseInt(form["patient_id"], 10, 64); err != nil {
		return v, domain.NewValidationError("patient_id", "must be an integer", form["patient_id"])
	}
	if v.VariantNumber, err = strconv.ParseInt(form["variant_number"], 10, 64); err != nil {
		return v, domain.NewValidationError("variant_number", "must be an integer", form["variant_number"])
	}
	if v.Pos, err = strconv.ParseInt(form["pos"], 10, 64); err != nil {
		return v, domain.NewValidationError("pos", "must be an integer", form["pos"])
	}
	v.Chrom = form["chrom"]
	v.ID = null.NewString(form["id"], form["id"] != "")
	v.Ref = form["ref"]
	v.Alt = form["alt"]
	return v, nil
}

// handleUpload saves a multipart "file" under the upload directory and processes it
func (s *Server) handleUpload(c *gin.Context) {
	cfg := s.configManager.GetConfig()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.Server.MaxUploadSize)

	file, err := c.FormFile("file")
	if err != nil {
		s.logger.WithError(err).Warn("Upload failed: no file provided in request")
		c.String(http.StatusBadRequest, "No file uploaded")
		return
	}

	filename := filepath.Base(file.Filename)
	if filename == "." || filename == string(filepath.Separator) || filename == "" {
		c.String(http.StatusBadRequest, "No file uploaded")
		return
	}

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0o755); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Error processing file: %s", err.Error())
		return
	}
	path := filepath.Join(cfg.Storage.UploadDir, filename)
	if err := c.SaveUploadedFile(file, path); err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Error processing file: %s", err.Error())
		return
	}
	s.logger.WithField("path", path).Info("File saved")

	result, err := s.deps.Uploads.HandleFile(c.Request.Context(), path)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusInternalServerError, "Error processing file: %s", err.Error())
		return
	}

	s.logger.WithFields(logrus.Fields{
		"file":       filename,
		"parsed":     result.Parsed,
		"inserted":   result.Inserted,
		"duplicates": result.Duplicates,
		"annotated":  result.Report.Annotated,
	}).Info("Successfully processed file")
	c.String(http.StatusOK, "OK")
}
