package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/resilience/internal/survey"
)

var (
	errInvalidBody  = errors.New("invalid request body")
	errInvalidField = errors.New("invalid field")
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 64 << 10

const exportBoth = "both"

type nameRequest struct {
	Name string `json:"name"`
}

// valueRequest carries one raw allocation value. Value stays untyped so that
// numbers, numeric strings and junk all reach survey.ParseValue.
type valueRequest struct {
	Value any `json:"value"`
}

// exportRequest is the parsed {file} segment of an export URL.
type exportRequest struct {
	Target string `validate:"required"`
	Format string `validate:"required,oneof=csv json"`
}

// decodeJSON reads a size-limited JSON body into dst with numbers kept as
// json.Number.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errInvalidBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", errInvalidBody)
	}
	return nil
}

// fieldError turns a validator failure into an errInvalidField naming the
// offending field and tag.
func fieldError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w %s: failed %q", errInvalidField, strings.ToLower(fe.Field()), fe.Tag())
	}
	return fmt.Errorf("%w: %w", errInvalidField, err)
}

// validateName enforces the configured name length in characters.
func (s *Server) validateName(name string) error {
	rule := fmt.Sprintf("max=%d", s.cfg.Survey.NameMaxLength)
	if err := s.validate.Var(name, rule); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w name: longer than %d characters", errInvalidField, s.cfg.Survey.NameMaxLength)
		}
		return fieldError(err)
	}
	return nil
}

// parseExportFile splits "asis.csv" into its target and format. A target
// other than a mode or "both" is an unknown mode; "both" only exists as CSV.
func (s *Server) parseExportFile(file string) (exportRequest, error) {
	ext := path.Ext(file)
	req := exportRequest{
		Target: strings.ToLower(strings.TrimSuffix(file, ext)),
		Format: strings.ToLower(strings.TrimPrefix(ext, ".")),
	}
	if err := s.validate.Struct(req); err != nil {
		return req, fieldError(err)
	}
	if req.Target == exportBoth {
		if req.Format != "csv" {
			return req, fmt.Errorf("%w format: %q not available for both modes", errInvalidField, req.Format)
		}
		return req, nil
	}
	if _, err := survey.ParseMode(req.Target); err != nil {
		return req, err
	}
	return req, nil
}

// modeParam resolves the {mode} URL parameter.
func modeParam(r *http.Request) (survey.Mode, error) {
	return survey.ParseMode(chi.URLParam(r, "mode"))
}
