// Package templates renders the server-side questionnaire pages.
//
// Components live in questionnaire.templ; regenerate questionnaire_templ.go
// with `templ generate` after editing it.
package templates

import (
	"github.com/JonMunkholm/resilience/internal/catalog"
	"github.com/JonMunkholm/resilience/internal/survey"
)

// PageData is everything the questionnaire page shows for one mode.
type PageData struct {
	SessionID  string
	Name       string
	Mode       survey.Mode
	Sections   []catalog.Section
	View       survey.ModeView
	Comparison []survey.QuadrantScore
	MaxPoints  int
}
