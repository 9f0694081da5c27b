package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/resilience/internal/catalog"
	"github.com/JonMunkholm/resilience/internal/survey"
)

func TestQuestionnaire_RendersModeAndFlags(t *testing.T) {
	cat := catalog.Default()
	sess := survey.NewSession(cat)
	sess.SetName(`<script>alert("x")</script>`)
	sess.Store.SetAllocation(survey.ModeToBe, "DP2", survey.SideLeft, 7)
	sess.Store.SetAllocation(survey.ModeToBe, "DP2", survey.SideRight, 7)

	var buf bytes.Buffer
	err := Questionnaire(PageData{
		SessionID:  sess.ID,
		Name:       sess.Name(),
		Mode:       survey.ModeToBe,
		Sections:   cat.Sections(),
		View:       sess.View(survey.ModeToBe),
		Comparison: survey.Comparison(cat, sess.Store.Responses(survey.ModeAsIs), sess.Store.Responses(survey.ModeToBe)),
		MaxPoints:  survey.MaxPoints,
	}).Render(context.Background(), &buf)
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, `<form method="post" action="/form/tobe">`)
	assert.Contains(t, html, `<a href="/?mode=asis">AS IS</a>`)
	assert.Contains(t, html, `name="DP2_left" value="7"`)
	assert.Contains(t, html, `<div id="DP2" class="pair" data-valid="false">`)
	assert.Contains(t, html, `<div id="DP1" class="pair" data-valid="true">`)
	assert.Contains(t, html, `<tr><td>Defensive</td><td>0</td><td>7</td></tr>`)
	assert.NotContains(t, html, "<script>")
	assert.Equal(t, 1+24*2, strings.Count(html, `name="`))
}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestPairCard(t *testing.T) {
	sec, ok := catalog.Default().Section(catalog.SectionDefensiveProgressive)
	require.True(t, ok)
	p := sec.Pairs[2]

	html := render(t, pairCard(sec, 3, p, survey.Allocation{Left: 4, Right: 9}, false, survey.MaxPoints))

	assert.True(t, strings.HasPrefix(html, `<div id="`+p.ID+`" class="pair" data-valid="false"><div><strong>`))
	assert.Contains(t, html, `(Pair 3)</div>`)
	assert.Contains(t, html, `<input type="number" min="0" max="10" step="1" name="`+p.ID+`_left" value="4">`)
	assert.Contains(t, html, `<input type="number" min="0" max="10" step="1" name="`+p.ID+`_right" value="9">`)
	assert.True(t, strings.HasSuffix(html, `<div>Sum ≤ 10 · Current: 13</div></div>`))
}

func TestSideInput_Escapes(t *testing.T) {
	html := render(t, sideInput("DP1", survey.SideRight, "Progressive", `a "quoted" <b>`, 0, 10))

	assert.Equal(t, `<div><strong>Progressive</strong><div>a &#34;quoted&#34; &lt;b&gt;</div>`+
		`<input type="number" min="0" max="10" step="1" name="DP1_right" value="0"></div>`, html)
}

func TestSectionFieldset(t *testing.T) {
	cat := catalog.Default()
	sec, ok := cat.Section(catalog.SectionConsistentFlexible)
	require.True(t, ok)
	sess := survey.NewSession(cat)

	html := render(t, sectionFieldset(sec, sess.View(survey.ModeAsIs), survey.MaxPoints))

	assert.True(t, strings.HasPrefix(html, `<fieldset><legend>`))
	assert.True(t, strings.HasSuffix(html, `</fieldset>`))
	assert.Equal(t, len(sec.Pairs), strings.Count(html, `class="pair"`))
	assert.Equal(t, len(sec.Pairs)*2, strings.Count(html, `name="`))
	assert.NotContains(t, html, `data-valid="false"`)
}

func TestTotalsTable(t *testing.T) {
	html := render(t, totalsTable([]survey.QuadrantScore{
		{Quadrant: "Defensive", AsIs: 12, ToBe: 30},
		{Quadrant: "Flexible", AsIs: 0, ToBe: 120},
	}))

	assert.Equal(t, `<h3>Totals (AS IS vs TO BE)</h3><table><tr><th>Quadrant</th><th>AS IS</th><th>TO BE</th></tr>`+
		`<tr><td>Defensive</td><td>12</td><td>30</td></tr>`+
		`<tr><td>Flexible</td><td>0</td><td>120</td></tr></table>`, html)
}

func TestModeNavAndExportLinks(t *testing.T) {
	nav := render(t, modeNav(survey.ModeAsIs))
	assert.Equal(t, `<nav>Mode: <strong>AS IS</strong> <a href="/?mode=tobe">TO BE</a> </nav>`, nav)

	links := render(t, exportLinks(survey.ModeToBe))
	assert.Contains(t, links, `<a href="/api/export/tobe.csv">`)
	assert.Contains(t, links, `<a href="/api/export/tobe.json">`)
	assert.Contains(t, links, `<a href="/api/export/both.csv">`)
}

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert("Unknown <mode>", "", "MODE001").Render(context.Background(), &buf))

	assert.Equal(t, `<div class="alert alert-error" role="alert"><p>Unknown &lt;mode&gt;</p><small>Code: MODE001</small></div>`, buf.String())
}

func TestErrorAlert_WithAction(t *testing.T) {
	html := render(t, ErrorAlert("Too long", "Shorten the name", "REQ002"))

	assert.Equal(t, `<div class="alert alert-error" role="alert"><p>Too long</p><p>Shorten the name</p><small>Code: REQ002</small></div>`, html)
}
