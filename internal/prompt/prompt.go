// Package prompt renders the two model prompts from embedded templates.
package prompt

import (
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/tphakala/trapcam/internal/errors"
	"github.com/tphakala/trapcam/internal/schema"
	"github.com/tphakala/trapcam/internal/taxonomy"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var funcs = template.FuncMap{
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
	"percent": func(p *int) string {
		if p == nil {
			return "unknown"
		}
		return strconv.Itoa(*p) + "%"
	},
}

var templates = template.Must(template.New("prompts").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl"))

// Builder renders prompts over a fixed species registry. The species list is
// formatted once so repeated calls produce identical output.
type Builder struct {
	species []string
}

type stage1Data struct {
	Species []string
}

type stage2Data struct {
	Species []string
	Stage1  schema.StageOne
}

// NewBuilder returns a Builder enumerating every species in registry
func NewBuilder(registry *taxonomy.Registry) *Builder {
	all := registry.All()
	lines := make([]string, 0, len(all))
	for _, sp := range all {
		lines = append(lines, FormatSpecies(sp))
	}
	return &Builder{species: lines}
}

// FormatSpecies renders one taxonomy line as "id — Common Name (Scientific name)"
func FormatSpecies(sp taxonomy.Species) string {
	return fmt.Sprintf("%s — %s (%s)", sp.ID, sp.CommonName, sp.ScientificName)
}

// Stage1 returns the screening prompt
func (b *Builder) Stage1() (string, error) {
	return render("stage1", stage1Data{Species: b.species})
}

// Stage2 returns the identification prompt with the Stage 1 findings inlined
func (b *Builder) Stage2(s1 schema.StageOne) (string, error) {
	return render("stage2", stage2Data{Species: b.species, Stage1: s1})
}

func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := templates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", errors.New(err).
			Component("prompt").
			Category(errors.CategoryProcessing).
			Context(errors.ContextOperation, "render_"+name).
			Build()
	}
	return sb.String(), nil
}
