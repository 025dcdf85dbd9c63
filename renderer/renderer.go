// Package renderer renders assembled ledgers as markdown reports.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templates embed.FS

// RenderOptions selects the sections of a report.
type RenderOptions struct {
	SkipEntries bool // Do not render the ledger entries, usually the longest section.
}

// RenderReport renders the whole report: accounts, entries, unaccounted
// transactions, desyncs and failures.
func RenderReport(r *Report, opts RenderOptions) string {
	partials := map[string]string{
		"report_title":       "report_title.md",
		"report_accounts":    "report_accounts.md",
		"report_unaccounted": "report_unaccounted.md",
		"report_desyncs":     "report_desyncs.md",
		"report_failures":    "report_failures.md",
	}
	// An empty file name results in an empty template.
	partials["report_entries"] = ""
	if !opts.SkipEntries {
		partials["report_entries"] = "report_entries.md"
	}
	return renderTemplate("report", "report.md", partials, r)
}

// RenderAccounts renders the accounts table.
func RenderAccounts(r *Report) string {
	return renderTemplate("accounts", "accounts.md", map[string]string{"report_accounts": "report_accounts.md"}, r)
}

// RenderEntries renders the ledger entries table.
func RenderEntries(r *Report) string {
	return renderTemplate("entries", "entries.md", map[string]string{"report_entries": "report_entries.md"}, r)
}

// RenderUnaccounted renders the unaccounted transactions and the desyncs, the
// two lists to review after an assembly.
func RenderUnaccounted(r *Report) string {
	partials := map[string]string{
		"report_unaccounted": "report_unaccounted.md",
		"report_desyncs":     "report_desyncs.md",
	}
	return renderTemplate("unaccounted", "unaccounted.md", partials, r)
}

var funcs = template.FuncMap{
	// cell escapes a value for a markdown table cell.
	"cell": func(s string) string {
		s = strings.ReplaceAll(s, "|", `\|`)
		return strings.Join(strings.Fields(s), " ")
	},
	// short abbreviates a transaction ID.
	"short": func(id string) string {
		if len(id) > 8 {
			return id[:8]
		}
		return id
	},
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			var readErr error
			content, readErr = fs.ReadFile(templates, "templates/"+file)
			if readErr != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, readErr)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
