package commands

import (
	"fmt"

	"github.com/datquest/docquery/internal/cli/output"
	"github.com/datquest/docquery/internal/page"
	"github.com/datquest/docquery/internal/session"
)

// sessionOutput is the JSON form of a session context.
type sessionOutput struct {
	Session   string `json:"session"`
	Company   string `json:"company_name"`
	ModelName string `json:"product_name"`
	ModelID   string `json:"db_id"`
	Filename  string `json:"filename"`
}

func newSessionOutput(id string, sc session.Context) sessionOutput {
	return sessionOutput{
		Session:   id,
		Company:   sc.Company,
		ModelName: sc.ModelName,
		ModelID:   sc.ModelID,
		Filename:  sc.Filename,
	}
}

// renderMessage prints a page message in the renderer's mode.
func renderMessage(r *output.Renderer, m page.Message) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(m)
	}
	return r.Message(string(m.Tone), m.Text, m.HTML())
}

// renderSession prints the slots of a session.
func renderSession(r *output.Renderer, id string, sc session.Context) error {
	rows := [][2]string{
		{"Session", id},
		{"Company", sc.Company},
		{"Model", sc.ModelName},
		{"Record ID", sc.ModelID},
		{"File", sc.Filename},
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(newSessionOutput(id, sc))
	case output.ModeMarkdown:
		for _, kv := range rows {
			r.Println(output.FormatKeyValue(kv[0], orDash(kv[1])))
		}
	default:
		styles := r.Styles()
		for _, kv := range rows {
			r.Printf("%s %s\n", styles.Label.Render(fmt.Sprintf("%-10s", kv[0]+":")), orDash(kv[1]))
		}
	}
	return nil
}

// renderDropdown prints the choices of a dropdown, marking the selected one.
func renderDropdown(r *output.Renderer, title string, dd page.Dropdown, withFiles bool, empty string) error {
	choices := dd.Choices()

	if r.EffectiveMode() == output.ModeJSON {
		if choices == nil {
			choices = []page.Option{}
		}
		return r.JSON(choices)
	}

	r.Header(2, title)
	if !withFiles {
		if len(choices) == 0 {
			r.Muted(empty)
			return nil
		}
		styles := r.Styles()
		for _, o := range choices {
			if o.Selected {
				r.Printf("%s %s\n", styles.Marker.Render("*"), styles.Bold.Render(o.Label))
				continue
			}
			r.Printf("  %s\n", o.Label)
		}
		return nil
	}

	rows := make([][]string, 0, len(choices))
	for _, o := range choices {
		marker := ""
		if o.Selected {
			marker = "*"
		}
		rows = append(rows, []string{marker, o.Value, orDash(o.Filename), o.RecordID})
	}
	r.Table([]string{"", "Model", "File", "Record ID"}, rows, empty)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
