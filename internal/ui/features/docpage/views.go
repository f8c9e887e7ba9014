package docpage

import (
	"context"
	"html/template"
	"io"

	"github.com/a-h/templ"
	"github.com/datquest/docquery/internal/page"
	"github.com/datquest/docquery/internal/session"
	"github.com/datquest/docquery/internal/ui/resources"
)

// View is the data rendered into the #app fragment. SessionID is the tab
// id, empty before the tab's stream has connected.
type View struct {
	SessionID string
	State     page.State
	Session   session.Context
}

// Signals are the datastar signals the page binds.
type Signals struct {
	// Tab is set in the browser and never patched by the server.
	Tab          string `json:"tab,omitempty"`
	Company      string `json:"company"`
	Model        string `json:"model"`
	Question     string `json:"question"`
	CompanyInput string `json:"companyInput"`
}

// signalsFor mirrors the controller state into the bound signals.
func signalsFor(st page.State) Signals {
	s := Signals{
		Question:     st.QueryInput,
		CompanyInput: st.CompanyInput,
	}
	if o, ok := st.Companies.Selected(); ok {
		s.Company = o.Value
	}
	if o, ok := st.Models.Selected(); ok {
		s.Model = optionKey(o)
	}
	return s
}

// optionKey is the value a model <option> posts back: its record id when
// it has one, else its display value.
func optionKey(o page.Option) string {
	if o.RecordID != "" {
		return o.RecordID
	}
	return o.Value
}

var templates = template.Must(template.New("docpage").Funcs(template.FuncMap{
	"message":   func(m page.Message) template.HTML { return template.HTML(m.HTML()) }, //nolint:gosec // Message.HTML escapes
	"optionKey": optionKey,
	"static":    resources.StaticPath,
}).Parse(pageTemplates))

const pageTemplates = `
{{define "page"}}<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} - docquery</title>
<link rel="stylesheet" href="{{static "style.css"}}">
<script type="module" src="{{.Script}}"></script>
</head>
<body data-signals__ifmissing="{company: '', model: '', question: '', companyInput: ''}" data-signals:tab="sessionStorage.getItem('{{.StorageKey}}') || '{{.NewTab}}'">
<h1>{{.Title}}</h1>
<div id="updates" data-init="sessionStorage.setItem('{{.StorageKey}}', $tab); @get('/page/sse')"></div>
{{template "app" .View}}
</body>
</html>{{end}}

{{define "app"}}<main id="app">
<section id="upload">
<h2>Upload document</h2>
<form id="upload-form" enctype="multipart/form-data" data-on:submit__prevent="@post('/actions/upload', {contentType: 'form'})">
<input type="hidden" name="tab" value="{{.SessionID}}" data-attr:value="$tab">
<input type="file" name="file" accept="application/pdf,.pdf">
<input type="text" name="company" placeholder="Company" data-bind:company-input value="{{.State.CompanyInput}}">
<input type="text" name="model" placeholder="Model" value="{{.State.ModelInput}}">
<button type="submit"{{if not .State.UploadEnabled}} disabled{{end}}>Upload</button>
</form>
<div id="upload-status" class="status tone-{{.State.UploadStatus.Tone}}">{{message .State.UploadStatus}}</div>
</section>
<section id="select">
<h2>Document</h2>
<form>
<select id="company" data-bind:company data-on:change="@post('/actions/company')">
{{- range .State.Companies.Options}}
<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{- end}}
</select>
<select id="model" data-bind:model data-on:change="@post('/actions/model')">
{{- range .State.Models.Options}}
<option value="{{optionKey .}}" data-filename="{{.Filename}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{- end}}
</select>
</form>
</section>
<section id="query">
<h2>Ask</h2>
<form id="query-form" data-on:submit__prevent="@post('/actions/query')">
<textarea name="question" placeholder="Ask a question about the document" data-bind:question>{{.State.QueryInput}}</textarea>
<button type="submit"{{if not .State.QueryEnabled}} disabled{{end}}>Ask</button>
</form>
<div id="output" class="output tone-{{.State.Output.Tone}}">{{message .State.Output}}</div>
</section>
<p class="session">{{with .SessionID}}session {{.}}{{end}}{{with .Session.Company}} · company {{.}}{{end}}{{with .Session.ModelName}} · model {{.}}{{end}}{{with .Session.Filename}} · file {{.}}{{end}}</p>
</main>{{end}}
`

// Page renders the full document with the app fragment server-side.
// newTab becomes the tab id unless the tab already stored one.
func Page(title, newTab string, v View) templ.Component {
	data := struct {
		Title      string
		Script     string
		StorageKey string
		NewTab     string
		View       View
	}{title, resources.DatastarScript, TabStorageKey, newTab, v}
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return templates.ExecuteTemplate(w, "page", data)
	})
}

// App renders the #app fragment patched over SSE.
func App(v View) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return templates.ExecuteTemplate(w, "app", v)
	})
}
