package page

import (
	"errors"
	"fmt"
	"html"
	"strings"
)

// Tone is the visual style of a status or output message.
type Tone string

// Message tones.
const (
	ToneNeutral Tone = "neutral"
	ToneSuccess Tone = "success"
	TonePending Tone = "pending"
	ToneError   Tone = "error"
)

// ErrActionFailed is returned by Message.Err for error-toned messages.
var ErrActionFailed = errors.New("action failed")

// Message is a line of user-facing text with a tone.
type Message struct {
	Text string `json:"text"`
	Tone Tone   `json:"tone"`
}

// HTML renders the text escaped, with newlines converted to line breaks.
func (m Message) HTML() string {
	return strings.ReplaceAll(html.EscapeString(m.Text), "\n", "<br>")
}

// Err returns an error wrapping ErrActionFailed when m is an error message.
func (m Message) Err() error {
	if m.Tone != ToneError {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrActionFailed, m.Text)
}

// Placeholder labels for the two dropdowns.
const (
	CompanyPlaceholder = "-- Select company --"
	ModelPlaceholder   = "-- Select model --"
)

// Option is one dropdown entry. RecordID and Filename are the auxiliary,
// non-visible attributes carried by model options.
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	RecordID string `json:"record_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	Selected bool   `json:"selected,omitempty"`
}

// Dropdown is an ordered option list whose first entry is the placeholder.
type Dropdown struct {
	Options []Option `json:"options"`
}

func placeholderDropdown(label string) Dropdown {
	return Dropdown{Options: []Option{{Value: "", Label: label}}}
}

// Choices returns the options after the placeholder.
func (d Dropdown) Choices() []Option {
	if len(d.Options) <= 1 {
		return nil
	}
	return d.Options[1:]
}

// Selected returns the selected option, if any.
func (d Dropdown) Selected() (Option, bool) {
	for _, o := range d.Options {
		if o.Selected {
			return o, true
		}
	}
	return Option{}, false
}

// Find resolves key to an option: first by record id, then by value.
func (d Dropdown) Find(key string) (int, bool) {
	if key != "" {
		for i, o := range d.Options {
			if o.RecordID == key {
				return i, true
			}
		}
	}
	for i, o := range d.Options {
		if o.Value == key {
			return i, true
		}
	}
	return -1, false
}

func (d Dropdown) selectIndex(idx int) Dropdown {
	out := d.clone()
	for i := range out.Options {
		out.Options[i].Selected = i == idx
	}
	return out
}

func (d Dropdown) clone() Dropdown {
	if d.Options == nil {
		return Dropdown{}
	}
	opts := make([]Option, len(d.Options))
	copy(opts, d.Options)
	return Dropdown{Options: opts}
}

// State is everything the page shows: form fields, dropdowns, messages and
// which controls are enabled.
type State struct {
	CompanyInput  string   `json:"company_input"`
	ModelInput    string   `json:"model_input"`
	QueryInput    string   `json:"query_input"`
	Filename      string   `json:"filename,omitempty"`
	Companies     Dropdown `json:"companies"`
	Models        Dropdown `json:"models"`
	UploadStatus  Message  `json:"upload_status"`
	Output        Message  `json:"output"`
	UploadEnabled bool     `json:"upload_enabled"`
	QueryEnabled  bool     `json:"query_enabled"`
}

func (s State) clone() State {
	s.Companies = s.Companies.clone()
	s.Models = s.Models.clone()
	return s
}

// InitialState is the state of a freshly loaded page.
func InitialState() State {
	return State{
		Companies:     placeholderDropdown(CompanyPlaceholder),
		Models:        placeholderDropdown(ModelPlaceholder),
		UploadEnabled: true,
	}
}
