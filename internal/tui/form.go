package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/example/merch-storefront/internal/domain/checkout"
)

type formField struct {
	label    string
	required bool
}

var formFields = []formField{
	{"Email", true},
	{"Full name", true},
	{"Phone", true},
	{"Address", false},
	{"City", false},
	{"Country", false},
}

// detailsForm collects the buyer's contact and shipping details
type detailsForm struct {
	inputs []textinput.Model
	cursor int
}

func newDetailsForm() detailsForm {
	inputs := make([]textinput.Model, len(formFields))
	for i, f := range formFields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = strings.ToLower(f.label)
		in.CharLimit = 120
		in.Cursor.SetMode(cursor.CursorStatic)
		inputs[i] = in
	}
	inputs[0].Focus()
	return detailsForm{inputs: inputs}
}

func (f *detailsForm) focus(i int) tea.Cmd {
	f.inputs[f.cursor].Blur()
	f.cursor = clamp(i, len(f.inputs))
	return f.inputs[f.cursor].Focus()
}

func (f *detailsForm) next() tea.Cmd { return f.focus(f.cursor + 1) }

func (f *detailsForm) prev() tea.Cmd { return f.focus(f.cursor - 1) }

func (f *detailsForm) onLast() bool { return f.cursor == len(f.inputs)-1 }

func (f *detailsForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.cursor], cmd = f.inputs[f.cursor].Update(msg)
	return cmd
}

func (f *detailsForm) customer() checkout.Customer {
	v := func(i int) string { return f.inputs[i].Value() }
	return checkout.Customer{
		Email:   v(0),
		Name:    v(1),
		Phone:   v(2),
		Address: v(3),
		City:    v(4),
		Country: v(5),
	}
}
