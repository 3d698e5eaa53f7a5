// Package template provides placeholder substitution for message content.
// The syntax is Go text/template over a fixed data shape; anything richer is
// the concern of upstream authoring surfaces.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/evercrm/cadence/pkg/models"
)

// RenderForContact substitutes contact and deal placeholders into input,
// e.g. "Hi {{.contact.first_name}}".
func RenderForContact(input string, contact *models.Contact, deal *models.Deal) (string, error) {
	data := map[string]any{
		"contact": contactData(contact),
		"deal":    dealData(deal),
	}

	return Render(input, data)
}

// Render executes input as a text/template against data.
func Render(input string, data any) (string, error) {
	if !strings.Contains(input, "{{") {
		return input, nil
	}

	tmpl, err := template.
		New("message").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %q: %w", input, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template %q: %w", input, err)
	}

	return buf.String(), nil
}

func contactData(contact *models.Contact) map[string]any {
	if contact == nil {
		return map[string]any{}
	}

	data := map[string]any{
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"email":      contact.Email,
		"phone":      contact.Phone,
	}

	for key, value := range contact.Fields {
		if _, reserved := data[key]; !reserved {
			data[key] = value
		}
	}

	return data
}

func dealData(deal *models.Deal) map[string]any {
	if deal == nil {
		return map[string]any{}
	}

	data := map[string]any{
		"pipeline": deal.Pipeline,
		"stage":    deal.Stage,
	}

	for key, value := range deal.Fields {
		if _, reserved := data[key]; !reserved {
			data[key] = value
		}
	}

	return data
}
