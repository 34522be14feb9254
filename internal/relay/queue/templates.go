// Package queue consumes delivery jobs from the outbound queue and relays
// them to email and SMS.
package queue

import (
	"fmt"
	"strings"

	"askfan-notify/internal/models"
	"askfan-notify/pkg/registry"
)

// Templates are keyed by source type. Placeholders are filled from the job's
// data map; placeholders without a value are stripped from the output.
var deliveryTemplates = map[string]map[string]string{
	models.SourceTypeNewQuestion: {
		"subject": "You have a new question",
		"body":    "{{title}}\n\n{{message}}\n\nOpen your dashboard to answer it.",
	},
	models.SourceTypeQuestionAnswered: {
		"subject": "Your question was answered",
		"body":    "{{title}}\n\n{{message}}\n\nOpen the app to read the answer.",
	},
}

var defaultTemplate = map[string]string{
	"subject": "{{title}}",
	"body":    "{{message}}",
}

// LoadTemplates overlays the built-in templates with a registry file. Called
// once at startup; not safe to call while jobs are being processed.
func LoadTemplates(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}
	for _, t := range reg.Templates {
		deliveryTemplates[t.SourceType] = map[string]string{
			"subject": t.Subject,
			"body":    t.Body,
		}
	}
	return nil
}

func templateFor(sourceType string) map[string]string {
	if tmpl, ok := deliveryTemplates[sourceType]; ok {
		return tmpl
	}
	return defaultTemplate
}

// renderTemplate substitutes {{placeholder}} tokens from data and removes any
// token that has no value.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
