package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askfan-notify/internal/models"
)

func TestRenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]interface{}
		expected string
	}{
		{
			name:     "replaces placeholders",
			template: "Hello {{name}}, you have {{count}} questions",
			data:     map[string]interface{}{"name": "Ada", "count": 3},
			expected: "Hello Ada, you have 3 questions",
		},
		{
			name:     "strips missing placeholders",
			template: "Hello {{name}}{{unknown}}",
			data:     map[string]interface{}{"name": "Ada"},
			expected: "Hello Ada",
		},
		{
			name:     "nil value becomes empty",
			template: "x{{v}}y",
			data:     map[string]interface{}{"v": nil},
			expected: "xy",
		},
		{
			name:     "no placeholders",
			template: "plain text",
			data:     map[string]interface{}{"name": "Ada"},
			expected: "plain text",
		},
		{
			name:     "unterminated placeholder left alone",
			template: "broken {{name",
			data:     map[string]interface{}{},
			expected: "broken {{name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderTemplate(tt.template, tt.data))
		})
	}
}

func TestLoadTemplates_OverlaysBuiltins(t *testing.T) {
	original := deliveryTemplates[models.SourceTypeNewQuestion]
	t.Cleanup(func() { deliveryTemplates[models.SourceTypeNewQuestion] = original })

	path := filepath.Join(t.TempDir(), "templates.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"version": "1",
		"templates": [
			{"sourceType": "new-question", "subject": "Custom subject", "body": "{{message}}"}
		]
	}`), 0o644))

	require.NoError(t, LoadTemplates(path))

	tmpl := templateFor(models.SourceTypeNewQuestion)
	assert.Equal(t, "Custom subject", tmpl["subject"])
	assert.Equal(t, "{{message}}", tmpl["body"])
	// Source types not in the registry keep their built-in template.
	assert.Equal(t, deliveryTemplates[models.SourceTypeQuestionAnswered], templateFor(models.SourceTypeQuestionAnswered))
}

func TestLoadTemplates_MissingFile(t *testing.T) {
	require.Error(t, LoadTemplates(filepath.Join(t.TempDir(), "nope.json")))
}

func TestTemplateFor(t *testing.T) {
	assert.Equal(t, deliveryTemplates[models.SourceTypeNewQuestion], templateFor(models.SourceTypeNewQuestion))
	assert.Equal(t, defaultTemplate, templateFor("something-else"))
	assert.Equal(t, defaultTemplate, templateFor(""))
}
