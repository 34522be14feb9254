// pkg/registry/schema.go
package registry

// TemplateRegistry is the on-disk registry of delivery templates. Operators
// edit it to change email/SMS copy without a rebuild.
type TemplateRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Templates   []Template `json:"templates"`
}

// Template holds the subject and body for one source type. Placeholders use
// {{name}} syntax and are filled from the delivery job's data.
type Template struct {
	SourceType string `json:"sourceType"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}
