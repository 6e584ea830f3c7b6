// Package ui declares the descriptor types the rendering collaborator
// consumes. The compiler only produces these descriptors plus the two
// lookup tables (route -> templates, template -> layout); rendering
// itself happens elsewhere, at render time.
package ui

// Node is whatever the rendering surface produces for a descriptor.
type Node any

// Component kinds.
const (
	KindInput    = "input"
	KindTextarea = "textarea"
	KindButton   = "button"
	KindTable    = "table"
)

// Binding ties an input component to an endpoint field.
type Binding struct {
	EndpointPath string
	Field        string
}

// Action ties a button component to an endpoint invocation.
type Action struct {
	EndpointPath string
	Method       string
}

// DataSource feeds a table component from an endpoint.
type DataSource struct {
	EndpointPath string
	PrimaryKey   string
}

// Component is one declarative UI element inside a template.
type Component struct {
	ID             string
	Kind           string
	Label          string
	Bind           *Binding
	Action         *Action
	TableName      string
	DataSource     *DataSource
	DynamicRouting bool
}

// Template is the component list a generated template artifact embeds as
// literal configuration.
type Template struct {
	ID         string
	Route      string
	Components []Component
}

// TemplateRef is one entry of the per-route template registry.
type TemplateRef struct {
	ID       string
	Template *Template
}

// Layout assigns template components to named areas.
type Layout struct {
	LayoutID   string
	TemplateID string
	RouteID    string
	Areas      map[string][]string
}

// Page is the static part of a generated route page.
type Page struct {
	Route       string
	Name        string
	Detail      bool
	Breadcrumbs []Breadcrumb
}

type Breadcrumb struct {
	Label string
	Href  string
}

// RenderContext is the render-time surface generated pages call into.
// Template lookup is deferred to here on purpose: registration changes
// between generation and rendering must be picked up.
type RenderContext interface {
	TemplatesFor(route string) []TemplateRef
	RenderTemplate(ref TemplateRef) Node
	Param(name string) string
	FetchOne(endpointPath, primaryKey, value string) (map[string]any, error)
}

// DetailActions configures the delete-and-navigate-back behavior of a
// generated detail page.
type DetailActions struct {
	DeleteEndpoint string
	DeleteMethod   string
	PrimaryKey     string
	BackTo         string
}

// Text is the nothing-found fallback node.
func Text(s string) Node { return s }

// Fragment groups child nodes.
func Fragment(nodes ...Node) Node { return nodes }

// Detail wraps a fetched record with its actions for the renderer.
func Detail(record map[string]any, actions DetailActions) Node {
	return struct {
		Record  map[string]any
		Actions DetailActions
	}{record, actions}
}
