package resource

import "encoding/json"

// Node kinds accepted by the dispatcher.
const (
	KindTable    = "table"
	KindEndpoint = "endpoint"
	KindRoute    = "route"
	KindTemplate = "template"
	KindLayout   = "layout"
)

// Operations accepted by the dispatcher.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// FlowNode is the declarative envelope for a single compile operation.
// The payload shape depends on both NodeType and Operation; delete
// payloads carry only identifying keys.
type FlowNode struct {
	NodeType  string          `json:"nodeType"`
	Operation string          `json:"operation"`
	Payload   json.RawMessage `json:"payload"`
}

// Column types supported by the table synthesizer.
const (
	ColInteger = "integer"
	ColText    = "text"
	ColReal    = "real"
	ColBoolean = "boolean"
)

type ForeignKey struct {
	Table    string `json:"table"`
	Column   string `json:"column"`
	OnDelete string `json:"onDelete,omitempty"`
}

type Column struct {
	Name          string      `json:"name"`
	Type          string      `json:"type"`
	PrimaryKey    bool        `json:"primaryKey,omitempty"`
	AutoIncrement bool        `json:"autoIncrement,omitempty"`
	NotNull       bool        `json:"notNull,omitempty"`
	Default       any         `json:"default,omitempty"`
	ForeignKey    *ForeignKey `json:"foreignKey,omitempty"`
}

type Table struct {
	TableName   string   `json:"tableName"`
	DisplayName string   `json:"displayName,omitempty"`
	Columns     []Column `json:"columns"`
}

// Endpoint actions.
const (
	ActionSelect = "select"
	ActionInsert = "insert"
	ActionDelete = "delete"
)

type WhereCond struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Source string `json:"source"`
}

// Endpoint declares one HTTP method at one path. Methods sharing a path
// are stored and regenerated together as a single artifact.
type Endpoint struct {
	Path         string            `json:"path"`
	Method       string            `json:"method"`
	Table        string            `json:"table"`
	Action       string            `json:"action"`
	FieldMapping map[string]string `json:"fieldMapping,omitempty"`
	Where        []WhereCond       `json:"where,omitempty"`
}

// EndpointKey identifies a method-group delete target.
type EndpointKey struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

type Route struct {
	RouteID  string `json:"routeId"`
	Path     string `json:"path"`
	PageName string `json:"pageName"`
	Dynamic  bool   `json:"dynamic,omitempty"`
}

// RouteKey identifies a route delete target by declarative path.
type RouteKey struct {
	Path string `json:"path"`
}

// Component types supported by the template synthesizer.
const (
	CompInput    = "input"
	CompTextarea = "textarea"
	CompButton   = "button"
	CompTable    = "table"
)

type Binding struct {
	EndpointPath string `json:"endpointPath"`
	Field        string `json:"field"`
}

type CompAction struct {
	EndpointPath string `json:"endpointPath"`
	Method       string `json:"method"`
}

type DataSource struct {
	EndpointPath string `json:"endpointPath"`
	PrimaryKey   string `json:"primaryKey"`
}

type Component struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	Label          string      `json:"label,omitempty"`
	Bind           *Binding    `json:"bind,omitempty"`
	Action         *CompAction `json:"action,omitempty"`
	TableName      string      `json:"tableName,omitempty"`
	DataSource     *DataSource `json:"dataSource,omitempty"`
	DynamicRouting bool        `json:"dynamicRouting,omitempty"`
}

type Template struct {
	TemplateID string      `json:"templateId"`
	RoutePath  string      `json:"routePath"`
	Components []Component `json:"components"`
}

// TemplateKey identifies a template delete target.
type TemplateKey struct {
	TemplateID string `json:"templateId"`
}

type Layout struct {
	LayoutID   string              `json:"layoutId"`
	TemplateID string              `json:"templateId"`
	RouteID    string              `json:"routeId"`
	Areas      map[string][]string `json:"areas"`
}

// LayoutKey identifies a layout delete target. The layout manifest is
// keyed by template id, so that is the identifying key.
type LayoutKey struct {
	TemplateID string `json:"templateId"`
}

// ComponentIDs returns the declared component ids in order.
func (t *Template) ComponentIDs() []string {
	ids := make([]string, len(t.Components))
	for i, c := range t.Components {
		ids[i] = c.ID
	}
	return ids
}

// HasComponent reports whether the template declares a component with the
// given id.
func (t *Template) HasComponent(id string) bool {
	for _, c := range t.Components {
		if c.ID == id {
			return true
		}
	}
	return false
}
