package dispatch

import (
	"fmt"
	"strings"

	"flowforge/internal/ident"
	"flowforge/internal/resource"
)

var columnTypes = map[string]bool{
	resource.ColInteger: true,
	resource.ColText:    true,
	resource.ColReal:    true,
	resource.ColBoolean: true,
}

var endpointMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"DELETE": true,
}

var endpointActions = map[string]bool{
	resource.ActionSelect: true,
	resource.ActionInsert: true,
	resource.ActionDelete: true,
}

var componentTypes = map[string]bool{
	resource.CompInput:    true,
	resource.CompTextarea: true,
	resource.CompButton:   true,
	resource.CompTable:    true,
}

func required(details []ErrorDetail, field, value string) []ErrorDetail {
	if strings.TrimSpace(value) == "" {
		details = append(details, ErrorDetail{
			Field:   field,
			Rule:    "required",
			Message: fmt.Sprintf("%s is required", field),
		})
	}
	return details
}

func validateTable(t resource.Table) []ErrorDetail {
	var details []ErrorDetail
	details = required(details, "tableName", t.TableName)
	if len(t.Columns) == 0 {
		details = append(details, ErrorDetail{
			Field:   "columns",
			Rule:    "required",
			Message: "at least one column is required",
		})
	}
	for i, c := range t.Columns {
		details = required(details, fmt.Sprintf("columns[%d].name", i), c.Name)
		if !columnTypes[c.Type] {
			details = append(details, ErrorDetail{
				Field:   fmt.Sprintf("columns[%d].type", i),
				Rule:    "enum",
				Message: fmt.Sprintf("unknown column type %q", c.Type),
			})
		}
		if fk := c.ForeignKey; fk != nil {
			details = required(details, fmt.Sprintf("columns[%d].foreignKey.table", i), fk.Table)
			details = required(details, fmt.Sprintf("columns[%d].foreignKey.column", i), fk.Column)
		}
	}
	return details
}

func validateEndpoint(ep resource.Endpoint) []ErrorDetail {
	var details []ErrorDetail
	details = required(details, "path", ep.Path)
	details = required(details, "table", ep.Table)
	if !endpointMethods[ep.Method] {
		details = append(details, ErrorDetail{
			Field:   "method",
			Rule:    "enum",
			Message: fmt.Sprintf("unsupported method %q", ep.Method),
		})
	}
	if !endpointActions[ep.Action] {
		details = append(details, ErrorDetail{
			Field:   "action",
			Rule:    "enum",
			Message: fmt.Sprintf("unsupported action %q", ep.Action),
		})
	}
	for i, w := range ep.Where {
		details = required(details, fmt.Sprintf("where[%d].column", i), w.Column)
		details = required(details, fmt.Sprintf("where[%d].op", i), w.Op)
		details = validateSource(details, fmt.Sprintf("where[%d].source", i), w.Source)
	}
	for field, src := range ep.FieldMapping {
		details = validateSource(details, "fieldMapping."+field, src)
	}
	return details
}

// validateSource checks that a dotted source path starts in a known
// request scope.
func validateSource(details []ErrorDetail, field, source string) []ErrorDetail {
	if source == "" {
		return append(details, ErrorDetail{
			Field:   field,
			Rule:    "required",
			Message: fmt.Sprintf("%s is required", field),
		})
	}
	if !ident.ValidScope(source) {
		details = append(details, ErrorDetail{
			Field:   field,
			Rule:    "scope",
			Message: fmt.Sprintf("source %q must start with body, query or params", source),
		})
	}
	return details
}

func validateRoute(r resource.Route) []ErrorDetail {
	var details []ErrorDetail
	details = required(details, "routeId", r.RouteID)
	details = required(details, "path", r.Path)
	return details
}

func validateTemplate(t resource.Template) []ErrorDetail {
	var details []ErrorDetail
	details = required(details, "templateId", t.TemplateID)
	details = required(details, "routePath", t.RoutePath)
	seen := map[string]bool{}
	for i, c := range t.Components {
		details = required(details, fmt.Sprintf("components[%d].id", i), c.ID)
		if !componentTypes[c.Type] {
			details = append(details, ErrorDetail{
				Field:   fmt.Sprintf("components[%d].type", i),
				Rule:    "enum",
				Message: fmt.Sprintf("unknown component type %q", c.Type),
			})
		}
		if c.ID != "" && seen[c.ID] {
			details = append(details, ErrorDetail{
				Field:   fmt.Sprintf("components[%d].id", i),
				Rule:    "unique",
				Message: fmt.Sprintf("duplicate component id %q", c.ID),
			})
		}
		seen[c.ID] = true
		if c.Type == resource.CompTable {
			details = required(details, fmt.Sprintf("components[%d].tableName", i), c.TableName)
		}
	}
	return details
}

func validateLayout(l resource.Layout) []ErrorDetail {
	var details []ErrorDetail
	details = required(details, "layoutId", l.LayoutID)
	details = required(details, "templateId", l.TemplateID)
	for area, ids := range l.Areas {
		for i, id := range ids {
			details = required(details, fmt.Sprintf("areas.%s[%d]", area, i), id)
		}
	}
	return details
}
