package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"flowforge/internal/cascade"
	"flowforge/internal/gofile"
	"flowforge/internal/ident"
	"flowforge/internal/manifest"
	"flowforge/internal/resource"
)

// TemplateSynth compiles template declarations into component-list
// artifacts plus the per-route registry generated pages consult at render
// time. Before writing anything it resolves the template's dependency
// edges through the cascade coordinator.
type TemplateSynth struct {
	Deps
	Coordinator *cascade.Coordinator
}

func NewTemplateSynth(d Deps, c *cascade.Coordinator) *TemplateSynth {
	return &TemplateSynth{Deps: d, Coordinator: c}
}

func templateArtifact(templateID string) string {
	return path.Join(TemplatesDir, ident.PackageName(templateID)+".go")
}

// Upsert resolves the template's route dependencies, writes the template
// artifact, records the manifest entry and regenerates the registry.
func (s *TemplateSynth) Upsert(ctx context.Context, t resource.Template) (Outcome, error) {
	norm := ident.NormalizePath(t.RoutePath)
	t.RoutePath = norm

	edges := []cascade.Edge{cascade.EnsureRoute(norm)}
	for _, c := range t.Components {
		if c.Type == resource.CompTable && c.DynamicRouting {
			if c.DataSource == nil {
				return Outcome{}, preconditionf("component %q: dynamic routing requires a data source", c.ID)
			}
			edges = append(edges, cascade.EnsureDetailRoute(cascade.DetailSpec{
				ParentRoute:  norm,
				TableName:    c.TableName,
				EndpointPath: c.DataSource.EndpointPath,
				PrimaryKey:   c.DataSource.PrimaryKey,
			}))
		}
	}
	if err := s.Coordinator.Resolve(ctx, edges); err != nil {
		return Outcome{}, err
	}

	src, err := renderTemplate(t)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.WS.WriteFile(templateArtifact(t.TemplateID), src); err != nil {
		return Outcome{}, err
	}

	m, version, err := s.Manifests.Read(ctx, manifest.KindTemplate)
	if err != nil {
		return Outcome{}, err
	}
	payload, err := manifest.Encode(t)
	if err != nil {
		return Outcome{}, err
	}
	m[t.TemplateID] = payload
	if err := s.regenRegistry(m); err != nil {
		return Outcome{}, err
	}
	if err := s.Manifests.Write(ctx, manifest.KindTemplate, m, version); err != nil {
		return Outcome{}, err
	}

	return Outcome{Message: fmt.Sprintf("template %s synthesized for %s", t.TemplateID, norm)}, nil
}

// Delete unregisters the template and removes its artifact. The route and
// its page survive; only the registry stops pointing at the template.
func (s *TemplateSynth) Delete(ctx context.Context, templateID string) (Outcome, error) {
	var warnings []string

	m, version, err := s.Manifests.Read(ctx, manifest.KindTemplate)
	if err != nil {
		return Outcome{}, err
	}
	if _, ok := m[templateID]; !ok {
		return Outcome{}, preconditionf("template %s not found", templateID)
	}
	delete(m, templateID)

	if err := s.regenRegistry(m); err != nil {
		return Outcome{}, err
	}
	if err := s.Manifests.Write(ctx, manifest.KindTemplate, m, version); err != nil {
		return Outcome{}, err
	}

	if err := s.WS.Remove(templateArtifact(templateID)); err != nil {
		warnings = append(warnings, fmt.Sprintf("remove template artifact %s: %v", templateID, err))
	}

	return Outcome{
		Message:  fmt.Sprintf("template %s deleted", templateID),
		Warnings: warnings,
	}, nil
}

// renderTemplate emits the template's component list as an exported
// configuration literal.
func renderTemplate(t resource.Template) ([]byte, error) {
	f := gofile.New("templates")
	f.AddImport("", importUI)

	var b strings.Builder
	b.WriteString("ui.Template{\n")
	b.WriteString("ID: " + strconv.Quote(t.TemplateID) + ",\n")
	b.WriteString("Route: " + strconv.Quote(t.RoutePath) + ",\n")
	b.WriteString("Components: []ui.Component{\n")
	for _, c := range t.Components {
		b.WriteString(componentLit(c))
	}
	b.WriteString("},\n}")
	f.Var(ident.ExportName(t.TemplateID), b.String())

	return f.Bytes()
}

func componentLit(c resource.Component) string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("ID: " + strconv.Quote(c.ID) + ",\n")
	b.WriteString("Kind: " + strconv.Quote(c.Type) + ",\n")
	if c.Label != "" {
		b.WriteString("Label: " + strconv.Quote(c.Label) + ",\n")
	}
	if c.Bind != nil {
		b.WriteString(fmt.Sprintf("Bind: &ui.Binding{EndpointPath: %s, Field: %s},\n",
			strconv.Quote(apiKey(c.Bind.EndpointPath)), strconv.Quote(c.Bind.Field)))
	}
	if c.Action != nil {
		b.WriteString(fmt.Sprintf("Action: &ui.Action{EndpointPath: %s, Method: %s},\n",
			strconv.Quote(apiKey(c.Action.EndpointPath)), strconv.Quote(c.Action.Method)))
	}
	if c.TableName != "" {
		b.WriteString("TableName: " + strconv.Quote(c.TableName) + ",\n")
	}
	if c.DataSource != nil {
		b.WriteString(fmt.Sprintf("DataSource: &ui.DataSource{EndpointPath: %s, PrimaryKey: %s},\n",
			strconv.Quote(apiKey(c.DataSource.EndpointPath)), strconv.Quote(c.DataSource.PrimaryKey)))
	}
	if c.DynamicRouting {
		b.WriteString("DynamicRouting: true,\n")
	}
	b.WriteString("},\n")
	return b.String()
}

// regenRegistry rewrites the route -> templates lookup from the full
// manifest state: routes sorted, template ids sorted within each route.
func (s *TemplateSynth) regenRegistry(m map[string]json.RawMessage) error {
	byRoute := map[string][]string{}
	for id, raw := range m {
		var t resource.Template
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("decode template %s: %w", id, err)
		}
		byRoute[t.RoutePath] = append(byRoute[t.RoutePath], id)
	}

	routes := make([]string, 0, len(byRoute))
	for r := range byRoute {
		routes = append(routes, r)
	}
	sort.Strings(routes)

	f := gofile.New("templates")
	f.AddImport("", importUI)

	if len(routes) == 0 {
		f.Var("ByRoute", "map[string][]ui.TemplateRef{}")
	} else {
		var b strings.Builder
		b.WriteString("map[string][]ui.TemplateRef{\n")
		for _, r := range routes {
			ids := byRoute[r]
			sort.Strings(ids)
			b.WriteString(strconv.Quote(r) + ": {\n")
			for _, id := range ids {
				b.WriteString(fmt.Sprintf("{ID: %s, Template: &%s},\n",
					strconv.Quote(id), ident.ExportName(id)))
			}
			b.WriteString("},\n")
		}
		b.WriteString("}")
		f.Var("ByRoute", b.String())
	}

	src, err := f.Bytes()
	if err != nil {
		return err
	}
	return s.WS.WriteFile(path.Join(TemplatesDir, "registry.go"), src)
}
