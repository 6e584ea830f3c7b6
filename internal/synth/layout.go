package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"flowforge/internal/gofile"
	"flowforge/internal/manifest"
	"flowforge/internal/resource"
)

// LayoutSynth compiles layout declarations into the single layouts
// artifact: a template -> layout lookup regenerated whole from manifest
// state on every change. One layout per template; re-upserting replaces.
type LayoutSynth struct {
	Deps
}

func NewLayoutSynth(d Deps) *LayoutSynth {
	return &LayoutSynth{Deps: d}
}

// Upsert validates the layout against the template it arranges, records
// it in the layout manifest and regenerates the lookup artifact.
func (s *LayoutSynth) Upsert(ctx context.Context, l resource.Layout) (Outcome, error) {
	templates, _, err := s.Manifests.Read(ctx, manifest.KindTemplate)
	if err != nil {
		return Outcome{}, err
	}
	raw, ok := templates[l.TemplateID]
	if !ok {
		return Outcome{}, preconditionf("layout %s: template %s not found", l.LayoutID, l.TemplateID)
	}
	var t resource.Template
	if err := json.Unmarshal(raw, &t); err != nil {
		return Outcome{}, fmt.Errorf("decode template %s: %w", l.TemplateID, err)
	}
	for area, ids := range l.Areas {
		for _, id := range ids {
			if !t.HasComponent(id) {
				return Outcome{}, preconditionf("layout %s: area %q references unknown component %q", l.LayoutID, area, id)
			}
		}
	}

	m, version, err := s.Manifests.Read(ctx, manifest.KindLayout)
	if err != nil {
		return Outcome{}, err
	}
	payload, err := manifest.Encode(l)
	if err != nil {
		return Outcome{}, err
	}
	m[l.TemplateID] = payload

	if err := s.regen(m); err != nil {
		return Outcome{}, err
	}
	if err := s.Manifests.Write(ctx, manifest.KindLayout, m, version); err != nil {
		return Outcome{}, err
	}

	return Outcome{Message: fmt.Sprintf("layout %s synthesized for template %s", l.LayoutID, l.TemplateID)}, nil
}

// Delete removes the layout keyed by template id and regenerates the
// lookup. The artifact stays present even when no layouts remain.
func (s *LayoutSynth) Delete(ctx context.Context, templateID string) (Outcome, error) {
	m, version, err := s.Manifests.Read(ctx, manifest.KindLayout)
	if err != nil {
		return Outcome{}, err
	}
	if _, ok := m[templateID]; !ok {
		return Outcome{}, preconditionf("no layout registered for template %s", templateID)
	}
	delete(m, templateID)

	if err := s.regen(m); err != nil {
		return Outcome{}, err
	}
	if err := s.Manifests.Write(ctx, manifest.KindLayout, m, version); err != nil {
		return Outcome{}, err
	}

	return Outcome{Message: fmt.Sprintf("layout for template %s deleted", templateID)}, nil
}

// regen rewrites the lookup artifact from full manifest state: template
// keys sorted, area keys sorted within each layout.
func (s *LayoutSynth) regen(m map[string]json.RawMessage) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := gofile.New("layouts")
	f.AddImport("", importUI)

	if len(keys) == 0 {
		f.Var("ByTemplate", "map[string]ui.Layout{}")
	} else {
		var b strings.Builder
		b.WriteString("map[string]ui.Layout{\n")
		for _, k := range keys {
			var l resource.Layout
			if err := json.Unmarshal(m[k], &l); err != nil {
				return fmt.Errorf("decode layout for template %s: %w", k, err)
			}
			b.WriteString(strconv.Quote(k) + ": {\n")
			b.WriteString("LayoutID: " + strconv.Quote(l.LayoutID) + ",\n")
			b.WriteString("TemplateID: " + strconv.Quote(l.TemplateID) + ",\n")
			b.WriteString("RouteID: " + strconv.Quote(l.RouteID) + ",\n")
			b.WriteString(areasLit(l.Areas))
			b.WriteString("},\n")
		}
		b.WriteString("}")
		f.Var("ByTemplate", b.String())
	}

	f.Func(
		"For returns the layout registered for a template, if any.",
		"For(templateID string) (ui.Layout, bool)",
		"l, ok := ByTemplate[templateID]",
		"return l, ok",
	)

	src, err := f.Bytes()
	if err != nil {
		return err
	}
	return s.WS.WriteFile(path.Join(LayoutsDir, "layouts.go"), src)
}

func areasLit(areas map[string][]string) string {
	if len(areas) == 0 {
		return "Areas: map[string][]string{},\n"
	}
	names := make([]string, 0, len(areas))
	for a := range areas {
		names = append(names, a)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Areas: map[string][]string{\n")
	for _, a := range names {
		b.WriteString(strconv.Quote(a) + ": {")
		for i, id := range areas[a] {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(id))
		}
		b.WriteString("},\n")
	}
	b.WriteString("},\n")
	return b.String()
}
