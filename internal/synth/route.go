package synth

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"flowforge/internal/cascade"
	"flowforge/internal/gofile"
	"flowforge/internal/ident"
	"flowforge/internal/manifest"
	"flowforge/internal/resource"
	"flowforge/internal/workspace"
)

// RouteSynth compiles route declarations into page artifacts under the
// pages tree. It also implements cascade.RouteEnsurer, so template
// upserts can demand routes and detail sub-routes declaratively.
type RouteSynth struct {
	Deps
}

func NewRouteSynth(d Deps) *RouteSynth {
	return &RouteSynth{Deps: d}
}

func pageDir(normalized string) string {
	if normalized == "/" {
		return PagesDir
	}
	return PagesDir + normalized
}

// Upsert writes the route's page artifact and records it in the route
// manifest under its normalized path.
func (s *RouteSynth) Upsert(ctx context.Context, r resource.Route) (Outcome, error) {
	norm := ident.NormalizePath(r.Path)
	r.Path = norm

	src, err := renderPage(norm, r.PageName)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.WS.WriteFile(path.Join(pageDir(norm), "page.go"), src); err != nil {
		return Outcome{}, err
	}

	m, version, err := s.Manifests.Read(ctx, manifest.KindRoute)
	if err != nil {
		return Outcome{}, err
	}
	payload, err := manifest.Encode(r)
	if err != nil {
		return Outcome{}, err
	}
	m[norm] = payload
	if err := s.Manifests.Write(ctx, manifest.KindRoute, m, version); err != nil {
		return Outcome{}, err
	}

	return Outcome{Message: fmt.Sprintf("route %s synthesized", norm)}, nil
}

// Delete removes the manifest entry and moves the route directory into
// the archive rather than deleting it. Archive trouble is a warning.
func (s *RouteSynth) Delete(ctx context.Context, declared string) (Outcome, error) {
	norm := ident.NormalizePath(declared)
	var warnings []string

	m, version, err := s.Manifests.Read(ctx, manifest.KindRoute)
	if err != nil {
		return Outcome{}, err
	}
	if _, ok := m[norm]; !ok {
		return Outcome{}, preconditionf("route %s not found", norm)
	}
	delete(m, norm)
	if err := s.Manifests.Write(ctx, manifest.KindRoute, m, version); err != nil {
		return Outcome{}, err
	}

	// The root route owns only pages/page.go; archiving the whole pages
	// tree would swallow every sibling route and nest the archive inside
	// its own source.
	target := path.Join(pageDir(norm), "page.go")
	if norm != "/" {
		target = pageDir(norm)
	}
	if s.WS.Exists(target) {
		if _, err := s.WS.Archive(target, path.Join(PagesDir, workspace.ArchiveDir)); err != nil {
			warnings = append(warnings, fmt.Sprintf("archive route %s: %v", norm, err))
		}
	} else {
		warnings = append(warnings, fmt.Sprintf("route artifact for %s already absent", norm))
	}

	return Outcome{
		Message:  fmt.Sprintf("route %s deleted", norm),
		Warnings: warnings,
	}, nil
}

// EnsureRoute makes the route exist if it does not yet: manifest entry
// present and page artifact on disk. Existing routes are left untouched.
func (s *RouteSynth) EnsureRoute(ctx context.Context, normalized string) error {
	m, _, err := s.Manifests.Read(ctx, manifest.KindRoute)
	if err != nil {
		return err
	}
	if _, ok := m[normalized]; ok && s.WS.Exists(path.Join(pageDir(normalized), "page.go")) {
		return nil
	}
	_, err = s.Upsert(ctx, resource.Route{
		RouteID:  derivedRouteID(normalized),
		Path:     normalized,
		PageName: derivedPageName(normalized),
		Dynamic:  hasParam(normalized),
	})
	return err
}

// EnsureDetailRoute generates the dynamic "[pk]" sub-route for a
// dynamically-routed table component: fetch one record by primary key
// from the bound endpoint, render it, offer a delete that navigates back
// to the parent route.
func (s *RouteSynth) EnsureDetailRoute(ctx context.Context, d cascade.DetailSpec) error {
	parent := ident.NormalizePath(d.ParentRoute)
	pk := ident.Sanitize(d.PrimaryKey)
	detail := parent + "/[" + pk + "]"
	endpoint := apiKey(d.EndpointPath)

	f := gofile.New("page")
	f.AddImport("", importUI)
	f.Var("Page", fmt.Sprintf(
		"ui.Page{\nRoute: %s,\nName: %s,\nDetail: true,\nBreadcrumbs: %s,\n}",
		strconv.Quote(detail),
		strconv.Quote(derivedPageName(parent)+" detail"),
		breadcrumbLit(detail)))
	f.Func(
		"Render fetches the record addressed by the primary-key segment and offers the delete-and-go-back action.",
		"Render(rc ui.RenderContext) ui.Node",
		fmt.Sprintf("id := rc.Param(%s)", strconv.Quote(pk)),
		fmt.Sprintf("rec, err := rc.FetchOne(%s, %s, id)", strconv.Quote(endpoint), strconv.Quote(pk)),
		"if err != nil {",
		`return ui.Text("Record not found")`,
		"}",
		"return ui.Detail(rec, ui.DetailActions{",
		fmt.Sprintf("DeleteEndpoint: %s,", strconv.Quote(endpoint)),
		`DeleteMethod: "DELETE",`,
		fmt.Sprintf("PrimaryKey: %s,", strconv.Quote(pk)),
		fmt.Sprintf("BackTo: %s,", strconv.Quote(parent)),
		"})",
	)
	src, err := f.Bytes()
	if err != nil {
		return err
	}
	if err := s.WS.WriteFile(path.Join(pageDir(detail), "page.go"), src); err != nil {
		return err
	}

	payload, err := manifest.Encode(resource.Route{
		RouteID:  derivedRouteID(detail),
		Path:     detail,
		PageName: derivedPageName(parent) + " detail",
		Dynamic:  true,
	})
	if err != nil {
		return err
	}

	// Detail ensures for one template run concurrently; retry the manifest
	// update when a sibling won the version race.
	for attempt := 0; ; attempt++ {
		m, version, err := s.Manifests.Read(ctx, manifest.KindRoute)
		if err != nil {
			return err
		}
		m[detail] = payload
		err = s.Manifests.Write(ctx, manifest.KindRoute, m, version)
		if errors.Is(err, manifest.ErrVersionConflict) && attempt < 5 {
			continue
		}
		return err
	}
}

// renderPage builds a standard page artifact: precomputed breadcrumbs,
// render-time template lookup, nothing-found fallback.
func renderPage(normalized, pageName string) ([]byte, error) {
	if pageName == "" {
		pageName = derivedPageName(normalized)
	}
	f := gofile.New("page")
	f.AddImport("", importUI)
	f.Var("Page", fmt.Sprintf(
		"ui.Page{\nRoute: %s,\nName: %s,\nBreadcrumbs: %s,\n}",
		strconv.Quote(normalized), strconv.Quote(pageName), breadcrumbLit(normalized)))
	f.Func(
		"Render looks up the templates registered for this route at render time; registration after generation is picked up without regenerating the page.",
		"Render(rc ui.RenderContext) ui.Node",
		"tpls := rc.TemplatesFor(Page.Route)",
		"if len(tpls) == 0 {",
		`return ui.Text("No templates registered for " + Page.Route)`,
		"}",
		"nodes := make([]ui.Node, 0, len(tpls))",
		"for _, t := range tpls {",
		"nodes = append(nodes, rc.RenderTemplate(t))",
		"}",
		"return ui.Fragment(nodes...)",
	)
	return f.Bytes()
}

// breadcrumbLit walks the path segments accumulating prefixes; one crumb
// per non-empty segment.
func breadcrumbLit(normalized string) string {
	segs := ident.Segments(normalized)
	if len(segs) == 0 {
		return "[]ui.Breadcrumb{}"
	}
	var b strings.Builder
	b.WriteString("[]ui.Breadcrumb{\n")
	prefix := ""
	for _, seg := range segs {
		prefix += "/" + seg
		b.WriteString(fmt.Sprintf("{Label: %s, Href: %s},\n", strconv.Quote(seg), strconv.Quote(prefix)))
	}
	b.WriteString("}")
	return b.String()
}

func derivedRouteID(normalized string) string {
	segs := ident.Segments(normalized)
	if len(segs) == 0 {
		return "home"
	}
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = ident.Sanitize(ident.ParamName(s))
	}
	return strings.Join(parts, "_")
}

func derivedPageName(normalized string) string {
	segs := ident.Segments(normalized)
	if len(segs) == 0 {
		return "Home"
	}
	return ident.ParamName(segs[len(segs)-1])
}

func hasParam(normalized string) bool {
	for _, s := range ident.Segments(normalized) {
		if ident.IsParam(s) {
			return true
		}
	}
	return false
}
