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
	"flowforge/internal/ident"
	"flowforge/internal/manifest"
	"flowforge/internal/resource"
)

// Methods an endpoint artifact may export, in generation order.
var methodOrder = []string{"GET", "POST", "DELETE"}

var comparators = map[string]string{
	"=":  "Eq",
	"!=": "Ne",
	">":  "Gt",
	">=": "Ge",
	"<":  "Lt",
	"<=": "Le",
}

// EndpointSynth compiles endpoint declarations into one handler artifact
// per path. All methods registered at a path live in that one artifact
// and are regenerated together.
type EndpointSynth struct {
	Deps
}

func NewEndpointSynth(d Deps) *EndpointSynth {
	return &EndpointSynth{Deps: d}
}

// apiKey is the manifest key and public path of an endpoint group.
func apiKey(declared string) string {
	norm := ident.NormalizePath(declared)
	if norm == "/" {
		return "/api"
	}
	return "/api" + norm
}

func (s *EndpointSynth) artifactPath(declared string) string {
	segs := ident.Segments(ident.NormalizePath(declared))
	return path.Join(append([]string{APIDir}, append(segs, "handler.go")...)...)
}

func (s *EndpointSynth) packageName(declared string) string {
	segs := ident.Segments(ident.NormalizePath(declared))
	if len(segs) == 0 {
		return "api"
	}
	return ident.PackageName(ident.ParamName(segs[len(segs)-1]))
}

// Upsert registers one method at a path and regenerates the whole
// method-group artifact.
func (s *EndpointSynth) Upsert(ctx context.Context, ep resource.Endpoint) (Outcome, error) {
	if ep.Action == resource.ActionDelete && len(ep.Where) == 0 {
		return Outcome{}, preconditionf("endpoint %s %s: delete requires a non-empty where clause", ep.Method, ep.Path)
	}

	key := apiKey(ep.Path)
	m, version, err := s.Manifests.Read(ctx, manifest.KindEndpoint)
	if err != nil {
		return Outcome{}, err
	}
	group, err := decodeGroup(m[key])
	if err != nil {
		return Outcome{}, err
	}
	group[ep.Method] = ep

	src, err := s.render(ep.Path, group)
	if err != nil {
		return Outcome{}, err
	}
	if err := s.WS.WriteFile(s.artifactPath(ep.Path), src); err != nil {
		return Outcome{}, err
	}

	payload, err := manifest.Encode(group)
	if err != nil {
		return Outcome{}, err
	}
	m[key] = payload
	if err := s.Manifests.Write(ctx, manifest.KindEndpoint, m, version); err != nil {
		return Outcome{}, err
	}

	return Outcome{Message: fmt.Sprintf("endpoint %s %s synthesized", ep.Method, key)}, nil
}

// Delete removes one method from its group. The artifact is regenerated
// with the survivors, or removed entirely when the group empties.
func (s *EndpointSynth) Delete(ctx context.Context, keyReq resource.EndpointKey) (Outcome, error) {
	key := apiKey(keyReq.Path)
	m, version, err := s.Manifests.Read(ctx, manifest.KindEndpoint)
	if err != nil {
		return Outcome{}, err
	}
	group, err := decodeGroup(m[key])
	if err != nil {
		return Outcome{}, err
	}
	if _, ok := group[keyReq.Method]; !ok {
		return Outcome{}, preconditionf("endpoint %s %s not found", keyReq.Method, key)
	}
	delete(group, keyReq.Method)

	if len(group) == 0 {
		if err := s.WS.Remove(s.artifactPath(keyReq.Path)); err != nil {
			return Outcome{}, err
		}
		delete(m, key)
	} else {
		src, err := s.render(keyReq.Path, group)
		if err != nil {
			return Outcome{}, err
		}
		if err := s.WS.WriteFile(s.artifactPath(keyReq.Path), src); err != nil {
			return Outcome{}, err
		}
		payload, err := manifest.Encode(group)
		if err != nil {
			return Outcome{}, err
		}
		m[key] = payload
	}

	if err := s.Manifests.Write(ctx, manifest.KindEndpoint, m, version); err != nil {
		return Outcome{}, err
	}
	return Outcome{Message: fmt.Sprintf("endpoint %s %s deleted", keyReq.Method, key)}, nil
}

func decodeGroup(raw json.RawMessage) (map[string]resource.Endpoint, error) {
	group := map[string]resource.Endpoint{}
	if len(raw) == 0 {
		return group, nil
	}
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil, fmt.Errorf("decode endpoint group: %w", err)
	}
	return group, nil
}

// render assembles the method-group artifact. Imports are the union of
// what every method at the path needs.
func (s *EndpointSynth) render(declared string, group map[string]resource.Endpoint) ([]byte, error) {
	f := gofile.New(s.packageName(declared))
	f.AddImport("", "context")
	f.AddImport("", importAppRT)
	f.AddImport("", importStore)

	for _, method := range methodOrder {
		ep, ok := group[method]
		if !ok {
			continue
		}
		if err := s.renderMethod(f, method, ep); err != nil {
			return nil, err
		}
	}
	return f.Bytes()
}

func (s *EndpointSynth) renderMethod(f *gofile.File, method string, ep resource.Endpoint) error {
	tbl := ident.PackageName(ep.Table)
	f.AddImport(tbl, s.WS.Module+"/"+SchemaDir+"/"+tbl)
	tableRef := tbl + ".Table.Name"

	needsBody := ep.Action == resource.ActionInsert
	usesBag := false
	for _, w := range ep.Where {
		if comparators[w.Op] == "" {
			return preconditionf("unknown comparator %q on column %q", w.Op, w.Column)
		}
		usesBag = true
		if strings.HasPrefix(w.Source, ident.ScopeBody+".") {
			needsBody = true
		}
	}
	for _, src := range ep.FieldMapping {
		usesBag = true
		if strings.HasPrefix(src, ident.ScopeBody+".") {
			needsBody = true
		}
	}

	var body []string
	if needsBody {
		body = append(body,
			"if err := rc.ReadBody(); err != nil {",
			"return nil, err",
			"}")
	}
	if usesBag {
		body = append(body, "bag := rc.Bag()")
	}

	switch ep.Action {
	case resource.ActionSelect:
		body = append(body, fmt.Sprintf("rows, err := apprt.Select(ctx, st, %s,", tableRef))
		body = append(body, condArgs(ep.Where)...)
		body = append(body, ")",
			"if err != nil {",
			"return nil, err",
			"}",
			"return rows, nil")

	case resource.ActionInsert:
		body = append(body, "values := map[string]any{")
		cols := make([]string, 0, len(ep.FieldMapping))
		for col := range ep.FieldMapping {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		for _, col := range cols {
			body = append(body, fmt.Sprintf("%s: apprt.Resolve(bag, %s),",
				strconv.Quote(ident.Sanitize(col)), strconv.Quote(ep.FieldMapping[col])))
		}
		body = append(body, "}",
			fmt.Sprintf("rec, err := apprt.Insert(ctx, st, %s, values)", tableRef),
			"if err != nil {",
			"return nil, err",
			"}",
			"return rec, nil")

	case resource.ActionDelete:
		body = append(body, fmt.Sprintf("n, err := apprt.Delete(ctx, st, %s,", tableRef))
		body = append(body, condArgs(ep.Where)...)
		body = append(body, ")",
			"if err != nil {",
			"return nil, err",
			"}",
			`return map[string]any{"deleted": n}, nil`)

	default:
		return preconditionf("unknown endpoint action %q", ep.Action)
	}

	wrapped := []string{"return apprt.Run(func() (any, error) {"}
	wrapped = append(wrapped, body...)
	wrapped = append(wrapped, "})")

	f.Func(
		fmt.Sprintf("%s handles %s %s.", method, method, ident.NormalizePath(ep.Path)),
		fmt.Sprintf("%s(ctx context.Context, st *store.Store, rc *apprt.RequestContext) apprt.Result", method),
		wrapped...,
	)
	return nil
}

// condArgs renders the comparator arguments for a where list; multiple
// conditions combine with logical AND inside the runtime.
func condArgs(where []resource.WhereCond) []string {
	out := make([]string, 0, len(where))
	for _, w := range where {
		out = append(out, fmt.Sprintf("apprt.%s(%s, apprt.Resolve(bag, %s)),",
			comparators[w.Op], strconv.Quote(ident.Sanitize(w.Column)), strconv.Quote(w.Source)))
	}
	return out
}
