// Package cascade resolves cross-resource dependency edges. Resource
// handlers declare what must exist (a route for a template, a detail
// sub-route for a dynamically-routed table component) instead of calling
// each other directly; the coordinator owns ordering and idempotence.
package cascade

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DetailSpec describes a detail sub-route bound to a table component's
// data endpoint.
type DetailSpec struct {
	ParentRoute  string
	TableName    string
	EndpointPath string
	PrimaryKey   string
}

// Edge is one declarative dependency.
type Edge struct {
	Route  string      // EnsureRoute target (normalized path), or ""
	Detail *DetailSpec // EnsureDetailRoute target, or nil
}

func EnsureRoute(path string) Edge { return Edge{Route: path} }

func EnsureDetailRoute(d DetailSpec) Edge { return Edge{Detail: &d} }

// RouteEnsurer is implemented by the route synthesizer.
type RouteEnsurer interface {
	EnsureRoute(ctx context.Context, path string) error
	EnsureDetailRoute(ctx context.Context, d DetailSpec) error
}

type Coordinator struct {
	routes RouteEnsurer
}

func NewCoordinator(routes RouteEnsurer) *Coordinator {
	return &Coordinator{routes: routes}
}

// Resolve satisfies a set of edges: route edges first (parents before the
// detail sub-routes that hang off them), deduplicated and in sorted order
// for determinism. Detail edges target disjoint sub-routes, so they run
// concurrently.
func (c *Coordinator) Resolve(ctx context.Context, edges []Edge) error {
	routeSet := map[string]bool{}
	detailSet := map[string]DetailSpec{}
	for _, e := range edges {
		if e.Route != "" {
			routeSet[e.Route] = true
		}
		if e.Detail != nil {
			detailSet[e.Detail.ParentRoute+"|"+e.Detail.TableName] = *e.Detail
		}
	}

	routes := make([]string, 0, len(routeSet))
	for r := range routeSet {
		routes = append(routes, r)
	}
	sort.Strings(routes)
	for _, r := range routes {
		if err := c.routes.EnsureRoute(ctx, r); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(detailSet))
	for k := range detailSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	g, gctx := errgroup.WithContext(ctx)
	for _, k := range keys {
		d := detailSet[k]
		g.Go(func() error {
			return c.routes.EnsureDetailRoute(gctx, d)
		})
	}
	return g.Wait()
}
