// Package dispatch routes declarative node documents to the synthesizer
// that owns the node's resource kind, after validating the envelope and
// payload shape. It is the single entry point for compile operations.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"flowforge/internal/manifest"
	"flowforge/internal/resource"
	"flowforge/internal/synth"
)

// Result is the success envelope of one compile operation.
type Result struct {
	OperationID string   `json:"operationId"`
	Message     string   `json:"message"`
	Warnings    []string `json:"warnings,omitempty"`
}

type Dispatcher struct {
	Tables    *synth.TableSynth
	Endpoints *synth.EndpointSynth
	Routes    *synth.RouteSynth
	Templates *synth.TemplateSynth
	Layouts   *synth.LayoutSynth
}

// Dispatch validates and executes one node document. Returned errors are
// *AppError for anything the caller did wrong; unexpected synthesis
// failures pass through wrapped for the transport layer to report as
// internal.
func (d *Dispatcher) Dispatch(ctx context.Context, node resource.FlowNode) (Result, error) {
	res := Result{OperationID: uuid.NewString()}

	if node.Operation != resource.OpUpsert && node.Operation != resource.OpDelete {
		return res, UnknownOperationError(node.Operation)
	}

	var out synth.Outcome
	var err error
	switch node.NodeType {
	case resource.KindTable:
		out, err = d.dispatchTable(ctx, node)
	case resource.KindEndpoint:
		out, err = d.dispatchEndpoint(ctx, node)
	case resource.KindRoute:
		out, err = d.dispatchRoute(ctx, node)
	case resource.KindTemplate:
		out, err = d.dispatchTemplate(ctx, node)
	case resource.KindLayout:
		out, err = d.dispatchLayout(ctx, node)
	default:
		return res, UnknownNodeTypeError(node.NodeType)
	}
	if err != nil {
		return res, translate(err)
	}

	res.Message = out.Message
	res.Warnings = out.Warnings
	return res, nil
}

func (d *Dispatcher) dispatchTable(ctx context.Context, node resource.FlowNode) (synth.Outcome, error) {
	if node.Operation == resource.OpDelete {
		var t resource.Table
		if err := decode(node.Payload, &t); err != nil {
			return synth.Outcome{}, err
		}
		if details := required(nil, "tableName", t.TableName); len(details) > 0 {
			return synth.Outcome{}, ValidationError(details)
		}
		return d.Tables.Delete(ctx, t.TableName)
	}

	var t resource.Table
	if err := decode(node.Payload, &t); err != nil {
		return synth.Outcome{}, err
	}
	if details := validateTable(t); len(details) > 0 {
		return synth.Outcome{}, ValidationError(details)
	}
	return d.Tables.Upsert(ctx, t)
}

func (d *Dispatcher) dispatchEndpoint(ctx context.Context, node resource.FlowNode) (synth.Outcome, error) {
	if node.Operation == resource.OpDelete {
		var key resource.EndpointKey
		if err := decode(node.Payload, &key); err != nil {
			return synth.Outcome{}, err
		}
		details := required(nil, "path", key.Path)
		details = required(details, "method", key.Method)
		if len(details) > 0 {
			return synth.Outcome{}, ValidationError(details)
		}
		return d.Endpoints.Delete(ctx, key)
	}

	var ep resource.Endpoint
	if err := decode(node.Payload, &ep); err != nil {
		return synth.Outcome{}, err
	}
	if details := validateEndpoint(ep); len(details) > 0 {
		return synth.Outcome{}, ValidationError(details)
	}
	return d.Endpoints.Upsert(ctx, ep)
}

func (d *Dispatcher) dispatchRoute(ctx context.Context, node resource.FlowNode) (synth.Outcome, error) {
	if node.Operation == resource.OpDelete {
		var key resource.RouteKey
		if err := decode(node.Payload, &key); err != nil {
			return synth.Outcome{}, err
		}
		if details := required(nil, "path", key.Path); len(details) > 0 {
			return synth.Outcome{}, ValidationError(details)
		}
		return d.Routes.Delete(ctx, key.Path)
	}

	var r resource.Route
	if err := decode(node.Payload, &r); err != nil {
		return synth.Outcome{}, err
	}
	if details := validateRoute(r); len(details) > 0 {
		return synth.Outcome{}, ValidationError(details)
	}
	return d.Routes.Upsert(ctx, r)
}

func (d *Dispatcher) dispatchTemplate(ctx context.Context, node resource.FlowNode) (synth.Outcome, error) {
	if node.Operation == resource.OpDelete {
		var key resource.TemplateKey
		if err := decode(node.Payload, &key); err != nil {
			return synth.Outcome{}, err
		}
		if details := required(nil, "templateId", key.TemplateID); len(details) > 0 {
			return synth.Outcome{}, ValidationError(details)
		}
		return d.Templates.Delete(ctx, key.TemplateID)
	}

	var t resource.Template
	if err := decode(node.Payload, &t); err != nil {
		return synth.Outcome{}, err
	}
	if details := validateTemplate(t); len(details) > 0 {
		return synth.Outcome{}, ValidationError(details)
	}
	return d.Templates.Upsert(ctx, t)
}

func (d *Dispatcher) dispatchLayout(ctx context.Context, node resource.FlowNode) (synth.Outcome, error) {
	if node.Operation == resource.OpDelete {
		var key resource.LayoutKey
		if err := decode(node.Payload, &key); err != nil {
			return synth.Outcome{}, err
		}
		if details := required(nil, "templateId", key.TemplateID); len(details) > 0 {
			return synth.Outcome{}, ValidationError(details)
		}
		return d.Layouts.Delete(ctx, key.TemplateID)
	}

	var l resource.Layout
	if err := decode(node.Payload, &l); err != nil {
		return synth.Outcome{}, err
	}
	if details := validateLayout(l); len(details) > 0 {
		return synth.Outcome{}, ValidationError(details)
	}
	return d.Layouts.Upsert(ctx, l)
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return InvalidPayloadError(errors.New("payload is required"))
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return InvalidPayloadError(err)
	}
	return nil
}

// translate maps synthesis failures onto the error taxonomy: precondition
// violations and manifest conflicts are the caller's problem, everything
// else is internal.
func translate(err error) error {
	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	var pe *synth.PreconditionError
	if errors.As(err, &pe) {
		return PreconditionFailedError(pe.Reason)
	}
	if errors.Is(err, manifest.ErrVersionConflict) {
		return ConflictError()
	}
	return fmt.Errorf("synthesis: %w", err)
}
