package tools

import (
	"context"
	"fmt"

	"omnibridge"
	"omnibridge/internal/respond"
	"omnibridge/internal/schema"
	"omnibridge/internal/script"
)

// ProjectsTool manages projects and their review cycle.
type ProjectsTool struct {
	base
}

// NewProjectsTool builds the project dispatcher.
func NewProjectsTool(bridge omnibridge.Bridge, cache omnibridge.Cache, cfg omnibridge.Config) *ProjectsTool {
	return &ProjectsTool{base{
		entity: "projects",
		kind:   "project",
		bridge: bridge,
		cache:  cache,
		cfg:    cfg,
		union: schema.NewUnion("projects",
			schema.OpSchema{Operation: "list", Fields: []schema.Field{
				{Name: "status", Type: schema.String, Enum: []string{"active", "onHold", "done", "dropped"}},
				{Name: "folder", Type: schema.String},
				{Name: "flagged", Type: schema.Bool},
				{Name: "reviewDue", Type: schema.Bool},
				{Name: "limit", Type: schema.Int, Positive: true},
				{Name: "sortBy", Type: schema.String},
				{Name: "sortDesc", Type: schema.Bool, Default: false},
			}},
			schema.OpSchema{Operation: "get", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
			}},
			schema.OpSchema{Operation: "create", Fields: []schema.Field{
				{Name: "name", Type: schema.String, Required: true, NonEmpty: true},
				{Name: "folder", Type: schema.String},
				{Name: "note", Type: schema.String},
				{Name: "sequential", Type: schema.Bool},
				{Name: "flagged", Type: schema.Bool},
				{Name: "dueDate", Type: schema.String},
				{Name: "deferDate", Type: schema.String},
			}},
			schema.OpSchema{Operation: "update", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
				{Name: "updates", Type: schema.Object, Required: true, NonEmpty: true},
			}},
			schema.OpSchema{Operation: "delete", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
			}},
			schema.OpSchema{Operation: "move", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
				{Name: "folder", Type: schema.String},
			}},
			schema.OpSchema{Operation: "set_status", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
				{Name: "status", Type: schema.String, Required: true,
					Enum: []string{"active", "onHold", "done", "dropped"}},
			}},
			schema.OpSchema{Operation: "mark_reviewed", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
			}},
			schema.OpSchema{Operation: "set_review_interval", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
				{Name: "days", Type: schema.Int, Required: true, Positive: true},
			}},
		),
	}}
}

func (t *ProjectsTool) Description() string {
	return "List and mutate projects: lifecycle status, folder placement, flags, due dates, and the review cycle."
}

func (t *ProjectsTool) Dispatch(ctx context.Context, params map[string]interface{}) respond.Envelope {
	inv, p, failed := t.begin(params)
	if failed != nil {
		return *failed
	}

	switch inv.Operation {
	case "list":
		return t.list(ctx, inv, p)
	case "get":
		return t.get(ctx, inv, p)
	case "create":
		return t.create(ctx, inv, p)
	case "update":
		updates, err := jsObject(mapOf(p, "updates"))
		if err != nil {
			return t.fail(inv, omnibridge.NewInvalidParameterError(t.opName(inv), "updates", err.Error()))
		}
		return t.mutate(ctx, inv, "project.update", map[string]string{
			"id":      script.JSString(stringOf(p, "id")),
			"updates": updates,
		}, stringOf(p, "id"))
	case "delete":
		return t.mutate(ctx, inv, "project.delete", map[string]string{
			"id": script.JSString(stringOf(p, "id")),
		}, stringOf(p, "id"))
	case "move":
		return t.mutate(ctx, inv, "project.move", map[string]string{
			"id":     script.JSString(stringOf(p, "id")),
			"folder": jsOptionalString(stringOf(p, "folder")),
		}, stringOf(p, "id"))
	case "set_status":
		return t.mutate(ctx, inv, "project.set_status", map[string]string{
			"id":     script.JSString(stringOf(p, "id")),
			"status": script.JSString(stringOf(p, "status")),
		}, stringOf(p, "id"))
	case "mark_reviewed":
		return t.mutate(ctx, inv, "project.mark_reviewed", map[string]string{
			"id": script.JSString(stringOf(p, "id")),
		}, stringOf(p, "id"))
	case "set_review_interval":
		return t.mutate(ctx, inv, "project.set_review_interval", map[string]string{
			"id":   script.JSString(stringOf(p, "id")),
			"days": fmt.Sprintf("%d", intOf(p, "days")),
		}, stringOf(p, "id"))
	default:
		return t.fail(inv, omnibridge.NewInvalidOperationError(t.entity, inv.Operation))
	}
}

func (t *ProjectsTool) list(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	q := script.Query{
		Entity:  "projects",
		Filters: map[string]interface{}{},
		Sort:    script.Sort{Field: stringOf(p, "sortBy"), Desc: boolOf(p, "sortDesc")},
		Limit:   intOf(p, "limit"),
	}
	for _, name := range []string{"status", "folder"} {
		if v := stringOf(p, name); v != "" {
			q.Filters[name] = v
		}
	}
	for _, name := range []string{"flagged", "reviewDue"} {
		if v, present := p[name]; present {
			q.Filters[name] = v
		}
	}

	rows, fromCache, bridgeErr := t.cachedRows(ctx, inv, omnibridge.NamespaceProjects, q.Key(), q.Compile)
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}
	return t.ok(inv, map[string]interface{}{"projects": rows, "count": len(rows)}, fromCache)
}

func (t *ProjectsTool) get(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	id := stringOf(p, "id")
	q := script.Query{Entity: "projects"}

	rows, fromCache, bridgeErr := t.cachedRows(ctx, inv, omnibridge.NamespaceProjects, q.Key(), q.Compile)
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}

	for _, row := range rows {
		if row["id"] == id {
			return t.ok(inv, row, fromCache)
		}
	}
	return t.fail(inv, omnibridge.NewNotFoundError(t.opName(inv), t.kind, id))
}

func (t *ProjectsTool) create(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	spec := map[string]interface{}{"name": stringOf(p, "name")}
	for _, name := range []string{"folder", "note", "dueDate", "deferDate"} {
		if v := stringOf(p, name); v != "" {
			spec[name] = v
		}
	}
	for _, name := range []string{"sequential", "flagged"} {
		if v, present := p[name]; present {
			spec[name] = v
		}
	}

	literal, err := jsObject(spec)
	if err != nil {
		return t.fail(inv, omnibridge.NewInvalidParameterError(t.opName(inv), "spec", err.Error()))
	}
	return t.mutate(ctx, inv, "project.create", map[string]string{"spec": literal}, "")
}

// mutate runs a project mutation template. Project state feeds analytics and
// review views, so those namespaces go with it.
func (t *ProjectsTool) mutate(ctx context.Context, inv *omnibridge.Invocation, template string,
	values map[string]string, id string) respond.Envelope {

	inv.Advance(omnibridge.StageBuild)
	scriptText, err := script.Build(template, values)
	if err != nil {
		return t.fail(inv, omnibridge.NewError(omnibridge.ErrCodeScript, t.opName(inv), err.Error(), err))
	}

	res, bridgeErr := t.execute(ctx, inv, scriptText, id)
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}

	inv.Advance(omnibridge.StageInvalidate)
	t.cache.Invalidate(omnibridge.NamespaceProjects, omnibridge.NamespaceAnalytics, omnibridge.NamespaceReviews)

	var data map[string]interface{}
	if err := res.DecodeData(&data); err != nil {
		return t.fail(inv, omnibridge.NewInvalidResultError(t.opName(inv), err))
	}
	return t.ok(inv, data, false)
}
