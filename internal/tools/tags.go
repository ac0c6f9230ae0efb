package tools

import (
	"context"

	"omnibridge"
	"omnibridge/internal/respond"
	"omnibridge/internal/schema"
	"omnibridge/internal/script"
)

// TagsTool manages the tag hierarchy. Tags are identified by name.
type TagsTool struct {
	base
}

// NewTagsTool builds the tag dispatcher.
func NewTagsTool(bridge omnibridge.Bridge, cache omnibridge.Cache, cfg omnibridge.Config) *TagsTool {
	return &TagsTool{base{
		entity: "tags",
		kind:   "tag",
		bridge: bridge,
		cache:  cache,
		cfg:    cfg,
		union: schema.NewUnion("tags",
			schema.OpSchema{Operation: "list", Fields: nil},
			schema.OpSchema{Operation: "create", Fields: []schema.Field{
				{Name: "name", Type: schema.String, Required: true, NonEmpty: true},
				{Name: "parent", Type: schema.String},
			}},
			schema.OpSchema{Operation: "rename", Fields: []schema.Field{
				{Name: "name", Type: schema.String, Required: true, NonEmpty: true},
				{Name: "newName", Type: schema.String, Required: true, NonEmpty: true},
			}},
			schema.OpSchema{Operation: "delete", Fields: []schema.Field{
				{Name: "name", Type: schema.String, Required: true, NonEmpty: true},
			}},
			schema.OpSchema{Operation: "nest", Fields: []schema.Field{
				{Name: "name", Type: schema.String, Required: true, NonEmpty: true},
				{Name: "parent", Type: schema.String, Required: true, NonEmpty: true},
			}},
		),
	}}
}

func (t *TagsTool) Description() string {
	return "List and reorganize tags: create, rename, delete, and nest tags under a parent."
}

func (t *TagsTool) Dispatch(ctx context.Context, params map[string]interface{}) respond.Envelope {
	inv, p, failed := t.begin(params)
	if failed != nil {
		return *failed
	}

	switch inv.Operation {
	case "list":
		return t.list(ctx, inv)
	case "create":
		return t.mutate(ctx, inv, "tag.create", map[string]string{
			"name":   script.JSString(stringOf(p, "name")),
			"parent": jsOptionalString(stringOf(p, "parent")),
		}, stringOf(p, "name"))
	case "rename":
		return t.mutate(ctx, inv, "tag.rename", map[string]string{
			"name":    script.JSString(stringOf(p, "name")),
			"newName": script.JSString(stringOf(p, "newName")),
		}, stringOf(p, "name"))
	case "delete":
		return t.mutate(ctx, inv, "tag.delete", map[string]string{
			"name": script.JSString(stringOf(p, "name")),
		}, stringOf(p, "name"))
	case "nest":
		return t.mutate(ctx, inv, "tag.nest", map[string]string{
			"name":   script.JSString(stringOf(p, "name")),
			"parent": script.JSString(stringOf(p, "parent")),
		}, stringOf(p, "name"))
	default:
		return t.fail(inv, omnibridge.NewInvalidOperationError(t.entity, inv.Operation))
	}
}

func (t *TagsTool) list(ctx context.Context, inv *omnibridge.Invocation) respond.Envelope {
	rows, fromCache, bridgeErr := t.cachedRows(ctx, inv, omnibridge.NamespaceTags, "list", func() (string, error) {
		return script.Build("tag.list", nil)
	})
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}
	return t.ok(inv, map[string]interface{}{"tags": rows, "count": len(rows)}, fromCache)
}

// mutate runs a tag mutation template. Task rows embed tag names, so the
// task and analytics namespaces are dropped with the tag aggregates.
func (t *TagsTool) mutate(ctx context.Context, inv *omnibridge.Invocation, template string,
	values map[string]string, name string) respond.Envelope {

	inv.Advance(omnibridge.StageBuild)
	scriptText, err := script.Build(template, values)
	if err != nil {
		return t.fail(inv, omnibridge.NewError(omnibridge.ErrCodeScript, t.opName(inv), err.Error(), err))
	}

	res, bridgeErr := t.execute(ctx, inv, scriptText, name)
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}

	inv.Advance(omnibridge.StageInvalidate)
	t.cache.Invalidate(omnibridge.NamespaceTags, omnibridge.NamespaceTasks, omnibridge.NamespaceAnalytics)

	var data map[string]interface{}
	if err := res.DecodeData(&data); err != nil {
		return t.fail(inv, omnibridge.NewInvalidResultError(t.opName(inv), err))
	}
	return t.ok(inv, data, false)
}
