package tools

import (
	"context"
	"fmt"

	"omnibridge"
	"omnibridge/internal/respond"
	"omnibridge/internal/schema"
	"omnibridge/internal/script"
)

// FoldersTool manages the folder hierarchy.
type FoldersTool struct {
	base
}

// NewFoldersTool builds the folder dispatcher.
func NewFoldersTool(bridge omnibridge.Bridge, cache omnibridge.Cache, cfg omnibridge.Config) *FoldersTool {
	return &FoldersTool{base{
		entity: "folders",
		kind:   "folder",
		bridge: bridge,
		cache:  cache,
		cfg:    cfg,
		union: schema.NewUnion("folders",
			schema.OpSchema{Operation: "list", Fields: []schema.Field{
				{Name: "includeProjects", Type: schema.Bool, Default: false},
			}},
			schema.OpSchema{Operation: "get", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
			}},
			schema.OpSchema{Operation: "create", Fields: []schema.Field{
				{Name: "name", Type: schema.String, Required: true, NonEmpty: true},
				{Name: "parent", Type: schema.String},
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
				{Name: "parent", Type: schema.String},
			}},
			schema.OpSchema{Operation: "set_status", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
				{Name: "status", Type: schema.String, Required: true, Enum: []string{"active", "dropped"}},
			}},
			schema.OpSchema{Operation: "duplicate", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
			}},
		),
	}}
}

func (t *FoldersTool) Description() string {
	return "List, inspect, and reorganize the folder hierarchy: create, rename, move, drop, and delete folders."
}

func (t *FoldersTool) Dispatch(ctx context.Context, params map[string]interface{}) respond.Envelope {
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
		return t.mutate(ctx, inv, "folder.create", map[string]string{
			"name":   script.JSString(stringOf(p, "name")),
			"parent": jsOptionalString(stringOf(p, "parent")),
		}, "")
	case "update":
		updates, err := jsObject(mapOf(p, "updates"))
		if err != nil {
			return t.fail(inv, omnibridge.NewInvalidParameterError(t.opName(inv), "updates", err.Error()))
		}
		return t.mutate(ctx, inv, "folder.update", map[string]string{
			"id":      script.JSString(stringOf(p, "id")),
			"updates": updates,
		}, stringOf(p, "id"))
	case "delete":
		return t.mutate(ctx, inv, "folder.delete", map[string]string{
			"id": script.JSString(stringOf(p, "id")),
		}, stringOf(p, "id"))
	case "move":
		return t.mutate(ctx, inv, "folder.move", map[string]string{
			"id":     script.JSString(stringOf(p, "id")),
			"parent": jsOptionalString(stringOf(p, "parent")),
		}, stringOf(p, "id"))
	case "set_status":
		status := stringOf(p, "status")
		return t.mutate(ctx, inv, "folder.set_status", map[string]string{
			"id":     script.JSString(stringOf(p, "id")),
			"active": fmt.Sprintf("%t", status == "active"),
			"status": script.JSString(status),
		}, stringOf(p, "id"))
	case "duplicate":
		// The automation bridge cannot deep-copy a folder subtree atomically.
		return t.fail(inv, omnibridge.NewNotImplementedError(t.opName(inv),
			"folder duplication is not supported",
			"recreate the folder and move or recreate its contents explicitly"))
	default:
		return t.fail(inv, omnibridge.NewInvalidOperationError(t.entity, inv.Operation))
	}
}

// list serves the bare hierarchy read-through. A listing that embeds live
// project membership bypasses the cache entirely: membership changes on
// every project mutation and none of those invalidate folders.
func (t *FoldersTool) list(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	includeProjects := boolOf(p, "includeProjects")
	build := func() (string, error) {
		return script.Build("folder.list", map[string]string{
			"includeProjects": fmt.Sprintf("%t", includeProjects),
		})
	}

	if includeProjects {
		rows, bridgeErr := t.freshRows(ctx, inv, build)
		if bridgeErr != nil {
			return t.fail(inv, bridgeErr)
		}
		return t.ok(inv, map[string]interface{}{"folders": rows, "count": len(rows)}, false)
	}

	rows, fromCache, bridgeErr := t.cachedRows(ctx, inv, omnibridge.NamespaceFolders, "list|projects=false", build)
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}
	return t.ok(inv, map[string]interface{}{"folders": rows, "count": len(rows)}, fromCache)
}

// get resolves against a freshly fetched full listing, membership included,
// so it never serves from cache.
func (t *FoldersTool) get(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	id := stringOf(p, "id")

	rows, bridgeErr := t.freshRows(ctx, inv, func() (string, error) {
		return script.Build("folder.list", map[string]string{"includeProjects": "true"})
	})
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}

	for _, row := range rows {
		if row["id"] == id {
			return t.ok(inv, row, false)
		}
	}
	return t.fail(inv, omnibridge.NewNotFoundError(t.opName(inv), t.kind, id))
}

// mutate runs a folder mutation template and invalidates the hierarchy
// namespaces. Project listings embed folder names, so they go too.
func (t *FoldersTool) mutate(ctx context.Context, inv *omnibridge.Invocation, template string,
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
	t.cache.Invalidate(omnibridge.NamespaceFolders, omnibridge.NamespaceProjects)

	var data map[string]interface{}
	if err := res.DecodeData(&data); err != nil {
		return t.fail(inv, omnibridge.NewInvalidResultError(t.opName(inv), err))
	}
	return t.ok(inv, data, false)
}
