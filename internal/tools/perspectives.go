package tools

import (
	"context"
	"fmt"

	"omnibridge"
	"omnibridge/internal/respond"
	"omnibridge/internal/schema"
	"omnibridge/internal/script"
)

// PerspectivesTool exposes the application's saved views: listing them and
// reading the rows a view currently contains. Perspectives are read-only
// from this side; their filter rules are owned by the application.
type PerspectivesTool struct {
	base
}

// NewPerspectivesTool builds the perspective dispatcher.
func NewPerspectivesTool(bridge omnibridge.Bridge, cache omnibridge.Cache, cfg omnibridge.Config) *PerspectivesTool {
	return &PerspectivesTool{base{
		entity: "perspectives",
		kind:   "perspective",
		bridge: bridge,
		cache:  cache,
		cfg:    cfg,
		union: schema.NewUnion("perspectives",
			schema.OpSchema{Operation: "list", Fields: nil},
			schema.OpSchema{Operation: "query", Fields: []schema.Field{
				{Name: "name", Type: schema.String, Required: true, NonEmpty: true},
				{Name: "limit", Type: schema.Int, Positive: true},
			}},
		),
	}}
}

func (t *PerspectivesTool) Description() string {
	return "List the application's saved perspectives and read the rows a perspective currently shows."
}

func (t *PerspectivesTool) Dispatch(ctx context.Context, params map[string]interface{}) respond.Envelope {
	inv, p, failed := t.begin(params)
	if failed != nil {
		return *failed
	}

	switch inv.Operation {
	case "list":
		return t.list(ctx, inv)
	case "query":
		return t.query(ctx, inv, p)
	default:
		return t.fail(inv, omnibridge.NewInvalidOperationError(t.entity, inv.Operation))
	}
}

func (t *PerspectivesTool) list(ctx context.Context, inv *omnibridge.Invocation) respond.Envelope {
	rows, fromCache, bridgeErr := t.cachedRows(ctx, inv, omnibridge.NamespacePerspectives, "list", func() (string, error) {
		return script.Build("perspective.list", nil)
	})
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}
	return t.ok(inv, map[string]interface{}{"perspectives": rows, "count": len(rows)}, fromCache)
}

// query reads the rows a perspective shows right now. Results are cached
// under the perspectives namespace with its short TTL: perspective contents
// shift with every task mutation.
func (t *PerspectivesTool) query(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	name := stringOf(p, "name")
	limit := intOf(p, "limit")
	key := fmt.Sprintf("query|name=%s", name)

	rows, fromCache, bridgeErr := t.cachedRows(ctx, inv, omnibridge.NamespacePerspectives, key, func() (string, error) {
		return script.Build("perspective.query", map[string]string{"name": script.JSString(name)})
	})
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return t.ok(inv, map[string]interface{}{
		"perspective": name,
		"rows":        rows,
		"count":       len(rows),
	}, fromCache)
}
