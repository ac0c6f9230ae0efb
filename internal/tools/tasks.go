package tools

import (
	"context"
	"encoding/json"
	"sort"

	"omnibridge"
	"omnibridge/internal/respond"
	"omnibridge/internal/schema"
	"omnibridge/internal/script"
)

// TasksTool manages tasks: the query path, single mutations, and the batch
// operations in batch.go.
type TasksTool struct {
	base
}

// NewTasksTool builds the task dispatcher.
func NewTasksTool(bridge omnibridge.Bridge, cache omnibridge.Cache, cfg omnibridge.Config) *TasksTool {
	return &TasksTool{base{
		entity: "tasks",
		kind:   "task",
		bridge: bridge,
		cache:  cache,
		cfg:    cfg,
		union: schema.NewUnion("tasks",
			schema.OpSchema{Operation: "query", Fields: []schema.Field{
				{Name: "completed", Type: schema.Bool},
				{Name: "flagged", Type: schema.Bool},
				{Name: "available", Type: schema.Bool},
				{Name: "inInbox", Type: schema.Bool},
				{Name: "projectId", Type: schema.String},
				{Name: "tag", Type: schema.String},
				{Name: "dueBefore", Type: schema.String},
				{Name: "dueAfter", Type: schema.String},
				{Name: "filterExpression", Type: schema.String},
				{Name: "sortBy", Type: schema.String},
				{Name: "sortDesc", Type: schema.Bool, Default: false},
				{Name: "limit", Type: schema.Int, Positive: true},
				{Name: "fields", Type: schema.StringSlice},
			}},
			schema.OpSchema{Operation: "get", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
			}},
			schema.OpSchema{Operation: "create", Fields: []schema.Field{
				{Name: "name", Type: schema.String, Required: true, NonEmpty: true},
				{Name: "note", Type: schema.String},
				{Name: "flagged", Type: schema.Bool},
				{Name: "dueDate", Type: schema.String},
				{Name: "deferDate", Type: schema.String},
				{Name: "projectId", Type: schema.String},
				{Name: "tags", Type: schema.StringSlice},
				{Name: "estimatedMinutes", Type: schema.Int, Positive: true},
				{Name: "recurrence", Type: schema.Object},
			}},
			schema.OpSchema{Operation: "update", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
				{Name: "updates", Type: schema.Object, Required: true, NonEmpty: true},
			}},
			schema.OpSchema{Operation: "complete", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
			}},
			schema.OpSchema{Operation: "delete", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
			}},
			schema.OpSchema{Operation: "move", Fields: []schema.Field{
				{Name: "id", Type: schema.String, Required: true},
				{Name: "projectId", Type: schema.String, Required: true},
			}},
			schema.OpSchema{Operation: "batch_create", Fields: []schema.Field{
				{Name: "items", Type: schema.List, Required: true, NonEmpty: true},
				{Name: "dryRun", Type: schema.Bool, Default: false},
			}},
			schema.OpSchema{Operation: "bulk_delete", Fields: []schema.Field{
				{Name: "ids", Type: schema.StringSlice, Required: true, NonEmpty: true},
				{Name: "dryRun", Type: schema.Bool, Default: false},
			}},
		),
	}}
}

func (t *TasksTool) Description() string {
	return "Query and mutate tasks: filtered listings with expression refinement, single mutations, and batch create/delete."
}

func (t *TasksTool) Dispatch(ctx context.Context, params map[string]interface{}) respond.Envelope {
	inv, p, failed := t.begin(params)
	if failed != nil {
		return *failed
	}

	switch inv.Operation {
	case "query":
		return t.query(ctx, inv, p)
	case "get":
		return t.get(ctx, inv, p)
	case "create":
		return t.create(ctx, inv, p)
	case "update":
		return t.update(ctx, inv, p)
	case "complete":
		return t.mutate(ctx, inv, "task.complete", map[string]string{
			"id": script.JSString(stringOf(p, "id")),
		}, stringOf(p, "id"), omnibridge.TaskChange{
			Fields:         []string{"completed"},
			AffectsToday:   true,
			AffectsOverdue: true,
		})
	case "delete":
		// No field-level detail on what the deleted task touched.
		return t.mutate(ctx, inv, "task.delete", map[string]string{
			"id": script.JSString(stringOf(p, "id")),
		}, stringOf(p, "id"), omnibridge.TaskChange{})
	case "move":
		return t.mutate(ctx, inv, "task.move", map[string]string{
			"id":        script.JSString(stringOf(p, "id")),
			"projectId": script.JSString(stringOf(p, "projectId")),
		}, stringOf(p, "id"), omnibridge.TaskChange{Fields: []string{"projectId"}})
	case "batch_create":
		return t.batchCreate(ctx, inv, p)
	case "bulk_delete":
		return t.bulkDelete(ctx, inv, p)
	default:
		return t.fail(inv, omnibridge.NewInvalidOperationError(t.entity, inv.Operation))
	}
}

func (t *TasksTool) query(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	q := script.Query{
		Entity:           "tasks",
		Filters:          map[string]interface{}{},
		FilterExpression: stringOf(p, "filterExpression"),
		Sort:             script.Sort{Field: stringOf(p, "sortBy"), Desc: boolOf(p, "sortDesc")},
		Limit:            intOf(p, "limit"),
	}
	for _, name := range []string{"completed", "flagged", "available", "inInbox"} {
		if v, present := p[name]; present {
			q.Filters[name] = v
		}
	}
	for _, name := range []string{"projectId", "tag", "dueBefore", "dueAfter"} {
		if v := stringOf(p, name); v != "" {
			q.Filters[name] = v
		}
	}
	if fields, ok := p["fields"].([]string); ok {
		q.Fields = fields
	}

	rows, fromCache, bridgeErr := t.cachedRows(ctx, inv, omnibridge.NamespaceTasks, q.Key(), q.Compile)
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}

	// The expression refines rows after the coarse script filters ran.
	if q.FilterExpression != "" {
		refined, err := script.ApplyFilterExpression(q.FilterExpression, rows)
		if err != nil {
			return t.fail(inv, omnibridge.NewInvalidParameterError(t.opName(inv), "filterExpression", err.Error()))
		}
		rows = refined
	}
	rows = script.Project(q.Fields, rows)

	return t.ok(inv, map[string]interface{}{"tasks": rows, "count": len(rows)}, fromCache)
}

func (t *TasksTool) get(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	id := stringOf(p, "id")

	inv.Advance(omnibridge.StageBuild)
	scriptText, err := script.Build("task.get", map[string]string{"id": script.JSString(id)})
	if err != nil {
		return t.fail(inv, omnibridge.NewError(omnibridge.ErrCodeScript, t.opName(inv), err.Error(), err))
	}

	res, bridgeErr := t.execute(ctx, inv, scriptText, id)
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}

	var payload struct {
		Task map[string]interface{} `json:"task"`
	}
	if err := res.DecodeData(&payload); err != nil || payload.Task == nil {
		return t.fail(inv, omnibridge.NewInvalidResultError(t.opName(inv), err))
	}

	// A lookup that comes back with a different identity is a bridge fault,
	// never something to pass through silently.
	if returned, _ := payload.Task["id"].(string); returned != id {
		return t.fail(inv, omnibridge.NewIDMismatchError(t.opName(inv), id, returned))
	}
	return t.ok(inv, payload.Task, false)
}

func (t *TasksTool) create(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	spec := taskSpec(p)
	if raw, present := p["recurrence"]; present {
		rule, err := recurrenceOf(raw)
		if err != nil {
			return t.fail(inv, omnibridge.NewInvalidParameterError(t.opName(inv), "recurrence", err.Error()))
		}
		spec["recurrence"] = rule
	}
	literal, err := jsObject(spec)
	if err != nil {
		return t.fail(inv, omnibridge.NewInvalidParameterError(t.opName(inv), "spec", err.Error()))
	}
	change := omnibridge.TaskChange{Fields: specFields(spec)}
	if _, ok := spec["tags"]; ok {
		change.TagsTouched = true
	}
	if _, ok := spec["dueDate"]; ok {
		change.DatesTouched = true
		change.AffectsToday = true
		change.AffectsOverdue = true
	}
	if _, ok := spec["recurrence"]; ok {
		change.DatesTouched = true
	}
	return t.mutate(ctx, inv, "task.create", map[string]string{"spec": literal}, "", change)
}

func (t *TasksTool) update(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	updates := mapOf(p, "updates")
	literal, err := jsObject(updates)
	if err != nil {
		return t.fail(inv, omnibridge.NewInvalidParameterError(t.opName(inv), "updates", err.Error()))
	}

	change := omnibridge.TaskChange{Fields: specFields(updates)}
	if _, ok := updates["tags"]; ok {
		change.TagsTouched = true
	}
	for _, name := range []string{"dueDate", "deferDate"} {
		if _, ok := updates[name]; ok {
			change.DatesTouched = true
			change.AffectsToday = true
			change.AffectsOverdue = true
		}
	}

	return t.mutate(ctx, inv, "task.update", map[string]string{
		"id":      script.JSString(stringOf(p, "id")),
		"updates": literal,
	}, stringOf(p, "id"), change)
}

// mutate runs a task mutation template and ripples the change across the
// task-derived namespaces.
func (t *TasksTool) mutate(ctx context.Context, inv *omnibridge.Invocation, template string,
	values map[string]string, id string, change omnibridge.TaskChange) respond.Envelope {

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
	t.cache.InvalidateForTaskChange(change)

	var data map[string]interface{}
	if err := res.DecodeData(&data); err != nil {
		return t.fail(inv, omnibridge.NewInvalidResultError(t.opName(inv), err))
	}
	return t.ok(inv, data, false)
}

// taskSpec assembles the creation payload from normalized parameters.
func taskSpec(p map[string]interface{}) map[string]interface{} {
	spec := map[string]interface{}{"name": stringOf(p, "name")}
	for _, name := range []string{"note", "dueDate", "deferDate", "projectId"} {
		if v := stringOf(p, name); v != "" {
			spec[name] = v
		}
	}
	if v, present := p["flagged"]; present {
		spec["flagged"] = v
	}
	if tags, ok := p["tags"].([]string); ok && len(tags) > 0 {
		spec["tags"] = tags
	}
	if minutes := intOf(p, "estimatedMinutes"); minutes > 0 {
		spec["estimatedMinutes"] = minutes
	}
	return spec
}

// recurrenceOf decodes and validates a recurrence rule parameter.
func recurrenceOf(raw interface{}) (*omnibridge.RecurrenceRule, error) {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var rule omnibridge.RecurrenceRule
	if err := json.Unmarshal(encoded, &rule); err != nil {
		return nil, err
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return &rule, nil
}

func specFields(spec map[string]interface{}) []string {
	fields := make([]string, 0, len(spec))
	for name := range spec {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}
