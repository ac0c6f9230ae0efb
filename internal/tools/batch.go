package tools

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"omnibridge"
	"omnibridge/internal/coerce"
	"omnibridge/internal/respond"
	"omnibridge/internal/script"
)

// batchItem is one entry of a batch_create request after validation. Items
// reference each other through temporary ids: a parentTempId nests the item
// under the item that declared that tempId.
type batchItem struct {
	TempID       string
	ParentTempID string
	Spec         map[string]interface{}
}

// batchCreate creates many tasks in one request. Items are validated as a
// whole before any script runs; execution is per item with partial-success
// reporting. A dry run returns the execution plan without touching the
// bridge.
func (t *TasksTool) batchCreate(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	rawItems, _ := p["items"].([]interface{})
	dryRun := boolOf(p, "dryRun")

	items, err := t.parseBatchItems(inv, rawItems)
	if err != nil {
		return t.fail(inv, err)
	}

	runID := uuid.New().String()
	var warning string
	if len(items) > t.cfg.BatchWarnSize {
		warning = fmt.Sprintf("batch of %d items exceeds the advisory limit of %d; consider splitting",
			len(items), t.cfg.BatchWarnSize)
	}

	if dryRun {
		plan := make([]map[string]interface{}, 0, len(items))
		for _, item := range items {
			step := map[string]interface{}{"tempId": item.TempID, "name": item.Spec["name"]}
			if item.ParentTempID != "" {
				step["parentTempId"] = item.ParentTempID
			}
			plan = append(plan, step)
		}
		data := map[string]interface{}{
			"runId":  runID,
			"dryRun": true,
			"plan":   plan,
			"count":  len(plan),
		}
		if warning != "" {
			data["warning"] = warning
		}
		return t.ok(inv, data, false)
	}

	createdIDs := make(map[string]string, len(items)) // tempId -> real id
	results := make([]map[string]interface{}, 0, len(items))
	succeeded, failed := 0, 0
	change := omnibridge.TaskChange{Fields: []string{"batch"}}

	for _, item := range items {
		task, itemErr := t.createBatchItem(ctx, inv, item, createdIDs)
		entry := map[string]interface{}{"tempId": item.TempID}
		if itemErr != nil {
			failed++
			entry["success"] = false
			entry["error"] = map[string]interface{}{"code": itemErr.Code, "message": itemErr.Message}
		} else {
			succeeded++
			entry["success"] = true
			entry["task"] = task
			if id, ok := task["id"].(string); ok {
				createdIDs[item.TempID] = id
			}
		}
		results = append(results, entry)

		if _, ok := item.Spec["tags"]; ok {
			change.TagsTouched = true
		}
		if _, ok := item.Spec["dueDate"]; ok {
			change.DatesTouched = true
			change.AffectsToday = true
			change.AffectsOverdue = true
		}
	}

	if succeeded > 0 {
		inv.Advance(omnibridge.StageInvalidate)
		t.cache.InvalidateForTaskChange(change)
	}

	data := map[string]interface{}{
		"runId":     runID,
		"results":   results,
		"succeeded": succeeded,
		"failed":    failed,
	}
	if warning != "" {
		data["warning"] = warning
	}
	inv.Advance(omnibridge.StageFormat)
	return respond.Partial(inv.Entity, inv.Operation, data, succeeded, failed, inv.Started)
}

// parseBatchItems validates the whole batch up front: every item needs a
// name, temp ids must be unique, and parent references must resolve to an
// earlier item. No script runs until the batch is coherent.
func (t *TasksTool) parseBatchItems(inv *omnibridge.Invocation, rawItems []interface{}) ([]batchItem, *omnibridge.BridgeError) {
	opName := t.opName(inv)
	items := make([]batchItem, 0, len(rawItems))
	seen := make(map[string]bool, len(rawItems))

	for i, raw := range rawItems {
		obj, err := coerce.Map(raw)
		if err != nil {
			return nil, omnibridge.NewInvalidParameterError(opName,
				fmt.Sprintf("items[%d]", i), err.Error())
		}
		name, err := coerce.String(obj["name"])
		if err != nil || name == "" {
			return nil, omnibridge.NewMissingParameterError(opName, fmt.Sprintf("items[%d].name", i))
		}

		tempID, _ := obj["tempId"].(string)
		if tempID == "" {
			tempID = uuid.New().String()
		}
		if seen[tempID] {
			return nil, omnibridge.NewInvalidParameterError(opName,
				fmt.Sprintf("items[%d].tempId", i), fmt.Sprintf("duplicate temp id %q", tempID))
		}
		seen[tempID] = true

		parentTempID, _ := obj["parentTempId"].(string)
		if parentTempID != "" && !seen[parentTempID] {
			return nil, omnibridge.NewInvalidParameterError(opName,
				fmt.Sprintf("items[%d].parentTempId", i),
				fmt.Sprintf("reference to %q does not resolve to an earlier item", parentTempID))
		}

		spec := map[string]interface{}{"name": name}
		for _, field := range []string{"note", "dueDate", "deferDate", "projectId"} {
			if v, ok := obj[field].(string); ok && v != "" {
				spec[field] = v
			}
		}
		if v, present := obj["flagged"]; present {
			flagged, err := coerce.Bool(v)
			if err != nil {
				return nil, omnibridge.NewInvalidParameterError(opName,
					fmt.Sprintf("items[%d].flagged", i), err.Error())
			}
			spec["flagged"] = flagged
		}
		if v, present := obj["tags"]; present {
			tags, err := coerce.Strings(v)
			if err != nil {
				return nil, omnibridge.NewInvalidParameterError(opName,
					fmt.Sprintf("items[%d].tags", i), err.Error())
			}
			spec["tags"] = tags
		}

		items = append(items, batchItem{TempID: tempID, ParentTempID: parentTempID, Spec: spec})
	}
	return items, nil
}

func (t *TasksTool) createBatchItem(ctx context.Context, inv *omnibridge.Invocation,
	item batchItem, createdIDs map[string]string) (map[string]interface{}, *omnibridge.BridgeError) {

	literal, err := jsObject(item.Spec)
	if err != nil {
		return nil, omnibridge.NewInvalidParameterError(t.opName(inv), "items", err.Error())
	}

	var scriptText string
	if item.ParentTempID != "" {
		parentID, ok := createdIDs[item.ParentTempID]
		if !ok {
			// The parent item failed; this one cannot be placed.
			return nil, omnibridge.NewError(omnibridge.ErrCodeCreateFailed, t.opName(inv),
				fmt.Sprintf("parent item %q was not created", item.ParentTempID), nil)
		}
		scriptText, err = script.Build("task.create_child", map[string]string{
			"parentId": script.JSString(parentID),
			"spec":     literal,
		})
	} else {
		scriptText, err = script.Build("task.create", map[string]string{"spec": literal})
	}
	if err != nil {
		return nil, omnibridge.NewError(omnibridge.ErrCodeScript, t.opName(inv), err.Error(), err)
	}

	res, bridgeErr := t.execute(ctx, inv, scriptText, "")
	if bridgeErr != nil {
		return nil, bridgeErr
	}

	var payload struct {
		Task map[string]interface{} `json:"task"`
	}
	if err := res.DecodeData(&payload); err != nil || payload.Task == nil {
		return nil, omnibridge.NewInvalidResultError(t.opName(inv), err)
	}
	return payload.Task, nil
}

// bulkDelete removes many tasks with per-item outcomes. A dry run lists the
// ids that would be deleted without touching the bridge.
func (t *TasksTool) bulkDelete(ctx context.Context, inv *omnibridge.Invocation, p map[string]interface{}) respond.Envelope {
	ids, _ := p["ids"].([]string)
	dryRun := boolOf(p, "dryRun")

	if dryRun {
		return t.ok(inv, map[string]interface{}{
			"dryRun": true,
			"ids":    ids,
			"count":  len(ids),
		}, false)
	}

	results := make([]map[string]interface{}, 0, len(ids))
	succeeded, failed := 0, 0

	for _, id := range ids {
		entry := map[string]interface{}{"id": id}
		scriptText, err := script.Build("task.delete", map[string]string{"id": script.JSString(id)})
		if err != nil {
			failed++
			entry["success"] = false
			entry["error"] = map[string]interface{}{"code": omnibridge.ErrCodeScript, "message": err.Error()}
			results = append(results, entry)
			continue
		}

		if _, bridgeErr := t.execute(ctx, inv, scriptText, id); bridgeErr != nil {
			failed++
			entry["success"] = false
			entry["error"] = map[string]interface{}{"code": bridgeErr.Code, "message": bridgeErr.Message}
		} else {
			succeeded++
			entry["success"] = true
		}
		results = append(results, entry)
	}

	if succeeded > 0 {
		inv.Advance(omnibridge.StageInvalidate)
		t.cache.InvalidateForTaskChange(omnibridge.TaskChange{})
	}

	data := map[string]interface{}{
		"results":   results,
		"succeeded": succeeded,
		"failed":    failed,
	}
	inv.Advance(omnibridge.StageFormat)
	return respond.Partial(inv.Entity, inv.Operation, data, succeeded, failed, inv.Started)
}
