package tools

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"omnibridge"
	"omnibridge/internal/cache"
)

// fakeBridge records every script it receives and replays queued results.
// An empty queue serves an empty listing.
type fakeBridge struct {
	mu      sync.Mutex
	scripts []string
	queue   []omnibridge.Result
	err     error
}

func (f *fakeBridge) Execute(_ context.Context, script string) (omnibridge.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, script)
	if f.err != nil {
		return omnibridge.Result{}, f.err
	}
	if len(f.queue) == 0 {
		return omnibridge.Result{Kind: omnibridge.ResultOK, Data: json.RawMessage("[]")}, nil
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res, nil
}

func (f *fakeBridge) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scripts)
}

func (f *fakeBridge) enqueue(results ...omnibridge.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, results...)
}

func okJSON(t *testing.T, v interface{}) omnibridge.Result {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return omnibridge.Result{Kind: omnibridge.ResultOK, Data: raw}
}

func errResult(msg string) omnibridge.Result {
	return omnibridge.Result{Kind: omnibridge.ResultError, Message: msg}
}

type fixture struct {
	bridge *fakeBridge
	cache  *cache.Manager
	cfg    omnibridge.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := omnibridge.DefaultConfig()
	cfg.BatchWarnSize = 3
	m := cache.NewManager(cfg)
	t.Cleanup(m.Close)
	return &fixture{bridge: &fakeBridge{}, cache: m, cfg: cfg}
}

func TestValidation_MissingOperation(t *testing.T) {
	f := newFixture(t)
	tool := NewFoldersTool(f.bridge, f.cache, f.cfg)

	env := tool.Dispatch(context.Background(), map[string]interface{}{})
	if env.Success || env.Error == nil {
		t.Fatalf("expected error envelope, got %+v", env)
	}
	if env.Error.Code != omnibridge.ErrCodeMissingParameter {
		t.Errorf("expected MISSING_PARAMETER, got %s", env.Error.Code)
	}
	if f.bridge.calls() != 0 {
		t.Error("validation failure must not reach the bridge")
	}
}

func TestValidation_UnknownOperationCarriesHint(t *testing.T) {
	f := newFixture(t)
	tool := NewTagsTool(f.bridge, f.cache, f.cfg)

	env := tool.Dispatch(context.Background(), map[string]interface{}{"operation": "explode"})
	if env.Error == nil || env.Error.Code != omnibridge.ErrCodeInvalidOperation {
		t.Fatalf("expected INVALID_OPERATION, got %+v", env.Error)
	}
	if !strings.Contains(env.Error.Hint, "rename") {
		t.Errorf("hint should enumerate supported operations: %q", env.Error.Hint)
	}
}

func TestValidation_AmbiguousBoolRejected(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "query",
		"flagged":   "maybe",
	})
	if env.Success {
		t.Fatal("ambiguous boolean string must be rejected, not coerced")
	}
	if f.bridge.calls() != 0 {
		t.Error("rejected request must not reach the bridge")
	}
}

func TestFoldersList_ReadThroughCache(t *testing.T) {
	f := newFixture(t)
	tool := NewFoldersTool(f.bridge, f.cache, f.cfg)
	f.bridge.enqueue(okJSON(t, []map[string]interface{}{
		{"id": "f1", "name": "Work", "status": "active"},
	}))

	params := map[string]interface{}{"operation": "list"}
	first := tool.Dispatch(context.Background(), params)
	if !first.Success || first.Metadata.FromCache {
		t.Fatalf("first call should miss the cache: %+v", first.Metadata)
	}

	second := tool.Dispatch(context.Background(), params)
	if !second.Success || !second.Metadata.FromCache {
		t.Fatalf("second call should be served from cache: %+v", second.Metadata)
	}
	if f.bridge.calls() != 1 {
		t.Errorf("expected exactly one bridge call, got %d", f.bridge.calls())
	}
}

func TestFoldersList_MembershipListingBypassesCache(t *testing.T) {
	f := newFixture(t)
	folders := NewFoldersTool(f.bridge, f.cache, f.cfg)
	projects := NewProjectsTool(f.bridge, f.cache, f.cfg)
	ctx := context.Background()

	f.bridge.enqueue(
		okJSON(t, []map[string]interface{}{
			{"id": "f1", "name": "Work", "projects": []string{}},
		}),
		okJSON(t, map[string]interface{}{
			"project": map[string]interface{}{"id": "p1", "name": "Website"},
		}),
		okJSON(t, []map[string]interface{}{
			{"id": "f1", "name": "Work", "projects": []string{"Website"}},
		}),
	)

	params := map[string]interface{}{"operation": "list", "includeProjects": true}
	first := folders.Dispatch(ctx, params)
	if !first.Success || first.Metadata.FromCache {
		t.Fatalf("membership listing must not come from cache: %+v", first.Metadata)
	}

	created := projects.Dispatch(ctx, map[string]interface{}{
		"operation": "create", "name": "Website", "folder": "Work",
	})
	if !created.Success {
		t.Fatalf("project create failed: %+v", created.Error)
	}

	second := folders.Dispatch(ctx, params)
	if !second.Success || second.Metadata.FromCache {
		t.Fatalf("membership listing must stay fresh after a project mutation: %+v", second.Metadata)
	}
	rows := second.Data.(map[string]interface{})["folders"].([]map[string]interface{})
	membership := rows[0]["projects"].([]interface{})
	if len(membership) != 1 || membership[0] != "Website" {
		t.Errorf("listing should reflect the new membership, got %v", membership)
	}
	if f.bridge.calls() != 3 {
		t.Errorf("expected 3 live executions, got %d", f.bridge.calls())
	}
}

func TestFoldersGet_AlwaysFetchesFresh(t *testing.T) {
	f := newFixture(t)
	tool := NewFoldersTool(f.bridge, f.cache, f.cfg)
	listing := []map[string]interface{}{{"id": "f1", "name": "Work", "projects": []string{}}}
	f.bridge.enqueue(okJSON(t, listing), okJSON(t, listing))

	params := map[string]interface{}{"operation": "get", "id": "f1"}
	for i := 0; i < 2; i++ {
		env := tool.Dispatch(context.Background(), params)
		if !env.Success || env.Metadata.FromCache {
			t.Fatalf("get %d should be a live read: %+v", i, env.Metadata)
		}
	}
	if f.bridge.calls() != 2 {
		t.Errorf("every get should hit the bridge, got %d calls", f.bridge.calls())
	}
}

func TestFoldersGet_NotFound(t *testing.T) {
	f := newFixture(t)
	tool := NewFoldersTool(f.bridge, f.cache, f.cfg)
	f.bridge.enqueue(okJSON(t, []map[string]interface{}{
		{"id": "f1", "name": "Work"},
	}))

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "get", "id": "f9",
	})
	if env.Success || env.Error.Code != omnibridge.ErrCodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %+v", env.Error)
	}
	if !strings.Contains(env.Error.Hint, "list") {
		t.Errorf("not-found errors should point at the list operation: %q", env.Error.Hint)
	}
}

func TestFoldersDuplicate_NotImplemented(t *testing.T) {
	f := newFixture(t)
	tool := NewFoldersTool(f.bridge, f.cache, f.cfg)

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "duplicate", "id": "f1",
	})
	if env.Error == nil || env.Error.Code != omnibridge.ErrCodeNotImplemented {
		t.Fatalf("expected NOT_IMPLEMENTED, got %+v", env.Error)
	}
	if f.bridge.calls() != 0 {
		t.Error("unimplemented operations must not reach the bridge")
	}
}

func TestFoldersDelete_InvalidatesHierarchy(t *testing.T) {
	f := newFixture(t)
	tool := NewFoldersTool(f.bridge, f.cache, f.cfg)
	ctx := context.Background()

	f.cache.Set(ctx, omnibridge.NamespaceFolders, "list|projects=false", "stale")
	f.cache.Set(ctx, omnibridge.NamespaceProjects, "some-query", "stale")
	f.cache.Set(ctx, omnibridge.NamespaceTags, "list", "untouched")

	f.bridge.enqueue(okJSON(t, map[string]interface{}{
		"deletedFolder": map[string]interface{}{"id": "f1", "name": "Work"},
	}))
	env := tool.Dispatch(ctx, map[string]interface{}{"operation": "delete", "id": "f1"})
	if !env.Success {
		t.Fatalf("delete failed: %+v", env.Error)
	}

	if _, hit := f.cache.Get(ctx, omnibridge.NamespaceFolders, "list|projects=false"); hit {
		t.Error("folder namespace should be invalidated")
	}
	if _, hit := f.cache.Get(ctx, omnibridge.NamespaceProjects, "some-query"); hit {
		t.Error("project namespace should be invalidated with the hierarchy")
	}
	if _, hit := f.cache.Get(ctx, omnibridge.NamespaceTags, "list"); !hit {
		t.Error("tag namespace should be untouched by a folder delete")
	}
}

func TestFoldersMutation_ScriptNotFoundBecomesNotFound(t *testing.T) {
	f := newFixture(t)
	tool := NewFoldersTool(f.bridge, f.cache, f.cfg)
	f.bridge.enqueue(errResult("folder not found"))

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "delete", "id": "f9",
	})
	if env.Error == nil || env.Error.Code != omnibridge.ErrCodeNotFound {
		t.Fatalf("expected NOT_FOUND from script failure, got %+v", env.Error)
	}
}

func TestFoldersMutation_ScriptFailureGetsOperationCode(t *testing.T) {
	f := newFixture(t)
	tool := NewFoldersTool(f.bridge, f.cache, f.cfg)
	f.bridge.enqueue(errResult("disk full"))

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "create", "name": "Errands",
	})
	if env.Error == nil || env.Error.Code != omnibridge.ErrCodeCreateFailed {
		t.Fatalf("expected CREATE_FAILED, got %+v", env.Error)
	}
}

func TestTasksGet_IDMismatch(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)
	f.bridge.enqueue(okJSON(t, map[string]interface{}{
		"task": map[string]interface{}{"id": "other", "name": "Wrong"},
	}))

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "get", "id": "t1",
	})
	if env.Error == nil || env.Error.Code != omnibridge.ErrCodeIDMismatch {
		t.Fatalf("expected ID_MISMATCH, got %+v", env.Error)
	}
	if env.Error.Details["requested"] != "t1" || env.Error.Details["returned"] != "other" {
		t.Errorf("mismatch details incomplete: %v", env.Error.Details)
	}
}

func TestTasksQuery_ExpressionRefinementAndProjection(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)
	f.bridge.enqueue(okJSON(t, []map[string]interface{}{
		{"id": "a", "name": "long", "flagged": true, "estimatedMinutes": 45},
		{"id": "b", "name": "quick", "flagged": true, "estimatedMinutes": 5},
		{"id": "c", "name": "unflagged", "flagged": false, "estimatedMinutes": 5},
	}))

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation":        "query",
		"filterExpression": "flagged == true && estimatedMinutes < 10",
		"fields":           []interface{}{"id", "name"},
	})
	if !env.Success {
		t.Fatalf("query failed: %+v", env.Error)
	}
	data := env.Data.(map[string]interface{})
	rows := data["tasks"].([]map[string]interface{})
	if len(rows) != 1 || rows[0]["id"] != "b" {
		t.Fatalf("expected exactly task b, got %v", rows)
	}
	if _, present := rows[0]["estimatedMinutes"]; present {
		t.Error("projection should have stripped unrequested fields")
	}
}

func TestTasksCreate_InvalidRecurrenceRejected(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "create",
		"name":      "Water plants",
		"recurrence": map[string]interface{}{
			"unit": "days", "steps": 0, "method": "fixed",
		},
	})
	if env.Success {
		t.Fatal("zero-step recurrence must be rejected")
	}
	if f.bridge.calls() != 0 {
		t.Error("rejected recurrence must not reach the bridge")
	}
}

func TestTasksCreate_RecurrenceReachesScript(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)
	f.bridge.enqueue(okJSON(t, map[string]interface{}{
		"task": map[string]interface{}{"id": "t1", "name": "Water plants"},
	}))

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "create",
		"name":      "Water plants",
		"recurrence": map[string]interface{}{
			"unit": "weeks", "steps": 1, "method": "fixed",
		},
	})
	if !env.Success {
		t.Fatalf("create failed: %+v", env.Error)
	}
	f.bridge.mu.Lock()
	sent := f.bridge.scripts[0]
	f.bridge.mu.Unlock()
	if !strings.Contains(sent, `"unit":"weeks"`) {
		t.Errorf("recurrence rule missing from script: %s", sent)
	}
}

func TestTasksComplete_RipplesIntoDerivedNamespaces(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)
	ctx := context.Background()

	f.cache.Set(ctx, omnibridge.NamespaceTasks, "q", "stale")
	f.cache.Set(ctx, omnibridge.NamespaceAnalytics, "stats|days=7", "stale")
	f.cache.Set(ctx, omnibridge.NamespaceReviews, "due", "stale")
	f.cache.Set(ctx, omnibridge.NamespacePerspectives, "query|name=Flagged", "stale")
	f.cache.Set(ctx, omnibridge.NamespaceFolders, "list|projects=false", "untouched")

	f.bridge.enqueue(okJSON(t, map[string]interface{}{
		"task": map[string]interface{}{"id": "t1", "completed": true},
	}))
	env := tool.Dispatch(ctx, map[string]interface{}{"operation": "complete", "id": "t1"})
	if !env.Success {
		t.Fatalf("complete failed: %+v", env.Error)
	}

	for ns, key := range map[string]string{
		omnibridge.NamespaceTasks:        "q",
		omnibridge.NamespaceAnalytics:    "stats|days=7",
		omnibridge.NamespaceReviews:      "due",
		omnibridge.NamespacePerspectives: "query|name=Flagged",
	} {
		if _, hit := f.cache.Get(ctx, ns, key); hit {
			t.Errorf("namespace %s should be invalidated by complete", ns)
		}
	}
	if _, hit := f.cache.Get(ctx, omnibridge.NamespaceFolders, "list|projects=false"); !hit {
		t.Error("folder namespace should survive a task completion")
	}
}

func TestBatchCreate_DryRunNeverTouchesBridge(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "batch_create",
		"dryRun":    true,
		"items": []interface{}{
			map[string]interface{}{"name": "parent", "tempId": "p1"},
			map[string]interface{}{"name": "child", "parentTempId": "p1"},
		},
	})
	if !env.Success {
		t.Fatalf("dry run failed: %+v", env.Error)
	}
	if f.bridge.calls() != 0 {
		t.Errorf("dry run must not invoke the bridge, saw %d calls", f.bridge.calls())
	}
	data := env.Data.(map[string]interface{})
	if data["dryRun"] != true || data["count"] != 2 {
		t.Errorf("unexpected plan: %v", data)
	}
}

func TestBatchCreate_DuplicateTempID(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "batch_create",
		"items": []interface{}{
			map[string]interface{}{"name": "a", "tempId": "x"},
			map[string]interface{}{"name": "b", "tempId": "x"},
		},
	})
	if env.Success {
		t.Fatal("duplicate temp ids must fail validation")
	}
	if f.bridge.calls() != 0 {
		t.Error("batch validation failure must not reach the bridge")
	}
}

func TestBatchCreate_DanglingParentReference(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "batch_create",
		"items": []interface{}{
			map[string]interface{}{"name": "child", "parentTempId": "nowhere"},
		},
	})
	if env.Success {
		t.Fatal("dangling parent references must fail validation")
	}
}

func TestBatchCreate_PartialSuccess(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)
	f.bridge.enqueue(
		okJSON(t, map[string]interface{}{"task": map[string]interface{}{"id": "t1", "name": "first"}}),
		errResult("something broke"),
	)

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "batch_create",
		"items": []interface{}{
			map[string]interface{}{"name": "first", "tempId": "a"},
			map[string]interface{}{"name": "second", "tempId": "b"},
		},
	})
	if !env.Success {
		t.Fatal("a batch with any landed item reports success")
	}
	data := env.Data.(map[string]interface{})
	if data["succeeded"] != 1 || data["failed"] != 1 {
		t.Errorf("unexpected counts: %v", data)
	}
}

func TestBatchCreate_AllFailed(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)
	f.bridge.enqueue(errResult("boom"), errResult("boom"))

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "batch_create",
		"items": []interface{}{
			map[string]interface{}{"name": "a"},
			map[string]interface{}{"name": "b"},
		},
	})
	if env.Success {
		t.Fatal("an all-failed batch must not report success")
	}
	if env.Error == nil || env.Error.Code != omnibridge.ErrCodeBatchFailed {
		t.Errorf("expected BATCH_FAILED, got %+v", env.Error)
	}
}

func TestBatchCreate_OversizeWarning(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)

	items := make([]interface{}, 0, f.cfg.BatchWarnSize+1)
	for i := 0; i <= f.cfg.BatchWarnSize; i++ {
		items = append(items, map[string]interface{}{"name": "task"})
	}
	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "batch_create",
		"dryRun":    true,
		"items":     items,
	})
	if !env.Success {
		t.Fatalf("dry run failed: %+v", env.Error)
	}
	data := env.Data.(map[string]interface{})
	if _, present := data["warning"]; !present {
		t.Error("oversize batches should carry an advisory warning")
	}
}

func TestBulkDelete_DryRun(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "bulk_delete",
		"ids":       []interface{}{"t1", "t2"},
		"dryRun":    true,
	})
	if !env.Success {
		t.Fatalf("dry run failed: %+v", env.Error)
	}
	if f.bridge.calls() != 0 {
		t.Error("dry run must not invoke the bridge")
	}
}

func TestBulkDelete_PartialSuccess(t *testing.T) {
	f := newFixture(t)
	tool := NewTasksTool(f.bridge, f.cache, f.cfg)
	f.bridge.enqueue(
		okJSON(t, map[string]interface{}{"deletedTask": map[string]interface{}{"id": "t1"}}),
		errResult("task not found"),
	)

	env := tool.Dispatch(context.Background(), map[string]interface{}{
		"operation": "bulk_delete",
		"ids":       []interface{}{"t1", "t9"},
	})
	if !env.Success {
		t.Fatal("partial bulk delete should report success")
	}
	data := env.Data.(map[string]interface{})
	results := data["results"].([]map[string]interface{})
	if len(results) != 2 {
		t.Fatalf("expected per-item results, got %v", results)
	}
	failedEntry := results[1]["error"].(map[string]interface{})
	if failedEntry["code"] != omnibridge.ErrCodeNotFound {
		t.Errorf("per-item failure should keep its code: %v", failedEntry)
	}
}

func TestAnalytics_ProductivityStats(t *testing.T) {
	f := newFixture(t)
	tool := NewAnalyticsTool(f.bridge, f.cache, f.cfg)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	tool.now = func() time.Time { return now }

	f.bridge.enqueue(okJSON(t, []map[string]interface{}{
		{"id": "a", "completed": true, "completionDate": now.Add(-24 * time.Hour).Format(time.RFC3339)},
		{"id": "b", "completed": true, "completionDate": now.Add(-30 * 24 * time.Hour).Format(time.RFC3339)},
		{"id": "c", "completed": false, "flagged": true, "available": true},
		{"id": "d", "completed": false, "dueDate": now.Add(-48 * time.Hour).Format(time.RFC3339)},
	}))

	env := tool.Dispatch(context.Background(), map[string]interface{}{"operation": "productivity_stats"})
	if !env.Success {
		t.Fatalf("stats failed: %+v", env.Error)
	}
	data := env.Data.(map[string]interface{})
	if data["totalTasks"] != 4 || data["completedTasks"] != 2 {
		t.Errorf("unexpected totals: %v", data)
	}
	if data["completedInWindow"] != 1 {
		t.Errorf("window count wrong: %v", data["completedInWindow"])
	}
	if data["overdueTasks"] != 1 || data["flaggedOpen"] != 1 {
		t.Errorf("derived counts wrong: %v", data)
	}

	// Second call is served from the analytics namespace.
	before := f.bridge.calls()
	second := tool.Dispatch(context.Background(), map[string]interface{}{"operation": "productivity_stats"})
	if !second.Metadata.FromCache {
		t.Error("repeat stats call should come from cache")
	}
	if f.bridge.calls() != before {
		t.Error("cached stats must not invoke the bridge")
	}
}

func TestAnalytics_OverdueAnalysis(t *testing.T) {
	f := newFixture(t)
	tool := NewAnalyticsTool(f.bridge, f.cache, f.cfg)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	tool.now = func() time.Time { return now }

	f.bridge.enqueue(okJSON(t, []map[string]interface{}{
		{"id": "a", "completed": false, "projectName": "House",
			"dueDate": now.Add(-72 * time.Hour).Format(time.RFC3339), "tags": []string{"errand"}},
		{"id": "b", "completed": false, "projectName": "House",
			"dueDate": now.Add(-24 * time.Hour).Format(time.RFC3339)},
		{"id": "c", "completed": false,
			"dueDate": now.Add(24 * time.Hour).Format(time.RFC3339)},
	}))

	env := tool.Dispatch(context.Background(), map[string]interface{}{"operation": "overdue_analysis"})
	if !env.Success {
		t.Fatalf("analysis failed: %+v", env.Error)
	}
	data := env.Data.(map[string]interface{})
	if data["overdueTasks"] != 2 {
		t.Errorf("expected 2 overdue tasks, got %v", data["overdueTasks"])
	}
	byProject := data["byProject"].(map[string]int)
	if byProject["House"] != 2 {
		t.Errorf("project grouping wrong: %v", byProject)
	}
	if data["oldestOverdueDays"] != 3 {
		t.Errorf("oldest age wrong: %v", data["oldestOverdueDays"])
	}
}

func TestAnalytics_TaskVelocity(t *testing.T) {
	f := newFixture(t)
	tool := NewAnalyticsTool(f.bridge, f.cache, f.cfg)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	tool.now = func() time.Time { return now }

	f.bridge.enqueue(okJSON(t, []map[string]interface{}{
		{"id": "a", "completed": true, "completionDate": now.Add(-24 * time.Hour).Format(time.RFC3339)},
		{"id": "b", "completed": true, "completionDate": now.Add(-24 * time.Hour).Format(time.RFC3339)},
		{"id": "c", "completed": true, "completionDate": now.Add(-60 * 24 * time.Hour).Format(time.RFC3339)},
	}))

	env := tool.Dispatch(context.Background(), map[string]interface{}{"operation": "task_velocity"})
	if !env.Success {
		t.Fatalf("velocity failed: %+v", env.Error)
	}
	data := env.Data.(map[string]interface{})
	if data["completed"] != 2 {
		t.Errorf("expected 2 completions in window, got %v", data["completed"])
	}
	perDay := data["perDay"].(map[string]int)
	if perDay[now.Add(-24*time.Hour).Format("2006-01-02")] != 2 {
		t.Errorf("per-day grouping wrong: %v", perDay)
	}
}

func TestSetup_RegistersEveryDispatcher(t *testing.T) {
	f := newFixture(t)
	registered := Setup(f.bridge, f.cache, f.cfg)
	if len(registered) != 6 {
		t.Fatalf("expected 6 dispatchers, got %d", len(registered))
	}
	names := make(map[string]bool)
	for _, tool := range registered {
		names[tool.Name()] = true
		if len(tool.Operations()) == 0 {
			t.Errorf("dispatcher %s declares no operations", tool.Name())
		}
	}
	for _, want := range []string{"folders", "projects", "tasks", "tags", "perspectives", "analytics"} {
		if !names[want] {
			t.Errorf("dispatcher %s missing from registry", want)
		}
	}
}
