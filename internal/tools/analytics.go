package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"omnibridge"
	"omnibridge/internal/respond"
	"omnibridge/internal/schema"
	"omnibridge/internal/script"
)

// AnalyticsTool derives aggregate views from the raw task data: completion
// stats, throughput over time, and an overdue breakdown. Nothing here
// mutates; results are cached in their own namespace so any task mutation
// drops them.
type AnalyticsTool struct {
	base
	now func() time.Time // injectable clock for tests
}

// NewAnalyticsTool builds the analytics dispatcher.
func NewAnalyticsTool(bridge omnibridge.Bridge, cache omnibridge.Cache, cfg omnibridge.Config) *AnalyticsTool {
	return &AnalyticsTool{
		base: base{
			entity: "analytics",
			kind:   "analysis",
			bridge: bridge,
			cache:  cache,
			cfg:    cfg,
			union: schema.NewUnion("analytics",
				schema.OpSchema{Operation: "productivity_stats", Fields: []schema.Field{
					{Name: "days", Type: schema.Int, Positive: true, Default: 7},
				}},
				schema.OpSchema{Operation: "task_velocity", Fields: []schema.Field{
					{Name: "days", Type: schema.Int, Positive: true, Default: 14},
				}},
				schema.OpSchema{Operation: "overdue_analysis", Fields: nil},
			),
		},
		now: time.Now,
	}
}

func (t *AnalyticsTool) Description() string {
	return "Aggregate task data into productivity stats, completion velocity, and an overdue breakdown."
}

func (t *AnalyticsTool) Dispatch(ctx context.Context, params map[string]interface{}) respond.Envelope {
	inv, p, failed := t.begin(params)
	if failed != nil {
		return *failed
	}

	switch inv.Operation {
	case "productivity_stats":
		return t.productivityStats(ctx, inv, intOf(p, "days"))
	case "task_velocity":
		return t.taskVelocity(ctx, inv, intOf(p, "days"))
	case "overdue_analysis":
		return t.overdueAnalysis(ctx, inv)
	default:
		return t.fail(inv, omnibridge.NewInvalidOperationError(t.entity, inv.Operation))
	}
}

// allTasks loads the full task listing the aggregates are computed from,
// through the tasks namespace.
func (t *AnalyticsTool) allTasks(ctx context.Context, inv *omnibridge.Invocation) ([]map[string]interface{}, *omnibridge.BridgeError) {
	q := script.Query{Entity: "tasks"}
	rows, _, bridgeErr := t.cachedRows(ctx, inv, omnibridge.NamespaceTasks, q.Key(), q.Compile)
	return rows, bridgeErr
}

// cachedAggregate serves a computed view through the analytics namespace.
func (t *AnalyticsTool) cachedAggregate(ctx context.Context, inv *omnibridge.Invocation, key string,
	compute func() (map[string]interface{}, *omnibridge.BridgeError)) respond.Envelope {

	inv.Advance(omnibridge.StageCache)
	if cached, hit := t.cache.Get(ctx, omnibridge.NamespaceAnalytics, key); hit {
		if data, ok := cached.(map[string]interface{}); ok {
			return t.ok(inv, data, true)
		}
	}

	data, bridgeErr := compute()
	if bridgeErr != nil {
		return t.fail(inv, bridgeErr)
	}

	t.cache.Set(ctx, omnibridge.NamespaceAnalytics, key, data)
	return t.ok(inv, data, false)
}

func (t *AnalyticsTool) productivityStats(ctx context.Context, inv *omnibridge.Invocation, days int) respond.Envelope {
	return t.cachedAggregate(ctx, inv, fmt.Sprintf("stats|days=%d", days), func() (map[string]interface{}, *omnibridge.BridgeError) {
		rows, bridgeErr := t.allTasks(ctx, inv)
		if bridgeErr != nil {
			return nil, bridgeErr
		}

		now := t.now()
		cutoff := now.AddDate(0, 0, -days)
		var total, completed, completedInWindow, flagged, available, overdue int

		for _, row := range rows {
			total++
			if rowBool(row, "completed") {
				completed++
				if done, ok := rowTime(row, "completionDate"); ok && done.After(cutoff) {
					completedInWindow++
				}
				continue
			}
			if rowBool(row, "flagged") {
				flagged++
			}
			if rowBool(row, "available") {
				available++
			}
			if due, ok := rowTime(row, "dueDate"); ok && due.Before(now) {
				overdue++
			}
		}

		rate := 0.0
		if total > 0 {
			rate = float64(completed) / float64(total)
		}
		return map[string]interface{}{
			"windowDays":        days,
			"totalTasks":        total,
			"completedTasks":    completed,
			"completedInWindow": completedInWindow,
			"flaggedOpen":       flagged,
			"availableTasks":    available,
			"overdueTasks":      overdue,
			"completionRate":    rate,
		}, nil
	})
}

func (t *AnalyticsTool) taskVelocity(ctx context.Context, inv *omnibridge.Invocation, days int) respond.Envelope {
	return t.cachedAggregate(ctx, inv, fmt.Sprintf("velocity|days=%d", days), func() (map[string]interface{}, *omnibridge.BridgeError) {
		rows, bridgeErr := t.allTasks(ctx, inv)
		if bridgeErr != nil {
			return nil, bridgeErr
		}

		cutoff := t.now().AddDate(0, 0, -days)
		perDay := make(map[string]int)
		total := 0

		for _, row := range rows {
			if !rowBool(row, "completed") {
				continue
			}
			done, ok := rowTime(row, "completionDate")
			if !ok || done.Before(cutoff) {
				continue
			}
			perDay[done.UTC().Format("2006-01-02")]++
			total++
		}

		return map[string]interface{}{
			"windowDays":    days,
			"completed":     total,
			"perDay":        perDay,
			"averagePerDay": float64(total) / float64(days),
		}, nil
	})
}

func (t *AnalyticsTool) overdueAnalysis(ctx context.Context, inv *omnibridge.Invocation) respond.Envelope {
	return t.cachedAggregate(ctx, inv, "overdue", func() (map[string]interface{}, *omnibridge.BridgeError) {
		rows, bridgeErr := t.allTasks(ctx, inv)
		if bridgeErr != nil {
			return nil, bridgeErr
		}

		now := t.now()
		byProject := make(map[string]int)
		byTag := make(map[string]int)
		var oldest time.Time
		var oldestName string
		total := 0

		for _, row := range rows {
			if rowBool(row, "completed") {
				continue
			}
			due, ok := rowTime(row, "dueDate")
			if !ok || !due.Before(now) {
				continue
			}
			total++

			project, _ := row["projectName"].(string)
			if project == "" {
				project = "(inbox)"
			}
			byProject[project]++
			for _, tag := range rowStrings(row, "tags") {
				byTag[tag]++
			}
			if oldest.IsZero() || due.Before(oldest) {
				oldest = due
				oldestName, _ = row["name"].(string)
			}
		}

		data := map[string]interface{}{
			"overdueTasks": total,
			"byProject":    byProject,
			"byTag":        byTag,
		}
		if !oldest.IsZero() {
			data["oldestDueDate"] = oldest.UTC().Format(time.RFC3339)
			data["oldestTask"] = oldestName
			data["oldestOverdueDays"] = int(now.Sub(oldest).Hours() / 24)
		}
		return data, nil
	})
}

func rowBool(row map[string]interface{}, field string) bool {
	v, _ := row[field].(bool)
	return v
}

func rowTime(row map[string]interface{}, field string) (time.Time, bool) {
	s, ok := row[field].(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func rowStrings(row map[string]interface{}, field string) []string {
	switch v := row[field].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		sort.Strings(out)
		return out
	default:
		return nil
	}
}
