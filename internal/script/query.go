package script

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"
)

// Sort orders query results by one field.
type Sort struct {
	Field string
	Desc  bool
}

// Query is the declarative descriptor for read-heavy listing paths. Instead
// of one generic template per call shape, the descriptor is compiled
// directly into a listing script: coarse filters are pushed into the script,
// while FilterExpression (when present) refines the returned rows in-process.
type Query struct {
	Entity           string // "tasks" or "projects"
	Filters          map[string]interface{}
	FilterExpression string
	Sort             Sort
	Limit            int
	Fields           []string
}

// Known coarse filters per entity. Anything else fails compilation: the
// builder never emits a script referencing an unknown property.
var taskFilters = map[string]string{
	"completed": "t.completed()",
	"flagged":   "t.flagged()",
	"available": "(!t.completed() && !t.blocked())",
	"projectId": "(t.containingProject() ? t.containingProject().id() : null)",
	"tag":       "t.tags().map(g => g.name())",
	"dueBefore": "t.dueDate()",
	"dueAfter":  "t.dueDate()",
	"inInbox":   "t.inInbox()",
}

var projectFilters = map[string]string{
	"status":    "statusOf(p)",
	"folder":    "(p.folder() ? p.folder().name() : '')",
	"flagged":   "p.flagged()",
	"reviewDue": "p.nextReviewDate()",
}

// Compile produces the listing script for the descriptor.
func (q Query) Compile() (string, error) {
	if q.FilterExpression != "" {
		if err := ValidateFilterExpression(q.FilterExpression); err != nil {
			return "", fmt.Errorf("invalid filter expression: %w", err)
		}
	}

	switch q.Entity {
	case "tasks":
		return q.compileTasks()
	case "projects":
		return q.compileProjects()
	default:
		return "", fmt.Errorf("query builder does not support entity '%s'", q.Entity)
	}
}

func (q Query) compileTasks() (string, error) {
	conds := make([]string, 0, len(q.Filters))
	for _, name := range sortedKeys(q.Filters) {
		accessor, known := taskFilters[name]
		if !known {
			return "", fmt.Errorf("unknown task filter '%s'", name)
		}
		value, err := JSValue(q.Filters[name])
		if err != nil {
			return "", err
		}
		switch name {
		case "tag":
			conds = append(conds, fmt.Sprintf("%s.indexOf(%s) !== -1", accessor, value))
		case "dueBefore":
			conds = append(conds, fmt.Sprintf("(%s && %s < new Date(%s))", accessor, accessor, value))
		case "dueAfter":
			conds = append(conds, fmt.Sprintf("(%s && %s > new Date(%s))", accessor, accessor, value))
		default:
			conds = append(conds, fmt.Sprintf("%s === %s", accessor, value))
		}
	}
	cond := "true"
	if len(conds) > 0 {
		cond = strings.Join(conds, " && ")
	}

	body := fmt.Sprintf(`
      const rows = [];
      doc.flattenedTasks().forEach(t => {
        if (!(%s)) return;
        rows.push({
          id: t.id(), name: t.name(), completed: t.completed(), flagged: t.flagged(),
          projectId: t.containingProject() ? t.containingProject().id() : null,
          projectName: t.containingProject() ? t.containingProject().name() : null,
          tags: t.tags().map(g => g.name()),
          dueDate: t.dueDate() ? t.dueDate().toISOString() : null,
          deferDate: t.deferDate() ? t.deferDate().toISOString() : null,
          completionDate: t.completionDate() ? t.completionDate().toISOString() : null,
          estimatedMinutes: t.estimatedMinutes() || 0,
          blocked: t.blocked(), nextAction: t.next(),
          available: !t.completed() && !t.blocked()
        });
      });%s%s
      return rows;`, cond, q.sortClause(), q.limitClause())

	return emitV3(body), nil
}

func (q Query) compileProjects() (string, error) {
	conds := make([]string, 0, len(q.Filters))
	for _, name := range sortedKeys(q.Filters) {
		accessor, known := projectFilters[name]
		if !known {
			return "", fmt.Errorf("unknown project filter '%s'", name)
		}
		value, err := JSValue(q.Filters[name])
		if err != nil {
			return "", err
		}
		if name == "reviewDue" {
			conds = append(conds, fmt.Sprintf("(%s && %s <= new Date())", accessor, accessor))
			continue
		}
		conds = append(conds, fmt.Sprintf("%s === %s", accessor, value))
	}
	cond := "true"
	if len(conds) > 0 {
		cond = strings.Join(conds, " && ")
	}

	body := fmt.Sprintf(`
      const statusOf = p => {
        const s = String(p.status());
        if (s.indexOf('done') !== -1) return 'done';
        if (s.indexOf('dropped') !== -1) return 'dropped';
        if (s.indexOf('hold') !== -1) return 'onHold';
        return 'active';
      };
      const rows = [];
      doc.flattenedProjects().forEach(p => {
        if (!(%s)) return;
        const tasks = p.flattenedTasks();
        rows.push({
          id: p.id(), name: p.name(), status: statusOf(p),
          folder: p.folder() ? p.folder().name() : '',
          flagged: p.flagged(), sequential: p.sequential(),
          dueDate: p.dueDate() ? p.dueDate().toISOString() : null,
          deferDate: p.deferDate() ? p.deferDate().toISOString() : null,
          completionDate: p.completionDate() ? p.completionDate().toISOString() : null,
          lastReviewDate: p.lastReviewDate() ? p.lastReviewDate().toISOString() : null,
          nextReviewDate: p.nextReviewDate() ? p.nextReviewDate().toISOString() : null,
          taskCounts: {
            total: tasks.length,
            completed: tasks.filter(t => t.completed()).length,
            available: tasks.filter(t => !t.completed() && !t.blocked()).length
          }
        });
      });%s%s
      return rows;`, cond, q.sortClause(), q.limitClause())

	return emitV3(body), nil
}

func (q Query) sortClause() string {
	if q.Sort.Field == "" {
		return ""
	}
	cmp := fmt.Sprintf("(a, b) => (a[%s] > b[%s] ? 1 : a[%s] < b[%s] ? -1 : 0)",
		JSString(q.Sort.Field), JSString(q.Sort.Field), JSString(q.Sort.Field), JSString(q.Sort.Field))
	if q.Sort.Desc {
		return fmt.Sprintf("\n      rows.sort(%s).reverse();", cmp)
	}
	return fmt.Sprintf("\n      rows.sort(%s);", cmp)
}

func (q Query) limitClause() string {
	if q.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf("\n      rows.splice(%d);", q.Limit)
}

// Key returns a stable cache key for the descriptor.
func (q Query) Key() string {
	var b strings.Builder
	b.WriteString(q.Entity)
	for _, name := range sortedKeys(q.Filters) {
		fmt.Fprintf(&b, "|%s=%v", name, q.Filters[name])
	}
	if q.FilterExpression != "" {
		fmt.Fprintf(&b, "|expr=%s", q.FilterExpression)
	}
	if q.Sort.Field != "" {
		fmt.Fprintf(&b, "|sort=%s,%t", q.Sort.Field, q.Sort.Desc)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&b, "|limit=%d", q.Limit)
	}
	if len(q.Fields) > 0 {
		fmt.Fprintf(&b, "|fields=%s", strings.Join(q.Fields, ","))
	}
	return b.String()
}

// ValidateFilterExpression checks an expression at build time, before any
// script is dispatched.
func ValidateFilterExpression(expr string) error {
	_, err := govaluate.NewEvaluableExpression(expr)
	return err
}

// ApplyFilterExpression evaluates the expression against each row and keeps
// the rows for which it is true. Row fields become expression variables;
// absent fields evaluate as nil. Used both for post-execution refinement
// and for dry-run predictions.
func ApplyFilterExpression(expr string, rows []map[string]interface{}) ([]map[string]interface{}, error) {
	if expr == "" {
		return rows, nil
	}
	eval, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse filter expression: %w", err)
	}

	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		vars := make(map[string]interface{}, len(row))
		for k, v := range row {
			vars[k] = v
		}
		for _, name := range eval.Vars() {
			if _, ok := vars[name]; !ok {
				vars[name] = nil
			}
		}
		result, err := eval.Evaluate(vars)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate filter expression: %w", err)
		}
		if keep, ok := result.(bool); ok && keep {
			out = append(out, row)
		}
	}
	return out, nil
}

// Project reduces each row to the requested field set. An empty field list
// keeps rows intact.
func Project(fields []string, rows []map[string]interface{}) []map[string]interface{} {
	if len(fields) == 0 {
		return rows
	}
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		slim := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			if v, ok := row[f]; ok {
				slim[f] = v
			}
		}
		out = append(out, slim)
	}
	return out
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
