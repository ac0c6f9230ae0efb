package omnibridge

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProjectStatus represents the possible states of a project.
type ProjectStatus string

const (
	// ProjectStatusActive indicates the project is being worked.
	ProjectStatusActive ProjectStatus = "active"
	// ProjectStatusOnHold indicates the project is paused.
	ProjectStatusOnHold ProjectStatus = "onHold"
	// ProjectStatusDone indicates the project is completed.
	ProjectStatusDone ProjectStatus = "done"
	// ProjectStatusDropped indicates the project was abandoned.
	ProjectStatusDropped ProjectStatus = "dropped"
)

// FolderStatus represents the possible states of a folder.
type FolderStatus string

const (
	FolderStatusActive  FolderStatus = "active"
	FolderStatusDropped FolderStatus = "dropped"
)

// RecurrenceMethod defines how the next occurrence of a repeating item is scheduled.
type RecurrenceMethod string

const (
	// RecurrenceFixed repeats on a fixed calendar schedule.
	RecurrenceFixed RecurrenceMethod = "fixed"
	// RecurrenceStartAfterCompletion defers the next occurrence from the completion date.
	RecurrenceStartAfterCompletion RecurrenceMethod = "start-after-completion"
	// RecurrenceDueAfterCompletion makes the next occurrence due relative to completion.
	RecurrenceDueAfterCompletion RecurrenceMethod = "due-after-completion"
	// RecurrenceNone disables repetition while keeping the rule attached.
	RecurrenceNone RecurrenceMethod = "none"
)

// RecurrenceRule describes how a task or project repeats.
type RecurrenceRule struct {
	Unit     string           `json:"unit"` // minutes, hours, days, weeks, months, years
	Steps    int              `json:"steps"`
	Method   RecurrenceMethod `json:"method"`
	Weekdays []string         `json:"weekdays,omitempty"`
	Position string           `json:"position,omitempty"` // e.g. "first", "last" within a month
}

// Validate checks the rule invariants: exactly one method and a positive interval.
func (r *RecurrenceRule) Validate() error {
	switch r.Method {
	case RecurrenceFixed, RecurrenceStartAfterCompletion, RecurrenceDueAfterCompletion, RecurrenceNone:
	case "":
		return fmt.Errorf("recurrence rule requires a method")
	default:
		return fmt.Errorf("invalid recurrence method %q", r.Method)
	}
	if r.Steps <= 0 {
		return fmt.Errorf("recurrence steps must be a positive integer, got %d", r.Steps)
	}
	return nil
}

// Task mirrors a task record held by the external application. The server
// never persists a Task beyond a cache entry's TTL.
type Task struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Note             string          `json:"note,omitempty"`
	Completed        bool            `json:"completed"`
	Flagged          bool            `json:"flagged"`
	ProjectID        string          `json:"projectId,omitempty"`
	ProjectName      string          `json:"projectName,omitempty"`
	Tags             []string        `json:"tags,omitempty"`
	DueDate          *time.Time      `json:"dueDate,omitempty"`
	DeferDate        *time.Time      `json:"deferDate,omitempty"`
	CompletionDate   *time.Time      `json:"completionDate,omitempty"`
	EstimatedMinutes int             `json:"estimatedMinutes,omitempty"`
	Recurrence       *RecurrenceRule `json:"recurrence,omitempty"`

	// Derived flags computed by the external application.
	Blocked    bool `json:"blocked,omitempty"`
	Available  bool `json:"available,omitempty"`
	NextAction bool `json:"nextAction,omitempty"`
}

// TaskCounts aggregates per-project task totals.
type TaskCounts struct {
	Total     int `json:"total"`
	Available int `json:"available"`
	Completed int `json:"completed"`
}

// Project mirrors a project record held by the external application.
type Project struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Status             ProjectStatus   `json:"status"`
	Folder             string          `json:"folder,omitempty"` // name or id of the containing folder
	Flagged            bool            `json:"flagged"`
	Sequential         bool            `json:"sequential"`
	DueDate            *time.Time      `json:"dueDate,omitempty"`
	DeferDate          *time.Time      `json:"deferDate,omitempty"`
	CompletionDate     *time.Time      `json:"completionDate,omitempty"`
	LastReviewDate     *time.Time      `json:"lastReviewDate,omitempty"`
	NextReviewDate     *time.Time      `json:"nextReviewDate,omitempty"`
	ReviewIntervalDays int             `json:"reviewIntervalDays,omitempty"`
	Recurrence         *RecurrenceRule `json:"recurrence,omitempty"`
	TaskCounts         TaskCounts      `json:"taskCounts"`
}

// Folder mirrors a folder record. Depth and Path are hierarchy-derived.
type Folder struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Status   FolderStatus `json:"status"`
	Parent   string       `json:"parent,omitempty"` // name or id; the external app rejects cycles
	Depth    int          `json:"depth,omitempty"`
	Path     string       `json:"path,omitempty"`
	Folders  []string     `json:"folders,omitempty"`  // child folder names
	Projects []string     `json:"projects,omitempty"` // contained project names
}

// Tag mirrors a tag record. Name is the effective identity key.
type Tag struct {
	Name           string   `json:"name"`
	TaskCount      int      `json:"taskCount"`
	AvailableCount int      `json:"availableCount"`
	Parent         string   `json:"parent,omitempty"`
	Children       []string `json:"children,omitempty"`
}

// Perspective mirrors a saved view in the external application. FilterRules
// is an opaque descriptor owned by the application.
type Perspective struct {
	Name        string          `json:"name"`
	BuiltIn     bool            `json:"builtIn"`
	FilterRules json.RawMessage `json:"filterRules,omitempty"`
}

// Cache namespaces. Each corresponds to one entity kind or derived view.
const (
	NamespaceFolders      = "folders"
	NamespaceProjects     = "projects"
	NamespaceTasks        = "tasks"
	NamespaceTags         = "tags"
	NamespacePerspectives = "perspectives"
	NamespaceAnalytics    = "analytics"
	NamespaceReviews      = "reviews"
)

// Namespaces lists every cache namespace in registration order.
func Namespaces() []string {
	return []string{
		NamespaceFolders,
		NamespaceProjects,
		NamespaceTasks,
		NamespaceTags,
		NamespacePerspectives,
		NamespaceAnalytics,
		NamespaceReviews,
	}
}

// TaskChange describes which aspects of a task a mutation touched. It drives
// cross-namespace cache invalidation: task changes ripple into analytics,
// today's agenda, and tag-usage aggregates.
type TaskChange struct {
	Fields         []string `json:"fields,omitempty"`
	TagsTouched    bool     `json:"tagsTouched,omitempty"`
	DatesTouched   bool     `json:"datesTouched,omitempty"`
	AffectsToday   bool     `json:"affectsToday,omitempty"`
	AffectsOverdue bool     `json:"affectsOverdue,omitempty"`
}

// Broad reports whether the change carries no field-level detail, in which
// case invalidation must assume the worst.
func (c TaskChange) Broad() bool {
	return len(c.Fields) == 0 && !c.TagsTouched && !c.DatesTouched && !c.AffectsToday && !c.AffectsOverdue
}

// ResultKind tags a normalized execution result.
type ResultKind string

const (
	// ResultOK indicates the script reported success.
	ResultOK ResultKind = "ok"
	// ResultError indicates the script reported an application-level failure.
	ResultError ResultKind = "error"
)

// Result is the single tagged result type returned by the execution adapter.
// Callers branch on Kind instead of sniffing payload shapes.
type Result struct {
	Kind    ResultKind             `json:"kind"`
	Data    json.RawMessage        `json:"data,omitempty"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// OK reports whether the result represents a success.
func (r Result) OK() bool { return r.Kind == ResultOK }

// DecodeData unmarshals the success payload into v.
func (r Result) DecodeData(v interface{}) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("result carries no data")
	}
	return json.Unmarshal(r.Data, v)
}
