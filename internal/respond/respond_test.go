package respond

import (
	"testing"
	"time"
)

type codedErr struct {
	code    string
	hint    string
	details map[string]interface{}
	msg     string
}

func (e codedErr) Error() string                        { return e.msg }
func (e codedErr) ErrorCode() string                    { return e.code }
func (e codedErr) ErrorHint() string                    { return e.hint }
func (e codedErr) ErrorDetails() map[string]interface{} { return e.details }

func TestOK(t *testing.T) {
	env := OK("folders", "list", []string{"Work"}, time.Now(), true)
	if !env.Success || env.Error != nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Metadata.Entity != "folders" || env.Metadata.Operation != "list" {
		t.Errorf("metadata not carried: %+v", env.Metadata)
	}
	if !env.Metadata.FromCache {
		t.Error("from_cache flag lost")
	}
}

func TestFail_CodedError(t *testing.T) {
	err := codedErr{
		code:    "NOT_FOUND",
		hint:    "use the folders list operation to discover valid identifiers",
		details: map[string]interface{}{"id": "f9"},
		msg:     "folder not found",
	}
	env := Fail("folders", "get", err, time.Now())
	if env.Success || env.Error == nil {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Error.Code != "NOT_FOUND" {
		t.Errorf("code lost: %s", env.Error.Code)
	}
	if env.Error.Hint == "" || env.Error.Details["id"] != "f9" {
		t.Errorf("hint/details lost: %+v", env.Error)
	}
}

func TestFail_PlainErrorGetsFallbackCode(t *testing.T) {
	env := Fail("tasks", "query", errPlain{}, time.Now())
	if env.Error == nil || env.Error.Code != "SCRIPT_ERROR" {
		t.Errorf("expected fallback SCRIPT_ERROR code, got %+v", env.Error)
	}
}

type errPlain struct{}

func (errPlain) Error() string { return "boom" }

func TestPartial(t *testing.T) {
	env := Partial("tasks", "batch_create", []string{"a", "b"}, 2, 1, time.Now())
	if !env.Success {
		t.Error("partial success should report success when any item landed")
	}
	if env.Error != nil {
		t.Errorf("partial success should not carry an error body: %+v", env.Error)
	}

	env = Partial("tasks", "batch_create", nil, 0, 3, time.Now())
	if env.Success {
		t.Error("all-failed batch should not report success")
	}
	if env.Error == nil || env.Error.Code != "BATCH_FAILED" {
		t.Errorf("expected BATCH_FAILED, got %+v", env.Error)
	}
}

func TestLegacyRoundTrip_Entity(t *testing.T) {
	env := OK("folders", "get", map[string]interface{}{"id": "f1", "name": "Work"}, time.Now(), false)
	legacy := ToLegacyEntity(env)
	if legacy["success"] != true {
		t.Fatalf("legacy success lost: %v", legacy)
	}
	if _, ok := legacy["folder"]; !ok {
		t.Fatalf("legacy entity key missing: %v", legacy)
	}

	back := FromLegacy("folders", "get", legacy)
	if !back.Success {
		t.Error("round-trip lost success")
	}
	if back.Data == nil {
		t.Error("round-trip lost payload")
	}
}

func TestLegacyRoundTrip_ErrorKeepsCode(t *testing.T) {
	env := Fail("folders", "get", codedErr{code: "NOT_FOUND", msg: "folder not found"}, time.Now())
	legacy := ToLegacyEntity(env)
	back := FromLegacy("folders", "get", legacy)
	if back.Success {
		t.Fatal("round-trip invented success")
	}
	if back.Error == nil || back.Error.Code != "NOT_FOUND" {
		t.Errorf("round-trip lost error code: %+v", back.Error)
	}
}

func TestFromLegacy_Collection(t *testing.T) {
	env := FromLegacy("tasks", "query", map[string]interface{}{
		"success": true,
		"items":   []interface{}{"a", "b"},
		"count":   2,
	})
	if !env.Success {
		t.Fatal("collection success lost")
	}
	items, ok := env.Data.([]interface{})
	if !ok || len(items) != 2 {
		t.Errorf("collection payload lost: %v", env.Data)
	}
}
