package bridge

import (
	"strings"
	"testing"

	"omnibridge"
)

func TestDecode_BareValue(t *testing.T) {
	res, err := Decode([]byte(`[{"id":"1"},{"id":"2"}]`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected ok result, got %+v", res)
	}
	var rows []map[string]interface{}
	if err := res.DecodeData(&rows); err != nil {
		t.Fatalf("DecodeData failed: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected 2 rows, got %d", len(rows))
	}
}

func TestDecode_LegacyEnvelope(t *testing.T) {
	res, err := Decode([]byte(`{"success": true, "data": {"folder": {"id": "f1"}}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected ok result, got %+v", res)
	}

	res, err = Decode([]byte(`{"success": false, "error": "folder not found", "details": {"id": "f9"}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.OK() {
		t.Fatal("expected error result")
	}
	if res.Message != "folder not found" {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if res.Details["id"] != "f9" {
		t.Errorf("details not carried through: %v", res.Details)
	}
}

func TestDecode_VersionedEnvelope(t *testing.T) {
	res, err := Decode([]byte(`{"ok": true, "v": "3", "data": {"task": {"id": "t1"}}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !res.OK() {
		t.Fatalf("expected ok result, got %+v", res)
	}

	res, err = Decode([]byte(`{"ok": false, "v": "3", "data": {"message": "boom"}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.OK() || res.Message != "boom" {
		t.Errorf("expected error 'boom', got %+v", res)
	}
}

func TestDecode_VersionedEnvelopeWithEmbeddedError(t *testing.T) {
	// The outer envelope reports ok:true while the payload carries a
	// failure. This must be reported as failure with the inner message.
	res, err := Decode([]byte(`{"ok": true, "v": "3", "data": {"error": true, "message": "X"}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.OK() {
		t.Fatal("embedded error was reported as success")
	}
	if res.Message != "X" {
		t.Errorf("expected message 'X', got %q", res.Message)
	}
}

func TestDecode_MalformedInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "not json", `{"ok": "yes", "v": "3"}`, `{"success": 1}`} {
		_, err := Decode([]byte(raw))
		if err == nil {
			t.Errorf("Decode(%q): expected error, got nil", raw)
			continue
		}
		be, ok := err.(*omnibridge.BridgeError)
		if !ok {
			t.Errorf("Decode(%q): expected *BridgeError, got %T", raw, err)
			continue
		}
		if be.Code != omnibridge.ErrCodeInvalidResult {
			t.Errorf("Decode(%q): expected INVALID_RESULT, got %s", raw, be.Code)
		}
		if !strings.Contains(be.Message, "Invalid result") {
			t.Errorf("Decode(%q): message should be 'Invalid result', got %q", raw, be.Message)
		}
	}
}

func TestDecode_PlainObjectWithoutMarkers(t *testing.T) {
	res, err := Decode([]byte(`{"name": "Groceries"}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !res.OK() {
		t.Fatal("plain object should decode as a bare success value")
	}
}
