package respond

import "fmt"

// The older response convention nested a typed entity or collection at the
// top level ({"folder": {...}} / {"items": [...], "count": N}) instead of a
// generic data field. New code standardizes on Envelope; these adapters
// exist only for integration boundaries with historical clients and tests.

// LegacyEntity is the old single-entity response shape.
type LegacyEntity struct {
	Success bool                   `json:"success"`
	Kind    string                 `json:"-"`
	Entity  interface{}            `json:"-"`
	Error   string                 `json:"error,omitempty"`
	Meta    map[string]interface{} `json:"metadata,omitempty"`
}

// LegacyCollection is the old multi-entity response shape.
type LegacyCollection struct {
	Success bool                   `json:"success"`
	Items   interface{}            `json:"items"`
	Count   int                    `json:"count"`
	Error   string                 `json:"error,omitempty"`
	Meta    map[string]interface{} `json:"metadata,omitempty"`
}

// ToLegacyEntity converts a current envelope into the old entity convention.
// The entity kind becomes the payload key historical clients expect.
func ToLegacyEntity(env Envelope) map[string]interface{} {
	out := map[string]interface{}{
		"success": env.Success,
		"metadata": map[string]interface{}{
			"operation":   env.Metadata.Operation,
			"duration_ms": env.Metadata.DurationMS,
			"from_cache":  env.Metadata.FromCache,
		},
	}
	if env.Success {
		out[singular(env.Metadata.Entity)] = env.Data
	} else if env.Error != nil {
		out["error"] = env.Error.Message
		out["error_code"] = env.Error.Code
	}
	return out
}

// ToLegacyCollection converts a current envelope into the old collection
// convention. Count is the caller-supplied item total.
func ToLegacyCollection(env Envelope, count int) map[string]interface{} {
	out := map[string]interface{}{
		"success": env.Success,
		"items":   env.Data,
		"count":   count,
		"metadata": map[string]interface{}{
			"operation":   env.Metadata.Operation,
			"duration_ms": env.Metadata.DurationMS,
			"from_cache":  env.Metadata.FromCache,
		},
	}
	if !env.Success && env.Error != nil {
		out["error"] = env.Error.Message
		out["error_code"] = env.Error.Code
	}
	return out
}

// FromLegacy translates an old-convention response map back into an
// Envelope, so historical fixtures remain comparable against new code.
func FromLegacy(entity, operation string, raw map[string]interface{}) Envelope {
	env := Envelope{
		Metadata: Metadata{Entity: entity, Operation: operation},
	}
	success, _ := raw["success"].(bool)
	env.Success = success
	if !success {
		msg, _ := raw["error"].(string)
		code, _ := raw["error_code"].(string)
		if code == "" {
			code = "SCRIPT_ERROR"
		}
		env.Error = &ErrorBody{Code: code, Message: msg}
		return env
	}
	if items, ok := raw["items"]; ok {
		env.Data = items
		return env
	}
	if v, ok := raw[singular(entity)]; ok {
		env.Data = v
		return env
	}
	env.Data = raw
	return env
}

// singular strips the plural namespace name down to the payload key the old
// convention used ("folders" -> "folder").
func singular(entity string) string {
	if len(entity) > 1 && entity[len(entity)-1] == 's' {
		return entity[:len(entity)-1]
	}
	return entity
}

// Describe renders a short human-readable line for logs.
func Describe(env Envelope) string {
	state := "ok"
	if !env.Success {
		state = "error"
		if env.Error != nil {
			state = env.Error.Code
		}
	}
	return fmt.Sprintf("%s.%s %s (%dms, cache=%t)",
		env.Metadata.Entity, env.Metadata.Operation, state,
		env.Metadata.DurationMS, env.Metadata.FromCache)
}
