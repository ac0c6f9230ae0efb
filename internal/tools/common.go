// Package tools implements the per-entity dispatchers: folders, projects,
// tasks, tags, perspectives, and analytics. Each dispatcher validates its
// parameters against a discriminated-union schema, serves reads through the
// namespaced cache, builds and executes automation scripts for the rest,
// and invalidates affected namespaces before responding.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"omnibridge"
	"omnibridge/internal/coerce"
	"omnibridge/internal/respond"
	"omnibridge/internal/schema"
	"omnibridge/internal/script"
)

// base carries the collaborators and schema every dispatcher shares.
type base struct {
	entity string // plural namespace name, e.g. "folders"
	kind   string // singular entity kind, e.g. "folder"
	bridge omnibridge.Bridge
	cache  omnibridge.Cache
	cfg    omnibridge.Config
	union  schema.Union
}

func (b *base) Name() string { return b.entity }

func (b *base) Operations() []string { return b.union.Operations() }

// OperationParameters documents each operation's parameter names for
// clients that only see the tool's outward schema.
func (b *base) OperationParameters() string { return b.union.Describe() }

// begin validates the raw parameters and opens an invocation. The returned
// envelope pointer is non-nil when validation failed.
func (b *base) begin(params map[string]interface{}) (*omnibridge.Invocation, map[string]interface{}, *respond.Envelope) {
	inv := omnibridge.NewInvocation(b.entity, operationOf(params))
	normalized, err := b.union.Validate(params)
	if err != nil {
		env := b.fail(inv, err)
		return nil, nil, &env
	}
	inv.Operation = normalized[b.union.Discriminator].(string)
	return inv, normalized, nil
}

func (b *base) ok(inv *omnibridge.Invocation, data interface{}, fromCache bool) respond.Envelope {
	inv.Advance(omnibridge.StageFormat)
	return respond.OK(inv.Entity, inv.Operation, data, inv.Started, fromCache)
}

func (b *base) fail(inv *omnibridge.Invocation, err error) respond.Envelope {
	if be, ok := err.(*omnibridge.BridgeError); ok {
		err = inv.Fail(be)
	}
	return respond.Fail(inv.Entity, inv.Operation, err, inv.Started)
}

// execute runs a built script. Connectivity failures come back as the
// bridge's own errors; application-level script failures are folded into a
// coded error here. The id is used to shape not-found failures and may be
// empty for listing paths.
func (b *base) execute(ctx context.Context, inv *omnibridge.Invocation, scriptText, id string) (omnibridge.Result, *omnibridge.BridgeError) {
	inv.Advance(omnibridge.StageExecute)
	res, err := b.bridge.Execute(ctx, scriptText)
	if err != nil {
		if be, ok := err.(*omnibridge.BridgeError); ok {
			return res, inv.Fail(be)
		}
		return res, inv.Fail(omnibridge.NewError(omnibridge.ErrCodeScript,
			b.opName(inv), err.Error(), err))
	}
	if !res.OK() {
		return res, inv.Fail(b.scriptFailure(inv, res, id))
	}
	return res, nil
}

func (b *base) scriptFailure(inv *omnibridge.Invocation, res omnibridge.Result, id string) *omnibridge.BridgeError {
	if strings.Contains(strings.ToLower(res.Message), "not found") {
		return omnibridge.NewNotFoundError(b.opName(inv), b.kind, id)
	}
	return omnibridge.NewScriptError(omnibridge.FailureCode(inv.Operation),
		b.opName(inv), res.Message, res.Details)
}

// cachedRows serves a listing read-through: cache hit short-circuits,
// otherwise the built script runs and its rows are stored under the key.
func (b *base) cachedRows(ctx context.Context, inv *omnibridge.Invocation, namespace, key string,
	build func() (string, error)) ([]map[string]interface{}, bool, *omnibridge.BridgeError) {

	inv.Advance(omnibridge.StageCache)
	if cached, hit := b.cache.Get(ctx, namespace, key); hit {
		if rows, ok := cached.([]map[string]interface{}); ok {
			return rows, true, nil
		}
	}

	inv.Advance(omnibridge.StageBuild)
	scriptText, err := build()
	if err != nil {
		return nil, false, inv.Fail(omnibridge.NewError(omnibridge.ErrCodeScript,
			b.opName(inv), err.Error(), err))
	}

	res, bridgeErr := b.execute(ctx, inv, scriptText, "")
	if bridgeErr != nil {
		return nil, false, bridgeErr
	}

	var rows []map[string]interface{}
	if err := res.DecodeData(&rows); err != nil {
		return nil, false, inv.Fail(omnibridge.NewInvalidResultError(b.opName(inv), err))
	}

	b.cache.Set(ctx, namespace, key, rows)
	return rows, false, nil
}

// freshRows runs a listing against the live system, never consulting or
// populating the cache. For reads whose data is too volatile to serve stale,
// such as folder listings that embed live project membership.
func (b *base) freshRows(ctx context.Context, inv *omnibridge.Invocation,
	build func() (string, error)) ([]map[string]interface{}, *omnibridge.BridgeError) {

	inv.Advance(omnibridge.StageBuild)
	scriptText, err := build()
	if err != nil {
		return nil, inv.Fail(omnibridge.NewError(omnibridge.ErrCodeScript,
			b.opName(inv), err.Error(), err))
	}

	res, bridgeErr := b.execute(ctx, inv, scriptText, "")
	if bridgeErr != nil {
		return nil, bridgeErr
	}

	var rows []map[string]interface{}
	if err := res.DecodeData(&rows); err != nil {
		return nil, inv.Fail(omnibridge.NewInvalidResultError(b.opName(inv), err))
	}
	return rows, nil
}

func (b *base) opName(inv *omnibridge.Invocation) string {
	return inv.Entity + "." + inv.Operation
}

// operationOf extracts the discriminator before validation, for invocation
// labeling only. Validation still owns rejection of bad values.
func operationOf(params map[string]interface{}) string {
	if params == nil {
		return ""
	}
	op, err := coerce.String(params["operation"])
	if err != nil {
		return ""
	}
	return op
}

// stringOf reads an optional normalized string field.
func stringOf(params map[string]interface{}, name string) string {
	s, _ := params[name].(string)
	return s
}

// boolOf reads an optional normalized bool field.
func boolOf(params map[string]interface{}, name string) bool {
	v, _ := params[name].(bool)
	return v
}

// intOf reads an optional normalized int field.
func intOf(params map[string]interface{}, name string) int {
	v, _ := params[name].(int)
	return v
}

// mapOf reads an optional normalized object field.
func mapOf(params map[string]interface{}, name string) map[string]interface{} {
	v, _ := params[name].(map[string]interface{})
	return v
}

// jsOptionalString renders a string for script embedding, with "" as null.
func jsOptionalString(s string) string {
	if s == "" {
		return "null"
	}
	return script.JSString(s)
}

// jsObject renders a map as a script object literal.
func jsObject(m map[string]interface{}) (string, error) {
	if m == nil {
		m = map[string]interface{}{}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode object literal: %w", err)
	}
	return string(raw), nil
}
