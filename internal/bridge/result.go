// Package bridge hands built automation scripts to the external
// application's scripting bridge and normalizes raw results into the single
// tagged Result type.
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"

	"omnibridge"
)

// Decode normalizes a raw script result. Three historical envelope shapes
// are handled transparently:
//
//  1. bare JSON value
//  2. {success: bool, data?, error?, details?}
//  3. versioned {ok: bool, v: string, data}, where data may itself carry
//     {error: true, message} even when the outer envelope reports ok:true.
//     That case is a failure and must never be reported as success.
//
// Anything unrecognizable produces a deterministic "Invalid result" error
// rather than an ambiguous partial success.
func Decode(raw []byte) (omnibridge.Result, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return omnibridge.Result{}, omnibridge.NewInvalidResultError("bridge",
			fmt.Errorf("empty result"))
	}

	var value interface{}
	if err := json.Unmarshal(trimmed, &value); err != nil {
		return omnibridge.Result{}, omnibridge.NewInvalidResultError("bridge", err)
	}

	obj, isObject := value.(map[string]interface{})
	if !isObject {
		// Bare JSON value (array, string, number, ...): shape 1.
		return okResult(trimmed), nil
	}

	if okRaw, hasOK := obj["ok"]; hasOK {
		if _, hasVersion := obj["v"]; hasVersion {
			okFlag, isBool := okRaw.(bool)
			if !isBool {
				return omnibridge.Result{}, omnibridge.NewInvalidResultError("bridge",
					fmt.Errorf("versioned envelope carries non-boolean ok"))
			}
			return decodeVersioned(okFlag, obj)
		}
	}

	if successRaw, hasSuccess := obj["success"]; hasSuccess {
		successFlag, isBool := successRaw.(bool)
		if !isBool {
			return omnibridge.Result{}, omnibridge.NewInvalidResultError("bridge",
				fmt.Errorf("legacy envelope carries non-boolean success"))
		}
		return decodeLegacy(successFlag, obj)
	}

	// A plain object with no envelope markers is a bare value.
	return okResult(trimmed), nil
}

func decodeVersioned(okFlag bool, obj map[string]interface{}) (omnibridge.Result, error) {
	data := obj["data"]

	if !okFlag {
		msg := messageOf(data)
		if msg == "" {
			msg = stringField(obj, "message")
		}
		if msg == "" {
			msg = "script reported failure"
		}
		return errResult(msg, detailsOf(data)), nil
	}

	// The outer envelope says ok, but the payload may still carry an
	// embedded failure. A violated invariant must not become a success.
	if inner, isObject := data.(map[string]interface{}); isObject {
		if flagged, _ := inner["error"].(bool); flagged {
			msg := stringField(inner, "message")
			if msg == "" {
				msg = "script reported failure"
			}
			return errResult(msg, detailsOf(inner["details"])), nil
		}
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return omnibridge.Result{}, omnibridge.NewInvalidResultError("bridge", err)
	}
	return omnibridge.Result{Kind: omnibridge.ResultOK, Data: payload}, nil
}

func decodeLegacy(successFlag bool, obj map[string]interface{}) (omnibridge.Result, error) {
	if !successFlag {
		msg := stringField(obj, "error")
		if msg == "" {
			msg = "script reported failure"
		}
		return errResult(msg, detailsOf(obj["details"])), nil
	}

	payload, err := json.Marshal(obj["data"])
	if err != nil {
		return omnibridge.Result{}, omnibridge.NewInvalidResultError("bridge", err)
	}
	return omnibridge.Result{Kind: omnibridge.ResultOK, Data: payload}, nil
}

func okResult(raw []byte) omnibridge.Result {
	data := make(json.RawMessage, len(raw))
	copy(data, raw)
	return omnibridge.Result{Kind: omnibridge.ResultOK, Data: data}
}

func errResult(msg string, details map[string]interface{}) omnibridge.Result {
	return omnibridge.Result{Kind: omnibridge.ResultError, Message: msg, Details: details}
}

func messageOf(data interface{}) string {
	if inner, ok := data.(map[string]interface{}); ok {
		return stringField(inner, "message")
	}
	if s, ok := data.(string); ok {
		return s
	}
	return ""
}

func detailsOf(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return nil
}

func stringField(obj map[string]interface{}, key string) string {
	s, _ := obj[key].(string)
	return s
}
