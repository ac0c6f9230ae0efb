// Package respond builds the uniform success/error envelope wrapped around
// every operation outcome.
package respond

import "time"

// Metadata carries the self-describing envelope fields distinct from payload data.
type Metadata struct {
	Entity     string `json:"entity"`
	Operation  string `json:"operation"`
	DurationMS int64  `json:"duration_ms"`
	FromCache  bool   `json:"from_cache"`
	Timestamp  string `json:"timestamp"`
}

// ErrorBody is the structured error half of an envelope.
type ErrorBody struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Hint    string                 `json:"hint,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Envelope is the single response shape: either Data or Error is set.
type Envelope struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Error    *ErrorBody  `json:"error,omitempty"`
	Metadata Metadata    `json:"metadata"`
}

// coded is implemented by errors carrying a stable machine code. The error
// type itself lives in the root package; asserting an interface here keeps
// the dependency one-directional.
type coded interface {
	ErrorCode() string
	ErrorHint() string
	ErrorDetails() map[string]interface{}
}

func meta(entity, operation string, started time.Time, fromCache bool) Metadata {
	return Metadata{
		Entity:     entity,
		Operation:  operation,
		DurationMS: time.Since(started).Milliseconds(),
		FromCache:  fromCache,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// OK builds a success envelope.
func OK(entity, operation string, data interface{}, started time.Time, fromCache bool) Envelope {
	return Envelope{
		Success:  true,
		Data:     data,
		Metadata: meta(entity, operation, started, fromCache),
	}
}

// Fail builds an error envelope. Errors carrying a stable code keep it;
// anything else is reported under the generic fallback code.
func Fail(entity, operation string, err error, started time.Time) Envelope {
	body := &ErrorBody{
		Code:    "SCRIPT_ERROR",
		Message: err.Error(),
	}
	if c, ok := err.(coded); ok {
		body.Code = c.ErrorCode()
		body.Hint = c.ErrorHint()
		body.Details = c.ErrorDetails()
	}
	return Envelope{
		Success:  false,
		Error:    body,
		Metadata: meta(entity, operation, started, false),
	}
}

// Partial builds an envelope for batch outcomes where some items succeeded
// and some failed. Success reflects whether any item landed, never a
// uniform true or false.
func Partial(entity, operation string, data interface{}, succeeded, failed int, started time.Time) Envelope {
	env := Envelope{
		Success:  succeeded > 0,
		Data:     data,
		Metadata: meta(entity, operation, started, false),
	}
	if failed > 0 && succeeded == 0 {
		env.Error = &ErrorBody{
			Code:    "BATCH_FAILED",
			Message: "every item in the batch failed",
			Details: map[string]interface{}{"failed": failed},
		}
	}
	return env
}
