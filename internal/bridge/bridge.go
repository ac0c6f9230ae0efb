package bridge

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"omnibridge"
)

// OSABridge executes scripts through the osascript binary's JavaScript
// automation runtime. It implements the omnibridge.Bridge interface.
//
// Executions are serialized: the external application does not provide
// safe concurrent access to the same document.
type OSABridge struct {
	path    string
	timeout time.Duration
	mutex   sync.Mutex
}

// NewOSABridge creates an execution adapter for the given osascript binary
// and per-script timeout.
func NewOSABridge(path string, timeout time.Duration) *OSABridge {
	if path == "" {
		path = "/usr/bin/osascript"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OSABridge{path: path, timeout: timeout}
}

// Execute runs the script and returns its normalized result. A returned Go
// error means a connectivity or timeout failure; application-level script
// errors are reported through the Result's Kind.
func (b *OSABridge) Execute(ctx context.Context, script string) (omnibridge.Result, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, b.path, "-l", "JavaScript", "-e", script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	if ctx.Err() == context.DeadlineExceeded {
		log.Printf("bridge: script timed out after %s", elapsed)
		return omnibridge.Result{}, omnibridge.NewTimeoutError("bridge",
			errbuilder.WrapIfContextDone(ctx, err))
	}
	if err != nil {
		// The runtime itself failed before producing a result envelope.
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return omnibridge.Result{
				Kind:    omnibridge.ResultError,
				Message: msg,
				Details: map[string]interface{}{"exit_code": exitErr.ExitCode()},
			}, nil
		}
		return omnibridge.Result{}, omnibridge.NewError(omnibridge.ErrCodeScript, "bridge",
			"failed to reach the automation bridge",
			errbuilder.GenericErr("osascript launch failed", err))
	}

	result, decodeErr := Decode(stdout.Bytes())
	if decodeErr != nil {
		return omnibridge.Result{}, decodeErr
	}
	return result, nil
}
