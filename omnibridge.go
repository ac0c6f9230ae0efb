// Package omnibridge provides the request-routing and response-normalization
// core for a server that exposes a task-management application's data model
// as remotely invokable operations, executed through generated automation
// scripts.
package omnibridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"omnibridge/internal/respond"
)

// Server is the main entry point into the omnibridge runtime. It owns the
// tool registry and the shared collaborators every dispatcher needs.
type Server struct {
	bridge Bridge
	cache  Cache
	tools  map[string]Tool
	config Config

	// The external automation bridge does not provide safe concurrent
	// access to the same document, so dispatch is single-flight.
	dispatchMutex sync.Mutex
}

// Config holds the configuration options for the omnibridge runtime.
type Config struct {
	// Path to the osascript binary used to reach the automation bridge.
	OsascriptPath string `yaml:"osascript_path"`

	// Upper bound on a single script execution.
	ScriptTimeout time.Duration `yaml:"script_timeout"`

	// Per-namespace cache TTLs. Namespaces absent from the map use DefaultTTL.
	CacheTTLs  map[string]time.Duration `yaml:"cache_ttls"`
	DefaultTTL time.Duration            `yaml:"default_ttl"`

	// Interval of the cache's background expiry sweep.
	CacheCleanupInterval time.Duration `yaml:"cache_cleanup_interval"`

	// Batch sizes above this threshold produce a dry-run warning.
	BatchWarnSize int `yaml:"batch_warn_size"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		OsascriptPath: "/usr/bin/osascript",
		ScriptTimeout: 30 * time.Second,
		CacheTTLs: map[string]time.Duration{
			NamespaceFolders:      5 * time.Minute,
			NamespaceProjects:     5 * time.Minute,
			NamespaceTags:         5 * time.Minute,
			NamespaceTasks:        time.Minute,
			NamespaceAnalytics:    time.Minute,
			NamespaceReviews:      time.Minute,
			NamespacePerspectives: 30 * time.Second,
		},
		DefaultTTL:           time.Minute,
		CacheCleanupInterval: 10 * time.Minute,
		BatchWarnSize:        50,
	}
}

// Option is a function that configures a Server instance.
type Option func(*Server)

// WithConfig sets the runtime configuration.
func WithConfig(config Config) Option {
	return func(s *Server) {
		s.config = config
	}
}

// WithBridge sets the execution adapter.
func WithBridge(bridge Bridge) Option {
	return func(s *Server) {
		s.bridge = bridge
	}
}

// WithCache sets the cache manager.
func WithCache(cache Cache) Option {
	return func(s *Server) {
		s.cache = cache
	}
}

// WithTools adds dispatchers to the registry.
func WithTools(tools []Tool) Option {
	return func(s *Server) {
		for _, tool := range tools {
			s.tools[tool.Name()] = tool
		}
	}
}

// New creates a new Server with the provided options.
func New(options ...Option) (*Server, error) {
	s := &Server{
		config: DefaultConfig(),
		tools:  make(map[string]Tool),
	}

	for _, option := range options {
		option(s)
	}

	if s.bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}
	if s.cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if len(s.tools) == 0 {
		return nil, fmt.Errorf("at least one tool is required")
	}

	return s, nil
}

// RegisterTool adds a new dispatcher to the registry.
func (s *Server) RegisterTool(tool Tool) error {
	if _, exists := s.tools[tool.Name()]; exists {
		return fmt.Errorf("tool with name '%s' already exists", tool.Name())
	}
	s.tools[tool.Name()] = tool
	return nil
}

// GetToolByName returns a dispatcher by its name, or an error if not found.
func (s *Server) GetToolByName(name string) (Tool, error) {
	if tool, exists := s.tools[name]; exists {
		return tool, nil
	}
	return nil, fmt.Errorf("tool with name '%s' not found", name)
}

// ListTools returns the names of all registered dispatchers.
func (s *Server) ListTools() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	return names
}

// Dispatch routes one operation request to the named dispatcher and returns
// its envelope. Unknown tools produce an error envelope rather than a Go
// error so the transport layer has exactly one outcome shape to forward.
//
// Dispatch is single-flight: each invocation, including its script
// execution, runs to completion before the next is admitted.
func (s *Server) Dispatch(ctx context.Context, toolName string, params map[string]interface{}) respond.Envelope {
	started := time.Now()

	tool, exists := s.tools[toolName]
	if !exists {
		err := NewInvalidOperationError(toolName, "dispatch")
		err.Message = fmt.Sprintf("no tool registered for entity '%s'", toolName)
		err.Hint = fmt.Sprintf("registered tools: %v", s.ListTools())
		return respond.Fail(toolName, "dispatch", err, started)
	}

	s.dispatchMutex.Lock()
	defer s.dispatchMutex.Unlock()

	return tool.Dispatch(ctx, params)
}

// Bridge returns the configured execution adapter.
func (s *Server) Bridge() Bridge { return s.bridge }

// Cache returns the configured cache manager.
func (s *Server) Cache() Cache { return s.cache }

// Configuration returns the active runtime configuration.
func (s *Server) Configuration() Config { return s.config }
