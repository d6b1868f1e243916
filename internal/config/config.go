// Package config loads the process-wide, lazily-initialised configuration
// snapshot (spec.md §6.4, Design Note "Global mutable state"), grounded on
// the teacher's spf13/viper-backed internal/config stack.
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	coreerrors "github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/errors"
)

// Snapshot is the closed configuration key set of spec.md §6.4. It is built
// once at process start and treated as read-mostly for the process lifetime;
// the only mutable module-level state elsewhere is the Sampling Gate's rate
// buckets and the Playbook Registry's cache, both reset on restart.
type Snapshot struct {
	ChatModel        string
	AutoIntentLayout bool
	EnabledHooks     map[string]bool
	AllowedTemplates map[string]bool
	RateLimit        int
	RateWindow       time.Duration
	UploadsDir       string

	HTTPAddr     string
	MetricsAddr  string
}

var defaultEnabledHooks = []string{"intent_extract", "steward_analyze"}
var defaultAllowedTemplates = []string{"intent_extract", "steward_analyze", "plan_build", "agent_task_dispatch"}

func toSet(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[strings.TrimSpace(v)] = true
	}
	return m
}

// Load builds a Snapshot from the given config file path (optional) plus
// environment variables (MINDSCAPE_<KEY>). chat_model absence is deliberately
// NOT validated here — spec.md §6.4 says its absence is a hard error on the
// first provider call of a turn, not at load time.
func Load(path string) (*Snapshot, error) {
	v := viper.New()
	v.SetEnvPrefix("MINDSCAPE")
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	v.SetDefault("chat_model", "")
	v.SetDefault("auto_intent_layout", false)
	v.SetDefault("enabled_hooks", defaultEnabledHooks)
	v.SetDefault("allowed_templates", defaultAllowedTemplates)
	v.SetDefault("rate_limit", 10)
	v.SetDefault("rate_window_seconds", 60)
	v.SetDefault("uploads_dir", "./uploads")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("metrics_addr", ":9090")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, coreerrors.ConfigError("failed to read config file "+path, err)
		}
	}

	return &Snapshot{
		ChatModel:        v.GetString("chat_model"),
		AutoIntentLayout: v.GetBool("auto_intent_layout"),
		EnabledHooks:     toSet(v.GetStringSlice("enabled_hooks")),
		AllowedTemplates: toSet(v.GetStringSlice("allowed_templates")),
		RateLimit:        v.GetInt("rate_limit"),
		RateWindow:       time.Duration(v.GetInt("rate_window_seconds")) * time.Second,
		UploadsDir:       v.GetString("uploads_dir"),
		HTTPAddr:         v.GetString("http_addr"),
		MetricsAddr:      v.GetString("metrics_addr"),
	}, nil
}

// RequireChatModel is the hard error spec.md §6.4 mandates on the first
// provider call of a turn when chat_model is unset.
func (s *Snapshot) RequireChatModel() (string, error) {
	if strings.TrimSpace(s.ChatModel) == "" {
		return "", coreerrors.ConfigError("chat_model is not configured", nil)
	}
	return s.ChatModel, nil
}

// HookEnabled reports whether a hook type is in the ENABLED_HOOKS allow-set.
func (s *Snapshot) HookEnabled(hookType string) bool {
	return s.EnabledHooks[hookType]
}

// TemplateAllowed reports whether a sampling template is in ALLOWED_TEMPLATES.
func (s *Snapshot) TemplateAllowed(template string) bool {
	return s.AllowedTemplates[template]
}

// process holds the single lazily-initialised snapshot for the process.
var (
	processOnce sync.Once
	processSnap *Snapshot
	processErr  error
)

// Process returns the process-wide snapshot, loading it from path on first
// use (lifecycle = process lifetime, per Design Note "Global mutable state").
func Process(path string) (*Snapshot, error) {
	processOnce.Do(func() {
		processSnap, processErr = Load(path)
	})
	return processSnap, processErr
}
