package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/playbook"
	coreerrors "github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/errors"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
)

// UserPlaybookStore is the subset of a persistence Store that supplies
// user-defined playbook rows (the highest-priority discovery source).
type UserPlaybookStore interface {
	ListUserPlaybooks(ctx context.Context, workspaceID string) ([]playbook.Playbook, error)
}

// PlaybookRegistry discovers Playbooks from three sources — built-in files,
// capability-pack manifests, and user database rows — and resolves code
// collisions with "later source overrides earlier" (built-in < capability
// pack < user), the Open Question resolution spec.md §9 pins down.
//
// It is read-mostly: registrations happen at startup or on explicit user
// action and must complete before a turn's plan-generation step runs
// (spec.md §5 "Shared-resource policy"). A bounded LRU cache keyed by
// (workspace_id, locale) avoids re-merging the three sources on every Get,
// grounded on the teacher's use of hashicorp/golang-lru for read-mostly
// caches.
type PlaybookRegistry struct {
	mu         sync.RWMutex
	builtIn    map[string]playbook.Playbook
	capability map[string]playbook.Playbook
	userStore  UserPlaybookStore

	cache  *lru.Cache[string, []playbook.Playbook]
	logger logging.Logger
}

// NewPlaybookRegistry constructs a registry. builtInDir and capabilityDir
// are scanned for YAML (.yaml/.yml) manifests at construction time; other
// files, including .json, are not loaded. userStore may be
// nil if no user-defined playbooks are supported in this deployment.
func NewPlaybookRegistry(builtInDir, capabilityDir string, userStore UserPlaybookStore) (*PlaybookRegistry, error) {
	cache, err := lru.New[string, []playbook.Playbook](256)
	if err != nil {
		return nil, fmt.Errorf("build playbook cache: %w", err)
	}
	r := &PlaybookRegistry{
		builtIn:    make(map[string]playbook.Playbook),
		capability: make(map[string]playbook.Playbook),
		userStore:  userStore,
		cache:      cache,
		logger:     logging.NewComponentLogger("PlaybookRegistry"),
	}
	if builtInDir != "" {
		if err := r.loadDir(builtInDir, r.builtIn); err != nil {
			return nil, fmt.Errorf("load built-in playbooks: %w", err)
		}
	}
	if capabilityDir != "" {
		if err := r.loadDir(capabilityDir, r.capability); err != nil {
			return nil, fmt.Errorf("load capability-pack playbooks: %w", err)
		}
	}
	return r, nil
}

func (r *PlaybookRegistry) loadDir(dir string, into map[string]playbook.Playbook) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		var pb playbook.Playbook
		if err := yaml.Unmarshal(data, &pb); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if pb.PlaybookCode == "" {
			return fmt.Errorf("%s: missing playbook_code", entry.Name())
		}
		into[pb.PlaybookCode] = pb
	}
	return nil
}

// RegisterBuiltIn and RegisterCapability allow tests/in-process callers to
// seed the registry without touching the filesystem.
func (r *PlaybookRegistry) RegisterBuiltIn(p playbook.Playbook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Source = playbook.SourceBuiltIn
	r.builtIn[p.PlaybookCode] = p
	r.cache.Purge()
}

func (r *PlaybookRegistry) RegisterCapability(p playbook.Playbook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.Source = playbook.SourceCapabilityPack
	r.capability[p.PlaybookCode] = p
	r.cache.Purge()
}

// effectiveSet merges the three sources with later-overrides-earlier
// precedence. There is no field-level merge: the higher-priority definition
// fully replaces the lower one (spec.md §4.D invariant).
func (r *PlaybookRegistry) effectiveSet(ctx context.Context, workspaceID string) ([]playbook.Playbook, error) {
	r.mu.RLock()
	merged := make(map[string]playbook.Playbook, len(r.builtIn)+len(r.capability))
	for code, p := range r.builtIn {
		p.Source = playbook.SourceBuiltIn
		merged[code] = p
	}
	for code, p := range r.capability {
		p.Source = playbook.SourceCapabilityPack
		merged[code] = p
	}
	r.mu.RUnlock()

	if r.userStore != nil {
		userPlaybooks, err := r.userStore.ListUserPlaybooks(ctx, workspaceID)
		if err != nil {
			return nil, err
		}
		for _, p := range userPlaybooks {
			p.Source = playbook.SourceUser
			merged[p.PlaybookCode] = p
		}
	}

	out := make([]playbook.Playbook, 0, len(merged))
	for _, p := range merged {
		out = append(out, p)
	}
	return out, nil
}

func (r *PlaybookRegistry) cacheKey(workspaceID, locale string) string {
	return workspaceID + "|" + locale
}

func (r *PlaybookRegistry) cachedEffectiveSet(ctx context.Context, workspaceID, locale string) ([]playbook.Playbook, error) {
	key := r.cacheKey(workspaceID, locale)
	if cached, ok := r.cache.Get(key); ok {
		return cached, nil
	}
	set, err := r.effectiveSet(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, set)
	return set, nil
}

// List returns the effective playbook metadata for a workspace, optionally
// filtered to a single discovery source.
func (r *PlaybookRegistry) List(ctx context.Context, workspaceID, locale string, source *playbook.Source) ([]playbook.Metadata, error) {
	set, err := r.cachedEffectiveSet(ctx, workspaceID, locale)
	if err != nil {
		return nil, err
	}
	out := make([]playbook.Metadata, 0, len(set))
	for _, p := range set {
		if source != nil && p.Source != *source {
			continue
		}
		out = append(out, p.Metadata)
	}
	return out, nil
}

// Get returns a single Playbook by code from the effective set, or a
// not-found error if not present.
func (r *PlaybookRegistry) Get(ctx context.Context, playbookCode, locale, workspaceID string) (*playbook.Playbook, error) {
	set, err := r.cachedEffectiveSet(ctx, workspaceID, locale)
	if err != nil {
		return nil, err
	}
	for _, p := range set {
		if p.PlaybookCode == playbookCode {
			cp := p
			return &cp, nil
		}
	}
	return nil, coreerrors.NotFoundError("playbook " + playbookCode)
}

// LoadRun resolves a playbook into a Run (the shape the Plan Builder and
// Intent Pipeline consume), or nil if the code is unknown.
func (r *PlaybookRegistry) LoadRun(ctx context.Context, playbookCode, locale, workspaceID string) (*playbook.Run, error) {
	p, err := r.Get(ctx, playbookCode, locale, workspaceID)
	if coreerrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &playbook.Run{Playbook: *p}, nil
}
