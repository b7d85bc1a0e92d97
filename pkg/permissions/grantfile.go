package permissions

import (
	"context"
	"fmt"
	"sync"

	"github.com/nearwave/location-agent/pkg/file"
	"github.com/rs/zerolog"
)

// grantStore is the on-disk permission state, one entry per key.
type grantStore struct {
	Grants map[string]Result `yaml:"grants"`
}

// GrantFileManager persists permission state in a YAML grant store and
// asks a Prompter whenever an undecided key is requested. A key marked
// blocked in the store is never prompted for.
type GrantFileManager struct {
	storePath  string
	fileClient file.FileOperations
	prompter   Prompter
	logger     zerolog.Logger

	mu sync.Mutex
}

// NewGrantFileManager creates a manager backed by the grant store at
// storePath. The file may not exist yet; it is created on first grant.
func NewGrantFileManager(storePath string, fileClient file.FileOperations, prompter Prompter, logger zerolog.Logger) *GrantFileManager {
	return &GrantFileManager{
		storePath:  storePath,
		fileClient: fileClient,
		prompter:   prompter,
		logger:     logger,
	}
}

// Check implements Manager.
func (m *GrantFileManager) Check(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, err := m.load()
	if err != nil {
		return false, err
	}
	return store.Grants[key] == ResultGranted, nil
}

// Request implements Manager. Stored terminal states short-circuit the
// prompt; otherwise the operator's answer is persisted and returned.
func (m *GrantFileManager) Request(ctx context.Context, key string, rationale Rationale) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	store, err := m.load()
	if err != nil {
		return ResultDenied, err
	}

	switch store.Grants[key] {
	case ResultGranted:
		return ResultGranted, nil
	case ResultBlocked:
		return ResultBlocked, nil
	}

	granted, err := m.prompter.Prompt(ctx, key, rationale)
	if err != nil {
		return ResultDenied, fmt.Errorf("permission prompt failed: %w", err)
	}

	result := ResultDenied
	if granted {
		result = ResultGranted
	}

	store.Grants[key] = result
	if err := m.fileClient.WriteYamlFile(m.storePath, store); err != nil {
		// The answer still stands for this process; only persistence failed.
		m.logger.Error().Err(err).Str("path", m.storePath).Msg("Failed to persist grant store")
	}

	return result, nil
}

// load reads the grant store, treating a missing file as empty.
func (m *GrantFileManager) load() (*grantStore, error) {
	store := &grantStore{Grants: make(map[string]Result)}

	exists, err := m.fileClient.IsFileExists(m.storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat grant store: %w", err)
	}
	if !exists {
		return store, nil
	}

	if err := m.fileClient.ReadYamlFile(m.storePath, store); err != nil {
		return nil, fmt.Errorf("failed to read grant store: %w", err)
	}
	if store.Grants == nil {
		store.Grants = make(map[string]Result)
	}
	return store, nil
}
