package permissions

import "context"

// StaticManager serves a fixed grant set and never prompts. Intended for
// development rigs and tests where no operator is present.
type StaticManager struct {
	granted map[string]struct{}
}

// NewStaticManager creates a manager holding exactly the given grants.
func NewStaticManager(granted map[string]struct{}) *StaticManager {
	if granted == nil {
		granted = make(map[string]struct{})
	}
	return &StaticManager{granted: granted}
}

// Check implements Manager.
func (m *StaticManager) Check(key string) (bool, error) {
	_, ok := m.granted[key]
	return ok, nil
}

// Request implements Manager. The grant set is fixed, so ungranted keys
// come back denied.
func (m *StaticManager) Request(ctx context.Context, key string, rationale Rationale) (Result, error) {
	if err := ctx.Err(); err != nil {
		return ResultDenied, err
	}
	if _, ok := m.granted[key]; ok {
		return ResultGranted, nil
	}
	return ResultDenied, nil
}
