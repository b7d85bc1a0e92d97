package broadcaster

import (
	"context"
	"sync"

	"github.com/nearwave/location-agent/pkg/geolocation"
	"github.com/nearwave/location-agent/pkg/permissions"
)

// fakeWatch is one registered watch on the fake provider, with its
// callbacks exposed so tests can script deliveries.
type fakeWatch struct {
	mu       sync.Mutex
	onUpdate func(geolocation.Position)
	onError  func(error)
	stopped  bool
}

func (w *fakeWatch) Stop() {
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
}

func (w *fakeWatch) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

func (w *fakeWatch) deliver(fix geolocation.Position) { w.onUpdate(fix) }
func (w *fakeWatch) fail(err error)                   { w.onError(err) }

// fakeProvider scripts the positioning source. When autoFix is set, each
// new watch delivers it synchronously at registration; when autoErr is
// set, each new watch fails synchronously instead.
type fakeProvider struct {
	mu sync.Mutex

	fix    geolocation.Position
	fixErr error

	registerErr error
	autoFix     *geolocation.Position
	autoErr     error

	watches []*fakeWatch
}

func (p *fakeProvider) CurrentPosition(ctx context.Context, opts geolocation.FixOptions) (geolocation.Position, error) {
	if p.fixErr != nil {
		return geolocation.Position{}, p.fixErr
	}
	return p.fix, nil
}

func (p *fakeProvider) WatchPosition(onUpdate func(geolocation.Position), onError func(error), opts geolocation.WatchOptions) (geolocation.Watch, error) {
	if p.registerErr != nil {
		return nil, p.registerErr
	}

	w := &fakeWatch{onUpdate: onUpdate, onError: onError}
	p.mu.Lock()
	p.watches = append(p.watches, w)
	p.mu.Unlock()

	if p.autoErr != nil {
		onError(p.autoErr)
	} else if p.autoFix != nil {
		onUpdate(*p.autoFix)
	}
	return w, nil
}

func (p *fakeProvider) Close() error { return nil }

func (p *fakeProvider) watchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.watches)
}

func (p *fakeProvider) activeWatches() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	active := 0
	for _, w := range p.watches {
		if !w.isStopped() {
			active++
		}
	}
	return active
}

func (p *fakeProvider) latestWatch() *fakeWatch {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.watches) == 0 {
		return nil
	}
	return p.watches[len(p.watches)-1]
}

// fakePermissions scripts the permission manager and counts prompts.
type fakePermissions struct {
	mu sync.Mutex

	granted  bool
	checkErr error

	requestResult permissions.Result
	requestErr    error

	prompts int
}

func (p *fakePermissions) Check(key string) (bool, error) {
	return p.granted, p.checkErr
}

func (p *fakePermissions) Request(ctx context.Context, key string, rationale permissions.Rationale) (permissions.Result, error) {
	p.mu.Lock()
	p.prompts++
	p.mu.Unlock()

	if p.requestErr != nil {
		return permissions.ResultDenied, p.requestErr
	}
	return p.requestResult, nil
}

func (p *fakePermissions) promptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts
}

// alertRecorder captures user-facing alerts.
type alertRecorder struct {
	mu       sync.Mutex
	messages []string
}

func (r *alertRecorder) Alert(title, message string) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()
}

func (r *alertRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}
