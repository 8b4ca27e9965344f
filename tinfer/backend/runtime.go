package backend

import (
	"sync"

	internal "github.com/ZanzyTHEbar/text-inference/tinfer"
)

// Runtime owns the process-wide native backend environment. The underlying
// library wants exactly one initialization per process, so the runtime is
// init-once and torn down at exit; engines take it as an explicit dependency
// instead of triggering library loading as an import side effect.
type Runtime struct {
	mu      sync.Mutex
	active  bool
	initErr error
}

var (
	defaultRuntime *Runtime
	runtimeOnce    sync.Once
)

// DefaultRuntime returns the shared process-wide runtime.
func DefaultRuntime() *Runtime {
	runtimeOnce.Do(func() {
		defaultRuntime = &Runtime{}
	})
	return defaultRuntime
}

// Init brings the backend environment up. Idempotent: repeated calls return
// the first outcome.
func (r *Runtime) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return r.initErr
	}
	r.active = true
	r.initErr = initBackendEnvironment()
	if r.initErr == nil {
		internal.GetLogger().Debug().Msg("backend runtime initialized")
	}
	return r.initErr
}

// Teardown releases the backend environment. Safe to call once at process
// exit; engines must be closed first.
func (r *Runtime) Teardown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active || r.initErr != nil {
		r.active = false
		return nil
	}
	r.active = false
	return teardownBackendEnvironment()
}
