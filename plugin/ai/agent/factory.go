package agent

import (
	"fmt"
	"sync"

	"github.com/salmanmunirmalik/Digital-Research-Manager-sub009/plugin/ai/router"
)

// Constructor builds a unit from the shared dependencies.
type Constructor func(deps Deps) Agent

// Factory maps task types to execution units. It is safe for concurrent use.
type Factory struct {
	mu           sync.RWMutex
	deps         Deps
	constructors map[router.TaskType]Constructor
	order        []router.TaskType
}

// NewFactory creates a factory with every built-in unit registered.
func NewFactory(deps Deps) *Factory {
	f := &Factory{
		deps:         deps,
		constructors: make(map[router.TaskType]Constructor),
	}
	for _, spec := range builtinUnits() {
		_ = f.Register(spec.taskType, func(deps Deps) Agent {
			return newUnit(spec, deps)
		})
	}
	return f
}

// Register adds a constructor for taskType. Existing registrations are kept.
func (f *Factory) Register(taskType router.TaskType, construct Constructor) error {
	if taskType == "" || construct == nil {
		return fmt.Errorf("task type and constructor are required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.constructors[taskType]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, taskType)
	}
	f.constructors[taskType] = construct
	f.order = append(f.order, taskType)
	return nil
}

// Create builds the unit registered for taskType.
func (f *Factory) Create(taskType router.TaskType) (Agent, error) {
	f.mu.RLock()
	construct, ok := f.constructors[taskType]
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTaskType, taskType)
	}
	return construct(f.deps), nil
}

// ListAvailable returns the registered task types in registration order.
func (f *Factory) ListAvailable() []router.TaskType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]router.TaskType(nil), f.order...)
}

// IsSupported reports whether taskType has a registered unit.
func (f *Factory) IsSupported(taskType router.TaskType) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.constructors[taskType]
	return ok
}
