package processor

import (
	"fmt"
	"sync"
)

type namedProcessor struct {
	name string
	proc Processor
}

var (
	registryLock sync.RWMutex
	registered   []namedProcessor
)

// RegisterProcessor registers an additional processor under name. It is
// meant to be called from init functions. Registered processors run, in
// registration order, before the generator when a Config does not name its
// processors. Registering a name twice panics.
func RegisterProcessor(name string, p Processor) {
	if p == nil {
		panic(fmt.Sprintf("processor: nil processor registered as %q", name))
	}
	registryLock.Lock()
	defer registryLock.Unlock()
	for _, np := range registered {
		if np.name == name {
			panic(fmt.Sprintf("processor: %q registered twice", name))
		}
	}
	registered = append(registered, namedProcessor{name: name, proc: p})
}

// AllRegisteredProcessors returns the registered processors in
// registration order.
func AllRegisteredProcessors() []Processor {
	registryLock.RLock()
	defer registryLock.RUnlock()
	procs := make([]Processor, len(registered))
	for i, np := range registered {
		procs[i] = np.proc
	}
	return procs
}

// RegisteredProcessorNames returns the names of the registered processors in
// registration order.
func RegisteredProcessorNames() []string {
	registryLock.RLock()
	defer registryLock.RUnlock()
	names := make([]string, len(registered))
	for i, np := range registered {
		names[i] = np.name
	}
	return names
}
