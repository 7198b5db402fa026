package gosh

import "sync"

// CmdFn is an in-process command. It must perform its work to completion
// synchronously, reading and writing only through the streams the CmdEnv
// provides, and report success or failure via its return value.
type CmdFn func(env *CmdEnv) error

// cmdRegistry is the process-wide command map. Lookup and registration
// are serialized by the mutex; the lock is held only for the duration of
// a single map operation.
type cmdRegistry struct {
	mu   sync.Mutex
	cmds map[string]CmdFn
}

var registry cmdRegistry

// Register makes fn available as the in-process command name.
// Registering a name again overwrites the previous entry. A Cmd that
// already resolved its command name keeps its earlier resolution.
func Register(name string, fn CmdFn) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if registry.cmds == nil {
		registry.cmds = make(map[string]CmdFn)
	}
	registry.cmds[name] = fn
}

func lookupCmd(name string) (CmdFn, bool) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	fn, ok := registry.cmds[name]
	return fn, ok
}
