package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/warband/internal/game/dice"
)

// Manager owns one sandboxed VM and dispatches named hooks into it.
//
// All methods are safe for concurrent use; hook calls are serialized.
type Manager struct {
	mu     sync.Mutex
	L      *lua.LState
	limit  int
	roller *dice.Roller
	logger *zap.Logger
}

// NewManager creates a Manager with no script loaded.
//
// Precondition: roller and logger must be non-nil.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	return &Manager{roller: roller, logger: logger}
}

// LoadFile replaces the VM with a fresh one that has executed path.
//
// Postcondition: on error the previous VM, if any, stays in place.
func (m *Manager) LoadFile(path string, instLimit int) error {
	return m.load(instLimit, func(L *lua.LState) error {
		if err := L.DoFile(path); err != nil {
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
		return nil
	})
}

// LoadDir replaces the VM with a fresh one that has executed every *.lua file
// in dir in lexicographic order.
func (m *Manager) LoadDir(dir string, instLimit int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return m.load(instLimit, func(L *lua.LState) error {
		for _, path := range files {
			if err := L.DoFile(path); err != nil {
				return fmt.Errorf("scripting: loading %q: %w", path, err)
			}
		}
		return nil
	})
}

// LoadString replaces the VM with a fresh one that has executed src.
func (m *Manager) LoadString(src string, instLimit int) error {
	return m.load(instLimit, func(L *lua.LState) error {
		if err := L.DoString(src); err != nil {
			return fmt.Errorf("scripting: loading inline script: %w", err)
		}
		return nil
	})
}

func (m *Manager) load(instLimit int, run func(*lua.LState) error) error {
	L := NewSandboxedState()
	m.RegisterModules(L)
	if err := WithBudget(L, instLimit, func() error { return run(L) }); err != nil {
		L.Close()
		return err
	}

	m.mu.Lock()
	if m.L != nil {
		m.L.Close()
	}
	m.L = L
	m.limit = instLimit
	m.mu.Unlock()
	return nil
}

// Loaded reports whether a script has been loaded.
func (m *Manager) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.L != nil
}

// CallHook calls the named Lua global function. It returns LNil when no
// script is loaded or the hook is undefined. Lua runtime errors, including an
// exhausted budget, are logged at warn and never propagated.
//
// Postcondition: returns the hook's first return value, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) lua.LValue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.call(hook, args...)
}

// CallNumber calls hook with a single table argument built from fields and
// converts the result to a number.
//
// Postcondition: ok is false when the hook is absent, fails or returns a
// non-number.
func (m *Manager) CallNumber(hook string, fields map[string]lua.LValue) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L == nil {
		return 0, false
	}
	tbl := m.L.NewTable()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		tbl.RawSetString(k, fields[k])
	}
	n, ok := m.call(hook, tbl).(lua.LNumber)
	return float64(n), ok
}

func (m *Manager) call(hook string, args ...lua.LValue) lua.LValue {
	if m.L == nil {
		return lua.LNil
	}
	fn := m.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil
	}
	ret := lua.LValue(lua.LNil)
	err := WithBudget(m.L, m.limit, func() error {
		if err := m.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret = m.L.Get(-1)
		m.L.Pop(1)
		return nil
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error", zap.String("hook", hook), zap.Error(err))
		return lua.LNil
	}
	return ret
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}
