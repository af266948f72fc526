package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules installs the warband global table into L:
//
//	warband.log(msg)         debug-level log line
//	warband.percent(chance)  d100 check, true on success
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Debug("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	L.SetField(mod, "percent", L.NewFunction(func(L *lua.LState) int {
		chance := float64(L.CheckNumber(1))
		L.Push(lua.LBool(m.roller.Percent("lua", chance).Success))
		return 1
	}))
	L.SetGlobal("warband", mod)
}
