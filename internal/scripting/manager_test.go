package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/warband/internal/game/dice"
	"github.com/cory-johannsen/warband/internal/scripting"
)

func newTestManager(t testing.TB, src dice.Source) (*scripting.Manager, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	mgr := scripting.NewManager(dice.NewRoller(src, logger), logger)
	t.Cleanup(mgr.Close)
	return mgr, logs
}

func TestManager_CallHook(t *testing.T) {
	mgr, _ := newTestManager(t, dice.NewFixed(0))
	require.NoError(t, mgr.LoadString(`function add(a, b) return a + b end`, 0))

	assert.True(t, mgr.Loaded())
	assert.Equal(t, lua.LNumber(7), mgr.CallHook("add", lua.LNumber(3), lua.LNumber(4)))
	assert.Equal(t, lua.LNil, mgr.CallHook("missing"))
}

func TestManager_NoScript(t *testing.T) {
	mgr, _ := newTestManager(t, dice.NewFixed(0))
	assert.False(t, mgr.Loaded())
	_, ok := mgr.CallNumber("preparation_time", nil)
	assert.False(t, ok)
}

func TestManager_CallNumber_TableArgument(t *testing.T) {
	mgr, _ := newTestManager(t, dice.NewFixed(0))
	require.NoError(t, mgr.LoadString(`
		function preparation_time(b)
			return b.soldiers * 2 + (b.type == "urban" and 100 or 0)
		end
		function not_a_number() return "soon" end
	`, 0))

	n, ok := mgr.CallNumber("preparation_time", map[string]lua.LValue{
		"soldiers": lua.LNumber(10),
		"type":     lua.LString("urban"),
	})
	require.True(t, ok)
	assert.Equal(t, 120.0, n)

	_, ok = mgr.CallNumber("not_a_number", nil)
	assert.False(t, ok)
}

func TestManager_RuntimeErrorLogsWarn(t *testing.T) {
	mgr, logs := newTestManager(t, dice.NewFixed(0))
	require.NoError(t, mgr.LoadString(`function bad() error("boom") end
		function spin() while true do end end`, 1000))

	assert.Equal(t, lua.LNil, mgr.CallHook("bad"))
	assert.Equal(t, lua.LNil, mgr.CallHook("spin"))
	assert.Len(t, logs.FilterLevelExact(zap.WarnLevel).All(), 2)

	// The VM stays usable after a budget overrun.
	require.NoError(t, mgr.LoadString(`function one() return 1 end`, 1000))
	assert.Equal(t, lua.LNumber(1), mgr.CallHook("one"))
}

func TestManager_LoadErrorsKeepPreviousVM(t *testing.T) {
	mgr, _ := newTestManager(t, dice.NewFixed(0))
	require.NoError(t, mgr.LoadString(`function one() return 1 end`, 0))
	assert.Error(t, mgr.LoadString(`this is not lua`, 0))
	assert.Equal(t, lua.LNumber(1), mgr.CallHook("one"))
}

func TestManager_LoadDirAndFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base = 5`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`function get() return base end`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`ignored`), 0o644))

	mgr, _ := newTestManager(t, dice.NewFixed(0))
	require.NoError(t, mgr.LoadDir(dir, 0))
	assert.Equal(t, lua.LNumber(5), mgr.CallHook("get"))

	require.NoError(t, mgr.LoadFile(filepath.Join(dir, "b.lua"), 0))
	assert.Equal(t, lua.LNil, mgr.CallHook("get"))
	assert.Error(t, mgr.LoadFile(filepath.Join(dir, "missing.lua"), 0))
}

func TestModules_LogAndPercent(t *testing.T) {
	// Fixed(0) rolls 1 on a d100, Fixed(99) rolls 100.
	mgr, logs := newTestManager(t, dice.NewFixed(0))
	require.NoError(t, mgr.LoadString(`
		function go()
			warband.log("hello from lua")
			return warband.percent(50)
		end
	`, 0))
	assert.Equal(t, lua.LTrue, mgr.CallHook("go"))
	assert.NotEmpty(t, logs.FilterMessage("lua").All())

	miss, _ := newTestManager(t, dice.NewFixed(99))
	require.NoError(t, miss.LoadString(`function go() return warband.percent(50) end`, 0))
	assert.Equal(t, lua.LFalse, miss.CallHook("go"))
}
