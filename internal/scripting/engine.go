package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tickforge/ecsrt/internal/component"
	"github.com/tickforge/ecsrt/internal/core/ecs"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM that backs Script behaviours.
// Single-goroutine access only (the tick goroutine).
type Engine struct {
	vm    *lua.LState
	log   *zap.Logger
	world *ecs.World
}

// NewEngine creates a Lua engine and loads every .lua file under scriptsDir.
// A missing directory yields an empty engine.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	e.registerAPI()

	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory tree, in lexical order.
func (e *Engine) loadDir(dir string) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".lua" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	sort.Strings(files)
	for _, path := range files {
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source, typically behaviour definitions.
func (e *Engine) LoadString(name, src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return nil
}

// Bind attaches the engine to a World. Script behaviours and the world.*
// Lua API act on the bound World.
func (e *Engine) Bind(w *ecs.World) {
	e.world = w
}

// HasBehaviour reports whether a global behaviour table called name exists.
func (e *Engine) HasBehaviour(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LTable)
	return ok
}

func (e *Engine) registerAPI() {
	api := e.vm.NewTable()
	e.vm.SetFuncs(api, map[string]lua.LGFunction{
		"alive":    e.luaAlive,
		"destroy":  e.luaDestroy,
		"spawn":    e.luaSpawn,
		"position": e.luaPosition,
		"move":     e.luaMove,
		"count":    e.luaCount,
	})
	e.vm.SetGlobal("world", api)
	e.vm.SetGlobal("log", e.vm.NewFunction(e.luaLog))
}

func checkEntity(L *lua.LState, at int) ecs.Entity {
	return ecs.Entity{
		ID:         uint32(L.CheckInt(at)),
		Generation: uint32(L.CheckInt(at + 1)),
	}
}

func (e *Engine) requireWorld(L *lua.LState) *ecs.World {
	if e.world == nil {
		L.RaiseError("scripting engine is not bound to a world")
	}
	return e.world
}

// world.alive(id, gen) -> bool
func (e *Engine) luaAlive(L *lua.LState) int {
	w := e.requireWorld(L)
	L.Push(lua.LBool(w.IsAlive(checkEntity(L, 1))))
	return 1
}

// world.destroy(id, gen [, cause])
func (e *Engine) luaDestroy(L *lua.LState) int {
	w := e.requireWorld(L)
	cause := ecs.CauseScript
	if L.GetTop() >= 3 {
		cause = ecs.ParseCause(L.CheckString(3))
	}
	w.DestroyEntity(checkEntity(L, 1), cause)
	return 0
}

// world.spawn(behaviour [, x, y]) queues an entity running the named
// behaviour, placed at x, y.
func (e *Engine) luaSpawn(L *lua.LState) int {
	w := e.requireWorld(L)
	name := L.CheckString(1)
	x := float64(L.OptNumber(2, 0))
	y := float64(L.OptNumber(3, 0))
	w.EnqueueSpawn(ecs.CauseScript, func(ent ecs.Entity) {
		if _, err := ecs.Add(w, ent, component.Transform{X: x, Y: y}); err != nil {
			e.log.Warn("lua spawn transform", zap.Error(err))
		}
		if _, err := ecs.Add(w, ent, e.NewScript(name)); err != nil {
			e.log.Warn("lua spawn script", zap.Error(err))
		}
	})
	return 0
}

// world.position(id, gen) -> x, y | nil
func (e *Engine) luaPosition(L *lua.LState) int {
	w := e.requireWorld(L)
	tr, ok := ecs.TryGet[component.Transform](w, checkEntity(L, 1))
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(tr.X))
	L.Push(lua.LNumber(tr.Y))
	return 2
}

// world.move(id, gen, x, y) -> bool
func (e *Engine) luaMove(L *lua.LState) int {
	w := e.requireWorld(L)
	tr, ok := ecs.TryGet[component.Transform](w, checkEntity(L, 1))
	if ok {
		tr.X = float64(L.CheckNumber(3))
		tr.Y = float64(L.CheckNumber(4))
	}
	L.Push(lua.LBool(ok))
	return 1
}

// world.count() -> number of live entities
func (e *Engine) luaCount(L *lua.LState) int {
	w := e.requireWorld(L)
	L.Push(lua.LNumber(w.AliveCount()))
	return 1
}

func (e *Engine) luaLog(L *lua.LState) int {
	e.log.Info(L.CheckString(1), zap.String("source", "lua"))
	return 0
}

// call invokes method on the behaviour table name with self and args.
// Missing methods are skipped.
func (e *Engine) call(name, method string, self *lua.LTable, args ...lua.LValue) error {
	def, ok := e.vm.GetGlobal(name).(*lua.LTable)
	if !ok {
		return fmt.Errorf("lua behaviour %q not defined", name)
	}
	fn := def.RawGetString(method)
	if fn == lua.LNil {
		return nil
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, append([]lua.LValue{self}, args...)...); err != nil {
		return fmt.Errorf("lua %s.%s: %w", name, method, err)
	}
	return nil
}

func (e *Engine) newSelf(ent ecs.Entity) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LNumber(ent.ID))
	t.RawSetString("gen", lua.LNumber(ent.Generation))
	t.RawSetString("data", e.vm.NewTable())
	return t
}

// Script is a behaviour whose callbacks live in a Lua table:
//
//	drifter = {
//	  on_start  = function(self) end,
//	  on_update = function(self, dt) end, -- dt in seconds
//	}
type Script struct {
	Name   string
	engine *Engine
	self   *lua.LTable
}

var _ ecs.Behaviour = (*Script)(nil)

// NewScript returns a Script component bound to this engine.
func (e *Engine) NewScript(name string) Script {
	return Script{Name: name, engine: e}
}

func (s *Script) OnStart(_ *ecs.World, ent ecs.Entity) error {
	if s.engine == nil {
		return fmt.Errorf("script %q has no engine", s.Name)
	}
	s.self = s.engine.newSelf(ent)
	return s.engine.call(s.Name, "on_start", s.self)
}

func (s *Script) OnUpdate(_ *ecs.World, ent ecs.Entity, dt time.Duration) error {
	if s.self == nil {
		s.self = s.engine.newSelf(ent)
	}
	return s.engine.call(s.Name, "on_update", s.self, lua.LNumber(dt.Seconds()))
}

// Data returns the value stored under key in the script's self.data table.
func (s *Script) Data(key string) lua.LValue {
	if s.self == nil {
		return lua.LNil
	}
	data, ok := s.self.RawGetString("data").(*lua.LTable)
	if !ok {
		return lua.LNil
	}
	return data.RawGetString(key)
}

func (e *Engine) Close() {
	e.vm.Close()
}
