// SPDX-License-Identifier: MPL-2.0

package plug

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"classkit-cli/internal/config"
	"classkit-cli/internal/forge"
	"classkit-cli/internal/results"

	lua "github.com/yuin/gopher-lua"
)

// luaHookNames maps the snake_case global function names a Lua plugin may
// define to the hook each one implements. File plugins support a
// documented subset of the hook table: the string-valued naming hook, the
// repo task hooks, and the config hook.
var luaHookNames = map[string]string{
	"generate_repo_name": HookGenerateRepoName,
	"pre_setup":          HookPreSetup,
	"post_clone":         HookPostClone,
	"config_hook":        HookConfig,
}

// LuaPlugin is a standalone plugin loaded from a Lua file. Its module
// identity is "<sha1-hex-of-abs-path>.<stem>", so two files with the same
// stem in different directories never collide. The interpreter state is
// single-threaded, matching the engine's sequential dispatch model.
type LuaPlugin struct {
	name   string // file stem; also the plugin's config section
	module string
	path   string
	state  *lua.LState
	fns    map[string]lua.LValue // hook name -> Lua function
}

// LoadLuaFile loads a Lua plugin file and scans its globals for supported
// hook functions.
func LoadLuaFile(path string) (*LuaPlugin, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve plugin path %q: %w", path, err)
	}

	sum := sha1.Sum([]byte(abs))
	stem := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))

	p := &LuaPlugin{
		name:   stem,
		module: hex.EncodeToString(sum[:]) + "." + stem,
		path:   abs,
		state:  lua.NewState(),
		fns:    map[string]lua.LValue{},
	}

	if err := p.state.DoFile(abs); err != nil {
		p.state.Close()
		return nil, fmt.Errorf("load plugin file %s: %w", path, err)
	}

	for global, hook := range luaHookNames {
		if fn := p.state.GetGlobal(global); fn.Type() == lua.LTFunction {
			p.fns[hook] = fn
		}
	}
	return p, nil
}

// Name returns the plugin's unqualified name (the file stem).
func (p *LuaPlugin) Name() string { return p.name }

// ModuleName returns the hash-derived module identity.
func (p *LuaPlugin) ModuleName() string { return p.module }

// Path returns the absolute path of the plugin file.
func (p *LuaPlugin) Path() string { return p.path }

// Close releases the interpreter state.
func (p *LuaPlugin) Close() { p.state.Close() }

// Hooks bridges the discovered Lua functions into Go hook implementations
// with the signatures the specification table declares.
func (p *LuaPlugin) Hooks() map[string]any {
	out := map[string]any{}

	if fn, ok := p.fns[HookGenerateRepoName]; ok {
		// A nil Lua return means the plugin declines, so the bridge hands
		// the dispatcher a nil pointer instead of the string zero value;
		// otherwise a declining file plugin would shadow every later
		// implementation with "".
		out[HookGenerateRepoName] = func(team, assignment string) (*string, error) {
			ret, err := p.call(fn, 1, lua.LString(team), lua.LString(assignment))
			if err != nil {
				return nil, err
			}
			if ret == lua.LNil {
				return nil, nil
			}
			name := lua.LVAsString(ret)
			return &name, nil
		}
	}

	if fn, ok := p.fns[HookPreSetup]; ok {
		out[HookPreSetup] = func(repo forge.TemplateRepo, _ forge.API) (*results.Result, error) {
			tbl := p.state.NewTable()
			tbl.RawSetString("name", lua.LString(repo.Name))
			tbl.RawSetString("url", lua.LString(repo.URL))
			ret, err := p.call(fn, 1, tbl)
			if err != nil {
				return nil, err
			}
			return p.toResult(ret)
		}
	}

	if fn, ok := p.fns[HookPostClone]; ok {
		out[HookPostClone] = func(repo forge.StudentRepo, _ forge.API) (*results.Result, error) {
			tbl := p.state.NewTable()
			tbl.RawSetString("name", lua.LString(repo.Name))
			tbl.RawSetString("url", lua.LString(repo.URL))
			tbl.RawSetString("team", lua.LString(repo.Team.Name))
			ret, err := p.call(fn, 1, tbl)
			if err != nil {
				return nil, err
			}
			return p.toResult(ret)
		}
	}

	if fn, ok := p.fns[HookConfig]; ok {
		out[HookConfig] = func(store *config.Store) error {
			lookup := p.state.NewFunction(func(L *lua.LState) int {
				section := L.CheckString(1)
				key := L.CheckString(2)
				if v, ok := store.Get(section, key); ok {
					L.Push(lua.LString(v))
				} else {
					L.Push(lua.LNil)
				}
				return 1
			})
			_, err := p.call(fn, 0, lookup)
			return err
		}
	}

	return out
}

// call invokes a Lua function in protected mode and pops up to one return
// value.
func (p *LuaPlugin) call(fn lua.LValue, nret int, args ...lua.LValue) (lua.LValue, error) {
	if err := p.state.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		return lua.LNil, fmt.Errorf("plugin %s: %w", p.module, err)
	}
	if nret == 0 {
		return lua.LNil, nil
	}
	ret := p.state.Get(-1)
	p.state.Pop(1)
	return ret, nil
}

// toResult converts a Lua return value into a task result. Nil means "no
// result"; a table may carry status ("success", "warning", "error") and
// msg fields.
func (p *LuaPlugin) toResult(ret lua.LValue) (*results.Result, error) {
	if ret == lua.LNil {
		return nil, nil
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("plugin %s: hook returned %s, want a table", p.module, ret.Type())
	}

	status := results.StatusSuccess
	if s := tbl.RawGetString("status"); s != lua.LNil {
		switch results.Status(lua.LVAsString(s)) {
		case results.StatusSuccess, results.StatusWarning, results.StatusError:
			status = results.Status(lua.LVAsString(s))
		default:
			return nil, fmt.Errorf("plugin %s: invalid result status %q", p.module, lua.LVAsString(s))
		}
	}

	msg := ""
	if m := tbl.RawGetString("msg"); m != lua.LNil {
		msg = lua.LVAsString(m)
	}
	return &results.Result{Name: p.name, Status: status, Msg: msg}, nil
}
