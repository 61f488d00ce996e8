package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/quickfix/internal/codeaction"
)

// requestTable converts a request into the table passed to scripts:
//
//	{path=, language=, trigger="invoke"|"auto", only=,
//	 range={start={line=, character=}, ["end"]={...}},
//	 diagnostics={{message=, severity=, source=, code=, range=}}}
func requestTable(L *lua.LState, req codeaction.Request) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("path", lua.LString(req.Path))
	t.RawSetString("language", lua.LString(req.LanguageID))
	t.RawSetString("trigger", lua.LString(req.Trigger.String()))
	if req.Only != codeaction.KindEmpty {
		t.RawSetString("only", lua.LString(req.Only))
	}
	t.RawSetString("range", rangeTable(L, req.Range))

	diags := L.CreateTable(len(req.Diagnostics), 0)
	for _, d := range req.Diagnostics {
		diags.Append(diagnosticTable(L, d))
	}
	t.RawSetString("diagnostics", diags)
	return t
}

func rangeTable(L *lua.LState, r codeaction.Range) *lua.LTable {
	pos := func(p codeaction.Position) *lua.LTable {
		t := L.CreateTable(0, 2)
		t.RawSetString("line", lua.LNumber(p.Line))
		t.RawSetString("character", lua.LNumber(p.Character))
		return t
	}
	t := L.CreateTable(0, 2)
	t.RawSetString("start", pos(r.Start))
	t.RawSetString("end", pos(r.End))
	return t
}

func diagnosticTable(L *lua.LState, d codeaction.Diagnostic) *lua.LTable {
	t := L.CreateTable(0, 5)
	t.RawSetString("message", lua.LString(d.Message))
	if d.Severity != 0 {
		t.RawSetString("severity", lua.LString(d.Severity.String()))
	}
	if d.Source != "" {
		t.RawSetString("source", lua.LString(d.Source))
	}
	if d.Code != "" {
		t.RawSetString("code", lua.LString(d.Code))
	}
	t.RawSetString("range", rangeTable(L, d.Range))
	return t
}

// actionsFromValue converts a script result into actions. nil yields no
// actions; anything but an array of tables is an error.
func actionsFromValue(v lua.LValue) ([]codeaction.Action, error) {
	if v == lua.LNil {
		return nil, nil
	}
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: got %s, want table", ErrInvalidResult, v.Type())
	}

	n := t.Len()
	actions := make([]codeaction.Action, 0, n)
	for i := 1; i <= n; i++ {
		item, ok := t.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("%w: action %d is %s, want table", ErrInvalidResult, i, t.RawGetInt(i).Type())
		}
		a, err := actionFromTable(item)
		if err != nil {
			return nil, fmt.Errorf("%w: action %d: %v", ErrInvalidResult, i, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func actionFromTable(t *lua.LTable) (codeaction.Action, error) {
	var a codeaction.Action

	title, ok := tableString(t, "title")
	if !ok || title == "" {
		return a, fmt.Errorf("missing title")
	}
	a.Title = title

	if kind, ok := tableString(t, "kind"); ok {
		a.Kind = codeaction.Kind(kind)
	}
	a.IsPreferred, _ = tableBool(t, "preferred")

	switch v := t.RawGetString("disabled").(type) {
	case lua.LString:
		a.Disabled = string(v)
	case lua.LBool:
		if v {
			a.Disabled = "disabled"
		}
	}

	if diags, ok := tableTable(t, "diagnostics"); ok {
		for i := 1; i <= diags.Len(); i++ {
			dt, ok := diags.RawGetInt(i).(*lua.LTable)
			if !ok {
				return a, fmt.Errorf("diagnostic %d is not a table", i)
			}
			a.Diagnostics = append(a.Diagnostics, diagnosticFromTable(dt))
		}
	}

	if ct, ok := tableTable(t, "command"); ok {
		name, _ := tableString(ct, "command")
		if name == "" {
			return a, fmt.Errorf("command without name")
		}
		cmdTitle, ok := tableString(ct, "title")
		if !ok {
			cmdTitle = a.Title
		}
		a.Command = &codeaction.Command{Title: cmdTitle, Command: name}
	}

	return a, nil
}

func diagnosticFromTable(t *lua.LTable) codeaction.Diagnostic {
	var d codeaction.Diagnostic
	d.Message, _ = tableString(t, "message")
	d.Source, _ = tableString(t, "source")
	d.Code, _ = tableString(t, "code")

	switch v := t.RawGetString("severity").(type) {
	case lua.LNumber:
		d.Severity = codeaction.Severity(int(v))
	case lua.LString:
		d.Severity = codeaction.ParseSeverity(string(v))
	}

	if rt, ok := tableTable(t, "range"); ok {
		d.Range.Start = positionFromTable(rt, "start")
		d.Range.End = positionFromTable(rt, "end")
	}
	return d
}

func positionFromTable(t *lua.LTable, key string) codeaction.Position {
	pt, ok := tableTable(t, key)
	if !ok {
		return codeaction.Position{}
	}
	line, _ := tableInt(pt, "line")
	char, _ := tableInt(pt, "character")
	return codeaction.Position{Line: line, Character: char}
}

// kindsFromValue reads an array of kind strings. Non-string entries are
// skipped.
func kindsFromValue(v lua.LValue) []codeaction.Kind {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	var kinds []codeaction.Kind
	for i := 1; i <= t.Len(); i++ {
		if s, ok := t.RawGetInt(i).(lua.LString); ok && s != "" {
			kinds = append(kinds, codeaction.Kind(s))
		}
	}
	return kinds
}

func tableString(t *lua.LTable, key string) (string, bool) {
	switch v := t.RawGetString(key).(type) {
	case lua.LString:
		return string(v), true
	case lua.LNumber:
		return v.String(), true
	}
	return "", false
}

func tableInt(t *lua.LTable, key string) (int, bool) {
	if n, ok := t.RawGetString(key).(lua.LNumber); ok {
		return int(n), true
	}
	return 0, false
}

func tableBool(t *lua.LTable, key string) (bool, bool) {
	if b, ok := t.RawGetString(key).(lua.LBool); ok {
		return bool(b), true
	}
	return false, false
}

func tableTable(t *lua.LTable, key string) (*lua.LTable, bool) {
	if tt, ok := t.RawGetString(key).(*lua.LTable); ok {
		return tt, true
	}
	return nil, false
}
