// Package lua runs Lua scripts as code action providers.
//
// Scripts execute in a gopher-lua state with only the base, table, string
// and math libraries. Functions that load code from disk are removed and
// print is routed to the provider's logger.
//
// A script defines a global provide_code_actions function that receives a
// request table and returns an array of action tables:
//
//	provided_kinds = { "quickfix" }
//
//	function provide_code_actions(request)
//	    local actions = {}
//	    for _, d in ipairs(request.diagnostics) do
//	        if d.message:find("trailing whitespace") then
//	            table.insert(actions, {
//	                title = "Trim trailing whitespace",
//	                kind = "quickfix",
//	                preferred = true,
//	                diagnostics = { d },
//	                command = { command = "trim" },
//	            })
//	        end
//	    end
//	    return actions
//	end
//
// Action tables accept title, kind, preferred, disabled (a reason string or
// true), diagnostics and command. Execution is bounded by the request
// context.
package lua
