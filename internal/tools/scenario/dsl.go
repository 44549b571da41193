// Package scenario executes Lua-scripted user journeys against a running
// API server. Scripts build a Scenario value step by step and return it:
//
//	local s = Scenario.new("first loan")
//	s:signup{name = "thabo"}
//	s:add_funds{name = "thabo", amount = 500}
//	s:request_loan{name = "thabo", amount = 300}
//	s:repay_loan{name = "thabo"}
//	s:expect_profile{name = "thabo", active_loan = false}
//	return s
package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "scenario"

// Scenario is one scripted journey.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one journey action with its script arguments.
type Step struct {
	Kind string
	Args map[string]any
}

// LoadScenarioFromFile runs a Lua script and returns the Scenario it built.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerScenarioType(state)
	registerScenarioConstructor(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerScenarioType(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScenarioConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{
		{Name: "new", Function: scenarioNew},
	}, 0)
	state.SetGlobal("Scenario")
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scenario := &Scenario{Name: name}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

// Every journey method takes one table argument and appends a step of the
// matching kind.
var scenarioMethods = []lua.RegistryFunction{
	{Name: "signup", Function: tableStep("signup")},
	{Name: "login", Function: tableStep("login")},
	{Name: "preferences", Function: tableStep("preferences")},
	{Name: "add_funds", Function: tableStep("add_funds")},
	{Name: "withdraw", Function: tableStep("withdraw")},
	{Name: "send", Function: tableStep("send")},
	{Name: "quote", Function: tableStep("quote")},
	{Name: "request_loan", Function: tableStep("request_loan")},
	{Name: "repay_loan", Function: tableStep("repay_loan")},
	{Name: "avatar", Function: tableStep("avatar")},
	{Name: "avatar_confirm", Function: tableStep("avatar_confirm")},
	{Name: "expect_profile", Function: tableStep("expect_profile")},
	{Name: "expect_ledger", Function: tableStep("expect_ledger")},
	{Name: "expect_active_loan", Function: tableStep("expect_active_loan")},
}

func tableStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		lua.CheckType(state, 2, lua.TypeTable)
		args := tableToMap(state, 2)
		scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: args})
		return 0
	}
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToMap(state, index)
	default:
		return nil
	}
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
