package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadScenarioBuildsSteps(t *testing.T) {
	path := writeScenarioFixture(t, `-- First loan journey
local s = Scenario.new("first loan")
s:signup{name = "thabo"}
s:add_funds{name = "thabo", amount = 500}
s:quote{name = "thabo", amount = 300, expect_fee = 195}
s:request_loan{name = "thabo", amount = 300}
s:repay_loan{name = "thabo"}
s:expect_profile{name = "thabo", active_loan = false}
return s
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if scenario.Name != "first loan" {
		t.Fatalf("name = %q, want first loan", scenario.Name)
	}
	if len(scenario.Steps) != 6 {
		t.Fatalf("steps = %d, want 6", len(scenario.Steps))
	}

	quote := scenario.Steps[2]
	if quote.Kind != "quote" {
		t.Fatalf("step kind = %q, want quote", quote.Kind)
	}
	if quote.Args["amount"] != 300 {
		t.Fatalf("quote amount = %v, want 300", quote.Args["amount"])
	}
	if quote.Args["expect_fee"] != 195 {
		t.Fatalf("quote expect_fee = %v, want 195", quote.Args["expect_fee"])
	}

	expect := scenario.Steps[5]
	if expect.Kind != "expect_profile" {
		t.Fatalf("step kind = %q, want expect_profile", expect.Kind)
	}
	if expect.Args["active_loan"] != false {
		t.Fatalf("active_loan = %v, want false", expect.Args["active_loan"])
	}
}

func TestLoadScenarioDefaultsNameFromFile(t *testing.T) {
	path := writeScenarioFixture(t, `local s = Scenario.new()
s:signup{name = "nandi"}
return s
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if scenario.Name != "scenario" {
		t.Fatalf("name = %q, want scenario", scenario.Name)
	}
}

func TestLoadScenarioRejectsNonScenarioReturn(t *testing.T) {
	path := writeScenarioFixture(t, `return 42`)

	_, err := LoadScenarioFromFile(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "must return Scenario") {
		t.Fatalf("error = %q, want must return Scenario", err.Error())
	}
}

func TestLoadScenarioReportsLuaErrors(t *testing.T) {
	path := writeScenarioFixture(t, `local s = Scenario.new("broken"
return s
`)

	_, err := LoadScenarioFromFile(path)
	if err == nil {
		t.Fatal("expected error")
	}
}

func writeScenarioFixture(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.lua")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}
