package features

import (
	"os"
	"testing"

	"github.com/cucumber/godog"
)

// TestContract runs the HTTP contract scenarios as Go subtests, one per scenario.
// Set KIR_CONTRACT_TAGS (for example "~@slow") to filter them.
func TestContract(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "kir-contract",
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Output:   os.Stdout,
			Paths:    []string{"contract.feature"},
			Tags:     os.Getenv("KIR_CONTRACT_TAGS"),
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("contract scenarios failed")
	}
}
