package runner

import (
	"time"

	"github.com/jwebster45206/lootmap/pkg/location"
)

// TestSuite defines a complete integration test scenario
type TestSuite struct {
	Name string `json:"name"`
	// Locations removed before and after the run so suites do not leak
	// into each other
	Cleanup []string   `json:"cleanup,omitempty"`
	Steps   []TestStep `json:"steps"`
}

// TestStep sends one chat command and checks the reply
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Command      string       `json:"command"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	ReplyContains    []string `json:"reply_contains,omitempty"`
	ReplyNotContains []string `json:"reply_not_contains,omitempty"`
	ReplyRegex       string   `json:"reply_regex,omitempty"`

	// Instances of a location after the step, read from the REST API
	Instances map[string][]ExpectedInstance `json:"instances,omitempty"`
}

// ExpectedInstance is compared against GET /v1/locations/{name}
type ExpectedInstance struct {
	Coords location.Coordinates `json:"coords"`
	Looted bool                 `json:"looted"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Reply    string
}

// TestJob is a suite loaded from a case file
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
}
