//go:build integration
// +build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/lootmap/integration/runner"
)

var caseFlag = flag.String("case", "", "Name of test case to run (from integration/cases/)")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")

func apiBaseURL() string {
	if url := os.Getenv("API_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func TestMain(m *testing.M) {
	fmt.Printf("Running Lootmap Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL())
	os.Exit(m.Run())
}

func TestIntegrationSuites(t *testing.T) {
	flag.Parse()

	files, err := discoverTestFiles("cases")
	if err != nil {
		t.Fatalf("Failed to discover test files: %v", err)
	}
	if *caseFlag != "" {
		files = filterCases(files, *caseFlag)
	}
	if len(files) == 0 {
		t.Fatal("No test files found in cases directory")
	}

	mode := runner.ErrorHandlingMode(*errFlag)
	if mode != runner.ErrorHandlingExit && mode != runner.ErrorHandlingContinue {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}

	testRunner := runner.NewRunner(apiBaseURL())
	testRunner.ErrorHandlingMode = mode
	testRunner.Logger = func(format string, args ...interface{}) {
		t.Logf(format, args...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var failed []string
	for i, file := range files {
		suite, err := runner.LoadTestSuite(file)
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}

		t.Logf("[%d/%d] Starting test suite: %s (%d steps)", i+1, len(files), suite.Name, len(suite.Steps))
		result, err := testRunner.RunSuite(ctx, suite)
		for _, step := range result.Results {
			if step.Success {
				t.Logf("   ✓ %s (%v)", step.StepName, step.Duration)
			} else {
				t.Errorf("   ✗ %s: %v", step.StepName, step.Error)
			}
		}
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", suite.Name, err))
		}
	}

	t.Logf("Integration Test Summary: %d passed, %d failed", len(files)-len(failed), len(failed))
	if len(failed) > 0 {
		t.Fatalf("Integration tests failed:\n  %s", strings.Join(failed, "\n  "))
	}
}

func discoverTestFiles(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// filterCases keeps the files named in a comma separated -case flag
func filterCases(files []string, cases string) []string {
	want := make(map[string]bool)
	for _, name := range strings.Split(cases, ",") {
		name = strings.TrimSuffix(strings.TrimSpace(name), ".json")
		if name != "" {
			want[name] = true
		}
	}

	var out []string
	for _, file := range files {
		if want[strings.TrimSuffix(filepath.Base(file), ".json")] {
			out = append(out, file)
		}
	}
	return out
}
