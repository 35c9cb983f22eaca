package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/jwebster45206/lootmap/pkg/location"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running lootmap API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           10 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	if len(suite.Steps) == 0 {
		return TestSuite{}, fmt.Errorf("test file %s has no steps", filename)
	}

	return suite, nil
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	if err := r.cleanup(ctx, suite.Cleanup); err != nil {
		result.Error = fmt.Errorf("failed to clean up before run: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	defer func() {
		if err := r.cleanup(context.Background(), suite.Cleanup); err != nil {
			r.Logger("    cleanup after %s failed: %v", suite.Name, err)
		}
	}()

	var failures int
	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, step)
		result.Results = append(result.Results, stepResult)

		if !stepResult.Success {
			failures++
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
		}
	}

	result.Duration = time.Since(start)
	if failures > 0 {
		result.Error = fmt.Errorf("%d of %d steps failed", failures, len(suite.Steps))
	}
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, step TestStep) TestResult {
	start := time.Now()
	res := TestResult{StepName: step.Name}
	if res.StepName == "" {
		res.StepName = step.Command
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	reply, err := r.SendCommand(stepCtx, step.Command)
	res.Reply = reply
	if err == nil {
		err = r.check(stepCtx, step.Expectations, reply)
	}

	res.Duration = time.Since(start)
	res.Error = err
	res.Success = err == nil
	return res
}

func (r *Runner) check(ctx context.Context, exp Expectations, reply string) error {
	for _, want := range exp.ReplyContains {
		if !strings.Contains(reply, want) {
			return fmt.Errorf("reply %q does not contain %q", reply, want)
		}
	}
	for _, unwanted := range exp.ReplyNotContains {
		if strings.Contains(reply, unwanted) {
			return fmt.Errorf("reply %q contains %q", reply, unwanted)
		}
	}
	if exp.ReplyRegex != "" {
		re, err := regexp.Compile(exp.ReplyRegex)
		if err != nil {
			return fmt.Errorf("invalid reply_regex: %w", err)
		}
		if !re.MatchString(reply) {
			return fmt.Errorf("reply %q does not match %s", reply, exp.ReplyRegex)
		}
	}

	for name, want := range exp.Instances {
		loc, err := r.GetLocation(ctx, name)
		if err != nil {
			return err
		}
		if len(loc.Instances) != len(want) {
			return fmt.Errorf("location %s has %d instances, want %d", name, len(loc.Instances), len(want))
		}
		for i, w := range want {
			got := loc.Instances[i]
			if got.Coords != w.Coords || got.Looted != w.Looted {
				return fmt.Errorf("location %s #%d is %s looted=%v, want %s looted=%v",
					name, i+1, got.Coords, got.Looted, w.Coords, w.Looted)
			}
		}
	}
	return nil
}

// SendCommand posts a chat command and returns the reply
func (r *Runner) SendCommand(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v1/commands", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Reply string `json:"reply"`
	}
	if err := r.do(req, http.StatusOK, &resp); err != nil {
		return "", err
	}
	return resp.Reply, nil
}

// GetLocation reads a location through the REST API
func (r *Runner) GetLocation(ctx context.Context, name string) (location.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/v1/locations/"+url.PathEscape(name), nil)
	if err != nil {
		return location.Location{}, err
	}
	var loc location.Location
	if err := r.do(req, http.StatusOK, &loc); err != nil {
		return location.Location{}, err
	}
	return loc, nil
}

func (r *Runner) cleanup(ctx context.Context, names []string) error {
	for _, name := range names {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, r.BaseURL+"/v1/locations/"+url.PathEscape(name), nil)
		if err != nil {
			return err
		}
		resp, err := r.Client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
			return fmt.Errorf("delete %s returned %d", name, resp.StatusCode)
		}
	}
	return nil
}

func (r *Runner) do(req *http.Request, wantStatus int, out interface{}) error {
	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != wantStatus {
		return fmt.Errorf("%s %s returned %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
