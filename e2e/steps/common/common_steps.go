package common

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the consents service is running$`, steps.serviceIsRunning)

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response body should be empty$`, steps.responseBodyShouldBeEmpty)
	ctx.Step(`^the response should be:$`, steps.responseShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) serviceIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health/live"); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, 200)
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", expectedStatus, actualStatus, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if actual := fmt.Sprint(value); actual != expected {
		return fmt.Errorf("expected %s to be %q but got %q", field, expected, actual)
	}
	return nil
}

func (s *commonSteps) responseBodyShouldBeEmpty(ctx context.Context) error {
	if body := s.tc.GetLastResponseBody(); len(body) != 0 {
		return fmt.Errorf("expected an empty body but got %s", string(body))
	}
	return nil
}

// responseShouldBe compares JSON documents, ignoring formatting and key order.
func (s *commonSteps) responseShouldBe(ctx context.Context, doc *godog.DocString) error {
	var expected, actual any
	if err := json.Unmarshal([]byte(doc.Content), &expected); err != nil {
		return fmt.Errorf("expected document is not JSON: %w", err)
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &actual); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	want, _ := json.Marshal(expected)
	got, _ := json.Marshal(actual)
	if string(want) != string(got) {
		return fmt.Errorf("expected response %s but got %s", want, got)
	}
	return nil
}
