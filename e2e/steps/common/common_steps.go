package common

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body interface{}) error
	POSTAsAdmin(path string, body interface{}) error
	POSTWithHeaders(path string, body interface{}, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetLastResponseHeader(name string) string
	GetResponseField(field string) (interface{}, error)
	Save(name, value string)
}

// RegisterSteps registers health, generic request and assertion steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the order API is running$`, steps.apiIsRunning)

	ctx.Step(`^I GET "([^"]*)"$`, steps.get)
	ctx.Step(`^I POST to "([^"]*)"$`, steps.post)
	ctx.Step(`^I POST as admin to "([^"]*)"$`, steps.postAsAdmin)
	ctx.Step(`^I POST to "([^"]*)" with idempotency key "([^"]*)"$`, steps.postWithIdempotencyKey)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, steps.headerShouldBe)
	ctx.Step(`^I save the response field "([^"]*)" as "([^"]*)"$`, steps.saveField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/healthz"); err != nil {
		return err
	}
	return s.statusShouldBe(ctx, 200)
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) post(ctx context.Context, path string) error {
	return s.tc.POST(path, nil)
}

func (s *commonSteps) postAsAdmin(ctx context.Context, path string) error {
	return s.tc.POSTAsAdmin(path, nil)
}

func (s *commonSteps) postWithIdempotencyKey(ctx context.Context, path, key string) error {
	return s.tc.POSTWithHeaders(path, nil, map[string]string{"Idempotency-Key": key})
}

func (s *commonSteps) statusShouldBe(ctx context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(ctx context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) headerShouldBe(ctx context.Context, name, expected string) error {
	if got := s.tc.GetLastResponseHeader(name); got != expected {
		return fmt.Errorf("expected header %s to be %q, got %q", name, expected, got)
	}
	return nil
}

func (s *commonSteps) saveField(ctx context.Context, field, name string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Save(name, fmt.Sprint(value))
	return nil
}
