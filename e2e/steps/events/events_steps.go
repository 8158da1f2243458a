package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	DELETE(path string) error
	Do(method, path string, body any) error
	GetLastResponseBody() []byte
	UserID(email string) (string, error)
	RememberUser(email, userID string)
}

// RegisterSteps registers consent event step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &eventSteps{tc: tc}

	ctx.Step(`^I submit consents for "([^"]*)":$`, steps.submitConsents)
	ctx.Step(`^I submit consents for an unknown user "([^"]*)":$`, steps.submitConsentsForUnknownUser)
	ctx.Step(`^I submit the event body:$`, steps.submitRawBody)
	ctx.Step(`^I list events$`, steps.listEvents)
	ctx.Step(`^I delete the first event of "([^"]*)"$`, steps.deleteFirstEvent)
	ctx.Step(`^I delete the event with id "([^"]*)"$`, steps.deleteEventByRawID)

	ctx.Step(`^there should be (\d+) events? for "([^"]*)"$`, steps.eventCountShouldBe)
	ctx.Step(`^the events of "([^"]*)" should describe:$`, steps.eventsShouldDescribe)
}

type eventSteps struct {
	tc TestContext
}

type eventView struct {
	EventID           string `json:"eventID"`
	UserID            string `json:"userID"`
	Timestamp         string `json:"timestamp"`
	ChangeDescription string `json:"changeDescription"`
}

type consentBody struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

func consentsFromTable(table *godog.Table) ([]consentBody, error) {
	consents := make([]consentBody, 0, len(table.Rows))
	for i, row := range table.Rows[1:] {
		enabled, err := strconv.ParseBool(row.Cells[1].Value)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		consents = append(consents, consentBody{ID: row.Cells[0].Value, Enabled: enabled})
	}
	return consents, nil
}

func (s *eventSteps) submit(userID string, table *godog.Table) error {
	consents, err := consentsFromTable(table)
	if err != nil {
		return err
	}
	return s.tc.POST("/events", map[string]any{
		"user":     map[string]string{"id": userID},
		"consents": consents,
	})
}

func (s *eventSteps) submitConsents(ctx context.Context, email string, table *godog.Table) error {
	userID, err := s.tc.UserID(email)
	if err != nil {
		return err
	}
	return s.submit(userID, table)
}

// submitConsentsForUnknownUser remembers a fresh id under alias without
// creating the user, so later steps can look its events up.
func (s *eventSteps) submitConsentsForUnknownUser(ctx context.Context, alias string, table *godog.Table) error {
	userID := uuid.NewString()
	s.tc.RememberUser(alias, userID)
	return s.submit(userID, table)
}

func (s *eventSteps) submitRawBody(ctx context.Context, doc *godog.DocString) error {
	return s.tc.Do("POST", "/events", doc.Content)
}

func (s *eventSteps) listEvents(ctx context.Context) error {
	return s.tc.GET("/events")
}

func (s *eventSteps) eventsFor(email string) ([]eventView, error) {
	userID, err := s.tc.UserID(email)
	if err != nil {
		return nil, err
	}
	if err := s.tc.GET("/events"); err != nil {
		return nil, err
	}
	var all []eventView
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &all); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	var mine []eventView
	for _, e := range all {
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	return mine, nil
}

func (s *eventSteps) deleteFirstEvent(ctx context.Context, email string) error {
	events, err := s.eventsFor(email)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("user %s has no events", email)
	}
	return s.tc.DELETE("/events/" + events[0].EventID)
}

func (s *eventSteps) deleteEventByRawID(ctx context.Context, rawID string) error {
	return s.tc.DELETE("/events/" + rawID)
}

func (s *eventSteps) eventCountShouldBe(ctx context.Context, n int, email string) error {
	events, err := s.eventsFor(email)
	if err != nil {
		return err
	}
	if len(events) != n {
		return fmt.Errorf("expected %d events for %s, got %d", n, email, len(events))
	}
	return nil
}

// eventsShouldDescribe checks change descriptions in recording order against
// a one-column table with a description header.
func (s *eventSteps) eventsShouldDescribe(ctx context.Context, email string, table *godog.Table) error {
	events, err := s.eventsFor(email)
	if err != nil {
		return err
	}
	rows := table.Rows[1:]
	if len(events) != len(rows) {
		return fmt.Errorf("expected %d events for %s, got %d", len(rows), email, len(events))
	}
	for i, row := range rows {
		if events[i].ChangeDescription != row.Cells[0].Value {
			return fmt.Errorf("event %d: expected %q, got %q", i, row.Cells[0].Value, events[i].ChangeDescription)
		}
	}
	return nil
}
