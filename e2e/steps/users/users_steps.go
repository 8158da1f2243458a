package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PUT(path string, body any) error
	GET(path string) error
	DELETE(path string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	RememberUser(email, userID string)
	UserID(email string) (string, error)
	URL(path string) string
	Client() *http.Client
}

// RegisterSteps registers user management step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &userSteps{tc: tc}

	ctx.Step(`^I create a user with email "([^"]*)"$`, steps.createUser)
	ctx.Step(`^a user exists with email "([^"]*)"$`, steps.userExists)
	ctx.Step(`^I list users$`, steps.listUsers)
	ctx.Step(`^I get the user "([^"]*)"$`, steps.getUser)
	ctx.Step(`^I get the user with id "([^"]*)"$`, steps.getUserByRawID)
	ctx.Step(`^I change the email of "([^"]*)" to "([^"]*)"$`, steps.changeEmail)
	ctx.Step(`^I delete the user "([^"]*)"$`, steps.deleteUser)
	ctx.Step(`^I delete the user "([^"]*)" (\d+) times concurrently$`, steps.deleteUserConcurrently)

	ctx.Step(`^the user list should contain exactly one user with email "([^"]*)" and no consents$`, steps.listShouldContainFreshUser)
	ctx.Step(`^the user "([^"]*)" should have no consents$`, steps.userShouldHaveNoConsents)
	ctx.Step(`^the user "([^"]*)" should have consents:$`, steps.userShouldHaveConsents)
}

type userSteps struct {
	tc TestContext
}

type userView struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Consents []struct {
		ID      string `json:"id"`
		Enabled bool   `json:"enabled"`
	} `json:"consents"`
}

func (s *userSteps) createUser(ctx context.Context, email string) error {
	if err := s.tc.POST("/users", map[string]string{"email": email}); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 201 {
		return nil
	}
	var u userView
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &u); err != nil {
		return fmt.Errorf("decode created user: %w", err)
	}
	s.tc.RememberUser(email, u.ID)
	return nil
}

func (s *userSteps) userExists(ctx context.Context, email string) error {
	if err := s.createUser(ctx, email); err != nil {
		return err
	}
	if status := s.tc.GetLastResponseStatus(); status != 201 {
		return fmt.Errorf("expected user %s to be created, got status %d", email, status)
	}
	return nil
}

func (s *userSteps) listUsers(ctx context.Context) error {
	return s.tc.GET("/users")
}

func (s *userSteps) getUser(ctx context.Context, email string) error {
	userID, err := s.tc.UserID(email)
	if err != nil {
		return err
	}
	return s.tc.GET("/users/" + userID)
}

func (s *userSteps) getUserByRawID(ctx context.Context, rawID string) error {
	return s.tc.GET("/users/" + rawID)
}

func (s *userSteps) changeEmail(ctx context.Context, email, newEmail string) error {
	userID, err := s.tc.UserID(email)
	if err != nil {
		return err
	}
	if err := s.tc.PUT("/users", map[string]string{"id": userID, "email": newEmail}); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() == 200 {
		s.tc.RememberUser(newEmail, userID)
	}
	return nil
}

func (s *userSteps) deleteUser(ctx context.Context, email string) error {
	userID, err := s.tc.UserID(email)
	if err != nil {
		return err
	}
	return s.tc.DELETE("/users/" + userID)
}

// deleteUserConcurrently issues n deletes at once. Every response must be a
// 200 with a delete result.
func (s *userSteps) deleteUserConcurrently(ctx context.Context, email string, n int) error {
	userID, err := s.tc.UserID(email)
	if err != nil {
		return err
	}
	errs := make(chan error, n)
	for range n {
		go func() {
			errs <- deleteOnce(ctx, s.tc, userID)
		}()
	}
	for range n {
		if err := <-errs; err != nil {
			return err
		}
	}
	return nil
}

func (s *userSteps) listShouldContainFreshUser(ctx context.Context, email string) error {
	var users []userView
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &users); err != nil {
		return fmt.Errorf("decode user list: %w", err)
	}
	matches := 0
	for _, u := range users {
		if u.Email != email {
			continue
		}
		matches++
		if u.Consents == nil || len(u.Consents) != 0 {
			return fmt.Errorf("expected consents [] for %s, got %v", email, u.Consents)
		}
	}
	if matches != 1 {
		return fmt.Errorf("expected exactly one user with email %s, found %d", email, matches)
	}
	return nil
}

func (s *userSteps) fetch(email string) (*userView, error) {
	userID, err := s.tc.UserID(email)
	if err != nil {
		return nil, err
	}
	if err := s.tc.GET("/users/" + userID); err != nil {
		return nil, err
	}
	if status := s.tc.GetLastResponseStatus(); status != 200 {
		return nil, fmt.Errorf("expected user %s to exist, got status %d", email, status)
	}
	var u userView
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

func (s *userSteps) userShouldHaveNoConsents(ctx context.Context, email string) error {
	u, err := s.fetch(email)
	if err != nil {
		return err
	}
	if u.Consents == nil || len(u.Consents) != 0 {
		return fmt.Errorf("expected consents [] for %s, got %v", email, u.Consents)
	}
	return nil
}

// userShouldHaveConsents compares against a table with id and enabled columns,
// in order.
func (s *userSteps) userShouldHaveConsents(ctx context.Context, email string, table *godog.Table) error {
	u, err := s.fetch(email)
	if err != nil {
		return err
	}
	rows := table.Rows[1:]
	if len(u.Consents) != len(rows) {
		return fmt.Errorf("expected %d consents, got %d: %s", len(rows), len(u.Consents), string(s.tc.GetLastResponseBody()))
	}
	for i, row := range rows {
		enabled, err := strconv.ParseBool(row.Cells[1].Value)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		got := u.Consents[i]
		if got.ID != row.Cells[0].Value || got.Enabled != enabled {
			return fmt.Errorf("consent %d: expected %s=%t, got %s=%t", i, row.Cells[0].Value, enabled, got.ID, got.Enabled)
		}
	}
	return nil
}

func deleteOnce(ctx context.Context, tc TestContext, userID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, tc.URL("/users/"+userID), nil)
	if err != nil {
		return err
	}
	resp, err := tc.Client().Do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expected status 200 but got %d", resp.StatusCode)
	}
	var result struct {
		Deleted *bool `json:"deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.Deleted == nil {
		return fmt.Errorf("response is not a delete result")
	}
	return nil
}
