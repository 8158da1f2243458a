package httptransport_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/suite"

	"consents/internal/bus"
	eventshandler "consents/internal/events/handler"
	eventsservice "consents/internal/events/service"
	eventsstore "consents/internal/events/store"
	"consents/internal/platform/health"
	httptransport "consents/internal/transport/http"
	usershandler "consents/internal/users/handler"
	usersservice "consents/internal/users/service"
	usersstore "consents/internal/users/store"
	"consents/pkg/platform/middleware/request"
)

type RouterSuite struct {
	suite.Suite
	server *httptest.Server
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	b := bus.NewInMemory(bus.WithLogger(logger))
	users := usersservice.New(usersstore.NewInMemory(), b, logger)
	events := eventsservice.New(eventsstore.NewInMemory(), b, logger)
	bus.On(b, users.HandleConsentChanged)
	bus.On(b, events.HandleUserDeleted)

	s.server = httptest.NewServer(httptransport.NewRouter(httptransport.Deps{
		Logger:         logger,
		Health:         health.New("test"),
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Latency:        request.NewMetricsWith(reg),
		RequestTimeout: time.Second,
		Resources: []httptransport.Registrar{
			usershandler.New(users, logger),
			eventshandler.New(events, logger),
		},
	}))
	s.T().Cleanup(s.server.Close)
}

func (s *RouterSuite) do(method, path, body string) *http.Response {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.server.URL+path, r)
	s.Require().NoError(err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *RouterSuite) TestResourcesAreServedAtRootAndUnderPrefix() {
	resp := s.do(http.MethodPost, "/users", `{"email":"root@didomi.io"}`)
	s.Equal(http.StatusCreated, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("X-Request-ID"))

	resp = s.do(http.MethodPost, "/api/v1/users", `{"email":"prefixed@didomi.io"}`)
	s.Equal(http.StatusCreated, resp.StatusCode)

	resp = s.do(http.MethodGet, "/api/v1/users", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var users []map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&users))
	s.Len(users, 2)

	resp = s.do(http.MethodGet, "/events", "")
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *RouterSuite) TestUnknownRoutes() {
	resp := s.do(http.MethodGet, "/nope", "")
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp = s.do(http.MethodPatch, "/users", `{}`)
	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}

func (s *RouterSuite) TestRejectsNonJSONBodies() {
	req, err := http.NewRequest(http.MethodPost, s.server.URL+"/users", strings.NewReader("email=a@b.co"))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnsupportedMediaType, resp.StatusCode)
}

func (s *RouterSuite) TestProbesAndMetrics() {
	resp := s.do(http.MethodGet, "/health/ready", "")
	s.Equal(http.StatusOK, resp.StatusCode)

	s.do(http.MethodGet, "/users", "")
	resp = s.do(http.MethodGet, "/metrics", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(body), `consents_http_request_duration_seconds_count{method="GET",route="/users`)
}
