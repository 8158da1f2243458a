package handler

// Handler tests cover request decoding, id parsing and domain error to HTTP
// status mapping. Full flows are exercised by e2e/features/users.feature.

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	consent "consents/internal/consent/models"
	"consents/internal/users/handler/mocks"
	"consents/internal/users/models"
	id "consents/pkg/domain"
	dErrors "consents/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type UserHandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
}

func TestUserHandlerSuite(t *testing.T) {
	suite.Run(t, new(UserHandlerSuite))
}

func (s *UserHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *UserHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *UserHandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *UserHandlerSuite) assertError(w *httptest.ResponseRecorder, status int, code string) {
	s.Equal(status, w.Code)
	var body map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal(code, body["error"])
}

func (s *UserHandlerSuite) TestCreate() {
	s.Run("returns 201 with the new user", func() {
		userID := id.NewUserID()
		s.service.EXPECT().Create(gomock.Any(), "dumont@didomi.io").
			Return(&models.View{ID: userID, Email: "dumont@didomi.io", Consents: []consent.Consent{}}, nil)

		w := s.do(http.MethodPost, "/users", `{"email":" dumont@didomi.io "}`)

		s.Equal(http.StatusCreated, w.Code)
		s.JSONEq(`{"id":"`+userID.String()+`","email":"dumont@didomi.io","consents":[]}`, w.Body.String())
	})

	s.Run("invalid email returns 422", func() {
		s.service.EXPECT().Create(gomock.Any(), "nope").
			Return(nil, dErrors.New(dErrors.CodeValidation, "email must be a valid email address"))

		w := s.do(http.MethodPost, "/users", `{"email":"nope"}`)
		s.assertError(w, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("duplicate email returns 422", func() {
		s.service.EXPECT().Create(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "email is already in use"))

		w := s.do(http.MethodPost, "/users", `{"email":"dumont@didomi.io"}`)
		s.assertError(w, http.StatusUnprocessableEntity, "conflict")
	})

	s.Run("oversized email returns 422 without calling the service", func() {
		w := s.do(http.MethodPost, "/users", `{"email":"`+strings.Repeat("a", 250)+`@didomi.io"}`)
		s.assertError(w, http.StatusUnprocessableEntity, "validation_error")
	})

	s.Run("malformed body returns 400", func() {
		w := s.do(http.MethodPost, "/users", `{"email":`)
		s.assertError(w, http.StatusBadRequest, "bad_request")
	})
}

func (s *UserHandlerSuite) TestFind() {
	s.Run("malformed id returns 404", func() {
		w := s.do(http.MethodGet, "/users/not-a-uuid", "")
		s.assertError(w, http.StatusNotFound, "not_found")
	})

	s.Run("unknown id returns 404", func() {
		s.service.EXPECT().Find(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "user not found"))

		w := s.do(http.MethodGet, "/users/"+id.NewUserID().String(), "")
		s.assertError(w, http.StatusNotFound, "not_found")
	})

	s.Run("known id returns the user", func() {
		userID := id.NewUserID()
		s.service.EXPECT().Find(gomock.Any(), userID).Return(&models.View{
			ID:    userID,
			Email: "dumont@didomi.io",
			Consents: []consent.Consent{
				{ID: consent.TopicEmail, Enabled: false},
				{ID: consent.TopicSMS, Enabled: true},
			},
		}, nil)

		w := s.do(http.MethodGet, "/users/"+userID.String(), "")

		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"id":"`+userID.String()+`","email":"dumont@didomi.io","consents":[
			{"id":"email_notifications","enabled":false},
			{"id":"sms_notifications","enabled":true}]}`, w.Body.String())
	})
}

func (s *UserHandlerSuite) TestList() {
	s.Run("empty list is an empty array", func() {
		s.service.EXPECT().List(gomock.Any()).Return([]*models.View{}, nil)

		w := s.do(http.MethodGet, "/users", "")

		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`[]`, w.Body.String())
	})

	s.Run("store failure returns 500", func() {
		s.service.EXPECT().List(gomock.Any()).Return(nil, dErrors.New(dErrors.CodeInternal, "failed to list users"))

		w := s.do(http.MethodGet, "/users", "")
		s.assertError(w, http.StatusInternalServerError, "internal_error")
	})
}

func (s *UserHandlerSuite) TestUpdate() {
	s.Run("updates the email", func() {
		userID := id.NewUserID()
		s.service.EXPECT().Update(gomock.Any(), userID, "new@didomi.io").
			Return(&models.View{ID: userID, Email: "new@didomi.io", Consents: []consent.Consent{}}, nil)

		w := s.do(http.MethodPut, "/users", `{"id":"`+userID.String()+`","email":"new@didomi.io"}`)

		s.Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), "new@didomi.io")
	})

	s.Run("malformed id returns 404", func() {
		w := s.do(http.MethodPut, "/users", `{"id":"123","email":"new@didomi.io"}`)
		s.assertError(w, http.StatusNotFound, "not_found")
	})

	s.Run("conflict returns 422", func() {
		s.service.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "email is already in use"))

		w := s.do(http.MethodPut, "/users", `{"id":"`+id.NewUserID().String()+`","email":"taken@didomi.io"}`)
		s.assertError(w, http.StatusUnprocessableEntity, "conflict")
	})
}

func (s *UserHandlerSuite) TestDelete() {
	s.Run("successful delete", func() {
		userID := id.NewUserID()
		s.service.EXPECT().Delete(gomock.Any(), userID).Return(id.Deleted())

		w := s.do(http.MethodDelete, "/users/"+userID.String(), "")

		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"deleted":true}`, w.Body.String())
	})

	s.Run("failed delete reports a message", func() {
		s.service.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(id.NotDeleted("failed to delete user"))

		w := s.do(http.MethodDelete, "/users/"+id.NewUserID().String(), "")

		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"deleted":false,"message":"failed to delete user"}`, w.Body.String())
	})

	s.Run("malformed id is not deleted", func() {
		w := s.do(http.MethodDelete, "/users/xyz", "")

		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"deleted":false,"message":"invalid user id"}`, w.Body.String())
	})
}
