package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mita-backend/internal/errors"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
)

type PanicRecoveryTestSuite struct {
	suite.Suite
	echo *echo.Echo
}

func (s *PanicRecoveryTestSuite) SetupTest() {
	s.echo = echo.New()
}

func TestPanicRecoveryTestSuite(t *testing.T) {
	suite.Run(t, new(PanicRecoveryTestSuite))
}

func (s *PanicRecoveryTestSuite) invoke(traceID string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if traceID != "" {
		c.Set(TraceIDContextKey, traceID)
	}

	s.NotPanics(func() {
		s.NoError(PanicRecovery()(h)(c))
	})
	return rec
}

func (s *PanicRecoveryTestSuite) TestRecovers() {
	rec := s.invoke("trace-9", func(c echo.Context) error {
		panic("nil map write")
	})

	s.Equal(http.StatusInternalServerError, rec.Code)
	var resp errors.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("SYSTEM_001", resp.Error.Code)
	s.Equal("trace-9", resp.Error.TraceID)
	s.NotContains(rec.Body.String(), "nil map")
}

func (s *PanicRecoveryTestSuite) TestUnknownTraceID() {
	rec := s.invoke("", func(c echo.Context) error {
		panic("boom")
	})

	var resp errors.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("unknown", resp.Error.TraceID)
}

func (s *PanicRecoveryTestSuite) TestPassThrough() {
	rec := s.invoke("", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	s.Equal(http.StatusNoContent, rec.Code)
}

func (s *PanicRecoveryTestSuite) TestPanicValues() {
	for name, value := range map[string]interface{}{
		"string": "text",
		"int":    42,
		"error":  errors.NewErrorResponse(errors.SystemInternalError, "x"),
		"nil":    nil,
	} {
		s.Run(name, func() {
			rec := s.invoke("t", func(c echo.Context) error {
				panic(value)
			})
			s.Equal(http.StatusInternalServerError, rec.Code)
		})
	}
}

func (s *PanicRecoveryTestSuite) TestCommittedResponseKept() {
	rec := s.invoke("t", func(c echo.Context) error {
		_ = c.NoContent(http.StatusAccepted)
		panic("after write")
	})

	s.Equal(http.StatusAccepted, rec.Code)
}

func (s *PanicRecoveryTestSuite) TestAbortHandlerRepanics() {
	c := s.echo.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	s.PanicsWithValue(http.ErrAbortHandler, func() {
		_ = PanicRecovery()(func(c echo.Context) error {
			panic(http.ErrAbortHandler)
		})(c)
	})
}
