package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
)

type RequestIDTestSuite struct {
	suite.Suite
	echo *echo.Echo
}

func (s *RequestIDTestSuite) SetupTest() {
	s.echo = echo.New()
	s.echo.HTTPErrorHandler = CustomHTTPErrorHandler
}

func TestRequestIDTestSuite(t *testing.T) {
	suite.Run(t, new(RequestIDTestSuite))
}

func (s *RequestIDTestSuite) run(header, value string) (string, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	var seen string
	err := RequestID()(func(c echo.Context) error {
		seen = GetTraceID(c)
		return c.NoContent(http.StatusOK)
	})(c)
	s.Require().NoError(err)
	return seen, rec
}

func (s *RequestIDTestSuite) TestGeneratesUUID() {
	traceID, rec := s.run("", "")

	_, err := uuid.Parse(traceID)
	s.NoError(err)
	s.Equal(traceID, rec.Header().Get(TraceIDHeader))
}

func (s *RequestIDTestSuite) TestKeepsClientTraceID() {
	traceID, rec := s.run(TraceIDHeader, "mobile-7f3a")

	s.Equal("mobile-7f3a", traceID)
	s.Equal("mobile-7f3a", rec.Header().Get(TraceIDHeader))
}

func (s *RequestIDTestSuite) TestFallsBackToRequestIDHeader() {
	traceID, _ := s.run(RequestIDHeader, "req-42")

	s.Equal("req-42", traceID)
}

func (s *RequestIDTestSuite) TestReplacesUnusableIDs() {
	for name, value := range map[string]string{
		"too long":   strings.Repeat("a", maxTraceIDLength+1),
		"whitespace": "abc def",
		"control":    "abc\x01",
	} {
		s.Run(name, func() {
			traceID, _ := s.run(TraceIDHeader, value)
			s.NotEqual(value, traceID)
			_, err := uuid.Parse(traceID)
			s.NoError(err)
		})
	}
}

func (s *RequestIDTestSuite) TestGetTraceIDEmptyWhenUnset() {
	c := s.echo.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	s.Empty(GetTraceID(c))
}

func (s *RequestIDTestSuite) TestRequestLoggerRendersErrors() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	h := RequestID()(RequestLogger()(func(c echo.Context) error {
		return errors.New("boom")
	}))

	s.NoError(h(c))
	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), GetTraceID(c))
}
