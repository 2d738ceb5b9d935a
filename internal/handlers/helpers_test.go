package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"mita-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validation.Default()
	return e
}

// newJSONContext builds a request context. A string body is sent as is,
// anything else is JSON encoded.
func newJSONContext(e *echo.Echo, method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(b)
	}
	req := httptest.NewRequest(method, target, bytes.NewBuffer(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// newUserContext is newJSONContext for a signed-in user
func newUserContext(e *echo.Echo, userID uuid.UUID, method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newJSONContext(e, method, target, body)
	c.Set("user_id", userID)
	return c, rec
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var errorResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errorResp))
	return errorResp.Error.Code
}

// decodeData unmarshals the data field of a success envelope into out
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}
