package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientInfo(t *testing.T) {
	e := echo.New()

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded chain", map[string]string{echo.HeaderXForwardedFor: " 198.51.100.4 , 10.0.0.2", echo.HeaderXRealIP: "10.0.0.9"}, "198.51.100.4"},
		{"real ip", map[string]string{echo.HeaderXRealIP: "10.0.0.9"}, "10.0.0.9"},
		{"socket", nil, "192.0.2.1:1234"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("User-Agent", "MitaApp/3.1")
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			ip, agent := clientInfo(e.NewContext(req, httptest.NewRecorder()))
			assert.Equal(t, tc.want, ip)
			assert.Equal(t, "MitaApp/3.1", agent)
		})
	}
}

func TestGetYearMonth(t *testing.T) {
	e := echo.New()
	now := time.Date(2025, 7, 31, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))

	ctx := func(query string) echo.Context {
		return e.NewContext(httptest.NewRequest(http.MethodGet, "/?"+query, nil), httptest.NewRecorder())
	}

	year, month, err := getYearMonth(ctx(""), now)
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.August, month, "defaults use the UTC month")

	year, month, err = getYearMonth(ctx("year=2024&month=2"), now)
	require.NoError(t, err)
	assert.Equal(t, 2024, year)
	assert.Equal(t, time.February, month)

	for _, q := range []string{"month=0", "month=13", "year=abc", "year=0"} {
		_, _, err := getYearMonth(ctx(q), now)
		assert.Error(t, err, q)
	}
}

func TestGetIntParam(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=7&bad=x", nil), httptest.NewRecorder())

	assert.Equal(t, 7, getIntParam(c, "limit", 20))
	assert.Equal(t, 20, getIntParam(c, "bad", 20))
	assert.Equal(t, 20, getIntParam(c, "missing", 20))
}
