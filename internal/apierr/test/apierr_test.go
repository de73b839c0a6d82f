package apierr_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outOfStock struct{ ids []string }

func (e outOfStock) Error() string        { return "items unavailable" }
func (e outOfStock) Kind() apierr.Kind    { return apierr.KindUnavailableItem }
func (e outOfStock) Details() interface{} { return gin.H{"bookIds": e.ids} }

func serve(t *testing.T, handler gin.HandlerFunc, method, body string) (*httptest.ResponseRecorder, apierr.Envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	apierr.UseJSONFieldNames()
	router := gin.New()
	router.Use(apierr.Recovery())
	router.Handle(method, "/target", handler)
	router.NoRoute(apierr.NoRoute)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, "/target", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, "/target", nil)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var env apierr.Envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	return resp, env
}

func TestRespond_KindStatusMapping(t *testing.T) {
	cases := []struct {
		kind   apierr.Kind
		status int
	}{
		{apierr.KindValidation, 400},
		{apierr.KindNotFound, 404},
		{apierr.KindAuth, 401},
		{apierr.KindConflict, 400},
		{apierr.KindUnavailableItem, 409},
		{apierr.KindInvalidCoupon, 400},
		{apierr.KindInvalidTimestamp, 400},
		{apierr.KindUpstreamUnavailable, 503},
		{apierr.KindRateLimited, 429},
		{apierr.KindInternal, 500},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.kind.Status(), string(tc.kind))
	}
}

func TestRespond_Envelope(t *testing.T) {
	resp, env := serve(t, func(c *gin.Context) {
		apierr.Respond(c, apierr.NotFound("Book not found"))
	}, "GET", "")

	assert.Equal(t, 404, resp.Code)
	assert.Equal(t, "Book not found", env.Error)
	assert.Equal(t, "/target", env.Path)
	assert.NotEmpty(t, env.Timestamp)
	assert.Nil(t, env.Details)
}

func TestRespond_ClassifiedDomainErrorWrapped(t *testing.T) {
	resp, env := serve(t, func(c *gin.Context) {
		apierr.Respond(c, fmt.Errorf("checkout: %w", outOfStock{ids: []string{"b1", "b2"}}))
	}, "POST", "")

	assert.Equal(t, 409, resp.Code)
	assert.Equal(t, "items unavailable", env.Error)
	details, ok := env.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, details["bookIds"], 2)
}

func TestRespond_UnknownErrorIsHidden(t *testing.T) {
	resp, env := serve(t, func(c *gin.Context) {
		apierr.Respond(c, errors.New("sqlite: disk I/O error at /var/lib/secret"))
	}, "GET", "")

	assert.Equal(t, 500, resp.Code)
	assert.Equal(t, "Internal server error", env.Error)
	assert.NotContains(t, resp.Body.String(), "sqlite")
}

func TestFromBinding_FieldDetails(t *testing.T) {
	type payload struct {
		Rating int `json:"rating" binding:"required,min=1,max=5"`
	}
	resp, env := serve(t, func(c *gin.Context) {
		var p payload
		if err := c.ShouldBindJSON(&p); err != nil {
			apierr.Respond(c, apierr.FromBinding(err))
			return
		}
		c.Status(http.StatusOK)
	}, "POST", `{"rating": 9}`)

	assert.Equal(t, 400, resp.Code)
	assert.Equal(t, "Validation failed", env.Error)
	fields, ok := env.Details.([]interface{})
	require.True(t, ok)
	require.Len(t, fields, 1)
	first := fields[0].(map[string]interface{})
	assert.Equal(t, "rating", first["field"])
	assert.Equal(t, "max", first["rule"])
}

func TestFromBinding_MalformedJSON(t *testing.T) {
	resp, env := serve(t, func(c *gin.Context) {
		var p map[string]int
		if err := c.ShouldBindJSON(&p); err != nil {
			apierr.Respond(c, apierr.FromBinding(err))
		}
	}, "POST", `{"rating": `)

	assert.Equal(t, 400, resp.Code)
	assert.Contains(t, []string{"Malformed JSON body", "Invalid request"}, env.Error)
}

func TestRecovery_PanicBecomesEnvelope(t *testing.T) {
	resp, env := serve(t, func(c *gin.Context) {
		panic("boom")
	}, "GET", "")

	assert.Equal(t, 500, resp.Code)
	assert.Equal(t, "Internal server error", env.Error)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, apierr.KindInternal, apierr.KindOf(errors.New("x")))
	assert.True(t, apierr.Is(fmt.Errorf("wrap: %w", apierr.Auth("nope")), apierr.KindAuth))
}
