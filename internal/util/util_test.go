package util

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrWalletNotFound, http.StatusNotFound},
		{ErrEmailRegistered, http.StatusConflict},
		{ErrInvalidAmount, http.StatusBadRequest},
		{ErrInsufficientBalance, http.StatusForbidden},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrLedgerContention, http.StatusConflict},
		{fmt.Errorf("%w: timeout", ErrGatewayFailure), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), "%v", tc.err)
	}
}

func TestNewErrorUnwrapsToCategory(t *testing.T) {
	err := NewError(ErrValidation, "bad input")
	assert.Equal(t, "bad input", err.Error())
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPagination(t *testing.T) {
	cases := []struct {
		query     string
		page, lim int
	}{
		{"", DefaultPage, DefaultPageSize},
		{"page=3&limit=20", 3, 20},
		{"page=-1&limit=0", DefaultPage, DefaultPageSize},
		{"limit=5000", DefaultPage, MaxPageSize},
		{"page=abc", DefaultPage, DefaultPageSize},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+tc.query, nil)

		page, limit := Pagination(c)
		assert.Equal(t, tc.page, page, tc.query)
		assert.Equal(t, tc.lim, limit, tc.query)
	}

	assert.EqualValues(t, 3, Pages(21, 10))
	assert.EqualValues(t, 0, Pages(21, 0))
}

func TestParamID(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	id, ok := ParamID(c, "id")
	assert.True(t, ok)
	assert.EqualValues(t, 42, id)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	_, ok = ParamID(c, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, MustParseUint("-4"))
}

func TestHandleErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	HandleError(c, ErrInsufficientBalance)

	require.Equal(t, http.StatusForbidden, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Insufficient balance", body.Message)
	assert.Equal(t, "Forbidden", body.Error)
}

func TestValidateMimeType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000000000000000")
	mime, err := ValidateMimeType(bytes.NewReader(png), AllowedImageTypes)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.True(t, IsImage(mime))

	_, err = ValidateMimeType(strings.NewReader("plain text"), AllowedImageTypes)
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	name := ObjectName("profiles", "Me.JPG")
	assert.True(t, strings.HasPrefix(name, "profiles/"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.NotEqual(t, name, ObjectName("profiles", "Me.JPG"))
}
