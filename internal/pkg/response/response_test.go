package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldwork/internal/pkg/apperror"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperror.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED"},
		{fmt.Errorf("%w: not your job", apperror.ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{fmt.Errorf("%w: job 1", apperror.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{apperror.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{apperror.ErrIllegalTransition, http.StatusUnprocessableEntity, "ILLEGAL_TRANSITION"},
		{errors.New("sql: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tc := range cases {
		status, code := Status(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestFromErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.Len(t, c.Errors, 1)
}

func TestFromErrorShowsBusinessMessage(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	FromError(c, fmt.Errorf("%w: cannot reduce total stock below currently borrowed amount (3)", apperror.ErrBelowBorrowed))

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "BELOW_BORROWED", body.Error.Code)
	assert.Equal(t, "cannot reduce total stock below currently borrowed amount (3)", body.Error.Message)
}
