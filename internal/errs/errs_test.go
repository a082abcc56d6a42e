package errs_test

import (
	"errors"
	"net/http"
	"testing"

	"skillswap/backend/internal/errs"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusRoundTrip(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{errs.Validation("title is required"), http.StatusBadRequest},
		{errs.Authorization("not the owner"), http.StatusForbidden},
		{errs.NotFound("service request"), http.StatusNotFound},
		{errs.State("request is %s", "completed"), http.StatusUnprocessableEntity},
		{errs.Conflict("already claimed"), http.StatusConflict},
		{errs.ErrUnauthenticated, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, errs.HTTPStatus(tt.err))

			back := errs.FromHTTPStatus(tt.code, tt.err.Error())
			assert.Equal(t, tt.code, errs.HTTPStatus(back))
			assert.Equal(t, tt.err.Error(), back.Error(), "sentinel text is not repeated")
		})
	}
}

func TestFromHTTPStatus_RawDetail(t *testing.T) {
	err := errs.FromHTTPStatus(http.StatusConflict, "request is completed")
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Equal(t, errs.ErrConflict.Error()+": request is completed", err.Error())
}

func TestHTTPStatus_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, errs.HTTPStatus(errors.New("db down")))
	assert.Error(t, errs.FromHTTPStatus(http.StatusBadGateway, "upstream"))
}
