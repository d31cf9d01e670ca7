package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus_MapsKnownTypes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &ValidationError{Message: "bad"}, http.StatusBadRequest},
		{"not found", &NotFoundError{Kind: "service", Name: "cache"}, http.StatusNotFound},
		{"conflict", &ConflictError{Message: "busy"}, http.StatusConflict},
		{"runtime", &RuntimeError{Cause: errors.New("boom")}, http.StatusBadGateway},
		{"store", &StoreError{Cause: errors.New("boom")}, http.StatusBadGateway},
		{"timeout", &Timeout{Message: "too slow"}, http.StatusGatewayTimeout},
		{"internal", &Internal{Cause: errors.New("boom")}, http.StatusInternalServerError},
		{"unclassified", errors.New("plain"), http.StatusInternalServerError},
		{"nil", nil, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestServiceStartFailed_Unwrap(t *testing.T) {
	cause := errors.New("pull failed")
	err := &ServiceStartFailed{Service: "cache", Stage: StagePull, Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "cache")
	assert.Contains(t, err.Error(), "pull")
}

func TestInstallInProgress_IsConflict(t *testing.T) {
	err := InstallInProgress()
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}
