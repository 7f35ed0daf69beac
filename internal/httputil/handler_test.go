package httputil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	nerrors "github.com/netopshub/netopshub/internal/errors"
	"github.com/netopshub/netopshub/internal/logging"
	"github.com/stretchr/testify/assert"
)

type echoReq struct {
	Name string `json:"name"`
}

type echoResp struct {
	Greeting string `json:"greeting"`
}

func TestHandleJSONSuccess(t *testing.T) {
	logger := logging.New("test", "info", "text")
	handler := HandleJSON(logger, func(ctx context.Context, req *echoReq) (echoResp, error) {
		return echoResp{Greeting: "hi " + req.Name}, nil
	})

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(`{"name":"dev"}`))
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hi dev")
}

func TestHandleJSONMapsDomainError(t *testing.T) {
	logger := logging.New("test", "info", "text")
	handler := HandleJSON(logger, func(ctx context.Context, req *echoReq) (echoResp, error) {
		return echoResp{}, nerrors.UnknownEntity("device", req.Name)
	})

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(`{"name":"d1"}`))
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleJSONMapsUnknownErrorToInternal(t *testing.T) {
	logger := logging.New("test", "info", "text")
	handler := HandleJSON(logger, func(ctx context.Context, req *echoReq) (echoResp, error) {
		return echoResp{}, assertErr{}
	})

	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(`{"name":"d1"}`))
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleNoBody(t *testing.T) {
	logger := logging.New("test", "info", "text")
	handler := HandleNoBody(logger, func(ctx context.Context) (echoResp, error) {
		return echoResp{Greeting: "static"}, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func jsonBody(s string) *strings.Reader { return strings.NewReader(s) }
