package httputil

import (
	"context"
	"net/http"

	nerrors "github.com/netopshub/netopshub/internal/errors"
	"github.com/netopshub/netopshub/internal/logging"
)

// handleError logs the error and writes the appropriate HTTP status. A
// *nerrors.Error carries its own status and code; anything else maps to a
// generic 500.
func handleError(w http.ResponseWriter, r *http.Request, logger *logging.Logger, err error) {
	if logger != nil {
		logger.WithContext(r.Context()).WithError(err).Error("handler failed")
	}

	var domainErr *nerrors.Error
	if asDomainError(err, &domainErr) {
		WriteErrorResponse(w, r, domainErr.HTTPStatus, string(domainErr.Code), domainErr.Message, domainErr.Details)
		return
	}
	InternalError(w, "internal server error")
}

func asDomainError(err error, target **nerrors.Error) bool {
	de, ok := err.(*nerrors.Error)
	if !ok {
		return false
	}
	*target = de
	return true
}

// HandleJSON decodes a JSON request body into Req, calls fn, and writes the
// result as a JSON response, eliminating the repeated
// decode -> execute -> respond boilerplate every API handler otherwise needs.
func HandleJSON[Req any, Resp any](
	logger *logging.Logger,
	fn func(ctx context.Context, req *Req) (Resp, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if !DecodeJSON(w, r, &req) {
			return
		}
		resp, err := fn(r.Context(), &req)
		if err != nil {
			handleError(w, r, logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleNoBody handles requests that carry no JSON body (GET, DELETE).
func HandleNoBody[Resp any](
	logger *logging.Logger,
	fn func(ctx context.Context) (Resp, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := fn(r.Context())
		if err != nil {
			handleError(w, r, logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleNoBodyWithRequest is like HandleNoBody but also hands the raw
// *http.Request to fn, for handlers that need path or query parameters.
func HandleNoBodyWithRequest[Resp any](
	logger *logging.Logger,
	fn func(ctx context.Context, r *http.Request) (Resp, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := fn(r.Context(), r)
		if err != nil {
			handleError(w, r, logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// HandleJSONWithRequest is like HandleJSON but also hands the raw
// *http.Request to fn, for handlers that need path or query parameters
// alongside a decoded body.
func HandleJSONWithRequest[Req any, Resp any](
	logger *logging.Logger,
	fn func(ctx context.Context, r *http.Request, req *Req) (Resp, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Req
		if !DecodeJSON(w, r, &req) {
			return
		}
		resp, err := fn(r.Context(), r, &req)
		if err != nil {
			handleError(w, r, logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
