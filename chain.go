package usersvc

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jimiolaniyan/usersvc/auth"
	"github.com/jimiolaniyan/usersvc/logger"
	"github.com/jimiolaniyan/usersvc/schema"
)

// Inbound carries what a route's stages established about a request. It is
// handed to the handler explicitly.
type Inbound struct {
	Body   []byte
	Caller auth.Claims
}

type Handler func(w http.ResponseWriter, r *http.Request, in Inbound)

// Stage is one check of a route. A stage that returns false has already
// written the response.
type Stage func(w http.ResponseWriter, r *http.Request, in *Inbound) bool

type ShapeValidator interface {
	Validate(shape string, payload []byte) (schema.Result, error)
}

type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// Chain runs stages in order and calls h only when every stage passed.
func Chain(h Handler, stages ...Stage) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in Inbound
		for _, stage := range stages {
			if !stage(w, r, &in) {
				return
			}
		}
		h(w, r, in)
	})
}

// ValidateShape buffers the request body and checks it against shape.
func ValidateShape(v ShapeValidator, shape string) Stage {
	return func(w http.ResponseWriter, r *http.Request, in *Inbound) bool {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				encodeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
				return false
			}
			encodeMessage(w, http.StatusBadRequest, "invalid request body")
			return false
		}

		res, err := v.Validate(shape, body)
		if err != nil {
			logger.FromContext(r.Context()).Error("validation failed", "shape", shape, "error", err)
			encodeMessage(w, http.StatusInternalServerError, fmt.Sprintf("validation schema for %s not found", shape))
			return false
		}
		if !res.Valid {
			encodeJSON(w, http.StatusBadRequest, validationErrorResponse{Message: "validation error", Errors: res.Errors})
			return false
		}

		in.Body = body
		return true
	}
}

// Authenticate verifies the presented token and records the caller.
func Authenticate(tokens TokenVerifier) Stage {
	return func(w http.ResponseWriter, r *http.Request, in *Inbound) bool {
		claims, err := tokens.Verify(auth.TokenFromRequest(r))
		if err != nil {
			if errors.Is(err, auth.ErrMissingToken) {
				encodeMessage(w, http.StatusForbidden, "No token provided.")
				return false
			}
			logger.FromContext(r.Context()).Debug("token rejected", "error", err)
			encodeMessage(w, http.StatusUnauthorized, "Unauthorized!")
			return false
		}

		in.Caller = claims
		return true
	}
}

type validationErrorResponse struct {
	Message string              `json:"message"`
	Errors  []schema.FieldError `json:"errors"`
}
