package usersvc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jimiolaniyan/usersvc/logger"
)

const msgSuccess = "success"

type sessionResponse struct {
	Token   string      `json:"token"`
	User    *AccountRef `json:"user,omitempty"`
	Message string      `json:"message"`
}

type subscribeResponse struct {
	SubscribedTo Profile `json:"subscribedTo"`
	Message      string  `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func RegisterHandler(svc Service) Handler {
	return func(w http.ResponseWriter, r *http.Request, in Inbound) {
		var req Credentials
		if err := json.Unmarshal(in.Body, &req); err != nil {
			encodeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s, err := svc.Register(r.Context(), req)
		if err != nil {
			encodeError(r.Context(), err, w)
			return
		}

		encodeJSON(w, http.StatusCreated, sessionResponse{Token: s.Token, User: &s.User, Message: msgSuccess})
	}
}

func LoginHandler(svc Service) Handler {
	return func(w http.ResponseWriter, r *http.Request, in Inbound) {
		var req Credentials
		if err := json.Unmarshal(in.Body, &req); err != nil {
			encodeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		token, err := svc.Login(r.Context(), req)
		if err != nil {
			encodeError(r.Context(), err, w)
			return
		}

		encodeJSON(w, http.StatusOK, sessionResponse{Token: token, Message: msgSuccess})
	}
}

func ChangePasswordHandler(svc Service) Handler {
	return func(w http.ResponseWriter, r *http.Request, in Inbound) {
		var req ChangePasswordRequest
		if err := json.Unmarshal(in.Body, &req); err != nil {
			encodeMessage(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s, err := svc.ChangePassword(r.Context(), req)
		if err != nil {
			encodeError(r.Context(), err, w)
			return
		}

		encodeJSON(w, http.StatusOK, sessionResponse{Token: s.Token, User: &s.User, Message: msgSuccess})
	}
}

func GetAccountHandler(svc Service) Handler {
	return func(w http.ResponseWriter, r *http.Request, _ Inbound) {
		p, err := svc.GetAccount(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			encodeError(r.Context(), err, w)
			return
		}

		encodeJSON(w, http.StatusOK, p)
	}
}

func SubscribeHandler(svc Service) Handler {
	return func(w http.ResponseWriter, r *http.Request, in Inbound) {
		p, err := svc.Subscribe(r.Context(), in.Caller.ID, chi.URLParam(r, "id"))
		if err != nil {
			encodeError(r.Context(), err, w)
			return
		}

		encodeJSON(w, http.StatusOK, subscribeResponse{SubscribedTo: p, Message: msgSuccess})
	}
}

func UnsubscribeHandler(svc Service) Handler {
	return func(w http.ResponseWriter, r *http.Request, in Inbound) {
		if err := svc.Unsubscribe(r.Context(), in.Caller.ID, chi.URLParam(r, "id")); err != nil {
			encodeError(r.Context(), err, w)
			return
		}

		encodeMessage(w, http.StatusOK, msgSuccess)
	}
}

func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	switch {
	case errors.Is(err, ErrInvalidID), errors.Is(err, ErrSubscribeSelf), errors.Is(err, ErrUnsubscribeSelf),
		errors.Is(err, ErrTargetNotFound), errors.Is(err, ErrExistingUsername):
		encodeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotSubscribed):
		encodeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrUnauthorized):
		encodeMessage(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrAlreadySubscribed):
		encodeMessage(w, http.StatusConflict, err.Error())
	default:
		logger.FromContext(ctx).Error("request failed", "error", err)
		encodeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func encodeMessage(w http.ResponseWriter, code int, msg string) {
	encodeJSON(w, code, messageResponse{Message: msg})
}

func encodeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
