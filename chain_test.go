package usersvc

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jimiolaniyan/usersvc/auth"
	"github.com/jimiolaniyan/usersvc/schema"
)

type stubValidator struct {
	res schema.Result
	err error
}

func (s stubValidator) Validate(string, []byte) (schema.Result, error) { return s.res, s.err }

func TestChain_StopsAtFirstFailingStage(t *testing.T) {
	var calls []string
	pass := func(name string) Stage {
		return func(http.ResponseWriter, *http.Request, *Inbound) bool {
			calls = append(calls, name)
			return true
		}
	}
	fail := func(w http.ResponseWriter, _ *http.Request, _ *Inbound) bool {
		calls = append(calls, "fail")
		w.WriteHeader(http.StatusTeapot)
		return false
	}
	h := func(http.ResponseWriter, *http.Request, Inbound) { calls = append(calls, "handler") }

	w := httptest.NewRecorder()
	Chain(h, pass("a"), fail, pass("b")).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "fail"}, calls)
	assert.Equal(t, http.StatusTeapot, w.Code)

	calls = nil
	Chain(h, pass("a"), pass("b")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, calls)
}

func TestValidateShape(t *testing.T) {
	var got Inbound
	h := func(_ http.ResponseWriter, _ *http.Request, in Inbound) { got = in }

	tests := []struct {
		name     string
		v        ShapeValidator
		wantCode int
		wantBody string
	}{
		{name: "valid", v: stubValidator{res: schema.Result{Valid: true}}, wantCode: http.StatusOK},
		{
			name:     "invalid",
			v:        stubValidator{res: schema.Result{Errors: []schema.FieldError{{InstancePath: "/username", Keyword: "format", Message: "bad"}}}},
			wantCode: http.StatusBadRequest,
			wantBody: `{"message":"validation error","errors":[{"instancePath":"/username","keyword":"format","message":"bad"}]}`,
		},
		{
			name:     "unknown shape",
			v:        stubValidator{err: schema.ErrUnknownShape},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"message":"validation schema for LoginRequest not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = Inbound{}
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))

			Chain(h, ValidateShape(tt.v, schema.LoginRequest)).ServeHTTP(w, r)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
				assert.Nil(t, got.Body)
			} else {
				assert.Equal(t, `{"a":1}`, string(got.Body))
			}
		})
	}
}

type stubVerifier struct {
	claims auth.Claims
	err    error
}

func (s stubVerifier) Verify(string) (auth.Claims, error) { return s.claims, s.err }

func TestAuthenticate(t *testing.T) {
	var got Inbound
	h := func(_ http.ResponseWriter, _ *http.Request, in Inbound) { got = in }

	tests := []struct {
		name     string
		tokens   TokenVerifier
		wantCode int
		wantMsg  string
	}{
		{name: "missing", tokens: stubVerifier{err: auth.ErrMissingToken}, wantCode: http.StatusForbidden, wantMsg: "No token provided."},
		{name: "invalid", tokens: stubVerifier{err: auth.ErrInvalidToken}, wantCode: http.StatusUnauthorized, wantMsg: "Unauthorized!"},
		{name: "other", tokens: stubVerifier{err: errors.New("boom")}, wantCode: http.StatusUnauthorized, wantMsg: "Unauthorized!"},
		{name: "valid", tokens: stubVerifier{claims: auth.Claims{ID: "id1", Username: "a@b.com"}}, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = Inbound{}
			w := httptest.NewRecorder()

			Chain(h, Authenticate(tt.tokens)).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantMsg != "" {
				assert.JSONEq(t, `{"message":"`+tt.wantMsg+`"}`, w.Body.String())
				assert.Empty(t, got.Caller.ID)
				return
			}
			assert.Equal(t, "id1", got.Caller.ID)
		})
	}
}
