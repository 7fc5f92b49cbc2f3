package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/geocoder89/captionhub/internal/domain/user"
	"github.com/geocoder89/captionhub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindErrorResponse struct {
	Error  string                `json:"error"`
	Errors []handlers.FieldError `json:"errors"`
}

func bindRouter() *gin.Engine {
	return setupRouter(http.MethodPost, "/bind", func(ctx *gin.Context) {
		var req user.SignUpRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.JSON(http.StatusOK, req)
	})
}

func TestBindJSON_ValidationErrorsUseJSONFieldNames(t *testing.T) {
	w := doJSON(bindRouter(), http.MethodPost, "/bind", `{"name":"A"}`)
	wantStatus(t, w, http.StatusBadRequest)

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v body=%s", err, w.Body.String())
	}

	if resp.Error != "Validation failed" {
		t.Fatalf("unexpected error: %s", resp.Error)
	}

	wantRules := map[string]string{
		"name":     "min",
		"email":    "required",
		"password": "required",
	}

	got := map[string]handlers.FieldError{}
	for _, fe := range resp.Errors {
		got[fe.Field] = fe
	}

	for field, rule := range wantRules {
		fe, ok := got[field]
		if !ok {
			t.Fatalf("missing field %q in %v", field, resp.Errors)
		}
		if fe.Rule != rule {
			t.Fatalf("field %q: got rule %q, want %q", field, fe.Rule, rule)
		}
		if fe.Message == "" {
			t.Fatalf("field %q has no message", field)
		}
	}
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	w := doJSON(bindRouter(), http.MethodPost, "/bind", `{"name":42,"email":"a@x.com","password":"abc123"}`)
	wantStatus(t, w, http.StatusBadRequest)

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}

	if len(resp.Errors) != 1 || resp.Errors[0].Field != "name" || resp.Errors[0].Rule != "type" {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}
}

func TestBindJSON_NormalizesBeforeValidating(t *testing.T) {
	w := doJSON(bindRouter(), http.MethodPost, "/bind", `{"name":" Ann ","email":" ANN@X.COM ","password":"abc123"}`)
	wantStatus(t, w, http.StatusOK)

	var got user.SignUpRequest
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != "Ann" || got.Email != "ann@x.com" {
		t.Fatalf("not normalized: %+v", got)
	}
}

func TestBindJSON_RoleOneOf(t *testing.T) {
	r := setupRouter(http.MethodPost, "/role", func(ctx *gin.Context) {
		var req user.UpdateRoleRequest
		if !handlers.BindJSON(ctx, &req) {
			return
		}
		ctx.Status(http.StatusNoContent)
	})

	wantStatus(t, doJSON(r, http.MethodPost, "/role", `{"role":"PREMIUM"}`), http.StatusNoContent)

	w := doJSON(r, http.MethodPost, "/role", `{"role":"admin"}`)
	wantStatus(t, w, http.StatusBadRequest)

	var resp bindErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Errors) != 1 || resp.Errors[0].Rule != "oneof" {
		t.Fatalf("unexpected errors: %+v", resp.Errors)
	}
}
