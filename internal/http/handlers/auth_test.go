package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/geocoder89/captionhub/internal/domain/user"
	"github.com/geocoder89/captionhub/internal/http/handlers"
)

func TestSignUp_CreatesStandardUser(t *testing.T) {
	var gotEmail, gotName, gotHash string
	var gotRole user.Role

	users := &fakeUsers{
		createFn: func(ctx context.Context, email, hash, name string, role user.Role) (user.User, error) {
			gotEmail, gotName, gotHash, gotRole = email, name, hash, role
			u := annUser()
			u.Email, u.Name, u.Role = email, name, role
			return u, nil
		},
	}
	issuer := &fakeIssuer{}
	h := handlers.NewAuthHandler(users, &plainHasher{}, issuer, nil)
	r := setupRouter(http.MethodPost, "/api/auth/signup", h.SignUp)

	w := doJSON(r, http.MethodPost, "/api/auth/signup", `{"name":"  Ann ","email":" Ann@X.com ","password":"abc123"}`)
	wantStatus(t, w, http.StatusCreated)

	if gotEmail != "ann@x.com" || gotName != "Ann" || gotHash != "h:abc123" || gotRole != user.RoleStandard {
		t.Fatalf("unexpected create args: %q %q %q %q", gotEmail, gotName, gotHash, gotRole)
	}

	body := decode(t, w)
	if body["token"] != "token-for-"+annID {
		t.Fatalf("unexpected token: %v", body["token"])
	}
	u := body["user"].(map[string]any)
	if u["role"] != "standard" || u["email"] != "ann@x.com" {
		t.Fatalf("unexpected user: %v", u)
	}
	if _, leaked := u["passwordHash"]; leaked {
		t.Fatalf("password hash leaked: %v", u)
	}
}

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantRule  string
	}{
		{name: "short_name", body: `{"name":"A","email":"a@x.com","password":"abc123"}`, wantField: "name", wantRule: "min"},
		{name: "blank_name_after_trim", body: `{"name":"   ","email":"a@x.com","password":"abc123"}`, wantField: "name", wantRule: "required"},
		{name: "bad_email", body: `{"name":"Ann","email":"nope","password":"abc123"}`, wantField: "email", wantRule: "email"},
		{name: "short_password", body: `{"name":"Ann","email":"a@x.com","password":"ab1"}`, wantField: "password", wantRule: "min"},
		{name: "password_without_digit", body: `{"name":"Ann","email":"a@x.com","password":"abcdef"}`, wantField: "password", wantRule: "hasdigit"},
		{name: "password_over_72_bytes", body: `{"name":"Ann","email":"a@x.com","password":"` + strings.Repeat("a", 72) + `1"}`, wantField: "password", wantRule: "maxbytes"},
		{name: "multibyte_password_over_72_bytes", body: `{"name":"Ann","email":"a@x.com","password":"` + strings.Repeat("€", 25) + `1"}`, wantField: "password", wantRule: "maxbytes"},
		{name: "empty_body", body: ``, wantField: "body", wantRule: "required"},
		{name: "bad_json", body: `{"name":`, wantField: "body", wantRule: "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &fakeUsers{
				createFn: func(ctx context.Context, email, hash, name string, role user.Role) (user.User, error) {
					t.Fatalf("store must not be called on invalid input")
					return user.User{}, nil
				},
			}
			h := handlers.NewAuthHandler(users, &plainHasher{}, &fakeIssuer{}, nil)
			r := setupRouter(http.MethodPost, "/api/auth/signup", h.SignUp)

			w := doJSON(r, http.MethodPost, "/api/auth/signup", tt.body)
			wantStatus(t, w, http.StatusBadRequest)

			body := decode(t, w)
			if body["error"] != "Validation failed" {
				t.Fatalf("unexpected error: %v", body["error"])
			}

			errs, _ := body["errors"].([]any)
			found := false
			for _, e := range errs {
				fe := e.(map[string]any)
				if fe["field"] == tt.wantField && fe["rule"] == tt.wantRule {
					found = true
				}
			}
			if !found {
				t.Fatalf("want %s/%s in errors, got %v", tt.wantField, tt.wantRule, errs)
			}
		})
	}
}

func TestSignUp_PasswordAtByteLimit(t *testing.T) {
	users := &fakeUsers{
		createFn: func(ctx context.Context, email, hash, name string, role user.Role) (user.User, error) {
			return annUser(), nil
		},
	}
	h := handlers.NewAuthHandler(users, &plainHasher{}, &fakeIssuer{}, nil)
	r := setupRouter(http.MethodPost, "/api/auth/signup", h.SignUp)

	password := strings.Repeat("a", user.MaxPasswordBytes-1) + "1"
	w := doJSON(r, http.MethodPost, "/api/auth/signup", `{"name":"Ann","email":"a@x.com","password":"`+password+`"}`)
	wantStatus(t, w, http.StatusCreated)
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	users := &fakeUsers{
		createFn: func(ctx context.Context, email, hash, name string, role user.Role) (user.User, error) {
			return user.User{}, user.ErrEmailTaken
		},
	}
	h := handlers.NewAuthHandler(users, &plainHasher{}, &fakeIssuer{}, nil)
	r := setupRouter(http.MethodPost, "/api/auth/signup", h.SignUp)

	w := doJSON(r, http.MethodPost, "/api/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"abc123"}`)
	wantStatus(t, w, http.StatusBadRequest)
	wantError(t, w, "User already exists")
}

func TestSignUp_StoreFailureIsGeneric(t *testing.T) {
	users := &fakeUsers{
		createFn: func(ctx context.Context, email, hash, name string, role user.Role) (user.User, error) {
			return user.User{}, errors.New("pq: connection reset")
		},
	}
	h := handlers.NewAuthHandler(users, &plainHasher{}, &fakeIssuer{}, nil)
	r := setupRouter(http.MethodPost, "/api/auth/signup", h.SignUp)

	w := doJSON(r, http.MethodPost, "/api/auth/signup", `{"name":"Ann","email":"ann@x.com","password":"abc123"}`)
	wantStatus(t, w, http.StatusInternalServerError)
	wantError(t, w, "Could not create user")
}

func TestLogin(t *testing.T) {
	users := &fakeUsers{
		getByEmailFn: func(ctx context.Context, email string) (user.User, error) {
			if email == "ann@x.com" {
				return annUser(), nil
			}
			return user.User{}, user.ErrNotFound
		},
	}

	t.Run("success", func(t *testing.T) {
		issuer := &fakeIssuer{}
		h := handlers.NewAuthHandler(users, &plainHasher{}, issuer, nil)
		r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

		w := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"ANN@x.com","password":"abc123"}`)
		wantStatus(t, w, http.StatusOK)

		if len(issuer.issued) != 1 || issuer.issued[0].UserID != annID {
			t.Fatalf("unexpected issued identities: %v", issuer.issued)
		}
	})

	t.Run("failures_are_identical", func(t *testing.T) {
		hasher := &plainHasher{}
		h := handlers.NewAuthHandler(users, hasher, &fakeIssuer{}, nil)
		r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

		wrongPass := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"ann@x.com","password":"nope12"}`)
		unknown := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"ghost@x.com","password":"abc123"}`)

		wantStatus(t, wrongPass, http.StatusUnauthorized)
		wantStatus(t, unknown, http.StatusUnauthorized)

		if wrongPass.Body.String() != unknown.Body.String() {
			t.Fatalf("bodies differ: %s vs %s", wrongPass.Body.String(), unknown.Body.String())
		}
		wantError(t, unknown, "Invalid email or password")

		if hasher.burned != 1 {
			t.Fatalf("expected one dummy comparison for unknown email, got %d", hasher.burned)
		}
	})
}

func TestProfile(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		users := &fakeUsers{getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			if id != annID {
				t.Fatalf("unexpected id %s", id)
			}
			return annUser(), nil
		}}
		h := handlers.NewAuthHandler(users, &plainHasher{}, &fakeIssuer{}, nil)
		r := setupRouter(http.MethodGet, "/api/auth/profile", withIdentity(annIdt), h.Profile)

		w := doJSON(r, http.MethodGet, "/api/auth/profile", "")
		wantStatus(t, w, http.StatusOK)
	})

	t.Run("deleted_after_issue", func(t *testing.T) {
		h := handlers.NewAuthHandler(&fakeUsers{}, &plainHasher{}, &fakeIssuer{}, nil)
		r := setupRouter(http.MethodGet, "/api/auth/profile", withIdentity(annIdt), h.Profile)

		w := doJSON(r, http.MethodGet, "/api/auth/profile", "")
		wantStatus(t, w, http.StatusNotFound)
		wantError(t, w, "User not found")
	})
}
