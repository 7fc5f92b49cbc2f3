package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/geocoder89/captionhub/internal/auth"
	"github.com/geocoder89/captionhub/internal/domain/caption"
	"github.com/geocoder89/captionhub/internal/domain/user"
	"github.com/geocoder89/captionhub/internal/http/handlers"
	"github.com/geocoder89/captionhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Fakes with function fields; a nil field means "succeed with zero value".

type fakeUsers struct {
	createFn     func(ctx context.Context, email, hash, name string, role user.Role) (user.User, error)
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	getByIDFn    func(ctx context.Context, id string) (user.User, error)
	listFn       func(ctx context.Context) ([]user.User, error)
	updateFn     func(ctx context.Context, id string, req user.UpdateRequest) (user.User, error)
	updateRoleFn func(ctx context.Context, id string, role user.Role) (user.User, error)
	deleteFn     func(ctx context.Context, id string) error
}

func (f *fakeUsers) Create(ctx context.Context, email, hash, name string, role user.Role) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, email, hash, name, role)
	}
	return user.User{}, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{}, user.ErrNotFound
}

func (f *fakeUsers) List(ctx context.Context) ([]user.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeUsers) Update(ctx context.Context, id string, req user.UpdateRequest) (user.User, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return user.User{}, nil
}

func (f *fakeUsers) UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error) {
	if f.updateRoleFn != nil {
		return f.updateRoleFn(ctx, id, role)
	}
	return user.User{}, nil
}

func (f *fakeUsers) Delete(ctx context.Context, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeCaptions struct {
	createFn      func(ctx context.Context, userID, text, imageURL string) (caption.Caption, error)
	listOwnedFn   func(ctx context.Context, userID string, limit int) ([]caption.Caption, error)
	getOwnedFn    func(ctx context.Context, id, userID string) (caption.Caption, error)
	deleteOwnedFn func(ctx context.Context, id, userID string) (caption.Caption, error)
}

func (f *fakeCaptions) Create(ctx context.Context, userID, text, imageURL string) (caption.Caption, error) {
	if f.createFn != nil {
		return f.createFn(ctx, userID, text, imageURL)
	}
	return caption.Caption{ID: uuid.NewString(), UserID: userID, Text: text, ImageURL: imageURL}, nil
}

func (f *fakeCaptions) ListOwned(ctx context.Context, userID string, limit int) ([]caption.Caption, error) {
	if f.listOwnedFn != nil {
		return f.listOwnedFn(ctx, userID, limit)
	}
	return nil, nil
}

func (f *fakeCaptions) GetOwned(ctx context.Context, id, userID string) (caption.Caption, error) {
	if f.getOwnedFn != nil {
		return f.getOwnedFn(ctx, id, userID)
	}
	return caption.Caption{}, caption.ErrNotFound
}

func (f *fakeCaptions) DeleteOwned(ctx context.Context, id, userID string) (caption.Caption, error) {
	if f.deleteOwnedFn != nil {
		return f.deleteOwnedFn(ctx, id, userID)
	}
	return caption.Caption{}, caption.ErrNotFound
}

// plainHasher keeps tests fast: the "hash" is a prefix.
type plainHasher struct {
	burned int
}

func (h *plainHasher) Hash(p string) (string, error) { return "h:" + p, nil }

func (h *plainHasher) Check(hash, p string) error {
	if hash != "h:"+p {
		return errors.New("mismatch")
	}
	return nil
}

func (h *plainHasher) BurnCheck(string) { h.burned++ }

type fakeIssuer struct {
	issued []auth.Identity
}

func (f *fakeIssuer) Issue(id auth.Identity) (string, error) {
	f.issued = append(f.issued, id)
	return "token-for-" + id.UserID, nil
}

type fakeCaptioner struct {
	captionFn func(ctx context.Context, image []byte) (string, error)
}

func (f *fakeCaptioner) Caption(ctx context.Context, image []byte) (string, error) {
	if f.captionFn != nil {
		return f.captionFn(ctx, image)
	}
	return "a cat on a sofa", nil
}

type fakeImages struct {
	saved   []string
	deleted []string
	saveErr error
}

func (f *fakeImages) Save(ctx context.Context, contentType string, data []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	ref := "/uploads/" + uuid.NewString() + ".png"
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeImages) Delete(ctx context.Context, ref string) error {
	f.deleted = append(f.deleted, ref)
	return nil
}

// withIdentity stands in for RequireAuth so handler tests need no tokens.
func withIdentity(id auth.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middlewares.CtxIdentity, id)
		c.Next()
	}
}

func setupRouter(method, path string, h ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, h...)
	return r
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to unmarshal response: %v body=%s", err, w.Body.String())
	}
	return out
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("got status %d, want %d, body=%s", w.Code, want, w.Body.String())
	}
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	if got := decode(t, w)["error"]; got != want {
		t.Fatalf("got error %v, want %q", got, want)
	}
}

func multipartImage(t *testing.T, field, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="photo"`)
	hdr.Set("Content-Type", contentType)

	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	return &buf, mw.FormDataContentType()
}

var (
	annID  = uuid.NewString()
	bobID  = uuid.NewString()
	annIdt = auth.Identity{UserID: annID, Email: "ann@x.com", Name: "Ann", Role: user.RoleStandard}
	admIdt = auth.Identity{UserID: uuid.NewString(), Email: "root@x.com", Name: "Root", Role: user.RoleElevated}
)

func annUser() user.User {
	return user.User{
		ID:           annID,
		Email:        "ann@x.com",
		PasswordHash: "h:abc123",
		Name:         "Ann",
		Role:         user.RoleStandard,
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
