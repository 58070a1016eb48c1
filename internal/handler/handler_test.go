package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"assetdesk/internal/auth"
	"assetdesk/internal/middleware"
	"assetdesk/internal/model"
	"assetdesk/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// --- fake services ---

type fakeUsers struct {
	signupErr error
	loginRes  *service.TokenResponse
	loginErr  error
	me        *service.UserResponse
	calls     int
}

func (f *fakeUsers) Signup(ctx context.Context, req service.SignupRequest) (*service.UserResponse, error) {
	f.calls++
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return &service.UserResponse{ID: uuid.New(), Username: req.Username, Email: req.Email, Role: model.ResolveRole(req.Email)}, nil
}

func (f *fakeUsers) Login(ctx context.Context, req service.LoginRequest) (*service.TokenResponse, error) {
	f.calls++
	return f.loginRes, f.loginErr
}

func (f *fakeUsers) GetUserByID(ctx context.Context, id uuid.UUID) (*service.UserResponse, error) {
	f.calls++
	if f.me == nil || f.me.ID != id {
		return nil, fmt.Errorf("user %w", service.ErrNotFound)
	}
	return f.me, nil
}

func (f *fakeUsers) ListUsers(ctx context.Context, page, limit int) ([]service.UserResponse, int64, error) {
	f.calls++
	return []service.UserResponse{}, 0, nil
}

type createAssetCall struct {
	userID uuid.UUID
	req    service.CreateAssetRequest
	image  []byte
}

type fakeInventory struct {
	calls   int
	created []createAssetCall
	updated []service.UpdateAssetRequest
	err     error
	lastPg  [2]int
}

func (f *fakeInventory) CreateAsset(ctx context.Context, userID uuid.UUID, req service.CreateAssetRequest, image io.Reader) (service.AssetResponse, error) {
	f.calls++
	call := createAssetCall{userID: userID, req: req}
	if image != nil {
		call.image, _ = io.ReadAll(image)
	}
	f.created = append(f.created, call)
	if f.err != nil {
		return service.AssetResponse{}, f.err
	}
	return service.AssetResponse{ID: uuid.NewString(), Name: req.Name}, nil
}

func (f *fakeInventory) GetAsset(ctx context.Context, id string) (service.AssetResponse, error) {
	f.calls++
	if f.err != nil {
		return service.AssetResponse{}, f.err
	}
	return service.AssetResponse{ID: id}, nil
}

func (f *fakeInventory) UpdateAsset(ctx context.Context, userID uuid.UUID, id string, req service.UpdateAssetRequest, image io.Reader) (service.AssetResponse, error) {
	f.calls++
	f.updated = append(f.updated, req)
	return service.AssetResponse{ID: id}, f.err
}

func (f *fakeInventory) DeleteAsset(ctx context.Context, userID uuid.UUID, id string) error {
	f.calls++
	return f.err
}

func (f *fakeInventory) ListAssets(ctx context.Context, page, limit int) ([]service.AssetResponse, int64, error) {
	f.calls++
	f.lastPg = [2]int{page, limit}
	return []service.AssetResponse{{Name: "Laptop"}}, 1, nil
}

func (f *fakeInventory) AllocateAsset(ctx context.Context, userID uuid.UUID, id string, req service.AllocateAssetRequest) (service.AssetResponse, error) {
	f.calls++
	return service.AssetResponse{ID: id, AllocatedTo: &req.UserID}, f.err
}

type fakeRequests struct {
	calls     int
	createdBy uuid.UUID
}

func (f *fakeRequests) CreateRequest(ctx context.Context, userID uuid.UUID, req service.CreateRequestDTO) (service.RequestResponse, error) {
	f.calls++
	f.createdBy = userID
	return service.RequestResponse{ID: uuid.NewString(), UserID: userID.String(), AssetID: req.AssetID, Status: model.RequestStatusPending}, nil
}

func (f *fakeRequests) UpdateRequestStatus(ctx context.Context, userID uuid.UUID, id string, req service.UpdateRequestStatusDTO) (service.RequestResponse, error) {
	f.calls++
	return service.RequestResponse{ID: id, Status: req.Status}, nil
}

func (f *fakeRequests) ListPendingRequests(ctx context.Context) ([]service.RequestResponse, error) {
	f.calls++
	return []service.RequestResponse{}, nil
}

func (f *fakeRequests) ListCompletedRequests(ctx context.Context) ([]service.RequestResponse, error) {
	f.calls++
	return []service.RequestResponse{}, nil
}

func (f *fakeRequests) ListUserRequests(ctx context.Context, userID uuid.UUID) ([]service.RequestResponse, error) {
	f.calls++
	return []service.RequestResponse{}, nil
}

type fakeAudit struct {
	calls int
	query service.AuditQuery
}

func (f *fakeAudit) GetAuditLogs(ctx context.Context, query service.AuditQuery, page, limit int) ([]service.AuditLogResponse, int64, error) {
	f.calls++
	f.query = query
	return []service.AuditLogResponse{}, 0, nil
}

// --- harness ---

type harness struct {
	router    *gin.Engine
	tokens    *auth.TokenManager
	users     *fakeUsers
	inventory *fakeInventory
	requests  *fakeRequests
	audit     *fakeAudit
}

func newHarness() *harness {
	gin.SetMode(gin.TestMode)
	h := &harness{
		router:    gin.New(),
		tokens:    auth.NewTokenManager("handler-secret", time.Hour),
		users:     &fakeUsers{},
		inventory: &fakeInventory{},
		requests:  &fakeRequests{},
		audit:     &fakeAudit{},
	}
	gate := middleware.NewGate(h.tokens)
	root := h.router.Group("")
	NewUserHandler(h.users, gate).RegisterRoutes(root)
	NewInventoryHandler(h.inventory, gate).RegisterRoutes(root)
	NewRequestHandler(h.requests, gate).RegisterRoutes(root)
	NewAuditHandler(h.audit, gate).RegisterRoutes(root)
	return h
}

func (h *harness) token(id uuid.UUID, role model.Role) string {
	tok, err := h.tokens.Issue(id, role)
	if err != nil {
		panic(err)
	}
	return tok
}

func (h *harness) do(method, path, token, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) doJSON(method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	return h.do(method, path, token, "application/json", body)
}

type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

// --- tests ---

func TestForbiddenRoleNeverReachesService(t *testing.T) {
	h := newHarness()
	emp := h.token(uuid.New(), model.RoleEmployee)
	admin := h.token(uuid.New(), model.RoleAdmin)
	id := uuid.NewString()

	cases := []struct {
		method, path, token string
		payload             interface{}
	}{
		{http.MethodPost, "/inventory/assets", emp, map[string]string{"name": "a", "description": "d", "category": "c"}},
		{http.MethodPut, "/inventory/assets/" + id, emp, map[string]string{"name": "a"}},
		{http.MethodDelete, "/inventory/assets/" + id, emp, nil},
		{http.MethodPost, "/inventory/assets/" + id + "/allocate", admin, map[string]string{"user_id": id}},
		{http.MethodPost, "/inventory/requests", admin, map[string]interface{}{"asset_id": id, "reason": "r", "quantity": 1, "urgency": "low"}},
		{http.MethodPatch, "/inventory/requests/" + id, emp, map[string]string{"status": "approved"}},
		{http.MethodGet, "/inventory/requests/pending", admin, nil},
		{http.MethodGet, "/inventory/requests/completed", emp, nil},
		{http.MethodGet, "/inventory/users", emp, nil},
	}
	for _, tc := range cases {
		w := h.doJSON(tc.method, tc.path, tc.token, tc.payload)
		if w.Code != http.StatusForbidden {
			t.Fatalf("%s %s: status %d, want 403", tc.method, tc.path, w.Code)
		}
		if env := decode(t, w); env.Status != "error" {
			t.Fatalf("%s %s: envelope %+v", tc.method, tc.path, env)
		}
	}
	if h.inventory.calls+h.requests.calls+h.users.calls != 0 {
		t.Fatalf("services were called on denied requests")
	}
}

func TestUnknownRoleDeniedEverywhere(t *testing.T) {
	h := newHarness()
	tok := h.token(uuid.New(), model.Role("guest"))

	for _, path := range []string{"/inventory/assets", "/inventory/user/requests", "/auth/me"} {
		if w := h.doJSON(http.MethodGet, path, tok, nil); w.Code != http.StatusForbidden {
			t.Fatalf("GET %s: status %d, want 403", path, w.Code)
		}
	}
}

func TestCreateAssetJSON(t *testing.T) {
	h := newHarness()
	adminID := uuid.New()

	w := h.doJSON(http.MethodPost, "/inventory/assets", h.token(adminID, model.RoleAdmin), map[string]interface{}{
		"name": "Laptop", "description": "14 inch", "category": "hardware", "unit_cost": "1299.99",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if env := decode(t, w); env.Status != "success" {
		t.Fatalf("envelope %+v", env)
	}

	call := h.inventory.created[0]
	if call.userID != adminID || call.req.Name != "Laptop" || call.req.UnitCost == nil || call.req.UnitCost.String() != "1299.99" {
		t.Fatalf("unexpected call %+v", call)
	}
}

func TestCreateAssetValidationErrors(t *testing.T) {
	h := newHarness()

	w := h.doJSON(http.MethodPost, "/inventory/assets", h.token(uuid.New(), model.RoleAdmin), map[string]string{"description": "d", "category": "c"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	env := decode(t, w)
	if env.Errors["name"] != "required" {
		t.Fatalf("expected name/required in errors, got %+v", env.Errors)
	}
	if h.inventory.calls != 0 {
		t.Fatalf("service called with invalid payload")
	}
}

func multipartBody(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if image != nil {
		part, err := mw.CreateFormFile("image", "photo.png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = part.Write(image)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestCreateAssetMultipartPassesImage(t *testing.T) {
	h := newHarness()
	tok := h.token(uuid.New(), model.RoleProcurementManager)

	body, ct := multipartBody(t, map[string]string{"name": "Camera", "description": "d", "category": "av"}, []byte("pixels"))
	w := h.do(http.MethodPost, "/inventory/assets", tok, ct, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	call := h.inventory.created[0]
	if call.req.Name != "Camera" || string(call.image) != "pixels" {
		t.Fatalf("unexpected call %+v", call)
	}

	body, ct = multipartBody(t, map[string]string{"name": "Camera", "description": "d", "category": "av", "unit_cost": "cheap"}, nil)
	if w := h.do(http.MethodPost, "/inventory/assets", tok, ct, body); w.Code != http.StatusBadRequest {
		t.Fatalf("bad unit_cost: status %d", w.Code)
	}
}

func TestUpdateAssetMultipartOnlySetsPresentFields(t *testing.T) {
	h := newHarness()
	tok := h.token(uuid.New(), model.RoleAdmin)

	body, ct := multipartBody(t, map[string]string{"category": "furniture"}, nil)
	w := h.do(http.MethodPut, "/inventory/assets/"+uuid.NewString(), tok, ct, body)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	req := h.inventory.updated[0]
	if req.Name != nil || req.Description != nil || req.Category == nil || *req.Category != "furniture" {
		t.Fatalf("unexpected update %+v", req)
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("asset %w", service.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: s3 down", service.ErrMediaUpload), http.StatusBadGateway},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := newHarness()
		h.inventory.err = tc.err
		w := h.doJSON(http.MethodGet, "/inventory/assets/"+uuid.NewString(), h.token(uuid.New(), model.RoleEmployee), nil)
		if w.Code != tc.want {
			t.Fatalf("%v: status %d, want %d", tc.err, w.Code, tc.want)
		}
		env := decode(t, w)
		if tc.want == http.StatusInternalServerError && env.Message != "Internal server error" {
			t.Fatalf("internal error leaked: %q", env.Message)
		}
	}
}

func TestListAssetsPagingIsOptional(t *testing.T) {
	h := newHarness()
	tok := h.token(uuid.New(), model.RoleEmployee)

	w := h.doJSON(http.MethodGet, "/inventory/assets", tok, nil)
	if w.Code != http.StatusOK || h.inventory.lastPg != [2]int{0, 0} {
		t.Fatalf("unpaged: status %d pg %v", w.Code, h.inventory.lastPg)
	}
	var all []service.AssetResponse
	if err := json.Unmarshal(decode(t, w).Data, &all); err != nil || len(all) != 1 {
		t.Fatalf("expected a plain list, got %s", w.Body.String())
	}

	w = h.doJSON(http.MethodGet, "/inventory/assets?page=2&limit=5", tok, nil)
	if w.Code != http.StatusOK || h.inventory.lastPg != [2]int{2, 5} {
		t.Fatalf("paged: status %d pg %v", w.Code, h.inventory.lastPg)
	}
}

func TestCreateRequestUsesCallerIdentity(t *testing.T) {
	h := newHarness()
	empID := uuid.New()

	w := h.doJSON(http.MethodPost, "/inventory/requests", h.token(empID, model.RoleEmployee), map[string]interface{}{
		"asset_id": uuid.NewString(), "reason": "new hire", "quantity": 1, "urgency": "high", "user_id": uuid.NewString(),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if h.requests.createdBy != empID {
		t.Fatalf("request filed for %s, want caller %s", h.requests.createdBy, empID)
	}

	w = h.doJSON(http.MethodPost, "/inventory/requests", h.token(empID, model.RoleEmployee), map[string]interface{}{
		"asset_id": uuid.NewString(), "reason": "r", "quantity": 0, "urgency": "low",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("zero quantity: status %d", w.Code)
	}

	w = h.doJSON(http.MethodPost, "/inventory/requests", h.token(empID, model.RoleEmployee), map[string]interface{}{
		"asset_id": uuid.NewString(), "reason": "r", "quantity": int64(1) << 40, "urgency": "low",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized quantity: status %d", w.Code)
	}
	if env := decode(t, w); env.Errors["quantity"] != "lte" {
		t.Fatalf("expected quantity/lte in errors, got %+v", env.Errors)
	}
	if h.requests.calls != 1 {
		t.Fatalf("service called with invalid quantity")
	}
}

func TestAuditLogFilters(t *testing.T) {
	h := newHarness()
	admin := h.token(uuid.New(), model.RoleAdmin)
	entity := uuid.NewString()

	w := h.doJSON(http.MethodGet, "/inventory/audit-logs?action=UPDATE_ASSET&entity_id="+entity, admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if h.audit.query.Action != "UPDATE_ASSET" || h.audit.query.EntityID != entity {
		t.Fatalf("filters not passed through: %+v", h.audit.query)
	}

	w = h.doJSON(http.MethodGet, "/inventory/audit-logs?user_id=nope", admin, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad user_id: status %d", w.Code)
	}
	if env := decode(t, w); env.Errors["user_id"] != "uuid" {
		t.Fatalf("expected user_id/uuid in errors, got %+v", env.Errors)
	}
	if h.audit.calls != 1 {
		t.Fatalf("service called %d times, want 1", h.audit.calls)
	}

	emp := h.token(uuid.New(), model.RoleEmployee)
	if w := h.doJSON(http.MethodGet, "/inventory/audit-logs", emp, nil); w.Code != http.StatusForbidden {
		t.Fatalf("employee: status %d, want 403", w.Code)
	}
}

func TestSignupErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrDuplicateIdentity, http.StatusConflict},
		{service.ErrUnresolvedRole, http.StatusBadRequest},
	}
	for _, tc := range cases {
		h := newHarness()
		h.users.signupErr = tc.err
		w := h.doJSON(http.MethodPost, "/auth/signup", "", map[string]string{"username": "a", "email": "a@gmail.com", "password": "secret1"})
		if w.Code != tc.want {
			t.Fatalf("%v: status %d, want %d", tc.err, w.Code, tc.want)
		}
		if env := decode(t, w); env.Message != tc.err.Error() {
			t.Fatalf("message %q", env.Message)
		}
	}
}

func TestLoginSetsCookieAndLogoutClearsIt(t *testing.T) {
	h := newHarness()
	userID := uuid.New()
	tok := h.token(userID, model.RoleEmployee)
	h.users.loginRes = &service.TokenResponse{AccessToken: tok, TokenType: "Bearer", ExpiresIn: 3600, Role: model.RoleEmployee}

	w := h.doJSON(http.MethodPost, "/auth/login", "", map[string]string{"username": "a", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.AccessTokenCookie || cookies[0].Value != tok || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}

	w = h.doJSON(http.MethodPost, "/auth/logout", tok, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status %d", w.Code)
	}
	cleared := w.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("cookie not cleared: %+v", cleared)
	}

	h.users.loginRes, h.users.loginErr = nil, service.ErrInvalidCredentials
	if w := h.doJSON(http.MethodPost, "/auth/login", "", map[string]string{"username": "a", "password": "x"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d", w.Code)
	}
}

func TestGetMeReturnsCaller(t *testing.T) {
	h := newHarness()
	userID := uuid.New()
	h.users.me = &service.UserResponse{ID: userID, Username: "bob", Role: model.RoleProcurementManager}

	w := h.doJSON(http.MethodGet, "/auth/me", h.token(userID, model.RoleProcurementManager), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var me service.UserResponse
	if err := json.Unmarshal(decode(t, w).Data, &me); err != nil || me.Username != "bob" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}
