package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/mediapages/internal/domain/model"
	"github.com/ivankudzin/mediapages/internal/services/admission"
	authsvc "github.com/ivankudzin/mediapages/internal/services/auth"
	contentsvc "github.com/ivankudzin/mediapages/internal/services/content"
	"github.com/ivankudzin/mediapages/internal/services/ledger"
	pagesvc "github.com/ivankudzin/mediapages/internal/services/pages"
	"github.com/ivankudzin/mediapages/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/mediapages/internal/transport/http/errors"
)

const mb = 1 << 20

// memStore backs pages, the ledger and content for handler tests.
type memStore struct {
	mu          sync.Mutex
	pages       map[int64]model.MediaPage
	items       map[string]model.MediaItem
	unavailable bool
}

func newMemStore() *memStore {
	return &memStore{
		pages: map[int64]model.MediaPage{},
		items: map[string]model.MediaItem{},
	}
}

func (m *memStore) addPage(page model.MediaPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[page.ID] = page
}

func (m *memStore) Create(_ context.Context, in pagesvc.NewPage) (model.MediaPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := model.MediaPage{
		ID:             int64(len(m.pages) + 1),
		Code:           in.Code,
		LinkToken:      in.LinkToken,
		Title:          in.Title,
		PurchaserName:  in.PurchaserName,
		PurchaserEmail: in.PurchaserEmail,
		DBSizeLimit:    in.DBSizeLimit,
		UsageDuration:  in.UsageDuration,
		RemainingDays:  in.RemainingDays,
		IsActive:       true,
		CreatedAt:      in.CreatedAt,
		ExpiresAt:      in.ExpiresAt,
	}
	m.pages[page.ID] = page
	return page, nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (model.MediaPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}
	page, ok := m.pages[id]
	if !ok {
		return model.MediaPage{}, model.ErrNotFound
	}
	return page, nil
}

func (m *memStore) GetByLinkToken(_ context.Context, token string) (model.MediaPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return model.MediaPage{}, model.ErrStoreUnavailable
	}
	for _, p := range m.pages {
		if p.LinkToken == token {
			return p, nil
		}
	}
	return model.MediaPage{}, model.ErrNotFound
}

func (m *memStore) List(context.Context, pagesvc.ListFilter) ([]model.MediaPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.MediaPage, 0, len(m.pages))
	for _, p := range m.pages {
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) Extend(_ context.Context, id int64, extraDays int) (model.MediaPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[id]
	if !ok {
		return model.MediaPage{}, model.ErrNotFound
	}
	page.ExpiresAt = page.ExpiresAt.Add(time.Duration(extraDays) * 24 * time.Hour)
	m.pages[id] = page
	return page, nil
}

func (m *memStore) SetActive(_ context.Context, id int64, active bool) (model.MediaPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[id]
	if !ok {
		return model.MediaPage{}, model.ErrNotFound
	}
	page.IsActive = active
	m.pages[id] = page
	return page, nil
}

func (m *memStore) SaveRemainingDays(_ context.Context, id int64, days int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := m.pages[id]
	page.RemainingDays = days
	m.pages[id] = page
	return nil
}

func (m *memStore) GetUsage(_ context.Context, pageID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[pageID].DBUsage, nil
}

func (m *memStore) Debit(_ context.Context, pageID, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := m.pages[pageID]
	if page.DBUsage+n > page.DBSizeLimit {
		return 0, ledger.ErrQuotaExceeded
	}
	page.DBUsage += n
	m.pages[pageID] = page
	return page.DBUsage, nil
}

func (m *memStore) Credit(_ context.Context, pageID, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := m.pages[pageID]
	page.DBUsage = max(page.DBUsage-n, 0)
	m.pages[pageID] = page
	return page.DBUsage, nil
}

func (m *memStore) CreateItem(_ context.Context, item model.MediaItem) (model.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return item, nil
}

func (m *memStore) GetItem(_ context.Context, id string) (model.MediaItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return model.MediaItem{}, model.ErrNotFound
	}
	return item, nil
}

func (m *memStore) RemoveItem(_ context.Context, id string) (model.MediaItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return model.MediaItem{}, false, model.ErrStoreUnavailable
	}
	item, ok := m.items[id]
	if !ok {
		return model.MediaItem{}, false, model.ErrNotFound
	}
	if !item.IsActive {
		return item, false, nil
	}
	item.IsActive = false
	m.items[id] = item
	page := m.pages[item.PageID]
	page.DBUsage = max(page.DBUsage-item.Size, 0)
	m.pages[item.PageID] = page
	return item, true, nil
}

func (m *memStore) ListItems(context.Context, int64, int, int) ([]model.MediaItem, error) {
	return nil, nil
}

func (m *memStore) CreateMessage(_ context.Context, msg model.ChatMessage) (model.ChatMessage, error) {
	return msg, nil
}

func (m *memStore) ListMessages(context.Context, int64, time.Time, int) ([]model.ChatMessage, error) {
	return nil, nil
}

func (m *memStore) DeactivateMessage(context.Context, string) (bool, error) {
	return false, model.ErrNotFound
}

func (m *memStore) ReconcileUsage(context.Context, int64) (int64, int64, error) {
	return 0, 0, nil
}

type discardObjects struct{}

func (discardObjects) Put(_ context.Context, _ string, body io.Reader, _ int64, _ string) error {
	_, err := io.Copy(io.Discard, body)
	return err
}

func (discardObjects) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.test/" + key, nil
}

func (discardObjects) Delete(context.Context, string) error { return nil }

func newContentHandlerForTest(store *memStore) *ContentHandler {
	pages := pagesvc.NewManager(store, nil, pagesvc.Config{PublicBaseURL: "https://share.test"}, nil)
	registrar := contentsvc.NewRegistrar(ledger.New(store), admission.NewPolicy(nil), store, discardObjects{}, nil)
	return NewContentHandler(pages, registrar, nil, 0, nil)
}

func testPage(limit int64, expiresIn time.Duration) model.MediaPage {
	now := time.Now().UTC()
	return model.MediaPage{
		ID:            1,
		LinkToken:     "link-1",
		Title:         "Wedding",
		DBSizeLimit:   limit,
		UsageDuration: 30,
		IsActive:      true,
		CreatedAt:     now.Add(-time.Hour),
		ExpiresAt:     now.Add(expiresIn),
	}
}

func uploadRequest(t *testing.T, mimeType string, size int) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="clip.mp4"`)
	header.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte{1}, size)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/pages/link-1/items", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return withGuest(req, 7, 1)
}

func withGuest(req *http.Request, userID, pageID int64) *http.Request {
	ctx := authsvc.WithIdentity(req.Context(), authsvc.Identity{
		UserID: userID,
		PageID: pageID,
		SID:    "sid-test",
		Role:   "user",
	})
	return req.WithContext(withURLParam(ctx, "link", "link-1"))
}

func withURLParam(ctx context.Context, key, value string) context.Context {
	routeCtx, ok := ctx.Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || routeCtx == nil {
		routeCtx = chi.NewRouteContext()
	}
	routeCtx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}

func decodeAPIError(t *testing.T, rr *httptest.ResponseRecorder) httperrors.APIError {
	t.Helper()
	var apiErr httperrors.APIError
	if err := json.NewDecoder(rr.Body).Decode(&apiErr); err != nil {
		t.Fatalf("decode api error: %v", err)
	}
	return apiErr
}

func TestUploadCommitsAndReportsUsage(t *testing.T) {
	store := newMemStore()
	store.addPage(testPage(10*mb, 10*24*time.Hour))
	handler := newContentHandlerForTest(store)

	rr := httptest.NewRecorder()
	handler.Upload(rr, uploadRequest(t, "video/mp4", 4096))

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d want %d body=%s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	var resp dto.UploadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.UsageBytes != 4096 || resp.Item.Size != 4096 || resp.Item.Type != "video" {
		t.Fatalf("unexpected upload response: %+v", resp)
	}
}

func TestUploadDenialStatusCodes(t *testing.T) {
	cases := []struct {
		name     string
		page     func() model.MediaPage
		mimeType string
		size     int
		status   int
		code     string
	}{
		{
			name:     "quota",
			page:     func() model.MediaPage { return testPage(1024, 10*24*time.Hour) },
			mimeType: "video/mp4",
			size:     2048,
			status:   http.StatusRequestEntityTooLarge,
			code:     "QUOTA_EXCEEDED",
		},
		{
			name:     "unsupported",
			page:     func() model.MediaPage { return testPage(10*mb, 10*24*time.Hour) },
			mimeType: "application/x-msdownload",
			size:     16,
			status:   http.StatusUnsupportedMediaType,
			code:     "UNSUPPORTED_TYPE",
		},
		{
			name:     "expired",
			page:     func() model.MediaPage { return testPage(10*mb, -time.Hour) },
			mimeType: "video/mp4",
			size:     16,
			status:   http.StatusGone,
			code:     "PAGE_EXPIRED",
		},
		{
			name: "disabled",
			page: func() model.MediaPage {
				p := testPage(10*mb, 10*24*time.Hour)
				p.IsActive = false
				return p
			},
			mimeType: "video/mp4",
			size:     16,
			status:   http.StatusForbidden,
			code:     "PAGE_DISABLED",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			store.addPage(tc.page())
			handler := newContentHandlerForTest(store)

			rr := httptest.NewRecorder()
			handler.Upload(rr, uploadRequest(t, tc.mimeType, tc.size))

			if rr.Code != tc.status {
				t.Fatalf("unexpected status: got %d want %d", rr.Code, tc.status)
			}
			if apiErr := decodeAPIError(t, rr); apiErr.Code != tc.code {
				t.Fatalf("unexpected code: got %q want %q", apiErr.Code, tc.code)
			}
			if usage, _ := store.GetUsage(context.Background(), 1); usage != 0 {
				t.Fatalf("denied upload moved the ledger: usage=%d", usage)
			}
		})
	}
}

func TestUploadRejectsForeignSession(t *testing.T) {
	store := newMemStore()
	store.addPage(testPage(10*mb, 10*24*time.Hour))
	handler := newContentHandlerForTest(store)

	req := uploadRequest(t, "video/mp4", 16)
	req = req.WithContext(authsvc.WithIdentity(req.Context(), authsvc.Identity{UserID: 9, PageID: 2, SID: "sid-9"}))

	rr := httptest.NewRecorder()
	handler.Upload(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}

func TestStoreUnavailableReturnsRetryLater(t *testing.T) {
	store := newMemStore()
	store.unavailable = true
	handler := newContentHandlerForTest(store)

	rr := httptest.NewRecorder()
	handler.Upload(rr, uploadRequest(t, "video/mp4", 16))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusServiceUnavailable)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After header is missing")
	}
	if apiErr := decodeAPIError(t, rr); apiErr.Code != "RETRY_LATER" {
		t.Fatalf("unexpected code: %q", apiErr.Code)
	}
}

func TestPostMessageValidation(t *testing.T) {
	store := newMemStore()
	store.addPage(testPage(10*mb, 10*24*time.Hour))
	handler := newContentHandlerForTest(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/pages/link-1/messages", strings.NewReader(`{"kind":"sticker"}`))
	rr := httptest.NewRecorder()
	handler.PostMessage(rr, withGuest(req, 7, 1))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	apiErr := decodeAPIError(t, rr)
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Details["kind"] != "oneof" {
		t.Fatalf("unexpected validation error: %+v", apiErr)
	}
}

func TestPostMediaMessageRejectsMalformedItemID(t *testing.T) {
	store := newMemStore()
	store.addPage(testPage(10*mb, 10*24*time.Hour))
	handler := newContentHandlerForTest(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/pages/link-1/messages", strings.NewReader(`{"kind":"media","media_item_id":"abc"}`))
	rr := httptest.NewRecorder()
	handler.PostMessage(rr, withGuest(req, 7, 1))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	apiErr := decodeAPIError(t, rr)
	if apiErr.Code != "VALIDATION_ERROR" || apiErr.Details["media_item_id"] != "uuid" {
		t.Fatalf("unexpected validation error: %+v", apiErr)
	}
}

func TestDeleteItemWithMalformedID(t *testing.T) {
	store := newMemStore()
	store.addPage(testPage(10*mb, 10*24*time.Hour))
	handler := newContentHandlerForTest(store)

	req := httptest.NewRequest(http.MethodDelete, "/v1/items/abc", nil)
	req = withGuest(req, 7, 1)
	req = req.WithContext(withURLParam(req.Context(), "id", "abc"))
	rr := httptest.NewRecorder()
	handler.DeleteItem(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
	if apiErr := decodeAPIError(t, rr); apiErr.Code != "ITEM_NOT_FOUND" {
		t.Fatalf("unexpected code: %q", apiErr.Code)
	}
}

func TestAdminDeleteMessageWithMalformedID(t *testing.T) {
	store := newMemStore()
	registrar := contentsvc.NewRegistrar(ledger.New(store), admission.NewPolicy(nil), store, discardObjects{}, nil)
	handler := NewAdminHandler(nil, registrar, nil)

	req := httptest.NewRequest(http.MethodDelete, "/admin/messages/abc", nil)
	req = req.WithContext(withURLParam(req.Context(), "id", "abc"))
	rr := httptest.NewRecorder()
	handler.DeleteMessage(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
	if apiErr := decodeAPIError(t, rr); apiErr.Code != "MESSAGE_NOT_FOUND" {
		t.Fatalf("unexpected code: %q", apiErr.Code)
	}
}

func TestDeleteOwnItemCreditsUsage(t *testing.T) {
	store := newMemStore()
	store.addPage(testPage(10*mb, 10*24*time.Hour))
	handler := newContentHandlerForTest(store)

	rr := httptest.NewRecorder()
	handler.Upload(rr, uploadRequest(t, "video/mp4", 4096))
	if rr.Code != http.StatusCreated {
		t.Fatalf("upload failed: %d %s", rr.Code, rr.Body.String())
	}
	var uploaded dto.UploadResponse
	if err := json.NewDecoder(rr.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode upload: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/items/"+uploaded.Item.ID, nil)
	req = withGuest(req, 7, 1)
	req = req.WithContext(withURLParam(req.Context(), "id", uploaded.Item.ID))
	rr = httptest.NewRecorder()
	handler.DeleteItem(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d body=%s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if usage, _ := store.GetUsage(context.Background(), 1); usage != 0 {
		t.Fatalf("removal must credit usage, got %d", usage)
	}
}

func TestUploadOverRequestCapIsNotAQuotaDenial(t *testing.T) {
	store := newMemStore()
	store.addPage(testPage(10*mb, 10*24*time.Hour))
	pages := pagesvc.NewManager(store, nil, pagesvc.Config{PublicBaseURL: "https://share.test"}, nil)
	registrar := contentsvc.NewRegistrar(ledger.New(store), admission.NewPolicy(nil), store, discardObjects{}, nil)
	handler := NewContentHandler(pages, registrar, nil, 1024, nil)

	rr := httptest.NewRecorder()
	handler.Upload(rr, uploadRequest(t, "video/mp4", 2048))

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusRequestEntityTooLarge)
	}
	apiErr := decodeAPIError(t, rr)
	if apiErr.Code != "FILE_TOO_LARGE" || apiErr.Details["max_bytes"] != "1024" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if usage, _ := store.GetUsage(context.Background(), 1); usage != 0 {
		t.Fatalf("rejected upload moved the ledger: usage=%d", usage)
	}
}

func TestPostMessageOnExpiredPage(t *testing.T) {
	store := newMemStore()
	store.addPage(testPage(10*mb, -48*time.Hour))
	handler := newContentHandlerForTest(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/pages/link-1/messages", strings.NewReader(`{"kind":"text","body":"hi"}`))
	rr := httptest.NewRecorder()
	handler.PostMessage(rr, withGuest(req, 7, 1))

	if rr.Code != http.StatusGone {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusGone)
	}
}

func TestAdminCreatePageValidation(t *testing.T) {
	store := newMemStore()
	pages := pagesvc.NewManager(store, nil, pagesvc.Config{PublicBaseURL: "https://share.test"}, nil)
	handler := NewAdminHandler(pages, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/pages", strings.NewReader(`{"title":"Party","purchaser_email":"not-an-email"}`))
	rr := httptest.NewRecorder()
	handler.CreatePage(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusBadRequest)
	}
	apiErr := decodeAPIError(t, rr)
	if apiErr.Details["purchaser_name"] != "required" || apiErr.Details["purchaser_email"] != "email" {
		t.Fatalf("unexpected validation details: %+v", apiErr.Details)
	}
}

func TestAdminCreatePageReturnsShareURL(t *testing.T) {
	store := newMemStore()
	pages := pagesvc.NewManager(store, nil, pagesvc.Config{PublicBaseURL: "https://share.test"}, nil)
	handler := NewAdminHandler(pages, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/pages", strings.NewReader(`{"title":"Party","purchaser_name":"Ann","size_limit_mb":50,"duration_days":7}`))
	rr := httptest.NewRecorder()
	handler.CreatePage(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d want %d body=%s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	var resp dto.PageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SizeLimitBytes != 50*mb || resp.RemainingDays != 7 || resp.Status != "active" {
		t.Fatalf("unexpected page response: %+v", resp)
	}
	if !strings.HasPrefix(resp.ShareURL, "https://share.test/p/") {
		t.Fatalf("unexpected share url: %s", resp.ShareURL)
	}
}

func TestAdminQRCodeIsPNG(t *testing.T) {
	store := newMemStore()
	store.addPage(testPage(10*mb, 24*time.Hour))
	pages := pagesvc.NewManager(store, nil, pagesvc.Config{PublicBaseURL: "https://share.test"}, nil)
	handler := NewAdminHandler(pages, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/pages/1/qr.png", nil)
	req = req.WithContext(withURLParam(req.Context(), "id", "1"))
	rr := httptest.NewRecorder()
	handler.QRCode(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type: %s", ct)
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("body is not a png")
	}
}

func TestAdminGetUnknownPage(t *testing.T) {
	store := newMemStore()
	pages := pagesvc.NewManager(store, nil, pagesvc.Config{}, nil)
	handler := NewAdminHandler(pages, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/pages/42", nil)
	req = req.WithContext(withURLParam(req.Context(), "id", "42"))
	rr := httptest.NewRecorder()
	handler.GetPage(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestPublicPageViewBanner(t *testing.T) {
	store := newMemStore()
	page := testPage(10*mb, 36*time.Hour)
	page.DBUsage = 5 * mb
	store.addPage(page)
	handler := NewPagesHandler(pagesvc.NewManager(store, nil, pagesvc.Config{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/pages/link-1", nil)
	req = req.WithContext(withURLParam(req.Context(), "link", "link-1"))
	rr := httptest.NewRecorder()
	handler.View(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}
	var resp dto.PublicPageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RemainingDays != 2 || resp.UsagePercent != 50 || resp.Status != "active" {
		t.Fatalf("unexpected snapshot: %+v", resp)
	}
	if resp.Banner == "" {
		t.Fatalf("expected a low-days banner")
	}
}

func TestHealthReadyReportsFailingCheck(t *testing.T) {
	handler := NewHealthHandler(map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return model.ErrStoreUnavailable },
	})

	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusServiceUnavailable)
	}
}
