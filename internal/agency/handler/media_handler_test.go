package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/braincreator/flow-masters/internal/agency/entity"
	"github.com/braincreator/flow-masters/internal/agency/testutil"
)

// memStore keeps objects in memory and signs fake links.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return nil
}

func (s *memStore) PresignedURL(_ context.Context, key string, _ time.Duration, _ string) (string, error) {
	return "https://files.test/" + key + "?sig=1", nil
}

func (s *memStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func multipartFile(t *testing.T, name, contentType string, data []byte) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("Failed to create part: %v", err)
	}
	part.Write(data)
	mw.WriteField("alt", "Brand guide")
	mw.Close()
	return buf.Bytes(), mw.FormDataContentType()
}

func TestMediaUploadAndGet(t *testing.T) {
	store := newMemStore()
	srv := newTestServerWithStore(t, store)
	uploader := testutil.SeedUser(t, srv.DB, "spec-1", entity.RoleSpecialist)
	manager := testutil.SeedUser(t, srv.DB, "mgr-1", entity.RoleManager)

	body, ct := multipartFile(t, "brand guide.pdf", "application/pdf", []byte("%PDF-1.4"))
	w := testutil.DoRequestWithHeaders(srv.Router, "POST", "/api/media", body, testutil.Token(uploader), map[string]string{"Content-Type": ct})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.Data(w)
	mediaID, _ := data["id"].(string)
	key, _ := data["object_key"].(string)
	if mediaID == "" || key != "media/"+mediaID+"/brand_guide.pdf" {
		t.Fatalf("Unexpected media: %v", data)
	}
	if data["alt"] != "Brand guide" || data["mime_type"] != "application/pdf" {
		t.Errorf("Unexpected metadata: %v", data)
	}
	if string(store.objects[key]) != "%PDF-1.4" {
		t.Errorf("Expected object stored, got %q", store.objects[key])
	}

	for _, u := range []*entity.User{uploader, manager} {
		w = testutil.DoRequest(srv.Router, "GET", "/api/media/"+mediaID, nil, testutil.Token(u))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200 for %s, got %d: %s", u.Role, w.Code, w.Body.String())
		}
		if url := testutil.Data(w)["url"]; url != "https://files.test/"+key+"?sig=1" {
			t.Errorf("Expected signed url for %s, got %v", u.Role, url)
		}
	}
}

func TestMediaHiddenFromOtherUsers(t *testing.T) {
	srv := newTestServerWithStore(t, newMemStore())
	uploader := testutil.SeedUser(t, srv.DB, "spec-1", entity.RoleSpecialist)
	otherSpec := testutil.SeedUser(t, srv.DB, "spec-2", entity.RoleSpecialist)
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)

	body, ct := multipartFile(t, "contract.pdf", "application/pdf", []byte("signed"))
	w := testutil.DoRequestWithHeaders(srv.Router, "POST", "/api/media", body, testutil.Token(uploader), map[string]string{"Content-Type": ct})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	mediaID := testutil.Data(w)["id"].(string)

	for _, u := range []*entity.User{otherSpec, customer} {
		w = testutil.DoRequest(srv.Router, "GET", "/api/media/"+mediaID, nil, testutil.Token(u))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for %s, got %d: %s", u.ID, w.Code, w.Body.String())
		}
	}
}

func TestMediaUploadRequiresStaff(t *testing.T) {
	srv := newTestServerWithStore(t, newMemStore())
	customer := testutil.SeedUser(t, srv.DB, "cust-1", entity.RoleCustomer)

	body, ct := multipartFile(t, "logo.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	w := testutil.DoRequestWithHeaders(srv.Router, "POST", "/api/media", body, testutil.Token(customer), map[string]string{"Content-Type": ct})
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMediaUploadWithoutStorage(t *testing.T) {
	srv := newTestServer(t)
	manager := testutil.SeedUser(t, srv.DB, "mgr-1", entity.RoleManager)

	body, ct := multipartFile(t, "logo.png", "image/png", []byte("png"))
	w := testutil.DoRequestWithHeaders(srv.Router, "POST", "/api/media", body, testutil.Token(manager), map[string]string{"Content-Type": ct})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d: %s", w.Code, w.Body.String())
	}
}
