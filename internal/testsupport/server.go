package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

const (
	fakeCookieName  = "sessionid"
	fakeCookieValue = "fake-session"
)

// FakeConversion is the server-side record kept by FakeServer.
type FakeConversion struct {
	ID          string
	Title       string
	URL         string
	Status      string
	ListStatus  int
	ContentType string
	Body        []byte
	Log         string
	Form        url.Values
}

// FakeServer is an in-memory conversion server speaking the client contract.
type FakeServer struct {
	server *httptest.Server

	mu          sync.Mutex
	conversions map[string]*FakeConversion
	order       []string
	forced      map[string]int
	calls       map[string]int
	headers     []http.Header
	expired     bool
	startCode   int
	nextID      int
	retryIDs    map[string]string
}

// NewFakeServer starts a fake conversion server closed at test cleanup.
func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()

	fake := &FakeServer{
		conversions: make(map[string]*FakeConversion),
		forced:      make(map[string]int),
		calls:       make(map[string]int),
		retryIDs:    make(map[string]string),
	}

	r := chi.NewRouter()
	r.Use(fake.record)
	r.Use(fake.authenticate)
	r.Post("/start", fake.handleStart)
	r.Get("/status/{id}", fake.handleStatus)
	r.Get("/retry/{id}", fake.handleRetry)
	r.Get("/delete/{id}", fake.handleDelete)
	r.Get("/download/{id}", fake.handleDownload)
	r.Get("/log/{id}", fake.handleLog)
	r.Get("/list", fake.handleList)

	fake.server = httptest.NewServer(r)
	t.Cleanup(fake.server.Close)
	return fake
}

// URL returns the server root.
func (f *FakeServer) URL() string { return f.server.URL }

// CookieName returns the session cookie name the server expects.
func (f *FakeServer) CookieName() string { return fakeCookieName }

// CookieValue returns the session cookie value the server accepts.
func (f *FakeServer) CookieValue() string { return fakeCookieValue }

// Add registers a conversion. An empty Status defaults to "processing".
func (f *FakeServer) Add(conv FakeConversion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addLocked(conv)
}

func (f *FakeServer) addLocked(conv FakeConversion) {
	if conv.Status == "" {
		conv.Status = "processing"
	}
	if _, ok := f.conversions[conv.ID]; !ok {
		f.order = append(f.order, conv.ID)
	}
	stored := conv
	f.conversions[conv.ID] = &stored
}

// SetStatus updates the reported status and content type of a conversion.
func (f *FakeServer) SetStatus(id, status, contentType string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversions[id]
	if !ok {
		return
	}
	conv.Status = status
	conv.ContentType = contentType
	delete(f.forced, id)
}

// ForceStatusCode makes /status/{id} answer with the given HTTP code.
func (f *FakeServer) ForceStatusCode(id string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forced[id] = code
}

// FailStart makes POST /start answer with the given HTTP code. Zero restores
// normal behaviour.
func (f *FakeServer) FailStart(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCode = code
}

// SetRetryID fixes the id returned by /retry/{id}.
func (f *FakeServer) SetRetryID(id, newID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retryIDs[id] = newID
}

// ExpireSession makes every subsequent request answer 403.
func (f *FakeServer) ExpireSession() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expired = true
}

// Calls returns how often "METHOD /path" was requested.
func (f *FakeServer) Calls(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method+" "+path]
}

// Conversion returns a copy of the stored conversion.
func (f *FakeServer) Conversion(id string) (FakeConversion, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversions[id]
	if !ok {
		return FakeConversion{}, false
	}
	return *conv, true
}

// Headers returns the request headers seen so far.
func (f *FakeServer) Headers() []http.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]http.Header, len(f.headers))
	copy(out, f.headers)
	return out
}

func (f *FakeServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.Method+" "+r.URL.Path]++
		f.headers = append(f.headers, r.Header.Clone())
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		expired := f.expired
		f.mu.Unlock()
		cookie, err := r.Cookie(fakeCookieName)
		if expired || err != nil || cookie.Value != fakeCookieValue {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startCode != 0 {
		writeJSON(w, f.startCode, map[string]string{"error": "start rejected"})
		return
	}
	target := r.PostForm.Get("url")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No URL provided"})
		return
	}
	id := f.newIDLocked()
	f.addLocked(FakeConversion{
		ID:    id,
		Title: r.PostForm.Get("title"),
		URL:   target,
		Form:  r.PostForm,
	})
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (f *FakeServer) newIDLocked() string {
	for {
		f.nextID++
		id := fmt.Sprintf("job-%d", f.nextID)
		if _, taken := f.conversions[id]; !taken {
			return id
		}
	}
}

func (f *FakeServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	if code, ok := f.forced[id]; ok {
		writeJSON(w, code, map[string]string{"error": http.StatusText(code)})
		return
	}
	conv, ok := f.conversions[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversion not found"})
		return
	}
	body := map[string]string{"status": conv.Status}
	if conv.Status == "completed" {
		body["content_type"] = conv.ContentType
		body["result"] = "/results/" + conv.ID
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *FakeServer) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversions[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversion not found"})
		return
	}
	newID, fixed := f.retryIDs[id]
	if !fixed {
		newID = f.newIDLocked()
	}
	if newID != "" && newID != id {
		f.addLocked(FakeConversion{ID: newID, Title: conv.Title, URL: conv.URL, Form: conv.Form})
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": newID})
}

func (f *FakeServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversions[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversion not found"})
		return
	}
	conv.ListStatus = -1
	writeJSON(w, http.StatusOK, map[string]string{})
}

func (f *FakeServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	conv, ok := f.conversions[id]
	var body []byte
	var contentType string
	if ok {
		body = append([]byte(nil), conv.Body...)
		contentType = conv.ContentType
		ok = conv.Status == "completed"
	}
	f.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversion not done"})
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (f *FakeServer) handleLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversions[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Conversion not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"log": conv.Log})
}

func (f *FakeServer) handleList(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	type entry struct {
		ID     string `json:"id"`
		URL    string `json:"url"`
		Title  string `json:"title"`
		Status int    `json:"status"`
	}
	entries := make([]entry, 0, len(f.order))
	for _, id := range f.order {
		conv := f.conversions[id]
		entries = append(entries, entry{ID: conv.ID, URL: conv.URL, Title: conv.Title, Status: conv.ListStatus})
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversions": entries})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
