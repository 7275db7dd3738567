package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/index"
	"github.com/starford/ansuz/internal/linkgraph"
	"github.com/starford/ansuz/internal/testutil"
)

// testEnv sets up a temp docs tree, service, and router for testing.
// authEnabled=false means disabled mode; a non-empty token enables auth.
func testEnv(t *testing.T, authToken string) (*docservice.Service, http.Handler) {
	t.Helper()

	_, store := testutil.TestTree(t, map[string]string{
		"index.md":      "[Guide](guide.md)\n",
		"guide.md":      "## Setup\ninstall the binary\n",
		"glossary.md":   "- API: REST interface\n",
		"specs/auth.md": "---\nspecId: AUTH-001\ntitle: Login flow\nstatus: approved\nversion: 1.0.0\n---\nbody\n",
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager, err := index.NewManager(store, index.Config{
		SpecsDir:     "specs",
		GlossaryPath: "glossary.md",
	}, logger)
	if err != nil {
		t.Fatal(err)
	}
	svc := docservice.NewService(store, manager, linkgraph.New(store, "", logger))
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func doGet(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListAndGetDocs(t *testing.T) {
	_, router := testEnv(t, "")

	w := doGet(t, router, "/docs")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list struct {
		Files []string `json:"files"`
		Total int      `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 4 {
		t.Errorf("total = %d, files = %v", list.Total, list.Files)
	}

	w = doGet(t, router, "/docs?prefix=specs/")
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || list.Files[0] != "specs/auth.md" {
		t.Errorf("filtered = %+v", list)
	}

	w = doGet(t, router, "/docs/guide.md")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var doc map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	if doc["path"] != "guide.md" || doc["content"] == "" {
		t.Errorf("doc = %v", doc)
	}

	w = doGet(t, router, "/docs/missing.md")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing doc status = %d", w.Code)
	}
}

func TestGetDocSection(t *testing.T) {
	_, router := testEnv(t, "")

	w := doGet(t, router, "/docs/guide.md?heading=Setup")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var sec struct {
		Title string `json:"title"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &sec)
	if sec.Title != "Setup" {
		t.Errorf("section = %+v", sec)
	}

	if w := doGet(t, router, "/docs/guide.md?heading=Nope"); w.Code != http.StatusNotFound {
		t.Errorf("missing section status = %d", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := doGet(t, router, "/search?q=setup")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Results []struct {
			File  string `json:"file"`
			Score int    `json:"score"`
		} `json:"results"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) == 0 || resp.Results[0].File != "guide.md" {
		t.Errorf("results = %+v", resp.Results)
	}

	if w := doGet(t, router, "/search"); w.Code != http.StatusBadRequest {
		t.Errorf("missing query status = %d", w.Code)
	}
}

func TestGlossaryEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := doGet(t, router, "/glossary?term=api")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var entry struct {
		Term       string `json:"term"`
		Definition string `json:"definition"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &entry)
	if entry.Term != "API" || entry.Definition != "REST interface" {
		t.Errorf("entry = %+v", entry)
	}

	if w := doGet(t, router, "/glossary?term=nope"); w.Code != http.StatusNotFound {
		t.Errorf("unknown term status = %d", w.Code)
	}
}

func TestSpecEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	w := doGet(t, router, "/specs")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var idx struct {
		Specs  []map[string]any `json:"specs"`
		Errors []any            `json:"errors"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &idx)
	if len(idx.Specs) != 1 || len(idx.Errors) != 0 {
		t.Errorf("index = %+v", idx)
	}

	w = doGet(t, router, "/specs/auth-001")
	if w.Code != http.StatusOK {
		t.Fatalf("lookup status = %d", w.Code)
	}
	var rec map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &rec)
	if rec["specId"] != "AUTH-001" {
		t.Errorf("record = %v", rec)
	}

	if w := doGet(t, router, "/specs/ZZZ-9"); w.Code != http.StatusNotFound {
		t.Errorf("unknown spec status = %d", w.Code)
	}

	w = doGet(t, router, "/specs?q=login")
	var search struct {
		Results []map[string]any `json:"results"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &search)
	if len(search.Results) != 1 {
		t.Errorf("search = %+v", search)
	}
}

func TestLinkGraphEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	w := doGet(t, router, "/backlinks/guide.md")
	if w.Code != http.StatusOK {
		t.Fatalf("backlinks status = %d", w.Code)
	}
	var bl struct {
		BacklinksCount int `json:"backlinksCount"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &bl)
	if bl.BacklinksCount != 1 {
		t.Errorf("backlinks = %+v", bl)
	}

	w = doGet(t, router, "/validate")
	if w.Code != http.StatusOK {
		t.Fatalf("validate status = %d", w.Code)
	}
	var report struct {
		BrokenLinks int `json:"brokenLinks"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &report)
	if report.BrokenLinks != 0 {
		t.Errorf("report = %+v", report)
	}

	w = doGet(t, router, "/orphans")
	if w.Code != http.StatusOK {
		t.Fatalf("orphans status = %d", w.Code)
	}
}

func TestUpdateBacklinksEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/backlinks", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res struct {
		Updated int `json:"updated"`
		Total   int `json:"total"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Updated == 0 || res.Total != 4 {
		t.Errorf("result = %+v", res)
	}

	// Dry run on the now-converged tree reports nothing to change.
	req = httptest.NewRequest(http.MethodPost, "/backlinks?dryRun=true", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Updated != 0 {
		t.Errorf("dry run after converge = %+v", res)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret")

	if w := doGet(t, router, "/docs"); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authenticated status = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/docs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d", w.Code)
	}
}

func TestRebuildEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/rebuild", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res struct {
		Changed bool `json:"changed"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Changed {
		t.Error("rebuild on unchanged tree must report changed=false")
	}
	if svc.Index() == nil {
		t.Fatal("index missing")
	}
}
