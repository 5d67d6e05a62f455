package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"statlab/adapters/stats/pca"
	"statlab/adapters/stats/regress"
	"statlab/app"
	"statlab/internal"
	"statlab/internal/testkit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testCSV = `height,weight,age
170,65,30
180,80,41
165,60,25
175,75,36
172,68,29
168,66,33
182,85,45
177,78,38
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	datasets := testkit.NewMemDatasetRepo()
	analyses := testkit.NewMemAnalysisRepo()
	logger := internal.NewLogger(internal.LogLevelError)
	registry := app.NewRegistry(pca.New(), regress.New())
	dsSvc := app.NewDatasetService(datasets, analyses, logger)
	anSvc := app.NewAnalysisService(datasets, analyses, registry, testkit.StubRenderer{}, logger, 4)
	return NewServer(dsSvc, anSvc, logger, 1<<20)
}

func uploadCSV(t *testing.T, srv *Server, filename, content string) string {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Dataset struct {
			ID string `json:"id"`
		} `json:"dataset"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return resp.Dataset.ID
}

func doJSON(srv *Server, method, path string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServer_UploadAndGetDataset(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "people.csv", testCSV)

	rec := doJSON(srv, http.MethodGet, "/api/datasets/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Dataset struct {
			RowCount    int    `json:"row_count"`
			ColumnCount int    `json:"column_count"`
			Status      string `json:"status"`
		} `json:"dataset"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Dataset.RowCount != 8 || resp.Dataset.ColumnCount != 3 {
		t.Errorf("shape = %dx%d, want 8x3", resp.Dataset.RowCount, resp.Dataset.ColumnCount)
	}
	if resp.Dataset.Status != "ready" {
		t.Errorf("status = %s, want ready", resp.Dataset.Status)
	}
}

func TestServer_UploadRejectsUnparsableFile(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "broken.csv")
	fw.Write([]byte("header,only\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Error("response carries no error")
	}
}

func TestServer_RunAnalysisAndFetchChart(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "people.csv", testCSV)

	rec := doJSON(srv, http.MethodPost, "/api/analyses", map[string]any{
		"dataset_id": id,
		"kind":       "pca",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("run status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Analysis struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"analysis"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Analysis.Status != "complete" {
		t.Errorf("status = %s, want complete", resp.Analysis.Status)
	}

	chart := doJSON(srv, http.MethodGet, fmt.Sprintf("/api/analyses/%s/chart", resp.Analysis.ID), nil)
	if chart.Code != http.StatusOK {
		t.Fatalf("chart status = %d", chart.Code)
	}
	if ct := chart.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content type = %s, want image/png", ct)
	}
}

func TestServer_RunAnalysisRejectsUnknownKind(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "people.csv", testCSV)

	rec := doJSON(srv, http.MethodPost, "/api/analyses", map[string]any{
		"dataset_id": id,
		"kind":       "anova",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestServer_RunAnalysisRejectsBadColumn(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "people.csv", testCSV)

	rec := doJSON(srv, http.MethodPost, "/api/analyses", map[string]any{
		"dataset_id": id,
		"kind":       "regression",
		"params":     map[string]any{"target": "nonexistent"},
	})
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 400 or 404", rec.Code)
	}
}

func TestServer_BatchRunsAllEntries(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "people.csv", testCSV)

	rec := doJSON(srv, http.MethodPost, "/api/analyses/batch", map[string]any{
		"dataset_id": id,
		"analyses": []map[string]any{
			{"kind": "pca"},
			{"kind": "regression", "params": map[string]any{"target": "weight"}},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("batch status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Results []struct {
			Kind  string `json:"kind"`
			Error string `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(resp.Results))
	}
	for _, r := range resp.Results {
		if r.Error != "" {
			t.Errorf("%s failed: %s", r.Kind, r.Error)
		}
	}
}

func TestServer_ExportDatasetCSV(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "people.csv", testCSV)

	rec := doJSON(srv, http.MethodGet, "/api/datasets/"+id+"/export?format=csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Body.String(), "height,weight,age") {
		t.Errorf("unexpected export head: %q", rec.Body.String()[:30])
	}
}

func TestServer_DeleteDataset(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "people.csv", testCSV)

	rec := doJSON(srv, http.MethodDelete, "/api/datasets/"+id, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(srv, http.MethodGet, "/api/datasets/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete = %d, want 404", rec.Code)
	}
}

func TestServer_QueryAnalysesByDataset(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "people.csv", testCSV)

	run := doJSON(srv, http.MethodPost, "/api/analyses", map[string]any{
		"dataset_id": id,
		"kind":       "pca",
	})
	if run.Code != http.StatusCreated {
		t.Fatalf("run status = %d, body %s", run.Code, run.Body.String())
	}

	rec := doJSON(srv, http.MethodGet, "/api/analyses?dataset_id="+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}

	rec = doJSON(srv, http.MethodGet, "/api/analyses", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing dataset_id status = %d, want 400", rec.Code)
	}
}

func TestServer_ExportAnalysisSummary(t *testing.T) {
	srv := newTestServer(t)
	id := uploadCSV(t, srv, "people.csv", testCSV)

	run := doJSON(srv, http.MethodPost, "/api/analyses", map[string]any{
		"dataset_id": id,
		"kind":       "pca",
	})
	if run.Code != http.StatusCreated {
		t.Fatalf("run status = %d, body %s", run.Code, run.Body.String())
	}
	var created struct {
		Analysis struct {
			ID string `json:"id"`
		} `json:"analysis"`
	}
	if err := json.Unmarshal(run.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec := doJSON(srv, http.MethodGet, fmt.Sprintf("/api/analyses/%s/export", created.Analysis.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "PK") {
		t.Error("export body is not a zip-based workbook")
	}
}

func TestServer_ListKinds(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(srv, http.MethodGet, "/api/analyses/kinds", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "pca") {
		t.Error("kinds listing is missing pca")
	}
}
