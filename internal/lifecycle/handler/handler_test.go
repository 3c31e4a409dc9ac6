package handler

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/recytrack/internal/lifecycle/repository"
	"github.com/bitfantasy/recytrack/internal/lifecycle/service"
	"github.com/bitfantasy/recytrack/internal/lifecycle/sse"
	"github.com/bitfantasy/recytrack/internal/lifecycle/testutil"
	"github.com/gin-gonic/gin"
)

type memoryDocs struct {
	objects map[string][]byte
}

func (m *memoryDocs) Upload(_ context.Context, path string, data []byte, _ string) error {
	m.objects[path] = data
	return nil
}

func (m *memoryDocs) Download(_ context.Context, path string) ([]byte, error) {
	data, ok := m.objects[path]
	if !ok {
		return nil, errors.New("no such object: " + path)
	}
	return data, nil
}

func (m *memoryDocs) PublicURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://minio.local/recytrack/" + path, nil
}

type handlerEnv struct {
	*testutil.TestEnv
	ids  *testutil.FakeIDs
	docs *memoryDocs
	hub  *sse.Hub
}

func setupHandlerTest(t *testing.T) *handlerEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	ids := testutil.NewFakeIDs()
	docs := &memoryDocs{objects: map[string][]byte{}}
	hub := sse.NewHub(nil)

	svcs := service.NewServices(service.Deps{
		Repos:  repos,
		IDs:    ids,
		Events: service.NewFlowEventSink(repos.FlowEvent, hub, nil),
	}, docs, nil)
	h := NewHandlers(svcs, hub, nil)

	router := testutil.SetupRouter()
	h.RegisterRoutes(testutil.AuthGroup(router, "/api/v1"))

	return &handlerEnv{
		TestEnv: &testutil.TestEnv{DB: db, Router: router, T: t},
		ids:     ids,
		docs:    docs,
		hub:     hub,
	}
}

var (
	adminToken     = testutil.DefaultTestToken()
	productionTok  = testutil.GenerateTestToken("u-prod", "Jonas", "production")
	salesToken     = testutil.GenerateTestToken("u-sales", "Tom", "sales")
	viewerToken    = testutil.GenerateTestToken("u-view", "Guest", "viewer")
	logisticsToken = testutil.GenerateTestToken("u-log", "Ana", "logistics")
)

func (e *handlerEnv) mustCreate(path string, body interface{}, token string) map[string]interface{} {
	e.T.Helper()
	w := testutil.DoRequest(e.Router, http.MethodPost, path, body, token)
	if w.Code != http.StatusCreated {
		e.T.Fatalf("POST %s: expected 201, got %d: %s", path, w.Code, w.Body.String())
	}
	return testutil.ParseResponse(w)["data"].(map[string]interface{})
}

// primary unwraps the created row from a result envelope.
func primary(data map[string]interface{}) map[string]interface{} {
	return data["primary"].(map[string]interface{})
}

func (e *handlerEnv) seedOutput(weight float64) string {
	e.T.Helper()
	data := e.mustCreate("/api/v1/outputs", map[string]interface{}{
		"output_type": "granulate",
		"batch_id":    "B1",
		"weight_kg":   weight,
	}, productionTok)
	return primary(data)["id"].(string)
}

func (e *handlerEnv) seedOrder() string {
	e.T.Helper()
	data := e.mustCreate("/api/v1/orders", map[string]interface{}{
		"customer_name": "Acme Compounds",
		"quantity_kg":   500,
	}, salesToken)
	return data["id"].(string)
}

func TestRequiresAuthentication(t *testing.T) {
	env := setupHandlerTest(t)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/outputs", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestCreateMaterialInput(t *testing.T) {
	env := setupHandlerTest(t)

	data := env.mustCreate("/api/v1/material-inputs", map[string]interface{}{
		"material_type": "PP regrind",
		"weight_kg":     1250.5,
		"supplier":      "Kunststoff Nord",
	}, logisticsToken)

	input := primary(data)
	if input["input_id"] != "IN-20261015-0001" {
		t.Errorf("expected IN-20261015-0001, got %v", input["input_id"])
	}
	if input["status"] != "received" {
		t.Errorf("expected received, got %v", input["status"])
	}

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/material-inputs?status=received", nil, viewerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	list := testutil.ParseResponse(w)["data"].(map[string]interface{})
	pagination := list["pagination"].(map[string]interface{})
	if pagination["total"].(float64) != 1 {
		t.Errorf("expected total 1, got %v", pagination["total"])
	}
}

func TestCreateMaterialInputValidation(t *testing.T) {
	env := setupHandlerTest(t)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/material-inputs", map[string]interface{}{
		"weight_kg": -3,
	}, adminToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if !strings.HasPrefix(resp["message"].(string), "invalid input") {
		t.Errorf("unexpected message %q", resp["message"])
	}
	fields := resp["data"].(map[string]interface{})["fields"].([]interface{})
	if len(fields) < 2 {
		t.Errorf("expected every violation reported, got %v", fields)
	}
}

func TestViewerCannotCreateOrder(t *testing.T) {
	env := setupHandlerTest(t)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_name": "Acme",
		"quantity_kg":   10,
	}, viewerToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if !strings.HasPrefix(testutil.ParseResponse(w)["message"].(string), "not authorized") {
		t.Errorf("unexpected message: %s", w.Body.String())
	}
}

func TestAllocateAndOverAllocate(t *testing.T) {
	env := setupHandlerTest(t)
	outputID := env.seedOutput(100)
	orderA := env.seedOrder()
	orderB := env.seedOrder()

	data := env.mustCreate("/api/v1/allocations", map[string]interface{}{
		"output_material_id":  outputID,
		"order_id":            orderA,
		"allocated_weight_kg": 60,
	}, salesToken)
	if primary(data)["allocated_weight_kg"].(float64) != 60 {
		t.Errorf("expected 60 kg allocated, got %v", primary(data)["allocated_weight_kg"])
	}

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/allocations", map[string]interface{}{
		"output_material_id":  outputID,
		"order_id":            orderB,
		"allocated_weight_kg": 50,
	}, salesToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != CodeValidation {
		t.Errorf("expected code %d, got %v", CodeValidation, resp["code"])
	}
	remaining := resp["data"].(map[string]interface{})["remaining_kg"].(float64)
	if remaining != 40 {
		t.Errorf("expected remaining 40, got %v", remaining)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/outputs/"+outputID+"/remaining", nil, viewerToken)
	got := testutil.ParseResponse(w)["data"].(map[string]interface{})["remaining_kg"].(float64)
	if got != 40 {
		t.Errorf("expected remaining 40 after rejection, got %v", got)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/orders/"+orderA, nil, viewerToken)
	if status := testutil.ParseResponse(w)["data"].(map[string]interface{})["status"]; status != "in_production" {
		t.Errorf("expected order in_production, got %v", status)
	}
}

func TestDuplicateAllocationConflict(t *testing.T) {
	env := setupHandlerTest(t)
	outputID := env.seedOutput(100)
	orderID := env.seedOrder()

	body := map[string]interface{}{
		"output_material_id":  outputID,
		"order_id":            orderID,
		"allocated_weight_kg": 10,
	}
	env.mustCreate("/api/v1/allocations", body, salesToken)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/allocations", body, salesToken)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAllocateInvalidWeight(t *testing.T) {
	env := setupHandlerTest(t)
	outputID := env.seedOutput(100)
	orderID := env.seedOrder()

	for _, weight := range []interface{}{0, -5} {
		w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/allocations", map[string]interface{}{
			"output_material_id":  outputID,
			"order_id":            orderID,
			"allocated_weight_kg": weight,
		}, salesToken)
		if w.Code != http.StatusBadRequest {
			t.Errorf("weight %v: expected 400, got %d", weight, w.Code)
		}
	}
}

func TestGetUnknownOutput(t *testing.T) {
	env := setupHandlerTest(t)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/outputs/nope", nil, viewerToken)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestIDGenerationFailure(t *testing.T) {
	env := setupHandlerTest(t)
	env.ids.Fail = map[string]bool{service.PrefixOrder: true}

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"customer_name": "Acme",
		"quantity_kg":   10,
	}, salesToken)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if code := testutil.ParseResponse(w)["code"].(float64); code != CodeIDGeneration {
		t.Errorf("expected code %d, got %v", CodeIDGeneration, code)
	}
}

func TestExportAllocations(t *testing.T) {
	env := setupHandlerTest(t)
	outputID := env.seedOutput(100)
	orderID := env.seedOrder()
	env.mustCreate("/api/v1/allocations", map[string]interface{}{
		"output_material_id":  outputID,
		"order_id":            orderID,
		"allocated_weight_kg": 25,
	}, salesToken)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/outputs/"+outputID+"/allocations/export", nil, viewerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "allocations_OUT-20261015-0001.xlsx") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if w.Body.Len() == 0 {
		t.Error("expected workbook bytes")
	}
}

func TestDeliveryNoteDocument(t *testing.T) {
	env := setupHandlerTest(t)
	outputID := env.seedOutput(100)

	data := env.mustCreate("/api/v1/delivery-notes", map[string]interface{}{
		"type":               "outgoing",
		"partner":            "Acme Compounds",
		"material":           "PP granulate",
		"weight_kg":          100,
		"output_material_id": outputID,
	}, logisticsToken)
	note := primary(data)
	noteID := note["id"].(string)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/outputs/"+outputID, nil, viewerToken)
	if status := testutil.ParseResponse(w)["data"].(map[string]interface{})["status"]; status != "shipped" {
		t.Errorf("expected output shipped, got %v", status)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", "lieferschein.pdf")
	part.Write([]byte("%PDF-1.4 test"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/delivery-notes/"+noteID+"/document", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+logisticsToken)
	rec := httptest.NewRecorder()
	env.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	wantPath := "delivery-notes/" + note["note_id"].(string) + "/lieferschein.pdf"
	if _, ok := env.docs.objects[wantPath]; !ok {
		t.Errorf("expected object at %s, have %v", wantPath, env.docs.objects)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/delivery-notes/"+noteID+"/document", nil, viewerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("document url: expected 200, got %d", w.Code)
	}
	url := testutil.ParseResponse(w)["data"].(map[string]interface{})["url"].(string)
	if !strings.HasSuffix(url, wantPath) {
		t.Errorf("unexpected url %s", url)
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/delivery-notes/"+noteID+"/document/content", nil, viewerToken)
	if w.Code != http.StatusOK {
		t.Fatalf("document content: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "%PDF-1.4 test" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("unexpected content type %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename=lieferschein.pdf` {
		t.Errorf("unexpected disposition %s", cd)
	}
}

func TestMyPermissions(t *testing.T) {
	env := setupHandlerTest(t)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/me/permissions", nil, salesToken)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	perms := map[string]bool{}
	for _, p := range data["permissions"].([]interface{}) {
		perms[p.(string)] = true
	}
	if !perms[service.PermAllocationWrite] || !perms[service.PermOrderWrite] {
		t.Errorf("sales should allocate and create orders, got %v", perms)
	}
	if perms[service.PermProcessingWrite] {
		t.Error("sales must not run processing")
	}
}

func TestRespondErrorUnclassified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondError(c, errors.New("connection reset"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection reset") {
		t.Error("raw driver errors must not leak")
	}
}

func TestGetPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query      string
		page, size int
	}{
		{"", 1, 20},
		{"?page=3&page_size=50", 3, 50},
		{"?page=-1&page_size=500", 1, 20},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		page, size := GetPagination(c)
		if page != tt.page || size != tt.size {
			t.Errorf("%q: got (%d, %d), want (%d, %d)", tt.query, page, size, tt.page, tt.size)
		}
	}
}
