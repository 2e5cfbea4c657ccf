package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/farxc/separacao-pedidos/internal/lock"
	"github.com/farxc/separacao-pedidos/internal/logger"
	"github.com/farxc/separacao-pedidos/internal/separation"
	"github.com/farxc/separacao-pedidos/internal/store"
	"github.com/farxc/separacao-pedidos/internal/store/memory"
	"github.com/go-playground/validator/v10"
)

type envelope struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
	Error    string          `json:"error"`
	Kind     string          `json:"kind"`
}

func newTestApp(t *testing.T) (http.Handler, *memory.Store) {
	t.Helper()

	mem := memory.New()
	mem.SetMaterialTypes(map[string]string{"M1": "SECO", "M2": "FRIO"})
	mem.SetStores([]store.StoreInfo{
		{Prefix: "S1", Name: "Loja 1", ZonaSeco: "NORTE", SubzonaSeco: "A", OrdemSeco: 2, ZonaFrio: "F1", OrdemFrio: 1},
		{Prefix: "S2", Name: "Loja 2", ZonaSeco: "SUL", SubzonaSeco: "B", OrdemSeco: 1, ZonaFrio: "F1", OrdemFrio: 2},
	})
	storage := memory.NewStorage(mem)
	appLogger := logger.Discard()

	app := &application{
		config:   config{maxUploadMB: 4},
		store:    *storage,
		engine:   separation.NewEngine(storage.Tx, storage.Materials, storage.Stores, storage.Audit, appLogger, separation.Config{}),
		locker:   lock.Noop{},
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   appLogger,
	}
	return app.mount(), mem
}

func uploadReq(t *testing.T, path, actor, fileName, content string, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("Failed to write field: %v", err)
		}
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}
	return req
}

func jsonRequest(method, path, actor, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}
	return req
}

func do(t *testing.T, h http.Handler, req *http.Request, wantStatus int) envelope {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d: %s", req.Method, req.URL.Path, wantStatus, rec.Code, rec.Body.String())
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return env
}

const createSheet = "codigo;descricao;S1;S2\nM1;Arroz;5;0\nM2;Frango;0;2\n"

func createSeparation(t *testing.T, h http.Handler) int64 {
	t.Helper()

	env := do(t, h, uploadReq(t, "/v1/separations", "u1", "pedido.csv", createSheet, map[string]string{"region": "capital", "date": "2026-01-05"}), http.StatusCreated)
	var rep separation.ChangeReport
	if err := json.Unmarshal(env.Data, &rep); err != nil {
		t.Fatalf("Failed to decode report: %v", err)
	}
	if rep.New != 2 || rep.TotalStores != 2 {
		t.Fatalf("Expected 2 new materials over 2 stores, got %+v", rep)
	}
	return rep.SeparationID
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         pinger
		wantStatus int
		wantDB     string
	}{
		{"no database", nil, http.StatusOK, "skipped"},
		{"database up", fakePinger{}, http.StatusOK, "ok"},
		{"database down", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unreachable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &application{db: tt.db, logger: logger.Discard()}
			rec := httptest.NewRecorder()
			app.healthCheckHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/health", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Failed to decode body: %v", err)
			}
			if body["database"] != tt.wantDB {
				t.Errorf("Expected database %s, got %s", tt.wantDB, body["database"])
			}
		})
	}
}

func TestCreateSeparation(t *testing.T) {
	h, mem := newTestApp(t)
	id := createSeparation(t, h)

	snap := mem.Snapshot(id)
	if snap["M1"]["S1"] != 5 || snap["M2"]["S2"] != 2 {
		t.Errorf("Unexpected matrix: %v", snap)
	}

	env := do(t, h, uploadReq(t, "/v1/separations", "u1", "pedido.csv", createSheet, map[string]string{"region": "CAPITAL"}), http.StatusConflict)
	if env.Kind != "ActiveSeparationExists" {
		t.Errorf("Expected ActiveSeparationExists, got %s", env.Kind)
	}

	do(t, h, uploadReq(t, "/v1/separations", "", "pedido.csv", createSheet, map[string]string{"region": "CAPITAL"}), http.StatusBadRequest)
	do(t, h, uploadReq(t, "/v1/separations", "u2", "pedido.pdf", createSheet, map[string]string{"region": "CAPITAL"}), http.StatusBadRequest)
	do(t, h, uploadReq(t, "/v1/separations", "u2", "pedido.csv", createSheet, map[string]string{"region": "NORDESTE"}), http.StatusBadRequest)
}

func TestGetAndListSeparations(t *testing.T) {
	h, _ := newTestApp(t)
	id := createSeparation(t, h)

	env := do(t, h, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/separations/%d", id), nil), http.StatusOK)
	var sep store.Separation
	if err := json.Unmarshal(env.Data, &sep); err != nil {
		t.Fatalf("Failed to decode separation: %v", err)
	}
	if sep.OwnerID != "u1" || sep.Region != "CAPITAL" || sep.FileName != "pedido.csv" {
		t.Errorf("Unexpected separation: %+v", sep)
	}

	env = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/separations?owner=u1", nil), http.StatusOK)
	var list []store.Separation
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 separation, got %d", len(list))
	}

	env = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/separations/99", nil), http.StatusNotFound)
	if env.Kind != "NotFound" {
		t.Errorf("Expected NotFound, got %s", env.Kind)
	}
	do(t, h, httptest.NewRequest(http.MethodGet, "/v1/separations/abc", nil), http.StatusBadRequest)

	do(t, h, jsonRequest(http.MethodGet, "/v1/separations/active", "u1", ""), http.StatusOK)
	do(t, h, jsonRequest(http.MethodGet, "/v1/separations/active", "u2", ""), http.StatusNotFound)

	env = do(t, h, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/separations/%d/materials", id), nil), http.StatusOK)
	var materials []store.MaterialItem
	if err := json.Unmarshal(env.Data, &materials); err != nil {
		t.Fatalf("Failed to decode materials: %v", err)
	}
	if len(materials) != 2 || materials[1].TypeSeparation != "FRIO" {
		t.Errorf("Unexpected materials: %+v", materials)
	}
}

func TestReinforcementAndViews(t *testing.T) {
	h, mem := newTestApp(t)
	id := createSeparation(t, h)
	base := fmt.Sprintf("/v1/separations/%d", id)

	do(t, h, uploadReq(t, base+"/reinforcement", "u1", "reforco.csv", "codigo;descricao;S1;S2\nM1;Arroz;2;0\n", nil), http.StatusOK)
	if got := mem.Snapshot(id)["M1"]["S1"]; got != 7 {
		t.Errorf("Expected M1/S1 7 after reinforcement, got %d", got)
	}

	env := do(t, h, httptest.NewRequest(http.MethodGet, base+"/views/separation", nil), http.StatusOK)
	var sv struct {
		Circuit string `json:"circuit"`
		Stores  []struct {
			Prefix string `json:"prefix"`
		} `json:"stores"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &sv); err != nil {
		t.Fatalf("Failed to decode view: %v", err)
	}
	if sv.Total != 9 || len(sv.Stores) != 2 || sv.Stores[0].Prefix != "S2" {
		t.Errorf("Unexpected separation view: %+v", sv)
	}

	env = do(t, h, httptest.NewRequest(http.MethodGet, base+"/views/pre-separation?type=FRIO", nil), http.StatusOK)
	var zv struct {
		Circuit string `json:"circuit"`
		Total   int64  `json:"total"`
	}
	if err := json.Unmarshal(env.Data, &zv); err != nil {
		t.Fatalf("Failed to decode view: %v", err)
	}
	if zv.Circuit != "FRIO" || zv.Total != 2 {
		t.Errorf("Unexpected pre-separation view: %+v", zv)
	}

	do(t, h, httptest.NewRequest(http.MethodGet, base+"/views/separation?circuit=QUENTE", nil), http.StatusBadRequest)
}

func TestMelanciaRejectsOtherMaterials(t *testing.T) {
	h, _ := newTestApp(t)
	id := createSeparation(t, h)

	env := do(t, h, uploadReq(t, fmt.Sprintf("/v1/separations/%d/melancia/M1", id), "u1", "melancia.csv", "S1;3\n", nil), http.StatusBadRequest)
	if env.Kind != "InputMalformed" {
		t.Errorf("Expected InputMalformed, got %s", env.Kind)
	}
}

func TestCutEndpoints(t *testing.T) {
	h, mem := newTestApp(t)
	id := createSeparation(t, h)
	base := fmt.Sprintf("/v1/separations/%d", id)

	env := do(t, h, jsonRequest(http.MethodPost, base+"/cuts/preview", "u1", `{"mode":"partial","material_code":"M1","quantities":{"S1":10}}`), http.StatusUnprocessableEntity)
	if env.Kind != "ExcessiveCutQuantity" {
		t.Errorf("Expected ExcessiveCutQuantity, got %s", env.Kind)
	}

	do(t, h, jsonRequest(http.MethodPost, base+"/cuts", "u1", `{"material_code":"M1"}`), http.StatusBadRequest)
	do(t, h, jsonRequest(http.MethodPost, base+"/cuts", "u1", `{"mode":"specific-stores","material_code":"M1"}`), http.StatusBadRequest)

	env = do(t, h, jsonRequest(http.MethodPost, base+"/cuts/preview", "u1", `{"mode":"partial","material_code":"M1","quantities":{"S1":2}}`), http.StatusOK)
	var preview separation.ChangeReport
	if err := json.Unmarshal(env.Data, &preview); err != nil {
		t.Fatalf("Failed to decode preview: %v", err)
	}
	if !preview.Preview || preview.Cut.TotalCut != 2 {
		t.Errorf("Unexpected preview: %+v", preview)
	}
	if got := mem.Snapshot(id)["M1"]["S1"]; got != 5 {
		t.Errorf("Preview must not write, got M1/S1 %d", got)
	}

	do(t, h, jsonRequest(http.MethodPost, base+"/cuts", "u1", `{"mode":"all","material_code":"M2"}`), http.StatusOK)
	if got := len(mem.Snapshot(id)["M2"]); got != 0 {
		t.Errorf("Expected M2 without cells, got %d", got)
	}

	env = do(t, h, jsonRequest(http.MethodPost, base+"/cuts", "u1", `{"mode":"all","material_code":"M9"}`), http.StatusNotFound)
	if env.Kind != "NotFound" {
		t.Errorf("Expected NotFound, got %s", env.Kind)
	}
}

func TestStockComparison(t *testing.T) {
	h, _ := newTestApp(t)
	id := createSeparation(t, h)
	base := fmt.Sprintf("/v1/separations/%d", id)

	do(t, h, uploadReq(t, base+"/stock/reference", "u1", "antes.csv", "material;quantidade\nM1;7\nM2;3\n", nil), http.StatusOK)
	do(t, h, uploadReq(t, base+"/stock/current", "u1", "depois.csv", "material;quantidade\nM1;7\n", nil), http.StatusOK)
	do(t, h, uploadReq(t, base+"/stock/other", "u1", "x.csv", "M1;1\n", nil), http.StatusBadRequest)

	env := do(t, h, httptest.NewRequest(http.MethodGet, base+"/stock/comparison", nil), http.StatusOK)
	var got struct {
		Lines []struct {
			MaterialCode string `json:"material_code"`
			Delta        int64  `json:"delta"`
			Status       string `json:"status"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("Failed to decode comparison: %v", err)
	}
	if len(got.Lines) != 2 || got.Lines[0].Status != "Divergente" || got.Lines[1].Delta != 3 {
		t.Errorf("Unexpected comparison: %+v", got)
	}
}

func TestStatusAndAudit(t *testing.T) {
	h, _ := newTestApp(t)
	id := createSeparation(t, h)
	base := fmt.Sprintf("/v1/separations/%d", id)

	do(t, h, jsonRequest(http.MethodPatch, base+"/status", "u1", `{"status":"archived"}`), http.StatusBadRequest)
	do(t, h, jsonRequest(http.MethodPatch, base+"/status", "u1", `{"status":"completed"}`), http.StatusOK)

	env := do(t, h, uploadReq(t, base+"/redistribution", "u1", "r.csv", "codigo;descricao;S1\nM1;Arroz;1\n", nil), http.StatusBadRequest)
	if env.Kind != "InputMalformed" {
		t.Errorf("Expected InputMalformed for a completed separation, got %s", env.Kind)
	}

	// the owner can open a new separation once the first one is completed
	createSeparation(t, h)

	env = do(t, h, httptest.NewRequest(http.MethodGet, base+"/audit?limit=5", nil), http.StatusOK)
	var entries []store.AuditEntry
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		t.Fatalf("Failed to decode audit: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != string(separation.ModeCreate) || entries[0].ActorID != "u1" {
		t.Errorf("Unexpected audit entries: %+v", entries)
	}
}
