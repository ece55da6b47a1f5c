package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/db"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/domain"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/export"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/migrate"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/repo"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/server"
)

const jwtSecret = "test-jwt-secret"

type testEnv struct {
	Server *httptest.Server
	Repo   repo.Repo
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn, Now: func() time.Time {
		return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	}}
	h, err := server.New(server.Config{
		Repo:     r,
		Exporter: export.Excel{},
		Auth:     server.AuthConfig{JWTSecret: jwtSecret},
	})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return testEnv{Server: srv, Repo: r}
}

func (e testEnv) seedKey(t *testing.T, name, raw string) {
	t.Helper()
	err := e.Repo.InsertOpsKey(context.Background(), domain.OpsKey{
		ID:      "k-" + name,
		Name:    name,
		KeyHash: repo.HashOpsKey(raw),
	})
	if err != nil {
		t.Fatalf("seed key: %v", err)
	}
}

func (e testEnv) seedIssue(t *testing.T, reporter int64, path, desc string) int64 {
	t.Helper()
	id, err := e.Repo.CreateIssue(context.Background(), reporter, "Reporter", "Цех", "Фасовка", path, desc)
	if err != nil {
		t.Fatalf("seed issue: %v", err)
	}
	return id
}

type request struct {
	Method string
	Path   string
	Body   string
	OpsKey string
	Bearer string
}

func (e testEnv) do(t *testing.T, r request) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewReader([]byte(r.Body))
	}
	req, err := http.NewRequest(r.Method, e.Server.URL+r.Path, body)
	if err != nil {
		t.Fatal(err)
	}
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.OpsKey != "" {
		req.Header.Set("X-Ops-Key", r.OpsKey)
	}
	if r.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.Bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatal(err)
	}
	return signed
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)
	resp, data := env.do(t, request{Method: http.MethodGet, Path: "/v0/health"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, data)
	}
	var out map[string]string
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "ok" {
		t.Fatalf("body = %s", data)
	}
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	env := newTestEnv(t)
	for _, r := range []request{
		{Method: http.MethodGet, Path: "/v0/issues"},
		{Method: http.MethodGet, Path: "/v0/issues", OpsKey: "never-issued"},
		{Method: http.MethodGet, Path: "/v0/issues", Bearer: "not.a.jwt"},
	} {
		resp, data := env.do(t, r)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%+v: status = %d, body %s", r, resp.StatusCode, data)
		}
		var envl struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(data, &envl); err != nil {
			t.Fatalf("envelope: %v (%s)", err, data)
		}
		if envl.Error.Code != "unauthorized" {
			t.Fatalf("code = %q", envl.Error.Code)
		}
	}
}

func TestListAndGetIssues(t *testing.T) {
	env := newTestEnv(t)
	env.seedKey(t, "ci", "raw-key")
	id1 := env.seedIssue(t, 100, "0.3Н > бункер", "течёт")
	env.seedIssue(t, 200, "", "гудит")

	resp, data := env.do(t, request{Method: http.MethodGet, Path: "/v0/issues", OpsKey: "raw-key"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, body %s", resp.StatusCode, data)
	}
	var issues []map[string]any
	if err := json.Unmarshal(data, &issues); err != nil {
		t.Fatal(err)
	}
	if len(issues) != 2 {
		t.Fatalf("issues = %d", len(issues))
	}
	// Newest first.
	if issues[0]["description"] != "гудит" || issues[1]["equipment_path"] != "0.3Н > бункер" {
		t.Fatalf("ordering: %s", data)
	}

	resp, data = env.do(t, request{Method: http.MethodGet, Path: "/v0/issues?reporter_id=100", OpsKey: "raw-key"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("filter status = %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, &issues); err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 || int64(issues[0]["id"].(float64)) != id1 {
		t.Fatalf("filtered: %s", data)
	}

	resp, data = env.do(t, request{Method: http.MethodGet, Path: "/v0/issues/999", OpsKey: "raw-key"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing issue status = %d, body %s", resp.StatusCode, data)
	}
}

func TestCloseIssueConflictOnSecondCall(t *testing.T) {
	env := newTestEnv(t)
	env.seedKey(t, "ci", "raw-key")
	id := env.seedIssue(t, 100, "пресс", "стоит")

	resp, data := env.do(t, request{
		Method: http.MethodPost,
		Path:   "/v0/issues/1/close",
		Body:   `{"resolver_name":"Сидоров С.С."}`,
		OpsKey: "raw-key",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close status = %d, body %s", resp.StatusCode, data)
	}
	var closed map[string]any
	if err := json.Unmarshal(data, &closed); err != nil {
		t.Fatal(err)
	}
	if closed["status"] != "closed" || closed["resolver_display_name"] != "Сидоров С.С." {
		t.Fatalf("closed issue: %s", data)
	}

	resp, data = env.do(t, request{
		Method: http.MethodPost,
		Path:   "/v0/issues/1/close",
		Body:   `{}`,
		OpsKey: "raw-key",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second close status = %d, body %s", resp.StatusCode, data)
	}

	i, err := env.Repo.GetIssue(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if i.ResolverDisplayName == nil || *i.ResolverDisplayName != "Сидоров С.С." {
		t.Fatalf("resolver overwritten: %+v", i)
	}
}

func TestCloseDefaultsResolverToSubject(t *testing.T) {
	env := newTestEnv(t)
	env.seedIssue(t, 100, "нож", "тупой")

	resp, data := env.do(t, request{
		Method: http.MethodPost,
		Path:   "/v0/issues/1/close",
		Body:   `{}`,
		Bearer: signToken(t, "oncall"),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("close status = %d, body %s", resp.StatusCode, data)
	}
	var closed map[string]any
	if err := json.Unmarshal(data, &closed); err != nil {
		t.Fatal(err)
	}
	if closed["resolver_display_name"] != "oncall" {
		t.Fatalf("resolver: %s", data)
	}
}

func TestPurge(t *testing.T) {
	env := newTestEnv(t)
	env.seedKey(t, "ci", "raw-key")
	env.seedIssue(t, 100, "", "a")
	env.seedIssue(t, 100, "", "b")

	resp, data := env.do(t, request{Method: http.MethodDelete, Path: "/v0/issues", OpsKey: "raw-key"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("purge status = %d, body %s", resp.StatusCode, data)
	}
	if left, _ := env.Repo.ListAll(context.Background(), repo.IssueFilters{}); len(left) != 0 {
		t.Fatalf("issues left after purge: %d", len(left))
	}
	// Numbering restarts.
	if id := env.seedIssue(t, 100, "", "c"); id != 1 {
		t.Fatalf("post-purge id = %d", id)
	}
}

func TestExportDownload(t *testing.T) {
	env := newTestEnv(t)
	env.seedKey(t, "ci", "raw-key")
	env.seedIssue(t, 100, "0.3Н > бункер", "течёт")

	resp, data := env.do(t, request{Method: http.MethodGet, Path: "/v0/issues/export.xlsx"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated export status = %d", resp.StatusCode)
	}

	resp, data = env.do(t, request{Method: http.MethodGet, Path: "/v0/issues/export.xlsx", OpsKey: "raw-key"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d, body %s", resp.StatusCode, data)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("content type = %q", ct)
	}
	if len(data) == 0 {
		t.Fatalf("empty workbook")
	}
}

func TestOpenAPIServed(t *testing.T) {
	env := newTestEnv(t)
	env.seedKey(t, "ci", "raw-key")
	resp, data := env.do(t, request{Method: http.MethodGet, Path: "/v0/openapi.json", OpsKey: "raw-key"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("openapi status = %d", resp.StatusCode)
	}
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Paths["/v0/issues/{id}/close"]; !ok {
		t.Fatalf("openapi missing close path; have %v", doc.Paths)
	}
}
