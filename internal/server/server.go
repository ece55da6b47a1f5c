// Package server exposes the operations API: a small authenticated HTTP
// surface over the issue store, plus the Telegram webhook mount.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/export"
	"github.com/chepyukkostanay-jpg/bot-maintenance/internal/repo"
)

// Config for the HTTP handler.
type Config struct {
	Repo     repo.Repo
	Exporter export.Renderer
	BasePath string
	Auth     AuthConfig
	Webhook  http.Handler
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"issue not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope every endpoint uses.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns the HTTP handler for the operations API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Repo))
	hcfg := huma.DefaultConfig("Maintenance Bot Ops API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group)
	registerIssues(group, cfg.Repo)
	registerExport(router, basePath, cfg.Repo, cfg.Exporter)
	registerOpenAPI(router, api, basePath)

	if cfg.Webhook != nil {
		router.Method(http.MethodPost, "/webhook", cfg.Webhook)
	}
	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	if strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required") {
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerIssues(api huma.API, r repo.Repo) {
	huma.Register(api, huma.Operation{
		OperationID: "list-issues",
		Method:      http.MethodGet,
		Path:        "/issues",
		Summary:     "List issues",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status     string `query:"status" enum:"open,closed," doc:"Filter by status"`
		ReporterID int64  `query:"reporter_id"`
		Limit      int    `query:"limit" default:"100"`
	}) (*struct {
		Body []IssueResponse `json:"body"`
	}, error) {
		filters := repo.IssueFilters{Status: input.Status, Limit: input.Limit}
		if input.ReporterID != 0 {
			filters.ReporterID = &input.ReporterID
		}
		items, err := r.ListAll(ctx, filters)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []IssueResponse `json:"body"`
		}{Body: mapIssues(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-issue",
		Method:      http.MethodGet,
		Path:        "/issues/{id}",
		Summary:     "Get issue",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID int64 `path:"id"`
	}) (*struct {
		Body IssueResponse `json:"body"`
	}, error) {
		i, err := r.GetIssue(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IssueResponse `json:"body"`
		}{Body: issueResponse(i)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "close-issue",
		Method:      http.MethodPost,
		Path:        "/issues/{id}/close",
		Summary:     "Close issue",
		Errors: []int{
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, input *struct {
		ID   int64             `path:"id"`
		Body CloseIssueRequest `json:"body"`
	}) (*struct {
		Body IssueResponse `json:"body"`
	}, error) {
		subject, authErr := subjectFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		resolverName := strings.TrimSpace(input.Body.ResolverName)
		if resolverName == "" {
			resolverName = subject
		}
		if _, err := r.GetIssue(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		// Operations closures carry no chat actor; resolver identity lives in
		// the display name.
		closed, err := r.CloseIssue(ctx, input.ID, 0, resolverName)
		if err != nil {
			return nil, handleError(err)
		}
		if !closed {
			return nil, newAPIError(http.StatusConflict, "already_closed",
				fmt.Sprintf("issue %d is already closed", input.ID), nil)
		}
		i, err := r.GetIssue(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body IssueResponse `json:"body"`
		}{Body: issueResponse(i)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "purge-issues",
		Method:      http.MethodDelete,
		Path:        "/issues",
		Summary:     "Purge all issues",
		Description: "Deletes every issue and resets numbering. Irreversible.",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if _, authErr := subjectFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		if err := r.PurgeAll(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "purged"}}, nil
	})
}

// registerExport serves the Excel file as a raw download, outside the JSON
// surface. Auth still applies through the shared middleware.
func registerExport(r chi.Router, basePath string, rp repo.Repo, exp export.Renderer) {
	r.Get(path.Join(basePath, "issues/export.xlsx"), func(w http.ResponseWriter, req *http.Request) {
		items, err := rp.ListAll(req.Context(), repo.IssueFilters{})
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		data, err := exp.Render(items)
		if err != nil {
			respondStatusError(w, handleError(err))
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="issues_export.xlsx"`)
		w.Write(data)
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, req *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["opsKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Ops-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"opsKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}
