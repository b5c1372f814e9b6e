package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainrx/internal/catalog"
	"trainrx/internal/preview"
	"trainrx/internal/types"
)

type fakePreviewer struct {
	tenant, version string
	body            string
	hadDeadline     bool
	err             error
}

func (f *fakePreviewer) Preview(ctx context.Context, tenant, versionID string, raw []byte) (*types.Preview, error) {
	f.tenant, f.version, f.body = tenant, versionID, string(raw)
	_, f.hadDeadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &types.Preview{
		Guideline: types.EmptyGuideline(),
		Debug:     types.EmptyTrace(),
		Meta:      types.Meta{RequestID: "r1", VersionID: versionID},
	}, nil
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestPreview_PassesTenantVersionAndBody(t *testing.T) {
	fake := &fakePreviewer{}
	srv := New(fake, Options{RequestTimeout: time.Second, DefaultTenant: "clinic"})

	rec := do(t, srv.Handler(), http.MethodPost, "/guidelines/versions/v7/preview", `{"facts":{}}`,
		map[string]string{"X-Tenant-ID": "clinic-b"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "clinic-b", fake.tenant)
	assert.Equal(t, "v7", fake.version)
	assert.Equal(t, `{"facts":{}}`, fake.body)
	assert.True(t, fake.hadDeadline)
	assert.True(t, strings.HasSuffix(rec.Header().Get(HeaderQueryTime), "ms"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "guidelines")
	assert.Contains(t, body, "debug")
	assert.Contains(t, body, "generated_at")
}

func TestPreview_DefaultTenant(t *testing.T) {
	fake := &fakePreviewer{}
	srv := New(fake, Options{DefaultTenant: "clinic"})

	rec := do(t, srv.Handler(), http.MethodPost, "/guidelines/versions/default/preview", `{}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "clinic", fake.tenant)
	assert.Equal(t, "default", fake.version)
	assert.False(t, fake.hadDeadline)
}

func TestPreview_ErrorMapping(t *testing.T) {
	verr := &types.ValidationError{}
	verr.Add("rir.reps", "must be between 1 and 20")

	tests := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{"validation", verr, http.StatusBadRequest, "validation failed"},
		{"not found", &types.NotFoundError{Resource: "guideline version", ID: "v9"}, http.StatusNotFound, `guideline version "v9" not found`},
		{"internal", &types.InternalError{Op: "list rules", Err: errors.New("disk on fire")}, http.StatusInternalServerError, "internal error"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := New(&fakePreviewer{err: tt.err}, Options{})
			rec := do(t, srv.Handler(), http.MethodPost, "/guidelines/versions/v9/preview", `{}`, nil)
			require.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.want, body.Error)
			assert.NotContains(t, rec.Body.String(), "disk on fire")
		})
	}
}

func TestPreview_ValidationFieldsAreReturned(t *testing.T) {
	f, err := catalog.Parse([]byte("tenant: default\nversions:\n  - id: v1\n    default: true\n    rules: []\n"), "inline.yaml")
	require.NoError(t, err)
	c, err := catalog.New(f)
	require.NoError(t, err)
	srv := New(preview.NewService(catalog.NewRepository(c)), Options{})

	rec := do(t, srv.Handler(), http.MethodPost, "/guidelines/versions/default/preview",
		`{"facts": {"age": null}, "aerobic_method": "HIIT", "surprise": 1}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeError(t, rec)
	fields := make([]string, len(body.Fields))
	for i, f := range body.Fields {
		fields[i] = f.Field
	}
	assert.ElementsMatch(t, []string{"facts.age", "aerobic_method", "surprise"}, fields)

	rec = do(t, srv.Handler(), http.MethodPost, "/guidelines/versions/default/preview", `{}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "no rules found for guideline version v1")
}

func TestHealthAndRIRCatalog(t *testing.T) {
	srv := New(&fakePreviewer{}, Options{Version: "1.2.3"})

	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok", "version": "1.2.3"}`, rec.Body.String())

	rec = do(t, srv.Handler(), http.MethodGet, "/guidelines/catalog/rir", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 120)
	assert.Equal(t, map[string]int{"rir": 5, "reps": 1, "pct_1rm": 100}, body.Data[0])
}

func TestUnknownRoute(t *testing.T) {
	srv := New(&fakePreviewer{}, Options{})
	rec := do(t, srv.Handler(), http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
