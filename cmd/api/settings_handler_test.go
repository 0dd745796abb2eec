package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"navigator-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
)

func settingsRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/settings/sync", GetSyncSettings)
	r.PUT("/settings/sync", UpdateSyncSettings)
	return r
}

func TestUpdateSyncSettings(t *testing.T) {
	initial := usecase.SyncSettings{Interval: 7 * time.Second, MaxResults: 50, LookbackDays: 30, MaxRetries: 3}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       usecase.SyncSettings
	}{
		{"partial update", `{"interval":"2s","max_retries":0}`, http.StatusOK,
			usecase.SyncSettings{Interval: 2 * time.Second, MaxResults: 50, LookbackDays: 30, MaxRetries: 0}},
		{"empty body keeps everything", `{}`, http.StatusOK, initial},
		{"bad interval", `{"interval":"soon"}`, http.StatusBadRequest, initial},
		{"negative interval", `{"interval":"-1s"}`, http.StatusBadRequest, initial},
		{"max results too high", `{"max_results":101}`, http.StatusBadRequest, initial},
		{"zero lookback", `{"lookback_days":0}`, http.StatusBadRequest, initial},
		{"negative retries", `{"max_retries":-1}`, http.StatusBadRequest, initial},
		{"all fields", `{"interval":"0s","max_results":1,"lookback_days":7,"max_retries":5}`, http.StatusOK,
			usecase.SyncSettings{Interval: 0, MaxResults: 1, LookbackDays: 7, MaxRetries: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitRuntimeSyncSettings(initial)
			req := httptest.NewRequest(http.MethodPut, "/settings/sync", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			settingsRouter().ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if diff := cmp.Diff(tt.want, GetRuntimeSyncSettings()); diff != "" {
				t.Errorf("settings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetSyncSettings(t *testing.T) {
	InitRuntimeSyncSettings(usecase.SyncSettings{Interval: 7 * time.Second, MaxResults: 100, LookbackDays: 30, MaxRetries: 3})

	w := httptest.NewRecorder()
	settingsRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings/sync", nil))

	var got map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]interface{}{
		"interval":      "7s",
		"max_results":   float64(100),
		"lookback_days": float64(30),
		"max_retries":   float64(3),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GET /settings/sync mismatch (-want +got):\n%s", diff)
	}
}
