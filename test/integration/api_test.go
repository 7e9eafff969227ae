package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/modelcfg/internal/api"
	"github.com/eugenenazirov/modelcfg/internal/assets"
	"github.com/eugenenazirov/modelcfg/internal/config"
)

func newRouter(t *testing.T, settings config.Settings) http.Handler {
	t.Helper()

	handler := api.NewHandler(settings, assets.NewFSInventory(settings))
	logger := zaptest.NewLogger(t)
	return api.NewRouter(handler, logger)
}

func performRequest(t *testing.T, handler http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIntegrationFlow(t *testing.T) {
	for _, key := range []string{"MODEL_PATH", "MODEL_DET_NAME", "MODEL_POSE_NAME"} {
		t.Setenv(key, "")
	}

	modelDir := t.TempDir()
	envPath := filepath.Join(t.TempDir(), ".env")
	envContent := "MODEL_PATH=" + modelDir + "\nMODEL_POSE_NAME=custom_pose.onnx\n"
	if err := os.WriteFile(envPath, []byte(envContent), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	for _, name := range []string{"yolox_l.onnx", "custom_pose.onnx"} {
		if err := os.WriteFile(filepath.Join(modelDir, name), []byte("onnx"), 0o600); err != nil {
			t.Fatalf("write model: %v", err)
		}
	}

	settings := config.LoadSettings(config.SettingsOptions{EnvFile: envPath})
	handler := newRouter(t, settings)

	rec := performRequest(t, handler, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/settings")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from settings, got %d", rec.Code)
	}
	var got config.Settings
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode settings: %v", err)
	}
	want := config.Settings{ModelPath: modelDir, ModelDetName: "yolox_l.onnx", ModelPoseName: "custom_pose.onnx"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	rec = performRequest(t, handler, http.MethodGet, "/api/models")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from models, got %d", rec.Code)
	}
	var models struct {
		Missing int `json:"missing"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&models); err != nil {
		t.Fatalf("decode models: %v", err)
	}
	if models.Missing != 0 {
		t.Fatalf("expected all models present, got %d missing", models.Missing)
	}
}
