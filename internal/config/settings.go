package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/modelcfg/internal/envfile"
)

const (
	defaultModelPath     = "./models"
	defaultModelDetName  = "yolox_l.onnx"
	defaultModelPoseName = "dw-ll_ucoco_384.onnx"
)

// Settings locates the model assets used by the pose pipeline.
type Settings struct {
	ModelPath     string `yaml:"model_path" json:"model_path"`
	ModelDetName  string `yaml:"model_det_name" json:"model_det_name"`
	ModelPoseName string `yaml:"model_pose_name" json:"model_pose_name"`
}

type binding struct {
	envVar string
	field  func(*Settings) *string
	def    string
}

var settingsBindings = []binding{
	{envVar: "MODEL_PATH", field: func(s *Settings) *string { return &s.ModelPath }, def: defaultModelPath},
	{envVar: "MODEL_DET_NAME", field: func(s *Settings) *string { return &s.ModelDetName }, def: defaultModelDetName},
	{envVar: "MODEL_POSE_NAME", field: func(s *Settings) *string { return &s.ModelPoseName }, def: defaultModelPoseName},
}

// SettingsOptions controls how LoadSettings reads the environment file.
type SettingsOptions struct {
	// EnvFile defaults to .env in the working directory.
	EnvFile     string
	SkipEnvFile bool
	Logger      *zap.Logger
}

// DefaultSettings returns Settings populated with built-in defaults.
func DefaultSettings() Settings {
	var s Settings
	for _, b := range settingsBindings {
		*b.field(&s) = b.def
	}
	return s
}

// LoadSettings merges the environment file into the process environment and
// reads the model settings from it. It never fails: a missing or malformed
// file leaves the environment untouched and is at most logged.
func LoadSettings(opts SettingsOptions) Settings {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var fromFile []string
	if !opts.SkipEnvFile {
		res, err := envfile.Load(opts.EnvFile, true)
		switch {
		case errors.Is(err, envfile.ErrMalformed):
			logger.Warn("ignoring malformed environment file", zap.String("path", res.Path), zap.Error(err))
		case err != nil:
			logger.Warn("ignoring unreadable environment file", zap.String("path", res.Path), zap.Error(err))
		case res.Loaded:
			logger.Debug("environment file loaded", zap.String("path", res.Path), zap.Strings("keys", res.Keys))
			fromFile = res.Keys
		default:
			logger.Debug("no environment file", zap.String("path", res.Path))
		}
	}

	environ := os.Environ()
	s := DefaultSettings()
	for _, b := range settingsBindings {
		// A file entry wins over the process environment whatever its case.
		value, ok := lookupKeysFold(fromFile, b.envVar)
		if !ok {
			value, ok = lookupEnvFold(environ, b.envVar)
		}
		if ok && value != "" {
			*b.field(&s) = value
		}
	}
	return s
}

// DetModelFile returns the detector model location.
func (s Settings) DetModelFile() string {
	return filepath.Join(s.ModelPath, s.ModelDetName)
}

// PoseModelFile returns the pose-estimation model location.
func (s Settings) PoseModelFile() string {
	return filepath.Join(s.ModelPath, s.ModelPoseName)
}

// Environ renders the settings as KEY=value lines.
func (s Settings) Environ() []string {
	out := make([]string, 0, len(settingsBindings))
	for _, b := range settingsBindings {
		out = append(out, b.envVar+"="+*b.field(&s))
	}
	return out
}

// lookupKeysFold resolves key against variables applied from the env file,
// preferring the exact name.
func lookupKeysFold(keys []string, key string) (string, bool) {
	match := ""
	for _, k := range keys {
		if k == key {
			match = k
			break
		}
		if match == "" && strings.EqualFold(k, key) {
			match = k
		}
	}
	if match == "" {
		return "", false
	}
	value := os.Getenv(match)
	return value, value != ""
}

// lookupEnvFold prefers an exact match and falls back to the first
// case-insensitive one.
func lookupEnvFold(environ []string, key string) (string, bool) {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value, true
	}
	for _, kv := range environ {
		name, value, found := strings.Cut(kv, "=")
		if !found || name == key {
			continue
		}
		if strings.EqualFold(name, key) && value != "" {
			return value, true
		}
	}
	return "", false
}
