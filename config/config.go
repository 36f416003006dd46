package config

import (
	"encoding/json"
	"os"
)

// Settings holds runtime configuration for the detection loop and app
// behavior. Fields may be loaded from a JSON file; the struct is read-only
// after startup. Changing the capture region requires a restart.
type Settings struct {
	Debug    bool   `json:"debug"`
	LogLevel string `json:"log_level"`

	// Game window
	GameWindowTitle string `json:"game_window_title"`

	// Capture region (screen coordinates of the sprint icon)
	RegionX      int `json:"region_x"`
	RegionY      int `json:"region_y"`
	RegionWidth  int `json:"region_width"`
	RegionHeight int `json:"region_height"`

	// Template matching
	SprintOnTemplatePath  string  `json:"sprint_on_template_path"`
	SprintOffTemplatePath string  `json:"sprint_off_template_path"`
	MatchThreshold        float64 `json:"match_threshold"`
	AmbiguousFloor        float64 `json:"ambiguous_floor"`

	// Learned model fallback (optional)
	ModelPath           string  `json:"model_path"`
	ModelInputWidth     int     `json:"model_input_width"`
	ModelInputHeight    int     `json:"model_input_height"`
	ModelThreshold      float64 `json:"model_threshold"`
	OnnxRuntimeLibPath  string  `json:"onnxruntime_lib_path"`
	UseModelFallback    bool    `json:"use_model_fallback"`
	DetectionCacheSize  int     `json:"detection_cache_size"`
	DetectionCacheTTLMs int     `json:"detection_cache_ttl_ms"`

	// Detection loop
	PollIntervalMs     int    `json:"poll_interval_ms"`
	CaptureTimeoutMs   int    `json:"capture_timeout_ms"`
	DebounceCount      int    `json:"debounce_count"`
	MaxConsecutiveFail int    `json:"max_consecutive_failures"`
	InitialState       string `json:"initial_state"` // "active" or "inactive"

	// Action dispatch
	SprintKey          string `json:"sprint_key"`
	TriggerState       string `json:"trigger_state"` // dispatch fires on a stable transition to this state
	DispatchCooldownMs int    `json:"dispatch_cooldown_ms"`

	// Tray
	TrayIconSize int `json:"tray_icon_size"`
}

// DefaultSettings returns Settings populated with standard defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Debug:                 false,
		LogLevel:              "info",
		GameWindowTitle:       "Dark Age of Camelot",
		RegionX:               0,
		RegionY:               0,
		RegionWidth:           100,
		RegionHeight:          100,
		SprintOnTemplatePath:  "data/icon_templates/sprint_on.png",
		SprintOffTemplatePath: "data/icon_templates/sprint_off.png",
		MatchThreshold:        0.80,
		AmbiguousFloor:        0.60,
		ModelPath:             "data/models/sprint_classifier.onnx",
		ModelInputWidth:       32,
		ModelInputHeight:      32,
		ModelThreshold:        0.70,
		UseModelFallback:      false,
		DetectionCacheSize:    50,
		DetectionCacheTTLMs:   500,
		PollIntervalMs:        100,
		CaptureTimeoutMs:      1000,
		DebounceCount:         3,
		MaxConsecutiveFail:    5,
		InitialState:          "inactive",
		SprintKey:             "Z",
		TriggerState:          "inactive",
		DispatchCooldownMs:    1500,
		TrayIconSize:          32,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (s *Settings) Validate() error {
	if s.RegionWidth <= 0 {
		s.RegionWidth = 100
	}
	if s.RegionHeight <= 0 {
		s.RegionHeight = 100
	}
	if s.MatchThreshold <= 0 || s.MatchThreshold > 1 {
		s.MatchThreshold = 0.80
	}
	if s.AmbiguousFloor < 0 || s.AmbiguousFloor >= s.MatchThreshold {
		s.AmbiguousFloor = s.MatchThreshold * 0.75
	}
	if s.ModelThreshold <= 0 || s.ModelThreshold > 1 {
		s.ModelThreshold = 0.70
	}
	if s.ModelInputWidth <= 0 {
		s.ModelInputWidth = 32
	}
	if s.ModelInputHeight <= 0 {
		s.ModelInputHeight = 32
	}
	if s.DetectionCacheSize < 10 {
		s.DetectionCacheSize = 10
	} else if s.DetectionCacheSize > 1000 {
		s.DetectionCacheSize = 1000
	}
	if s.DetectionCacheTTLMs <= 0 {
		s.DetectionCacheTTLMs = 500
	}
	if s.PollIntervalMs <= 0 {
		s.PollIntervalMs = 100
	}
	if s.CaptureTimeoutMs <= 0 {
		s.CaptureTimeoutMs = 1000
	}
	if s.DebounceCount < 1 {
		s.DebounceCount = 1
	} else if s.DebounceCount > 20 {
		s.DebounceCount = 20
	}
	if s.MaxConsecutiveFail < 1 {
		s.MaxConsecutiveFail = 5
	}
	if s.InitialState != "active" && s.InitialState != "inactive" {
		s.InitialState = "inactive"
	}
	if s.TriggerState != "active" && s.TriggerState != "inactive" {
		s.TriggerState = "inactive"
	}
	if s.DispatchCooldownMs < 0 {
		s.DispatchCooldownMs = 1500
	}
	if s.SprintKey == "" {
		s.SprintKey = "Z"
	}
	if s.TrayIconSize <= 0 {
		s.TrayIconSize = 32
	}
	return nil
}

// Load attempts to read configuration from the given JSON file path. If the
// file does not exist it returns DefaultSettings(). On JSON error it returns
// defaults with the error.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(s); err != nil {
		return s, err
	}
	_ = s.Validate()
	return s, nil
}

// Save writes the configuration to the given path in JSON format.
func (s *Settings) Save(path string) error {
	_ = s.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
