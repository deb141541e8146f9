package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	MinFontScale = 80
	MaxFontScale = 140
)

type PrivacySettings struct {
	Camera      bool `json:"camera"`
	Storage     bool `json:"storage"`
	DataConsent bool `json:"data_consent"`
}

type DisplaySettings struct {
	Theme     string `json:"theme"`
	FontScale int    `json:"font_scale"`
}

type HistorySettings struct {
	DefaultFilter HistoryFilter `json:"default_filter"`
}

type ChatbotSettings struct {
	Mode string `json:"mode"`
}

// Settings are a visitor's app preferences.
type Settings struct {
	Privacy  PrivacySettings `json:"privacy"`
	Display  DisplaySettings `json:"display"`
	Language string          `json:"language"`
	History  HistorySettings `json:"history"`
	Chatbot  ChatbotSettings `json:"chatbot"`
}

func DefaultSettings() Settings {
	return Settings{
		Privacy:  PrivacySettings{Camera: true, Storage: true, DataConsent: true},
		Display:  DisplaySettings{Theme: "light", FontScale: 100},
		Language: "ko",
		History:  HistorySettings{DefaultFilter: FilterAll},
		Chatbot:  ChatbotSettings{Mode: "normal"},
	}
}

// SettingsPatch is a partial update. Nil fields are left alone.
type SettingsPatch struct {
	Privacy *struct {
		Camera      *bool `json:"camera"`
		Storage     *bool `json:"storage"`
		DataConsent *bool `json:"data_consent"`
	} `json:"privacy"`
	Display *struct {
		Theme     *string `json:"theme"`
		FontScale any     `json:"font_scale"`
	} `json:"display"`
	Language *string `json:"language"`
	History  *struct {
		DefaultFilter *string `json:"default_filter"`
	} `json:"history"`
	Chatbot *struct {
		Mode *string `json:"mode"`
	} `json:"chatbot"`
}

// Merge applies p to s. Unknown choices are ignored and the font scale
// is clamped to [MinFontScale, MaxFontScale].
func (s Settings) Merge(p SettingsPatch) Settings {
	if p.Privacy != nil {
		if p.Privacy.Camera != nil {
			s.Privacy.Camera = *p.Privacy.Camera
		}
		if p.Privacy.Storage != nil {
			s.Privacy.Storage = *p.Privacy.Storage
		}
		if p.Privacy.DataConsent != nil {
			s.Privacy.DataConsent = *p.Privacy.DataConsent
		}
	}

	if p.Display != nil {
		if p.Display.Theme != nil && oneOf(*p.Display.Theme, "light", "dark") {
			s.Display.Theme = *p.Display.Theme
		}
		if scale, ok := fontScale(p.Display.FontScale); ok {
			s.Display.FontScale = min(MaxFontScale, max(MinFontScale, scale))
		}
	}

	if p.Language != nil && oneOf(*p.Language, "ko", "en") {
		s.Language = *p.Language
	}

	if p.History != nil && p.History.DefaultFilter != nil &&
		oneOf(*p.History.DefaultFilter, string(FilterAll), string(FilterLegit), string(FilterMalicious)) {
		s.History.DefaultFilter = HistoryFilter(*p.History.DefaultFilter)
	}

	if p.Chatbot != nil && p.Chatbot.Mode != nil && oneOf(*p.Chatbot.Mode, "normal", "pro") {
		s.Chatbot.Mode = *p.Chatbot.Mode
	}

	return s
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// fontScale accepts a JSON number or a numeric string.
func fontScale(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(math.Max(math.Min(n, math.MaxInt32), math.MinInt32)), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

type SettingsService struct {
	pool *pgxpool.Pool
}

func NewSettingsService(pool *pgxpool.Pool) *SettingsService {
	return &SettingsService{pool: pool}
}

// Get returns the owner's settings, filling gaps with defaults.
func (s *SettingsService) Get(ctx context.Context, ownerID string) (Settings, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT settings FROM user_settings WHERE owner_id = $1`, ownerID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settings, nil
}

// Save replaces the owner's settings.
func (s *SettingsService) Save(ctx context.Context, ownerID string, settings Settings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_settings (owner_id, settings, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (owner_id) DO UPDATE
		SET settings = EXCLUDED.settings, updated_at = EXCLUDED.updated_at
	`, ownerID, raw)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
