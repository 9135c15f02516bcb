package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed thresholds.yaml
var thresholdsYAML []byte

type Config struct {
	Database DatabaseConfig
	Vision   VisionConfig
	AI       AIConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Matching MatchingConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type VisionConfig struct {
	URL string // face detection/embedding service URL (defaults to http://localhost:8000)
	Dim int    // embedding dimensionality fixed by the service model (defaults to 512, must match the migrated face_samples vector column)
}

// AIConfig selects the note-generation backend. An empty provider disables
// face note generation entirely.
type AIConfig struct {
	Provider string // "openai" or "gemini"
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

// MatchingConfig holds the similarity cutoffs used to classify match
// confidence. Defaults come from the embedded thresholds.yaml; each value can
// be overridden through the environment.
type MatchingConfig struct {
	AutoAccept     float64 `yaml:"auto_accept"`
	AmbiguousFloor float64 `yaml:"ambiguous_floor"`
	Exploratory    float64 `yaml:"exploratory"`
}

type thresholdsFile struct {
	Matching MatchingConfig `yaml:"matching"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float in (0, 1).
// Returns the default value if the env var is unset, empty, or out of range.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f < 1 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var thresholds thresholdsFile
	if err := yaml.Unmarshal(thresholdsYAML, &thresholds); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded thresholds.yaml: " + err.Error())
	}

	m := thresholds.Matching
	m.AutoAccept = envFloat("MATCH_AUTO_ACCEPT", m.AutoAccept)
	m.AmbiguousFloor = envFloat("MATCH_AMBIGUOUS_FLOOR", m.AmbiguousFloor)
	m.Exploratory = envFloat("MATCH_EXPLORATORY", m.Exploratory)

	// AutoAccept is user-tunable but only within a sane range.
	if m.AutoAccept < 0.70 {
		m.AutoAccept = 0.70
	}
	if m.AutoAccept > 0.99 {
		m.AutoAccept = 0.99
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Vision: VisionConfig{
			URL: os.Getenv("VISION_URL"),
			Dim: envInt("VISION_EMBEDDING_DIM", 512),
		},
		AI: AIConfig{
			Provider: os.Getenv("AI_PROVIDER"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Matching: m,
	}
}
