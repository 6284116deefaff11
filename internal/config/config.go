package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"medprep-exam-service/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		TTL string `yaml:"ttl"`
	} `yaml:"questions"`
	Exam struct {
		TargetCount     int                    `yaml:"targetCount"`
		DurationSeconds int                    `yaml:"durationSeconds"`
		Weights         []domain.SubjectWeight `yaml:"weights"`
	} `yaml:"exam"`
	Battle struct {
		QuestionCount int `yaml:"questionCount"`
	} `yaml:"battle"`
	Outbox struct {
		FlushInterval string `yaml:"flushInterval"`
	} `yaml:"outbox"`
}

// Load reads YAML config from path and applies exam defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Exam.TargetCount == 0 {
		cfg.Exam.TargetCount = 100
	}
	if cfg.Exam.DurationSeconds == 0 {
		cfg.Exam.DurationSeconds = 3 * 60 * 60
	}
	if len(cfg.Exam.Weights) == 0 {
		cfg.Exam.Weights = DefaultWeights()
	}
	if cfg.Battle.QuestionCount == 0 {
		cfg.Battle.QuestionCount = 10
	}
}

// DefaultWeights is the designer-fixed subject distribution for a paper.
func DefaultWeights() []domain.SubjectWeight {
	return []domain.SubjectWeight{
		{Subject: "anatomy", Fraction: 0.45},
		{Subject: "physiology", Fraction: 0.25},
		{Subject: "biochemistry", Fraction: 0.20},
		{Subject: "pathology", Fraction: 0.05},
		{Subject: "pharmacology", Fraction: 0.05},
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
