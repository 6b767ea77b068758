// Package config loads run settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// Config holds hyperparameters and file locations. Defaults reproduce the
// reference training run.
type Config struct {
	Seed          int64   `env:"SEED" default:"1234"`
	MaxVocabSize  int     `env:"MAX_VOCAB_SIZE" default:"25000"`
	BatchSize     int     `env:"BATCH_SIZE" default:"64"`
	EmbeddingDim  int     `env:"EMBEDDING_DIM" default:"100"`
	HiddenDim     int     `env:"HIDDEN_DIM" default:"256"`
	NLayers       int     `env:"N_LAYERS" default:"2"`
	Bidirectional bool    `env:"BIDIRECTIONAL" default:"true"`
	Dropout       float64 `env:"DROPOUT" default:"0.5"`
	NEpochs       int     `env:"N_EPOCHS" default:"5"`
	LearningRate  float64 `env:"LEARNING_RATE" default:"0.001"`
	TrainSplit    float64 `env:"TRAIN_SPLIT" default:"0.7"`
	MaxSeqLen     int     `env:"MAX_SEQ_LEN" default:"0"`
	MaxPerClass   int     `env:"MAX_PER_CLASS" default:"0"`
	GradClip      float64 `env:"GRAD_CLIP" default:"0"`

	// Optimizer is adam or sgd.
	Optimizer string `env:"OPTIMIZER" default:"adam"`

	// LRSchedule is one of none, step or plateau.
	LRSchedule string  `env:"LR_SCHEDULE" default:"none"`
	LRStepSize int     `env:"LR_STEP_SIZE" default:"1"`
	LRGamma    float64 `env:"LR_GAMMA" default:"0.1"`
	LRPatience int     `env:"LR_PATIENCE" default:"1"`

	DataDir        string `env:"DATA_DIR" default:"data/aclImdb"`
	VectorsFile    string `env:"VECTORS_FILE" default:"data/glove.6B.100d.txt"`
	CheckpointFile string `env:"CHECKPOINT_FILE" default:"tut2-model.gob"`
	VocabFile      string `env:"VOCAB_FILE" default:"tut2-vocab.gob"`
	HistoryFile    string `env:"HISTORY_FILE"`
	MetricsFile    string `env:"METRICS_FILE"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	positive := []struct {
		name  string
		value int
	}{
		{"MAX_VOCAB_SIZE", cfg.MaxVocabSize},
		{"BATCH_SIZE", cfg.BatchSize},
		{"EMBEDDING_DIM", cfg.EmbeddingDim},
		{"HIDDEN_DIM", cfg.HiddenDim},
		{"N_LAYERS", cfg.NLayers},
		{"N_EPOCHS", cfg.NEpochs},
	}
	for _, p := range positive {
		if p.value < 1 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}

	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return fmt.Errorf("DROPOUT must be in [0, 1), got %g", cfg.Dropout)
	}
	if cfg.LearningRate <= 0 {
		return fmt.Errorf("LEARNING_RATE must be positive, got %g", cfg.LearningRate)
	}
	if cfg.TrainSplit <= 0 || cfg.TrainSplit >= 1 {
		return fmt.Errorf("TRAIN_SPLIT must be in (0, 1), got %g", cfg.TrainSplit)
	}
	if cfg.MaxSeqLen < 0 || cfg.MaxPerClass < 0 {
		return errors.New("MAX_SEQ_LEN and MAX_PER_CLASS must not be negative")
	}
	if cfg.GradClip < 0 {
		return fmt.Errorf("GRAD_CLIP must not be negative, got %g", cfg.GradClip)
	}
	switch cfg.Optimizer {
	case "adam", "sgd":
	default:
		return fmt.Errorf("OPTIMIZER must be adam or sgd, got %q", cfg.Optimizer)
	}
	switch cfg.LRSchedule {
	case "none", "step", "plateau":
	default:
		return fmt.Errorf("LR_SCHEDULE must be none, step or plateau, got %q", cfg.LRSchedule)
	}
	if cfg.LRSchedule != "none" {
		if cfg.LRGamma <= 0 || cfg.LRGamma >= 1 {
			return fmt.Errorf("LR_GAMMA must be in (0, 1), got %g", cfg.LRGamma)
		}
		if cfg.LRStepSize < 1 || cfg.LRPatience < 1 {
			return errors.New("LR_STEP_SIZE and LR_PATIENCE must be positive")
		}
	}
	if cfg.CheckpointFile == "" || cfg.VocabFile == "" {
		return errors.New("CHECKPOINT_FILE and VOCAB_FILE are required")
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	return nil
}
