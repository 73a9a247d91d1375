package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	apperrors "beatmark/internal/platform/errors"
)

const FileName = "beatmark.yaml"

type Config struct {
	DataDir  string
	DBPath   string
	NotesDir string
	Editor   EditorConfig
	View     ViewConfig
	Log      LogConfig
}

type EditorConfig struct {
	DefaultLabel     string  `yaml:"default_label"`
	LocatedLabel     string  `yaml:"located_label"`
	ToleranceSeconds float64 `yaml:"tolerance_seconds"`
	TolerancePixels  float64 `yaml:"tolerance_pixels"`
}

type ViewConfig struct {
	InitialWidth  float64 `yaml:"initial_width"`
	ZoomFactor    float64 `yaml:"zoom_factor"`
	NavigateLabel string  `yaml:"navigate_label"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// New returns the defaults rooted at dataDir.
func New(dataDir string) (Config, error) {
	if dataDir == "" {
		return Config{}, fmt.Errorf("data directory is required")
	}
	return Config{
		DataDir:  dataDir,
		DBPath:   filepath.Join(dataDir, "beatmark.db"),
		NotesDir: filepath.Join(dataDir, "notes"),
		Editor: EditorConfig{
			DefaultLabel:     "N",
			LocatedLabel:     "L",
			ToleranceSeconds: 0.05,
			TolerancePixels:  1,
		},
		View: ViewConfig{
			InitialWidth:  10,
			ZoomFactor:    2,
			NavigateLabel: "S",
		},
		Log: LogConfig{Level: "info"},
	}, nil
}

// Load applies dataDir/beatmark.yaml, when present, over the defaults.
func Load(dataDir string) (Config, error) {
	cfg, err := New(dataDir)
	if err != nil {
		return Config{}, err
	}
	raw, err := os.ReadFile(filepath.Join(dataDir, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return cfg.overlay(raw)
}

func (c Config) overlay(raw []byte) (Config, error) {
	file := struct {
		Editor *EditorConfig `yaml:"editor"`
		View   *ViewConfig   `yaml:"view"`
		Log    *LogConfig    `yaml:"log"`
	}{Editor: &c.Editor, View: &c.View, Log: &c.Log}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode %s: %w", FileName, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Editor.DefaultLabel == "" || c.Editor.LocatedLabel == "" {
		return fmt.Errorf("%w: editor labels must not be empty", apperrors.ErrInvalidInput)
	}
	if c.Editor.ToleranceSeconds < 0 || c.Editor.TolerancePixels < 0 {
		return fmt.Errorf("%w: editor tolerances must be non-negative", apperrors.ErrInvalidInput)
	}
	if c.View.ZoomFactor <= 1 {
		return fmt.Errorf("%w: view zoom_factor must be greater than 1", apperrors.ErrInvalidInput)
	}
	if c.View.InitialWidth < 0 {
		return fmt.Errorf("%w: view initial_width must be non-negative", apperrors.ErrInvalidInput)
	}
	return nil
}
