package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smukkama/aqi-forecast/internal/scaling"
)

// LoadError reports a model or scaler artifact that is missing, unreadable,
// or not of the expected shape
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load artifact %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Loader reads artifacts from a base directory
type Loader struct {
	baseDir string
}

// NewLoader creates a loader rooted at baseDir
func NewLoader(baseDir string) *Loader {
	return &Loader{baseDir: baseDir}
}

// Path resolves a file name under the base directory
func (l *Loader) Path(file string) string {
	return filepath.Join(l.baseDir, file)
}

// LoadModel reads a model artifact and checks that it accepts nFeatures inputs
func (l *Loader) LoadModel(name, file string, nFeatures int) (Model, error) {
	path := l.Path(file)

	var doc Document
	if err := readJSON(path, &doc); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if doc.Name == "" {
		doc.Name = name
	}
	if doc.NFeatures != nFeatures {
		return nil, &LoadError{
			Path: path,
			Err:  fmt.Errorf("model %s expects %d features, pipeline provides %d", doc.Name, doc.NFeatures, nFeatures),
		}
	}

	model, err := doc.Build()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return model, nil
}

// LoadScaler reads a fitted min-max scaler artifact
func (l *Loader) LoadScaler(file string) (*scaling.MinMaxScaler, error) {
	path := l.Path(file)

	var s scaling.MinMaxScaler
	if err := readJSON(path, &s); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if err := s.Validate(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return &s, nil
}

// SaveScaler writes the scaler next to the models. The file is replaced
// atomically so a concurrent reader never sees a partial document.
func (l *Loader) SaveScaler(file string, s *scaling.MinMaxScaler) error {
	path := l.Path(file)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scaler: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".scaler-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write scaler: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close scaler file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move scaler into place: %w", err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid artifact: %w", err)
	}
	return nil
}
