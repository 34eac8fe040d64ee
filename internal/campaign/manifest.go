package campaign

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Manifest records which campaign a checkout belongs to.
type Manifest struct {
	Client string `json:"client"`
	JobID  string `json:"jobid"`
}

// WriteManifest writes m to path as a single line of the form
// {"client": "acme", "jobid": "j001"}.
func WriteManifest(path string, m Manifest) error {
	client, err := json.Marshal(m.Client)
	if err != nil {
		return fmt.Errorf("marshal project spec: %w", err)
	}
	jobid, err := json.Marshal(m.JobID)
	if err != nil {
		return fmt.Errorf("marshal project spec: %w", err)
	}
	data := fmt.Appendf(nil, `{"client": %s, "jobid": %s}`, client, jobid)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write project spec: %w", err)
	}
	return nil
}

// ReadManifest reads and validates the manifest in dir.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read project spec: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrManifestEmpty
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse project spec %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, ErrManifestEmpty
	}

	client, err := stringField(raw, "client")
	if err != nil {
		return nil, err
	}
	jobid, err := stringField(raw, "jobid")
	if err != nil {
		return nil, err
	}
	return &Manifest{Client: client, JobID: jobid}, nil
}

func stringField(raw map[string]any, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", &ManifestFieldError{Field: key}
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("project spec field %q is not a string", key)
	}
	if s == "" {
		return "", &ManifestFieldError{Field: key}
	}
	return s, nil
}
