// Package storage caches fetched simulation runs on disk so they can be
// replayed without the data source.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
)

const (
	metadataFile = "metadata.json"
	samplesFile  = "samples.json"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return errors.Wrap(os.MkdirAll(s.baseDir, 0755), "create run cache")
}

// RunMetadata describes a cached run.
type RunMetadata struct {
	ID           string            `json:"id"`
	Apparatus    string            `json:"apparatus"`
	ExperimentID string            `json:"experiment_id,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
	Records      int               `json:"records"`
	Timestamp    time.Time         `json:"timestamp"`
}

// Save writes the raw samples and their metadata under a new run id, which
// it returns.
func (s *Store) Save(meta RunMetadata, samples []byte) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	meta.Timestamp = s.now()
	base := fmt.Sprintf("%s_%d", meta.Apparatus, meta.Timestamp.Unix())
	meta.ID = base
	for n := 2; ; n++ {
		err := os.Mkdir(filepath.Join(s.baseDir, meta.ID), 0755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return "", errors.Wrap(err, "create run dir")
		}
		meta.ID = fmt.Sprintf("%s_%d", base, n)
	}
	runDir := filepath.Join(s.baseDir, meta.ID)

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encode metadata")
	}
	if err := os.WriteFile(filepath.Join(runDir, metadataFile), data, 0644); err != nil {
		return "", errors.Wrap(err, "write metadata")
	}
	if err := os.WriteFile(filepath.Join(runDir, samplesFile), samples, 0644); err != nil {
		return "", errors.Wrap(err, "write samples")
	}
	return meta.ID, nil
}

// List returns the cached runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, errors.Wrap(err, "read run cache")
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if !runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].Timestamp.After(runs[j].Timestamp)
		}
		return runs[i].ID > runs[j].ID
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := s.read(runID, metadataFile)
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrapf(err, "decode metadata of %s", runID)
	}
	return &meta, nil
}

// LoadSamples returns the samples exactly as they were saved.
func (s *Store) LoadSamples(runID string) ([]byte, error) {
	return s.read(runID, samplesFile)
}

func (s *Store) read(runID, name string) ([]byte, error) {
	if runID == "" || runID != filepath.Base(runID) {
		return nil, errors.Wrapf(ErrRunNotFound, "%q", runID)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, name))
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(ErrRunNotFound, "%q", runID)
	}
	return data, errors.Wrapf(err, "read %s of %s", name, runID)
}
