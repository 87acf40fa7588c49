package share

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const ManifestFile = "manifest.yaml"

// Manifest describes one shared bundle.
type Manifest struct {
	Subject string    `yaml:"subject"`
	Text    string    `yaml:"text,omitempty"`
	Files   []string  `yaml:"files"`
	Created time.Time `yaml:"created"`
}

// DirTarget copies shared files into a fresh directory under Dir and writes a
// manifest next to them.
type DirTarget struct {
	Dir string
	Now func() time.Time
}

func (d DirTarget) Share(ctx context.Context, req Request) (string, error) {
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	created := now()

	bundle := filepath.Join(d.Dir, fmt.Sprintf("%s_%d", slug(req.Subject), created.Unix()))
	if err := os.MkdirAll(bundle, 0755); err != nil {
		return "", errors.Wrapf(err, "create %s", bundle)
	}

	m := Manifest{Subject: req.Subject, Text: req.Text, Created: created}
	for _, src := range req.Files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		name := filepath.Base(src)
		if err := copyFile(src, filepath.Join(bundle, name)); err != nil {
			return "", err
		}
		m.Files = append(m.Files, name)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return "", errors.Wrap(err, "encode manifest")
	}
	if err := os.WriteFile(filepath.Join(bundle, ManifestFile), data, 0644); err != nil {
		return "", errors.Wrap(err, "write manifest")
	}
	return bundle, nil
}

// ReadManifest loads the manifest of a bundle directory.
func ReadManifest(bundle string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(bundle, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decode manifest")
	}
	return &m, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open %s", src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrapf(err, "create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errors.Wrapf(err, "copy %s", src)
	}
	return out.Close()
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
	s = strings.Trim(s, "_")
	if s == "" {
		return "share"
	}
	return s
}
