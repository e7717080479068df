package program

import (
	"archive/zip"
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/myrjola/petracoach/internal/errors"
	"gopkg.in/yaml.v3"
)

var textExtensions = map[string]bool{
	".md":   true,
	".json": true,
	".txt":  true,
	".yaml": true,
	".yml":  true,
}

// Load reads a pack from a directory or from a .zip archive.
func Load(name string) (*Pack, error) {
	info, err := os.Stat(name)
	if err != nil {
		return nil, errors.Wrap(err, "stat pack", slog.String("path", name))
	}
	if info.IsDir() {
		return LoadFS(os.DirFS(name))
	}
	return LoadZip(name)
}

// LoadZip reads a pack from a zip archive. The manifest must be at the archive root.
func LoadZip(name string) (*Pack, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, errors.Wrap(err, "open pack archive", slog.String("path", name))
	}
	pack, err := LoadFS(rc)
	if closeErr := rc.Close(); closeErr != nil {
		err = errors.Join(err, errors.Wrap(closeErr, "close pack archive"))
	}
	if err != nil {
		return nil, err
	}
	return pack, nil
}

// LoadFS reads a pack from fsys.
//
// manifest.yaml is preferred over manifest.json when both exist. All text files are kept in memory so that workouts
// and markdown can be resolved later. Binary assets are ignored.
func LoadFS(fsys fs.FS) (*Pack, error) {
	manifest, err := readManifest(fsys)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string)
	err = fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !textExtensions[strings.ToLower(path.Ext(name))] {
			return nil
		}
		content, readErr := fs.ReadFile(fsys, name)
		if readErr != nil {
			return errors.Wrap(readErr, "read pack file", slog.String("path", name))
		}
		files[name] = string(content)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "walk pack")
	}

	return New(manifest, files), nil
}

func readManifest(fsys fs.FS) (Manifest, error) {
	var manifest Manifest
	for _, name := range []string{"manifest.yaml", "manifest.yml"} {
		content, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Manifest{}, errors.Wrap(err, "read manifest", slog.String("path", name))
		}
		if err = yaml.Unmarshal(content, &manifest); err != nil {
			return Manifest{}, errors.Wrap(err, "decode manifest", slog.String("path", name))
		}
		return manifest, nil
	}

	content, err := fs.ReadFile(fsys, "manifest.json")
	if err != nil {
		return Manifest{}, errors.Wrap(err, "missing required file manifest.json")
	}
	if err = json.Unmarshal(content, &manifest); err != nil {
		return Manifest{}, errors.Wrap(err, "decode manifest", slog.String("path", "manifest.json"))
	}
	return manifest, nil
}
