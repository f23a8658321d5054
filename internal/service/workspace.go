package service

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zjregee/aip/internal/config"
)

//go:embed assets/init
var initFS embed.FS

const initRoot = "assets/init"

var ErrNoWorkspace = errors.New("no .aip workspace found (run `aip init`)")

type Workspace struct {
	Dir    string
	Config *config.Config
}

// FindWorkspaceDir walks up from start to the first directory holding a .aip
// directory.
func FindWorkspaceDir(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		info, err := os.Stat(filepath.Join(dir, config.DirName))
		if err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoWorkspace
		}
		dir = parent
	}
}

func LoadWorkspace(start string) (*Workspace, error) {
	dir, err := FindWorkspaceDir(start)
	if err != nil {
		return nil, err
	}

	cfgPath := filepath.Join(dir, config.DirName, config.FileName)
	if _, err := os.Stat(cfgPath); err != nil {
		cfgPath = ""
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	return &Workspace{Dir: dir, Config: cfg}, nil
}

func (w *Workspace) AipDir() string {
	return filepath.Join(w.Dir, config.DirName)
}

func (w *Workspace) StorePath() string {
	if filepath.IsAbs(w.Config.Store.Path) {
		return w.Config.Store.Path
	}
	return filepath.Join(w.Dir, w.Config.Store.Path)
}

// InitWorkspace creates .aip/config.yaml and a sample agent under dir. Files
// that already exist are left untouched. It returns the created paths.
func InitWorkspace(dir string) ([]string, error) {
	aipDir := filepath.Join(dir, config.DirName)

	var created []string
	err := fs.WalkDir(initFS, initRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(initRoot, path)
		if err != nil {
			return err
		}
		target := filepath.Join(aipDir, rel)
		if _, err := os.Stat(target); err == nil {
			return nil
		}

		content, err := initFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read init asset %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(target, content, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
		created = append(created, target)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}
