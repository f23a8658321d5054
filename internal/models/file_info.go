package models

import (
	"path/filepath"
	"strings"
)

// FileInfo describes an input file, as handed to scripts when an agent runs
// over files.
type FileInfo struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Stem string `json:"stem"`
	Ext  string `json:"ext"`
	Dir  string `json:"dir"`
}

func NewFileInfo(path string) FileInfo {
	name := filepath.Base(path)
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return FileInfo{
		Path: path,
		Name: name,
		Stem: strings.TrimSuffix(name, filepath.Ext(name)),
		Ext:  ext,
		Dir:  filepath.Dir(path),
	}
}
