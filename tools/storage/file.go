package storage

import (
	"context"
	"os"
	"path/filepath"
)

type FilePantryState struct {
	FilePath string
}

func NewFilePantryState(filePath string) *FilePantryState {
	return &FilePantryState{FilePath: filePath}
}

func (p *FilePantryState) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(p.FilePath)
}

// Save replaces the file through a rename so readers never see a partial document.
func (p *FilePantryState) Save(ctx context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p.FilePath), ".pantry-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p.FilePath)
}

type FileRecipeState struct {
	FilePath string
}

func NewFileRecipeState(filePath string) *FileRecipeState {
	return &FileRecipeState{FilePath: filePath}
}

func (r *FileRecipeState) Load(ctx context.Context) ([]byte, error) {
	return os.ReadFile(r.FilePath)
}
