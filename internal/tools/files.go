package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideWorkspace = errors.New("operation not allowed outside designated workspace")

// Workspace confines file tools to a root directory.
type Workspace struct {
	root string
}

func NewWorkspace(dir string) (*Workspace, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return nil, err
	}
	return &Workspace{root: abs}, nil
}

func (w *Workspace) Root() string {
	return w.root
}

// Resolve maps a workspace-relative path to an absolute one, rejecting
// absolute paths and anything that climbs out of the root, including through
// a symlink inside the workspace.
func (w *Workspace) Resolve(rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", ErrOutsideWorkspace, rel)
	}
	full := filepath.Join(w.root, rel)
	if !w.contains(full) {
		return "", fmt.Errorf("%w: %q", ErrOutsideWorkspace, rel)
	}
	target, err := realPath(full)
	if err != nil {
		return "", err
	}
	if !w.contains(target) {
		return "", fmt.Errorf("%w: %q", ErrOutsideWorkspace, rel)
	}
	return full, nil
}

func (w *Workspace) contains(path string) bool {
	r, err := filepath.Rel(w.root, path)
	return err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}

// realPath resolves symlinks in the longest existing prefix of path and
// appends the part that does not exist yet.
func realPath(path string) (string, error) {
	existing, rest := path, ""
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			return filepath.Join(resolved, rest), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return path, nil
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
}

func (w *Workspace) Write(rel, content string) (string, error) {
	path, err := w.Resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (w *Workspace) Read(rel string) (string, error) {
	path, err := w.Resolve(rel)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type FileWriter struct {
	ws *Workspace
}

func NewFileWriter(ws *Workspace) *FileWriter { return &FileWriter{ws: ws} }

func (f *FileWriter) Name() string { return "file_writer" }

func (f *FileWriter) Description() string {
	return "Writes content to a file in the agent workspace. Params: file_path, content."
}

func (f *FileWriter) Execute(_ context.Context, params map[string]interface{}) (string, error) {
	rel, err := stringParam(params, "file_path")
	if err != nil {
		return "", err
	}
	content, err := stringParam(params, "content")
	if err != nil {
		return "", err
	}
	if _, err := f.ws.Write(rel, content); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully wrote to file: %s", rel), nil
}

type FileReader struct {
	ws *Workspace
}

func NewFileReader(ws *Workspace) *FileReader { return &FileReader{ws: ws} }

func (f *FileReader) Name() string { return "file_reader" }

func (f *FileReader) Description() string {
	return "Reads the content of a file in the agent workspace. Params: file_path."
}

func (f *FileReader) Execute(_ context.Context, params map[string]interface{}) (string, error) {
	rel, err := stringParam(params, "file_path")
	if err != nil {
		return "", err
	}
	return f.ws.Read(rel)
}
