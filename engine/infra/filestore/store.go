// Package filestore keeps the per-study directories: the raw uploaded files
// and the location of each study database.
package filestore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/systragroup/SG-DataDashboard/engine/study"
	"github.com/systragroup/SG-DataDashboard/engine/study/uc"
)

const (
	filesDir   = "files"
	stagingDir = ".staging"
	headSize   = 3072
	dirPerm    = 0o755
)

var (
	// ErrInvalidID is returned for ids that would escape the data directory.
	ErrInvalidID = errors.New("filestore: invalid study id")
	// ErrFileNotFound is returned when a stored file does not exist.
	ErrFileNotFound = errors.New("filestore: file not found")
)

// Store lays study directories out under a root folder.
type Store struct {
	fs   afero.Fs
	root string
}

var _ uc.FileStore = (*Store)(nil)

// New returns a store rooted at root on fs.
func New(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: filepath.Clean(root)}
}

// NewOS returns a store on the local disk and creates the root folder.
func NewOS(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("filestore: resolve %s: %w", root, err)
	}
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", abs, err)
	}
	return New(fs, abs), nil
}

// Root returns the data directory.
func (s *Store) Root() string { return s.root }

// Dir returns the directory of a study.
func (s *Store) Dir(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return filepath.Join(s.root, id), nil
}

// Create makes the study directory with its files folder.
func (s *Store) Create(id string) (string, error) {
	dir, err := s.Dir(id)
	if err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(filepath.Join(dir, filesDir), dirPerm); err != nil {
		return "", fmt.Errorf("filestore: create %s: %w", dir, err)
	}
	return dir, nil
}

// Remove deletes the study directory and everything in it.
func (s *Store) Remove(id string) error {
	dir, err := s.Dir(id)
	if err != nil {
		return err
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("filestore: remove %s: %w", dir, err)
	}
	return nil
}

// Exists reports whether the study directory is present.
func (s *Store) Exists(id string) (bool, error) {
	dir, err := s.Dir(id)
	if err != nil {
		return false, err
	}
	return afero.DirExists(s.fs, dir)
}

// SanitizeName keeps the base name of an uploaded file.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimLeft(strings.TrimSpace(filepath.Base(name)), ".")
	if name == "" || name == "/" {
		return "upload"
	}
	return name
}

// Stage writes an upload under the staging folder of the study and keeps its
// leading bytes for format detection.
func (s *Store) Stage(id, name string, r io.Reader) (*uc.StagedFile, error) {
	dir, err := s.Dir(id)
	if err != nil {
		return nil, err
	}
	staging := filepath.Join(dir, filesDir, stagingDir)
	if err := s.fs.MkdirAll(staging, dirPerm); err != nil {
		return nil, fmt.Errorf("filestore: create staging: %w", err)
	}
	clean := SanitizeName(name)
	path := filepath.Join(staging, uuid.NewString()+filepath.Ext(clean))
	f, err := s.fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("filestore: create %s: %w", path, err)
	}
	head := &headBuffer{limit: headSize}
	size, copyErr := io.Copy(f, io.TeeReader(r, head))
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = s.fs.Remove(path)
		return nil, fmt.Errorf("filestore: write %s: %w", path, err)
	}
	return &uc.StagedFile{StudyID: id, Name: clean, Path: path, Size: size, Head: head.Bytes()}, nil
}

// Commit moves a staged upload to files/<kind>/, replacing the previous file
// of that kind.
func (s *Store) Commit(staged *uc.StagedFile, kind study.LayerKind) (string, error) {
	dir, err := s.kindDir(staged.StudyID, kind)
	if err != nil {
		return "", err
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("filestore: clear %s: %w", dir, err)
	}
	if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("filestore: create %s: %w", dir, err)
	}
	target := filepath.Join(dir, staged.Name)
	if err := s.fs.Rename(staged.Path, target); err != nil {
		return "", fmt.Errorf("filestore: keep %s: %w", staged.Name, err)
	}
	return target, nil
}

// Discard removes a staged upload.
func (s *Store) Discard(staged *uc.StagedFile) error {
	if err := s.fs.Remove(staged.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filestore: discard %s: %w", staged.Path, err)
	}
	return nil
}

// Open reads a staged upload back.
func (s *Store) Open(staged *uc.StagedFile) (afero.File, error) {
	return s.fs.Open(staged.Path)
}

// LocalPath returns a path on the local disk holding the staged content.
// Non-disk filesystems get a temporary copy removed by the cleanup func.
func (s *Store) LocalPath(staged *uc.StagedFile) (string, func(), error) {
	if _, ok := s.fs.(*afero.OsFs); ok {
		return staged.Path, func() {}, nil
	}
	src, err := s.fs.Open(staged.Path)
	if err != nil {
		return "", nil, fmt.Errorf("filestore: open %s: %w", staged.Path, err)
	}
	defer src.Close()
	tmp, err := os.CreateTemp("", "sgdash-*"+filepath.Ext(staged.Name))
	if err != nil {
		return "", nil, fmt.Errorf("filestore: temp copy: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }
	_, copyErr := io.Copy(tmp, src)
	if err := errors.Join(copyErr, tmp.Close()); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("filestore: temp copy: %w", err)
	}
	return tmp.Name(), cleanup, nil
}

// RemoveKind deletes the kept files of one kind.
func (s *Store) RemoveKind(id string, kind study.LayerKind) error {
	dir, err := s.kindDir(id, kind)
	if err != nil {
		return err
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("filestore: remove %s: %w", dir, err)
	}
	return nil
}

// ListFiles returns the kept files of a study, by kind then name.
func (s *Store) ListFiles(id string) ([]study.StoredFile, error) {
	out := []study.StoredFile{}
	for _, kind := range study.Kinds {
		dir, err := s.kindDir(id, kind)
		if err != nil {
			return nil, err
		}
		entries, err := afero.ReadDir(s.fs, dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("filestore: list %s: %w", dir, err)
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			out = append(out, study.StoredFile{Kind: kind, Name: e.Name(), Size: e.Size(), ModTime: e.ModTime()})
		}
	}
	return out, nil
}

// OpenFile opens a kept file for download.
func (s *Store) OpenFile(id string, kind study.LayerKind, name string) (afero.File, os.FileInfo, error) {
	dir, err := s.kindDir(id, kind)
	if err != nil {
		return nil, nil, err
	}
	if SanitizeName(name) != name {
		return nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	path := filepath.Join(dir, name)
	f, err := s.fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		return nil, nil, fmt.Errorf("filestore: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("filestore: stat %s: %w", path, err)
	}
	return f, info, nil
}

func (s *Store) kindDir(id string, kind study.LayerKind) (string, error) {
	dir, err := s.Dir(id)
	if err != nil {
		return "", err
	}
	if _, err := study.ParseLayerKind(string(kind)); err != nil {
		return "", err
	}
	return filepath.Join(dir, filesDir, string(kind)), nil
}

// headBuffer keeps at most limit bytes of what is written to it.
type headBuffer struct {
	bytes.Buffer
	limit int
}

func (h *headBuffer) Write(p []byte) (int, error) {
	if room := h.limit - h.Len(); room > 0 {
		if len(p) > room {
			h.Buffer.Write(p[:room])
		} else {
			h.Buffer.Write(p)
		}
	}
	return len(p), nil
}
