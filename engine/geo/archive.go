package geo

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ShapefileSet is the validated group of archive entries making up one
// shapefile.
type ShapefileSet struct {
	Base string
	SHP  *zip.File
	SHX  *zip.File
	DBF  *zip.File
	PRJ  *zip.File
	CPG  *zip.File
}

// OpenShapefileArchive reads a zip archive and validates it holds exactly one
// shapefile.
func OpenShapefileArchive(r io.ReaderAt, size int64) (*ShapefileSet, error) {
	zr, err := zip.NewReader(r, size)
	// Insecure names are reported with a usable reader and rejected below.
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return ValidateShapefileArchive(zr)
}

// ValidateShapefileArchive checks the archive contains exactly one .shp, one
// .shx and one .dbf sharing a base name. Extensions are matched without regard
// to case; folders are allowed; macOS metadata and hidden files are skipped.
func ValidateShapefileArchive(zr *zip.Reader) (*ShapefileSet, error) {
	byExt := make(map[string][]*zip.File)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := checkEntryName(f.Name); err != nil {
			return nil, err
		}
		if ignoredEntry(f.Name) {
			continue
		}
		ext := strings.ToLower(path.Ext(f.Name))
		byExt[ext] = append(byExt[ext], f)
	}

	shps := byExt[".shp"]
	switch {
	case len(shps) == 0:
		return nil, ErrNoShapefile
	case len(shps) > 1:
		return nil, fmt.Errorf("%w: found %d", ErrMultipleShapefiles, len(shps))
	}
	set := &ShapefileSet{SHP: shps[0], Base: entryBase(shps[0].Name)}

	var err error
	if set.SHX, err = companion(byExt[".shx"], set.Base, true); err != nil {
		return nil, fmt.Errorf("%w: .shx", err)
	}
	if set.DBF, err = companion(byExt[".dbf"], set.Base, true); err != nil {
		return nil, fmt.Errorf("%w: .dbf", err)
	}
	if set.PRJ, err = companion(byExt[".prj"], set.Base, false); err != nil {
		return nil, fmt.Errorf("%w: .prj", err)
	}
	if set.CPG, err = companion(byExt[".cpg"], set.Base, false); err != nil {
		return nil, fmt.Errorf("%w: .cpg", err)
	}
	return set, nil
}

// Name returns the shapefile name without folder or extension.
func (s *ShapefileSet) Name() string {
	return path.Base(s.Base)
}

func companion(files []*zip.File, base string, required bool) (*zip.File, error) {
	var match *zip.File
	for _, f := range files {
		if !strings.EqualFold(entryBase(f.Name), base) {
			continue
		}
		if match != nil {
			return nil, ErrMultipleShapefiles
		}
		match = f
	}
	if match == nil && required {
		return nil, ErrIncompleteShapefile
	}
	return match, nil
}

func entryBase(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.TrimSuffix(name, path.Ext(name))
}

func checkEntryName(name string) error {
	clean := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(clean, "/") || (len(clean) > 1 && clean[1] == ':') {
		return fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	for _, part := range strings.Split(clean, "/") {
		if part == ".." {
			return fmt.Errorf("%w: %s", ErrUnsafePath, name)
		}
	}
	return nil
}

func ignoredEntry(name string) bool {
	clean := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(clean, "__MACOSX/") {
		return true
	}
	return strings.HasPrefix(path.Base(clean), ".")
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}
