package geo

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format identifies the container of an uploaded geographic file.
type Format string

const (
	FormatShapefile  Format = "shapefile"
	FormatGeoPackage Format = "geopackage"
)

// DetectFormat sniffs the leading bytes of an upload. The file name is only
// used to break ties when the content is ambiguous.
func DetectFormat(head []byte, fileName string) (Format, error) {
	if len(head) > 0 {
		// Zip-based types such as OOXML resolve through their parent.
		for m := mimetype.Detect(head); m != nil; m = m.Parent() {
			switch {
			case m.Is("application/zip"):
				return FormatShapefile, nil
			case m.Is("application/vnd.sqlite3"), m.Is("application/x-sqlite3"):
				return FormatGeoPackage, nil
			}
		}
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".zip":
		return FormatShapefile, nil
	case ".gpkg":
		return FormatGeoPackage, nil
	}
	return "", ErrUnsupportedFormat
}
