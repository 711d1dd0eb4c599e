package geo

import "errors"

var (
	ErrNoShapefile         = errors.New("archive contains no shapefile")
	ErrMultipleShapefiles  = errors.New("archive contains more than one shapefile")
	ErrIncompleteShapefile = errors.New("shapefile is missing its .shx or .dbf companion")
	ErrUnsafePath          = errors.New("archive entry escapes the extraction root")
	ErrUnsupportedFormat   = errors.New("unsupported file format, expected a zipped shapefile or a geopackage")
	ErrUnknownCRS          = errors.New("unable to determine the coordinate reference system")
	ErrUnsupportedCRS      = errors.New("coordinate reference system is not supported")
	ErrLayerRequired       = errors.New("geopackage has several feature tables, a layer name is required")
	ErrLayerNotFound       = errors.New("layer not found")
	ErrFieldNotFound       = errors.New("field not found in layer")
	ErrEmptyLayer          = errors.New("layer contains no features")
	ErrInvalidGeometry     = errors.New("invalid geometry")
)
