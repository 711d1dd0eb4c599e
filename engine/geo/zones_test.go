package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

func zoneLayer(t *testing.T, rows ...[2]string) *Layer {
	t.Helper()
	layer := &Layer{Fields: []string{"ZONE_ID", "LIBELLE"}}
	for i, r := range rows {
		layer.Features = append(layer.Features, Feature{
			Geometry:   polygon(t, float64(i), 45, 1),
			Properties: map[string]string{"ZONE_ID": r[0], "LIBELLE": r[1]},
		})
	}
	return layer
}

func ids(zones []Zone) []string {
	out := make([]string, 0, len(zones))
	for _, z := range zones {
		out = append(out, z.ID)
	}
	return out
}

func TestNormalizeZones(t *testing.T) {
	t.Run("Should sort clean zones numerically", func(t *testing.T) {
		layer := zoneLayer(t, [2]string{"10", "Est"}, [2]string{"2.0", "Ouest"}, [2]string{" 1 ", "Centre"})

		p, err := NormalizeZones(layer, "ZONE_ID", "LIBELLE")

		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "10"}, ids(p.Clean))
		assert.Empty(t, p.Unclean)
		assert.Equal(t, "ZONE_ID", p.IDField)
	})

	t.Run("Should sort lexically when an id is not an integer", func(t *testing.T) {
		layer := zoneLayer(t, [2]string{"B2", "b"}, [2]string{"10", "x"}, [2]string{"A1", "a"})

		p, err := NormalizeZones(layer, "ZONE_ID", "LIBELLE")

		require.NoError(t, err)
		assert.Equal(t, []string{"10", "A1", "B2"}, ids(p.Clean))
	})

	t.Run("Should keep leading zeros apart from shorter codes", func(t *testing.T) {
		layer := zoneLayer(t, [2]string{"01001", "L'Abergement"}, [2]string{"1001", "Autre"})

		p, err := NormalizeZones(layer, "ZONE_ID", "LIBELLE")

		require.NoError(t, err)
		assert.Empty(t, p.Unclean)
		assert.ElementsMatch(t, []string{"01001", "1001"}, ids(p.Clean))
	})

	t.Run("Should flag every holder of a duplicated id", func(t *testing.T) {
		layer := zoneLayer(t, [2]string{"1", "a"}, [2]string{"1.0", "b"}, [2]string{"2", "c"})

		p, err := NormalizeZones(layer, "ZONE_ID", "LIBELLE")

		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, ids(p.Clean))
		require.Len(t, p.Unclean, 2)
		for _, z := range p.Unclean {
			assert.Equal(t, ReasonDuplicateID, z.Reason)
		}
	})

	t.Run("Should flag missing values and geometries", func(t *testing.T) {
		layer := zoneLayer(t, [2]string{"", "no id"}, [2]string{"5", "  "}, [2]string{"6", "ok"}, [2]string{"7", "empty"})
		layer.Features[3].Geometry = geom.NewPolygon(geom.XY)

		p, err := NormalizeZones(layer, "ZONE_ID", "LIBELLE")

		require.NoError(t, err)
		assert.Equal(t, []string{"6"}, ids(p.Clean))
		reasons := make([]string, 0, len(p.Unclean))
		for _, z := range p.Unclean {
			reasons = append(reasons, z.Reason)
		}
		assert.Equal(t, []string{ReasonMissingID, ReasonMissingName, ReasonEmptyGeometry}, reasons)
	})

	t.Run("Should list available fields when one is missing", func(t *testing.T) {
		_, err := NormalizeZones(zoneLayer(t), "ID", "LIBELLE")

		assert.ErrorIs(t, err, ErrFieldNotFound)
		assert.Contains(t, err.Error(), "ZONE_ID, LIBELLE")
	})
}

func TestNormalizeID(t *testing.T) {
	t.Run("Should write integral numbers without decimals", func(t *testing.T) {
		assert.Equal(t, "12", NormalizeID("12.000"))
		assert.Equal(t, "-3", NormalizeID(" -3 "))
		assert.Equal(t, "12.5", NormalizeID("12.5"))
		assert.Equal(t, "A-12", NormalizeID("A-12"))
		assert.Equal(t, "", NormalizeID("   "))
	})

	t.Run("Should keep integer codes as written", func(t *testing.T) {
		assert.Equal(t, "01001", NormalizeID("01001"))
		assert.Equal(t, "007", NormalizeID(" 007 "))
		assert.Equal(t, "1e3", NormalizeID("1e3"))
		assert.Equal(t, "0012", NormalizeID("0012.00"))
	})
}
