package lots

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrUnknownFeature is returned for ids outside the catalog.
var ErrUnknownFeature = errors.New("unknown feature")

// Catalog is the arena of loaded lots, indexed by FeatureID.
// It is built once and never mutated.
type Catalog struct {
	features []Feature
	byLotNo  map[string]FeatureID
}

// NewCatalog assigns stable ids, in collection order, to every feature of fc.
// Features without geometry are kept so ids stay aligned with the source.
func NewCatalog(fc *geojson.FeatureCollection) *Catalog {
	c := &Catalog{byLotNo: make(map[string]FeatureID)}
	if fc == nil {
		return c
	}
	c.features = make([]Feature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		f := Feature{ID: FeatureID(i)}
		if gf != nil {
			f.Geometry = gf.Geometry
			f.Props = PropertiesFrom(gf.Properties)
		} else {
			f.Props = Properties{Status: StatusAvailable}
		}
		if f.Props.LotNo != "" {
			if _, dup := c.byLotNo[f.Props.LotNo]; !dup {
				c.byLotNo[f.Props.LotNo] = f.ID
			}
		}
		c.features = append(c.features, f)
	}
	return c
}

// Len returns the number of features.
func (c *Catalog) Len() int { return len(c.features) }

// All returns the features in id order. The slice must not be modified.
func (c *Catalog) All() []Feature { return c.features }

// Get returns the feature with the given id.
func (c *Catalog) Get(id FeatureID) (Feature, error) {
	if id < 0 || int(id) >= len(c.features) {
		return Feature{}, fmt.Errorf("%w: %d", ErrUnknownFeature, id)
	}
	return c.features[id], nil
}

// FindByLotNo returns the first feature carrying lotNo.
func (c *Catalog) FindByLotNo(lotNo string) (Feature, bool) {
	id, ok := c.byLotNo[lotNo]
	if !ok {
		return Feature{}, false
	}
	return c.features[id], true
}

// Bound is the union of every feature's extent. ok is false when no
// feature has usable geometry.
func (c *Catalog) Bound() (b orb.Bound, ok bool) {
	for _, f := range c.features {
		fb, has := f.Extent()
		if !has {
			continue
		}
		if !ok {
			b, ok = fb, true
			continue
		}
		b = b.Union(fb)
	}
	return b, ok
}

// FeatureCollection re-encodes the catalog as GeoJSON with numeric ids.
func (c *Catalog) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range c.features {
		if f.Geometry == nil {
			continue
		}
		fc.Append(f.GeoJSON())
	}
	return fc
}
