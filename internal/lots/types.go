// Package lots holds the subdivision lot data model: sale status, the
// property bag attached to each parcel polygon, and the sources lots are
// loaded from.
package lots

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Status is the sale state of a lot.
type Status string

const (
	StatusAvailable Status = "available"
	StatusPending   Status = "pending"
	StatusSold      Status = "sold"
	StatusSpecHome  Status = "spec_home"
)

// Statuses lists every status in legend order.
var Statuses = []Status{StatusAvailable, StatusPending, StatusSold, StatusSpecHome}

// NotAvailable is shown for any missing optional attribute.
const NotAvailable = "N/A"

// SpecHomeGlyph marks spec homes in labels and tooltips.
const SpecHomeGlyph = "★"

var statusNames = map[Status]string{
	StatusAvailable: "Available",
	StatusPending:   "Pending",
	StatusSold:      "Sold",
	StatusSpecHome:  "Spec Home",
}

// ParseStatus maps a raw status value onto a known Status.
// Empty and unrecognized values fall back to StatusAvailable.
func ParseStatus(raw string) Status {
	s := Status(strings.TrimSpace(raw))
	if _, ok := statusNames[s]; ok {
		return s
	}
	return StatusAvailable
}

// Known reports whether s is one of the declared statuses.
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// DisplayName returns the human-readable status label.
func (s Status) DisplayName() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusAvailable]
}

// Properties is the decoded property bag of a lot feature.
type Properties struct {
	LotNo      string   `json:"lot_no,omitempty" doc:"Display identifier" example:"12"`
	Status     Status   `json:"status" enum:"available,pending,sold,spec_home" doc:"Sale status" example:"sold"`
	Acreage    *float64 `json:"acreage,omitempty" doc:"Lot size in acres" example:"0.5"`
	Dimensions string   `json:"dimensions,omitempty" doc:"Free-text dimensions" example:"100' x 218'"`
}

// PropertiesFrom decodes a GeoJSON property bag. Missing or mistyped
// optional values are left empty rather than rejected.
func PropertiesFrom(p geojson.Properties) Properties {
	props := Properties{
		LotNo:      stringProp(p, "lot_no"),
		Status:     ParseStatus(stringProp(p, "status")),
		Dimensions: stringProp(p, "dimensions"),
	}
	if v, ok := floatProp(p, "acreage"); ok {
		props.Acreage = &v
	}
	return props
}

// GeoJSON encodes the properties back into a GeoJSON property bag.
func (p Properties) GeoJSON() geojson.Properties {
	out := geojson.Properties{"status": string(p.Status)}
	if p.LotNo != "" {
		out["lot_no"] = p.LotNo
	}
	if p.Acreage != nil {
		out["acreage"] = *p.Acreage
	}
	if p.Dimensions != "" {
		out["dimensions"] = p.Dimensions
	}
	return out
}

// LabelText is the text of the lot's label and hover tooltip.
// Spec homes carry a trailing glyph.
func (p Properties) LabelText() string {
	if p.LotNo == "" {
		return ""
	}
	if p.Status == StatusSpecHome {
		return p.LotNo + " " + SpecHomeGlyph
	}
	return p.LotNo
}

// LotNumberText returns the lot number or N/A.
func (p Properties) LotNumberText() string {
	if p.LotNo == "" {
		return NotAvailable
	}
	return p.LotNo
}

// AcreageText formats the acreage with its unit, e.g. "0.5 acres".
// A missing or zero acreage renders as N/A.
func (p Properties) AcreageText() string {
	if p.Acreage == nil || *p.Acreage == 0 {
		return NotAvailable
	}
	return strconv.FormatFloat(*p.Acreage, 'f', -1, 64) + " acres"
}

// DimensionsText returns the dimensions or N/A.
func (p Properties) DimensionsText() string {
	if p.Dimensions == "" {
		return NotAvailable
	}
	return p.Dimensions
}

// FeatureID is the stable index of a feature within a Catalog.
type FeatureID int

// Feature is an immutable lot polygon with its properties.
type Feature struct {
	ID       FeatureID
	Geometry orb.Geometry
	Props    Properties
}

// Extent returns the feature's bounding box. ok is false for a feature
// without geometry or with empty geometry.
func (f Feature) Extent() (b orb.Bound, ok bool) {
	if f.Geometry == nil {
		return orb.Bound{}, false
	}
	b = f.Geometry.Bound()
	if b.IsEmpty() {
		return orb.Bound{}, false
	}
	return b, true
}

// GeoJSON encodes the feature with its id so the renderer can tag layers.
func (f Feature) GeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = int(f.ID)
	gf.Properties = f.Props.GeoJSON()
	return gf
}

func (f Feature) String() string {
	return fmt.Sprintf("lot %s (#%d, %s)", f.Props.LotNumberText(), f.ID, f.Props.Status)
}

func stringProp(p geojson.Properties, key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

func floatProp(p geojson.Properties, key string) (float64, bool) {
	switch v := p[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
