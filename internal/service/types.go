// Package service contains the lot data services behind the API and the
// interactive map.
package service

import (
	"github.com/joeblew999/plat-lots/internal/geometry"
	"github.com/joeblew999/plat-lots/internal/lots"
)

// SourceFile is a lot dataset found in the sources directory.
type SourceFile struct {
	Name     string `json:"name" doc:"File name" example:"lots.geojson"`
	Size     string `json:"size" doc:"Human-readable file size" example:"1.2 MB"`
	FileType string `json:"fileType" doc:"File type: GeoJSON or Shapefile" example:"GeoJSON"`
}

// LotSummary is one row of the lot listing.
type LotSummary struct {
	ID         int              `json:"id" doc:"Feature id within the dataset" example:"0"`
	LotNo      string           `json:"lotNo" doc:"Lot number, N/A when missing" example:"12"`
	Label      string           `json:"label,omitempty" doc:"Map label text" example:"22 ★"`
	Status     lots.Status      `json:"status" enum:"available,pending,sold,spec_home" doc:"Sale status" example:"sold"`
	StatusName string           `json:"statusName" doc:"Display status" example:"Sold"`
	Acreage    string           `json:"acreage" doc:"Formatted acreage" example:"0.5 acres"`
	Dimensions string           `json:"dimensions" doc:"Dimensions" example:"100' x 218'"`
	Anchor     *geometry.LatLng `json:"anchor,omitempty" doc:"Label position; absent for malformed geometry"`
}

// LotStats counts lots by status.
type LotStats struct {
	Total    int                 `json:"total" doc:"Number of lots"`
	ByStatus map[lots.Status]int `json:"byStatus" doc:"Lots per status"`
}
