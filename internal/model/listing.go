package model

// Listing is one catalog record. Optional columns are pointers so the
// display-completeness gate (photo and title present) is a nil check rather
// than a sentinel-value convention.
type Listing struct {
	Code         string
	Bedrooms     *int
	PrivateArea  *float64
	SalePrice    *float64
	Photo        *string
	Title        *string
	Address      *string
	Neighborhood *string
}

// Displayable reports whether the listing has the photo and title required
// to appear in an email.
func (l Listing) Displayable() bool {
	return l.Photo != nil && l.Title != nil
}

// Coordinate is a known geolocation for a listing. Partial pairs are never
// stored; a listing either has a full coordinate or none.
type Coordinate struct {
	Lat float64
	Lon float64
}

// CoordinateRow is one row from the coordinate source. Lat and Lon are
// pointers because the upstream table records partial geocodes; rows missing
// either value are dropped at load time and never cached.
type CoordinateRow struct {
	Code string
	Lat  *float64
	Lon  *float64
}

// SimilarListing is a copy of a catalog Listing selected as similar to a
// target. DistanceKm is set on the geo path and zero on the neighborhood
// path. It embeds a copy, not a reference, so annotating the distance never
// mutates the shared catalog snapshot.
type SimilarListing struct {
	Listing
	DistanceKm float64
}
