package properties

import "strings"

func strict(n Normaliser) Field { return Field{Normalise: n, Policy: Strict} }
func warn(n Normaliser) Field   { return Field{Normalise: n, Policy: Warn} }

var plain = Field{}

// KnownFields returns a fresh copy of the table of recognised EO3
// properties and how each is normalised.
func KnownFields() map[string]Field {
	return map[string]Field{
		"datetime":                         strict(Datetime),
		"dtr:start_datetime":               strict(Datetime),
		"dtr:end_datetime":                 strict(Datetime),
		"odc:processing_datetime":          strict(Datetime),
		"sentinel:datatake_start_datetime": strict(Datetime),

		"dea:dataset_maturity":   strict(Enum(strings.ToLower, "final", "interim", "nrt")),
		"dea:processing_level":   plain,
		"odc:product_maturity":   strict(Enum(strings.ToLower, "stable", "provisional")),
		"odc:file_format":        warn(Enum(nil, "GeoTIFF", "NetCDF")),
		"odc:producer":           warn(Producer),
		"odc:product_family":     strict(String),
		"odc:product":            strict(String),
		"odc:region_code":        strict(String),
		"odc:dataset_version":    strict(String),
		"odc:reference_code":     plain,
		"odc:collection_number":  strict(Int),
		"odc:naming_conventions": plain,

		"constellation":    strict(String),
		"eo:platform":      strict(Platforms),
		"eo:instrument":    strict(String),
		"eo:constellation": strict(String),
		"eo:azimuth":       strict(Float),
		"eo:off_nadir":     strict(Float),
		"eo:gsd":           strict(Float),
		"eo:epsg":          strict(Int),
		"eo:cloud_cover":   strict(Percent),
		"eo:sun_azimuth":   strict(Degrees),
		"eo:sun_elevation": strict(Degrees),

		"fmask:clear":        strict(Percent),
		"fmask:cloud":        strict(Percent),
		"fmask:cloud_shadow": strict(Percent),
		"fmask:snow":         strict(Percent),
		"fmask:water":        strict(Percent),

		"s2cloudless:clear": strict(Percent),
		"s2cloudless:cloud": strict(Percent),

		"landsat:collection_category":           plain,
		"landsat:collection_number":             strict(Int),
		"landsat:landsat_product_id":            plain,
		"landsat:landsat_scene_id":              plain,
		"landsat:scene_id":                      plain,
		"landsat:wrs_path":                      strict(Int),
		"landsat:wrs_row":                       strict(Int),
		"landsat:ground_control_points_model":   strict(Int),
		"landsat:ground_control_points_version": strict(Int),
		"landsat:geometric_rmse_model":          strict(Float),
		"landsat:geometric_rmse_model_x":        strict(Float),
		"landsat:geometric_rmse_model_y":        strict(Float),

		"sentinel:sentinel_tile_id": plain,
		"sentinel:datastrip_id":     plain,
		"sentinel:grid_square":      plain,
		"sentinel:latitude_band":    plain,
		"sentinel:utm_zone":         strict(Int),
		"sentinel:product_name":     plain,
	}
}
