package extractor

import "time"

// GeoMetaData is one measurement of a dataset as the MAS index stores it.
type GeoMetaData struct {
	DataSetName  string      `json:"ds_name"`
	NameSpace    string      `json:"namespace,omitempty"`
	Type         string      `json:"array_type"`
	RasterCount  int32       `json:"raster_count"`
	TimeStamps   []time.Time `json:"timestamps"`
	XSize        int32       `json:"x_size"`
	YSize        int32       `json:"y_size"`
	GeoTransform []float64   `json:"geotransform"`
	Polygon      string      `json:"polygon"`
	ProjWKT      string      `json:"proj_wkt"`
	Proj4        string      `json:"proj4"`
	Grid         string      `json:"grid,omitempty"`
	Layer        string      `json:"layer,omitempty"`
}

type GeoFile struct {
	FileName  string         `json:"filename,omitempty"`
	Driver    string         `json:"file_type"`
	DatasetID string         `json:"dataset_id"`
	Product   string         `json:"product"`
	Label     string         `json:"label,omitempty"`
	DataSets  []*GeoMetaData `json:"geo_metadata"`
	PosixInfo *PosixInfo     `json:"posix_info,omitempty"`
}

type PosixInfo struct {
	FilePath string    `json:"file_path"`
	INode    uint64    `json:"inode"`
	Size     int64     `json:"size"`
	MTime    time.Time `json:"mtime"`
	CTime    time.Time `json:"ctime"`
	ID       string    `json:"id"`
}

// MeasurementFile is a candidate measurement found on disk.
type MeasurementFile struct {
	Path string `json:"path"`
	Band string `json:"band"`
}
