package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"spm-spots/internal/scan"
	"spm-spots/internal/spot"
)

// Column headers of the spot table.
var spotColumns = []string{"name", "area_nm2", "distance_to_nearest_neighbour_nm", "nearest_neighbour"}

// AverageRowLabel names the trailing summary row.
const AverageRowLabel = "average area"

// WriteSpotsCSV writes one row per record followed by the average area row.
func WriteSpotsCSV(w io.Writer, records []spot.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(spotColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Name,
			scan.FormatFloat(r.AreaNm2),
			scan.FormatFloat(r.NearestDistanceNm),
			r.NearestName,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", r.Name, err)
		}
	}
	if err := cw.Write([]string{AverageRowLabel, scan.FormatFloat(spot.AverageArea(records)), "", ""}); err != nil {
		return fmt.Errorf("failed to write csv summary: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// SaveSpotsCSV writes the spot table to path.
func SaveSpotsCSV(path string, records []spot.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteSpotsCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
