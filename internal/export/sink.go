package export

import (
	"spm-spots/internal/batch"
	"spm-spots/internal/roughness"
	"spm-spots/internal/scan"
)

// Artifact file suffixes.
const (
	SuffixSpots     = "_spots.csv"
	SuffixLabeled   = "_labeled.png"
	SuffixDeviation = "_iset.tif"
)

// Sink writes the artifacts of each batch unit next to its source scan.
type Sink struct {
	// LabelScale magnifies labeled overlays.
	LabelScale int
}

// Spots implements batch.Sink: the spot table and labeled overlay go to
// saved_data.
func (s Sink) Spots(ds *scan.Dataset, frame *scan.Frame, u batch.SpotUnit) error {
	l := NewLayout(ds.SourcePath)
	path, err := l.Path(DirSavedData, u.Frame, SuffixSpots)
	if err != nil {
		return err
	}
	if err := SaveSpotsCSV(path, u.Records); err != nil {
		return err
	}
	path, err = l.Path(DirSavedData, u.Frame, SuffixLabeled)
	if err != nil {
		return err
	}
	return SaveLabeled(path, frame, u.Records, s.LabelScale)
}

// Roughness implements batch.Sink: the deviation map, when one was
// computed, goes to ISETmap.
func (s Sink) Roughness(ds *scan.Dataset, frame *scan.Frame, u batch.RoughnessUnit, res roughness.Result) error {
	if res.Deviation == nil {
		return nil
	}
	path, err := NewLayout(ds.SourcePath).Path(DirISETMap, u.Frame, SuffixDeviation)
	if err != nil {
		return err
	}
	return SaveDeviationMap(path, res.Deviation)
}
