package batch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"spm-spots/internal/calibration"
	"spm-spots/internal/config"
	"spm-spots/internal/contour"
	"spm-spots/internal/format"
	"spm-spots/internal/roughness"
	"spm-spots/internal/scan"
	"spm-spots/internal/spot"
)

// Sink receives the results of each successful unit, for example to write
// export files or database rows. A sink error fails the unit.
type Sink interface {
	Spots(ds *scan.Dataset, frame *scan.Frame, unit SpotUnit) error
	Roughness(ds *scan.Dataset, frame *scan.Frame, unit RoughnessUnit, res roughness.Result) error
}

// Report summarises one batch call.
type Report struct {
	Processed int
	Failures  []Failure
}

// Runner processes scan files sequentially, file by file and frame by
// frame.
type Runner struct {
	Session  *Session
	Config   *config.Config
	Detector contour.EdgeDetector
	Tracer   contour.Tracer
	// Log receives one line per l0 value; nil disables it.
	Log   *roughness.Log
	Sinks []Sink
	// Open reads a scan file. Defaults to format.Open.
	Open func(path string) (*scan.Dataset, error)
}

func (r *Runner) open(path string) (*scan.Dataset, error) {
	if r.Open != nil {
		return r.Open(path)
	}
	return format.Open(path)
}

func (r *Runner) config() *config.Config {
	if r.Config != nil {
		return r.Config
	}
	return &config.Config{}
}

func (r *Runner) fail(rep *Report, u Unit, err error) {
	log.Printf("batch: skipping %s: %v", u, err)
	f := Failure{Unit: u, Error: err.Error()}
	rep.Failures = append(rep.Failures, f)
	if r.Session != nil {
		r.Session.Failures = append(r.Session.Failures, f)
	}
}

// units returns the frames of ds with their unit identifiers.
func units(ds *scan.Dataset) []Unit {
	out := make([]Unit, len(ds.Frames))
	for i, f := range ds.Frames {
		out[i] = Unit{Source: ds.Name()}
		if ds.MultiFrame() {
			out[i].Frame = f.Label()
		}
	}
	return out
}

// Spots measures the spots of every unit in paths. Unit failures are
// logged and reported; the only error returned is the context's.
func (r *Runner) Spots(ctx context.Context, paths []string) (Report, error) {
	var rep Report
	if r.Detector == nil || r.Tracer == nil {
		return rep, fmt.Errorf("spot batch needs an edge detector and a tracer")
	}
	cfg := r.config()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		file := Unit{Source: filepath.Base(path)}
		ds, err := r.open(path)
		if err != nil {
			r.fail(&rep, file, err)
			continue
		}
		coeff, err := calibration.FromVariant(ds.Variant)
		if err != nil {
			r.fail(&rep, file, fmt.Errorf("calibration: %w", err))
			continue
		}
		params := cfg.ContourParams(coeff)

		for i, u := range units(ds) {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			frame := ds.Frames[i]
			contours, err := contour.Extract(frame, r.Detector, r.Tracer, params)
			if err != nil {
				r.fail(&rep, u, err)
				continue
			}
			records := spot.Measure(contours, coeff)
			su := SpotUnit{
				Unit:           u,
				NmPerPixelX:    coeff.NmPerPixelX,
				NmPerPixelY:    coeff.NmPerPixelY,
				AverageAreaNm2: spot.AverageArea(records),
				Records:        records,
			}
			if err := r.emitSpots(ds, frame, su); err != nil {
				r.fail(&rep, u, err)
				continue
			}
			if r.Session != nil {
				r.Session.Spots = append(r.Session.Spots, su)
			}
			rep.Processed++
		}
	}
	return rep, nil
}

// Roughness computes l0 for every unit in paths, against the configured
// ISET level when one is set. Unit failures are logged and reported; the
// only error returned is the context's.
func (r *Runner) Roughness(ctx context.Context, paths []string) (Report, error) {
	var rep Report
	iset, hasISET := r.config().GetISET()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		ds, err := r.open(path)
		if err != nil {
			r.fail(&rep, Unit{Source: filepath.Base(path)}, err)
			continue
		}

		for i, u := range units(ds) {
			if err := ctx.Err(); err != nil {
				return rep, err
			}
			frame := ds.Frames[i]
			var res roughness.Result
			if hasISET {
				res, err = roughness.MeasureAgainst(frame, iset)
			} else {
				res, err = roughness.Measure(frame)
			}
			if err != nil {
				r.fail(&rep, u, err)
				continue
			}
			ru := RoughnessUnit{Unit: u, L0: res.L0}
			if err := r.emitRoughness(ds, frame, ru, res); err != nil {
				r.fail(&rep, u, err)
				continue
			}
			if r.Session != nil {
				r.Session.Roughness = append(r.Session.Roughness, ru)
			}
			rep.Processed++
		}
	}
	return rep, nil
}

func (r *Runner) emitSpots(ds *scan.Dataset, frame *scan.Frame, su SpotUnit) error {
	for _, s := range r.Sinks {
		if err := s.Spots(ds, frame, su); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) emitRoughness(ds *scan.Dataset, frame *scan.Frame, ru RoughnessUnit, res roughness.Result) error {
	if r.Log != nil {
		if err := r.Log.Append(ru.Source, ru.Frame, ru.L0); err != nil {
			return err
		}
	}
	for _, s := range r.Sinks {
		if err := s.Roughness(ds, frame, ru, res); err != nil {
			return err
		}
	}
	return nil
}
