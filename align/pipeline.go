package align

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/barkalign/audio"
	"github.com/cwbudde/barkalign/dsp/normalize"
	"github.com/cwbudde/barkalign/dsp/pitch"
	"github.com/cwbudde/barkalign/internal/config"
)

// Pipeline aligns every clip of an input directory to one reference clip.
type Pipeline struct {
	cfg     config.Config
	loader  *Loader
	aligner *Aligner
	log     logrus.FieldLogger

	estimatorOpts []pitch.EstimatorOption
}

// NewPipeline validates cfg and wires the stages. binding is the shifter
// selection probed at startup.
func NewPipeline(cfg config.Config, binding *pitch.Binding, log logrus.FieldLogger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if binding == nil {
		return nil, errors.New("align: nil shifter binding")
	}

	loader, err := NewLoader(audio.DefaultRegistry(), cfg.Extensions, cfg.SampleRate, cfg.TrimThresholdDB)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     cfg,
		loader:  loader,
		aligner: NewAligner(binding, log),
		log:     log,
		estimatorOpts: []pitch.EstimatorOption{
			pitch.WithBand(cfg.PitchMinHz(), cfg.PitchMaxHz()),
			pitch.WithFrame(cfg.FrameLength, cfg.HopLength),
			pitch.WithVoicingThreshold(cfg.VoicingThreshold),
		},
	}

	// Surface estimator parameter errors before any file is touched.
	if _, err := p.newEstimator(); err != nil {
		return nil, fmt.Errorf("align: %w", err)
	}

	return p, nil
}

func (p *Pipeline) newEstimator() (*pitch.Estimator, error) {
	return pitch.NewEstimator(float64(p.cfg.SampleRate), p.estimatorOpts...)
}

// Run executes the batch. Results follow directory-listing order.
func (p *Pipeline) Run(ctx context.Context) ([]Result, error) {
	log := p.log.WithField("run", uuid.NewString())

	batch, err := p.load(ctx, log)
	if err != nil {
		return nil, err
	}

	ref, err := SelectReference(batch, p.cfg.ReferenceFile)
	if err != nil {
		return nil, err
	}
	batch.Reference = ref

	log.WithFields(logrus.Fields{
		"reference": ref.Name,
		"f0":        fmt.Sprintf("%.1f", ref.F0),
	}).Info("reference selected")

	results, err := p.align(ctx, log, batch)
	if err != nil {
		return nil, err
	}

	log.WithField("files", len(results)).Info("alignment finished")

	return results, nil
}

// load decodes and estimates every accepted file. Records are stored by
// index so the batch keeps listing order whatever the worker count.
func (p *Pipeline) load(ctx context.Context, log logrus.FieldLogger) (*Batch, error) {
	names, err := p.loader.List(p.cfg.InputDir)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"dir":   p.cfg.InputDir,
		"files": len(names),
	}).Info("loading clips")

	batch := &Batch{Records: make([]*Record, len(names))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, name := range names {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rec, err := p.loadRecord(name)
			if err != nil {
				return err
			}
			batch.Records[i] = rec

			log.WithFields(logrus.Fields{
				"file":    name,
				"samples": len(rec.Samples),
				"f0":      fmt.Sprintf("%.1f", rec.F0),
				"voiced":  rec.HasF0,
			}).Debug("clip loaded")

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return batch, nil
}

func (p *Pipeline) loadRecord(name string) (*Record, error) {
	samples, err := p.loader.Load(filepath.Join(p.cfg.InputDir, name))
	if err != nil {
		return nil, err
	}

	est, err := p.newEstimator()
	if err != nil {
		return nil, fmt.Errorf("align: %s: %w", name, err)
	}

	f0, ok, err := est.Estimate(samples)
	if err != nil {
		return nil, fmt.Errorf("align: %s: estimate pitch: %w", name, err)
	}

	return &Record{
		Name:       name,
		Samples:    samples,
		SampleRate: p.loader.SampleRate(),
		F0:         f0,
		HasF0:      ok,
	}, nil
}

// align shifts, normalizes and writes every record. When several inputs map
// to one output name only the last in listing order is written, which is
// what a sequential run would leave on disk.
func (p *Pipeline) align(ctx context.Context, log logrus.FieldLogger, batch *Batch) ([]Result, error) {
	w, err := NewWriter(p.cfg.OutputDir, p.cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	last := make(map[string]int, len(batch.Records))
	for i, rec := range batch.Records {
		last[OutputName(rec.Name)] = i
	}

	results := make([]Result, len(batch.Records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, rec := range batch.Records {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			out, res, err := p.aligner.Align(rec, batch.Reference)
			if err != nil {
				return err
			}

			out, res.Gain, err = normalize.Peak(out, p.cfg.TargetPeak)
			if err != nil {
				return fmt.Errorf("align: %s: %w", rec.Name, err)
			}

			fields := logrus.Fields{
				"file":      rec.Name,
				"role":      res.Role,
				"f0":        fmt.Sprintf("%.1f", rec.F0),
				"semitones": fmt.Sprintf("%+.2f", res.Semitones),
				"backend":   res.Backend,
				"gain":      fmt.Sprintf("%.3f", res.Gain),
			}

			if j := last[OutputName(rec.Name)]; j != i {
				res.Superseded = true
				res.OutputPath = w.Path(rec.Name)
				log.WithFields(fields).WithField("by", batch.Records[j].Name).Warn("output name taken by a later file, skipping")
			} else {
				if res.OutputPath, err = w.Write(rec.Name, out); err != nil {
					return err
				}
				log.WithFields(fields).Info("clip written")
			}

			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
