package forecast

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/smukkama/aqi-forecast/internal/artifact"
	"github.com/smukkama/aqi-forecast/internal/database"
	"github.com/smukkama/aqi-forecast/internal/dataset"
	"github.com/smukkama/aqi-forecast/internal/ensemble"
	"github.com/smukkama/aqi-forecast/internal/scaling"
	"github.com/smukkama/aqi-forecast/internal/schema"
	"github.com/smukkama/aqi-forecast/internal/severity"
	"github.com/smukkama/aqi-forecast/internal/window"
	"github.com/smukkama/aqi-forecast/pkg/config"
)

// Result is the outcome of one pipeline run
type Result struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	RawDate     string           `json:"raw_date"`
	BaseTime    time.Time        `json:"base_time"`
	Levels      []PollutantLevel `json:"levels"`
	Forecasts   []Forecast       `json:"forecasts"`
	History     []Point          `json:"history"`
}

// PollutantLevel is the latest reading of one pollutant. OK is false when
// the source value could not be read as a number.
type PollutantLevel struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	OK    bool    `json:"ok"`
}

// Forecast is the ensemble AQI for one horizon
type Forecast struct {
	HorizonHours int           `json:"horizon_hours"`
	Target       time.Time     `json:"target"`
	AQI          float64       `json:"aqi"`
	Severity     severity.Band `json:"severity"`
}

// Point is one value of the AQI series
type Point struct {
	Time time.Time `json:"time"`
	AQI  float64   `json:"aqi"`
}

// Pipeline runs the load, window, predict and classify steps. Models are
// loaded on the first run and reused afterwards; everything else is
// recomputed on each run.
type Pipeline struct {
	cfg    config.PipelineConfig
	source dataset.Source
	loader *artifact.Loader
	logger logrus.FieldLogger
	now    func() time.Time

	mu        sync.Mutex
	predictor *ensemble.Predictor
}

// New creates a pipeline reading data from source
func New(cfg config.PipelineConfig, source dataset.Source, logger logrus.FieldLogger) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:    cfg,
		source: source,
		loader: artifact.NewLoader(cfg.BasePath),
		logger: logger,
		now:    time.Now,
	}, nil
}

// NewSource builds the dataset source named by the configuration. db is
// only used for the postgres source; an empty query reads the default
// readings table.
func NewSource(cfg config.PipelineConfig, db dataset.QueryRunner) (dataset.Source, error) {
	opts := dataset.Options{MinRows: cfg.WindowSize, SortByDate: cfg.SortByDate}

	switch cfg.DataSource {
	case config.SourceCSV:
		return &dataset.CSVSource{
			Path:    artifact.NewLoader(cfg.BasePath).Path(cfg.DataFile),
			Schema:  cfg.Schema,
			Options: opts,
		}, nil
	case config.SourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres source requires a database connection")
		}
		query := cfg.DataQuery
		if query == "" {
			query = database.DefaultReadingsQuery
		}
		return &dataset.SQLSource{DB: db, Query: query, Schema: cfg.Schema, Options: opts}, nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.DataSource)
	}
}

// Run performs one forecast
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	log := p.logger.WithField("run_id", runID)
	started := p.now()

	predictor, err := p.loadPredictor()
	if err != nil {
		return nil, err
	}

	table, err := p.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	if table.Dropped > 0 {
		log.WithField("dropped", table.Dropped).Warn("Dropped rows with unparseable dates")
	}

	scaler, err := p.scaler(table, log)
	if err != nil {
		return nil, err
	}

	features := p.cfg.Schema.Features()
	vector, err := window.Extract(table, scaler, features, p.cfg.WindowSize)
	if err != nil {
		return nil, err
	}

	values, err := predictor.Predict(vector)
	if err != nil {
		return nil, err
	}

	latest := table.Latest()
	result := &Result{
		RunID:       runID,
		GeneratedAt: started,
		RawDate:     latest.RawDate,
		BaseTime:    latest.Time,
		Levels:      p.levels(table, latest),
		History:     p.history(table),
	}
	for i, d := range p.cfg.HorizonDurations() {
		result.Forecasts = append(result.Forecasts, Forecast{
			HorizonHours: p.cfg.Horizons[i],
			Target:       latest.Time.Add(d),
			AQI:          values[i],
			Severity:     severity.Classify(values[i]),
		})
	}

	log.WithFields(logrus.Fields{
		"rows":     table.Len(),
		"base":     latest.Time.Format(time.RFC3339),
		"forecast": values,
		"elapsed":  p.now().Sub(started).String(),
	}).Info("Forecast completed")

	return result, nil
}

func (p *Pipeline) loadPredictor() (*ensemble.Predictor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.predictor != nil {
		return p.predictor, nil
	}

	nFeatures := p.cfg.WindowSize * len(p.cfg.Schema.Features())
	members := make([]ensemble.Member, 0, len(p.cfg.Models))
	for _, spec := range p.cfg.Models {
		model, err := p.loader.LoadModel(spec.Name, spec.File, nFeatures)
		if err != nil {
			return nil, err
		}
		members = append(members, ensemble.Member{Model: model, Weight: spec.Weight})
		p.logger.WithFields(logrus.Fields{"model": model.Name(), "weight": spec.Weight}).Debug("Loaded model")
	}

	predictor, err := ensemble.NewPredictor(members, len(p.cfg.Horizons))
	if err != nil {
		return nil, err
	}
	p.predictor = predictor
	return predictor, nil
}

// scaler loads the persisted scaler, or fits one on the full table and tries
// to persist it. A failed write only costs a refit on the next run.
func (p *Pipeline) scaler(table *dataset.Table, log logrus.FieldLogger) (*scaling.MinMaxScaler, error) {
	s, err := p.loader.LoadScaler(p.cfg.ScalerFile)
	if err == nil {
		return s, nil
	}
	log.WithError(err).Info("No usable scaler artifact, fitting on dataset")

	features := p.cfg.Schema.Features()
	s = scaling.NewMinMaxScaler(features)
	if err := s.Fit(table.Matrix(table.Rows, features)); err != nil {
		return nil, fmt.Errorf("failed to fit scaler: %w", err)
	}

	if err := p.loader.SaveScaler(p.cfg.ScalerFile, s); err != nil {
		log.WithError(err).Warn("Could not persist fitted scaler")
	}
	return s, nil
}

func (p *Pipeline) levels(table *dataset.Table, latest dataset.Row) []PollutantLevel {
	levels := make([]PollutantLevel, 0, len(p.cfg.Schema.Pollutants))
	for _, name := range p.cfg.Schema.Pollutants {
		v, err := table.Float(latest, name)
		levels = append(levels, PollutantLevel{Name: name, Value: v, OK: err == nil})
	}
	return levels
}

// history returns the target column over the window, skipping rows whose
// value is not numeric, in time order
func (p *Pipeline) history(table *dataset.Table) []Point {
	var points []Point
	for _, r := range table.Tail(p.cfg.WindowSize) {
		v, err := table.Float(r, p.cfg.Schema.Target)
		if err != nil {
			continue
		}
		points = append(points, Point{Time: r.Time, AQI: v})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points
}

// Series joins the history with the forecast points into one time series
func (r *Result) Series() []Point {
	series := make([]Point, 0, len(r.History)+len(r.Forecasts))
	series = append(series, r.History...)
	for _, f := range r.Forecasts {
		series = append(series, Point{Time: f.Target, AQI: f.AQI})
	}
	return series
}

// Error kinds reported to operators
const (
	KindArtifactLoad     = "artifact_load"
	KindSchemaValidation = "schema_validation"
	KindInsufficientData = "insufficient_data"
	KindInference        = "inference"
	KindEnsembleShape    = "ensemble_shape"
	KindInvalidValue     = "invalid_value"
	KindInternal         = "internal"
)

// Classify maps a pipeline error to a stable kind
func Classify(err error) string {
	var (
		loadErr      *artifact.LoadError
		schemaErr    *schema.ValidationError
		insufficient *dataset.InsufficientDataError
		inference    *ensemble.InferenceError
		shape        *ensemble.ShapeError
		value        *window.ValueError
	)

	switch {
	case errors.As(err, &loadErr):
		return KindArtifactLoad
	case errors.As(err, &schemaErr):
		return KindSchemaValidation
	case errors.As(err, &insufficient):
		return KindInsufficientData
	case errors.As(err, &inference):
		return KindInference
	case errors.As(err, &shape):
		return KindEnsembleShape
	case errors.As(err, &value):
		return KindInvalidValue
	default:
		return KindInternal
	}
}
