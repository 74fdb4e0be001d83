package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/yashdarak08/Graph-Machine-Learning/pkg/graph/metrics"
)

var (
	pipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "fingraph_pipeline_stage_duration_seconds",
			Help: "Time spent in each pipeline stage",
		},
		[]string{"stage"},
	)

	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingraph_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(pipelineStageDuration)
	prometheus.MustRegister(pipelineRunsTotal)
}

// RecordSource yields the ordered, already validated records of one run
type RecordSource interface {
	Records(ctx context.Context) ([]Record, error)
}

// RecordSlice is a RecordSource over an in-memory slice
type RecordSlice []Record

// Records returns the slice as is
func (s RecordSlice) Records(ctx context.Context) ([]Record, error) {
	return s, nil
}

// SinkSession scopes a sink to one unit of work. Implementations acquire their
// connection when Write starts and release it on every exit path.
type SinkSession interface {
	Write(ctx context.Context, fn func(Sink) error) error
}

type directSession struct {
	sink Sink
}

func (d directSession) Write(ctx context.Context, fn func(Sink) error) error {
	return fn(d.sink)
}

// Direct wraps a sink that needs no session management (e.g. MemoryGraph)
func Direct(sink Sink) SinkSession {
	return directSession{sink: sink}
}

// PipelineDeps wires the collaborators of a pipeline; Store and Learner are optional
type PipelineDeps struct {
	Builder   *Builder
	Store     SinkSession
	Learner   Learner
	BatchSize int
	Logger    *logrus.Logger
}

// Pipeline runs build -> publish -> assemble -> learn over one record set
type Pipeline struct {
	builder   *Builder
	store     SinkSession
	learner   Learner
	batchSize int
	logger    *logrus.Logger
}

// PipelineResult is everything one run produced
type PipelineResult struct {
	RunID    string
	Graph    *CompanyGraph
	Learning *LearningData
	Duration time.Duration
}

// NewPipeline creates a pipeline; a nil builder uses DefaultBuilderConfig
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	builder := deps.Builder
	if builder == nil {
		builder = NewBuilder(DefaultBuilderConfig(), logger)
	}
	return &Pipeline{
		builder:   builder,
		store:     deps.Store,
		learner:   deps.Learner,
		batchSize: deps.BatchSize,
		logger:    logger,
	}
}

// Run pulls records from source and processes them
func (p *Pipeline) Run(ctx context.Context, source RecordSource) (*PipelineResult, error) {
	if source == nil {
		return nil, errors.New("cannot run pipeline without a record source")
	}

	timer := prometheus.NewTimer(pipelineStageDuration.WithLabelValues("load"))
	records, err := source.Records(ctx)
	timer.ObserveDuration()
	if err != nil {
		pipelineRunsTotal.WithLabelValues("error").Inc()
		return nil, errors.Wrap(err, "load records")
	}

	return p.Process(ctx, records)
}

// Process runs every stage over records, which must already be valid and ordered
func (p *Pipeline) Process(ctx context.Context, records []Record) (*PipelineResult, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := p.logger.WithField("run_id", runID)

	log.WithField("records", len(records)).Info("Starting company graph pipeline")

	result, err := p.process(ctx, log, records)
	if err != nil {
		pipelineRunsTotal.WithLabelValues("error").Inc()
		log.WithError(err).Error("Company graph pipeline failed")
		return nil, err
	}

	result.RunID = runID
	result.Duration = time.Since(start)
	pipelineRunsTotal.WithLabelValues("success").Inc()
	log.WithFields(logrus.Fields{
		"nodes":    len(result.Graph.Nodes),
		"edges":    result.Graph.Edges.Len(),
		"duration": result.Duration.String(),
	}).Info("Company graph pipeline completed")
	return result, nil
}

func (p *Pipeline) process(ctx context.Context, log *logrus.Entry, records []Record) (*PipelineResult, error) {
	timer := prometheus.NewTimer(pipelineStageDuration.WithLabelValues("build"))
	g, err := p.builder.Build(ctx, records)
	timer.ObserveDuration()
	if err != nil {
		return nil, errors.Wrap(err, "build graph")
	}

	metrics.GraphNodeCount.Set(float64(len(g.Nodes)))
	metrics.GraphEdgeCount.Set(float64(g.Edges.Len()))
	for range g.Edges.Limited {
		metrics.DateGroupsLimited.WithLabelValues(p.builder.cfg.Oversize.String()).Inc()
	}

	if p.store != nil {
		timer = prometheus.NewTimer(pipelineStageDuration.WithLabelValues("publish"))
		err = p.store.Write(ctx, func(sink Sink) error {
			return Publish(ctx, sink, g, p.batchSize)
		})
		timer.ObserveDuration()
		if err != nil {
			return nil, errors.Wrap(err, "publish graph")
		}
		log.Debug("Graph published to sink")
	}

	timer = prometheus.NewTimer(pipelineStageDuration.WithLabelValues("assemble"))
	data, err := p.builder.Assemble(g)
	timer.ObserveDuration()
	if err != nil {
		return nil, errors.Wrap(err, "assemble features")
	}

	if p.learner != nil {
		timer = prometheus.NewTimer(pipelineStageDuration.WithLabelValues("learn"))
		err = p.learner.Fit(ctx, data)
		timer.ObserveDuration()
		if err != nil {
			return nil, errors.Wrap(err, "fit learner")
		}
	}

	return &PipelineResult{Graph: g, Learning: data}, nil
}
