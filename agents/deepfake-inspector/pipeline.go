package deepfakeinspector

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/storage"

	"github.com/google/uuid"
)

type Acquirer interface {
	Acquire(ctx context.Context, src models.MediaSource) (*models.CachedFile, error)
}

type Ingestor interface {
	Ingest(ctx context.Context, path string) (*models.RemoteAsset, error)
}

type Classifier interface {
	ClassifyVisual(ctx context.Context, asset *models.RemoteAsset) (*models.VisualResult, error)
	ClassifyAudio(ctx context.Context, asset *models.RemoteAsset) (*models.AudioResult, error)
}

// MetadataLookup resolves platform metadata for a video ID.
type MetadataLookup interface {
	Lookup(ctx context.Context, videoID string) (*models.VideoMetadata, error)
}

// Pipeline runs one analysis: acquire, ingest, then both classifiers
// against the same remote asset.
type Pipeline struct {
	acquirer   Acquirer
	ingestor   Ingestor
	classifier Classifier
	metadata   MetadataLookup
	history    *storage.ReportStore
	parallel   bool
	now        func() time.Time
}

type Option func(*Pipeline)

// WithMetadata enables title and channel lookups for URL sources.
func WithMetadata(m MetadataLookup) Option {
	return func(p *Pipeline) { p.metadata = m }
}

// WithHistory records every classified report.
func WithHistory(rs *storage.ReportStore) Option {
	return func(p *Pipeline) { p.history = rs }
}

// WithParallel runs the visual and audio classifiers concurrently.
func WithParallel(parallel bool) Option {
	return func(p *Pipeline) { p.parallel = parallel }
}

func NewPipeline(acquirer Acquirer, ingestor Ingestor, classifier Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		acquirer:   acquirer,
		ingestor:   ingestor,
		classifier: classifier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run analyzes src. The returned report is never nil: on failure it carries
// whatever was established before the failing stage, and when only one
// classifier fails the other's result is kept alongside the error.
func (p *Pipeline) Run(ctx context.Context, src models.MediaSource) (*models.Report, error) {
	start := p.now()
	report := &models.Report{
		RunID:     uuid.NewString(),
		Source:    src.String(),
		StartedAt: start,
	}

	log.Printf("[%s] Analyzing %s", report.RunID[:8], report.Source)

	cached, err := p.acquirer.Acquire(ctx, src)
	if err != nil {
		report.Duration = p.now().Sub(start)
		return report, err
	}
	report.Key = cached.Key
	report.LocalPath = cached.Path
	report.CacheHit = cached.Hit

	if p.metadata != nil && !src.IsUpload() {
		meta, err := p.metadata.Lookup(ctx, cached.Key)
		if err != nil {
			log.Printf("Warning: metadata lookup for %s failed: %v", cached.Key, err)
		} else {
			report.Metadata = meta
		}
	}

	asset, err := p.ingestor.Ingest(ctx, cached.Path)
	if err != nil {
		report.Duration = p.now().Sub(start)
		return report, err
	}

	var visualErr, audioErr error
	if p.parallel {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			report.Visual, visualErr = p.classifier.ClassifyVisual(ctx, asset)
		}()
		go func() {
			defer wg.Done()
			report.Audio, audioErr = p.classifier.ClassifyAudio(ctx, asset)
		}()
		wg.Wait()
	} else {
		report.Visual, visualErr = p.classifier.ClassifyVisual(ctx, asset)
		report.Audio, audioErr = p.classifier.ClassifyAudio(ctx, asset)
	}

	if visualErr != nil {
		report.Visual = nil
		report.VisualError = visualErr.Error()
		log.Printf("[%s] Visual analysis failed: %v", report.RunID[:8], visualErr)
	}
	if audioErr != nil {
		report.Audio = nil
		report.AudioError = audioErr.Error()
		log.Printf("[%s] Audio analysis failed: %v", report.RunID[:8], audioErr)
	}

	report.Duration = p.now().Sub(start)
	if p.history != nil {
		if err := p.history.Save(report); err != nil {
			log.Printf("Warning: failed to record report for %s: %v", report.Key, err)
		}
	}

	return report, errors.Join(visualErr, audioErr)
}
