package deepfakeinspector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"deepfake-inspector/agents/deepfake-inspector/acquire"
	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/config"
	"deepfake-inspector/shared/scheduler"
	"deepfake-inspector/shared/storage"
)

// WatchMetrics summarizes one pass over the watch list.
type WatchMetrics struct {
	Watched   int  `json:"watched"`
	Skipped   int  `json:"skipped"`
	Analyzed  int  `json:"analyzed"`
	Failed    int  `json:"failed"`
	EmailSent bool `json:"email_sent"`
}

// GetSummary implements the scheduler.Metrics interface
func (m WatchMetrics) GetSummary() string {
	summary := fmt.Sprintf("watched %d videos, analyzed %d, skipped %d, failed %d", m.Watched, m.Analyzed, m.Skipped, m.Failed)
	if m.EmailSent {
		summary += ", email sent"
	}
	return summary
}

// ReportSender delivers finished reports.
type ReportSender interface {
	SendReports(reports []*models.Report) error
}

// WatchAgent periodically analyzes the configured URLs. It implements the
// scheduler.Agent interface.
type WatchAgent struct {
	config   *config.Config
	pipeline *Pipeline
	history  *storage.ReportStore
	sender   ReportSender
}

func NewWatchAgent(cfg *config.Config, pipeline *Pipeline, history *storage.ReportStore, sender ReportSender) *WatchAgent {
	return &WatchAgent{
		config:   cfg,
		pipeline: pipeline,
		history:  history,
		sender:   sender,
	}
}

func (w *WatchAgent) Name() string {
	return "Deepfake Watch"
}

func (w *WatchAgent) Initialize() error {
	log.Printf("Initializing %s...", w.Name())

	if len(w.config.Watch.URLs) == 0 {
		return errors.New("watch.urls must list at least one video")
	}
	for _, url := range w.config.Watch.URLs {
		if _, err := acquire.ExtractVideoID(url); err != nil {
			return err
		}
	}
	if w.pipeline == nil {
		return errors.New("analysis pipeline is not configured")
	}

	log.Printf("Watching %d videos (%d reports in history)", len(w.config.Watch.URLs), w.historyCount())
	return nil
}

func (w *WatchAgent) historyCount() int {
	if w.history == nil {
		return 0
	}
	return w.history.Count()
}

func (w *WatchAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	metrics := WatchMetrics{Watched: len(w.config.Watch.URLs)}

	var reports []*models.Report
	for i, url := range w.config.Watch.URLs {
		if err := ctx.Err(); err != nil {
			return err
		}

		key, err := acquire.ExtractVideoID(url)
		if err == nil && w.history != nil && w.history.IsAnalyzed(key) {
			metrics.Skipped++
			continue
		}

		log.Printf("Analyzing video %d/%d: %s", i+1, len(w.config.Watch.URLs), url)
		report, err := w.pipeline.Run(ctx, models.MediaSource{URL: url})
		if err != nil {
			metrics.Failed++
			if events != nil && events.OnPartialFailure != nil {
				events.OnPartialFailure(fmt.Errorf("analysis of %s failed: %w", url, err), time.Since(startTime))
			}
			log.Printf("Warning: Failed to analyze %s: %v", url, err)
		} else {
			metrics.Analyzed++
		}
		// partial reports still carry a usable half
		if report.Visual != nil || report.Audio != nil {
			reports = append(reports, report)
		}
	}

	// the scheduler records returned errors as critical failures
	var errs []error
	if len(reports) > 0 && w.sender != nil && w.config.Email.Enabled {
		log.Printf("Sending email report with %d videos", len(reports))
		if err := w.sender.SendReports(reports); err != nil {
			errs = append(errs, fmt.Errorf("failed to send email report: %w", err))
		} else {
			metrics.EmailSent = true
		}
	}
	if metrics.Analyzed == 0 && metrics.Failed > 0 {
		errs = append(errs, fmt.Errorf("all %d analyses failed", metrics.Failed))
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, time.Since(startTime))
	}
	log.Printf("Watch pass complete: %s", metrics.GetSummary())

	return nil
}
