package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"deepfake-inspector/internal/models"
)

// ReportStore keeps the most recent report per cache key on disk so repeated
// runs can be listed and watch mode can skip videos analyzed recently.
type ReportStore struct {
	filePath string
	reports  map[string]*models.Report
	mu       sync.RWMutex
	maxAge   time.Duration
}

// NewReportStore creates a report store persisted under dataDir
func NewReportStore(dataDir string, maxAge time.Duration) (*ReportStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &ReportStore{
		filePath: filepath.Join(dataDir, "reports.json"),
		reports:  make(map[string]*models.Report),
		maxAge:   maxAge,
	}

	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load report history: %w", err)
	}

	store.cleanup()

	return store, nil
}

// IsAnalyzed checks if key has a complete report newer than maxAge
func (rs *ReportStore) IsAnalyzed(key string) bool {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	report, exists := rs.reports[key]
	if !exists || !report.Complete() {
		return false
	}
	return time.Since(report.StartedAt) < rs.maxAge
}

// Get returns the stored report for key, if any.
func (rs *ReportStore) Get(key string) (*models.Report, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	report, ok := rs.reports[key]
	return report, ok
}

// Save records report as the latest for its key
func (rs *ReportStore) Save(report *models.Report) error {
	if report == nil || report.Key == "" {
		return fmt.Errorf("report with a cache key is required")
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.reports[report.Key] = report
	return rs.save()
}

// Recent returns up to limit reports, newest first. A limit <= 0 returns all.
func (rs *ReportStore) Recent(limit int) []*models.Report {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]*models.Report, 0, len(rs.reports))
	for _, report := range rs.reports {
		out = append(out, report)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Count returns the number of stored reports
func (rs *ReportStore) Count() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.reports)
}

func (rs *ReportStore) cleanup() {
	cutoff := time.Now().Add(-rs.maxAge)

	for key, report := range rs.reports {
		if report.StartedAt.Before(cutoff) {
			delete(rs.reports, key)
		}
	}
}

func (rs *ReportStore) load() error {
	file, err := os.Open(rs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open report file: %w", err)
	}
	defer file.Close()

	var reports []*models.Report
	if err := json.NewDecoder(file).Decode(&reports); err != nil {
		return fmt.Errorf("failed to decode report data: %w", err)
	}

	for _, report := range reports {
		if report != nil && report.Key != "" {
			rs.reports[report.Key] = report
		}
	}

	return nil
}

// save writes through a temp file so a crash never truncates the history
func (rs *ReportStore) save() error {
	reports := make([]*models.Report, 0, len(rs.reports))
	for _, report := range rs.reports {
		reports = append(reports, report)
	}

	tmp, err := os.CreateTemp(filepath.Dir(rs.filePath), ".reports-*.json")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(reports); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode reports: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), rs.filePath)
}
