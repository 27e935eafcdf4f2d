package monitoring

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Monitor tracks the outcome of the most recent scheduled run.
type Monitor struct {
	mu             sync.RWMutex
	lastRunSuccess bool
	lastRunTime    time.Time
	lastSummary    string
	runs           int
	failures       int
	now            func() time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{now: time.Now}
}

func (m *Monitor) RecordSuccess(summary string, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = true
	m.lastRunTime = m.now()
	m.lastSummary = summary
	m.runs++
	m.mu.Unlock()

	log.Printf("✅ Run completed successfully - %s (took %v)", summary, duration)
}

func (m *Monitor) RecordPartialFailure(err error, duration time.Duration) {
	// partial failures leave the health status alone
	log.Printf("⚠️  PARTIAL FAILURE: %s (Duration: %v)", err.Error(), duration)
}

func (m *Monitor) RecordCriticalFailure(err error, duration time.Duration) {
	m.mu.Lock()
	m.lastRunSuccess = false
	m.lastRunTime = m.now()
	m.lastSummary = err.Error()
	m.runs++
	m.failures++
	m.mu.Unlock()

	log.Printf("🚨 CRITICAL FAILURE: %s (Duration: %v)", err.Error(), duration)
}

func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return true
	}
	return m.lastRunSuccess
}

func (m *Monitor) GetStatusSummary() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.lastRunTime.IsZero() {
		return "No runs yet"
	}

	stamp := m.lastRunTime.Format("Jan 2 15:04")
	if m.lastRunSuccess {
		return fmt.Sprintf("✅ Last run: %s (%s) [%d runs, %d failed]", stamp, m.lastSummary, m.runs, m.failures)
	}
	return fmt.Sprintf("❌ Last run failed: %s (%s) [%d runs, %d failed]", stamp, m.lastSummary, m.runs, m.failures)
}
