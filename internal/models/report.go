package models

import "time"

// TrustThreshold is the score above which a result is presented as authentic.
const TrustThreshold = 80

// Trusted reports whether score clears TrustThreshold.
func Trusted(score int) bool {
	return score > TrustThreshold
}

type VisualVerdict string

const (
	VerdictReal      VisualVerdict = "Real"
	VerdictFake      VisualVerdict = "Fake"
	VerdictUncertain VisualVerdict = "Uncertain"
)

var VisualVerdicts = []VisualVerdict{VerdictReal, VerdictFake, VerdictUncertain}

func (v VisualVerdict) Valid() bool {
	for _, known := range VisualVerdicts {
		if v == known {
			return true
		}
	}
	return false
}

type AudioVerdict string

const (
	VerdictNatural   AudioVerdict = "Natural"
	VerdictSynthetic AudioVerdict = "Synthetic"
	VerdictMixed     AudioVerdict = "Mixed/Edited"
)

var AudioVerdicts = []AudioVerdict{VerdictNatural, VerdictSynthetic, VerdictMixed}

func (v AudioVerdict) Valid() bool {
	for _, known := range AudioVerdicts {
		if v == known {
			return true
		}
	}
	return false
}

// Anomaly is a timestamped visual artifact reported by the visual classifier.
type Anomaly struct {
	Time string `json:"time"`
	Desc string `json:"desc"`
}

type VisualResult struct {
	Score     int           `json:"visual_score"` // 0-100
	Verdict   VisualVerdict `json:"visual_verdict"`
	Anomalies []Anomaly     `json:"visual_anomalies"`
}

type AudioResult struct {
	Score            int          `json:"audio_score"` // 0-100
	Verdict          AudioVerdict `json:"audio_verdict"`
	AcousticAnalysis string       `json:"acoustic_analysis"`
	DetectedIssues   []string     `json:"detected_issues"`
}

// Report is the outcome of one analysis run. A failed modality leaves its
// result nil and its error message set.
type Report struct {
	RunID       string         `json:"run_id"`
	Key         string         `json:"key"`
	Source      string         `json:"source"`
	LocalPath   string         `json:"local_path"`
	CacheHit    bool           `json:"cache_hit"`
	Metadata    *VideoMetadata `json:"metadata,omitempty"`
	Visual      *VisualResult  `json:"visual,omitempty"`
	Audio       *AudioResult   `json:"audio,omitempty"`
	VisualError string         `json:"visual_error,omitempty"`
	AudioError  string         `json:"audio_error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	Duration    time.Duration  `json:"duration"`
}

// Complete reports whether both classifiers produced a result.
func (r *Report) Complete() bool {
	return r != nil && r.Visual != nil && r.Audio != nil
}
