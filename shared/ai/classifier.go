package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/config"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Generator issues one structured-generation request against a remote asset
// and returns the raw JSON text.
type Generator interface {
	Generate(ctx context.Context, model string, asset *models.RemoteAsset, prompt string, schema *genai.Schema) (string, error)
}

// Classifier runs the visual and audio authenticity checks. The two calls
// share no state besides the rate limiter and may run concurrently.
type Classifier struct {
	gen         Generator
	visualModel string
	audioModel  string
	limiter     *rate.Limiter
}

func NewClassifier(gen Generator, cfg *config.AIConfig) *Classifier {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Classifier{
		gen:         gen,
		visualModel: cfg.VisualModel,
		audioModel:  cfg.AudioModel,
		limiter:     limiter,
	}
}

func (c *Classifier) ClassifyVisual(ctx context.Context, asset *models.RemoteAsset) (*models.VisualResult, error) {
	text, err := c.generate(ctx, c.visualModel, asset, visualPrompt, visualSchema())
	if err != nil {
		return nil, &ClassificationError{Modality: ModalityVisual, Err: err}
	}

	result, err := ParseVisual(text)
	if err != nil {
		return nil, &ClassificationError{Modality: ModalityVisual, Err: err}
	}
	log.Printf("Visual verdict for %s: %s (%d/100, %d anomalies)", asset.Name, result.Verdict, result.Score, len(result.Anomalies))
	return result, nil
}

func (c *Classifier) ClassifyAudio(ctx context.Context, asset *models.RemoteAsset) (*models.AudioResult, error) {
	text, err := c.generate(ctx, c.audioModel, asset, audioPrompt, audioSchema())
	if err != nil {
		return nil, &ClassificationError{Modality: ModalityAudio, Err: err}
	}

	result, err := ParseAudio(text)
	if err != nil {
		return nil, &ClassificationError{Modality: ModalityAudio, Err: err}
	}
	log.Printf("Audio verdict for %s: %s (%d/100, %d issues)", asset.Name, result.Verdict, result.Score, len(result.DetectedIssues))
	return result, nil
}

func (c *Classifier) generate(ctx context.Context, model string, asset *models.RemoteAsset, prompt string, schema *genai.Schema) (string, error) {
	if asset == nil || asset.URI == "" {
		return "", errors.New("remote asset URI is required")
	}
	if asset.State != models.AssetReady {
		return "", fmt.Errorf("remote asset %s is %s, not READY", asset.Name, asset.State)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return c.gen.Generate(ctx, model, asset, prompt, schema)
}

// ParseVisual decodes a visual classifier response. Every schema field is
// required; nothing is defaulted.
func ParseVisual(text string) (*models.VisualResult, error) {
	var raw struct {
		Score     *int    `json:"visual_score"`
		Verdict   *string `json:"visual_verdict"`
		Anomalies *[]struct {
			Time *string `json:"time"`
			Desc *string `json:"desc"`
		} `json:"visual_anomalies"`
	}
	if err := decodeStrict(text, &raw); err != nil {
		return nil, err
	}

	if raw.Score == nil {
		return nil, missingField("visual_score")
	}
	if err := checkScore("visual_score", *raw.Score); err != nil {
		return nil, err
	}
	if raw.Verdict == nil {
		return nil, missingField("visual_verdict")
	}
	verdict := models.VisualVerdict(*raw.Verdict)
	if !verdict.Valid() {
		return nil, fmt.Errorf("%w: visual_verdict %q not in %v", ErrSchemaViolation, *raw.Verdict, models.VisualVerdicts)
	}
	if raw.Anomalies == nil {
		return nil, missingField("visual_anomalies")
	}

	anomalies := make([]models.Anomaly, 0, len(*raw.Anomalies))
	for i, a := range *raw.Anomalies {
		if a.Time == nil || a.Desc == nil {
			return nil, fmt.Errorf("%w: visual_anomalies[%d] requires time and desc", ErrSchemaViolation, i)
		}
		anomalies = append(anomalies, models.Anomaly{Time: *a.Time, Desc: *a.Desc})
	}

	return &models.VisualResult{
		Score:     *raw.Score,
		Verdict:   verdict,
		Anomalies: anomalies,
	}, nil
}

// ParseAudio decodes an audio classifier response with the same strictness as ParseVisual.
func ParseAudio(text string) (*models.AudioResult, error) {
	var raw struct {
		Score    *int      `json:"audio_score"`
		Verdict  *string   `json:"audio_verdict"`
		Analysis *string   `json:"acoustic_analysis"`
		Issues   *[]string `json:"detected_issues"`
	}
	if err := decodeStrict(text, &raw); err != nil {
		return nil, err
	}

	if raw.Score == nil {
		return nil, missingField("audio_score")
	}
	if err := checkScore("audio_score", *raw.Score); err != nil {
		return nil, err
	}
	if raw.Verdict == nil {
		return nil, missingField("audio_verdict")
	}
	verdict := models.AudioVerdict(*raw.Verdict)
	if !verdict.Valid() {
		return nil, fmt.Errorf("%w: audio_verdict %q not in %v", ErrSchemaViolation, *raw.Verdict, models.AudioVerdicts)
	}
	if raw.Analysis == nil {
		return nil, missingField("acoustic_analysis")
	}
	if raw.Issues == nil {
		return nil, missingField("detected_issues")
	}

	issues := append([]string{}, (*raw.Issues)...)

	return &models.AudioResult{
		Score:            *raw.Score,
		Verdict:          verdict,
		AcousticAnalysis: *raw.Analysis,
		DetectedIssues:   issues,
	}, nil
}

// ErrSchemaViolation marks a response that parsed as JSON but does not match the declared schema.
var ErrSchemaViolation = errors.New("response does not match schema")

func decodeStrict(text string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON response: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid JSON response: trailing data after object")
	}
	return nil
}

func missingField(name string) error {
	return fmt.Errorf("%w: missing required field %s", ErrSchemaViolation, name)
}

func checkScore(name string, score int) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("%w: %s %d outside 0-100", ErrSchemaViolation, name, score)
	}
	return nil
}
