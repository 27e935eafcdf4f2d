package ai

import (
	"deepfake-inspector/internal/models"

	"google.golang.org/genai"
)

const visualPrompt = `You are a forensic video analyst looking for signs of synthetic or manipulated footage.

Analyze the video frame-by-frame for deepfake artifacts, including:
- Unnatural or missing blinking, frozen micro-expressions
- Shadow and lighting errors that do not match the scene
- Warping or blending seams around the face, hairline, teeth and ears
- Lip movement that drifts out of sync with speech
- Temporal flicker or texture that changes between adjacent frames

Score authenticity from 0 to 100, where 100 means the footage is almost certainly genuine.
Give a verdict of Real, Fake or Uncertain. List every anomaly you observe with the timestamp
(mm:ss) where it occurs and a short description. Return an empty list if you find none.`

const audioPrompt = `You are an audio forensics expert who detects AI-generated or cloned speech.

Listen for AI voice artifacts, including:
- Metallic or robotic endings of words
- Flat, monotone pitch and unnatural prosody
- Missing breaths, mouth sounds and room reverberation
- Abrupt splices, background noise that cuts in and out

Score authenticity from 0 to 100, where 100 means the speech is almost certainly natural.
Give a verdict of Natural, Synthetic or Mixed/Edited, a short acoustic analysis, and the list
of specific issues you detected (an empty list if none).`

func scoreSchema() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeInteger,
		Description: "0-100 authenticity score.",
		Minimum:     genai.Ptr(0.0),
		Maximum:     genai.Ptr(100.0),
	}
}

func visualSchema() *genai.Schema {
	verdicts := make([]string, 0, len(models.VisualVerdicts))
	for _, v := range models.VisualVerdicts {
		verdicts = append(verdicts, string(v))
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"visual_score":   scoreSchema(),
			"visual_verdict": {Type: genai.TypeString, Enum: verdicts},
			"visual_anomalies": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"time": {Type: genai.TypeString},
						"desc": {Type: genai.TypeString},
					},
					Required: []string{"time", "desc"},
				},
			},
		},
		Required:         []string{"visual_score", "visual_verdict", "visual_anomalies"},
		PropertyOrdering: []string{"visual_score", "visual_verdict", "visual_anomalies"},
	}
}

func audioSchema() *genai.Schema {
	verdicts := make([]string, 0, len(models.AudioVerdicts))
	for _, v := range models.AudioVerdicts {
		verdicts = append(verdicts, string(v))
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"audio_score":       scoreSchema(),
			"audio_verdict":     {Type: genai.TypeString, Enum: verdicts},
			"acoustic_analysis": {Type: genai.TypeString},
			"detected_issues": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required:         []string{"audio_score", "audio_verdict", "acoustic_analysis", "detected_issues"},
		PropertyOrdering: []string{"audio_score", "audio_verdict", "acoustic_analysis", "detected_issues"},
	}
}
