package ai

import (
	"context"
	"fmt"

	"deepfake-inspector/internal/models"
	"deepfake-inspector/shared/config"

	"google.golang.org/genai"
)

// GeminiClient adapts the Gemini API to the FileStore and Generator interfaces.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, cfg *config.AIConfig) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

func (g *GeminiClient) Upload(ctx context.Context, path, mimeType string) (*models.RemoteAsset, error) {
	file, err := g.client.Files.UploadFromPath(ctx, path, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", path, err)
	}
	return assetFromFile(file), nil
}

func (g *GeminiClient) Status(ctx context.Context, name string) (*models.RemoteAsset, error) {
	file, err := g.client.Files.Get(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get status of %s: %w", name, err)
	}
	return assetFromFile(file), nil
}

func (g *GeminiClient) Generate(ctx context.Context, model string, asset *models.RemoteAsset, prompt string, schema *genai.Schema) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromURI(asset.URI, asset.MIMEType),
		genai.NewPartFromText(prompt),
	}

	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", model, err)
	}

	responseText := result.Text()
	if responseText == "" {
		return "", ErrEmptyResponse
	}
	return responseText, nil
}

func assetFromFile(file *genai.File) *models.RemoteAsset {
	return &models.RemoteAsset{
		Name:     file.Name,
		URI:      file.URI,
		MIMEType: file.MIMEType,
		State:    assetState(string(file.State)),
	}
}

// assetState maps the provider's file states onto ours. ACTIVE is the
// provider's name for a file that can be referenced in prompts.
func assetState(state string) models.AssetState {
	switch state {
	case "ACTIVE":
		return models.AssetReady
	case "FAILED":
		return models.AssetFailed
	case "PROCESSING", "", "STATE_UNSPECIFIED":
		return models.AssetProcessing
	default:
		return models.AssetState(state)
	}
}
