package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// InvokeAPI is the subset of the Bedrock runtime client used here.
type InvokeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Invoke sends a JSON request body to modelID and returns the raw response body.
func Invoke(ctx context.Context, api InvokeAPI, modelID string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", modelID, err)
	}
	out, err := api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("invoke %s: %w", modelID, err)
	}
	return out.Body, nil
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Temperature      float64         `json:"temperature"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// BedrockClaude calls an Anthropic Claude model (or inference profile) hosted on Bedrock.
type BedrockClaude struct {
	API         InvokeAPI
	ModelID     string
	MaxTokens   int
	Temperature float64
}

// NewBedrockClaude returns a Claude model with the extraction sampling defaults.
func NewBedrockClaude(api InvokeAPI, modelID string) *BedrockClaude {
	return &BedrockClaude{API: api, ModelID: modelID, MaxTokens: DefaultMaxTokens, Temperature: DefaultTemperature}
}

// Complete implements Model.
func (m *BedrockClaude) Complete(ctx context.Context, prompt string) (string, error) {
	raw, err := Invoke(ctx, m.API, m.ModelID, claudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        m.MaxTokens,
		Temperature:      m.Temperature,
		Messages:         []claudeMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	var resp claudeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode %s response: %w", m.ModelID, err)
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyCompletion
	}
	return sb.String(), nil
}

type titanRequest struct {
	InputText string `json:"inputText"`
}

type titanResponse struct {
	Results []struct {
		OutputText string `json:"outputText"`
	} `json:"results"`
}

// BedrockTitan calls an Amazon Titan text model.
type BedrockTitan struct {
	API     InvokeAPI
	ModelID string
}

// Complete implements Model. A response without results yields ErrEmptyCompletion.
func (m *BedrockTitan) Complete(ctx context.Context, prompt string) (string, error) {
	raw, err := Invoke(ctx, m.API, m.ModelID, titanRequest{InputText: prompt})
	if err != nil {
		return "", err
	}
	var resp titanResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode %s response: %w", m.ModelID, err)
	}
	if len(resp.Results) == 0 || strings.TrimSpace(resp.Results[0].OutputText) == "" {
		return "", ErrEmptyCompletion
	}
	return resp.Results[0].OutputText, nil
}
