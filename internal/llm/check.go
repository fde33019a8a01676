package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
)

// ControlAPI is the subset of the Bedrock control-plane client used to verify
// that a configured model is reachable.
type ControlAPI interface {
	GetFoundationModel(ctx context.Context, params *bedrock.GetFoundationModelInput, optFns ...func(*bedrock.Options)) (*bedrock.GetFoundationModelOutput, error)
	GetInferenceProfile(ctx context.Context, params *bedrock.GetInferenceProfileInput, optFns ...func(*bedrock.Options)) (*bedrock.GetInferenceProfileOutput, error)
}

// IsInferenceProfile reports whether modelID names a cross-region inference
// profile (ARN or geo-prefixed id) rather than a foundation model.
func IsInferenceProfile(modelID string) bool {
	if strings.Contains(modelID, ":inference-profile/") || strings.Contains(modelID, ":application-inference-profile/") {
		return true
	}
	for _, geo := range []string{"us.", "eu.", "apac.", "us-gov."} {
		if strings.HasPrefix(modelID, geo) {
			return true
		}
	}
	return false
}

// CheckModel confirms modelID resolves in the account's Bedrock control plane.
func CheckModel(ctx context.Context, api ControlAPI, modelID string) error {
	if IsInferenceProfile(modelID) {
		if _, err := api.GetInferenceProfile(ctx, &bedrock.GetInferenceProfileInput{
			InferenceProfileIdentifier: aws.String(modelID),
		}); err != nil {
			return fmt.Errorf("inference profile %s: %w", modelID, err)
		}
		return nil
	}
	if _, err := api.GetFoundationModel(ctx, &bedrock.GetFoundationModelInput{
		ModelIdentifier: aws.String(modelID),
	}); err != nil {
		return fmt.Errorf("foundation model %s: %w", modelID, err)
	}
	return nil
}
