package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kylejryan/healthcopilot/internal/fields"
	"github.com/kylejryan/healthcopilot/internal/llm"
	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	comprehendtypes "github.com/aws/aws-sdk-go-v2/service/comprehend/types"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	"go.uber.org/zap"
)

// NoSuggestion is shown when the suggestion model has nothing to say.
const NoSuggestion = "No suggestions available."

// Service input limits.
const (
	maxSentimentBytes = 5000
	maxTranslateBytes = 10000
	maxSpeechChars    = 3000
)

type SentimentAPI interface {
	DetectSentiment(ctx context.Context, params *comprehend.DetectSentimentInput, optFns ...func(*comprehend.Options)) (*comprehend.DetectSentimentOutput, error)
}

type TranslateAPI interface {
	TranslateText(ctx context.Context, params *translate.TranslateTextInput, optFns ...func(*translate.Options)) (*translate.TranslateTextOutput, error)
}

type SpeechAPI interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// SuggestionPrompt asks for what else would help complete a form.
func SuggestionPrompt(missing []string, background string) string {
	return fmt.Sprintf(`The following prior authorization request is missing these fields: %s.
Based on your knowledge of healthcare prior auth processes, suggest what other information might be useful to complete it.
Context:
%s`, strings.Join(missing, ", "), background)
}

// Suggest asks the suggestion model how to complete the record's missing fields.
func (s *Service) Suggest(ctx context.Context, formID string) (string, error) {
	if s.Suggester == nil {
		return "", fmt.Errorf("suggestions are not configured")
	}
	rec, err := s.Store.Get(ctx, formID)
	if err != nil {
		return "", err
	}
	out, err := s.Suggester.Complete(ctx, SuggestionPrompt(rec.MissingFields, rec.SuggestedAction))
	if errors.Is(err, llm.ErrEmptyCompletion) {
		return NoSuggestion, nil
	}
	if err != nil {
		return "", fmt.Errorf("suggest %s: %w", formID, err)
	}
	return strings.TrimSpace(out), nil
}

// Necessity is a model's estimate of how medically justified a request is.
type Necessity struct {
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
}

const necessityPrompt = `You are reviewing a prior authorization request for medical necessity.
Request details:
Provider: %s
NPI: %s
Urgency: %s
Missing fields: %s
Suggested action: %s

Return only JSON: {"score": <integer 0-100, how strongly the request appears medically necessary>, "rationale": "<one or two sentences>"}`

// NecessityScore asks the scoring model to rate a record's medical necessity.
func (s *Service) NecessityScore(ctx context.Context, formID string) (Necessity, error) {
	var n Necessity
	if s.Scorer == nil {
		return n, fmt.Errorf("necessity scoring is not configured")
	}
	rec, err := s.Store.Get(ctx, formID)
	if err != nil {
		return n, err
	}
	prompt := fmt.Sprintf(necessityPrompt,
		models.Deref(rec.Provider, "unknown"),
		models.Deref(rec.NPI, "unknown"),
		models.Deref(rec.Urgency, "unknown"),
		joinOrNone(rec.MissingFields),
		rec.SuggestedAction)
	out, err := s.Scorer.Complete(ctx, prompt)
	if err != nil {
		return n, fmt.Errorf("score %s: %w", formID, err)
	}
	obj, err := fields.ExtractObject(out)
	if err != nil {
		return n, fmt.Errorf("score %s: %w", formID, err)
	}
	if err := json.Unmarshal([]byte(obj), &n); err != nil {
		return n, fmt.Errorf("score %s: decode: %w", formID, err)
	}
	n.Score = max(0, min(100, n.Score))
	return n, nil
}

// Sentiment is the detected tone of a reviewer comment.
type Sentiment struct {
	Sentiment string             `json:"sentiment"`
	Scores    map[string]float32 `json:"scores"`
}

// AnalyzeComment detects the sentiment of a reviewer comment.
func (s *Service) AnalyzeComment(ctx context.Context, text string) (Sentiment, error) {
	var out Sentiment
	if s.Comprehend == nil {
		return out, fmt.Errorf("comment analysis is not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return out, fmt.Errorf("%w: empty comment", ErrInvalidInput)
	}
	resp, err := s.Comprehend.DetectSentiment(ctx, &comprehend.DetectSentimentInput{
		Text:         aws.String(truncateBytes(text, maxSentimentBytes)),
		LanguageCode: comprehendtypes.LanguageCodeEn,
	})
	if err != nil {
		return out, fmt.Errorf("detect sentiment: %w", err)
	}
	out.Sentiment = string(resp.Sentiment)
	out.Scores = map[string]float32{}
	if sc := resp.SentimentScore; sc != nil {
		out.Scores["positive"] = aws.ToFloat32(sc.Positive)
		out.Scores["negative"] = aws.ToFloat32(sc.Negative)
		out.Scores["neutral"] = aws.ToFloat32(sc.Neutral)
		out.Scores["mixed"] = aws.ToFloat32(sc.Mixed)
	}
	return out, nil
}

// Translation is translated text and the detected source language.
type Translation struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// Translate translates text into target, detecting the source language.
func (s *Service) Translate(ctx context.Context, text, target string) (Translation, error) {
	var out Translation
	if s.Translator == nil {
		return out, fmt.Errorf("translation is not configured")
	}
	text, target = strings.TrimSpace(text), strings.TrimSpace(target)
	if text == "" || target == "" {
		return out, fmt.Errorf("%w: text and target_language are required", ErrInvalidInput)
	}
	if len(text) > maxTranslateBytes {
		return out, fmt.Errorf("%w: text exceeds %d bytes", ErrInvalidInput, maxTranslateBytes)
	}
	resp, err := s.Translator.TranslateText(ctx, &translate.TranslateTextInput{
		Text:               aws.String(text),
		SourceLanguageCode: aws.String("auto"),
		TargetLanguageCode: aws.String(target),
	})
	if err != nil {
		return out, fmt.Errorf("translate to %s: %w", target, err)
	}
	out.Text = aws.ToString(resp.TranslatedText)
	out.SourceLanguage = aws.ToString(resp.SourceLanguageCode)
	out.TargetLanguage = aws.ToString(resp.TargetLanguageCode)
	return out, nil
}

// Speak synthesizes text to MP3 audio with voice (or the service default).
func (s *Service) Speak(ctx context.Context, text, voice string) ([]byte, error) {
	if s.Polly == nil {
		return nil, fmt.Errorf("speech is not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > maxSpeechChars {
		return nil, fmt.Errorf("%w: text exceeds %d characters", ErrInvalidInput, maxSpeechChars)
	}
	if voice == "" {
		voice = s.Voice
	}
	if voice == "" {
		voice = string(pollytypes.VoiceIdJoanna)
	}
	resp, err := s.Polly.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: pollytypes.OutputFormatMp3,
		VoiceId:      pollytypes.VoiceId(voice),
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.AudioStream.Close()
	audio, err := io.ReadAll(resp.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("read audio stream: %w", err)
	}
	s.log().Debug("synthesized speech", zap.String("voice", voice), zap.Int("bytes", len(audio)))
	return audio, nil
}

func joinOrNone(xs []string) string {
	if len(xs) == 0 {
		return "None"
	}
	return strings.Join(xs, ", ")
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
