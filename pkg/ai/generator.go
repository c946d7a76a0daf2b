package ai

import "context"

// TextGenerator generates text from a system prompt and user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ImageGenerator produces one image for a prompt and returns the backend's
// temporary download URL. Callers are expected to copy the bytes somewhere
// durable before the URL expires.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

// SpeechGenerator narrates the input text and returns the audio bytes.
type SpeechGenerator interface {
	GenerateSpeech(ctx context.Context, input, instructions string) ([]byte, error)
}
