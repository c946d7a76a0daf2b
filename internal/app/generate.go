package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"talespin/internal/util"
	"talespin/pkg/domain"
)

const audioInstructions = "Narrate in a cheerful, warm storytelling voice for young children. " +
	"Keep a gentle pace and bring the characters to life."

// GenerateStory asks the text backend for an age-appropriate story, parses
// the titled response, and persists it under the caller.
func (a *App) GenerateStory(ctx context.Context, ownerID string, prompt domain.StoryPrompt) (domain.Story, error) {
	if strings.TrimSpace(prompt.AgeRange) == "" {
		return domain.Story{}, ErrMissingFields
	}
	raw, err := a.text.GenerateText(ctx, storySystemPrompt(prompt.AgeRange), storyUserPrompt(prompt))
	if err != nil {
		return domain.Story{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	title, content := parseGeneratedStory(raw)
	if title == "" || content == "" {
		return domain.Story{}, fmt.Errorf("%w: backend returned an empty story", ErrGeneration)
	}
	now := time.Now().UTC()
	story := domain.Story{
		ID:         util.NewID(),
		Title:      title,
		Content:    content,
		AgeRange:   prompt.AgeRange,
		Author:     "AI",
		Characters: prompt.Characters,
		Setting:    prompt.Setting,
		UserID:     ownerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.store.CreateStory(story); err != nil {
		return domain.Story{}, fmt.Errorf("save story: %w", err)
	}
	a.attachUser(&story)
	return story, nil
}

// GenerateIllustration renders one scene image for the excerpt, copies the
// bytes from the backend's temporary URL into durable storage, and persists
// the illustration row. The caller must own the story.
func (a *App) GenerateIllustration(ctx context.Context, callerID, storyID, excerpt string, ilType domain.IllustrationType) (domain.Illustration, error) {
	story, ok, err := a.store.GetStory(storyID)
	if err != nil {
		return domain.Illustration{}, fmt.Errorf("fetch story: %w", err)
	}
	if !ok {
		return domain.Illustration{}, ErrStoryNotFound
	}
	if story.UserID != callerID {
		return domain.Illustration{}, ErrForbidden
	}
	if ilType == "" {
		ilType = domain.IllustrationScene
	}

	var prompt string
	switch ilType {
	case domain.IllustrationCover:
		prompt = coverPrompt(story.Title)
	default:
		ilType = domain.IllustrationScene
		if strings.TrimSpace(excerpt) == "" {
			excerpt = story.Content
		}
		prompt = scenePrompt(excerpt)
	}

	tempURL, err := a.image.GenerateImage(ctx, prompt)
	if err != nil {
		return domain.Illustration{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	key := fmt.Sprintf("illustrations/%s_%s.png", ilType, util.NewID())
	if err := a.copyToObjectStore(ctx, tempURL, key, "image/png"); err != nil {
		return domain.Illustration{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	il := domain.Illustration{
		ID:        util.NewID(),
		URL:       a.objects.URL(key),
		S3Key:     key,
		Type:      ilType,
		StoryID:   storyID,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateIllustration(il); err != nil {
		return domain.Illustration{}, fmt.Errorf("save illustration: %w", err)
	}
	return il, nil
}

// GenerateCover is GenerateIllustration fixed to the cover framing.
func (a *App) GenerateCover(ctx context.Context, callerID, storyID string) (domain.Illustration, error) {
	return a.GenerateIllustration(ctx, callerID, storyID, "", domain.IllustrationCover)
}

// GenerateStoryAudio narrates the story and stores the audio durably. One
// audio per story; the caller must own the story.
func (a *App) GenerateStoryAudio(ctx context.Context, callerID, storyID string) (domain.Audio, error) {
	story, ok, err := a.store.GetStory(storyID)
	if err != nil {
		return domain.Audio{}, fmt.Errorf("fetch story: %w", err)
	}
	if !ok {
		return domain.Audio{}, ErrStoryNotFound
	}
	if story.UserID != callerID {
		return domain.Audio{}, ErrForbidden
	}

	audioBytes, err := a.speech.GenerateSpeech(ctx, story.Content, audioInstructions)
	if err != nil {
		return domain.Audio{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	key := fmt.Sprintf("stories/%s.mp3", util.NewID())
	if err := a.objects.Put(ctx, key, bytes.NewReader(audioBytes), int64(len(audioBytes)), "audio/mpeg"); err != nil {
		return domain.Audio{}, fmt.Errorf("store audio: %w", err)
	}

	audio := domain.Audio{
		ID:        util.NewID(),
		URL:       a.objects.URL(key),
		S3Key:     key,
		StoryID:   storyID,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.CreateAudio(audio); err != nil {
		return domain.Audio{}, fmt.Errorf("save audio: %w", err)
	}
	return audio, nil
}

// copyToObjectStore downloads the backend's temporary URL and re-uploads the
// bytes under key.
func (a *App) copyToObjectStore(ctx context.Context, srcURL, key, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("download image: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("download image: %w", err)
	}
	if err := a.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return fmt.Errorf("store image: %w", err)
	}
	return nil
}

func storySystemPrompt(ageRange string) string {
	return fmt.Sprintf(`You are a children's story writer creating content for children aged %s.
Write stories that are:
1. Age-appropriate and engaging
2. Educational and positive
3. Have a clear beginning, middle, and end
4. Include a subtle moral lesson
5. Use simple language for young readers

Format the response with "Title: [Story Title]" on the first line, followed by the story content.`, ageRange)
}

func storyUserPrompt(prompt domain.StoryPrompt) string {
	var b strings.Builder
	b.WriteString("Create a children's story")
	if prompt.Title != "" {
		fmt.Fprintf(&b, " titled %q", prompt.Title)
	}
	if prompt.Characters != "" {
		fmt.Fprintf(&b, " featuring %s", prompt.Characters)
	}
	if prompt.Setting != "" {
		fmt.Fprintf(&b, " set in %s", prompt.Setting)
	}
	return b.String()
}

// parseGeneratedStory splits the backend response into title and body. The
// first line carries the title behind a literal "Title: " prefix.
func parseGeneratedStory(raw string) (title, content string) {
	first, rest, _ := strings.Cut(raw, "\n")
	title = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(first), "Title: "))
	content = strings.TrimSpace(rest)
	return title, content
}

func coverPrompt(storyTitle string) string {
	return fmt.Sprintf(`Create a colorful, child-friendly book cover illustration for a children's story titled %q.
The image should be engaging, bright, and suitable for children.
IMPORTANT INSTRUCTIONS:
1. Create ONLY the cover illustration itself - do NOT show a book or book cover object
2. Make ONE single cohesive scene - do NOT split the image into multiple panels or sections
3. Do NOT create duplicated or mirrored content within the same image
4. Fill the entire square canvas with a single unified illustration, ensuring no borders or empty spaces are left
5. Use cartoon style with vibrant colors and simple shapes suitable for children
6. Do NOT include any text or words in the image
7. Reflect the theme and mood of the story, such as whimsical, adventurous, or magical
8. Include key elements or characters from the story, such as a brave knight or a magical forest
9. Use a color palette that matches the story's tone, like warm and vibrant colors for a happy story

The illustration should visually represent the story about %q.`, storyTitle, storyTitle)
}

const sceneExcerptLimit = 300

func scenePrompt(excerpt string) string {
	if len(excerpt) > sceneExcerptLimit {
		excerpt = excerpt[:sceneExcerptLimit]
	}
	return fmt.Sprintf(`Create a colorful, child-friendly illustration for a children's story.
IMPORTANT INSTRUCTIONS:
1. Create ONE single cohesive scene - do NOT split the image into multiple panels or sections
2. Do NOT create duplicated or mirrored content within the same image
3. Fill the entire square canvas with a single unified illustration, ensuring no borders or empty spaces are left
4. Use cartoon style with vibrant colors and simple shapes suitable for children
5. Do NOT include any text or words in the image
6. Include key elements or characters from the story, such as a brave knight or a magical forest
7. Use a color palette that matches the story's tone, like warm and vibrant colors for a happy story

The image should depict this story excerpt: %s...`, excerpt)
}
