package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Instruction sets for the four text transforms. Every transform normalizes
// its output to English regardless of the lecture's language.
const (
	filterInstructions = "You clean up lecture transcripts. Keep only the educational " +
		"content: remove greetings, small talk, administrative announcements, filler " +
		"words and off-topic chatter. Translate the result to English if it is in " +
		"another language. Return only the cleaned transcript."

	summaryInstructions = "You summarize lectures for students. Write a concise summary " +
		"in English covering the main topics, key definitions and conclusions."

	notesInstructions = "You turn lecture transcripts into structured study notes in " +
		"English: headed sections with bullet points for definitions, concepts and examples."

	qnaInstructions = "You write exam-style questions from lectures. Produce question and " +
		"answer pairs in English, one pair per paragraph, covering the important material."
)

// Per-call token budgets. The filter gets the largest budget since it must
// return most of the input.
const (
	filterMaxTokens   = 4096
	generateMaxTokens = 2048

	filterTemperature   = 0.0
	generateTemperature = 0.3
)

// ErrEmptyCompletion is returned when the API answers with no choices.
var ErrEmptyCompletion = errors.New("model returned no completion")

// Generator produces the derived text artifacts. Summary, Notes and QnA are
// mutually independent and safe to call concurrently.
type Generator interface {
	Filter(ctx context.Context, transcript string) (string, error)
	Summary(ctx context.Context, filtered string) (string, error)
	Notes(ctx context.Context, filtered string) (string, error)
	QnA(ctx context.Context, filtered string) (string, error)
}

// chatCompleter is the slice of the OpenAI client we use.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

var (
	_ Generator     = (*OpenAIGenerator)(nil)
	_ chatCompleter = (*openai.Client)(nil)
)

// OpenAIGenerator implements Generator on the OpenAI chat completion API.
type OpenAIGenerator struct {
	client chatCompleter
	model  string
}

func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{client: client, model: model}
}

func (g *OpenAIGenerator) Filter(ctx context.Context, transcript string) (string, error) {
	return g.complete(ctx, filterInstructions, transcript, filterMaxTokens, filterTemperature)
}

func (g *OpenAIGenerator) Summary(ctx context.Context, filtered string) (string, error) {
	return g.complete(ctx, summaryInstructions, filtered, generateMaxTokens, generateTemperature)
}

func (g *OpenAIGenerator) Notes(ctx context.Context, filtered string) (string, error) {
	return g.complete(ctx, notesInstructions, filtered, generateMaxTokens, generateTemperature)
}

func (g *OpenAIGenerator) QnA(ctx context.Context, filtered string) (string, error) {
	return g.complete(ctx, qnaInstructions, filtered, generateMaxTokens, generateTemperature)
}

func (g *OpenAIGenerator) complete(ctx context.Context, instructions, userText string, maxTokens int, temperature float32) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instructions},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
