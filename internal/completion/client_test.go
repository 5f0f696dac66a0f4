package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/codebuildervaibhav/lecture-grader/internal/apperr"
)

type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	empty    bool
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	if f.err != nil {
		return nil, f.err
	}
	if f.empty {
		return &llms.ContentResponse{}, nil
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestCompleteSendsTurnsInOrder(t *testing.T) {
	model := &fakeModel{reply: "  8\n"}
	c := NewWithModel(model, Config{Temperature: 0})

	p := ScorePrompt("Physics: Newton", "force equals mass times acceleration")
	got, err := c.Complete(context.Background(), p.System, p.Users)
	require.NoError(t, err)
	assert.Equal(t, "8", got)

	require.Len(t, model.messages, 3)
	assert.Equal(t, schema.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, schema.ChatMessageTypeHuman, model.messages[2].Role)
	assert.Contains(t, textOf(t, model.messages[0]), "Return only mark number where 10 is max.")
	assert.Equal(t, "I am a teacher and here is information about lecture and subject: Physics: Newton.", textOf(t, model.messages[1]))
	assert.Equal(t, "Here is pupils text: force equals mass times acceleration.", textOf(t, model.messages[2]))
}

func TestCompleteErrors(t *testing.T) {
	c := NewWithModel(&fakeModel{err: errors.New("429 rate limited")}, Config{})
	_, err := c.Complete(context.Background(), "sys", []string{"u"})
	assert.ErrorIs(t, err, apperr.ErrCompletion)

	c = NewWithModel(&fakeModel{empty: true}, Config{})
	_, err = c.Complete(context.Background(), "sys", []string{"u"})
	assert.ErrorIs(t, err, apperr.ErrCompletion)
}

func TestFeedbackPromptIncludesDocuments(t *testing.T) {
	p := FeedbackPrompt([]string{"Newton's laws", "Inertia"}, "Physics", "objects keep moving")

	assert.Equal(t, "You are a teacher assistant. You have access to the following documents to help evaluate the pupil's text: Newton's laws\nInertia. Ensure the pupil's text matches the teacher's lecture.", p.System)
	assert.Equal(t, []string{
		"I am a teacher and here is information about the lecture and subject: Physics.",
		"Here is the pupil's text: objects keep moving.",
	}, p.Users)
}

func TestFeedbackPromptWithoutDocuments(t *testing.T) {
	p := FeedbackPrompt(nil, "Physics", "x")
	assert.Contains(t, p.System, "evaluate the pupil's text: . Ensure")
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{Provider: "openai"})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)

	_, err = New(Config{Provider: "anthropic-proxy"})
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}
