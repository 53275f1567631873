package summarizer_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"
	"github.com/m-mizutani/gt"
	"github.com/sangam-civic/sangam/pkg/domain/model"
	"github.com/sangam-civic/sangam/pkg/service/summarizer"
)

type mockLLMSession struct {
	generateFn func(ctx context.Context, input []gollem.Input) (*gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.generateFn(ctx, input)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return s.generateFn(ctx, input)
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	return nil, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type mockLLMClient struct {
	session *mockLLMSession
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return c.session, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func respondWith(text string, err error) *mockLLMClient {
	return &mockLLMClient{session: &mockLLMSession{
		generateFn: func(ctx context.Context, input []gollem.Input) (*gollem.Response, error) {
			if err != nil {
				return nil, err
			}
			return &gollem.Response{Texts: []string{text}}, nil
		},
	}}
}

var members = []*model.Petition{
	{ID: "p1", Title: "Potholes on MG Road", Description: "Dangerous potholes near the bus depot"},
	{ID: "p2", Title: "Road craters near MG Road", Location: "Bengaluru"},
}

func TestNew(t *testing.T) {
	_, err := summarizer.New(nil)
	gt.Error(t, err)
}

func TestSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("parses structured output", func(t *testing.T) {
		svc, err := summarizer.New(respondWith(`{"issue_title":" MG Road repairs ","summary":"Residents ask for road repairs."}`, nil))
		gt.NoError(t, err).Required()

		s, err := svc.Summarize(ctx, members)
		gt.NoError(t, err).Required()
		gt.Value(t, s.Label).Equal("MG Road repairs")
		gt.Value(t, s.Summary).Equal("Residents ask for road repairs.")
	})

	t.Run("malformed output is an error", func(t *testing.T) {
		svc, err := summarizer.New(respondWith("not json", nil))
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(ctx, members)
		gt.Error(t, err)
	})

	t.Run("missing title is an error", func(t *testing.T) {
		svc, err := summarizer.New(respondWith(`{"summary":"only a summary"}`, nil))
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(ctx, members)
		gt.Error(t, err)
	})

	t.Run("generation failure is an error", func(t *testing.T) {
		svc, err := summarizer.New(respondWith("", goerr.New("model overloaded")))
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(ctx, members)
		gt.Error(t, err)
	})

	t.Run("no members", func(t *testing.T) {
		svc, err := summarizer.New(respondWith("{}", nil))
		gt.NoError(t, err).Required()

		_, err = svc.Summarize(ctx, nil)
		gt.Error(t, err)
	})
}

func TestBuildUserPrompt(t *testing.T) {
	long := strings.Repeat("अ", 250)
	prompt := summarizer.BuildUserPrompt([]*model.Petition{
		{Title: "Water", Description: long},
		{Title: "Roads", Location: "Pune"},
	})

	gt.String(t, prompt).Contains(`Petition 1: "Water" - ` + strings.Repeat("अ", 200) + "\n")
	gt.Bool(t, strings.Contains(prompt, strings.Repeat("अ", 201))).False()
	gt.String(t, prompt).Contains(`Petition 2: "Roads" (location: Pune)`)
}

func TestSummarize_WithRealGemini(t *testing.T) {
	projectID := os.Getenv("TEST_GEMINI_PROJECT")
	if projectID == "" {
		t.Skip("TEST_GEMINI_PROJECT not set")
	}

	location := os.Getenv("TEST_GEMINI_LOCATION")
	if location == "" {
		t.Skip("TEST_GEMINI_LOCATION not set")
	}

	ctx := context.Background()
	llmClient, err := gemini.New(ctx, projectID, location)
	gt.NoError(t, err).Required()

	svc, err := summarizer.New(llmClient)
	gt.NoError(t, err).Required()

	s, err := svc.Summarize(ctx, members)
	gt.NoError(t, err).Required()
	gt.String(t, s.Label).NotEqual("")
	gt.String(t, s.Summary).NotEqual("")
}

func TestBuildResponseSchema(t *testing.T) {
	schema := summarizer.BuildResponseSchema()
	gt.Value(t, schema.Type).Equal(gollem.TypeObject)
	gt.Number(t, len(schema.Properties)).Equal(2)

	for _, name := range []string{"issue_title", "summary"} {
		prop, ok := schema.Properties[name]
		gt.Bool(t, ok).True()
		gt.Value(t, prop.Type).Equal(gollem.TypeString)
		gt.Bool(t, prop.Required).True()
	}
}
