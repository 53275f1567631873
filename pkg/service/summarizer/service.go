package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/sangam-civic/sangam/pkg/domain/interfaces"
	"github.com/sangam-civic/sangam/pkg/domain/model"
)

// descriptionLimit is the number of description runes sent per petition
const descriptionLimit = 200

// Service writes a unified title and issue statement for a cluster of petitions
type Service struct {
	llmClient gollem.LLMClient
}

var _ interfaces.Summarizer = &Service{}

// New creates a new summarizer with the provided LLM client
func New(llmClient gollem.LLMClient) (*Service, error) {
	if llmClient == nil {
		return nil, goerr.New("LLM client is required")
	}
	return &Service{llmClient: llmClient}, nil
}

// llmResponse is the structured output from the LLM
type llmResponse struct {
	IssueTitle string `json:"issue_title"`
	Summary    string `json:"summary"`
}

func (s *Service) Summarize(ctx context.Context, members []*model.Petition) (*model.ThreadSummary, error) {
	if len(members) == 0 {
		return nil, goerr.New("no petitions to summarize")
	}

	session, err := s.llmClient.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(buildResponseSchema()),
		gollem.WithSessionSystemPrompt(buildSystemPrompt()),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.Generate(ctx, []gollem.Input{gollem.Text(buildUserPrompt(members))})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content from LLM")
	}
	if resp == nil || len(resp.Texts) == 0 {
		return nil, goerr.New("LLM returned no text")
	}

	var parsed llmResponse
	if err := json.Unmarshal([]byte(resp.Texts[0]), &parsed); err != nil {
		return nil, goerr.Wrap(err, "failed to parse LLM response", goerr.V("response", resp.Texts[0]))
	}

	parsed.IssueTitle = strings.TrimSpace(parsed.IssueTitle)
	parsed.Summary = strings.TrimSpace(parsed.Summary)
	if parsed.IssueTitle == "" || parsed.Summary == "" {
		return nil, goerr.New("LLM response is missing fields", goerr.V("response", resp.Texts[0]))
	}

	return &model.ThreadSummary{
		Label:   parsed.IssueTitle,
		Summary: parsed.Summary,
	}, nil
}

func buildSystemPrompt() string {
	var sb strings.Builder

	sb.WriteString("You are consolidating related Public Interest Litigation petitions for a unified court filing in India.\n\n")
	sb.WriteString("## Instructions:\n\n")
	sb.WriteString("1. Read every petition in the group.\n")
	sb.WriteString("2. issue_title: a short unified title for the group (at most 10 words).\n")
	sb.WriteString("3. summary: a 2-3 sentence cohesive issue statement covering all petitions.\n")
	sb.WriteString("4. Write in the same language as the petitions.\n")

	return sb.String()
}

func buildUserPrompt(members []*model.Petition) string {
	var sb strings.Builder

	sb.WriteString("Related petitions:\n")
	for i, p := range members {
		fmt.Fprintf(&sb, "\nPetition %d: %q", i+1, p.Title)
		if desc := truncate(strings.TrimSpace(p.Description), descriptionLimit); desc != "" {
			sb.WriteString(" - ")
			sb.WriteString(desc)
		}
		if p.Location != "" {
			fmt.Fprintf(&sb, " (location: %s)", p.Location)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func buildResponseSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "ThreadSummaryResponse",
		Description: "Unified title and issue statement for a group of related petitions",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"issue_title": {
				Type:        gollem.TypeString,
				Description: "A short unified title for this group of issues, at most 10 words",
				Required:    true,
			},
			"summary": {
				Type:        gollem.TypeString,
				Description: "A 2-3 sentence issue statement summarizing all related petitions",
				Required:    true,
			},
		},
	}
}
