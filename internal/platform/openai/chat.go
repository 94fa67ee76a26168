package openai

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/recipes-assistant-backend/internal/observability"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ChatMessage struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolDef is a function tool; Parameters is a JSON schema object.
type ToolDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type ChatRequest struct {
	Model    string
	Messages []ChatMessage
	Tools    []ToolDef
}

// ToolCallDelta is a streamed fragment of a tool call. Fragments sharing an
// Index belong to the same call.
type ToolCallDelta struct {
	Index     int
	ID        string
	Name      string
	Arguments string
}

type ChatDelta struct {
	Content      string
	ToolCalls    []ToolCallDelta
	FinishReason string
}

// ChatStream yields deltas until Recv returns io.EOF.
type ChatStream interface {
	Recv() (ChatDelta, error)
	Close() error
}

type ChatModel interface {
	Stream(ctx context.Context, req ChatRequest) (ChatStream, error)
}

type chatModel struct {
	log    *logger.Logger
	client *goopenai.Client
	model  string
}

// NewChatModel builds the streaming chat adapter over go-openai.
func NewChatModel(log *logger.Logger, cfg Config) (ChatModel, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing OPENAI_API_KEY")
	}
	cfg = cfg.withDefaults()
	clientConfig := goopenai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	clientConfig.BaseURL = cfg.BaseURL + "/v1"
	return &chatModel{
		log:    log.With("service", "ChatModel"),
		client: goopenai.NewClientWithConfig(clientConfig),
		model:  cfg.ChatModel,
	}, nil
}

func (m *chatModel) Stream(ctx context.Context, req ChatRequest) (ChatStream, error) {
	model := req.Model
	if model == "" {
		model = m.model
	}
	start := time.Now()
	stream, err := m.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: toWireMessages(req.Messages),
		Tools:    toWireTools(req.Tools),
		Stream:   true,
	})
	if err != nil {
		observability.Current().ObserveLLMRequest(model, "/v1/chat/completions", chatErrStatus(err), time.Since(start), 0, 0)
		m.log.Warn("chat stream open failed", "model", model, "error", err)
		return nil, err
	}
	return &chatStream{stream: stream, model: model, start: start}, nil
}

type chatStream struct {
	stream *goopenai.ChatCompletionStream
	model  string
	start  time.Time
	done   bool
}

func (s *chatStream) Recv() (ChatDelta, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		if !s.done {
			s.done = true
			status := "200"
			if !errors.Is(err, io.EOF) {
				status = chatErrStatus(err)
			}
			observability.Current().ObserveLLMRequest(s.model, "/v1/chat/completions", status, time.Since(s.start), 0, 0)
		}
		return ChatDelta{}, err
	}
	var out ChatDelta
	if len(resp.Choices) == 0 {
		return out, nil
	}
	choice := resp.Choices[0]
	out.Content = choice.Delta.Content
	out.FinishReason = string(choice.FinishReason)
	for i, tc := range choice.Delta.ToolCalls {
		idx := i
		if tc.Index != nil {
			idx = *tc.Index
		}
		out.ToolCalls = append(out.ToolCalls, ToolCallDelta{
			Index:     idx,
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}

func toWireMessages(msgs []ChatMessage) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		wm := goopenai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, goopenai.ToolCall{
				ID:   tc.ID,
				Type: goopenai.ToolTypeFunction,
				Function: goopenai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, wm)
	}
	return out
}

func toWireTools(tools []ToolDef) []goopenai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]goopenai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, goopenai.Tool{
			Type: goopenai.ToolTypeFunction,
			Function: &goopenai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func chatErrStatus(err error) string {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return strconv.Itoa(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return strconv.Itoa(reqErr.HTTPStatusCode)
	}
	return statusLabel(err)
}
