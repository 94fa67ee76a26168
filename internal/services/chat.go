package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/recipes-assistant-backend/internal/domain"
	"github.com/yungbote/recipes-assistant-backend/internal/observability"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/ctxutil"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/openai"
)

const (
	ToolAddResource    = "addResource"
	ToolGetInformation = "getInformation"

	EventTextDelta  = "text.delta"
	EventToolCall   = "tool.call"
	EventToolResult = "tool.result"
	EventError      = "error"

	DefaultChatMaxSteps    = 5
	DefaultChatMaxDuration = 30 * time.Second
	DefaultToolTimeout     = 60 * time.Second
)

const systemPrompt = `You are a domain-specialized Recipes Assistant.
Rules:
- Always call "getInformation" FIRST to retrieve relevant chunks from the knowledge base.
- Answer ONLY using information returned by tools. If nothing is relevant, say "Sorry, I don't know."
- Prefer step-by-step instructions. If ingredients are present in context, list them first, then steps.
- If multiple relevant chunks exist, synthesize them into one coherent answer. Avoid hallucination.
- If "source" or metadata is available, mention the recipe name or file in one line at the end.
Style: concise, practical, no fluff.`

var chatTools = []openai.ToolDef{
	{
		Name: ToolAddResource,
		Description: "add a resource to your knowledge base. " +
			"If the user provides a random piece of knowledge unprompted, use this tool without asking for confirmation.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "the content or resource to add to the knowledge base",
				},
			},
			"required": []string{"content"},
		},
	},
	{
		Name:        ToolGetInformation,
		Description: "get information from your knowledge base to answer questions.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "the users question",
				},
			},
			"required": []string{"question"},
		},
	},
}

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatEvent struct {
	Type      string `json:"-"`
	Delta     string `json:"delta,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ChatConfig struct {
	Model       string
	MaxSteps    int
	MaxDuration time.Duration
	ToolTimeout time.Duration
}

type ChatService interface {
	// Respond runs one assistant turn, streaming events to onEvent.
	Respond(ctx context.Context, turns []ChatTurn, onEvent func(ChatEvent)) error
}

type chatService struct {
	log       *logger.Logger
	model     openai.ChatModel
	ingestion IngestionService
	retriever Retriever
	cfg       ChatConfig
}

func NewChatService(baseLog *logger.Logger, model openai.ChatModel, ingestion IngestionService, retriever Retriever, cfg ChatConfig) ChatService {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultChatMaxSteps
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultChatMaxDuration
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = DefaultToolTimeout
	}
	return &chatService{
		log:       baseLog.With("service", "ChatService"),
		model:     model,
		ingestion: ingestion,
		retriever: retriever,
		cfg:       cfg,
	}
}

func (s *chatService) Respond(ctx context.Context, turns []ChatTurn, onEvent func(ChatEvent)) (err error) {
	if len(turns) == 0 {
		return &ValidationError{Reason: "messages must be a non-empty array"}
	}
	if onEvent == nil {
		onEvent = func(ChatEvent) {}
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), s.cfg.MaxDuration)
	defer cancel()
	defer func() {
		status := "ok"
		if err != nil {
			status = errorKind(err)
		}
		observability.Current().IncChatTurn(status)
	}()

	msgs := make([]openai.ChatMessage, 0, len(turns)+1)
	msgs = append(msgs, openai.ChatMessage{Role: openai.RoleSystem, Content: systemPrompt})
	for _, t := range turns {
		msgs = append(msgs, openai.ChatMessage{Role: t.Role, Content: t.Content})
	}

	for step := 0; step < s.cfg.MaxSteps; step++ {
		text, calls, err := s.runStep(ctx, msgs, onEvent)
		if err != nil {
			return err
		}
		if len(calls) == 0 {
			return nil
		}
		msgs = append(msgs, openai.ChatMessage{Role: openai.RoleAssistant, Content: text, ToolCalls: calls})
		for _, call := range calls {
			onEvent(ChatEvent{Type: EventToolCall, Name: call.Name, Arguments: call.Arguments})
			result := s.runTool(ctx, call)
			onEvent(ChatEvent{Type: EventToolResult, Name: call.Name, Result: result})
			msgs = append(msgs, openai.ChatMessage{Role: openai.RoleTool, Content: result, ToolCallID: call.ID})
		}
	}
	s.log.Debug("chat step budget exhausted", append([]interface{}{"steps", s.cfg.MaxSteps}, ctxutil.LogFields(ctx)...)...)
	return nil
}

// runStep streams one model step. Tool call fragments are joined by index.
func (s *chatService) runStep(ctx context.Context, msgs []openai.ChatMessage, onEvent func(ChatEvent)) (string, []openai.ToolCall, error) {
	stream, err := s.model.Stream(ctx, openai.ChatRequest{Model: s.cfg.Model, Messages: msgs, Tools: chatTools})
	if err != nil {
		return "", nil, &CollaboratorError{Service: "chat model", Err: err}
	}
	defer stream.Close()

	var text strings.Builder
	pending := map[int]*openai.ToolCall{}
	for {
		d, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, &CollaboratorError{Service: "chat model", Err: err}
		}
		if d.Content != "" {
			text.WriteString(d.Content)
			onEvent(ChatEvent{Type: EventTextDelta, Delta: d.Content})
		}
		for _, tc := range d.ToolCalls {
			call, ok := pending[tc.Index]
			if !ok {
				call = &openai.ToolCall{}
				pending[tc.Index] = call
			}
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Name != "" {
				call.Name = tc.Name
			}
			call.Arguments += tc.Arguments
		}
	}

	idx := make([]int, 0, len(pending))
	for i := range pending {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	calls := make([]openai.ToolCall, 0, len(idx))
	for _, i := range idx {
		calls = append(calls, *pending[i])
	}
	return text.String(), calls, nil
}

// runTool executes outside the turn deadline so a slow answer never
// cancels an ingestion already in flight.
func (s *chatService) runTool(ctx context.Context, call openai.ToolCall) string {
	toolCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ToolTimeout)
	defer cancel()

	result, err := s.dispatchTool(toolCtx, call)
	status := "ok"
	if err != nil {
		status = errorKind(err)
		s.log.Warn("tool failed", append([]interface{}{"tool", call.Name, "error", err}, ctxutil.LogFields(ctx)...)...)
		result = FailureMessage(err)
	}
	observability.Current().IncToolCall(call.Name, status)
	return result
}

func (s *chatService) dispatchTool(ctx context.Context, call openai.ToolCall) (string, error) {
	switch call.Name {
	case ToolAddResource:
		var args struct {
			Content string `json:"content"`
		}
		if err := decodeToolArgs(call.Arguments, &args); err != nil {
			return "", err
		}
		msg, _, _ := s.ingestion.IngestRaw(ctx, args.Content)
		return msg, nil
	case ToolGetInformation:
		var args struct {
			Question string `json:"question"`
		}
		if err := decodeToolArgs(call.Arguments, &args); err != nil {
			return "", err
		}
		matches, err := s.retriever.Retrieve(ctx, args.Question)
		if err != nil {
			return "", err
		}
		if matches == nil {
			matches = []domain.Match{}
		}
		b, err := json.Marshal(matches)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return "", &ValidationError{Reason: fmt.Sprintf("unknown tool %q", call.Name)}
	}
}

func decodeToolArgs(raw string, out any) error {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &ValidationError{Reason: "invalid tool arguments: " + err.Error()}
	}
	return nil
}
