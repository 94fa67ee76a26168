package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/recipes-assistant-backend/internal/http/response"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/ctxutil"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
	"github.com/yungbote/recipes-assistant-backend/internal/services"
)

type ChatHandler struct {
	log  *logger.Logger
	chat services.ChatService
}

func NewChatHandler(baseLog *logger.Logger, chat services.ChatService) *ChatHandler {
	return &ChatHandler{log: baseLog.With("handler", "ChatHandler"), chat: chat}
}

type chatPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// chatMessage accepts both plain {role, content} turns and UI messages
// that carry their text in parts.
type chatMessage struct {
	Role    string     `json:"role"`
	Content string     `json:"content"`
	Parts   []chatPart `json:"parts"`
}

type chatReq struct {
	Messages []chatMessage `json:"messages"`
}

var errEmptyMessages = errors.New("messages must be a non-empty array")

func (r chatReq) turns() ([]services.ChatTurn, error) {
	if len(r.Messages) == 0 {
		return nil, errEmptyMessages
	}
	out := make([]services.ChatTurn, 0, len(r.Messages))
	for _, m := range r.Messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		switch role {
		case "user", "assistant", "system":
		default:
			return nil, errors.New("unsupported message role: " + m.Role)
		}
		text := m.Content
		if text == "" {
			var b strings.Builder
			for _, p := range m.Parts {
				if p.Type == "" || p.Type == "text" {
					b.WriteString(p.Text)
				}
			}
			text = b.String()
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, services.ChatTurn{Role: role, Content: text})
	}
	if len(out) == 0 {
		return nil, errEmptyMessages
	}
	return out, nil
}

// POST /api/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err)
		return
	}
	turns, err := req.turns()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, err)
		return
	}

	stream, ok := openEventStream(c.Writer)
	if !ok {
		response.RespondError(c, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	defer stream.Done()

	ctx := c.Request.Context()
	err = h.chat.Respond(ctx, turns, func(ev services.ChatEvent) {
		if werr := stream.Send(ev.Type, ev); werr != nil {
			h.log.Debug("chat event dropped", "type", ev.Type, "error", werr)
		}
	})
	if err != nil {
		h.log.Warn("chat turn failed", append([]interface{}{"error", err}, ctxutil.LogFields(ctx)...)...)
		_ = stream.Send(services.EventError, services.ChatEvent{Type: services.EventError, Error: services.FailureMessage(err)})
	}
}
