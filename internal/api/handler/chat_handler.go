package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/suatgpt/suatgpt-backend/internal/api/middleware"
	"github.com/suatgpt/suatgpt-backend/internal/core/domain"
	"github.com/suatgpt/suatgpt-backend/internal/core/ports"
)

const emptyMessageText = "Message content must not be empty."

type ChatHandler struct {
	chatService  ports.ChatService
	probeService ports.ProbeService
}

func NewChatHandler(chatService ports.ChatService, probeService ports.ProbeService) *ChatHandler {
	return &ChatHandler{chatService: chatService, probeService: probeService}
}

// Chat sends a message to the selected model and returns its reply.
// Callers without a token are recorded under the shared anonymous identity.
//
// @Summary      Chat with a model
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        body  body      chatRequest  true  "Message and optional model key"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      429   {object}  messageOnly
// @Router       /ai/chat [post]
func (h *ChatHandler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageOnly{Message: "invalid payload"})
	}

	turn, err := h.chatService.Chat(c.Request().Context(), middleware.Identity(c), req.Message, req.ModelKey)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyMessage) {
			return c.JSON(http.StatusBadRequest, messageResponse{
				Sender:    string(domain.SenderAI),
				Content:   emptyMessageText,
				Timestamp: time.Now().UTC(),
			})
		}
		return err
	}

	return c.JSON(http.StatusOK, toMessageResponse(*turn))
}

// History lists the caller's conversation oldest first.
//
// @Summary      Chat history
// @Tags         ai
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   messageResponse
// @Failure      401  {object}  messageOnly
// @Failure      403  {object}  messageOnly
// @Router       /ai/history [get]
func (h *ChatHandler) History(c echo.Context) error {
	user, err := ctxUser(c)
	if err != nil {
		return err
	}

	turns, err := h.chatService.History(c.Request().Context(), user)
	if err != nil {
		return err
	}

	out := make([]messageResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, toMessageResponse(t))
	}
	return c.JSON(http.StatusOK, out)
}

// Test probes DNS and TCP reachability of a model's endpoint.
//
// @Summary      Provider connectivity probe
// @Tags         ai
// @Produce      json
// @Param        modelKey  query     string  false  "Model key (defaults to qwen-public)"
// @Success      200       {object}  domain.ProbeResult
// @Failure      500       {object}  domain.ProbeResult
// @Router       /ai/test [get]
func (h *ChatHandler) Test(c echo.Context) error {
	res := h.probeService.Probe(c.Request().Context(), c.QueryParam("modelKey"))
	status := http.StatusOK
	if res.Failed() {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, res)
}

func toMessageResponse(t domain.Turn) messageResponse {
	return messageResponse{Sender: string(t.Sender), Content: t.Content, Timestamp: t.CreatedAt}
}
