package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github/itish2003/ragchat/models"
	"github/itish2003/ragchat/observability"
	"github/itish2003/ragchat/services"
)

const sessionIDKey = "sid"

// ChatController handles the HTTP requests for the chat page and API. It depends
// on the ChatService for everything beyond request parsing.
type ChatController struct {
	chatService *services.ChatService
	metrics     *observability.Metrics
	ready       func() bool
	logger      *zap.Logger
}

// NewChatController is called from main.go to inject the service dependency.
// ready reports whether the RAG pipeline has been built, for /health.
func NewChatController(service *services.ChatService, metrics *observability.Metrics, ready func() bool, logger *zap.Logger) *ChatController {
	return &ChatController{
		chatService: service,
		metrics:     metrics,
		ready:       ready,
		logger:      logger.Named("controller"),
	}
}

// Index renders the conversation and the question form.
func (c *ChatController) Index(ctx *gin.Context) {
	messages, err := c.chatService.Messages(ctx.Request.Context(), c.sessionID(ctx))
	if err != nil {
		c.logger.Error("failed to load messages", zap.Error(err))
		messages = []models.ChatTurn{}
	}
	ctx.HTML(http.StatusOK, indexTemplateName, gin.H{"Messages": messages})
}

// SubmitForm is the handler for POST /chat from the HTML page.
func (c *ChatController) SubmitForm(ctx *gin.Context) {
	var form models.ChatForm
	if err := ctx.ShouldBind(&form); err != nil {
		ctx.Redirect(http.StatusFound, "/")
		return
	}

	_, err := c.chatService.Handle(ctx.Request.Context(), c.sessionID(ctx), form.Text())
	c.metrics.ObserveChat("form", err)
	if err != nil && !errors.Is(err, services.ErrEmptyQuestion) {
		c.logger.Error("form chat failed", zap.Error(err))
	}
	ctx.Redirect(http.StatusFound, "/")
}

// GetMessages is the handler for GET /api/messages.
func (c *ChatController) GetMessages(ctx *gin.Context) {
	messages, err := c.chatService.Messages(ctx.Request.Context(), c.sessionID(ctx))
	if err != nil {
		c.logger.Error("failed to load messages", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load messages"})
		return
	}
	ctx.JSON(http.StatusOK, models.MessagesResponse{Messages: messages})
}

// Chat is the handler for POST /api/chat. It answers with the whole conversation.
func (c *ChatController) Chat(ctx *gin.Context) {
	var req models.ChatRequest
	// An unreadable body is treated like a missing question.
	_ = ctx.ShouldBindJSON(&req)

	sid := c.sessionID(ctx)
	_, err := c.chatService.Handle(ctx.Request.Context(), sid, req.Question)
	c.metrics.ObserveChat("api_chat", err)
	if errors.Is(err, services.ErrEmptyQuestion) {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Question is required"})
		return
	}
	if err != nil {
		c.logger.Error("chat failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to save chat"})
		return
	}

	c.GetMessages(ctx)
}

// ChatStream is the handler for POST /api/chat/stream. The answer is written as
// plain text in small chunks.
func (c *ChatController) ChatStream(ctx *gin.Context) {
	var req models.ChatRequest
	_ = ctx.ShouldBindJSON(&req)

	reqCtx := ctx.Request.Context()
	stream, err := c.chatService.HandleStreaming(reqCtx, c.sessionID(ctx), req.Question)
	c.metrics.ObserveChat("api_chat_stream", err)
	if errors.Is(err, services.ErrEmptyQuestion) {
		ctx.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Question is required"})
		return
	}
	if err != nil {
		c.logger.Error("streaming chat failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to save chat"})
		return
	}

	ctx.Header("Content-Type", "text/plain; charset=utf-8")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("X-Accel-Buffering", "no")
	ctx.Status(http.StatusOK)

	ctx.Stream(func(w io.Writer) bool {
		chunk, err := stream.Next(reqCtx)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Debug("stream stopped", zap.Error(err))
			}
			return false
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			c.logger.Debug("client went away mid-stream", zap.Error(err))
			return false
		}
		c.metrics.StreamChunks.Inc()
		return true
	})
}

// ClearAPI is the handler for POST /api/clear.
func (c *ChatController) ClearAPI(ctx *gin.Context) {
	if err := c.chatService.Clear(ctx.Request.Context(), c.sessionID(ctx)); err != nil {
		c.logger.Error("failed to clear session", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to clear chat"})
		return
	}
	ctx.JSON(http.StatusOK, models.MessagesResponse{Messages: []models.ChatTurn{}})
}

// ClearForm is the handler for GET and POST /clear from the HTML page.
func (c *ChatController) ClearForm(ctx *gin.Context) {
	if err := c.chatService.Clear(ctx.Request.Context(), c.sessionID(ctx)); err != nil {
		c.logger.Error("failed to clear session", zap.Error(err))
	}
	ctx.Redirect(http.StatusFound, "/")
}

// Health is the handler for GET /health. It reports whether the pipeline has
// been built yet.
func (c *ChatController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.HealthResponse{
		Status:        "healthy",
		Service:       "RAG chat",
		Version:       "1.0.0",
		PipelineReady: c.ready(),
	})
}

// sessionID returns the id kept in the signed session cookie, issuing one on
// first contact. It must run before the response body is written.
func (c *ChatController) sessionID(ctx *gin.Context) string {
	session := sessions.Default(ctx)
	if id, ok := session.Get(sessionIDKey).(string); ok && id != "" {
		return id
	}
	id := uuid.New().String()
	session.Set(sessionIDKey, id)
	if err := session.Save(); err != nil {
		c.logger.Warn("failed to save session cookie", zap.Error(err))
	}
	return id
}
