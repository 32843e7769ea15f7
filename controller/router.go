package controller

import (
	"html/template"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/observability"
)

const (
	sessionCookieName = "ragchat_session"
	indexTemplateName = "index"
)

// RouterConfig carries the web-layer settings.
type RouterConfig struct {
	CORSOrigins   []string
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool
}

// NewRouter wires middleware and every route onto a fresh gin engine.
func NewRouter(chat *ChatController, metrics *observability.Metrics, cfg RouterConfig, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.GinMiddleware(log.Named("http")))

	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(sessionCookieName, store))

	router.SetHTMLTemplate(template.Must(template.New(indexTemplateName).Parse(indexPage)))

	router.GET("/health", chat.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	router.GET("/", chat.Index)
	router.POST("/chat", chat.SubmitForm)
	router.GET("/clear", chat.ClearForm)
	router.POST("/clear", chat.ClearForm)

	api := router.Group("/api")
	{
		api.GET("/messages", chat.GetMessages)
		api.POST("/chat", chat.Chat)
		api.POST("/chat/stream", chat.ChatStream)
		api.POST("/clear", chat.ClearAPI)
	}

	return router
}

const indexPage = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Medical RAG Chat</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.turn { white-space: pre-wrap; margin: .5rem 0; padding: .5rem; border-radius: .25rem; }
.user { background: #eef; }
.assistant { background: #efe; }
</style>
</head>
<body>
<h1>Medical RAG Chat</h1>
<div id="messages">
{{- range .Messages }}
<div class="turn {{ .Role }}"><strong>{{ .Role }}:</strong> {{ .Content }}</div>
{{- else }}
<p>Ask a question about the indexed documents.</p>
{{- end }}
</div>
<form method="post" action="/chat">
<input type="text" name="question" autofocus required>
<button type="submit">Ask</button>
</form>
<form method="post" action="/clear"><button type="submit">Clear</button></form>
</body>
</html>
`
