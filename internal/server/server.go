package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/factura-ai/invoice-pipeline/internal/auth"
	"github.com/factura-ai/invoice-pipeline/internal/export"
	"github.com/factura-ai/invoice-pipeline/internal/pipeline"
)

// InvoiceProcessor runs the extraction pipeline for one upload.
type InvoiceProcessor interface {
	ProcessInvoice(ctx context.Context, filename string, pdfBytes []byte) (*pipeline.Result, error)
}

// WebhookRelay forwards a JSON payload to the external webhook.
type WebhookRelay interface {
	Configured() bool
	Send(ctx context.Context, payload []byte) ([]byte, int, error)
}

const (
	sessionName    = "invoice_session"
	sessionUserID  = "user_id"
	sessionUserKey = "user_name"
)

// Server wires the HTTP surface around the pipeline. Routing and auth
// are scaffolding; every design decision lives in the packages behind
// the interfaces above.
type Server struct {
	logger    *slog.Logger
	verifier  auth.Verifier
	processor InvoiceProcessor
	relay     WebhookRelay
	exporter  *export.Service
}

func New(verifier auth.Verifier, processor InvoiceProcessor, relay WebhookRelay, exporter *export.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:    logger,
		verifier:  verifier,
		processor: processor,
		relay:     relay,
		exporter:  exporter,
	}
}

// Router builds the gin engine with session middleware and all routes.
func (s *Server) Router(sessionSecret string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/", s.handleIndex)
	r.POST("/login", s.handleLogin)
	r.GET("/check_auth", s.handleCheckAuth)

	authed := r.Group("/", s.requireLogin)
	authed.POST("/logout", s.handleLogout)
	authed.POST("/process_invoice", s.handleProcessInvoice)
	authed.POST("/send_to_n8n", s.handleSendToN8N)
	authed.POST("/export_xlsx", s.handleExportXLSX)

	return r
}

// requireLogin rejects requests without an authenticated session.
func (s *Server) requireLogin(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get(sessionUserID) == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No autorizado."})
		return
	}
	c.Next()
}

func currentIdentity(c *gin.Context) (auth.Identity, bool) {
	session := sessions.Default(c)
	id, _ := session.Get(sessionUserID).(string)
	name, _ := session.Get(sessionUserKey).(string)
	if id == "" {
		return auth.Identity{}, false
	}
	return auth.Identity{ID: id, Name: name}, true
}
