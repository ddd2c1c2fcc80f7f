package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/factura-ai/invoice-pipeline/internal/auth"
	"github.com/factura-ai/invoice-pipeline/internal/common"
	"github.com/factura-ai/invoice-pipeline/internal/invoice"
)

func (s *Server) handleIndex(c *gin.Context) {
	if id, ok := currentIdentity(c); ok {
		c.String(http.StatusOK, "Backend OK (Auth: %s)", id.Name)
		return
	}
	c.String(http.StatusOK, "Backend OK (No Auth)")
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	if _, ok := currentIdentity(c); ok {
		c.JSON(http.StatusOK, gin.H{"message": "Ya logueado."})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Credenciales inválidas."})
		return
	}

	identity, err := s.verifier.Verify(req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Error("auth.verify.failed", "error", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Credenciales inválidas."})
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserID, identity.ID)
	session.Set(sessionUserKey, identity.Name)
	if err := session.Save(); err != nil {
		s.logger.Error("auth.session.save_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno servidor."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login OK.", "user": identity})
}

func (s *Server) handleLogout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		s.logger.Error("auth.session.save_failed", "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout OK."})
}

func (s *Server) handleCheckAuth(c *gin.Context) {
	if id, ok := currentIdentity(c); ok {
		c.JSON(http.StatusOK, gin.H{"isAuthenticated": true, "user": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isAuthenticated": false, "user": nil})
}

// handleProcessInvoice accepts a multipart PDF upload, runs the
// extraction pipeline, and returns 200 on a clean run or 207 when one
// or more pages failed extraction.
func (s *Server) handleProcessInvoice(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		return
	}
	if fileHeader.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid format"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}
	defer f.Close()
	pdfBytes, err := io.ReadAll(f)
	if err != nil || len(pdfBytes) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}

	s.logger.Info("server.process_invoice", "filename", fileHeader.Filename, "bytes", len(pdfBytes))

	res, err := s.processor.ProcessInvoice(c.Request.Context(), fileHeader.Filename, pdfBytes)
	if err != nil {
		if common.HasCode(err, common.CodeConversion) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error OCR: " + err.Error()})
			return
		}
		s.logger.Error("server.process_invoice.failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error interno servidor."})
		return
	}

	status := http.StatusOK
	if res.Partial() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, res)
}

// handleSendToN8N relays an arbitrary JSON body to the configured
// webhook and passes the webhook's reply back to the caller.
func (s *Server) handleSendToN8N(c *gin.Context) {
	if !s.relay.Configured() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Webhook no configurado."})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON data."})
		return
	}

	raw, _, err := s.relay.Send(c.Request.Context(), body)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error contactando n8n: " + err.Error()})
		return
	}

	var parsed any
	if json.Unmarshal(raw, &parsed) == nil && parsed != nil {
		c.JSON(http.StatusOK, gin.H{"message": "Datos enviados.", "n8n_response": parsed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Datos enviados (resp n8n no JSON)."})
}

// handleExportXLSX renders a structured record's line items as an XLSX
// attachment.
func (s *Server) handleExportXLSX(c *gin.Context) {
	var rec invoice.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No JSON data."})
		return
	}

	data, err := s.exporter.ProjectXLSX(&rec)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="articulos.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
