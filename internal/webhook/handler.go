package webhook

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/httpkit"

	"github.com/gin-gonic/gin"
)

const (
	// maxBodyBytes bounds a single vendor callback; transcripts of long calls fit well inside.
	maxBodyBytes = 5 << 20

	errReadBody     = "unable to read request body"
	errBodyTooLarge = "request body too large"
)

// Handler handles the vendor-facing webhook endpoint.
type Handler struct {
	service     *Service
	serviceName string
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, serviceName string) *Handler {
	return &Handler{service: service, serviceName: serviceName}
}

// HandleEvent receives one vendor callback.
// POST /webhook
func (h *Handler) HandleEvent(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpkit.Error(c, http.StatusRequestEntityTooLarge, errBodyTooLarge, nil)
			return
		}
		httpkit.Error(c, http.StatusBadRequest, errReadBody, nil)
		return
	}

	resp, err := h.service.Receive(c.Request.Context(), body)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, resp)
}

// HandleStatus reports liveness for the vendor's endpoint checks.
// GET /webhook
func (h *Handler) HandleStatus(c *gin.Context) {
	httpkit.OK(c, gin.H{
		"status":    statusOK,
		"service":   h.serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandlePreflight answers CORS preflight requests that reach the route.
// OPTIONS /webhook
func (h *Handler) HandlePreflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HeaderSignature+", "+HeaderSignatureFallback)
	c.Status(http.StatusOK)
}
