package conversations

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/apperr"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/httpkit"
	"github.com/alexcopeland13/relay-isa-automation-sub001/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidRequest = "invalid request body"
	errValidation     = "validation error"
	errMissingCallSID = "missing call sid"
)

// Handler serves the admin conversation endpoints.
type Handler struct {
	service *Service
	queue   ReprocessQueue
	val     *validator.Validator
}

// NewHandler creates a new conversation handler. queue may be nil, in which
// case reprocessing runs inside the request.
func NewHandler(service *Service, queue ReprocessQueue, val *validator.Validator) *Handler {
	return &Handler{service: service, queue: queue, val: val}
}

// GetConversation returns a conversation with its messages and analysis.
// GET /api/v1/admin/conversations/:callSid
func (h *Handler) GetConversation(c *gin.Context) {
	callSID, ok := h.callSID(c)
	if !ok {
		return
	}

	detail, err := h.service.Get(c.Request.Context(), callSID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toDetailResponse(detail))
}

// ReprocessConversation rebuilds messages and/or analysis for one call.
// POST /api/v1/admin/conversations/:callSid/reprocess
func (h *Handler) ReprocessConversation(c *gin.Context) {
	callSID, ok := h.callSID(c)
	if !ok {
		return
	}

	var req ReprocessRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	if h.queue != nil {
		if _, err := h.service.Get(c.Request.Context(), callSID); httpkit.HandleError(c, err) {
			return
		}
		if err := h.queue.EnqueueReprocess(c.Request.Context(), callSID, req.Steps); err != nil {
			httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to queue reprocess", err))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued", "callSid": callSID})
		return
	}

	out, err := h.service.Reprocess(c.Request.Context(), callSID, req.Steps)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, out)
}

func (h *Handler) callSID(c *gin.Context) (string, bool) {
	callSID := strings.TrimSpace(c.Param("callSid"))
	if callSID == "" {
		httpkit.Error(c, http.StatusBadRequest, errMissingCallSID, nil)
		return "", false
	}
	return callSID, true
}

// bindAndValidate accepts an empty body as the zero request.
func (h *Handler) bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, errValidation, validator.FieldErrors(err))
		return false
	}
	return true
}
