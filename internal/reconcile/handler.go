package reconcile

import (
	"collection_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Reconcile(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	report, err := h.svc.Reconcile(c.Request.Context(), id.UserID(), id.SessionID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}

func (h *Handler) Orphaned(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	report, err := h.svc.Latest(c.Request.Context(), id.UserID(), id.SessionID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, report)
}
