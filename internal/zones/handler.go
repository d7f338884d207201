package zones

import (
	"collection_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler exposes the read-only zone list to operators.
type Handler struct {
	reader Reader
}

func NewHandler(reader Reader) *Handler {
	return &Handler{reader: reader}
}

// List handles GET /api/v1/admin/zones
func (h *Handler) List(c *gin.Context) {
	items, err := h.reader.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items, "total": len(items)})
}
