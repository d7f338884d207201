package selections

import (
	"net/http"

	"collection_portal_backend/platform/httpkit"
	"collection_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List handles GET /api/v1/properties/:id/selections
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	propertyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.svc.List(c.Request.Context(), identity.UserID(), propertyID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Replace handles PUT /api/v1/properties/:id/selections
//
// The body is the complete set of services still to be billed. Services the
// property already subscribes to are skipped and returned in
// alreadySubscribed; set allowAdditionalSubscriptions to bill them again.
func (h *Handler) Replace(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	propertyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req ReplaceSelectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.Replace(c.Request.Context(), identity.UserID(), propertyID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// Remove handles DELETE /api/v1/properties/:id/selections/:serviceId
func (h *Handler) Remove(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	propertyID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	serviceID, ok := parseUUIDParam(c, "serviceId")
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.svc.Remove(c.Request.Context(), identity.UserID(), propertyID, serviceID)) {
		return
	}
	c.Status(http.StatusNoContent)
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.UUID{}, false
	}
	return id, true
}
