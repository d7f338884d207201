package selections

import (
	"time"

	"github.com/google/uuid"
)

type SelectionItem struct {
	ServiceID  uuid.UUID `json:"serviceId" validate:"required"`
	Quantity   int       `json:"quantity" validate:"required,min=1,max=100"`
	UseSticker bool      `json:"useSticker"`
}

type ReplaceSelectionsRequest struct {
	Items []SelectionItem `json:"items" validate:"max=50,dive"`

	// AllowAdditionalSubscriptions queues services the property already
	// subscribes to, which bills them a second time.
	AllowAdditionalSubscriptions bool `json:"allowAdditionalSubscriptions"`
}

type SelectionResponse struct {
	ID         uuid.UUID `json:"id"`
	ServiceID  uuid.UUID `json:"serviceId"`
	Quantity   int       `json:"quantity"`
	UseSticker bool      `json:"useSticker"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type SelectionListResponse struct {
	Items []SelectionResponse `json:"items"`
	Total int                 `json:"total"`
	// ActivationQueued is true when the property is already approved and
	// billing was started in the background.
	ActivationQueued bool `json:"activationQueued"`

	// AlreadySubscribed lists requested services that were not queued
	// because the property already subscribes to them.
	AlreadySubscribed []uuid.UUID `json:"alreadySubscribed,omitempty"`
}

func toListResponse(items []Selection) SelectionListResponse {
	resp := SelectionListResponse{Items: make([]SelectionResponse, 0, len(items)), Total: len(items)}
	for _, s := range items {
		resp.Items = append(resp.Items, SelectionResponse{
			ID:         s.ID,
			ServiceID:  s.ServiceID,
			Quantity:   s.Quantity,
			UseSticker: s.UseSticker,
			CreatedAt:  s.CreatedAt,
			UpdatedAt:  s.UpdatedAt,
		})
	}
	return resp
}
