package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/lottery-service/internal/errs"
	"github.com/psds-microservice/lottery-service/internal/kafka"
	"github.com/psds-microservice/lottery-service/internal/qrcode"
	"github.com/psds-microservice/lottery-service/internal/service"
)

type SpotHandler struct {
	svc     service.SpotServicer
	events  kafka.EventProducer
	baseURL string
}

// NewSpotHandler builds claim links from baseURL, or from the request when it is empty.
func NewSpotHandler(svc service.SpotServicer, events kafka.EventProducer, baseURL string) *SpotHandler {
	return &SpotHandler{svc: svc, events: events, baseURL: baseURL}
}

// Resolve is the public lookup the claim page does before showing the form.
func (h *SpotHandler) Resolve(c *gin.Context) {
	spot, err := h.svc.ResolveActiveSpot(c.Request.Context(), c.Param("spot_id"))
	if err != nil {
		fail(c, err, "system error")
		return
	}
	ok(c, gin.H{"data": gin.H{"spot_id": spot.ID, "spot_name": spot.Name}})
}

type createSpotRequest struct {
	SpotName string `json:"spot_name"`
}

func (h *SpotHandler) Create(c *gin.Context) {
	var req createSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrSpotNameRequired, "")
		return
	}
	spot, err := h.svc.CreateSpot(c.Request.Context(), req.SpotName)
	if err != nil {
		fail(c, err, "failed to create spot")
		return
	}
	h.events.Produce(c.Request.Context(), kafka.EventSpotCreated, spot.ID, map[string]any{
		"spot_id":   spot.ID,
		"spot_name": spot.Name,
	})
	ok(c, gin.H{
		"message": "Spot created",
		"data": gin.H{
			"spot_id":   spot.ID,
			"spot_name": spot.Name,
			"qr_url":    qrcode.BuildClaimURL(publicBaseURL(c, h.baseURL), spot.ID),
		},
	})
}

func (h *SpotHandler) List(c *gin.Context) {
	spots, err := h.svc.ListSpots(c.Request.Context())
	if err != nil {
		fail(c, err, "failed to list spots")
		return
	}
	ok(c, gin.H{"data": spots})
}

type updateSpotRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h *SpotHandler) Update(c *gin.Context) {
	var req updateSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		fail(c, errs.ErrInvalidBody, "")
		return
	}
	spot, err := h.svc.SetSpotActive(c.Request.Context(), c.Param("spot_id"), *req.IsActive)
	if err != nil {
		fail(c, err, "failed to update spot")
		return
	}
	ok(c, gin.H{"data": spot})
}

func (h *SpotHandler) Delete(c *gin.Context) {
	res, err := h.svc.DeleteSpot(c.Request.Context(), c.Param("spot_id"))
	if err != nil {
		fail(c, err, "failed to delete spot")
		return
	}
	h.events.Produce(c.Request.Context(), kafka.EventSpotDeleted, res.Spot.ID, map[string]any{
		"spot_id":          res.Spot.ID,
		"spot_name":        res.Spot.Name,
		"affected_tickets": res.AffectedTickets,
	})
	ok(c, gin.H{
		"message": fmt.Sprintf("Spot %q deleted", res.Spot.Name),
		"data": gin.H{
			"deleted_spot":     gin.H{"id": res.Spot.ID, "name": res.Spot.Name},
			"affected_tickets": res.AffectedTickets,
		},
	})
}
