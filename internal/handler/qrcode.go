package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/lottery-service/internal/qrcode"
	"github.com/psds-microservice/lottery-service/internal/service"
)

type QRCodeHandler struct {
	spots   service.SpotServicer
	baseURL string
}

func NewQRCodeHandler(spots service.SpotServicer, baseURL string) *QRCodeHandler {
	return &QRCodeHandler{spots: spots, baseURL: baseURL}
}

// Get renders the claim link of any spot, active or not, as a PNG data URL.
// An unparsable ?size= falls back to the default.
func (h *QRCodeHandler) Get(c *gin.Context) {
	spot, err := h.spots.GetSpot(c.Request.Context(), c.Param("spot_id"))
	if err != nil {
		fail(c, err, "system error")
		return
	}
	size, _ := strconv.Atoi(c.Query("size"))
	size = qrcode.ClampSize(size)

	link := qrcode.BuildClaimURL(publicBaseURL(c, h.baseURL), spot.ID)
	png, err := qrcode.Render(link, size)
	if err != nil {
		fail(c, err, "failed to generate QR code")
		return
	}
	ok(c, gin.H{"data": gin.H{
		"spot_id":   spot.ID,
		"spot_name": spot.Name,
		"qr_url":    link,
		"qr_image":  qrcode.DataURL(png),
		"size":      size,
	}})
}
