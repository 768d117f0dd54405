package handler

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/lottery-service/internal/errs"
	"github.com/psds-microservice/lottery-service/internal/kafka"
	"github.com/psds-microservice/lottery-service/internal/service"
)

type TicketHandler struct {
	svc    service.TicketServicer
	events kafka.EventProducer
}

func NewTicketHandler(svc service.TicketServicer, events kafka.EventProducer) *TicketHandler {
	return &TicketHandler{svc: svc, events: events}
}

type claimRequest struct {
	SpotID string `json:"spot_id"`
	Email  string `json:"email"`
}

// Claim is the public entry point reached from a spot QR code.
func (h *TicketHandler) Claim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrMissingFields, "")
		return
	}
	res, err := h.svc.Claim(c.Request.Context(), req.SpotID, req.Email)
	if err != nil {
		fail(c, err, "system error, please try again later")
		return
	}
	h.events.Produce(c.Request.Context(), kafka.EventTicketClaimed, res.Ticket.UserID, map[string]any{
		"ticket_id":     res.Ticket.ID,
		"serial_number": res.Ticket.SerialNumber,
		"user_id":       res.Ticket.UserID,
		"spot_id":       res.Ticket.SpotID,
	})
	ok(c, gin.H{
		"message": fmt.Sprintf("Congratulations! You checked in at %s. Show your email %s at the shop to redeem your lottery chance.", res.SpotName, res.Ticket.UserID),
		"data": gin.H{
			"serial_number": res.Ticket.SerialNumber,
			"spot_name":     res.SpotName,
			"email":         res.Ticket.UserID,
		},
	})
}

// Query lists the tickets of an email. GET /api/admin/tickets/:email?show_all=true
func (h *TicketHandler) Query(c *gin.Context) {
	showAll := c.Query("show_all") == "true"
	res, err := h.svc.Query(c.Request.Context(), c.Param("email"), showAll)
	if err != nil {
		fail(c, err, "query failed")
		return
	}
	body := gin.H{"data": res.Tickets, "showAll": res.ShowAll}
	if res.Redeemed != nil {
		body["redeemedTickets"] = res.Redeemed
	}
	ok(c, body)
}

func (h *TicketHandler) Redeem(c *gin.Context) {
	id, err := ticketID(c)
	if err != nil {
		fail(c, err, "")
		return
	}
	ticket, err := h.svc.Redeem(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "redeem failed")
		return
	}
	h.events.Produce(c.Request.Context(), kafka.EventTicketRedeemed, ticket.UserID, map[string]any{
		"ticket_id":     ticket.ID,
		"serial_number": ticket.SerialNumber,
		"user_id":       ticket.UserID,
		"spot_id":       ticket.SpotID,
	})
	ok(c, gin.H{"message": "Ticket redeemed", "data": ticket})
}

func (h *TicketHandler) ResetByEmail(c *gin.Context) {
	email := c.Param("email")
	n, err := h.svc.ResetByEmail(c.Request.Context(), email)
	if err != nil {
		fail(c, err, "reset failed")
		return
	}
	if n > 0 {
		h.events.Produce(c.Request.Context(), kafka.EventTicketReset, email, map[string]any{
			"user_id":     email,
			"reset_count": n,
		})
	}
	ok(c, gin.H{
		"message":    fmt.Sprintf("Redemption state of %s has been reset; the email can redeem again", email),
		"resetCount": n,
	})
}

func (h *TicketHandler) Delete(c *gin.Context) {
	id, err := ticketID(c)
	if err != nil {
		fail(c, err, "")
		return
	}
	deleted, err := h.svc.DeleteTicket(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "delete failed")
		return
	}
	h.events.Produce(c.Request.Context(), kafka.EventTicketDeleted, deleted.UserID, map[string]any{
		"ticket_id":     deleted.ID,
		"serial_number": deleted.SerialNumber,
		"user_id":       deleted.UserID,
		"spot_id":       deleted.SpotID,
		"status":        deleted.Status,
	})
	ok(c, gin.H{"message": "Ticket deleted", "deletedTicket": deleted})
}

func ticketID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("ticket_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.ErrInvalidTicketID
	}
	return id, nil
}
