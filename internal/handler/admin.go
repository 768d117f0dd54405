package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/lottery-service/internal/errs"
	"github.com/psds-microservice/lottery-service/internal/service"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

type AdminHandler struct {
	auth   service.AuthServicer
	cookie CookieConfig
}

func NewAdminHandler(auth service.AuthServicer, cookie CookieConfig) *AdminHandler {
	return &AdminHandler{auth: auth, cookie: cookie}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrMissingCredential, "")
		return
	}
	sess, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(c, err, "system error")
		return
	}
	maxAge := int(sess.ExpiresAt.Sub(sess.IssuedAt).Seconds())
	h.setCookie(c, sess.Token, maxAge)
	ok(c, gin.H{"message": "Logged in", "data": gin.H{"username": sess.Admin.Username}})
}

// Logout always succeeds from the client's point of view.
func (h *AdminHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookie.Name)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		log.Printf("handler: logout: %v", err)
	}
	h.setCookie(c, "", -1)
	ok(c, gin.H{"message": "Logged out"})
}

// Session lets the admin UI check whether its cookie is still valid.
func (h *AdminHandler) Session(c *gin.Context) {
	admin, err := CurrentAdmin(c)
	if err != nil {
		fail(c, err, "")
		return
	}
	ok(c, gin.H{"data": gin.H{"username": admin.Username}})
}

func (h *AdminHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, value, maxAge, "/", "", h.cookie.Secure, true)
}
