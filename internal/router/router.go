package router

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpy/paths"
	"github.com/psds-microservice/lottery-service/api"
	"github.com/psds-microservice/lottery-service/internal/handler"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Deps struct {
	Health       *handler.HealthHandler
	Tickets      *handler.TicketHandler
	Spots        *handler.SpotHandler
	Admin        *handler.AdminHandler
	QRCode       *handler.QRCodeHandler
	RequireAdmin gin.HandlerFunc
	CORSOrigins  []string
	// Logger receives one line per request; nil disables request logging.
	Logger *log.Logger
}

func New(d Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	if d.Logger != nil {
		r.Use(handler.RequestLogger(d.Logger))
	}
	r.Use(handler.CORS(d.CORSOrigins))

	r.GET(paths.PathHealth, d.Health.Health)
	r.GET(paths.PathReady, d.Health.Ready)
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL(paths.PathSwagger+"/openapi.json"))(c)
	})

	pub := r.Group("/api")
	{
		pub.GET("/spot/:spot_id", d.Spots.Resolve)
		pub.POST("/claim-ticket", d.Tickets.Claim)
		pub.POST("/admin/login", d.Admin.Login)
		pub.POST("/admin/logout", d.Admin.Logout)
	}

	admin := r.Group("/api", d.RequireAdmin)
	{
		admin.GET("/admin/session", d.Admin.Session)

		admin.GET("/admin/tickets/:email", d.Tickets.Query)
		admin.PUT("/admin/redeem/:ticket_id", d.Tickets.Redeem)
		admin.PUT("/admin/reset-email/:email", d.Tickets.ResetByEmail)
		admin.DELETE("/admin/tickets/:ticket_id", d.Tickets.Delete)

		admin.POST("/admin/spots", d.Spots.Create)
		admin.GET("/admin/spots", d.Spots.List)
		admin.PATCH("/admin/spots/:spot_id", d.Spots.Update)
		admin.DELETE("/admin/spots/:spot_id", d.Spots.Delete)

		admin.GET("/qrcode/:spot_id", d.QRCode.Get)
	}

	return r
}
