package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"maintenance-service/internal/http/middleware"
	"maintenance-service/internal/model"
)

// NewRouter mounts the API. rateLimit runs after authentication so buckets
// are kept per user.
func NewRouter(handler *Handler, authMiddleware, rateLimit gin.HandlerFunc, env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"*"},
		ExposeHeaders:   []string{"Content-Type", "Retry-After"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/healthz", handler.healthz)

	public := router.Group("/api/v1")
	public.Use(rateLimit)
	{
		public.POST("/contact", handler.submitMessage)
	}

	protected := router.Group("/api/v1")
	protected.Use(authMiddleware, rateLimit)
	{
		protected.GET("/tickets", handler.listTickets)
		protected.POST("/tickets", handler.createTicket)
		protected.GET("/tickets/:id", handler.getTicket)
		protected.PUT("/tickets/:id", handler.updateTicket)
		protected.PATCH("/tickets/:id/status", handler.updateTicketStatus)
		protected.DELETE("/tickets/:id", handler.deleteTicket)
		protected.GET("/tickets/:id/comments", handler.listTicketComments)
		protected.POST("/tickets/:id/comments", handler.addTicketComment)
		protected.DELETE("/comments/:id", handler.deleteComment)

		protected.GET("/interventions", handler.listInterventions)
		protected.GET("/interventions/calendar", handler.interventionCalendar)
		protected.GET("/interventions/:id", handler.getIntervention)
		protected.PUT("/interventions/:id", handler.updateIntervention)
		protected.PATCH("/interventions/:id/status", handler.updateInterventionStatus)
		protected.POST("/interventions/:id/report", handler.submitInterventionReport)
		protected.GET("/interventions/:id/planning", handler.interventionPlanning)

		protected.GET("/plannings", handler.listPlannings)
		protected.GET("/plannings/mine", handler.myPlanning)
		protected.GET("/plannings/:id", handler.getPlanning)

		protected.GET("/users/:id", handler.getUser)

		protected.GET("/profile", handler.getProfile)
		protected.PUT("/profile", handler.updateProfile)
		protected.POST("/profile/password", handler.changePassword)

		protected.GET("/notifications", handler.listNotifications)
		protected.GET("/notifications/unread-count", handler.unreadNotificationCount)
		protected.PATCH("/notifications/mark-all-read", handler.markAllNotificationsRead)
		protected.PATCH("/notifications/:id/read", handler.markNotificationRead)
		protected.DELETE("/notifications/:id", handler.deleteNotification)
	}

	admin := protected.Group("")
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	{
		admin.POST("/interventions", handler.assignIntervention)
		admin.DELETE("/interventions/:id", handler.deleteIntervention)

		admin.GET("/reports", handler.listReports)
		admin.POST("/reports", handler.generateReport)

		admin.GET("/messages", handler.listMessages)
		admin.PATCH("/messages/:id/read", handler.markMessageRead)

		admin.GET("/users", handler.listUsers)
		admin.POST("/users", handler.createUser)
		admin.PUT("/users/:id", handler.updateUser)
		admin.DELETE("/users/:id", handler.deleteUser)
		admin.GET("/technicians", handler.listTechnicians)

		admin.GET("/admin/stats", handler.adminStats)
	}

	return router
}
