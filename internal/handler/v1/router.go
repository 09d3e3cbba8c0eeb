package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/handler/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Visits       *VisitHandler
	Appointments *AppointmentHandler
	Patients     *PatientHandler
}

// Register mounts the v1 API on r. Every route requires a bearer token.
func Register(r gin.IRouter, h Handlers, tokens middleware.TokenValidator) {
	api := r.Group("/api/v1", middleware.Authenticate(tokens))

	visits := api.Group("/visits")
	visits.POST("", h.Visits.Create)
	visits.GET("/:id", h.Visits.Get)

	patients := api.Group("/patients")
	patients.GET("", h.Patients.List)
	patients.GET("/:id", h.Patients.Get)
	patients.GET("/:id/visits", h.Visits.ListForPatient)

	appts := api.Group("/appointments")
	appts.POST("", h.Appointments.Book)
	appts.GET("", h.Appointments.List)
	appts.GET("/:id", h.Appointments.Get)
	appts.PATCH("/:id", h.Appointments.Update)
	appts.DELETE("/:id", h.Appointments.Delete)
	appts.POST("/:id/reschedule", h.Appointments.Reschedule)
	appts.POST("/:id/complete", h.Appointments.Complete)
	appts.POST("/:id/cancel", h.Appointments.Cancel)
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
