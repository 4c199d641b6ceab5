package api

import (
	"context"
	"net/http"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/vigie-covid/vigie/external/messenger"
	"github.com/vigie-covid/vigie/logmodule"
	"github.com/vigie-covid/vigie/publisher"
	"github.com/vigie-covid/vigie/scheduler"
)

var log *logrus.Entry

func init() {
	log = logrus.WithField("prefix", "gin")
}

// Server exposes the admin surface: force a report cycle, render one
// zone on demand, and a liveness probe.
type Server struct {
	// Server instance
	server *http.Server

	// Report schedulers by name
	schedulers map[string]*scheduler.Scheduler

	publisher *publisher.Publisher

	// Messaging surface, for the moderator role check
	messenger messenger.Messenger
}

// NewServer new instance of server
func NewServer(schedulers []*scheduler.Scheduler, pub *publisher.Publisher, msgr messenger.Messenger) *Server {
	byName := make(map[string]*scheduler.Scheduler, len(schedulers))
	for _, s := range schedulers {
		byName[s.Name()] = s
	}

	return &Server{
		schedulers: byName,
		publisher:  pub,
		messenger:  msgr,
	}
}

// Run to run the server
func (s *Server) Run(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.setupRouter(),
	}

	return s.server.ListenAndServe()
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         10 * time.Second,
	}))

	reportRoute := r.Group("/reports")
	reportRoute.Use(logmodule.Ginrus("Report"))
	reportRoute.Use(s.apikeyAuthentication(viper.GetString("server.apikey.admin")))
	reportRoute.Use(s.moderatorGateway(viper.GetString("server.moderator_role")))
	{
		reportRoute.POST("/:report/run", s.reportRun)
		reportRoute.POST("/:report/zones/:zone", s.reportZone)
	}

	r.GET("/healthz", s.healthz)

	return r
}

// Shutdown to shutdown the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) apikeyAuthentication(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" || c.GetHeader("API-KEY") != key {
			abortWithEncoding(c, http.StatusUnauthorized, errorInvalidAPIKey)
			return
		}
		c.Next()
	}
}

// moderatorGateway requires the requesting actor to hold the moderator
// role on the messaging surface. An empty role disables the check.
func (s *Server) moderatorGateway(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if role == "" {
			c.Next()
			return
		}

		ok, err := s.messenger.HasRole(c, c.GetHeader("X-Actor-ID"), role)
		if shouldInterupt(err, c) {
			return
		}
		if !ok {
			abortWithEncoding(c, http.StatusForbidden, errorMissingRole)
			return
		}
		c.Next()
	}
}

// shouldInterupt sends error message and determine if it should interupt the current flow
func shouldInterupt(err error, c *gin.Context) bool {
	if err == nil {
		return false
	}

	log.Error(err)
	abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer)
	return true
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "OK",
		"version": viper.GetString("server.version"),
	})
}

func responseWithEncoding(c *gin.Context, code int, obj ErrorResponse) {
	acceptEncoding := c.GetHeader("Accept-Encoding")
	switch acceptEncoding {
	default:
		c.JSON(code, obj)
	}
}

func abortWithEncoding(c *gin.Context, code int, obj ErrorResponse, errors ...error) {
	for _, err := range errors {
		c.Error(err)
	}
	responseWithEncoding(c, code, obj)
	c.Abort()
}
