package api

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"

	"github.com/vigie-covid/vigie/schema"
)

// running guards each report against overlapping force runs.
var running sync.Map

func (s *Server) reportRun(c *gin.Context) {
	sched, ok := s.schedulers[c.Param("report")]
	if !ok {
		abortWithEncoding(c, http.StatusNotFound, errorUnknownReport)
		return
	}

	if _, busy := running.LoadOrStore(sched.Name(), true); busy {
		abortWithEncoding(c, http.StatusConflict, errorRunInProgress)
		return
	}

	// The full pass renders and publishes every zone; it outlives the
	// request.
	go func() {
		defer running.Delete(sched.Name())
		if err := sched.RunNow(context.Background()); nil != err {
			sentry.CaptureException(err)
			log.WithField("report", sched.Name()).Error(err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"result": "OK"})
}

func (s *Server) reportZone(c *gin.Context) {
	sched, ok := s.schedulers[c.Param("report")]
	if !ok {
		abortWithEncoding(c, http.StatusNotFound, errorUnknownReport)
		return
	}

	artifact, message, err := sched.RunZone(c, c.Param("zone"))
	if errors.Is(err, schema.ErrUnknownZone) {
		abortWithEncoding(c, http.StatusNotFound, errorUnknownZone, err)
		return
	}
	if shouldInterupt(err, c) {
		return
	}

	messageID, err := s.publisher.SendEphemeral(c, sched.EphemeralChannel(),
		artifact, filepath.Base(artifact.Path), message)
	if shouldInterupt(err, c) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":     "OK",
		"message_id": messageID,
	})
}
