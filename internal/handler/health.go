package handler

import (
	"context"
	"net/http"
	"time"

	"restopos/internal/infra"
	"restopos/internal/repository"
	"restopos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Health returns a JSON health check response.
// rdb may be nil when Redis is not configured; mailCB reports SMTP delivery.
func Health(uow repository.UnitOfWork, rdb *redis.Client, mailCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		if uow.Ping(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		var deadLetters int64
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueReportDelivery); err == nil {
				deadLetters = n
			}
		}

		mailStatus := "disabled"
		if mailCB != nil {
			mailStatus = mailCB.State().String()
		}

		status := http.StatusOK
		if dbStatus != "connected" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":           status == http.StatusOK,
			"db":           dbStatus,
			"redis":        redisStatus,
			"mail":         mailStatus,
			// Report deliveries waiting in the dead letter queue.
			"dead_letters": deadLetters,
		})
	}
}
