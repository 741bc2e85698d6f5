package router

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers health check endpoints
func (r *Router) setupHealthRoutes() {
	healthHandler := func(c *gin.Context) {
		checker := r.Container.Health

		status := "ok"
		code := 200
		if !checker.IsSystemHealthy() {
			status = "unhealthy"
			code = 503
		}

		// Get memory stats
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		c.JSON(code, gin.H{
			"status":         status,
			"env":            r.Config.Server.Env,
			"backend":        r.Config.Storage.Backend,
			"providers":      r.Container.Registry.IDs(),
			"timestamp":      time.Now().Format(time.RFC3339),
			"uptime_seconds": int64(time.Since(startTime).Seconds()),
			"components":     checker.GetStatus(),
			"memory": gin.H{
				"alloc_mb":  memStats.Alloc / 1024 / 1024,
				"sys_mb":    memStats.Sys / 1024 / 1024,
				"gc_cycles": memStats.NumGC,
			},
		})
	}

	// Register both health endpoint paths for compatibility
	r.Engine.GET("/health", healthHandler)
	r.Engine.GET("/api/v1/health", healthHandler)
}
