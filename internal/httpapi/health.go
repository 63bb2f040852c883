package httpapi

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"nexuscrm/internal/clients"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// ServiceHealth is one dependency's probe result.
type ServiceHealth struct {
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Report aggregates dependency health. Search carries the three-store
// breakdown because a degraded search tier is actionable on its own.
type Report struct {
	Healthy  bool                     `json:"healthy"`
	Services map[string]ServiceHealth `json:"services"`
	Search   clients.SearchHealth     `json:"search"`
	Time     time.Time                `json:"time"`
}

// Checker probes the database, Redis, and the five platform services.
type Checker struct {
	db            *sql.DB
	rdb           *redis.Client
	orchestration *clients.OrchestrationClient
	reasoning     *clients.ReasoningClient
	search        *clients.SearchClient
	geospatial    *clients.GeospatialClient
	identity      *clients.IdentityClient
	log           *slog.Logger
}

func NewChecker(db *sql.DB, rdb *redis.Client,
	orchestration *clients.OrchestrationClient,
	reasoning *clients.ReasoningClient,
	search *clients.SearchClient,
	geospatial *clients.GeospatialClient,
	identity *clients.IdentityClient,
	log *slog.Logger) *Checker {
	return &Checker{
		db:            db,
		rdb:           rdb,
		orchestration: orchestration,
		reasoning:     reasoning,
		search:        search,
		geospatial:    geospatial,
		identity:      identity,
		log:           log,
	}
}

// Check probes all dependencies in parallel with a shared deadline.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	report := Report{
		Services: make(map[string]ServiceHealth),
		Time:     time.Now().UTC(),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	set := func(name string, healthy bool, detail string) {
		mu.Lock()
		defer mu.Unlock()
		report.Services[name] = ServiceHealth{Healthy: healthy, Detail: detail}
	}
	probe := func(name string, fn func(context.Context) bool) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set(name, fn(ctx), "")
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.db.PingContext(ctx); err != nil {
			set("database", false, err.Error())
			return
		}
		set("database", true, "")
	}()

	if c.rdb != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.rdb.Ping(ctx).Err(); err != nil {
				set("redis", false, err.Error())
				return
			}
			set("redis", true, "")
		}()
	}

	probe("orchestration", c.orchestration.HealthCheck)
	probe("reasoning", c.reasoning.HealthCheck)
	probe("geospatial", c.geospatial.HealthCheck)

	// The identity client is absent in local JWT mode; absent dependencies
	// are not probed, same as redis above.
	if c.identity != nil {
		probe("identity", c.identity.HealthCheck)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		sh := c.search.HealthCheck(ctx)
		mu.Lock()
		report.Search = sh
		mu.Unlock()
		set("search", sh.OK(), "")
	}()

	wg.Wait()

	report.Healthy = true
	for _, s := range report.Services {
		if !s.Healthy {
			report.Healthy = false
			break
		}
	}
	return report
}

// Handler exposes the health endpoints.
type Handler struct {
	checker *Checker
	db      *sql.DB
}

func NewHandler(checker *Checker, db *sql.DB) *Handler {
	return &Handler{checker: checker, db: db}
}

// Health reports aggregate dependency health: 200 when everything is up,
// 503 with the per-service breakdown otherwise.
func (h *Handler) Health(c *gin.Context) {
	report := h.checker.Check(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// Ready gates traffic on the database only; a degraded upstream service does
// not make this process unfit to serve.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

// Live answers as long as the process is running.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true})
}
