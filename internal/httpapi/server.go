package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	cycleModel "github.com/thisyearnofear/detective-sub003/internal/database/cycle/model"
	"github.com/thisyearnofear/detective-sub003/internal/detective"
	"github.com/thisyearnofear/detective-sub003/internal/logging"
)

// New builds the JSON API around the manager. Identity verification happens
// upstream; handlers trust the fid they are given.
func New(ctx context.Context, manager *detective.Manager) *gin.Engine {
	logger := logging.FromContext(ctx).Named("http")

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	r.GET("/cycle", func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.CycleInfo())
	})

	r.POST("/register", func(c *gin.Context) {
		var req cycleModel.Player
		if err := c.BindJSON(&req); err != nil || req.Fid == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profile"})
			return
		}

		player, err := manager.Register(c.Request.Context(), req)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, player)
	})

	r.POST("/tick", func(c *gin.Context) {
		c.JSON(http.StatusOK, manager.Tick(c.Request.Context(), time.Now()))
	})

	r.POST("/match", func(c *gin.Context) {
		var req struct {
			Fid uint64 `json:"fid"`
		}
		if err := c.BindJSON(&req); err != nil || req.Fid == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_fid"})
			return
		}

		view, err := manager.RequestMatch(c.Request.Context(), req.Fid)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, view)
	})

	r.POST("/match/:id/message", func(c *gin.Context) {
		var req struct {
			Fid  uint64 `json:"fid"`
			Text string `json:"text"`
		}
		if err := c.BindJSON(&req); err != nil || req.Fid == 0 || req.Text == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_message"})
			return
		}

		msg, err := manager.SendMessage(c.Request.Context(), c.Param("id"), req.Fid, req.Text)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	})

	r.GET("/match/:id/messages", func(c *gin.Context) {
		var since time.Time
		if raw := c.Query("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339Nano, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_since"})
				return
			}
			since = parsed
		}

		msgs := manager.PollMessages(c.Param("id"), since)
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	})

	r.POST("/match/:id/vote", func(c *gin.Context) {
		var req struct {
			Fid   uint64 `json:"fid"`
			Human *bool  `json:"human"`
		}
		if err := c.BindJSON(&req); err != nil || req.Fid == 0 || req.Human == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_vote"})
			return
		}

		result, err := manager.SubmitVote(c.Request.Context(), c.Param("id"), req.Fid, *req.Human)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	})

	r.POST("/sweep", func(c *gin.Context) {
		var req struct {
			MatchIDs []string `json:"matchIds"`
		}
		// body is optional; an empty batch sweeps everything due
		_ = c.ShouldBindJSON(&req)

		outcomes := manager.Sweep(c.Request.Context(), time.Now(), req.MatchIDs)
		c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
	})

	r.GET("/leaderboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"entries": manager.Leaderboard()})
	})

	r.GET("/stats/:fid", func(c *gin.Context) {
		fid, err := strconv.ParseUint(c.Param("fid"), 10, 64)
		if err != nil || fid == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_fid"})
			return
		}

		stats, err := manager.PlayerStats(fid)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	return r
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, detective.ErrNotLive):
		c.JSON(http.StatusConflict, gin.H{"error": "not_live"})
	case errors.Is(err, detective.ErrNotRegistration):
		c.JSON(http.StatusConflict, gin.H{"error": "registration_closed"})
	case errors.Is(err, detective.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, gin.H{"error": "registry_full"})
	case errors.Is(err, detective.ErrAlreadyMatched):
		c.JSON(http.StatusConflict, gin.H{"error": "already_matched"})
	case errors.Is(err, detective.ErrUnknownPlayer):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown_player"})
	case errors.Is(err, detective.ErrMatchNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "match_not_found"})
	case errors.Is(err, detective.ErrMatchEnded):
		c.JSON(http.StatusConflict, gin.H{"error": "match_ended"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
