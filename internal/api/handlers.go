package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trade-decision-engine/internal/news"
	"trade-decision-engine/internal/timeframe"
)

type loginRequest struct {
	Operator string `json:"operator" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	if !s.rateLimiter.Allow("login:" + c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		return
	}

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "operator and password required"})
		return
	}

	token, err := s.authService.Login(req.Operator, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleLatestVerdicts(c *gin.Context) {
	latest := s.sched.Latest()

	// Right after a restart no cycle has run yet; serve the persisted
	// verdicts instead when postgres is available.
	if len(latest) == 0 && s.repo != nil {
		persisted, err := s.repo.LatestByTimeframe(c.Request.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("latest verdict query failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "verdicts unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"verdicts": persisted})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verdicts": latest})
}

func (s *Server) handleVerdictHistory(c *gin.Context) {
	tf := timeframe.Timeframe(c.Param("timeframe"))
	if !timeframe.Valid(tf) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown timeframe"})
		return
	}

	// Without postgres only the in-memory latest verdict is available.
	if s.repo == nil {
		if v, ok := s.sched.LatestFor(tf); ok {
			c.JSON(http.StatusOK, gin.H{"verdicts": []interface{}{v}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"verdicts": []interface{}{}})
		return
	}

	verdicts, err := s.repo.History(c.Request.Context(), string(tf), 100)
	if err != nil {
		s.logger.Error().Err(err).Msg("verdict history query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verdicts": verdicts})
}

func (s *Server) handleEvaluate(c *gin.Context) {
	if !s.rateLimiter.Allow("evaluate") {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "evaluation rate limited"})
		return
	}

	results := s.sched.RunCycle(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"verdicts": results})
}

func (s *Server) handleNewsBlocks(c *gin.Context) {
	now := time.Now()

	type blockView struct {
		EventType   string    `json:"event_type"`
		Headline    string    `json:"headline"`
		Source      string    `json:"source"`
		OriginTime  time.Time `json:"origin_time"`
		BlockUntil  time.Time `json:"block_until"`
		MinutesLeft float64   `json:"minutes_left"`
		Phase       string    `json:"phase"`
	}

	var views []blockView
	for _, b := range s.newsStore.Blocks() {
		views = append(views, blockView{
			EventType:   string(b.EventType),
			Headline:    b.Headline,
			Source:      b.Source,
			OriginTime:  b.OriginTime,
			BlockUntil:  b.BlockUntil,
			MinutesLeft: b.Remaining(now).Minutes(),
			Phase:       string(news.PhaseCooldown),
		})
	}
	if pending := s.newsStore.PendingConfirmation(); pending != nil {
		views = append(views, blockView{
			EventType:  string(pending.EventType),
			Headline:   pending.Headline,
			Source:     pending.Source,
			OriginTime: pending.OriginTime,
			BlockUntil: pending.BlockUntil,
			Phase:      string(news.PhaseVolatilityHold),
		})
	}

	c.JSON(http.StatusOK, gin.H{"blocks": views})
}

func (s *Server) handleNewsHistory(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusOK, gin.H{"blocks": []interface{}{}})
		return
	}

	since := time.Now().Add(-7 * 24 * time.Hour)
	blocks, err := s.repo.RecentNewsBlocks(c.Request.Context(), since)
	if err != nil {
		s.logger.Error().Err(err).Msg("news history query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}
