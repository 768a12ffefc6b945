package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"wayfarer/internal/domain"
	wferrors "wayfarer/internal/errors"
)

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, APIResponse{Success: true, Data: data})
}

func bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(badRequest(fmt.Errorf("decode request: %w", err)))
		return false
	}
	return true
}

func (s *Server) analyze(c *gin.Context, req ContextRequest) (domain.ContextualEnvironment, domain.ContextualInsights, bool) {
	if err := req.validate(); err != nil {
		_ = c.Error(err)
		return domain.ContextualEnvironment{}, domain.ContextualInsights{}, false
	}
	ctx := c.Request.Context()
	env := s.engine.AnalyzeContext(ctx, req.sample(s.now()), req.movement(), req.Weather)
	return env, s.engine.GenerateInsights(ctx, env), true
}

func (s *Server) handleHealth(c *gin.Context) {
	now := s.now()
	ok(c, http.StatusOK, HealthResponse{
		Status:    "ok",
		Stories:   s.stories.Len(),
		Timestamp: now,
		Uptime:    now.Sub(s.started).Truncate(time.Second).String(),
	})
}

func (s *Server) handleContext(c *gin.Context) {
	var req ContextRequest
	if !bind(c, &req) {
		return
	}
	env, insights, valid := s.analyze(c, req)
	if !valid {
		return
	}
	ok(c, http.StatusOK, ContextResponse{Hash: env.Hash(), Environment: env, Insights: insights})
}

func (s *Server) handleAdapt(c *gin.Context) {
	var req AdaptRequest
	if !bind(c, &req) {
		return
	}
	if strings.TrimSpace(req.ContentID) == "" {
		_ = c.Error(badRequest(fmt.Errorf("content_id is required")))
		return
	}
	env, insights, valid := s.analyze(c, req.Context)
	if !valid {
		return
	}
	adapted, found := s.engine.Adapt(c.Request.Context(), req.ContentID, env, insights, req.Preferences)
	if !found {
		_ = c.Error(fmt.Errorf("%w: %s", wferrors.ErrContentNotFound, req.ContentID))
		return
	}
	ok(c, http.StatusOK, adapted)
}

func (s *Server) handleRecommend(c *gin.Context) {
	var req RecommendRequest
	if !bind(c, &req) {
		return
	}
	env, insights, valid := s.analyze(c, req.Context)
	if !valid {
		return
	}
	limit := s.cfg.MaxResults
	if req.MaxResults != nil {
		limit = *req.MaxResults
	}
	ok(c, http.StatusOK, s.engine.Recommend(c.Request.Context(), env, insights, limit))
}

func (s *Server) handleMetrics(c *gin.Context) {
	ok(c, http.StatusOK, s.engine.Metrics())
}

func (s *Server) handleReset(c *gin.Context) {
	s.engine.Reset()
	s.logger.Info("engine state reset")
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListStories(c *gin.Context) {
	all := s.stories.All()
	out := make([]StorySummary, 0, len(all))
	for _, story := range all {
		out = append(out, summarize(story))
	}
	ok(c, http.StatusOK, out)
}

func (s *Server) handleGetStory(c *gin.Context) {
	story, found := s.stories.Get(c.Param("id"))
	if !found {
		_ = c.Error(fmt.Errorf("%w: %s", wferrors.ErrContentNotFound, c.Param("id")))
		return
	}
	ok(c, http.StatusOK, story)
}

// handleCreateStory refuses to overwrite an id: cached adaptations are
// keyed by content id and would go stale.
func (s *Server) handleCreateStory(c *gin.Context) {
	var req StoryRequest
	if !bind(c, &req) {
		return
	}
	if req.ID != "" {
		if _, exists := s.stories.Get(req.ID); exists {
			_ = c.Error(&statusError{status: http.StatusConflict, err: fmt.Errorf("story %s already exists", req.ID)})
			return
		}
	}
	story := domain.NewStoryContent(req.ID, req.Title, strings.TrimSpace(req.Text), req.Metadata, req.Geofence)
	id, err := s.stories.Add(story)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Location", "/api/stories/"+id)
	ok(c, http.StatusCreated, summarize(story))
}

func (s *Server) handleDeleteStory(c *gin.Context) {
	if !s.stories.Remove(c.Param("id")) {
		_ = c.Error(fmt.Errorf("%w: %s", wferrors.ErrContentNotFound, c.Param("id")))
		return
	}
	c.Status(http.StatusNoContent)
}

func summarize(story *domain.StoryContent) StorySummary {
	return StorySummary{
		ID:          story.ID,
		Title:       story.Title,
		Type:        story.Metadata.Type,
		Themes:      story.Metadata.Themes,
		Words:       len(strings.Fields(story.Text)),
		HasGeofence: story.Geofence != nil,
		Adaptations: story.AdaptationCount(),
	}
}
