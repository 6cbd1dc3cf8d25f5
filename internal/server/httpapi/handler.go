package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/server/services"
	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) home(c *gin.Context) {
	c.JSON(http.StatusOK, messageResponse{Message: "hello world"})
}

func (s *HTTPServer) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrInvalidInput.With("malformed body", err))
		return
	}

	user, err := s.users.Register(c.Request.Context(), req.Name, req.Email)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, createUserResponse{
		Message: fmt.Sprintf("User %s added successfully", user.Name),
		User:    user.ID,
	})
}

func (s *HTTPServer) ingest(c *gin.Context) {
	var req metricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrInvalidInput.With("malformed body", err))
		return
	}

	in, err := req.toInput()
	if err != nil {
		s.writeError(c, err)
		return
	}

	email := c.Param("email")
	id, err := s.metrics.Ingest(c.Request.Context(), email, in)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ingestResponse{
		Message:  fmt.Sprintf("Metrics with id %d created for user %s", id, email),
		MetricID: id,
	})
}

func (r metricRequest) toInput() (services.MetricInput, error) {
	calories := r.Calories
	if calories == nil {
		calories = r.CaloriesBurntPerDay
	}
	sleep := r.SleepHrs
	if sleep == nil {
		sleep = r.SleepHours
	}

	switch {
	case r.Steps == nil:
		return services.MetricInput{}, common.ErrInvalidInput.Withf("steps is required")
	case calories == nil:
		return services.MetricInput{}, common.ErrInvalidInput.Withf("calories is required")
	case sleep == nil:
		return services.MetricInput{}, common.ErrInvalidInput.Withf("sleep_hrs is required")
	}

	return services.MetricInput{
		Steps:      *r.Steps,
		Calories:   *calories,
		SleepHours: *sleep,
		ObservedAt: r.Date,
	}, nil
}

func (s *HTTPServer) list(c *gin.Context) {
	list, err := s.metrics.List(c.Request.Context(), c.Param("email"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *HTTPServer) latest(c *gin.Context) {
	m, err := s.metrics.FetchLatest(c.Request.Context(), c.Param("email"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *HTTPServer) deleteBySteps(c *gin.Context) {
	steps, err := strconv.ParseInt(c.Query("steps"), 10, 64)
	if err != nil {
		s.writeError(c, common.ErrInvalidInput.Withf("steps query parameter must be an integer"))
		return
	}

	if err := s.metrics.DeleteBySteps(c.Request.Context(), c.Param("email"), steps); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("Metric with %d steps deleted", steps)})
}

func (s *HTTPServer) deleteAll(c *gin.Context) {
	n, err := s.metrics.DeleteAll(c.Request.Context(), c.Param("email"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, deleteAllResponse{Message: fmt.Sprintf("%d metrics deleted", n), Deleted: n})
}

func (s *HTTPServer) deleteMetric(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.writeError(c, common.ErrInvalidInput.Withf("metric id must be an integer"))
		return
	}

	if err := s.metrics.DeleteMetric(c.Request.Context(), c.Param("email"), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("Metric %d deleted", id)})
}

func (s *HTTPServer) predict(c *gin.Context) {
	ctx := c.Request.Context()
	email := c.Param("email")

	raw, ok := c.GetQuery("metric_id")
	if !ok {
		m, err := s.metrics.PredictAndStore(ctx, email)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, m)
		return
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.writeError(c, common.ErrInvalidInput.Withf("metric_id must be an integer"))
		return
	}
	m, err := s.metrics.PredictAndStoreMetric(ctx, email, id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// storeScore writes a score returned in a score_persist_failed response.
func (s *HTTPServer) storeScore(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		s.writeError(c, common.ErrInvalidInput.Withf("metric id must be an integer"))
		return
	}

	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.ErrInvalidInput.With("malformed body", err))
		return
	}
	if req.WellnessScore == nil {
		s.writeError(c, common.ErrInvalidInput.Withf("wellness_score is required"))
		return
	}

	m, err := s.metrics.StoreUserScore(c.Request.Context(), c.Param("email"), id, *req.WellnessScore)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
