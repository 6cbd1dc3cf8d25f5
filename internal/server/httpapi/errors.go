package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	if common.ReasonOf(err) == common.ErrScoringFailed.Reason {
		return http.StatusBadGateway
	}
	switch common.KindOf(err) {
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindConflict:
		return http.StatusConflict
	case common.KindInvalidInput:
		return http.StatusBadRequest
	case common.KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": reason, "detail": text}. Server-side
// failures do not leak driver messages to the client.
func (s *HTTPServer) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: common.ReasonOf(err), Detail: err.Error()}
	if status == http.StatusInternalServerError {
		resp.Detail = "internal error"
		s.logger.Error(c.Request.Context(), "request failed",
			"request_id", c.GetString(requestIDKey), "error", err)
	}

	var pe *common.ScorePersistError
	if errors.As(err, &pe) {
		resp.Detail = "score computed but not stored"
		resp.MetricID = &pe.MetricID
		resp.Score = &pe.Score
	}
	c.JSON(status, resp)
}
