package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jengzang/personal-context-builder/internal/analysis"
	"github.com/jengzang/personal-context-builder/internal/repository"
	"github.com/jengzang/personal-context-builder/internal/service"
	"github.com/jengzang/personal-context-builder/pkg/response"
)

// respondError maps service errors to HTTP status codes
func respondError(c *gin.Context, err error) {
	var stageErr *analysis.StageError
	switch {
	case errors.Is(err, service.ErrValidation):
		response.BadRequest(c, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.As(err, &stageErr):
		response.UnprocessableEntity(c, stageErr.Error(), gin.H{
			"user_id": stageErr.UserID,
			"stage":   stageErr.Stage,
		})
	default:
		_ = c.Error(err)
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		response.InternalError(c, "internal error")
	}
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// parseWeekday accepts a weekday name or an integer where 0 is Monday and
// 6 is Sunday
func parseWeekday(s string) (time.Weekday, bool) {
	if wd, ok := weekdayNames[strings.ToLower(s)]; ok {
		return wd, true
	}
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		return time.Weekday((int(s[0]-'0') + 1) % 7), true
	}
	return 0, false
}

// splitList splits a comma separated query value, dropping blanks
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
