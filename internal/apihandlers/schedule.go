package apihandlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// RunScheduleAction is the nonce action guarding a manual run.
	RunScheduleAction = "run_schedule_now"
	// RunResultParam is appended to the redirect target after a manual run.
	RunResultParam = "gd_autotag_schedule_run"
)

// NonceHandler issues a nonce for the action in the URL.
func (h *APIHandler) NonceHandler(c *gin.Context) {
	action := strings.TrimSpace(c.Param("action"))
	if action == "" {
		BadRequest(c, "missing action")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"action": action, "nonce": h.App.Nonces.Issue(action)}})
}

func (h *APIHandler) ScheduleStatusHandler(c *gin.Context) {
	status, err := h.App.Scheduler.Status(c.Request.Context())
	if err != nil {
		serviceError(c, "ScheduleStatusHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": status})
}

// RunScheduleHandler runs one batch immediately and redirects back to the
// admin page with the outcome.
func (h *APIHandler) RunScheduleHandler(c *gin.Context) {
	if !h.App.Nonces.Verify(RunScheduleAction, c.GetHeader(NonceHeader)) {
		Forbidden(c, "invalid or expired nonce")
		return
	}

	outcome := "success"
	if _, err := h.App.Scheduler.RunNow(c.Request.Context()); err != nil {
		outcome = "error"
	}

	target := safeRedirect(c.Query("redirect"), h.App.Config.Server.AdminURL)
	c.Redirect(http.StatusSeeOther, withQueryParam(target, RunResultParam, outcome))
}

// safeRedirect returns target when it is a same-site relative path, and
// fallback otherwise.
func safeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}

func withQueryParam(target, key, value string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
