package web

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/guardiansync/internal/domain/model"
)

var eventTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestRenderTranscript_Empty(t *testing.T) {
	assert.Equal(t, "", RenderTranscript(nil))
}

func TestRenderTranscript_LevelClasses(t *testing.T) {
	events := []model.Event{
		{Time: eventTime, Level: "INFO", Stage: model.StageLogin, Message: "login succeeded, bearer token stored"},
		{Time: eventTime, Level: "WARN", Stage: model.StageLogout, Message: "logout failed"},
		{Time: eventTime, Level: "ERROR", Stage: model.StageMark, Message: "marking partner imported failed", Attrs: "code=1001"},
	}

	out := RenderTranscript(events)
	lines := strings.Split(out, "\n")

	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], `<span class="log-info">`))
	assert.True(t, strings.HasPrefix(lines[1], `<span class="log-warn">`))
	assert.True(t, strings.HasPrefix(lines[2], `<span class="log-error">`))
	assert.Contains(t, lines[2], "[mark] marking partner imported failed code=1001")
}

func TestRenderTranscript_EscapesMarkupVerbatim(t *testing.T) {
	events := []model.Event{{
		Time:    eventTime,
		Level:   "ERROR",
		Stage:   model.StageLogin,
		Message: "login failed",
		Attrs:   "token=<nil>",
		Detail:  "error.details:\n<html><head><title>502 Bad Gateway</title></head><body>nginx<script>alert(1)</script></body></html>",
	}}

	out := RenderTranscript(events)

	assert.Contains(t, out, "token=&lt;nil&gt;")
	assert.Contains(t, out, "&lt;title&gt;502 Bad Gateway&lt;/title&gt;")
	assert.Contains(t, out, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<title>")
	assert.True(t, strings.HasPrefix(out, `<span class="log-error">`))
	assert.True(t, strings.HasSuffix(out, `</span>`))
}

func TestRenderTranscript_MultipleLinesKeepSpans(t *testing.T) {
	events := []model.Event{
		{Time: eventTime, Level: "INFO", Stage: model.StageRun, Message: "sync run started"},
		{Time: eventTime, Level: "WARN", Stage: model.StageLogout, Message: "logout failed", Attrs: `error="status <0>"`},
	}

	out := RenderTranscript(events)

	assert.Equal(t, 2, strings.Count(out, "<span class="))
	assert.Contains(t, out, `<span class="log-warn">`)
	assert.Contains(t, out, "status &lt;0&gt;")
}

func TestRenderTranscript_EscapesText(t *testing.T) {
	events := []model.Event{{Time: eventTime, Level: "INFO", Stage: model.StageRun, Message: "a < b & c"}}

	out := RenderTranscript(events)

	assert.Contains(t, out, "a &lt; b &amp; c")
}
