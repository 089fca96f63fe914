package preflight

import (
	"fmt"
	"os"
	"strings"

	"reelforge/internal/config"
)

// CheckNotificationsFromConfig summarizes the ntfy push setup without
// contacting the server. ntfy accepts any topic name, so there is nothing
// to probe; a typo simply publishes to an unread topic.
func CheckNotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}

	var classes []string
	if cfg.Notifications.Jobs {
		classes = append(classes, "jobs")
	}
	if cfg.Notifications.Batch {
		classes = append(classes, "batch")
	}
	if cfg.Notifications.Errors {
		classes = append(classes, "errors")
	}
	if len(classes) == 0 {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("topic %q (all event classes muted)", topic)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("topic %q (%s)", topic, strings.Join(classes, ", "))}
}

// CheckCacheFromConfig summarizes the response cache settings and its
// on-disk footprint.
func CheckCacheFromConfig(cfg *config.Config) Result {
	const name = "Response cache"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Cache.Enabled {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	detail := fmt.Sprintf("TTL %d days", cfg.Cache.TTLDays)
	if info, err := os.Stat(cfg.CacheDatabasePath()); err == nil {
		detail += fmt.Sprintf(", %s on disk", formatBytes(uint64(info.Size())))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
