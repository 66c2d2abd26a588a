package notify

import (
	"context"
	"fmt"
	log "log/slog"
	"os/exec"
	"time"
)

// Alert shows a desktop notification through notify-send. When no
// notification daemon is reachable the message is logged instead.
func Alert(title, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Warn(message, "title", title)

	cmd := exec.CommandContext(ctx, "notify-send", "--urgency=critical", "--app-name=friday", title, message)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("notify-send: %w (%s)", err, out)
	}
	return nil
}
