package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

var (
	badgeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#d6b98c"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#e4e4e7"))
	urgentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f87171"))
)

// PrintFunc prints one line of output. Matches the brew screen's Printf.
type PrintFunc func(format string, a ...any)

// CLINotifier prints supervisor and watcher messages above the brew
// screen. A leading "[Source]" tag is drawn as a badge.
type CLINotifier struct {
	log     *logger.Logger
	printFn PrintFunc
}

// NewCLINotifier creates a terminal notifier. If printFn is nil, lines go
// to stdout.
func NewCLINotifier(log *logger.Logger, printFn PrintFunc) *CLINotifier {
	if printFn == nil {
		printFn = func(format string, a ...any) {
			fmt.Printf(format+"\n", a...)
		}
	}
	return &CLINotifier{log: log, printFn: printFn}
}

// Notify prints a routine notice.
func (n *CLINotifier) Notify(ctx context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	n.printFn("%s", formatNotice(message, noticeStyle, ""))
	return nil
}

// NotifyUrgent prints a notice that needs attention now.
func (n *CLINotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.log.Info("notify-urgent: %s", message)
	n.printFn("%s", formatNotice(message, urgentStyle, "! "))
	return nil
}

func formatNotice(message string, body lipgloss.Style, mark string) string {
	source, text := splitSource(message)
	if source == "" {
		return body.Render(mark + text)
	}
	return badgeStyle.Render(strings.ToLower(source)) + " " + body.Render(mark+text)
}

// splitSource separates "[Timer] text" into "Timer" and "text".
func splitSource(message string) (string, string) {
	message = strings.TrimSpace(message)
	if !strings.HasPrefix(message, "[") {
		return "", message
	}
	end := strings.IndexByte(message, ']')
	if end < 2 {
		return "", message
	}
	return message[1:end], strings.TrimSpace(message[end+1:])
}
