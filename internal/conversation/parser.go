// Package conversation turns typed or spoken input into brew commands and
// delivers notifications to the terminal.
package conversation

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/ottobrew/internal/domain"
	"github.com/hammamikhairi/ottobrew/internal/logger"
)

// KeywordParser matches user input to brew commands using keywords.
type KeywordParser struct {
	log    *logger.Logger
	typed  []patternRule
	spoken []patternRule
}

type patternRule struct {
	regex   *regexp.Regexp
	command domain.CommandType
}

// NewKeywordParser creates a keyword-based command parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}

	// Typed input must match a whole keyword.
	p.typed = []patternRule{
		{regexp.MustCompile(`(?i)^(start|go|begin|resume|continue|s|スタート|開始|再開)$`), domain.CommandStart},
		{regexp.MustCompile(`(?i)^(pause|wait|hold|p|一時停止|ストップ)$`), domain.CommandPause},
		{regexp.MustCompile(`(?i)^(reset|restart|again|r|リセット)$`), domain.CommandReset},
		{regexp.MustCompile(`(?i)^(status|where|progress|info|\?|状態)$`), domain.CommandStatus},
		{regexp.MustCompile(`(?i)^(quit|exit|q|bye|終了)$`), domain.CommandQuit},
	}

	// Spoken input is a sentence; look for the keyword anywhere. Quitting
	// by voice is not offered, and "stop" means pause.
	p.spoken = []patternRule{
		{regexp.MustCompile(`(?i)\b(pause|wait|hold on|stop)\b|一時停止|ストップ|待って`), domain.CommandPause},
		{regexp.MustCompile(`(?i)\b(reset|start over|restart)\b|リセット`), domain.CommandReset},
		{regexp.MustCompile(`(?i)\b(start|go|begin|resume|continue)\b|スタート|開始|再開`), domain.CommandStart},
		{regexp.MustCompile(`(?i)\b(status|where are we|how long|time left)\b|状態|あと何`), domain.CommandStatus},
	}
	return p
}

// Parse converts typed input into a command.
func (p *KeywordParser) Parse(ctx context.Context, input string) domain.Command {
	return p.match(p.typed, input)
}

// ParseSpoken converts a transcription into a command.
func (p *KeywordParser) ParseSpoken(ctx context.Context, input string) domain.Command {
	return p.match(p.spoken, input)
}

func (p *KeywordParser) match(rules []patternRule, input string) domain.Command {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return domain.Command{Type: domain.CommandUnknown}
	}

	p.log.Debug("parsing input: %q", trimmed)

	for _, rule := range rules {
		if rule.regex.MatchString(trimmed) {
			p.log.Debug("matched command: %s", rule.command)
			return domain.Command{Type: rule.command, Raw: trimmed}
		}
	}

	p.log.Debug("no match, returning unknown command")
	return domain.Command{Type: domain.CommandUnknown, Raw: trimmed}
}
