package services

import (
	"strings"

	"github.com/rs/zerolog"
	appauth "github.com/yigit/tuitiontrack/internal/app/auth"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/pkg/helpbot"
)

const helpEmptyReply = "Please ask a question so I can help you."

// HelpService answers help widget questions for signed-in users
type HelpService struct {
	bot    *helpbot.Bot
	logger zerolog.Logger
}

// NewHelpService creates a new HelpService. A nil bot answers every question
// with the fallback reply.
func NewHelpService(bot *helpbot.Bot, logger zerolog.Logger) *HelpService {
	if bot == nil {
		bot = helpbot.New(nil, 0)
	}
	return &HelpService{bot: bot, logger: logger}
}

// Ask answers query for identity. Entries tagged for the other role are never
// offered.
func (s *HelpService) Ask(identity appauth.Identity, query string) (*dto.HelpBotResponse, error) {
	if err := identity.Require(appauth.AskHelp); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return &dto.HelpBotResponse{Success: true, Reply: helpEmptyReply, Scores: []float64{}}, nil
	}

	ans := s.bot.Ask(query, identity.Kind.Role())
	s.logger.Debug().
		Str("role", identity.Kind.Role()).
		Bool("matched", ans.Matched).
		Floats64("scores", ans.Scores).
		Msg("Help question answered")

	return &dto.HelpBotResponse{
		Success: true,
		Reply:   ans.Reply,
		Scores:  ans.Scores,
		Matched: ans.Matched,
	}, nil
}
