package services

import (
	"regexp"

	"github.com/civiclab/pollguard/pkg/internal/database"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// automationUAPattern matches user agents of common automation stacks. Signals
// from these environments count as automated regardless of the webdriver flag.
var automationUAPattern = regexp.MustCompile(`(?i)headless|phantomjs|selenium|webdriver|puppeteer|playwright|cypress|electron`)

type botCheck struct {
	Name       string
	Suspicious func(signals models.ClientSignals) bool
}

var botChecks = []botCheck{
	{
		Name: "mouse_movement",
		Suspicious: func(signals models.ClientSignals) bool {
			return signals.Interaction.MouseEvents < 5
		},
	},
	{
		Name: "keyboard_pattern",
		Suspicious: func(signals models.ClientSignals) bool {
			return signals.Interaction.KeyEvents < 3
		},
	},
	{
		Name: "automation_flags",
		Suspicious: func(signals models.ClientSignals) bool {
			return signals.Interaction.Webdriver || automationUAPattern.MatchString(signals.UserAgent)
		},
	},
	{
		Name: "interaction_timing",
		Suspicious: func(signals models.ClientSignals) bool {
			// Under half a second to first interaction is implausible for a
			// human; an absent measurement reads as zero and counts too.
			return signals.Interaction.TimeToInteractMs < 500
		},
	},
	{
		Name: "device_capability",
		Suspicious: func(signals models.ClientSignals) bool {
			return !signals.Interaction.TouchSupport &&
				signals.Interaction.MaxTouchPoints == 0 &&
				signals.ScreenWidth < 1280
		},
	},
}

// EvaluateInteraction runs the five independent heuristics and flags the
// attempt as a bot when three or more report suspicious.
func EvaluateInteraction(signals models.ClientSignals) (bool, int, []string) {
	var reasons []string
	for _, check := range botChecks {
		if check.Suspicious(signals) {
			reasons = append(reasons, check.Name)
		}
	}

	confidence := len(reasons) * 100 / len(botChecks)
	return len(reasons) >= 3, confidence, reasons
}

// RunBotDetection evaluates the signals and appends an audit row regardless of
// the verdict. The heuristics run entirely in memory, so a failed audit write
// is logged but never changes an already computed verdict.
func RunBotDetection(pollID string, signals models.ClientSignals) bool {
	isBot, confidence, reasons := EvaluateInteraction(signals)

	entry := models.BotDetectionLog{
		PollID:            pollID,
		IsBot:             isBot,
		ConfidenceScore:   confidence,
		DetectionReasons:  datatypes.NewJSONSlice(reasons),
		DeviceFingerprint: GenerateFingerprint(signals),
		UserAgent:         signals.UserAgent,
	}
	if err := database.C.Create(&entry).Error; err != nil {
		log.Error().Err(err).Str("poll", pollID).Msg("Unable to write bot detection log...")
	}

	return isBot
}
