package api

import (
	"github.com/civiclab/pollguard/pkg/internal/http/exts"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/civiclab/pollguard/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func validateVote(c *fiber.Ctx) error {
	pollId := c.Params("pollId")

	var data struct {
		UserID       *uint                `json:"user_id"`
		CaptchaToken string               `json:"captcha_token"`
		SessionID    string               `json:"session_id"`
		Signals      models.ClientSignals `json:"signals"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	decision := services.ValidateVote(services.VoteAttempt{
		PollID:       pollId,
		UserID:       data.UserID,
		CaptchaToken: data.CaptchaToken,
		SessionID:    data.SessionID,
		Signals:      data.Signals,
	})

	if len(decision.SessionID) > 0 {
		c.Set("X-Session-ID", decision.SessionID)
	}

	return c.JSON(decision)
}

func castVote(c *fiber.Ctx) error {
	pollId := c.Params("pollId")

	var data struct {
		OptionIndex int                  `json:"option_index" validate:"gte=0"`
		UserID      *uint                `json:"user_id"`
		Region      string               `json:"region"`
		SessionID   string               `json:"session_id"`
		Signals     models.ClientSignals `json:"signals"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	services.LogVote(services.VoteCast{
		PollID:      pollId,
		OptionIndex: data.OptionIndex,
		UserID:      data.UserID,
		Region:      data.Region,
		SessionID:   data.SessionID,
		Signals:     data.Signals,
	})

	return c.SendStatus(fiber.StatusAccepted)
}
