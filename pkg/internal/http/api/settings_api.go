package api

import (
	"github.com/civiclab/pollguard/pkg/internal/http/exts"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/civiclab/pollguard/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func getFraudSettings(c *fiber.Ctx) error {
	pollId := c.Params("pollId")

	settings, err := services.GetPollFraudSettings(services.SanitizePollID(pollId))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if settings == nil {
		return fiber.NewError(fiber.StatusNotFound, "no fraud settings for this poll")
	}

	return c.JSON(settings)
}

func upsertFraudSettings(c *fiber.Ctx) error {
	pollId := c.Params("pollId")

	var data struct {
		EnableCaptcha      bool `json:"enable_captcha"`
		EnableRateLimiting bool `json:"enable_rate_limiting"`
		MaxVotesPerIP      int  `json:"max_votes_per_ip" validate:"gte=0"`
		MaxVotesPerSession int  `json:"max_votes_per_session" validate:"gte=0"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	settings, err := services.UpsertPollFraudSettings(models.PollFraudSettings{
		PollID:             services.SanitizePollID(pollId),
		EnableCaptcha:      data.EnableCaptcha,
		EnableRateLimiting: data.EnableRateLimiting,
		MaxVotesPerIP:      data.MaxVotesPerIP,
		MaxVotesPerSession: data.MaxVotesPerSession,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(settings)
}
