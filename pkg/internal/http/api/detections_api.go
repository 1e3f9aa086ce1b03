package api

import (
	"github.com/civiclab/pollguard/pkg/internal/http/exts"
	"github.com/civiclab/pollguard/pkg/internal/models"
	"github.com/civiclab/pollguard/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

func checkBot(c *fiber.Ctx) error {
	pollId := c.Params("pollId")

	var data struct {
		Signals models.ClientSignals `json:"signals"`
	}

	if err := exts.BindAndValidate(c, &data); err != nil {
		return err
	}

	isBot := services.RunBotDetection(services.SanitizePollID(pollId), data.Signals)

	return c.JSON(fiber.Map{
		"is_bot": isBot,
	})
}
