package api

import (
	"github.com/gofiber/fiber/v2"
)

func MapAPIs(app *fiber.App, baseURL string) {
	api := app.Group(baseURL).Name("API")
	{
		polls := api.Group("/polls/:pollId").Name("Polls API")
		{
			polls.Post("/votes/validate", validateVote)
			polls.Post("/votes", castVote)
			polls.Post("/bot-check", checkBot)
		}

		admin := api.Group("/admin").Name("Admin API")
		{
			admin.Get("/fraud-settings/:pollId", getFraudSettings)
			admin.Put("/fraud-settings/:pollId", upsertFraudSettings)
		}
	}
}
