package campaign

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"fundsync/entity"
	"fundsync/lib/api/response"
	"fundsync/lib/sl"
)

type Core interface {
	Campaign(campaignId string) (*entity.Campaign, error)
	CampaignDonations(campaignId string) ([]*entity.Donation, error)
}

// Get serves the campaign aggregate (raised amount, donor count, status).
func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.campaign"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Missing campaign id"))
			return
		}
		logger = logger.With(slog.String("campaign_id", id))

		campaign, err := handler.Campaign(id)
		if err != nil {
			logger.Error("get campaign", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Storage error"))
			return
		}
		if campaign == nil {
			render.Status(r, 404)
			render.JSON(w, r, response.Error("Campaign not found"))
			return
		}
		logger.Debug("campaign served")

		render.JSON(w, r, response.Ok(campaign))
	}
}

// Donations lists the donations recorded for a campaign.
func Donations(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.campaign"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Missing campaign id"))
			return
		}
		logger = logger.With(slog.String("campaign_id", id))

		donations, err := handler.CampaignDonations(id)
		if err != nil {
			logger.Error("list donations", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Storage error"))
			return
		}
		logger.With(
			slog.Int("count", len(donations)),
		).Debug("donations served")

		render.JSON(w, r, response.Ok(donations))
	}
}
