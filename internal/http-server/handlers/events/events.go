package events

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
	EventRecord(eventId string) (*entity.EventRecord, error)
}

// Get serves a single ledger entry for the operator audit surface.
func Get(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := log.With(
			sl.Module("http.handlers.events"),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, 400)
			render.JSON(w, r, response.Error("Missing event id"))
			return
		}
		logger = logger.With(sl.Event(id))

		rec, err := handler.EventRecord(id)
		if err != nil {
			logger.Error("get event record", sl.Err(err))
			render.Status(r, 500)
			render.JSON(w, r, response.Error("Storage error"))
			return
		}
		if rec == nil {
			render.Status(r, 404)
			render.JSON(w, r, response.Error("Event not found"))
			return
		}
		logger.Debug("event record served")

		render.JSON(w, r, response.Ok(rec))
	}
}
