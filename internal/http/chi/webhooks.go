package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"
	"github.com/marcelsud/webhook-inspector/webhook"
	"github.com/marcelsud/webhook-inspector/webhook/capture"
)

/* HTTP layer DTOs
 * Separate from domain entities to avoid leaking internal structure
 */

type captureResponse struct {
	ID string `json:"id"`
}

type summaryResponse struct {
	ID        string    `json:"id"`
	Method    string    `json:"method"`
	Pathname  string    `json:"pathname"`
	CreatedAt time.Time `json:"createdAt"`
}

type listResponse struct {
	Webhooks   []summaryResponse `json:"webhooks"`
	NextCursor *string           `json:"nextCursor"`
}

type webhookResponse struct {
	ID            string            `json:"id"`
	Method        string            `json:"method"`
	Pathname      string            `json:"pathname"`
	IP            string            `json:"ip"`
	StatusCode    int               `json:"statusCode"`
	ContentType   *string           `json:"contentType"`
	ContentLength *int64            `json:"contentLength"`
	QueryParams   map[string]string `json:"queryParams"`
	Headers       map[string]string `json:"headers"`
	Body          *string           `json:"body"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// captureWebhook handles ANY /capture/*
func captureWebhook(service webhook.UseCase, maxBodyBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body exceeds %s", humanize.IBytes(uint64(tooLarge.Limit))))
				return
			}
			writeError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		in := capture.FromRequest(r, body)
		draft, err := capture.Normalize(in, http.StatusCreated)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		wh, err := service.Capture(r.Context(), draft)
		if err != nil {
			httplog.LogEntrySetField(r.Context(), "capture_error", err.Error())
			writeError(w, http.StatusInternalServerError, "failed to store webhook")
			return
		}

		httplog.LogEntrySetField(r.Context(), "webhook_id", wh.ID)
		if wh.ContentLength != nil {
			httplog.LogEntrySetField(r.Context(), "body_size", humanize.IBytes(uint64(*wh.ContentLength)))
			if in.DeclaredLength != nil && *in.DeclaredLength != *wh.ContentLength {
				httplog.LogEntrySetField(r.Context(), "declared_length", strconv.FormatInt(*in.DeclaredLength, 10))
			}
		}

		writeJSON(w, http.StatusCreated, captureResponse{ID: wh.ID})
	})
}

// listWebhooks handles GET /api/webhooks?limit=&cursor=
func listWebhooks(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		limit := webhook.DefaultLimit
		if raw := query.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, webhook.ErrInvalidLimit.Error())
				return
			}
			limit = n
		}

		page, err := service.List(r.Context(), limit, query.Get("cursor"))
		switch {
		case errors.Is(err, webhook.ErrInvalidLimit), errors.Is(err, webhook.ErrInvalidCursor):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "failed to list webhooks")
			return
		}

		response := listResponse{
			Webhooks: make([]summaryResponse, 0, len(page.Items)),
		}
		for _, s := range page.Items {
			response.Webhooks = append(response.Webhooks, summaryResponse{
				ID:        s.ID,
				Method:    s.Method,
				Pathname:  s.Pathname,
				CreatedAt: s.CreatedAt,
			})
		}
		if page.HasMore {
			next := page.NextCursor
			response.NextCursor = &next
		}

		writeJSON(w, http.StatusOK, response)
	})
}

// getWebhook handles GET /api/webhooks/{id}
func getWebhook(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wh, err := service.Get(r.Context(), chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, webhook.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "failed to get webhook")
			return
		}

		writeJSON(w, http.StatusOK, webhookResponse{
			ID:            wh.ID,
			Method:        wh.Method,
			Pathname:      wh.Pathname,
			IP:            wh.IP,
			StatusCode:    wh.StatusCode,
			ContentType:   wh.ContentType,
			ContentLength: wh.ContentLength,
			QueryParams:   wh.QueryParams,
			Headers:       wh.Headers,
			Body:          wh.Body,
			CreatedAt:     wh.CreatedAt,
		})
	})
}

// deleteWebhook handles DELETE /api/webhooks/{id}
func deleteWebhook(service webhook.UseCase) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := service.Delete(r.Context(), chi.URLParam(r, "id"))
		switch {
		case errors.Is(err, webhook.ErrNotFound):
			writeError(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusInternalServerError, "failed to delete webhook")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Message: message})
}
