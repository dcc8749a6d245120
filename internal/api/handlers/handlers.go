package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-balance/internal/api/middleware"
	"github.com/dvloznov/ledger-balance/internal/balance"
	"github.com/dvloznov/ledger-balance/internal/domain"
	"github.com/dvloznov/ledger-balance/internal/jobs"
	"github.com/dvloznov/ledger-balance/internal/pipeline"
)

// EntryResponse is the JSON form of a stored ledger entry.
type EntryResponse struct {
	ID          string    `json:"id"`
	Item        string    `json:"item"`
	Amount      string    `json:"amount"`
	Date        string    `json:"date"`
	Category    string    `json:"category"`
	Flow        string    `json:"flow"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newEntryResponses(entries []*domain.LedgerEntry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			ID:          e.ID,
			Item:        e.Item,
			Amount:      domain.FormatAmount(e.Amount),
			Date:        e.Date.String(),
			Category:    e.Category,
			Flow:        string(e.Flow),
			Description: e.Description,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.UpdatedAt,
		})
	}
	return out
}

// MessagesHandler accepts chat messages, either queued or processed inline.
type MessagesHandler struct {
	publisher jobs.Publisher
	processor jobs.MessageProcessor
	log       zerolog.Logger
}

// NewMessagesHandler creates a new messages handler.
func NewMessagesHandler(publisher jobs.Publisher, processor jobs.MessageProcessor, log zerolog.Logger) *MessagesHandler {
	return &MessagesHandler{
		publisher: publisher,
		processor: processor,
		log:       log,
	}
}

type telegramMessage struct {
	Text string `json:"text"`
	Chat struct {
		ID int64 `json:"id"`
	} `json:"chat"`
}

type telegramUpdate struct {
	UpdateID      int64            `json:"update_id"`
	Message       *telegramMessage `json:"message"`
	EditedMessage *telegramMessage `json:"edited_message"`
}

// TelegramWebhook handles POST /api/v1/webhooks/telegram
func (h *MessagesHandler) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	job := &jobs.ProcessMessageJob{
		Source: "telegram",
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}
	if err := h.publisher.PublishProcessMessage(r.Context(), job); err != nil {
		h.log.Error().Err(err).Int64("update_id", update.UpdateID).Msg("Failed to enqueue message job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue message")
		return
	}

	h.log.Info().
		Str("job_id", job.JobID).
		Int64("chat_id", job.ChatID).
		Msg("Message job enqueued")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"job_id": job.JobID,
	})
}

// ProcessMessage handles POST /api/v1/messages
func (h *MessagesHandler) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	res := h.processor.Process(r.Context(), req.Text)

	body := map[string]interface{}{
		"message_id": res.MessageID,
		"outcome":    res.Outcome,
		"success":    res.Success(),
		"extracted":  res.Extracted,
		"drafts":     res.Drafts,
		"persisted":  res.Persisted,
		"entries":    newEntryResponses(res.Entries),
	}
	if res.Err != nil {
		body["error"] = res.Err.Error()
	}

	middleware.WriteJSON(w, outcomeStatus(res.Outcome), body)
}

func outcomeStatus(o pipeline.Outcome) int {
	switch o {
	case pipeline.OutcomeSuccess, pipeline.OutcomePartial:
		return http.StatusCreated
	case pipeline.OutcomeInvalidInput, pipeline.OutcomeExtractionEmpty:
		return http.StatusUnprocessableEntity
	case pipeline.OutcomeExtractionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// TransactionsHandler handles transaction-related endpoints.
type TransactionsHandler struct {
	balance *balance.Service
	log     zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *balance.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		balance: svc,
		log:     log,
	}
}

// GetPeriod handles GET /api/v1/transactions/period
func (h *TransactionsHandler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	startStr := query.Get("start_date")
	endStr := query.Get("end_date")
	if startStr == "" || endStr == "" {
		middleware.WriteError(w, http.StatusBadRequest, "start_date and end_date are required")
		return
	}

	start, err := domain.ParseDate(startStr)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format, expected YYYY-MM-DD")
		return
	}
	end, err := domain.ParseDate(endStr)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format, expected YYYY-MM-DD")
		return
	}

	stmt, err := h.balance.Period(r.Context(), start, end)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("start_date", startStr).Str("end_date", endStr).Msg("Failed to query period")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"start_date":   stmt.Start.String(),
		"end_date":     stmt.End.String(),
		"total":        stmt.Count(),
		"balance":      domain.FormatAmount(stmt.Total),
		"transactions": newEntryResponses(stmt.Entries),
	})
}

// Pinger reports whether the ledger store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and database status.
type HealthHandler struct {
	db      Pinger
	name    string
	version string
	now     func() time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db Pinger, name, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		name:    name,
		version: version,
		now:     time.Now,
	}
}

// Health handles GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, database, code := "healthy", "connected", http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		status, database, code = "unhealthy", "disconnected", http.StatusServiceUnavailable
	}

	middleware.WriteJSON(w, code, map[string]string{
		"status":    status,
		"service":   h.name,
		"version":   h.version,
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"database":  database,
	})
}

// Root handles GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"service": h.name,
		"version": h.version,
		"health":  "/api/v1/health",
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/v1/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/v1/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Source: query.Get("source"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
