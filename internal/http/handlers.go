package http

import (
	"errors"
	"net/http"
	"time"

	"ledgerbot/internal/bot"
	"ledgerbot/internal/core"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/log"
	"ledgerbot/internal/middleware/trace"
)

type messageResponse struct {
	Reply string `json:"reply"`
}

type entryResponse struct {
	Ref         string    `json:"ref"`
	Date        string    `json:"date"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency,omitempty"`
	Display     string    `json:"display"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	RecordedAt  time.Time `json:"recorded_at"`
}

type categoryTotal struct {
	Category string `json:"category"`
	Total    string `json:"total"`
}

type totalsResponse struct {
	Filter     string          `json:"filter,omitempty"`
	Total      string          `json:"total"`
	ByCategory []categoryTotal `json:"by_category"`
}

// handleMessage runs a chat message through the dispatcher, exactly as if
// it had arrived over Discord. 204 means the message deserves no reply.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	req, err := ParseMessageRequest(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if req.MessageID == "" {
		req.MessageID = trace.GetRequestID(r.Context())
	}

	reply, ok := s.dispatcher.Handle(r.Context(), bot.Message{
		ID:        req.MessageID,
		AuthorID:  req.AuthorID,
		ChannelID: req.ChannelID,
		Text:      req.Text,
	})
	if !ok {
		NewJSONResponse().Status(http.StatusNoContent).Write(w)
		return
	}
	NewJSONResponse().Body(messageResponse{Reply: reply}).Write(w)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	n, err := ParseRecentCount(r.URL.Query(), s.defaultRecent, s.maxRecent)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	entries, err := s.svc.Recent(r.Context(), n)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	NewJSONResponse().Body(map[string][]entryResponse{"expenses": out}).Write(w)
}

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	category := sanitizeInput(r.URL.Query().Get("category"))
	t, err := s.svc.Totals(r.Context(), category)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	resp := totalsResponse{
		Filter:     t.Filter,
		Total:      t.Total.StringFixed(2),
		ByCategory: make([]categoryTotal, 0, len(t.ByCategory)),
	}
	for _, c := range t.ByCategory {
		resp.ByCategory = append(resp.ByCategory, categoryTotal{Category: c.Name, Total: c.Amount.StringFixed(2)})
	}
	NewJSONResponse().Body(resp).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.Categories(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	NewJSONResponse().Body(map[string][]string{"categories": cats}).Write(w)
}

// storeError maps ledger error classes onto status codes.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ledger.ErrUnavailable) {
		s.logger.WarnContext(r.Context(), "Ledger unavailable", log.FieldPath, r.URL.Path, log.FieldError, err)
		ServiceUnavailableError("ledger connection not established").Write(w)
		return
	}
	s.logger.ErrorContext(r.Context(), "Ledger query failed", log.FieldPath, r.URL.Path, log.FieldError, err)
	InternalServerError(ledger.Reason(err)).Write(w)
}

func toEntryResponse(e core.Entry) entryResponse {
	return entryResponse{
		Ref:         e.Ref,
		Date:        e.Date.String(),
		Amount:      e.Amount.Value(),
		Currency:    string(e.Amount.Currency),
		Display:     e.Amount.String(),
		Category:    e.Category,
		Description: e.Description,
		RecordedAt:  e.RecordedAt.UTC(),
	}
}
