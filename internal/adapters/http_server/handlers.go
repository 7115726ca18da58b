package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"hotel_rates/internal/app"
	"hotel_rates/internal/domain"
)

type Handlers struct {
	Q *app.QueryService
	C *app.CommandService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/rooms/{id}/rate", h.getRate)
	s.mux.Get("/v1/rooms/{id}/calendar", h.getCalendar)
	s.mux.Put("/v1/rooms/{id}/rate", h.putIndividualRate)

	s.mux.Post("/v1/rates/batch/preview", h.batch(true))
	s.mux.Post("/v1/rates/batch/apply", h.batch(false))
	s.mux.Post("/v1/rates/groups/{key}/clear", h.clearGroup)

	s.mux.Post("/v1/rules", h.createRule)
	s.mux.Put("/v1/rules/{id}", h.updateRule)
	s.mux.Post("/v1/rules/{id}/active", h.setRuleActive)
	s.mux.Delete("/v1/rules/{id}", h.deleteRule)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRule):
		writeProblem(w, http.StatusBadRequest, "Invalid Rule", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func queryDate(r *http.Request, name string) (time.Time, bool) {
	d, err := time.Parse(time.DateOnly, r.URL.Query().Get(name))
	return d, err == nil
}

func queryNights(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("nights"))
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

// ---- rate queries ----

func (h *Handlers) getRate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	date, ok := queryDate(r, "date")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid date", "date must be YYYY-MM-DD")
		return
	}
	rr, err := h.Q.GetRate(r.Context(), id, date, queryNights(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

func (h *Handlers) getCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	start, ok1 := queryDate(r, "start")
	end, ok2 := queryDate(r, "end")
	if !ok1 || !ok2 {
		writeProblem(w, http.StatusBadRequest, "Invalid range", "start and end must be YYYY-MM-DD")
		return
	}
	out, err := h.Q.GetCalendar(r.Context(), id, start, end, queryNights(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room_id": id, "rates": out})
}

// ---- individual rate ----

type individualRateRequest struct {
	Date  string  `json:"date"`
	Price string  `json:"price"`
	Note  *string `json:"note,omitempty"`
}

func (h *Handlers) putIndividualRate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	var req individualRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid date", "date must be YYYY-MM-DD")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid price", err.Error())
		return
	}
	if err := h.C.SetIndividualRate(r.Context(), id, date, price, req.Note); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- batch ----

type batchTargetRequest struct {
	HotelID   int64   `json:"hotel_id"`
	Category  *string `json:"room_category,omitempty"`
	RoomIDs   []int64 `json:"room_ids,omitempty"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

type batchOperationRequest struct {
	Kind             string  `json:"kind"`
	Mode             string  `json:"mode,omitempty"`
	Value            string  `json:"value,omitempty"`
	OverrideExisting bool    `json:"override_existing"`
	ApplyToExisting  bool    `json:"apply_to_existing"`
	GroupKey         string  `json:"group_key,omitempty"`
	Note             *string `json:"note,omitempty"`
	Nights           int     `json:"nights,omitempty"`
}

type batchRequest struct {
	Target    batchTargetRequest    `json:"target"`
	Operation batchOperationRequest `json:"operation"`
}

func (req *batchRequest) toDomain() (domain.BatchTarget, domain.BatchOperation, error) {
	start, err := time.Parse(time.DateOnly, req.Target.StartDate)
	if err != nil {
		return domain.BatchTarget{}, domain.BatchOperation{}, errors.New("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(time.DateOnly, req.Target.EndDate)
	if err != nil {
		return domain.BatchTarget{}, domain.BatchOperation{}, errors.New("end_date must be YYYY-MM-DD")
	}
	value := decimal.Zero
	if req.Operation.Value != "" {
		if value, err = decimal.NewFromString(req.Operation.Value); err != nil {
			return domain.BatchTarget{}, domain.BatchOperation{}, errors.New("value must be a decimal number")
		}
	}
	target := domain.BatchTarget{
		HotelID:   req.Target.HotelID,
		Category:  req.Target.Category,
		RoomIDs:   req.Target.RoomIDs,
		StartDate: start,
		EndDate:   end,
	}
	op := domain.BatchOperation{
		Kind:             domain.BatchOpKind(req.Operation.Kind),
		Mode:             domain.PriceMode(req.Operation.Mode),
		Value:            value,
		OverrideExisting: req.Operation.OverrideExisting,
		ApplyToExisting:  req.Operation.ApplyToExisting,
		GroupKey:         req.Operation.GroupKey,
		Note:             req.Operation.Note,
		Nights:           req.Operation.Nights,
	}
	return target, op, nil
}

func (h *Handlers) batch(preview bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
			return
		}
		target, op, err := req.toDomain()
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid batch request", err.Error())
			return
		}

		var res domain.BatchResult
		if preview {
			res, err = h.C.PreviewBatch(r.Context(), target, op)
		} else {
			res, err = h.C.ApplyBatch(r.Context(), target, op)
		}
		if err != nil && res.Cells == nil {
			writeError(w, err)
			return
		}
		// Partial failure is a structured breakdown, not an HTTP failure.
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *Handlers) clearGroup(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req struct {
		RoomIDs []int64 `json:"room_ids,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
			return
		}
	}
	n, err := h.C.ClearGroup(r.Context(), key, req.RoomIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"group_key": key, "cleared": n})
}

// ---- rules ----

type ruleRequest struct {
	Name            string  `json:"name"`
	RuleType        string  `json:"rule_type"`
	HotelID         *int64  `json:"hotel_id,omitempty"`
	Category        *string `json:"room_category,omitempty"`
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
	AdjustmentType  string  `json:"adjustment_type"`
	AdjustmentValue string  `json:"adjustment_value"`
	Direction       string  `json:"direction"`
	Priority        int     `json:"priority"`
	MinNights       *int    `json:"min_nights,omitempty"`
	MaxNights       *int    `json:"max_nights,omitempty"`
	MinLeadDays     *int    `json:"min_lead_days,omitempty"`
	MaxLeadDays     *int    `json:"max_lead_days,omitempty"`
	Weekdays        []int   `json:"weekdays,omitempty"`
	Active          *bool   `json:"is_active,omitempty"`
}

func (req *ruleRequest) toDomain() (domain.PricingRule, error) {
	start, err := time.Parse(time.DateOnly, req.StartDate)
	if err != nil {
		return domain.PricingRule{}, errors.New("start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(time.DateOnly, req.EndDate)
	if err != nil {
		return domain.PricingRule{}, errors.New("end_date must be YYYY-MM-DD")
	}
	value, err := decimal.NewFromString(req.AdjustmentValue)
	if err != nil {
		return domain.PricingRule{}, errors.New("adjustment_value must be a decimal number")
	}
	pr := domain.PricingRule{
		Name:      req.Name,
		Type:      domain.RuleType(req.RuleType),
		HotelID:   req.HotelID,
		Category:  req.Category,
		StartDate: start,
		EndDate:   end,
		Adjustment: domain.Adjustment{
			Type:      domain.AdjustmentType(req.AdjustmentType),
			Value:     value,
			Direction: domain.Direction(req.Direction),
		},
		Priority:    req.Priority,
		MinNights:   req.MinNights,
		MaxNights:   req.MaxNights,
		MinLeadDays: req.MinLeadDays,
		MaxLeadDays: req.MaxLeadDays,
		Active:      true,
	}
	for _, wd := range req.Weekdays {
		if wd >= 0 && wd <= 6 {
			pr.Weekdays = append(pr.Weekdays, time.Weekday(wd))
		}
	}
	if req.Active != nil {
		pr.Active = *req.Active
	}
	return pr, nil
}

func (h *Handlers) createRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	pr, err := req.toDomain()
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid rule", err.Error())
		return
	}
	id, err := h.C.CreateRule(r.Context(), pr)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handlers) updateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	var req ruleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	pr, err := req.toDomain()
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid rule", err.Error())
		return
	}
	pr.ID = id
	if err := h.C.UpdateRule(r.Context(), pr); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) setRuleActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	var req struct {
		Active bool `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	if err := h.C.SetRuleActive(r.Context(), id, req.Active); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) deleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a number")
		return
	}
	if err := h.C.DeleteRule(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
