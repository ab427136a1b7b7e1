package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type transitionRequest struct {
	Status string `json:"status"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *handlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	next, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	order, err := h.Engine.Transition(r.Context(), chi.URLParam(r, "id"), next)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// cancelOrder принимает пустое тело: причина необязательна.
func (h *handlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			badRequest(w, err.Error())
			return
		}
	}

	order, err := h.Engine.Cancel(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

func (h *handlers) softDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Deletion.SoftDelete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": id, "mode": "soft"})
}

func (h *handlers) hardDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Deletion.HardDelete(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"order_id": id, "mode": "hard"})
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.Queries.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	timeline := make([]timelineDTO, 0, len(view.Timeline))
	for _, ev := range view.Timeline {
		timeline = append(timeline, timelineDTO{Type: ev.Type, Reason: ev.Reason, Occurred: ev.Occurred.UTC()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"order":    toOrderDTO(view.Order),
		"timeline": timeline,
	})
}

// listOrders: ?status=&user_id=&limit=&include_deleted=true.
func (h *handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	q := r.URL.Query()
	filter := domain.OrderFilter{
		Status: domain.OrderStatus(q.Get("status")),
		UserID: q.Get("user_id"),
		Limit:  limit,
	}
	if raw := q.Get("include_deleted"); raw != "" {
		filter.IncludeDeleted, err = strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "include_deleted must be a boolean")
			return
		}
	}

	orders, err := h.Queries.ListOrders(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

func (h *handlers) listCompletedOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	orders, err := h.Queries.ListCompletedOrders(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

func (h *handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Queries.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"total_products":  d.TotalProducts,
		"active_products": d.ActiveProducts,
		"total_orders":    d.TotalOrders,
		"pending_orders":  d.PendingOrders,
	})
}
