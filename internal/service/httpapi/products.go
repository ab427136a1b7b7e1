package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *handlers) listStorefront(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	products, err := h.Catalog.ListStorefront(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]storefrontProductDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toStorefrontDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getStorefrontProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetStorefrontProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStorefrontDTO(p))
}

func (h *handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	products, err := h.Catalog.ListProducts(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]productDTO, 0, len(products))
	for _, p := range products {
		out = append(out, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

func (h *handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	p, err := h.Catalog.CreateProduct(r.Context(), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(p))
}

func (h *handlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	p, err := h.Catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req.input())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

func (h *handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) rejectProduct(w http.ResponseWriter, r *http.Request) {
	h.setRejected(w, r, true)
}

func (h *handlers) restoreProduct(w http.ResponseWriter, r *http.Request) {
	h.setRejected(w, r, false)
}

func (h *handlers) setRejected(w http.ResponseWriter, r *http.Request, rejected bool) {
	id := chi.URLParam(r, "id")
	var err error
	if rejected {
		err = h.Catalog.RejectProduct(r.Context(), id)
	} else {
		err = h.Catalog.RestoreProduct(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.Catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}
