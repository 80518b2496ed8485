package httpapp

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/http/dto"
)

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.PingContext(r.Context()); err != nil {
			h.Logger.Error("Health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) SearchMedia(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	types, errs := dto.ParseMediaTypes(r.URL.Query().Get("sources"))
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	result, err := h.Search.Search(r.Context(), UserID(r), query, types)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	types, errs := dto.ParseMediaTypes(r.URL.Query().Get("sources"))
	if len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	result, err := h.Search.Trending(r.Context(), UserID(r), types)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func providerParam(r *http.Request) (domain.Provider, []dto.ValidationError) {
	p, err := domain.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		return "", []dto.ValidationError{{Field: "provider", Message: err.Error()}}
	}
	return p, nil
}

func (h *Handler) SyncProvider(w http.ResponseWriter, r *http.Request) {
	provider, errs := providerParam(r)
	if errs != nil {
		writeValidation(w, errs)
		return
	}

	result, err := h.Sync.SyncProvider(r.Context(), UserID(r), provider)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.GetStats(r.Context(), UserID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func intQuery(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	var mt domain.MediaType
	if v := r.URL.Query().Get("media_type"); v != "" {
		parsed, err := domain.ParseMediaType(v)
		if err != nil {
			writeValidation(w, []dto.ValidationError{{Field: "media_type", Message: err.Error()}})
			return
		}
		mt = parsed
	}

	items, err := h.List.List(r.Context(), UserID(r), mt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []domain.ListItem{}
	}
	writeJSON(w, http.StatusOK, dto.NewListResponse(items,
		intQuery(r, "page", 1), intQuery(r, "page_size", dto.DefaultPageSize)))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req dto.AddItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	item, created, err := h.List.Add(r.Context(), UserID(r), req.ToAddRequest())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, item)
}

func idParam(r *http.Request) (int64, []dto.ValidationError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, []dto.ValidationError{{Field: "id", Message: "must be a positive integer"}}
	}
	return id, nil
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, errs := idParam(r)
	if errs != nil {
		writeValidation(w, errs)
		return
	}
	var req dto.UpdateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	entry, err := h.List.Edit(r.Context(), UserID(r), id, req.ToUpdate())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, errs := idParam(r)
	if errs != nil {
		writeValidation(w, errs)
		return
	}
	if err := h.List.Delete(r.Context(), UserID(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetOptions(w http.ResponseWriter, r *http.Request) {
	pref, err := h.Profile.Options(r.Context(), UserID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

func (h *Handler) UpdateOptions(w http.ResponseWriter, r *http.Request) {
	var req dto.OptionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	userID := UserID(r)
	current, err := h.Profile.Options(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pref := req.Apply(current)
	if err := h.Profile.SetOptions(r.Context(), userID, pref); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pref)
}

// syncProviders lists the providers a user can connect, in priority order.
func (h *Handler) syncProviders() []domain.Provider {
	out := make([]domain.Provider, 0, len(domain.Providers))
	for _, p := range domain.Providers {
		if _, err := h.Catalogs.Syncer(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.Profile.Connections(r.Context(), UserID(r), h.syncProviders())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	provider, errs := providerParam(r)
	if errs != nil {
		writeValidation(w, errs)
		return
	}
	if _, err := h.Catalogs.Syncer(provider); err != nil {
		h.fail(w, r, err)
		return
	}
	var req dto.ConnectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeValidation(w, errs)
		return
	}

	if err := h.Profile.Connect(r.Context(), UserID(r), provider, req.ToConnectRequest(h.now())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	provider, errs := providerParam(r)
	if errs != nil {
		writeValidation(w, errs)
		return
	}
	if err := h.Profile.Disconnect(r.Context(), UserID(r), provider); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
