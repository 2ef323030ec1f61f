// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the market planner
// category engine. Handlers receive their dependencies through the
// Categories struct and speak JSON only.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MaddisonM79/market-planner/internal/cache"
	"github.com/MaddisonM79/market-planner/internal/hierarchy"
	"github.com/MaddisonM79/market-planner/internal/models"
	"github.com/MaddisonM79/market-planner/internal/store"
)

// Categories groups the category engine HTTP handlers and their dependencies.
// treeCache may be nil when Valkey is not configured; reads then always hit
// the database.
type Categories struct {
	categories  *store.CategoryStore
	paths       *store.PathStore
	maintenance *store.Maintenance
	refresher   *store.Refresher
	treeCache   *cache.TreeCache
}

// NewCategories creates a new Categories handler group.
func NewCategories(categories *store.CategoryStore, paths *store.PathStore, maintenance *store.Maintenance, refresher *store.Refresher, treeCache *cache.TreeCache) *Categories {
	return &Categories{
		categories:  categories,
		paths:       paths,
		maintenance: maintenance,
		refresher:   refresher,
		treeCache:   treeCache,
	}
}

// errorResponse is the JSON body for every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeStoreError maps store and hierarchy sentinel errors to HTTP statuses.
// Unknown errors are logged and hidden behind a generic 500.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, hierarchy.ErrCycle), errors.Is(err, store.ErrPathConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrTenantMismatch):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNotImplemented):
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: err.Error()})
	case errors.Is(err, hierarchy.ErrInvalidName),
		errors.Is(err, store.ErrTypeMismatch),
		errors.Is(err, store.ErrInvalidStrategy),
		errors.Is(err, store.ErrReassignTargetRequired),
		errors.Is(err, store.ErrCustomNotAllowed):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		slog.Error("category request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// afterMutation drops cached tree pages and schedules a path cache rebuild.
// Runs after every committed structural change.
func (h *Categories) afterMutation(r *http.Request) {
	if h.treeCache != nil {
		h.treeCache.InvalidateAll(r.Context())
	}
	h.refresher.Trigger()
}

// tenantID reads the mandatory X-Tenant-ID header.
func tenantID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-Tenant-ID")
	if raw == "" {
		return uuid.Nil, errors.New("X-Tenant-ID header is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("X-Tenant-ID must be a UUID")
	}
	return id, nil
}

// actorID reads the optional X-Actor-ID header.
func actorID(r *http.Request) (*uuid.UUID, error) {
	raw := r.Header.Get("X-Actor-ID")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.New("X-Actor-ID must be a UUID")
	}
	return &id, nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, errors.New("category id must be a UUID")
	}
	return id, nil
}

// --- Mutations ---

type createRequest struct {
	TypeName string     `json:"type"`
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// Create adds a tenant-scoped custom category.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if msg := validateCreate(req.TypeName, req.Name); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	created, err := h.categories.CreateCustom(store.CreateCustomParams{
		TypeName: req.TypeName,
		TenantID: tenant,
		Name:     req.Name,
		ParentID: req.ParentID,
		ActorID:  actor,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.afterMutation(r)
	writeJSON(w, http.StatusCreated, created)
}

type moveRequest struct {
	NewParentID *uuid.UUID `json:"new_parent_id"`
	Reason      string     `json:"reason"`
}

// Move reparents a category subtree. A null new_parent_id promotes the
// category to a root.
func (h *Categories) Move(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if msg := validateReason(req.Reason); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	res, err := h.categories.MoveSubtree(id, req.NewParentID, actor, req.Reason)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	h.afterMutation(r)
	writeJSON(w, http.StatusOK, res)
}

type batchMoveRequest struct {
	Moves  []store.BatchMoveItem `json:"moves"`
	Reason string                `json:"reason"`
}

// BatchMove applies a list of moves in order. Items fail independently; the
// response reports each outcome.
func (h *Categories) BatchMove(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req batchMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if msg := validateBatch(len(req.Moves), req.Reason); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	results := h.categories.BatchMove(req.Moves, actor, req.Reason)

	h.afterMutation(r)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// DeletionImpact previews what deleting a category would touch.
func (h *Categories) DeletionImpact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	report, err := h.categories.AnalyzeDeletionImpact(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type deleteRequest struct {
	Strategy   string     `json:"strategy"`
	ReassignTo *uuid.UUID `json:"reassign_to"`
	Reason     string     `json:"reason"`
}

// Delete soft-deletes a category after resolving dependents with the chosen
// strategy. An aborted deletion returns 409 with the analyzer's guidance.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	actor, err := actorID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	req := deleteRequest{Strategy: string(store.StrategyAbort)}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
	}
	if msg := validateReason(req.Reason); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	strategy, err := store.ParseDeletionStrategy(req.Strategy)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	res, err := h.categories.DeleteCategory(id, strategy, req.ReassignTo, actor, req.Reason)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if res.Status == "aborted" {
		writeJSON(w, http.StatusConflict, res)
		return
	}

	h.afterMutation(r)
	writeJSON(w, http.StatusOK, res)
}

// --- Reads ---

// Tree serves one page of the flattened category tree. Pages are cached in
// Valkey keyed by every query dimension.
func (h *Categories) Tree(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	q := store.TreeQuery{
		TenantID: tenant,
		TypeName: r.URL.Query().Get("type"),
		MaxDepth: intParam(r, "max_depth"),
		Limit:    intParam(r, "limit"),
		Offset:   intParam(r, "offset"),
	}
	if q.TypeName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "type query parameter is required"})
		return
	}
	if raw := r.URL.Query().Get("parent_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "parent_id must be a UUID"})
			return
		}
		q.ParentID = &id
	}

	key := cache.TreeKey(q.TenantID, q.TypeName, q.ParentID, q.MaxDepth, q.Limit, q.Offset)
	if h.treeCache != nil {
		if data, ok := h.treeCache.Get(r.Context(), key); ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		}
	}

	page, err := h.paths.Tree(q)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if h.treeCache != nil {
		if data, err := json.Marshal(page); err == nil {
			h.treeCache.Set(r.Context(), key, data)
		}
	}
	writeJSON(w, http.StatusOK, page)
}

// Search serves ranked category search results. Not cached; terms are too
// diverse for a useful hit rate.
func (h *Categories) Search(w http.ResponseWriter, r *http.Request) {
	tenant, err := tenantID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	q := store.SearchQuery{
		TenantID: tenant,
		TypeName: r.URL.Query().Get("type"),
		Term:     r.URL.Query().Get("q"),
		Limit:    intParam(r, "limit"),
	}
	if q.TypeName == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "type query parameter is required"})
		return
	}
	if msg := validateSearchTerm(q.Term); msg != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
		return
	}

	results, err := h.paths.Search(q)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if results == nil {
		results = []models.TreeNode{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// --- Maintenance ---

// RefreshPaths rebuilds the path cache synchronously and reports staleness
// before and after.
func (h *Categories) RefreshPaths(w http.ResponseWriter, r *http.Request) {
	if err := h.paths.Refresh(); err != nil {
		writeStoreError(w, err)
		return
	}
	cached, live, err := h.paths.Staleness()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if h.treeCache != nil {
		h.treeCache.InvalidateAll(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "refreshed",
		"cached": cached,
		"live":   live,
	})
}

// RunMaintenance runs the full housekeeping pass and reports each task.
func (h *Categories) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	reports := h.maintenance.Run()
	if h.treeCache != nil {
		h.treeCache.InvalidateAll(r.Context())
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": reports})
}

// intParam parses an integer query parameter, zero when absent or malformed.
func intParam(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}
