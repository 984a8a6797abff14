package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/julienbonastre/scantosold/internal/apperr"
	"github.com/julienbonastre/scantosold/internal/database"
)

const (
	oauthSessionName = "scantosold_oauth"
	oauthStateKey    = "state"
)

type importRequest struct {
	StoreNumber string `json:"store_number" validate:"required"`
}

// GetAuthURL returns the eBay consent URL and remembers its state in the
// caller's session
func (h *Handler) GetAuthURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.ebayClient == nil || !h.ebayClient.IsConfigured() {
		errorResponse(ctx, h.log, w, apperr.New(apperr.CodeDependency, "eBay credentials are not configured"))
		return
	}

	session, err := h.sessions.Get(r, oauthSessionName)
	if session == nil {
		errorResponse(ctx, h.log, w, apperr.Wrap(apperr.CodeInternal, err, "load session"))
		return
	}
	state := uuid.NewString()
	session.Values[oauthStateKey] = state
	if err := session.Save(r, w); err != nil {
		errorResponse(ctx, h.log, w, apperr.Wrap(apperr.CodeInternal, err, "save session"))
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"url": h.ebayClient.AuthURL(state)})
}

// OAuthCallback handles the OAuth callback
func (h *Handler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		errorResponse(ctx, h.log, w, apperr.New(apperr.CodeValidation, "eBay OAuth error").
			WithDetails(map[string]string{"error": errParam, "description": query.Get("error_description")}))
		return
	}

	session, _ := h.sessions.Get(r, oauthSessionName)
	expected, ok := sessionState(session)
	if !ok || expected == "" || query.Get("state") != expected {
		errorResponse(ctx, h.log, w, apperr.New(apperr.CodeValidation, "invalid state parameter"))
		return
	}

	code := query.Get("code")
	if code == "" {
		errorResponse(ctx, h.log, w, apperr.New(apperr.CodeValidation, "missing authorization code"))
		return
	}

	if err := h.ebayClient.ExchangeCode(ctx, code); err != nil {
		errorResponse(ctx, h.log, w, dependencyError(err, "eBay token exchange failed"))
		return
	}

	delete(session.Values, oauthStateKey)
	if err := session.Save(r, w); err != nil {
		h.log.Error(ctx, "failed to clear oauth state", err)
	}

	h.log.Info(ctx, "ebay account connected")
	http.Redirect(w, r, "/?auth=success", http.StatusFound)
}

// GetAuthStatus returns current auth status
func (h *Handler) GetAuthStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"authenticated": false,
		"configured":    false,
	}
	if h.ebayClient != nil {
		status["authenticated"] = h.ebayClient.IsAuthenticated()
		status["configured"] = h.ebayClient.IsConfigured()
		status["marketplace"] = h.ebayClient.Marketplace()
	}
	jsonResponse(w, http.StatusOK, status)
}

// Disconnect drops the eBay token
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if h.ebayClient == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.ebayClient.Disconnect(r.Context()); err != nil {
		errorResponse(r.Context(), h.log, w, apperr.Wrap(apperr.CodeInternal, err, "disconnect eBay"))
		return
	}
	h.log.Info(r.Context(), "ebay account disconnected")
	w.WriteHeader(http.StatusNoContent)
}

// Reconcile merges eBay listings with local inventory by SKU
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.requireEbay(); err != nil {
		errorResponse(ctx, h.log, w, err)
		return
	}

	report, err := h.syncer.Reconcile(ctx, h.ebayClient)
	if err != nil {
		errorResponse(ctx, h.log, w, dependencyError(err, "eBay reconcile failed"))
		return
	}
	jsonResponse(w, http.StatusOK, report)
}

// ImportShadows stores eBay-only listings as items of the given unit
func (h *Handler) ImportShadows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.requireEbay(); err != nil {
		errorResponse(ctx, h.log, w, err)
		return
	}

	var req importRequest
	if err := decodeJSONBody(r, &req); err != nil {
		errorResponse(ctx, h.log, w, err)
		return
	}

	result, err := h.syncer.ImportShadows(ctx, h.ebayClient, req.StoreNumber)
	if err != nil {
		errorResponse(ctx, h.log, w, dependencyError(err, "eBay import failed"))
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// GetSyncHistory returns sync history
func (h *Handler) GetSyncHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	history, err := h.history.GetSyncHistory(r.Context(), limit)
	if err != nil {
		errorResponse(r.Context(), h.log, w, err)
		return
	}
	if history == nil {
		history = []database.SyncHistory{}
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"history": history,
		"total":   len(history),
	})
}

func sessionState(session *sessions.Session) (string, bool) {
	if session == nil {
		return "", false
	}
	state, ok := session.Values[oauthStateKey].(string)
	return state, ok
}
