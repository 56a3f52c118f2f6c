package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/harmonysync/harmony/internal/services"
	"github.com/harmonysync/harmony/internal/txstore"
)

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthFlowHandler drives the OAuth2 authorization code flow for a provider.
//
// The login route creates a single-use transaction in the store (state token
// plus PKCE verifier) and redirects to the provider. The callback route
// consumes that transaction, completes the code exchange with the stored
// verifier, and reports the token through a channel and an optional callback.
//
// Because the transaction store is what survives between the two requests,
// login and callback may be served by different processes when the store is
// filesystem-backed.
type OAuthFlowHandler struct {
	provider   string
	service    services.OAuthService
	store      txstore.Store
	logger     *log.Logger
	onToken    func(*oauth2.Token)
	resultChan chan OAuthResult
	once       sync.Once
}

// NewOAuthFlowHandler creates a flow handler for the named provider.
func NewOAuthFlowHandler(provider string, service services.OAuthService, store txstore.Store, logger *log.Logger) *OAuthFlowHandler {
	if logger == nil {
		logger = log.Default()
	}

	return &OAuthFlowHandler{
		provider:   provider,
		service:    service,
		store:      store,
		logger:     logger,
		resultChan: make(chan OAuthResult, 1),
	}
}

// SetTokenCallback registers a function invoked with the exchanged token,
// typically to persist it to configuration.
func (h *OAuthFlowHandler) SetTokenCallback(fn func(*oauth2.Token)) {
	h.onToken = fn
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthFlowHandler) Routes() []string {
	return []string{
		fmt.Sprintf("/api/auth/%s/login", h.provider),
		fmt.Sprintf("/api/auth/%s/callback", h.provider),
	}
}

// ServeHTTP dispatches to the login or callback leg of the flow.
func (h *OAuthFlowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case fmt.Sprintf("/api/auth/%s/login", h.provider):
		h.handleLogin(w, r)
	case fmt.Sprintf("/api/auth/%s/callback", h.provider):
		h.handleCallback(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleLogin starts the authorization flow: a fresh state token and PKCE
// verifier are stored, then the user is redirected to the provider with the
// S256 challenge.
func (h *OAuthFlowHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()
	verifier := oauth2.GenerateVerifier()

	meta := map[string]string{"provider": h.provider}
	if err := h.store.Create(state, verifier, meta, h.store.TTL()); err != nil {
		h.logger.Error("failed to persist oauth transaction", "provider", h.provider, "error", err)
		http.Error(w, "Failed to start authorization", http.StatusInternalServerError)
		return
	}

	authURL := h.service.AuthURL(state, oauth2.S256ChallengeOption(verifier))
	h.logger.Info("starting oauth flow", "provider", h.provider, "state", state)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback consumes the pending transaction for the returned state and
// finishes the code exchange with the stored PKCE verifier.
func (h *OAuthFlowHandler) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		http.Error(w, "Missing state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		errParam := r.URL.Query().Get("error")
		errDesc := r.URL.Query().Get("error_description")
		err := fmt.Errorf("authorization failed: %s - %s", errParam, errDesc)
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	tx, err := h.store.Consume(state)
	if err != nil {
		h.failConsume(w, state, err)
		return
	}

	token, err := h.service.Exchange(r.Context(), code, oauth2.VerifierOption(tx.CodeVerifier))
	if err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("token exchange failed: %w", err)})
		h.logger.Error("token exchange failed", "provider", h.provider, "error", err)
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("oauth flow completed", "provider", h.provider, "state", state)
	h.Send(OAuthResult{Token: token})
	if h.onToken != nil {
		h.onToken(token)
	}

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

// failConsume translates a store failure into a user-facing response.
func (h *OAuthFlowHandler) failConsume(w http.ResponseWriter, state string, err error) {
	h.logger.Warn("rejected oauth callback", "provider", h.provider, "state", state, "error", err)

	switch {
	case errors.Is(err, txstore.ErrExpired):
		h.Send(OAuthResult{err: err})
		http.Error(w, "Your sign-in session timed out. Please restart the authorization flow.", http.StatusBadRequest)
	case errors.Is(err, txstore.ErrUsed):
		// Replayed callback: keep the channel open for the legitimate result.
		http.Error(w, "This authorization link has already been used.", http.StatusBadRequest)
	case errors.Is(err, txstore.ErrNotFound):
		h.Send(OAuthResult{err: err})
		http.Error(w, "Unknown authorization request. Please restart the authorization flow.", http.StatusBadRequest)
	default:
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization storage failure", http.StatusInternalServerError)
	}
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthFlowHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthFlowHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

const successPage = `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
