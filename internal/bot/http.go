package bot

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// webhookPath prefixes the secret path segment Telegram posts updates to
const webhookPath = "/telegram-webhook/"

// HTTPServer serves the health endpoints and the Telegram webhook
type HTTPServer struct {
	bot         *Bot
	webhookMode bool
	secret      string
}

// NewHTTPServer creates the HTTP handlers for the bot. The webhook route
// only exists in webhook mode and accepts posts to webhookPath+secret.
func NewHTTPServer(bot *Bot, webhookMode bool, secret string) *HTTPServer {
	return &HTTPServer{
		bot:         bot,
		webhookMode: webhookMode,
		secret:      secret,
	}
}

// RegisterRoutes registers the bot routes on the provided mux
func (hs *HTTPServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/", hs.handleIndex)
	if hs.webhookMode {
		mux.HandleFunc(webhookPath, hs.handleWebhook)
	}
}

func (hs *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (hs *HTTPServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	mode := "polling"
	if hs.webhookMode {
		mode = "webhook"
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Gemini AI Bot is running (mode: %s)", mode)
}

// handleWebhook acknowledges the update right away and processes it in the background
func (hs *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !hs.authorized(r) {
		hs.bot.logger.Warn("Rejected webhook call", zap.String("remote_addr", r.RemoteAddr))
		w.WriteHeader(http.StatusForbidden)
		return
	}

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		hs.bot.logger.Warn("Error decoding webhook update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	// The request context ends with the response
	hs.bot.HandleUpdate(hs.bot.baseContext(), update)

	w.WriteHeader(http.StatusOK)
}

// authorized reports whether the request path carries the webhook secret
func (hs *HTTPServer) authorized(r *http.Request) bool {
	if hs.secret == "" {
		return false
	}
	token := strings.TrimPrefix(r.URL.Path, webhookPath)
	return subtle.ConstantTimeCompare([]byte(token), []byte(hs.secret)) == 1
}
