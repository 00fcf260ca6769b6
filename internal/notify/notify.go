package notify

import (
	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/pkg/config"
	"github.com/wonny/diamond/pkg/httputil"
	"github.com/wonny/diamond/pkg/logger"
)

// New picks Telegram when token and chat id are set, else the console
func New(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) contracts.Notifier {
	if cfg.Telegram.Enabled() {
		return NewTelegram(httpClient, cfg.Telegram.Token, cfg.Telegram.ChatID, log)
	}
	log.WithModule("notify").Info("Telegram not configured, using console notifier")
	return NewConsole()
}
