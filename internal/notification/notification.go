package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyTradeAdmitted NotificationType = "trade_admitted"
	NotifyTradeRejected NotificationType = "trade_rejected"
	NotifyNewsBlock     NotificationType = "news_block"
	NotifyBlockExpired  NotificationType = "block_expired"
	NotifyDriftWarning  NotificationType = "drift_warning"
	NotifyError         NotificationType = "error"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Timeframe string
	Reason    string
	Timestamp time.Time
	Extra     map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification providers
type Manager struct {
	notifiers []Notifier
	enabled   bool
}

// NewManager creates a new notification manager
func NewManager() *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   true,
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(notification); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

// SendTradeAdmitted announces an admitted trade with its levels
func (m *Manager) SendTradeAdmitted(tf, direction string, entry, stop, target, lots, multiplier float64) error {
	return m.Send(&Notification{
		Type:      NotifyTradeAdmitted,
		Title:     fmt.Sprintf("🟢 Trade admitted: %s %s", tf, direction),
		Message:   fmt.Sprintf("Entry %.2f | SL %.2f | TP %.2f\nLots: %.2f | Risk x%.2f", entry, stop, target, lots, multiplier),
		Timeframe: tf,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"direction":       direction,
			"entry":           entry,
			"stop":            stop,
			"target":          target,
			"lots":            lots,
			"risk_multiplier": multiplier,
		},
	})
}

// SendTradeRejected announces a rejection with its reason code
func (m *Manager) SendTradeRejected(tf, reason string) error {
	return m.Send(&Notification{
		Type:      NotifyTradeRejected,
		Title:     fmt.Sprintf("🔴 No trade: %s", tf),
		Message:   fmt.Sprintf("Reason: %s", reason),
		Timeframe: tf,
		Reason:    reason,
		Timestamp: time.Now(),
	})
}

// SendNewsBlock announces a new high-impact news block
func (m *Manager) SendNewsBlock(eventType, headline string, blockUntil time.Time) error {
	return m.Send(&Notification{
		Type:      NotifyNewsBlock,
		Title:     fmt.Sprintf("📰 News block: %s", eventType),
		Message:   fmt.Sprintf("%s\nTrading held until %s", headline, blockUntil.Format("15:04 MST")),
		Reason:    eventType,
		Timestamp: time.Now(),
	})
}

// SendBlockExpired announces that a news block has lapsed
func (m *Manager) SendBlockExpired(eventType string) error {
	return m.Send(&Notification{
		Type:      NotifyBlockExpired,
		Title:     fmt.Sprintf("✅ News block expired: %s", eventType),
		Message:   "Trading resumes pending volatility confirmation",
		Reason:    eventType,
		Timestamp: time.Now(),
	})
}

// SendDriftWarning announces elevated calibration drift
func (m *Manager) SendDriftWarning(tf string, driftPct float64, level string) error {
	return m.Send(&Notification{
		Type:      NotifyDriftWarning,
		Title:     fmt.Sprintf("⚠️ Calibration drift on %s", tf),
		Message:   fmt.Sprintf("Drift %.1f%% (%s)", driftPct, level),
		Timeframe: tf,
		Timestamp: time.Now(),
	})
}

// SendError sends an error notification
func (m *Manager) SendError(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("⚠️ %s", title),
		Message:   message,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends notifications via Telegram
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// TelegramConfig holds Telegram configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(notification *Notification) error {
	if !t.enabled {
		return nil
	}

	message := fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordConfig holds Discord configuration
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(notification *Notification) error {
	if !d.enabled {
		return nil
	}

	color := 0x00FF00 // Green
	switch notification.Type {
	case NotifyError, NotifyTradeRejected, NotifyNewsBlock:
		color = 0xFF0000 // Red
	case NotifyDriftWarning:
		color = 0xFFA500 // Orange
	}

	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}

	if notification.Timeframe != "" {
		fields := []map[string]interface{}{
			{"name": "Timeframe", "value": notification.Timeframe, "inline": true},
		}
		if notification.Reason != "" {
			fields = append(fields, map[string]interface{}{
				"name": "Reason", "value": notification.Reason, "inline": true,
			})
		}
		embed["fields"] = fields
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	return nil
}
