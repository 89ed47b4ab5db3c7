package bot

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tutorado/internal/dashboard"
	"tutorado/internal/models"
	"tutorado/internal/session"
	"tutorado/pkg/logger"
)

// API is the part of the Telegram client the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	API         API
	Service     *dashboard.Service
	Sessions    *session.Registry
	Diagnostics []string
	Log         *zap.Logger
	Now         func() time.Time

	States      map[int64]*models.ChatState
	StatesMutex sync.RWMutex

	restored   map[int64]bool
	restoredMu sync.Mutex
}

// NewAPI connects to the Bot API, or to a compatible server when endpoint
// is set (format "https://host/bot%s/%s").
func NewAPI(token, endpoint string) (*tgbotapi.BotAPI, error) {
	var (
		api *tgbotapi.BotAPI
		err error
	)
	if endpoint != "" {
		api, err = tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	} else {
		api, err = tgbotapi.NewBotAPI(token)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return api, nil
}

func New(api API, svc *dashboard.Service, sessions *session.Registry, log *zap.Logger, diagnostics []string) *Bot {
	return &Bot{
		API:         api,
		Service:     svc,
		Sessions:    sessions,
		Diagnostics: diagnostics,
		Log:         logger.OrNop(log),
		Now:         time.Now,
		States:      make(map[int64]*models.ChatState),
		restored:    make(map[int64]bool),
	}
}

func (b *Bot) SetState(chatID int64, state string, data map[string]interface{}) {
	b.StatesMutex.Lock()
	defer b.StatesMutex.Unlock()

	if data == nil {
		data = make(map[string]interface{})
	}
	b.States[chatID] = &models.ChatState{
		ChatID:      chatID,
		State:       state,
		TempData:    data,
		LastUpdated: b.Now(),
	}
}

func (b *Bot) GetState(chatID int64) *models.ChatState {
	b.StatesMutex.RLock()
	defer b.StatesMutex.RUnlock()

	return b.States[chatID]
}

func (b *Bot) ClearState(chatID int64) {
	b.StatesMutex.Lock()
	defer b.StatesMutex.Unlock()

	delete(b.States, chatID)
}

// Session returns the login state of a chat.
func (b *Bot) Session(chatID int64) *session.Manager {
	return b.Sessions.For(strconv.FormatInt(chatID, 10))
}

// CurrentUser returns who is logged in on chatID. The first lookup after
// the data has loaded resumes a persisted session.
func (b *Bot) CurrentUser(ctx context.Context, chatID int64) (models.User, bool) {
	m := b.Session(chatID)
	if u, ok := m.Current(); ok {
		return u, true
	}
	if !b.loaded() || !b.markRestored(chatID) {
		return models.User{}, false
	}
	u, ok, err := m.Restore(ctx, b.Service.Users())
	if err != nil {
		b.Log.Warn("failed to restore session", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		return models.User{}, false
	}
	return u, ok
}

func (b *Bot) loaded() bool {
	select {
	case <-b.Service.Ready():
		return true
	default:
		return false
	}
}

func (b *Bot) markRestored(chatID int64) bool {
	b.restoredMu.Lock()
	defer b.restoredMu.Unlock()
	if b.restored[chatID] {
		return false
	}
	b.restored[chatID] = true
	return true
}

func (b *Bot) SendMessage(chatID int64, text string, replyMarkup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyMarkup != nil {
		msg.ReplyMarkup = replyMarkup
	}

	_, err := b.API.Send(msg)
	if err != nil {
		b.Log.Error("failed to send message", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	return err
}

func (b *Bot) EditMessage(chatID int64, messageID int, text string, replyMarkup interface{}) error {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if replyMarkup != nil {
		if markup, ok := replyMarkup.(*tgbotapi.InlineKeyboardMarkup); ok {
			msg.ReplyMarkup = markup
		}
	}

	_, err := b.API.Send(msg)
	if err != nil {
		b.Log.Error("failed to edit message", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	return err
}

// SendDocument uploads data as a file named name.
func (b *Bot) SendDocument(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = caption

	_, err := b.API.Send(doc)
	if err != nil {
		b.Log.Error("failed to send document",
			zap.Int64(logger.FieldChatID, chatID),
			zap.String("file", name),
			zap.Error(err),
		)
	}
	return err
}

func (b *Bot) AnswerCallbackQuery(callbackID string, text string) error {
	callback := tgbotapi.NewCallback(callbackID, text)
	_, err := b.API.Request(callback)
	return err
}
