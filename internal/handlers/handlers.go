package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tutorado/internal/bot"
	"tutorado/internal/models"
	"tutorado/internal/session"
	"tutorado/pkg/logger"
)

const (
	stateLoginID       = "awaiting_login_id"
	stateLoginPassword = "awaiting_login_password"

	stateStudentName   = "awaiting_student_name"
	stateStudentBirth  = "awaiting_student_birth"
	stateStudentSeries = "awaiting_student_series"
	stateStudentLetter = "awaiting_student_letter"
	stateStudentTutor  = "awaiting_student_tutor"
	stateStudentSearch = "awaiting_student_search"

	stateAttStudent   = "awaiting_att_student"
	stateAttDimension = "awaiting_att_dimension"
	stateAttSubject   = "awaiting_att_subject"
	stateAttNotes     = "awaiting_att_notes"
	stateAttDate      = "awaiting_att_date"
	stateAttSearch    = "awaiting_att_search"

	stateUserName        = "awaiting_user_name"
	stateUserRole        = "awaiting_user_role"
	stateUserPassword    = "awaiting_user_password"
	stateUserNewPassword = "awaiting_user_new_password"
)

// Telegram rejects longer messages; longer text goes out as a file.
const maxMessageLen = 4000

// skip is typed to leave an optional answer blank.
const skip = "-"

func HandleStart(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.ClearState(chatID)

	if user, ok := b.CurrentUser(ctx, chatID); ok {
		text := fmt.Sprintf("Olá, %s! O que deseja fazer?", user.Name)
		b.SendMessage(chatID, text, b.MainMenuKeyboard(user))
		return
	}
	promptLogin(b, chatID)
}

func HandleLogout(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	logout(ctx, b, message.Chat.ID)
}

func HandleCancel(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	b.ClearState(chatID)
	if user, ok := b.CurrentUser(ctx, chatID); ok {
		b.SendMessage(chatID, "Operação cancelada.", b.MainMenuKeyboard(user))
		return
	}
	promptLogin(b, chatID)
}

func promptLogin(b *bot.Bot, chatID int64) {
	var sb strings.Builder
	sb.WriteString("👋 Bem-vindo ao Tutorado!\n\n")
	for _, d := range b.Diagnostics {
		sb.WriteString("⚠️ " + d + "\n")
	}
	if len(b.Service.Users()) == 0 {
		sb.WriteString("⚠️ Modo offline: banco não conectado. Use ADM001 para entrar.\n")
	}
	if len(b.Diagnostics) > 0 || len(b.Service.Users()) == 0 {
		sb.WriteString("\n")
	}
	sb.WriteString("Digite seu ID ou nome (ex: ADM001).\n")
	sb.WriteString("Dica: envie \"-\" para entrar como administrador.")

	b.SetState(chatID, stateLoginID, nil)
	b.SendMessage(chatID, sb.String(), nil)
}

func HandleMessage(ctx context.Context, b *bot.Bot, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	state := b.GetState(chatID)
	if state == nil {
		user, ok := b.CurrentUser(ctx, chatID)
		if !ok {
			promptLogin(b, chatID)
			return
		}
		b.SendMessage(chatID, "Use o menu abaixo:", b.MainMenuKeyboard(user))
		return
	}

	switch state.State {
	case stateLoginID:
		handleLoginID(ctx, b, chatID, text)
		return
	case stateLoginPassword:
		handleLoginPassword(ctx, b, chatID, text, state)
		return
	}

	user, ok := b.CurrentUser(ctx, chatID)
	if !ok {
		promptLogin(b, chatID)
		return
	}

	switch state.State {
	case stateStudentName:
		handleStudentNameInput(b, chatID, text, state)
	case stateStudentBirth:
		handleStudentBirthInput(b, chatID, text, state)
	case stateStudentSearch:
		handleStudentSearchInput(b, chatID, text, user)
	case stateAttSubject:
		handleAttendanceSubjectInput(b, chatID, text, state)
	case stateAttNotes:
		handleAttendanceNotesInput(b, chatID, text, state)
	case stateAttDate:
		handleAttendanceDateInput(ctx, b, chatID, text, state, user)
	case stateAttSearch:
		handleAttendanceSearchInput(b, chatID, text)
	case stateUserName:
		handleUserNameInput(b, chatID, text, state)
	case stateUserPassword:
		handleUserPasswordInput(ctx, b, chatID, text, state)
	case stateUserNewPassword:
		handleUserNewPasswordInput(ctx, b, chatID, text, state)
	default:
		b.SendMessage(chatID, "Escolha uma das opções acima.", nil)
	}
}

func handleLoginID(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	identifier := optional(text)
	user, err := b.Session(chatID).Login(ctx, b.Service.Users(), identifier, "")

	switch {
	case errors.Is(err, session.ErrWrongPassword):
		b.SetState(chatID, stateLoginPassword, map[string]interface{}{"identifier": identifier})
		b.SendMessage(chatID, "🔑 Digite sua senha:", nil)
	case errors.Is(err, session.ErrUserNotFound):
		b.SendMessage(chatID, "❌ Usuário não encontrado. Tente ADM001.", nil)
	case err != nil:
		b.Log.Error("login failed", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		b.SendMessage(chatID, "Erro ao iniciar a sessão. Tente novamente.", nil)
	default:
		welcome(b, chatID, user)
	}
}

func handleLoginPassword(ctx context.Context, b *bot.Bot, chatID int64, text string, state *models.ChatState) {
	identifier, _ := state.TempData["identifier"].(string)
	user, err := b.Session(chatID).Login(ctx, b.Service.Users(), identifier, text)

	switch {
	case errors.Is(err, session.ErrWrongPassword):
		b.SendMessage(chatID, "❌ Senha incorreta! Digite novamente ou use /start.", nil)
	case errors.Is(err, session.ErrUserNotFound):
		// the user was removed between the two steps
		promptLogin(b, chatID)
	case err != nil:
		b.Log.Error("login failed", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
		b.SendMessage(chatID, "Erro ao iniciar a sessão. Tente novamente.", nil)
	default:
		welcome(b, chatID, user)
	}
}

func welcome(b *bot.Bot, chatID int64, user models.User) {
	b.ClearState(chatID)
	role := "Tutor"
	if user.IsAdmin() {
		role = "Administrador"
	}
	text := fmt.Sprintf("✅ Bem-vindo(a), %s!\nPerfil: %s", user.Name, role)
	b.SendMessage(chatID, text, b.MainMenuKeyboard(user))
}

func logout(ctx context.Context, b *bot.Bot, chatID int64) {
	b.ClearState(chatID)
	if err := b.Session(chatID).Logout(ctx); err != nil {
		b.Log.Error("logout failed", zap.Int64(logger.FieldChatID, chatID), zap.Error(err))
	}
	b.SendMessage(chatID, "👋 Sessão encerrada.", nil)
	promptLogin(b, chatID)
}

func HandleCallbackQuery(ctx context.Context, b *bot.Bot, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID

	parts := strings.Split(callback.Data, ":")
	if len(parts) < 1 {
		return
	}

	user, ok := b.CurrentUser(ctx, chatID)
	if !ok {
		b.AnswerCallbackQuery(callback.ID, "Sessão encerrada. Use /start.")
		return
	}

	action := parts[0]

	// every callback gets exactly one answer, carrying the notice if any
	var notice string
	switch action {
	case "menu":
		b.ClearState(chatID)
		keyboard := b.MainMenuKeyboard(user)
		b.EditMessage(chatID, callback.Message.MessageID, "Menu principal:", &keyboard)
	case "logout":
		logout(ctx, b, chatID)
	case "stats":
		handleStatsCallback(b, callback)
	case "stu":
		notice = handleStudentCallback(ctx, b, callback, parts, user)
	case "series":
		handleSeriesCallback(b, callback, parts)
	case "letter":
		handleLetterCallback(b, callback, parts)
	case "tutor":
		handleTutorCallback(ctx, b, callback, parts)
	case "att":
		notice = handleAttendanceCallback(ctx, b, callback, parts, user)
	case "att_student":
		handleAttendanceStudentCallback(b, callback, parts)
	case "att_dim":
		handleAttendanceDimensionCallback(b, callback, parts)
	case "usr":
		if !user.IsAdmin() {
			notice = "Apenas administradores."
			break
		}
		handleUserCallback(ctx, b, callback, parts, user)
	case "usr_role":
		handleUserRoleCallback(b, callback, parts)
	case "rep":
		handleReportCallback(b, callback, parts)
	}

	b.AnswerCallbackQuery(callback.ID, notice)
}

// expectState returns the chat state when it is at step, or nil.
func expectState(b *bot.Bot, chatID int64, step string) *models.ChatState {
	state := b.GetState(chatID)
	if state == nil || state.State != step {
		return nil
	}
	return state
}

// optional maps the skip marker to an empty answer.
func optional(text string) string {
	if text == skip {
		return ""
	}
	return text
}

// sendLong sends text as a message, or as a file named name when it does
// not fit in one.
func sendLong(b *bot.Bot, chatID int64, name, text string, replyMarkup interface{}) {
	if len(text) <= maxMessageLen {
		b.SendMessage(chatID, text, replyMarkup)
		return
	}
	b.SendDocument(chatID, name, []byte(text), "")
	if replyMarkup != nil {
		b.SendMessage(chatID, "Conteúdo enviado como arquivo.", replyMarkup)
	}
}

func sendFile(b *bot.Bot, chatID int64, name string, render func(buf *bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		b.Log.Error("failed to render export", zap.String("file", name), zap.Error(err))
		b.SendMessage(chatID, "Erro ao gerar o arquivo.", nil)
		return
	}
	b.SendDocument(chatID, name, buf.Bytes(), "")
}

func yesNo(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
