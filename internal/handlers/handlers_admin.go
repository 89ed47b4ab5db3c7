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
	"tutorado/internal/dashboard"
	"tutorado/internal/models"
	"tutorado/internal/report"
	"tutorado/internal/session"
	"tutorado/pkg/logger"
)

const (
	nameColWidth = 18
	birthdayList = 10
)

func handleUserCallback(ctx context.Context, b *bot.Bot, callback *tgbotapi.CallbackQuery, parts []string, user models.User) {
	if len(parts) < 2 {
		return
	}
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	var id string
	if len(parts) > 2 {
		id = parts[2]
	}

	switch parts[1] {
	case "list":
		users := b.Service.Users()
		keyboard := b.UserListKeyboard(users)
		b.EditMessage(chatID, messageID, fmt.Sprintf("👥 Usuários (%d)", len(users)), &keyboard)

	case "view":
		u, err := b.Service.OpenUser(ctx, id)
		if err != nil {
			b.SendMessage(chatID, "Usuário não encontrado.", nil)
			return
		}
		keyboard := b.UserKeyboard(u.ID)
		b.EditMessage(chatID, messageID, formatUser(b, u), &keyboard)

	case "new":
		b.SetState(chatID, stateUserName, nil)
		b.SendMessage(chatID, "Nome do novo usuário:", nil)

	case "pw":
		b.SetState(chatID, stateUserNewPassword, map[string]interface{}{"user_id": id})
		b.SendMessage(chatID, "Nova senha (ou \"-\" para remover a senha):", nil)

	case "del":
		if id == user.ID {
			b.SendMessage(chatID, "Você não pode excluir seu próprio usuário.", nil)
			return
		}
		u, ok := b.Service.User(id)
		if !ok {
			b.SendMessage(chatID, "Usuário não encontrado.", nil)
			return
		}
		keyboard := b.ConfirmKeyboard("usr:delok:" + id)
		b.EditMessage(chatID, messageID, fmt.Sprintf("Excluir o usuário %s (%s)?", u.Name, u.ID), &keyboard)

	case "delok":
		err := b.Service.DeleteUser(ctx, user, id)
		switch {
		case errors.Is(err, dashboard.ErrSelfDelete):
			b.SendMessage(chatID, "Você não pode excluir seu próprio usuário.", nil)
		case err != nil:
			b.SendMessage(chatID, "❌ Não foi possível excluir o usuário.", nil)
		default:
			keyboard := b.MainMenuKeyboard(user)
			b.EditMessage(chatID, messageID, "✅ Usuário excluído.", &keyboard)
		}
	}
}

func handleUserNameInput(b *bot.Bot, chatID int64, text string, state *models.ChatState) {
	if text == "" {
		b.SendMessage(chatID, "Digite um nome válido:", nil)
		return
	}
	state.TempData["name"] = text
	b.SetState(chatID, stateUserRole, state.TempData)
	b.SendMessage(chatID, "Perfil do usuário:", b.RoleSelectionKeyboard())
}

func handleUserRoleCallback(b *bot.Bot, callback *tgbotapi.CallbackQuery, parts []string) {
	chatID := callback.Message.Chat.ID
	state := expectState(b, chatID, stateUserRole)
	if state == nil || len(parts) < 2 {
		return
	}
	role := models.Role(parts[1])
	if role != models.RoleAdmin && role != models.RoleTutor {
		return
	}

	state.TempData["role"] = string(role)
	b.SetState(chatID, stateUserPassword, state.TempData)
	b.EditMessage(chatID, callback.Message.MessageID, "Senha de acesso (ou \"-\" para nenhuma):", nil)
}

func handleUserPasswordInput(ctx context.Context, b *bot.Bot, chatID int64, text string, state *models.ChatState) {
	name, _ := state.TempData["name"].(string)
	role, _ := state.TempData["role"].(string)

	u := models.User{Name: name, Role: models.Role(role)}
	if pw := optional(text); pw != "" {
		u.Password = &pw
	}

	saved, err := b.Service.SaveUser(ctx, u)
	b.ClearState(chatID)
	if err != nil {
		b.SendMessage(chatID, "❌ Erro ao salvar o usuário. Tente novamente.", nil)
		return
	}
	b.SendMessage(chatID, fmt.Sprintf("✅ Usuário criado: %s · %s", saved.ID, saved.Name), b.UserKeyboard(saved.ID))
}

func handleUserNewPasswordInput(ctx context.Context, b *bot.Bot, chatID int64, text string, state *models.ChatState) {
	id, _ := state.TempData["user_id"].(string)
	b.ClearState(chatID)

	u, err := b.Service.OpenUser(ctx, id)
	if err != nil {
		b.SendMessage(chatID, "Usuário não encontrado.", nil)
		return
	}
	if pw := optional(text); pw != "" {
		u.Password = &pw
	} else {
		u.Password = nil
	}

	saved, err := b.Service.SaveUser(ctx, u)
	if err != nil {
		b.SendMessage(chatID, "❌ Erro ao alterar a senha. Tente novamente.", nil)
		return
	}

	// chats logged in as this user keep a copy of the record
	b.Sessions.Each(func(key string, m *session.Manager) {
		if err := m.Refresh(ctx, saved); err != nil {
			b.Log.Warn("failed to refresh session", zap.String(logger.FieldSession, key), zap.Error(err))
		}
	})
	b.SendMessage(chatID, "✅ Senha atualizada.", b.UserKeyboard(saved.ID))
}

func formatUser(b *bot.Bot, u models.User) string {
	role := "Tutor"
	if u.IsAdmin() {
		role = "Administrador"
	}
	var count int
	for _, s := range b.Service.Students() {
		if s.TutorID == u.ID {
			count++
		}
	}
	return fmt.Sprintf("👤 %s (%s)\nPerfil: %s\nSenha: %s\nAlunos: %d",
		u.Name, u.ID, role, yesNo(u.HasPassword()), count)
}

func handleReportCallback(b *bot.Bot, callback *tgbotapi.CallbackQuery, parts []string) {
	if len(parts) < 2 {
		return
	}
	chatID := callback.Message.Chat.ID
	svc := b.Service

	switch parts[1] {
	case "menu":
		keyboard := b.ReportsKeyboard(svc.StudentsByTutor())
		b.EditMessage(chatID, callback.Message.MessageID, "📄 Relatórios disponíveis:", &keyboard)

	case "csv":
		sendFile(b, chatID, report.StudentsCSVName, func(buf *bytes.Buffer) error {
			return report.StudentsCSV(buf, svc.Students())
		})

	case "txt":
		sendFile(b, chatID, report.AttendancesTextName(b.Now()), func(buf *bytes.Buffer) error {
			return report.AttendancesText(buf, svc.FilterAttendances(dashboard.AttendanceFilter{}))
		})

	case "xlsx":
		sendFile(b, chatID, report.WorkbookName, func(buf *bytes.Buffer) error {
			return report.Workbook(buf, report.WorkbookData{
				Students:    svc.Students(),
				Attendances: svc.FilterAttendances(dashboard.AttendanceFilter{}),
				Groups:      svc.StudentsByTutor(),
				TutorName:   svc.TutorName,
			})
		})

	case "tutor":
		if len(parts) < 3 {
			return
		}
		for _, g := range svc.StudentsByTutor() {
			if g.TutorID != parts[2] {
				continue
			}
			var buf bytes.Buffer
			if err := report.TutorRoster(&buf, g); err != nil {
				b.Log.Error("failed to render roster", zap.String(logger.FieldEntityID, g.TutorID), zap.Error(err))
				return
			}
			sendLong(b, chatID, "alunos_"+g.TutorID+".txt", buf.String(), nil)
			return
		}
		b.SendMessage(chatID, "Tutor não encontrado.", nil)
	}
}

func handleStatsCallback(b *bot.Bot, callback *tgbotapi.CallbackQuery) {
	chatID := callback.Message.Chat.ID
	st := b.Service.Stats(b.Now())

	var sb strings.Builder
	sb.WriteString("📊 Painel\n\n")
	fmt.Fprintf(&sb, "Alunos: %d\nTutores: %d\nAtendimentos: %d\n", st.TotalStudents, st.TotalTutors, st.TotalAttendances)

	if len(st.ByTutor) > 0 {
		sb.WriteString("\nAtendimentos por tutor\n")
		for _, c := range st.ByTutor {
			fmt.Fprintf(&sb, "%-*s %d\n", nameColWidth, c.Name, c.Count)
		}
	}

	if len(st.ByDimension) > 0 {
		sb.WriteString("\nPor dimensão\n")
		for _, c := range st.ByDimension {
			fmt.Fprintf(&sb, "%-*s %d\n", nameColWidth, c.Name, c.Count)
		}
	}

	if len(st.TopStudents) > 0 && st.TopStudents[0].Count > 0 {
		sb.WriteString("\nMais atendidos\n")
		for _, c := range st.TopStudents {
			if c.Count == 0 {
				break
			}
			fmt.Fprintf(&sb, "%s · %d\n", c.Student.Name, c.Count)
		}
	}

	sb.WriteString("\n🎂 Aniversariantes do mês\n")
	if len(st.Birthdays) == 0 {
		sb.WriteString("Nenhum.\n")
	}
	for i, s := range st.Birthdays {
		if i == birthdayList {
			fmt.Fprintf(&sb, "... e mais %d\n", len(st.Birthdays)-birthdayList)
			break
		}
		fmt.Fprintf(&sb, "%s (%s)\n", s.Name, s.BirthDate)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(bot.BackRow())
	b.EditMessage(chatID, callback.Message.MessageID, sb.String(), &keyboard)
}
