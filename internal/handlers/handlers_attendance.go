package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tutorado/internal/bot"
	"tutorado/internal/dashboard"
	"tutorado/internal/models"
	"tutorado/internal/report"
)

const recentAttendances = 15

// handleAttendanceCallback returns the notice to show on the pressed button.
func handleAttendanceCallback(ctx context.Context, b *bot.Bot, callback *tgbotapi.CallbackQuery, parts []string, user models.User) string {
	if len(parts) < 2 {
		return ""
	}
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID

	var id string
	if len(parts) > 2 {
		id = parts[2]
	}

	switch parts[1] {
	case "list":
		all := b.Service.FilterAttendances(dashboard.AttendanceFilter{})
		recent := all
		if len(recent) > recentAttendances {
			recent = recent[:recentAttendances]
		}
		keyboard := b.AttendanceListKeyboard(recent)
		text := fmt.Sprintf("📝 Atendimentos recentes (%d no total)", len(all))
		b.EditMessage(chatID, messageID, text, &keyboard)

	case "new":
		students := studentsFor(b, user)
		if len(students) == 0 {
			b.SendMessage(chatID, "Nenhum aluno carregado.", nil)
			return ""
		}
		b.SetState(chatID, stateAttStudent, nil)
		keyboard := b.AttendanceStudentKeyboard(students)
		b.EditMessage(chatID, messageID, "Selecione o aluno:", &keyboard)

	case "for":
		b.SetState(chatID, stateAttDimension, map[string]interface{}{"student_id": id})
		b.SendMessage(chatID, "Dimensão do atendimento:", b.DimensionKeyboard())

	case "view":
		a, ok := b.Service.Attendance(id)
		if !ok {
			b.SendMessage(chatID, "Atendimento não encontrado.", nil)
			return ""
		}
		keyboard := b.AttendanceKeyboard(a, dashboard.CanEdit(user, a))
		b.EditMessage(chatID, messageID, formatAttendance(a), &keyboard)

	case "edit":
		a, ok := b.Service.Attendance(id)
		if !ok {
			b.SendMessage(chatID, "Atendimento não encontrado.", nil)
			return ""
		}
		if !dashboard.CanEdit(user, a) {
			return "Você só pode editar seus próprios atendimentos."
		}
		b.SetState(chatID, stateAttStudent, map[string]interface{}{
			"attendance_id": a.ID,
			"student_id":    a.StudentID,
			"date":          a.Date,
		})
		keyboard := b.AttendanceStudentKeyboard(studentsFor(b, user))
		keep := tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Manter: "+a.StudentName, "att_student:"+a.StudentID))
		keyboard.InlineKeyboard = append([][]tgbotapi.InlineKeyboardButton{keep}, keyboard.InlineKeyboard...)
		text := fmt.Sprintf("Editando atendimento de %s (%s).\nAluno:", a.StudentName, a.Date)
		b.EditMessage(chatID, messageID, text, &keyboard)

	case "del":
		a, ok := b.Service.Attendance(id)
		if !ok {
			return ""
		}
		if !dashboard.CanEdit(user, a) {
			return "Você só pode excluir seus próprios atendimentos."
		}
		keyboard := b.ConfirmKeyboard("att:delok:" + id)
		b.EditMessage(chatID, messageID, "Excluir este atendimento?\n\n"+formatAttendance(a), &keyboard)

	case "delok":
		err := b.Service.DeleteAttendance(ctx, user, id)
		if errors.Is(err, dashboard.ErrForbidden) {
			return "Sem permissão."
		}
		if err != nil {
			b.SendMessage(chatID, "❌ Não foi possível excluir o atendimento.", nil)
			return ""
		}
		keyboard := b.MainMenuKeyboard(user)
		b.EditMessage(chatID, messageID, "✅ Atendimento excluído.", &keyboard)

	case "search":
		b.SetState(chatID, stateAttSearch, nil)
		b.SendMessage(chatID,
			"🔎 Digite o nome do aluno e, se quiser, o período:\n"+
				"ex: \"joão 2024-03-01 2024-03-31\"\n"+
				"Envie \"-\" para listar todos.", nil)
	}
	return ""
}

func handleAttendanceStudentCallback(b *bot.Bot, callback *tgbotapi.CallbackQuery, parts []string) {
	chatID := callback.Message.Chat.ID
	state := expectState(b, chatID, stateAttStudent)
	if state == nil || len(parts) < 2 {
		return
	}

	state.TempData["student_id"] = parts[1]
	b.SetState(chatID, stateAttDimension, state.TempData)
	keyboard := b.DimensionKeyboard()
	b.EditMessage(chatID, callback.Message.MessageID, "Dimensão do atendimento:", &keyboard)
}

func handleAttendanceDimensionCallback(b *bot.Bot, callback *tgbotapi.CallbackQuery, parts []string) {
	chatID := callback.Message.Chat.ID
	state := expectState(b, chatID, stateAttDimension)
	if state == nil || len(parts) < 2 {
		return
	}
	i, err := strconv.Atoi(parts[1])
	if err != nil || i < 0 || i >= len(models.FormDimensions) {
		return
	}

	state.TempData["dimension"] = string(models.FormDimensions[i])
	b.SetState(chatID, stateAttSubject, state.TempData)
	b.EditMessage(chatID, callback.Message.MessageID, "Assunto do atendimento:", nil)
}

func handleAttendanceSubjectInput(b *bot.Bot, chatID int64, text string, state *models.ChatState) {
	if text == "" {
		b.SendMessage(chatID, "O assunto é obrigatório:", nil)
		return
	}
	state.TempData["subject"] = text
	b.SetState(chatID, stateAttNotes, state.TempData)
	b.SendMessage(chatID, "Observações (ou \"-\" para deixar em branco):", nil)
}

func handleAttendanceNotesInput(b *bot.Bot, chatID int64, text string, state *models.ChatState) {
	state.TempData["notes"] = optional(text)
	b.SetState(chatID, stateAttDate, state.TempData)

	if date, _ := state.TempData["date"].(string); date != "" {
		b.SendMessage(chatID, fmt.Sprintf("Data (AAAA-MM-DD), ou \"-\" para manter %s:", date), nil)
		return
	}
	b.SendMessage(chatID, "Data (AAAA-MM-DD), ou \"-\" para hoje:", nil)
}

func handleAttendanceDateInput(ctx context.Context, b *bot.Bot, chatID int64, text string, state *models.ChatState, user models.User) {
	form := dashboard.AttendanceForm{}
	form.ID, _ = state.TempData["attendance_id"].(string)
	form.StudentID, _ = state.TempData["student_id"].(string)
	form.Subject, _ = state.TempData["subject"].(string)
	form.Notes, _ = state.TempData["notes"].(string)
	form.Date, _ = state.TempData["date"].(string)
	if dim, ok := state.TempData["dimension"].(string); ok {
		form.Dimension = models.Dimension(dim)
	}

	if date := optional(text); date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			b.SendMessage(chatID, "Data inválida. Use o formato AAAA-MM-DD:", nil)
			return
		}
		form.Date = date
	}
	if form.Date == "" {
		form.Date = b.Now().Format("2006-01-02")
	}

	saved, err := b.Service.SaveAttendance(ctx, user, form)
	b.ClearState(chatID)

	switch {
	case errors.Is(err, dashboard.ErrForbidden):
		b.SendMessage(chatID, "❌ Você não tem permissão para alterar este atendimento.", b.MainMenuKeyboard(user))
	case errors.Is(err, dashboard.ErrMissingField):
		b.SendMessage(chatID, "❌ Preencha os campos obrigatórios.", b.MainMenuKeyboard(user))
	case err != nil:
		b.SendMessage(chatID, "❌ Erro ao salvar o atendimento. Tente novamente.", b.MainMenuKeyboard(user))
	default:
		text := "✅ Atendimento registrado.\n\n" + formatAttendance(saved)
		b.SendMessage(chatID, text, b.AttendanceKeyboard(saved, true))
	}
}

func handleAttendanceSearchInput(b *bot.Bot, chatID int64, text string) {
	b.ClearState(chatID)

	filter := parseAttendanceFilter(optional(text))
	found := b.Service.FilterAttendances(filter)

	msg := fmt.Sprintf("🔎 %d atendimento(s) encontrado(s).", len(found))
	if filter.From != "" || filter.To != "" {
		msg += fmt.Sprintf("\nPeríodo: %s até %s", orLabel(filter.From, "Início"), orLabel(filter.To, "Hoje"))
	}
	b.SendMessage(chatID, msg, b.AttendanceListKeyboard(found))

	if len(found) == 0 {
		return
	}
	sendFile(b, chatID, report.AttendancesTextName(b.Now()), func(buf *bytes.Buffer) error {
		return report.AttendancesText(buf, found)
	})
}

// parseAttendanceFilter reads up to two dates, the first being the start of
// the range; every other word is part of the student name.
func parseAttendanceFilter(text string) dashboard.AttendanceFilter {
	var f dashboard.AttendanceFilter
	var terms []string
	for _, tok := range strings.Fields(text) {
		if _, err := time.Parse("2006-01-02", tok); err == nil {
			if f.From == "" {
				f.From = tok
			} else if f.To == "" {
				f.To = tok
			}
			continue
		}
		terms = append(terms, tok)
	}
	f.Student = strings.Join(terms, " ")
	return f
}

// studentsFor lists the tutor's own students first, or everyone for an admin.
func studentsFor(b *bot.Bot, user models.User) []models.StudentSummary {
	all := b.Service.Students()
	if user.IsAdmin() {
		return all
	}
	var own, rest []models.StudentSummary
	for _, s := range all {
		if s.TutorID == user.ID {
			own = append(own, s)
		} else {
			rest = append(rest, s)
		}
	}
	return append(own, rest...)
}

func formatAttendance(a models.Attendance) string {
	return fmt.Sprintf("📅 %s · %s\nAluno: %s (%s)\nTutor: %s\nAssunto: %s\nObs: %s",
		a.Date, a.Dimension, a.StudentName, a.StudentID, a.TutorName, a.Subject, orDash(a.Notes))
}

func orLabel(s, label string) string {
	if s == "" {
		return label
	}
	return s
}
