package handlers

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"tutorado/internal/bot"
	"tutorado/internal/models"
	"tutorado/internal/report"
	"tutorado/pkg/logger"
)

// handleStudentCallback returns the notice to show on the pressed button.
func handleStudentCallback(ctx context.Context, b *bot.Bot, callback *tgbotapi.CallbackQuery, parts []string, user models.User) string {
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
		students := b.Service.FilterStudents("", models.AllSeries)
		keyboard := b.StudentListKeyboard(students, user.IsAdmin())
		text := fmt.Sprintf("🎓 Alunos (%d)", len(students))
		b.EditMessage(chatID, messageID, text, &keyboard)

	case "search":
		b.SetState(chatID, stateStudentSearch, nil)
		b.SendMessage(chatID, "🔎 Digite o nome ou ID do aluno.\nPara filtrar por série, inclua-a (ex: \"ana 2ºSérie\").", nil)

	case "view":
		d, err := b.Service.OpenStudent(ctx, id)
		if err != nil {
			b.SendMessage(chatID, "Aluno não encontrado.", nil)
			return ""
		}
		text := formatStudent(d, b.Service.TutorName(d.TutorID))
		sendLong(b, chatID, "aluno_"+d.ID+".txt", text, b.StudentKeyboard(d.ID, user.IsAdmin()))

	case "history":
		attendances := b.Service.AttendancesOf(id)
		if len(attendances) == 0 {
			b.SendMessage(chatID, "Nenhum atendimento registrado para este aluno.", nil)
			return ""
		}
		var buf bytes.Buffer
		if err := report.AttendancesText(&buf, attendances); err != nil {
			b.Log.Error("failed to render history", zap.String(logger.FieldEntityID, id), zap.Error(err))
			return ""
		}
		sendLong(b, chatID, "atendimentos_"+id+".txt", buf.String(), nil)

	case "new":
		if !user.IsAdmin() {
			return "Apenas administradores."
		}
		b.SetState(chatID, stateStudentName, nil)
		b.SendMessage(chatID, "Nome completo do aluno:", nil)

	case "del":
		if !user.IsAdmin() {
			return "Apenas administradores."
		}
		s, ok := b.Service.Student(id)
		if !ok {
			b.SendMessage(chatID, "Aluno não encontrado.", nil)
			return ""
		}
		keyboard := b.ConfirmKeyboard("stu:delok:" + id)
		b.EditMessage(chatID, messageID, fmt.Sprintf("Excluir o aluno %s (%s)?", s.Name, s.ID), &keyboard)

	case "delok":
		if !user.IsAdmin() {
			return ""
		}
		if err := b.Service.DeleteStudent(ctx, id); err != nil {
			b.SendMessage(chatID, "❌ Não foi possível excluir o aluno.", nil)
			return ""
		}
		keyboard := b.MainMenuKeyboard(user)
		b.EditMessage(chatID, messageID, "✅ Aluno excluído.", &keyboard)
	}
	return ""
}

func handleStudentNameInput(b *bot.Bot, chatID int64, text string, state *models.ChatState) {
	if text == "" {
		b.SendMessage(chatID, "Digite um nome válido:", nil)
		return
	}
	state.TempData["name"] = text
	b.SetState(chatID, stateStudentBirth, state.TempData)
	b.SendMessage(chatID, "Data de nascimento (AAAA-MM-DD), ou \"-\" para pular:", nil)
}

func handleStudentBirthInput(b *bot.Bot, chatID int64, text string, state *models.ChatState) {
	birth := optional(text)
	if birth != "" {
		if _, err := time.Parse("2006-01-02", birth); err != nil {
			b.SendMessage(chatID, "Data inválida. Use o formato AAAA-MM-DD:", nil)
			return
		}
	}
	state.TempData["birth"] = birth
	b.SetState(chatID, stateStudentSeries, state.TempData)
	b.SendMessage(chatID, "Série:", b.SeriesKeyboard())
}

func handleSeriesCallback(b *bot.Bot, callback *tgbotapi.CallbackQuery, parts []string) {
	chatID := callback.Message.Chat.ID
	state := expectState(b, chatID, stateStudentSeries)
	if state == nil || len(parts) < 2 {
		return
	}
	i, err := strconv.Atoi(parts[1])
	if err != nil || i < 0 || i >= len(models.SeriesOptions) {
		return
	}

	state.TempData["series"] = models.SeriesOptions[i]
	b.SetState(chatID, stateStudentLetter, state.TempData)
	keyboard := b.ClassLetterKeyboard()
	b.EditMessage(chatID, callback.Message.MessageID, "Turma:", &keyboard)
}

func handleLetterCallback(b *bot.Bot, callback *tgbotapi.CallbackQuery, parts []string) {
	chatID := callback.Message.Chat.ID
	state := expectState(b, chatID, stateStudentLetter)
	if state == nil || len(parts) < 2 {
		return
	}

	series, _ := state.TempData["series"].(string)
	state.TempData["series"] = series + " " + parts[1]
	b.SetState(chatID, stateStudentTutor, state.TempData)
	keyboard := b.TutorKeyboard(b.Service.Users())
	b.EditMessage(chatID, callback.Message.MessageID, "Tutor responsável:", &keyboard)
}

func handleTutorCallback(ctx context.Context, b *bot.Bot, callback *tgbotapi.CallbackQuery, parts []string) {
	chatID := callback.Message.Chat.ID
	state := expectState(b, chatID, stateStudentTutor)
	if state == nil || len(parts) < 2 {
		return
	}

	name, _ := state.TempData["name"].(string)
	birth, _ := state.TempData["birth"].(string)
	series, _ := state.TempData["series"].(string)

	d := models.NewStudentDetail(models.StudentSummary{
		TutorID:   parts[1],
		Name:      name,
		Series:    series,
		BirthDate: birth,
	})

	saved, err := b.Service.SaveStudent(ctx, d)
	b.ClearState(chatID)
	if err != nil {
		b.SendMessage(chatID, "❌ Erro ao salvar o aluno. Tente novamente.", nil)
		return
	}

	text := fmt.Sprintf("✅ Aluno cadastrado: %s · %s\nTutor: %s", saved.ID, saved.Name, b.Service.TutorName(saved.TutorID))
	keyboard := b.StudentKeyboard(saved.ID, true)
	b.EditMessage(chatID, callback.Message.MessageID, text, &keyboard)
}

func handleStudentSearchInput(b *bot.Bot, chatID int64, text string, user models.User) {
	b.ClearState(chatID)

	series := models.AllSeries
	var terms []string
	for _, tok := range strings.Fields(text) {
		if isSeries(tok) {
			series = tok
			continue
		}
		terms = append(terms, tok)
	}

	students := b.Service.FilterStudents(strings.Join(terms, " "), series)
	text = fmt.Sprintf("🔎 %d aluno(s) encontrado(s).", len(students))
	b.SendMessage(chatID, text, b.StudentListKeyboard(students, user.IsAdmin()))
}

func isSeries(tok string) bool {
	for _, s := range models.SeriesOptions {
		if strings.HasPrefix(tok, s) {
			return true
		}
	}
	return false
}

func formatStudent(d models.StudentDetail, tutorName string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🎓 %s (%s)\n", d.Name, d.ID)
	fmt.Fprintf(&sb, "Série: %s\n", orDash(d.Series))
	fmt.Fprintf(&sb, "Tutor: %s\n", tutorName)
	fmt.Fprintf(&sb, "Nascimento: %s\n", orDash(d.BirthDate))
	fmt.Fprintf(&sb, "Telefone: %s | Responsável: %s\n", orDash(d.PhoneStudent), orDash(d.PhoneGuardian))
	fmt.Fprintf(&sb, "Escolas anteriores: %s\n", orDash(d.SchoolsAttended))

	sb.WriteString("\n👪 Família\n")
	fmt.Fprintf(&sb, "Pai: %s (%s) · %s\n", orDash(d.FatherName), orDash(d.FatherAge), orDash(d.FatherJob))
	fmt.Fprintf(&sb, "Mãe: %s (%s) · %s\n", orDash(d.MotherName), orDash(d.MotherAge), orDash(d.MotherJob))
	fmt.Fprintf(&sb, "Irmãos: %s\n", orDash(d.Siblings))
	fmt.Fprintf(&sb, "Mora com: %s\n", orDash(d.LivingArrangement))

	sb.WriteString("\n🏠 Rotina\n")
	fmt.Fprintf(&sb, "Dispositivos: %s | Internet: %s\n", orDash(strings.Join(d.HasDevice, ", ")), yesNo(d.HasInternet))
	fmt.Fprintf(&sb, "Animal de estimação: %s\n", withDetail(d.HasPet, d.PetDetails))
	fmt.Fprintf(&sb, "Cursos externos: %s\n", withDetail(d.CoursesExternal, d.CourseDetails))
	fmt.Fprintf(&sb, "Estuda em casa: %s\n", withDetail(d.StudyAtHome, d.StudyTime))
	fmt.Fprintf(&sb, "Gosta de ler: %s\n", withDetail(d.LikesReading, d.BookType))
	fmt.Fprintf(&sb, "Esportes: %s\n", withDetail(d.Sports, d.SportDetails))
	fmt.Fprintf(&sb, "Lazer: %s | Não gosta: %s\n", orDash(d.LeisureActivity), orDash(d.DislikesActivity))
	fmt.Fprintf(&sb, "Dorme: %s | Acorda: %s\n", orDash(d.SleepTime), orDash(d.WakeTime))
	fmt.Fprintf(&sb, "Projeto de vida: %s\n", orDash(d.LifeProject))

	if len(d.Roles) > 0 {
		fmt.Fprintf(&sb, "Funções: %s\n", strings.Join(d.Roles, ", "))
	}
	if d.PerformanceDoc != nil && d.PerformanceDocType != nil {
		fmt.Fprintf(&sb, "Documento de desempenho anexado (%s)\n", *d.PerformanceDocType)
	}
	return sb.String()
}

func withDetail(flag bool, detail *string) string {
	if !flag {
		return "Não"
	}
	if detail == nil || *detail == "" {
		return "Sim"
	}
	return "Sim (" + *detail + ")"
}
