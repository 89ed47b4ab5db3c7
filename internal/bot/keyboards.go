package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tutorado/internal/dashboard"
	"tutorado/internal/models"
)

// Keyboards list at most this many records; longer lists are narrowed by search.
const maxListButtons = 30

func button(text, data string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(text, data))
}

func BackRow() []tgbotapi.InlineKeyboardButton {
	return button("🔙 Menu", "menu")
}

func (b *Bot) MainMenuKeyboard(user models.User) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🎓 Alunos", "stu:list"),
		tgbotapi.NewInlineKeyboardButtonData("📝 Atendimentos", "att:list"),
	))
	rows = append(rows, button("➕ Novo atendimento", "att:new"))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📊 Painel", "stats"),
		tgbotapi.NewInlineKeyboardButtonData("📄 Relatórios", "rep:menu"),
	))

	if user.IsAdmin() {
		rows = append(rows, button("👥 Tutores e usuários", "usr:list"))
	}
	rows = append(rows, button("🚪 Sair", "logout"))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) StudentListKeyboard(students []models.StudentSummary, isAdmin bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, s := range students {
		if i == maxListButtons {
			break
		}
		rows = append(rows, button(fmt.Sprintf("%s · %s", s.ID, s.Name), "stu:view:"+s.ID))
	}
	rows = append(rows, button("🔎 Buscar", "stu:search"))
	if isAdmin {
		rows = append(rows, button("➕ Novo aluno", "stu:new"))
	}
	rows = append(rows, BackRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) StudentKeyboard(id string, isAdmin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		button("➕ Registrar atendimento", "att:for:"+id),
		button("🗂 Histórico de atendimentos", "stu:history:"+id),
	}
	if isAdmin {
		rows = append(rows, button("🗑 Excluir aluno", "stu:del:"+id))
	}
	rows = append(rows, BackRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// SeriesKeyboard offers the grade levels by index into models.SeriesOptions.
func (b *Bot) SeriesKeyboard() tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, s := range models.SeriesOptions {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(s, fmt.Sprintf("series:%d", i)))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) ClassLetterKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for _, l := range models.ClassLetters {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(l, "letter:"+l))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// TutorKeyboard lists every user a student can be assigned to.
func (b *Bot) TutorKeyboard(users []models.User) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, u := range users {
		rows = append(rows, button(u.Name, "tutor:"+u.ID))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) AttendanceStudentKeyboard(students []models.StudentSummary) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, s := range students {
		if i == maxListButtons {
			break
		}
		rows = append(rows, button(s.Name, "att_student:"+s.ID))
	}
	rows = append(rows, BackRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) DimensionKeyboard() tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for i, d := range models.FormDimensions {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(string(d), fmt.Sprintf("att_dim:%d", i)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (b *Bot) AttendanceListKeyboard(attendances []models.Attendance) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, a := range attendances {
		if i == maxListButtons {
			break
		}
		rows = append(rows, button(fmt.Sprintf("%s · %s", a.Date, a.StudentName), "att:view:"+a.ID))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Novo", "att:new"),
		tgbotapi.NewInlineKeyboardButtonData("🔎 Buscar", "att:search"),
	))
	rows = append(rows, BackRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) AttendanceKeyboard(a models.Attendance, editable bool) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if editable {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Editar", "att:edit:"+a.ID),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Excluir", "att:del:"+a.ID),
		))
	}
	rows = append(rows, BackRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) UserListKeyboard(users []models.User) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, u := range users {
		rows = append(rows, button(fmt.Sprintf("%s · %s", u.ID, u.Name), "usr:view:"+u.ID))
	}
	rows = append(rows, button("➕ Novo usuário", "usr:new"))
	rows = append(rows, BackRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) UserKeyboard(id string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("🔑 Alterar senha", "usr:pw:"+id),
		button("🗑 Excluir", "usr:del:"+id),
		BackRow(),
	)
}

func (b *Bot) RoleSelectionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		button("👩‍🏫 Tutor", "usr_role:"+string(models.RoleTutor)),
		button("👑 Administrador", "usr_role:"+string(models.RoleAdmin)),
	)
}

func (b *Bot) ConfirmKeyboard(yesData string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Confirmar", yesData),
		tgbotapi.NewInlineKeyboardButtonData("❌ Cancelar", "menu"),
	))
}

func (b *Bot) ReportsKeyboard(groups []dashboard.TutorGroup) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		button("📋 Alunos (CSV)", "rep:csv"),
		button("📝 Atendimentos (TXT)", "rep:txt"),
		button("📗 Planilha completa (XLSX)", "rep:xlsx"),
	}
	for _, g := range groups {
		if len(g.Students) == 0 {
			continue
		}
		rows = append(rows, button("👥 "+g.TutorName, "rep:tutor:"+g.TutorID))
	}
	rows = append(rows, BackRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
