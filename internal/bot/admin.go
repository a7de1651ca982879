package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"practice-tracker/internal/dates"
	"practice-tracker/internal/excel"
	"practice-tracker/internal/repository"
	"practice-tracker/internal/service"
)

func (b *Bot) handleAdminPanel(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.isAdmin(ctx, msg.From.ID) {
		return b.sendText(msg.Chat.ID, "Эта команда доступна только администраторам.")
	}

	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnExport)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnImport)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnAddTask)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSetReminder)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnManageAdmin)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnWipe)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnBack)),
	)
	kb.ResizeKeyboard = true

	out := tgbotapi.NewMessage(msg.Chat.ID, "👨‍💼 <b>Панель администратора</b>")
	out.ParseMode = tgbotapi.ModeHTML
	out.ReplyMarkup = kb
	_, err := b.api.Send(out)
	return err
}

// --- Manual task intake ---

func (b *Bot) startAddTask(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.isAdmin(ctx, msg.From.ID) {
		return b.sendText(msg.Chat.ID, "Эта команда доступна только администраторам.")
	}
	b.setStage(msg.From.ID, stageAddFullName)
	return b.sendText(msg.Chat.ID, "🆕 Введите ФИО владельца задачи:")
}

func (b *Bot) handleAddTaskDialog(ctx context.Context, msg *tgbotapi.Message, sess *session) error {
	text := strings.TrimSpace(msg.Text)

	switch sess.stage {
	case stageAddFullName:
		if len(strings.Fields(text)) < 2 {
			return b.sendText(msg.Chat.ID, "❌ Введите полное ФИО (минимум имя и фамилия).")
		}
		sess.fullName = text
		sess.stage = stageAddPractice
		return b.sendText(msg.Chat.ID, "Введите название практики или описание задачи:")

	case stageAddPractice:
		if text == "" {
			return b.sendText(msg.Chat.ID, "❌ Описание не может быть пустым.")
		}
		sess.practiceName = text
		sess.stage = stageAddEndDate
		return b.sendText(msg.Chat.ID, "Укажите дату окончания (<code>15.07.2025</code> или <code>2025-07-15</code>):")

	case stageAddEndDate:
		endDate, err := dates.ParseDate(text, b.config.Location)
		if err != nil {
			return b.sendText(msg.Chat.ID, "❌ Неверный формат даты. Используйте <code>15.07.2025</code> или <code>2025-07-15</code>.")
		}

		owner, err := b.userRepo.GetOrCreateByFullName(ctx, sess.fullName, "", "")
		if err != nil {
			b.clearSession(msg.From.ID)
			return b.sendText(msg.Chat.ID, "❌ Не удалось создать пользователя.")
		}

		task, err := b.taskSvc.CreateTask(ctx, service.TaskInput{
			OwnerID:      owner.ID,
			PracticeName: sess.practiceName,
			EndDate:      endDate,
		})
		b.clearSession(msg.From.ID)
		if err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Не удалось сохранить задачу: %s", escape(err.Error())))
		}

		log.Printf("[info] task created id=%d owner=%d by admin=%d", task.ID, owner.ID, msg.From.ID)
		return b.sendText(msg.Chat.ID, fmt.Sprintf(
			"✅ Задача добавлена для %s.\nНапоминание: %s",
			escape(owner.FullName), task.NextReminder.Format("2006-01-02 15:04")))

	default:
		b.clearSession(msg.From.ID)
		return nil
	}
}

// --- Reminder rescheduling ---

func (b *Bot) startSetReminder(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.isAdmin(ctx, msg.From.ID) {
		return b.sendText(msg.Chat.ID, "Эта команда доступна только администраторам.")
	}
	b.setStage(msg.From.ID, stageRemindFullName)
	return b.sendText(msg.Chat.ID, "⏰ Введите ФИО владельца задачи:")
}

func (b *Bot) handleSetReminderDialog(ctx context.Context, msg *tgbotapi.Message, sess *session) error {
	text := strings.TrimSpace(msg.Text)

	switch sess.stage {
	case stageRemindFullName:
		owner, tasks, err := b.taskSvc.TasksByOwnerName(ctx, text)
		if err != nil {
			if errors.Is(err, repository.ErrAmbiguousName) {
				b.clearSession(msg.From.ID)
				return b.sendAmbiguousUsers(ctx, msg.Chat.ID, text)
			}
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
		}
		if owner == nil {
			b.clearSession(msg.From.ID)
			return b.sendText(msg.Chat.ID, "❌ Пользователь не найден.")
		}
		if len(tasks) == 0 {
			b.clearSession(msg.From.ID)
			return b.sendText(msg.Chat.ID, "❌ У пользователя нет задач.")
		}

		sess.taskChoices = tasks
		sess.stage = stageRemindTaskChoice

		var builder strings.Builder
		builder.WriteString(fmt.Sprintf("📋 Выберите задачу (1–%d):\n", len(tasks)))
		for i, task := range tasks {
			builder.WriteString(fmt.Sprintf("%d. %s (до %s, %s)\n",
				i+1, escape(shortTitle(taskTitle(task), 30)), dates.FormatDate(task.EndDate), task.Status.Label()))
		}
		return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))

	case stageRemindTaskChoice:
		idx, err := strconv.Atoi(text)
		if err != nil || idx < 1 || idx > len(sess.taskChoices) {
			return b.sendText(msg.Chat.ID, "❌ Неверный номер. Попробуйте снова.")
		}
		sess.remindTask = sess.taskChoices[idx-1].ID
		sess.stage = stageRemindWhen
		return b.sendText(msg.Chat.ID,
			"🕒 Выберите напоминание:\n"+
				"• 1 — через 1 день\n"+
				"• 3 — через 3 дня\n"+
				"• 7 — через неделю\n"+
				"• Или введите дату: <code>2025-07-20 14:30</code>")

	case stageRemindWhen:
		var at time.Time
		switch text {
		case "1", "3", "7":
			days, _ := strconv.Atoi(text)
			at = time.Now().In(b.config.Location).AddDate(0, 0, days)
		default:
			parsed, err := dates.ParseDateTime(text, b.config.Location)
			if err != nil {
				return b.sendText(msg.Chat.ID, "❌ Неверный формат. Используйте 1/3/7 или <code>2025-07-20 14:30</code>.")
			}
			at = parsed
		}

		taskID := sess.remindTask
		b.clearSession(msg.From.ID)
		if err := b.taskSvc.RescheduleReminder(ctx, taskID, at); err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Не удалось обновить напоминание: %s", escape(err.Error())))
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Напоминание установлено на %s", at.Format("2006-01-02 15:04")))

	default:
		b.clearSession(msg.From.ID)
		return nil
	}
}

// --- Admin rights ---

func (b *Bot) startAdminManage(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.isAdmin(ctx, msg.From.ID) {
		return b.sendText(msg.Chat.ID, "Эта команда доступна только администраторам.")
	}
	b.setStage(msg.From.ID, stageAdminName)
	return b.sendText(msg.Chat.ID, "👑 Введите ФИО пользователя:")
}

func (b *Bot) handleAdminManageDialog(ctx context.Context, msg *tgbotapi.Message, sess *session) error {
	text := strings.TrimSpace(msg.Text)

	switch sess.stage {
	case stageAdminName:
		users, err := b.userRepo.FindByFullName(ctx, text)
		if err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
		}
		switch len(users) {
		case 0:
			b.clearSession(msg.From.ID)
			return b.sendText(msg.Chat.ID, "❌ Пользователь не найден.")
		case 1:
			sess.target = users[0]
			sess.stage = stageAdminConfirm
			action := "назначить админом"
			current := "обычный"
			if users[0].IsAdmin {
				action = "удалить из админов"
				current = "админ"
			}
			return b.sendText(msg.Chat.ID, fmt.Sprintf(
				"Пользователь: <b>%s</b>\nТекущий статус: %s\n\nПодтвердите: %s? (да/нет)",
				escape(users[0].FullName), current, action))
		default:
			b.clearSession(msg.From.ID)
			return b.sendAmbiguousUsers(ctx, msg.Chat.ID, text)
		}

	case stageAdminConfirm:
		target := sess.target
		b.clearSession(msg.From.ID)
		if !isYesInput(text) {
			return b.sendText(msg.Chat.ID, "❌ Отменено.")
		}
		if err := b.userRepo.SetAdmin(ctx, target.ID, !target.IsAdmin); err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Не удалось обновить права: %s", escape(err.Error())))
		}
		outcome := "назначен админом"
		if target.IsAdmin {
			outcome = "лишён прав админа"
		}
		log.Printf("[info] admin flag toggled user=%d by=%d", target.ID, msg.From.ID)
		return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ %s %s.", escape(target.FullName), outcome))

	default:
		b.clearSession(msg.From.ID)
		return nil
	}
}

// sendAmbiguousUsers lists every record sharing the full name so the
// admin can disambiguate; no record is ever picked automatically.
func (b *Bot) sendAmbiguousUsers(ctx context.Context, chatID int64, fullName string) error {
	users, err := b.userRepo.FindByFullName(ctx, fullName)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}

	var builder strings.Builder
	builder.WriteString("⚠️ Найдено несколько пользователей:\n")
	for _, user := range users {
		builder.WriteString(fmt.Sprintf("• #%d %s", user.ID, escape(user.FullName)))
		if user.Username != "" {
			builder.WriteString(fmt.Sprintf(" (%s)", escape(user.Username)))
		}
		if user.IsAdmin {
			builder.WriteString(" — админ")
		}
		builder.WriteByte('\n')
	}
	builder.WriteString("\nУточните запись и обратитесь к разработчику для объединения дублей.")
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

// --- Database wipe ---

func (b *Bot) startWipe(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.isAdmin(ctx, msg.From.ID) {
		return b.sendText(msg.Chat.ID, "Эта команда доступна только администраторам.")
	}
	b.setStage(msg.From.ID, stageWipeTasks)
	return b.sendText(msg.Chat.ID, "⚠️ 1. Удалить ВСЕ задачи? (да/нет)")
}

func (b *Bot) handleWipeDialog(ctx context.Context, msg *tgbotapi.Message, sess *session) error {
	switch sess.stage {
	case stageWipeTasks:
		if isYesInput(msg.Text) {
			if err := b.taskSvc.WipeAll(ctx); err != nil {
				b.clearSession(msg.From.ID)
				return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Ошибка: %s", escape(err.Error())))
			}
			log.Printf("[info] all tasks wiped by admin=%d", msg.From.ID)
			if err := b.sendText(msg.Chat.ID, "✅ Все задачи удалены."); err != nil {
				return err
			}
		} else {
			if err := b.sendText(msg.Chat.ID, "⏭ Задачи сохранены."); err != nil {
				return err
			}
		}
		sess.stage = stageWipeUsers
		return b.sendText(msg.Chat.ID, "2. Удалить всех пользователей, кроме админов? (да/нет)")

	case stageWipeUsers:
		b.clearSession(msg.From.ID)
		if !isYesInput(msg.Text) {
			return b.sendText(msg.Chat.ID, "⏭ Пользователи сохранены.")
		}
		if err := b.userRepo.WipeExceptAdmins(ctx); err != nil {
			return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Ошибка: %s", escape(err.Error())))
		}
		log.Printf("[info] non-admin users wiped by admin=%d", msg.From.ID)
		return b.sendText(msg.Chat.ID, "✅ Пользователи удалены. Админы сохранены.")

	default:
		b.clearSession(msg.From.ID)
		return nil
	}
}

// --- Excel export / import ---

func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.isAdmin(ctx, msg.From.ID) {
		return b.sendText(msg.Chat.ID, "Эта команда доступна только администраторам.")
	}

	rows, err := b.taskSvc.ExportRows(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Не удалось выгрузить задачи: %s", escape(err.Error())))
	}
	if len(rows) == 0 {
		return b.sendText(msg.Chat.ID, "📭 Нет задач для выгрузки.")
	}

	path, err := excel.Export(rows)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Не удалось сформировать файл: %s", escape(err.Error())))
	}
	defer os.Remove(path)

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("📥 Все задачи (%d)", len(rows))
	_, err = b.api.Send(doc)
	return err
}

func (b *Bot) handleImportRequest(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.isAdmin(ctx, msg.From.ID) {
		return b.sendText(msg.Chat.ID, "Эта команда доступна только администраторам.")
	}

	path, err := excel.Template()
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Не удалось сформировать шаблон: %s", escape(err.Error())))
	}
	defer os.Remove(path)

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FilePath(path))
	doc.Caption = "📤 Заполните шаблон и пришлите файл .xlsx в этот чат."
	_, err = b.api.Send(doc)
	return err
}

func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) error {
	if !b.isAdmin(ctx, msg.From.ID) {
		return b.sendText(msg.Chat.ID, "Загрузка файлов доступна только администраторам.")
	}
	if !strings.HasSuffix(strings.ToLower(msg.Document.FileName), ".xlsx") {
		return b.sendText(msg.Chat.ID, "❌ Поддерживаются только файлы .xlsx.")
	}

	url, err := b.api.GetFileDirectURL(msg.Document.FileID)
	if err != nil {
		return b.sendText(msg.Chat.ID, "❌ Не удалось скачать файл, попробуйте ещё раз.")
	}
	resp, err := http.Get(url)
	if err != nil {
		return b.sendText(msg.Chat.ID, "❌ Не удалось скачать файл, попробуйте ещё раз.")
	}
	defer resp.Body.Close()

	rows, skipped, err := excel.Parse(resp.Body, b.config.Location)
	if err != nil {
		if errors.Is(err, excel.ErrMissingColumns) {
			return b.sendText(msg.Chat.ID, "❌ Файл должен содержать колонки <code>full_name</code> и <code>end_date</code>.")
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Ошибка обработки файла: %s", escape(err.Error())))
	}
	if len(rows) == 0 {
		return b.sendText(msg.Chat.ID, "❌ Файл не содержит валидных задач.")
	}

	report, err := b.importSvc.Import(ctx, rows)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Импорт прерван: %s", escape(err.Error())))
	}
	report.SkippedRows += skipped

	log.Printf("[info] import by admin=%d added=%d duplicates=%d skipped=%d",
		msg.From.ID, report.Added, report.Duplicates, report.SkippedRows)
	return b.sendText(msg.Chat.ID, fmt.Sprintf(
		"✅ Импорт завершён.\n• Добавлено: %d\n• Дубликаты: %d\n• Пропущено строк: %d",
		report.Added, report.Duplicates, report.SkippedRows))
}
