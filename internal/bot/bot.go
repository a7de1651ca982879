package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"

	"practice-tracker/internal/config"
	"practice-tracker/internal/dates"
	"practice-tracker/internal/model"
	"practice-tracker/internal/repository"
	"practice-tracker/internal/service"
	"practice-tracker/internal/status"
)

type dialogStage int

const (
	stageNone dialogStage = iota
	stageRegisterName
	stageAddFullName
	stageAddPractice
	stageAddEndDate
	stageRemindFullName
	stageRemindTaskChoice
	stageRemindWhen
	stageAdminName
	stageAdminConfirm
	stageWipeTasks
	stageWipeUsers
)

const cbStatusPrefix = "status:"

const (
	menuLabelMyTasks = "📋 Мои задачи"
	menuLabelAdmin   = "👨‍💼 Админ-панель"
	menuLabelHelp    = "ℹ️ Помощь"

	btnExport      = "📥 Выгрузить все задачи"
	btnImport      = "📤 Загрузить Excel"
	btnAddTask     = "➕ Добавить задачу вручную"
	btnSetReminder = "⏰ Настроить напоминание"
	btnManageAdmin = "👑 Назначить/удалить админа"
	btnWipe        = "🧹 Очистить БД"
	btnBack        = "⬅️ Главное меню"

	iconDefault = "🟢"
	iconDue     = "⏳"
	iconOverdue = "⚠️"
	iconDone    = "✅"
)

// session holds the ephemeral dialog state for one chat: the current
// stage plus whatever the multi-step flows have collected so far. It is
// fetched once per update and passed into handlers explicitly.
type session struct {
	stage dialogStage

	// manual task intake
	fullName     string
	practiceName string

	// reminder rescheduling
	taskChoices []model.Task
	remindTask  uint

	// admin toggle confirmation
	target model.User
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api       *tgbotapi.BotAPI
	userRepo  *repository.UserRepository
	taskSvc   *service.TaskService
	importSvc *service.ImportService
	config    *config.Config
	sessions  map[int64]*session
	mu        sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, taskSvc *service.TaskService, importSvc *service.ImportService, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:       api,
		userRepo:  userRepo,
		taskSvc:   taskSvc,
		importSvc: importSvc,
		config:    cfg,
		sessions:  make(map[int64]*session),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

// Notify implements service.Notifier for the daily reminder pass.
func (b *Bot) Notify(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.Document != nil {
		return b.handleDocument(ctx, msg)
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s", msg.From.ID, msg.Command())
		return b.handleCommand(ctx, msg)
	}

	sess := b.getSession(msg.From.ID)
	if sess.stage != stageNone {
		return b.handleDialog(ctx, msg, sess)
	}

	return b.handleMenu(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(ctx, msg)
	case "tasks":
		return b.handleMyTasks(ctx, msg)
	case "cancel":
		b.clearSession(msg.From.ID)
		return b.sendMenuFor(ctx, msg.Chat.ID, msg.From.ID, "⏪ Диалог отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleMenu(ctx context.Context, msg *tgbotapi.Message) error {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelMyTasks:
		return b.handleMyTasks(ctx, msg)
	case menuLabelHelp:
		return b.handleHelp(ctx, msg)
	case menuLabelAdmin:
		return b.handleAdminPanel(ctx, msg)
	case btnExport:
		return b.handleExport(ctx, msg)
	case btnImport:
		return b.handleImportRequest(ctx, msg)
	case btnAddTask:
		return b.startAddTask(ctx, msg)
	case btnSetReminder:
		return b.startSetReminder(ctx, msg)
	case btnManageAdmin:
		return b.startAdminManage(ctx, msg)
	case btnWipe:
		return b.startWipe(ctx, msg)
	case btnBack:
		return b.sendMenuFor(ctx, msg.Chat.ID, msg.From.ID, "🔹 Главное меню")
	default:
		return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Нажми «📋 Мои задачи» или набери /help.")
	}
}

func (b *Bot) handleDialog(ctx context.Context, msg *tgbotapi.Message, sess *session) error {
	switch sess.stage {
	case stageRegisterName:
		return b.handleRegisterName(ctx, msg, sess)
	case stageAddFullName, stageAddPractice, stageAddEndDate:
		return b.handleAddTaskDialog(ctx, msg, sess)
	case stageRemindFullName, stageRemindTaskChoice, stageRemindWhen:
		return b.handleSetReminderDialog(ctx, msg, sess)
	case stageAdminName, stageAdminConfirm:
		return b.handleAdminManageDialog(ctx, msg, sess)
	case stageWipeTasks, stageWipeUsers:
		return b.handleWipeDialog(ctx, msg, sess)
	default:
		b.clearSession(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.userRepo.FindByTelegramID(ctx, msg.From.ID)
	switch {
	case err == nil:
		return b.sendMenu(msg.Chat.ID, fmt.Sprintf("👋 Привет, %s!\nВыбери действие:", escape(user.FullName)), user.IsAdmin)
	case errors.Is(err, gorm.ErrRecordNotFound):
		b.setStage(msg.From.ID, stageRegisterName)
		return b.sendText(msg.Chat.ID, "👋 Добро пожаловать!\nПожалуйста, введите ваше ФИО.\nПример: <i>Иванов Иван Иванович</i>")
	default:
		return err
	}
}

func (b *Bot) handleRegisterName(ctx context.Context, msg *tgbotapi.Message, sess *session) error {
	fullName := strings.TrimSpace(msg.Text)
	if len(strings.Fields(fullName)) < 2 {
		return b.sendText(msg.Chat.ID, "❌ Пожалуйста, введите полное ФИО (минимум имя и фамилия).")
	}

	user, err := b.userRepo.RegisterFromTelegram(ctx, msg.From.ID, fullName, msg.From.UserName)
	if err != nil {
		if errors.Is(err, repository.ErrAmbiguousName) {
			b.clearSession(msg.From.ID)
			return b.sendText(msg.Chat.ID, "⚠️ В базе найдено несколько записей с таким ФИО. Обратитесь к администратору, чтобы он уточнил вашу запись.")
		}
		return b.sendText(msg.Chat.ID, "❌ Не удалось завершить регистрацию, попробуйте ещё раз.")
	}

	b.clearSession(msg.From.ID)
	log.Printf("[info] user registered id=%d tg=%d", user.ID, msg.From.ID)
	return b.sendMenu(msg.Chat.ID, "✅ Вы зарегистрированы!\nВыберите действие:", user.IsAdmin)
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• «📋 Мои задачи» — список ваших задач; статус меняется кнопками под списком\n" +
		"• напоминания приходят за неделю до срока и повторяются еженедельно, пока задача не «готово»\n" +
		"• /cancel — отменить текущий ввод"
	if b.isAdmin(ctx, msg.From.ID) {
		text += "\n• «👨‍💼 Админ-панель» — загрузка и выгрузка Excel, ручное добавление, напоминания, права"
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleMyTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.userRepo.FindByTelegramID(ctx, msg.From.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(msg.Chat.ID, "Сначала зарегистрируйтесь: /start")
		}
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	tasks, err := b.taskSvc.ListForOwner(ctx, user.ID)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Не удалось получить задачи: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(chatID, "📭 У тебя пока нет задач.")
	}

	now := time.Now().In(b.config.Location)
	var builder strings.Builder
	builder.WriteString("📋 <b>Твои задачи</b>\n")
	builder.WriteString("Кнопки под списком меняют статус задачи.\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		builder.WriteString(formatTask(task, now))

		var row []tgbotapi.InlineKeyboardButton
		for _, action := range status.Actions(task.Status) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("#%d %s", task.ID, action.Label()),
				fmt.Sprintf("%s%d:%s", cbStatusPrefix, task.ID, action),
			))
		}
		buttons = append(buttons, row)
	}

	out := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	out.ParseMode = tgbotapi.ModeHTML
	_, err = b.api.Send(out)
	return err
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("callback ack: %v", err)
	}

	if !strings.HasPrefix(cb.Data, cbStatusPrefix) {
		return nil
	}
	taskID, action, err := parseStatusCallback(cb.Data)
	if err != nil {
		return nil
	}

	chatID := cb.Message.Chat.ID
	user, err := b.userRepo.FindByTelegramID(ctx, cb.From.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(chatID, "Сначала зарегистрируйтесь: /start")
		}
		return err
	}

	task, err := b.taskSvc.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(chatID, "Задача не найдена или уже удалена.")
		}
		return b.sendText(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}
	if task.UserID != user.ID && !user.IsAdmin {
		return b.sendText(chatID, "Это не ваша задача.")
	}

	log.Printf("[info] status action user=%d task=%d action=%s", user.ID, taskID, action)
	task, err = b.taskSvc.Transition(ctx, taskID, action)
	if err != nil {
		if errors.Is(err, status.ErrInvalidTransition) {
			// Stale button, e.g. double tap. Show the actual state.
			if sendErr := b.sendText(chatID, "⚠️ Статус уже изменился, обновляю список."); sendErr != nil {
				return sendErr
			}
			return b.sendTaskList(ctx, chatID, user)
		}
		return b.sendText(chatID, fmt.Sprintf("Ошибка: %s", escape(err.Error())))
	}

	info := fmt.Sprintf("✅ Задача «%s» теперь в статусе «%s».", escape(taskTitle(*task)), task.Status.Label())
	if err := b.sendText(chatID, info); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func parseStatusCallback(data string) (uint, status.Action, error) {
	parts := strings.Split(strings.TrimPrefix(data, cbStatusPrefix), ":")
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("malformed callback %q", data)
	}
	id, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, "", err
	}
	action, ok := status.ParseAction(parts[1])
	if !ok {
		return 0, "", fmt.Errorf("unknown action %q", parts[1])
	}
	return uint(id), action, nil
}

func (b *Bot) isAdmin(ctx context.Context, telegramID int64) bool {
	user, err := b.userRepo.FindByTelegramID(ctx, telegramID)
	return err == nil && user.IsAdmin
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMenu(chatID int64, text string, admin bool) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard(admin)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendMenuFor(ctx context.Context, chatID, telegramID int64, text string) error {
	return b.sendMenu(chatID, text, b.isAdmin(ctx, telegramID))
}

func (b *Bot) getSession(userID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	sess, ok := b.sessions[userID]
	if !ok {
		sess = &session{}
		b.sessions[userID] = sess
	}
	return sess
}

func (b *Bot) setStage(userID int64, stage dialogStage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[userID] = &session{stage: stage}
}

func (b *Bot) clearSession(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.sessions, userID)
}

func mainMenuKeyboard(admin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelMyTasks),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	}
	if admin {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelAdmin),
		))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func taskTitle(task model.Task) string {
	if strings.TrimSpace(task.PracticeName) != "" {
		return strings.TrimSpace(task.PracticeName)
	}
	return strings.TrimSpace(task.Description)
}

func formatTask(task model.Task, now time.Time) string {
	var b strings.Builder

	icon := iconDefault
	switch {
	case task.Status == status.Done:
		icon = iconDone
	case now.After(task.EndDate):
		icon = iconOverdue
	case task.EndDate.Sub(now) <= 48*time.Hour:
		icon = iconDue
	}

	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s\n", icon, task.ID, escape(taskTitle(task))))
	if task.Status == status.Done || !now.After(task.EndDate) {
		b.WriteString(fmt.Sprintf("   📅 До: %s\n", dates.FormatDate(task.EndDate)))
	} else {
		b.WriteString(fmt.Sprintf("   📅 До: %s — <b>просрочено</b>\n", dates.FormatDate(task.EndDate)))
	}
	if desc := strings.TrimSpace(task.Description); desc != "" && desc != taskTitle(task) {
		b.WriteString(fmt.Sprintf("   📝 %s\n", escape(desc)))
	}
	b.WriteString(fmt.Sprintf("   📌 Статус: %s\n", task.Status.Label()))
	b.WriteByte('\n')
	return b.String()
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func isYesInput(text string) bool {
	switch strings.TrimSpace(strings.ToLower(text)) {
	case "да", "yes", "y":
		return true
	default:
		return false
	}
}

func escape(s string) string {
	return html.EscapeString(s)
}
