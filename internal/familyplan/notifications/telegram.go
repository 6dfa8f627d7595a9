// Сервис Telegram бота: прием обновлений, роутинг команд и кнопок, диалоговые сессии.
//
// Основные возможности:
//   - Подключение к Telegram Bot API, long polling либо вебхук.
//   - Главное меню, списки задач и покупок, выполнение записей.
//   - Управление семьей: приглашения, роли, удаление участников, переименование.
//   - Журнал активности с пагинацией и фильтрами (только родителю).
//   - Настройки уведомлений и эмодзи главного меню.
package notifications

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/apierrors"
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/config"
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/dao"
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"gorm.io/gorm"
)

const helpMSG = `Привет, я семейный бот ФамилиПлан, вот список моих основных команд:
/start - главное меню
/cancel - отмена текущей операции

Кнопки меню:
➕ Добавить - новая задача или покупка
📋 Задачи и 🛒 Покупки - открытые списки семьи
👨‍👩‍👧‍👦 Семья - участники и приглашения
🔔 Уведомления - настройка личных уведомлений
`

// Эмодзи категорий записей журнала активности
var actionEmoji = map[string]string{
	dao.ActionTask:     "📋",
	dao.ActionShopping: "🛒",
	dao.ActionRole:     "👑",
	dao.ActionRemove:   "❌",
	dao.ActionRename:   "✏️",
	dao.ActionJoin:     "➕",
	dao.ActionOther:    "📌",
}

var historyFilterNames = map[string]string{
	"all":      "Все",
	"task":     "Задачи",
	"shopping": "Покупки",
	"admin":    "Админ-логи",
}

type TelegramService struct {
	db             *gorm.DB
	bot            *tgbotapi.BotAPI
	cfg            *config.Config
	sessionHandler *SessionHandler
	dispatcher     *Dispatcher
	sender         Sender
	resolve        NameResolver
}

func NewTelegramService(db *gorm.DB, cfg *config.Config) *TelegramService {
	tgbotapi.SetLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelError))

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		slog.Error("Connect to TG bot", "err", err)
		os.Exit(1)
	}

	slog.Info("TG bot connected", "username", bot.Self.UserName)

	sender := NewBotSender(bot)
	ts := &TelegramService{
		db:             db,
		bot:            bot,
		cfg:            cfg,
		sessionHandler: NewSessionHandler(time.Duration(cfg.SessionTTLMinutes) * time.Minute),
		dispatcher:     NewDispatcher(db, sender),
		sender:         sender,
		resolve:        BotNameResolver(bot),
	}
	return ts
}

func (ts *TelegramService) Sender() Sender          { return ts.sender }
func (ts *TelegramService) Resolver() NameResolver  { return ts.resolve }
func (ts *TelegramService) Dispatcher() *Dispatcher { return ts.dispatcher }

// StartLongPolling запускает обработку обновлений через long polling. Используется, когда вебхук не настроен.
func (ts *TelegramService) StartLongPolling() {
	if _, err := ts.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		slog.Warn("Delete webhook before polling", "err", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := ts.bot.GetUpdatesChan(u)
	go ts.handleUpdates(updates)
}

// StartWebhook регистрирует вебхук и возвращает канал, в который HTTP-слой кладет декодированные обновления.
//
// Параметры:
//   - publicURL: внешний адрес эндпоинта вебхука.
//   - secret: секретный токен вебхука; пустая строка отключает проверку.
//
// Возвращает:
//   - chan tgbotapi.Update: канал обновлений для HTTP-слоя.
//   - error: ошибка регистрации вебхука.
func (ts *TelegramService) StartWebhook(publicURL string, secret string) (chan tgbotapi.Update, error) {
	params := tgbotapi.Params{"url": publicURL}
	if secret != "" {
		params["secret_token"] = secret
	}
	if _, err := ts.bot.MakeRequest("setWebhook", params); err != nil {
		return nil, err
	}
	slog.Info("Webhook set", "url", publicURL)

	updates := make(chan tgbotapi.Update, 64)
	go ts.handleUpdates(updates)
	return updates, nil
}

// Shutdown снимает вебхук при остановке процесса.
func (ts *TelegramService) Shutdown() {
	if ts.cfg.WebURL != nil {
		if _, err := ts.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			slog.Warn("Delete webhook on shutdown", "err", err)
		}
	}
	ts.bot.StopReceivingUpdates()
}

func (ts *TelegramService) handleUpdates(updates <-chan tgbotapi.Update) {
	for update := range updates {
		from := update.SentFrom()
		chat := update.FromChat()
		if from == nil || chat == nil || !chat.IsPrivate() {
			continue
		}
		userID := from.ID

		if ts.sessionHandler.IsBusy(userID) {
			ts.handleSessionUpdate(userID, update)
			continue
		}

		if update.CallbackQuery != nil {
			ts.handleCallback(userID, update.CallbackQuery)
			continue
		}

		if update.Message == nil {
			continue
		}

		switch update.Message.Command() {
		case "start":
			ts.handleStart(userID, update.Message)
			continue
		case "cancel":
			ts.send(tgbotapi.NewMessage(userID, "Нет активной операции"))
			continue
		case "help":
			ts.send(tgbotapi.NewMessage(userID, helpMSG))
			continue
		}

		ts.handleMenu(userID, update.Message.Text)
	}
}

// handleSessionUpdate продолжает активную диалоговую сессию пользователя.
func (ts *TelegramService) handleSessionUpdate(userID int64, update tgbotapi.Update) {
	if update.Message != nil && update.Message.Command() == "cancel" {
		ts.sessionHandler.Abort(userID)
		ts.send(tgbotapi.NewMessage(userID, "Операция прервана"))
		return
	}

	if update.CallbackQuery != nil {
		ts.bot.Request(tgbotapi.NewCallback(update.CallbackQuery.ID, ""))
	}

	if err := ts.sessionHandler.Answer(userID, update); err != nil {
		ts.send(tgbotapi.NewMessage(userID, fmt.Sprintf("%s\nВы можете попробовать еще раз или отменить операцию /cancel", err.Error())))
		return
	}

	step, end := ts.sessionHandler.Next(userID)
	if end {
		ts.sessionHandler.Abort(userID)
		return
	}
	ts.send(step.Question)
}

// handleStart обрабатывает /start: присоединение по пригласительной ссылке либо ленивое создание семьи.
func (ts *TelegramService) handleStart(userID int64, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())

	if encoded, ok := strings.CutPrefix(args, "join_"); ok {
		familyID, err := utils.Base64ToUUID(encoded)
		if err != nil {
			ts.replyErr(userID, apierrors.ErrBadInviteLink)
			return
		}
		family, err := dao.JoinFamily(ts.db, userID, familyID)
		if err != nil {
			ts.replyErr(userID, err)
			return
		}

		name := ts.displayName(userID)
		ts.dispatcher.NotifyFamily(family.ID, userID, fmt.Sprintf("➕ %s присоединился к семье %s", name, family.Name), LevelImportant)
		ts.send(tgbotapi.NewMessage(userID, "🎉 Вы присоединились к семье!"))
		ts.sendMenu(userID)
		return
	}

	if _, err := dao.EnsureFamily(ts.db, userID); err != nil {
		ts.replyErr(userID, err)
		return
	}
	ts.sendMenu(userID)
}

func (ts *TelegramService) sendMenu(userID int64) {
	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}
	msg := tgbotapi.NewMessage(userID, "Добро пожаловать 👋")
	msg.ReplyMarkup = mainMenu(member.Family, member.IsParent())
	ts.send(msg)
}

// handleMenu роутит кнопки главного меню. Сравнение идет по тексту после эмодзи, так как эмодзи настраиваются для каждой семьи.
func (ts *TelegramService) handleMenu(userID int64, text string) {
	switch {
	case strings.HasSuffix(text, menuAdd):
		ts.startAddItemFlow(userID)
	case strings.HasSuffix(text, menuTasks):
		ts.showItems(userID, dao.KindTask)
	case strings.HasSuffix(text, menuShopping):
		ts.showItems(userID, dao.KindShopping)
	case strings.HasSuffix(text, menuFamily):
		ts.showFamily(userID)
	case strings.HasSuffix(text, menuHistory):
		ts.showHistory(userID, 0, "all", nil)
	case strings.HasSuffix(text, menuNotify):
		ts.showNotifySettings(userID)
	case strings.HasSuffix(text, menuSettings):
		ts.showSettings(userID)
	}
}

// startAddItemFlow начинает двухшаговый диалог добавления: текст записи, затем выбор вида (задача или покупка).
func (ts *TelegramService) startAddItemFlow(userID int64) {
	confirm := tgbotapi.NewMessage(userID, "Добавить как:")
	confirm.ReplyMarkup = confirmKindKeyboard()

	flow := Flow{steps: []Step{
		{
			Question:    tgbotapi.NewMessage(userID, "Введите текст задачи или покупки:"),
			convertFunc: convertString,
		},
		{
			Question:    confirm,
			convertFunc: convertCallback,
		},
	}, resultFunc: ts.finishAddItem}

	step, end := ts.sessionHandler.StartSession(userID, flow)
	if end {
		return
	}
	ts.send(step.Question)
}

func (ts *TelegramService) finishAddItem(userID int64, args []interface{}) {
	text, tOk := args[0].(string)
	kindData, kOk := args[1].(string)
	if !tOk || !kOk {
		slog.Error("AddItem session wrong args", "args", args)
		return
	}

	kind := dao.KindTask
	verb := "задачу"
	if kindData == "confirm:shopping" {
		kind = dao.KindShopping
		verb = "покупку"
	}

	family, err := dao.EnsureFamily(ts.db, userID)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}

	item, err := dao.AddItem(ts.db, kind, family.ID, userID, text, nil)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}

	name := ts.displayName(userID)
	ts.dispatcher.NotifyFamily(family.ID, userID, fmt.Sprintf("%s добавил %s: %s", name, verb, item.Text), LevelAll)
	ts.send(tgbotapi.NewMessage(userID, "Добавлено ✅"))
}

// showItems отправляет список открытых записей с кнопками выполнения.
func (ts *TelegramService) showItems(userID int64, kind dao.ItemKind) {
	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}

	items, err := dao.OpenItems(ts.db, kind, member.FamilyID)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}

	msg := tgbotapi.NewMessage(userID, ts.renderItemList(member.Family, kind, items))
	if len(items) > 0 {
		msg.ReplyMarkup = itemListKeyboard(kind, items, kind == dao.KindShopping && member.IsParent())
	}
	ts.send(msg)
}

func (ts *TelegramService) renderItemList(family *dao.Family, kind dao.ItemKind, items []dao.Item) string {
	header := fmt.Sprintf("%s Задачи семьи:", family.EmojiTask)
	empty := "📋 Список задач пуст"
	if kind == dao.KindShopping {
		header = fmt.Sprintf("%s Список покупок:", family.EmojiShopping)
		empty = "🛒 Список покупок пуст"
	}
	if len(items) == 0 {
		return empty
	}

	var b strings.Builder
	b.WriteString(header + "\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s%s\n", i+1, item.Text, AssigneeLabel(item.AssignedTo, ts.resolve))
	}
	return b.String()
}

func (ts *TelegramService) showFamily(userID int64) {
	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}

	members, err := dao.FamilyMembers(ts.db, member.FamilyID)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\nУчастники:\n\n", member.Family.EmojiFamily, member.Family.Name)
	for _, m := range members {
		name := ts.displayName(m.UserID)
		role := "👶 Ребёнок"
		if m.IsParent() {
			role = "👑 Родитель"
		}
		fmt.Fprintf(&b, "%s — %s\n", role, name)
	}

	msg := tgbotapi.NewMessage(userID, b.String())
	if member.IsParent() {
		msg.ReplyMarkup = familyKeyboard(members, ts.resolve, userID)
	}
	ts.send(msg)
}

// showHistory отправляет или редактирует страницу журнала активности. Доступно только родителю.
func (ts *TelegramService) showHistory(userID int64, page int, filter string, edit *tgbotapi.Message) {
	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}
	if !member.IsParent() {
		ts.replyErr(userID, apierrors.ErrOnlyParent)
		return
	}

	rows, err := dao.ActivityPage(ts.db, member.FamilyID, page, dao.ActivityPageSize, filter)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}

	if len(rows) == 0 && page == 0 {
		ts.send(tgbotapi.NewMessage(userID, "📜 История пуста"))
		return
	}

	filterName := historyFilterNames[filter]
	if filterName == "" {
		filterName = historyFilterNames["all"]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s История: %s (стр. %d)\n\n", member.Family.EmojiHistory, filterName, page+1)
	for _, r := range rows {
		emoji := actionEmoji[r.ActionType]
		if emoji == "" {
			emoji = actionEmoji[dao.ActionOther]
		}
		fmt.Fprintf(&b, "%s %s | %s\n%s\n\n", emoji, r.CreatedAt.Format("02.01 15:04"), ts.displayName(r.UserID), r.Action)
	}

	keyboard := historyKeyboard(page, len(rows) == dao.ActivityPageSize, filter)
	if edit != nil {
		ts.send(tgbotapi.NewEditMessageTextAndMarkup(edit.Chat.ID, edit.MessageID, b.String(), keyboard))
		return
	}
	msg := tgbotapi.NewMessage(userID, b.String())
	msg.ReplyMarkup = keyboard
	ts.send(msg)
}

func (ts *TelegramService) showNotifySettings(userID int64) {
	pref, err := dao.NotificationPref(ts.db, userID)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}
	msg := tgbotapi.NewMessage(userID, "🔔 Уведомления:\n\nВсе - каждое событие семьи\nВажные - только важные события\nВыкл - ничего не приходит")
	msg.ReplyMarkup = notifyPrefKeyboard(pref)
	ts.send(msg)
}

func (ts *TelegramService) showSettings(userID int64) {
	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.replyErr(userID, err)
		return
	}
	if !member.IsParent() {
		ts.replyErr(userID, apierrors.ErrOnlyParent)
		return
	}

	family := member.Family
	text := fmt.Sprintf("🎨 Настройки семьи: %s\n\nТекущие эмодзи:\n\n%s Добавить\n%s Задачи\n%s Покупки\n%s Семья\n%s История\n\nВыберите, что хотите изменить:",
		family.Name, family.EmojiAdd, family.EmojiTask, family.EmojiShopping, family.EmojiFamily, family.EmojiHistory)

	msg := tgbotapi.NewMessage(userID, text)
	msg.ReplyMarkup = settingsKeyboard()
	ts.send(msg)
}

func (ts *TelegramService) handleCallback(userID int64, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	switch {
	case strings.HasPrefix(data, "task_done:"):
		ts.completeItem(userID, cb, dao.KindTask, strings.TrimPrefix(data, "task_done:"))
	case strings.HasPrefix(data, "shop_done:"):
		ts.completeItem(userID, cb, dao.KindShopping, strings.TrimPrefix(data, "shop_done:"))
	case data == "clear_completed":
		ts.clearCompleted(userID, cb)
	case strings.HasPrefix(data, "history:"):
		ts.historyCallback(userID, cb)
	case strings.HasPrefix(data, "notif:"):
		ts.setNotifyPref(userID, cb, strings.TrimPrefix(data, "notif:"))
	case strings.HasPrefix(data, "emoji:"):
		ts.emojiCallback(userID, cb, strings.TrimPrefix(data, "emoji:"))
	case data == "family_invite":
		ts.sendInvite(userID, cb)
	case data == "family_rename":
		ts.startRenameFlow(userID, cb)
	case strings.HasPrefix(data, "role:"):
		ts.toggleRole(userID, cb, strings.TrimPrefix(data, "role:"))
	case strings.HasPrefix(data, "remove:"):
		ts.removeMember(userID, cb, strings.TrimPrefix(data, "remove:"))
	default:
		ts.answerCallback(cb, "", false)
	}
}

// completeItem помечает запись выполненной и уведомляет автора, если запись выполнил не он. Повторное нажатие по уже выполненной записи дает только всплывающее сообщение, без дублей уведомлений.
func (ts *TelegramService) completeItem(userID int64, cb *tgbotapi.CallbackQuery, kind dao.ItemKind, encoded string) {
	itemID, err := utils.Base64ToUUID(encoded)
	if err != nil {
		ts.answerCallback(cb, apierrors.ErrItemNotFound.RuErr, true)
		return
	}

	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}

	item, err := dao.CompleteItem(ts.db, kind, member.FamilyID, userID, itemID)
	if err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}

	if item.CreatedBy != 0 && item.CreatedBy != userID {
		verb := "задачу"
		if kind == dao.KindShopping {
			verb = "покупку"
		}
		ts.dispatcher.NotifyUser(item.CreatedBy, fmt.Sprintf("✅ %s выполнил %s: %s", ts.displayName(userID), verb, item.Text))
	}

	ts.answerCallback(cb, "Выполнено! ✅", false)
	ts.refreshItemList(member, kind, cb.Message)
}

// refreshItemList перерисовывает сообщение со списком после изменения.
func (ts *TelegramService) refreshItemList(member *dao.FamilyMember, kind dao.ItemKind, msg *tgbotapi.Message) {
	if msg == nil {
		return
	}
	items, err := dao.OpenItems(ts.db, kind, member.FamilyID)
	if err != nil {
		slog.Error("Refresh item list", "family_id", member.FamilyID, "err", err)
		return
	}
	text := ts.renderItemList(member.Family, kind, items)
	if len(items) == 0 {
		ts.send(tgbotapi.NewEditMessageText(msg.Chat.ID, msg.MessageID, text))
		return
	}
	ts.send(tgbotapi.NewEditMessageTextAndMarkup(msg.Chat.ID, msg.MessageID, text,
		itemListKeyboard(kind, items, kind == dao.KindShopping && member.IsParent())))
}

// clearCompleted удаляет выполненные покупки семьи; при включенной настройке очищаются и выполненные задачи. Только для родителя.
func (ts *TelegramService) clearCompleted(userID int64, cb *tgbotapi.CallbackQuery) {
	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}
	if !member.IsParent() {
		ts.answerCallback(cb, apierrors.ErrOnlyParent.RuErr, true)
		return
	}

	removed, err := dao.ClearCompleted(ts.db, dao.KindShopping, member.FamilyID, userID)
	if err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}
	if ts.cfg.ClearCompletedTasks {
		n, err := dao.ClearCompleted(ts.db, dao.KindTask, member.FamilyID, userID)
		if err != nil {
			ts.answerCallback(cb, errText(err), true)
			return
		}
		removed += n
	}

	ts.answerCallback(cb, fmt.Sprintf("Удалено: %d 🧹", removed), false)
	ts.refreshItemList(member, dao.KindShopping, cb.Message)
}

func (ts *TelegramService) historyCallback(userID int64, cb *tgbotapi.CallbackQuery) {
	// history:<filter>:<page>
	parts := strings.Split(cb.Data, ":")
	if len(parts) != 3 {
		ts.answerCallback(cb, "", false)
		return
	}
	page, err := strconv.Atoi(parts[2])
	if err != nil || page < 0 {
		page = 0
	}
	ts.answerCallback(cb, "", false)
	ts.showHistory(userID, page, parts[1], cb.Message)
}

func (ts *TelegramService) setNotifyPref(userID int64, cb *tgbotapi.CallbackQuery, pref string) {
	if err := dao.SetNotificationPref(ts.db, userID, pref); err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}
	ts.answerCallback(cb, "Сохранено ✅", false)
	if cb.Message != nil {
		ts.send(tgbotapi.NewEditMessageTextAndMarkup(cb.Message.Chat.ID, cb.Message.MessageID, cb.Message.Text, notifyPrefKeyboard(pref)))
	}
}

// emojiCallback обрабатывает меню настройки эмодзи: сброс либо запуск диалога смены эмодзи слота.
func (ts *TelegramService) emojiCallback(userID int64, cb *tgbotapi.CallbackQuery, slot string) {
	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}
	if !member.IsParent() {
		ts.answerCallback(cb, apierrors.ErrOnlyParent.RuErr, true)
		return
	}

	if slot == "reset" {
		if err := dao.ResetFamilyEmojis(ts.db, userID, member.FamilyID); err != nil {
			ts.answerCallback(cb, errText(err), true)
			return
		}
		ts.answerCallback(cb, "✅ Эмодзи сброшены на стандартные", true)
		ts.sendMenu(userID)
		return
	}

	familyID := member.FamilyID
	flow := Flow{steps: []Step{
		{
			Question:    tgbotapi.NewMessage(userID, "Отправьте новый эмодзи для кнопки:\n\nНапример: 🎯 или 🏠 или любой другой эмодзи"),
			convertFunc: convertString,
		},
	}, resultFunc: func(userID int64, answers []interface{}) {
		emoji, ok := answers[0].(string)
		if !ok {
			return
		}
		if err := dao.SetFamilyEmoji(ts.db, userID, familyID, slot, strings.TrimSpace(emoji)); err != nil {
			ts.replyErr(userID, err)
			return
		}
		ts.send(tgbotapi.NewMessage(userID, fmt.Sprintf("✅ Эмодзи изменён на %s", strings.TrimSpace(emoji))))
		ts.sendMenu(userID)
	}}

	ts.answerCallback(cb, "", false)
	step, end := ts.sessionHandler.StartSession(userID, flow)
	if end {
		return
	}
	ts.send(step.Question)
}

// sendInvite отправляет родителю пригласительную ссылку с зашитым идентификатором семьи.
func (ts *TelegramService) sendInvite(userID int64, cb *tgbotapi.CallbackQuery) {
	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}
	if !member.IsParent() {
		ts.answerCallback(cb, apierrors.ErrOnlyParent.RuErr, true)
		return
	}

	ts.answerCallback(cb, "", false)
	link := fmt.Sprintf("https://t.me/%s?start=join_%s", ts.bot.Self.UserName, utils.UUIDToBase64(member.FamilyID))
	ts.send(tgbotapi.NewMessage(userID, fmt.Sprintf("👨‍👩‍👧‍👦 Пригласительная ссылка:\n\n%s\n\nОтправьте эту ссылку члену семьи для присоединения.", link)))
}

func (ts *TelegramService) startRenameFlow(userID int64, cb *tgbotapi.CallbackQuery) {
	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}
	if !member.IsParent() {
		ts.answerCallback(cb, apierrors.ErrOnlyParent.RuErr, true)
		return
	}

	familyID := member.FamilyID
	flow := Flow{steps: []Step{
		{
			Question:    tgbotapi.NewMessage(userID, "Введите новое название семьи:"),
			convertFunc: convertString,
		},
	}, resultFunc: func(userID int64, answers []interface{}) {
		name, ok := answers[0].(string)
		if !ok {
			return
		}
		saved, err := dao.RenameFamily(ts.db, userID, familyID, strings.TrimSpace(name))
		if err != nil {
			ts.replyErr(userID, err)
			return
		}
		ts.dispatcher.NotifyFamily(familyID, userID, fmt.Sprintf("✏️ Новое название семьи: %s", saved), LevelAll)
		ts.send(tgbotapi.NewMessage(userID, fmt.Sprintf("✅ Название семьи изменено на: %s", saved)))
		ts.sendMenu(userID)
	}}

	ts.answerCallback(cb, "", false)
	step, end := ts.sessionHandler.StartSession(userID, flow)
	if end {
		return
	}
	ts.send(step.Question)
}

// toggleRole меняет роль участника на противоположную. Только для родителя; понижение последнего родителя отклоняется.
func (ts *TelegramService) toggleRole(userID int64, cb *tgbotapi.CallbackQuery, rawTarget string) {
	targetID, err := strconv.ParseInt(rawTarget, 10, 64)
	if err != nil {
		ts.answerCallback(cb, apierrors.ErrMemberNotFound.RuErr, true)
		return
	}

	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}
	if !member.IsParent() {
		ts.answerCallback(cb, apierrors.ErrOnlyParent.RuErr, true)
		return
	}

	target, err := dao.GetFamilyMember(ts.db, targetID)
	if err != nil || target.FamilyID != member.FamilyID {
		ts.answerCallback(cb, apierrors.ErrMemberNotFound.RuErr, true)
		return
	}

	newRole := dao.RoleParent
	if target.IsParent() {
		newRole = dao.RoleChild
	}
	if err := dao.ChangeRole(ts.db, userID, member.FamilyID, targetID, newRole); err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}

	ts.dispatcher.NotifyFamily(member.FamilyID, userID, fmt.Sprintf("👑 Роль участника %s изменена", ts.displayName(targetID)), LevelImportant)
	ts.answerCallback(cb, "Роль изменена ✅", false)
}

// removeMember удаляет участника из семьи. Семья уведомляется на уровне important, удаленному отправляется прямое уведомление best-effort.
func (ts *TelegramService) removeMember(userID int64, cb *tgbotapi.CallbackQuery, rawTarget string) {
	targetID, err := strconv.ParseInt(rawTarget, 10, 64)
	if err != nil {
		ts.answerCallback(cb, apierrors.ErrMemberNotFound.RuErr, true)
		return
	}

	member, err := dao.GetFamilyMember(ts.db, userID)
	if err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}
	if !member.IsParent() {
		ts.answerCallback(cb, apierrors.ErrOnlyParent.RuErr, true)
		return
	}

	targetName := ts.displayName(targetID)
	if err := dao.RemoveMember(ts.db, userID, member.FamilyID, targetID); err != nil {
		ts.answerCallback(cb, errText(err), true)
		return
	}

	ts.dispatcher.NotifyFamily(member.FamilyID, userID, fmt.Sprintf("❌ %s удален из семьи", targetName), LevelImportant)
	ts.dispatcher.NotifyUser(targetID, fmt.Sprintf("Вас удалили из семьи %s", member.Family.Name))
	ts.answerCallback(cb, "Участник удален", false)
}

func (ts *TelegramService) displayName(userID int64) string {
	name := ts.resolve(userID)
	if name == "" {
		return fmt.Sprintf("%d", userID)
	}
	return name
}

// replyErr показывает пользователю текст известной ошибки; неизвестные ошибки логируются и заменяются общим сообщением.
func (ts *TelegramService) replyErr(userID int64, err error) {
	ts.send(tgbotapi.NewMessage(userID, errText(err)))
}

func errText(err error) string {
	var defined apierrors.DefinedError
	if errors.As(err, &defined) {
		return defined.RuErr
	}
	slog.Error("Unhandled bot error", "err", err)
	return "Произошла ошибка, попробуйте позже"
}

func (ts *TelegramService) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) {
	callback := tgbotapi.NewCallback(cb.ID, text)
	callback.ShowAlert = alert
	if _, err := ts.bot.Request(callback); err != nil {
		slog.Debug("Answer callback", "err", err)
	}
}

func (ts *TelegramService) send(c tgbotapi.Chattable) {
	if _, err := ts.bot.Send(c); err != nil {
		slog.Error("Send TG message", "err", err)
	}
}
