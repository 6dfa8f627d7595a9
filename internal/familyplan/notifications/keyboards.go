// Построение клавиатур Telegram бота.
//
// Основные возможности:
//   - Главное меню с настраиваемыми эмодзи семьи и родительскими кнопками.
//   - Inline-клавиатуры списков задач и покупок с кнопками выполнения.
//   - Навигация и фильтры журнала активности.
//   - Меню настроек уведомлений и эмодзи.
package notifications

import (
	"fmt"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/dao"
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const buttonTextLimit = 30

// Текст кнопок главного меню без эмодзи. Роутинг идет по этим суффиксам, так как эмодзи настраиваются для каждой семьи.
const (
	menuAdd      = "Добавить"
	menuTasks    = "Задачи"
	menuShopping = "Покупки"
	menuFamily   = "Семья"
	menuHistory  = "История"
	menuNotify   = "Уведомления"
	menuSettings = "Настройки"
)

// mainMenu строит reply-клавиатуру главного меню. Родитель дополнительно видит историю и настройки.
func mainMenu(family *dao.Family, parent bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(fmt.Sprintf("%s %s", family.EmojiAdd, menuAdd)),
			tgbotapi.NewKeyboardButton(fmt.Sprintf("%s %s", family.EmojiTask, menuTasks)),
			tgbotapi.NewKeyboardButton(fmt.Sprintf("%s %s", family.EmojiShopping, menuShopping)),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(fmt.Sprintf("%s %s", family.EmojiFamily, menuFamily)),
			tgbotapi.NewKeyboardButton(fmt.Sprintf("🔔 %s", menuNotify)),
		),
	}
	if parent {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(fmt.Sprintf("%s %s", family.EmojiHistory, menuHistory)),
			tgbotapi.NewKeyboardButton(fmt.Sprintf("🎨 %s", menuSettings)),
		))
	}
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// itemListKeyboard строит inline-клавиатуру списка с кнопкой выполнения на каждую запись. Для списка покупок родителю добавляется кнопка очистки выполненных.
func itemListKeyboard(kind dao.ItemKind, items []dao.Item, withClear bool) tgbotapi.InlineKeyboardMarkup {
	prefix := "task_done"
	if kind == dao.KindShopping {
		prefix = "shop_done"
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, item := range items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ %s", utils.TruncateRunes(item.Text, buttonTextLimit)),
				fmt.Sprintf("%s:%s", prefix, utils.UUIDToBase64(item.ID)),
			),
		))
	}
	if withClear {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🧹 Очистить выполненные", "clear_completed"),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmKindKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Задача", "confirm:task"),
			tgbotapi.NewInlineKeyboardButtonData("🛒 Покупка", "confirm:shopping"),
		),
	)
}

// historyKeyboard строит навигацию по журналу: переключение страниц и фильтры категорий.
func historyKeyboard(page int, hasMore bool, filter string) tgbotapi.InlineKeyboardMarkup {
	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", fmt.Sprintf("history:%s:%d", filter, page-1)))
	}
	if hasMore {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Вперед ➡️", fmt.Sprintf("history:%s:%d", filter, page+1)))
	}

	filters := tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Все", "history:all:0"),
		tgbotapi.NewInlineKeyboardButtonData("📋", "history:task:0"),
		tgbotapi.NewInlineKeyboardButtonData("🛒", "history:shopping:0"),
		tgbotapi.NewInlineKeyboardButtonData("👑", "history:admin:0"),
	)

	if len(nav) == 0 {
		return tgbotapi.NewInlineKeyboardMarkup(filters)
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(nav...), filters)
}

func notifyPrefKeyboard(current string) tgbotapi.InlineKeyboardMarkup {
	mark := func(pref, label string) string {
		if pref == current {
			return "• " + label
		}
		return label
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(mark(dao.NotifyAll, "🔔 Все"), "notif:all"),
			tgbotapi.NewInlineKeyboardButtonData(mark(dao.NotifyImportant, "❗ Важные"), "notif:important"),
			tgbotapi.NewInlineKeyboardButtonData(mark(dao.NotifyOff, "🔕 Выкл"), "notif:off"),
		),
	)
}

func settingsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Изменить 'Добавить'", "emoji:add")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📋 Изменить 'Задачи'", "emoji:task")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🛒 Изменить 'Покупки'", "emoji:shopping")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("👨‍👩‍👧‍👦 Изменить 'Семья'", "emoji:family")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📜 Изменить 'История'", "emoji:history")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🔄 Сбросить всё", "emoji:reset")),
	)
}

// familyKeyboard строит родительское меню управления семьей: приглашение, переименование и действия над участниками.
func familyKeyboard(members []dao.FamilyMember, resolve NameResolver, requesterID int64) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Пригласить", "family_invite"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Название", "family_rename"),
		),
	}
	for _, member := range members {
		if member.UserID == requesterID {
			continue
		}
		name := resolve(member.UserID)
		if name == "" {
			name = fmt.Sprintf("%d", member.UserID)
		}
		name = utils.TruncateRunes(name, buttonTextLimit)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🔁 %s", name), fmt.Sprintf("role:%d", member.UserID)),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("❌ %s", name), fmt.Sprintf("remove:%d", member.UserID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
