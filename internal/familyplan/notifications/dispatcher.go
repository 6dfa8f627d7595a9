// Рассылка уведомлений по семье с учетом персональных настроек получателей.
//
// Основные возможности:
//   - Рассылка события всем членам семьи, кроме автора.
//   - Фильтрация по настройке уведомлений получателя (all, important, off).
//   - Прямые уведомления пользователю (отметка о выполнении, удаление из семьи).
//   - Изоляция сбоев доставки: ошибка одному получателю не влияет на остальных и не возвращается вызывающему.
package notifications

import (
	"log/slog"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/dao"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// Уровень события рассылки.
type Level string

const (
	LevelAll       Level = "all"
	LevelImportant Level = "important"
)

type Dispatcher struct {
	db     *gorm.DB
	sender Sender
}

func NewDispatcher(db *gorm.DB, sender Sender) *Dispatcher {
	return &Dispatcher{db: db, sender: sender}
}

// ShouldNotify решает, доставлять ли получателю событие указанного уровня.
// Настройка off отключает все уведомления, important пропускает только важные события, all (и значение по умолчанию) пропускает всё.
func ShouldNotify(pref string, level Level) bool {
	switch pref {
	case dao.NotifyOff:
		return false
	case dao.NotifyImportant:
		return level == LevelImportant
	default:
		return true
	}
}

// NotifyFamily рассылает текст всем членам семьи, кроме автора события. Для каждого получателя читается его настройка уведомлений (по умолчанию all). Доставка best-effort, без повторов: сбой логируется и не прерывает рассылку остальным. Порядок доставки не гарантируется.
//
// Параметры:
//   - familyID: семья, по которой выполняется рассылка.
//   - authorID: автор события, исключается из получателей.
//   - text: текст уведомления.
//   - level: уровень события (LevelAll или LevelImportant).
func (d *Dispatcher) NotifyFamily(familyID uuid.UUID, authorID int64, text string, level Level) {
	members, err := dao.FamilyMembers(d.db, familyID)
	if err != nil {
		slog.Error("Fetch family members for notify", "family_id", familyID, "err", err)
		return
	}

	for _, member := range members {
		if member.UserID == authorID {
			continue
		}

		pref, err := dao.NotificationPref(d.db, member.UserID)
		if err != nil {
			slog.Error("Fetch notification pref", "user_id", member.UserID, "err", err)
			continue
		}
		if !ShouldNotify(pref, level) {
			continue
		}

		if err := d.sender.Send(member.UserID, text); err != nil {
			notificationsFailed.Inc()
			slog.Error("Deliver family notification", "user_id", member.UserID, "err", err)
			continue
		}
		notificationsSent.Inc()
	}
}

// NotifyUser отправляет прямое уведомление пользователю. Доставка best-effort: сбой логируется и не возвращается вызывающему.
func (d *Dispatcher) NotifyUser(userID int64, text string) {
	if err := d.sender.Send(userID, text); err != nil {
		notificationsFailed.Inc()
		slog.Error("Deliver direct notification", "user_id", userID, "err", err)
		return
	}
	notificationsSent.Inc()
}
