// Ежедневный дайджест открытых задач и покупок.
//
// Основные возможности:
//   - Сборка сводки по семье: первые пять открытых задач и покупок с пометкой исполнителя.
//   - Рассылка сводки всем членам семьи best-effort.
//   - Запуск по cron-расписанию; семьи без открытых записей пропускаются.
package notifications

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/dao"
	"gorm.io/gorm"
)

// Число записей каждого вида, попадающих в дайджест целиком; остальное сворачивается в "... и ещё N".
const digestItemLimit = 5

// NameResolver возвращает отображаемое имя пользователя по его telegram id. Пустая строка означает, что имя получить не удалось.
type NameResolver func(userID int64) string

type DigestService struct {
	db      *gorm.DB
	sender  Sender
	resolve NameResolver
}

func NewDigestService(db *gorm.DB, sender Sender, resolve NameResolver) *DigestService {
	return &DigestService{db: db, sender: sender, resolve: resolve}
}

// SendDailyDigest собирает и рассылает дайджест по всем семьям. Вызывается cron-диспетчером раз в сутки; в процессе работает единственный экземпляр по построению, поэтому перекрытия запусков нет. Ошибки по отдельным семьям и получателям логируются и не прерывают обход.
func (ds *DigestService) SendDailyDigest() {
	slog.Info("Sending daily digest")

	var families []dao.Family
	if err := ds.db.Find(&families).Error; err != nil {
		slog.Error("Fetch families for digest", "err", err)
		return
	}

	sent := 0
	for _, family := range families {
		tasks, err := dao.OpenItems(ds.db, dao.KindTask, family.ID)
		if err != nil {
			slog.Error("Fetch open tasks for digest", "family_id", family.ID, "err", err)
			continue
		}
		shopping, err := dao.OpenItems(ds.db, dao.KindShopping, family.ID)
		if err != nil {
			slog.Error("Fetch open shopping for digest", "family_id", family.ID, "err", err)
			continue
		}

		digest := ComposeDigest(&family, tasks, shopping, ds.resolve)
		if digest == "" {
			continue
		}

		members, err := dao.FamilyMembers(ds.db, family.ID)
		if err != nil {
			slog.Error("Fetch family members for digest", "family_id", family.ID, "err", err)
			continue
		}

		for _, member := range members {
			if err := ds.sender.Send(member.UserID, digest); err != nil {
				slog.Error("Deliver digest", "user_id", member.UserID, "err", err)
				continue
			}
			digestsSent.Inc()
			sent++
		}
	}

	slog.Info("Daily digest sent", "messages", sent)
}

// ComposeDigest формирует текст дайджеста семьи. Для семьи без открытых записей возвращается пустая строка - таким семьям дайджест не отправляется.
func ComposeDigest(family *dao.Family, tasks []dao.Item, shopping []dao.Item, resolve NameResolver) string {
	if len(tasks) == 0 && len(shopping) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Ежедневный дайджест: %s\n\n", family.Name)

	if len(tasks) > 0 {
		fmt.Fprintf(&b, "%s Активные задачи (%d):\n", family.EmojiTask, len(tasks))
		writeDigestSection(&b, tasks, resolve)
		b.WriteString("\n")
	}

	if len(shopping) > 0 {
		fmt.Fprintf(&b, "%s Список покупок (%d):\n", family.EmojiShopping, len(shopping))
		writeDigestSection(&b, shopping, resolve)
	}

	return b.String()
}

func writeDigestSection(b *strings.Builder, items []dao.Item, resolve NameResolver) {
	for i, item := range items {
		if i == digestItemLimit {
			break
		}
		fmt.Fprintf(b, "%d. %s%s\n", i+1, item.Text, AssigneeLabel(item.AssignedTo, resolve))
	}
	if len(items) > digestItemLimit {
		fmt.Fprintf(b, "... и ещё %d\n", len(items)-digestItemLimit)
	}
}

// AssigneeLabel возвращает пометку исполнителя для строки списка: имя конкретного участника либо пометку "Всем" для неназначенных записей.
func AssigneeLabel(assignedTo *int64, resolve NameResolver) string {
	if assignedTo == nil {
		return " (🌐 Всем)"
	}
	name := ""
	if resolve != nil {
		name = resolve(*assignedTo)
	}
	if name == "" {
		return ""
	}
	return fmt.Sprintf(" (👤 %s)", name)
}
