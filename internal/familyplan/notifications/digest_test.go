package notifications

import (
	"fmt"
	"testing"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/dao"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFamily(name string) *dao.Family {
	return &dao.Family{
		Name:          name,
		EmojiTask:     "📝",
		EmojiShopping: "🛒",
	}
}

func makeItems(kind dao.ItemKind, count int) []dao.Item {
	items := make([]dao.Item, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, dao.Item{
			Kind: kind,
			Text: fmt.Sprintf("%s %d", kind, i+1),
		})
	}
	return items
}

func TestComposeDigestEmptyFamily(t *testing.T) {
	digest := ComposeDigest(testFamily("Пустая"), nil, nil, nil)
	assert.Empty(t, digest)
}

func TestComposeDigestSections(t *testing.T) {
	family := testFamily("Ивановы")
	tasks := makeItems(dao.KindTask, 2)
	shopping := makeItems(dao.KindShopping, 1)

	digest := ComposeDigest(family, tasks, shopping, nil)

	assert.Contains(t, digest, "Ежедневный дайджест: Ивановы")
	assert.Contains(t, digest, "Активные задачи (2):")
	assert.Contains(t, digest, "Список покупок (1):")
	assert.Contains(t, digest, "1. task 1")
	assert.Contains(t, digest, "2. task 2")
	assert.Contains(t, digest, "1. shopping 1")
	assert.NotContains(t, digest, "и ещё")
}

func TestComposeDigestOnlyShopping(t *testing.T) {
	digest := ComposeDigest(testFamily("Ивановы"), nil, makeItems(dao.KindShopping, 1), nil)

	assert.Contains(t, digest, "Список покупок (1):")
	assert.NotContains(t, digest, "Активные задачи")
}

func TestComposeDigestElision(t *testing.T) {
	digest := ComposeDigest(testFamily("Ивановы"), makeItems(dao.KindTask, 8), nil, nil)

	// первые пять целиком, остальное сворачивается
	assert.Contains(t, digest, "5. task 5")
	assert.NotContains(t, digest, "6. task 6")
	assert.Contains(t, digest, "... и ещё 3")
}

func TestComposeDigestAssignee(t *testing.T) {
	assigneeID := int64(42)
	tasks := makeItems(dao.KindTask, 2)
	tasks[0].AssignedTo = &assigneeID

	resolve := func(userID int64) string {
		require.Equal(t, assigneeID, userID)
		return "Маша"
	}

	digest := ComposeDigest(testFamily("Ивановы"), tasks, nil, resolve)

	assert.Contains(t, digest, "1. task 1 (👤 Маша)")
	assert.Contains(t, digest, "2. task 2 (🌐 Всем)")
}

func TestAssigneeLabel(t *testing.T) {
	id := int64(7)

	assert.Equal(t, " (🌐 Всем)", AssigneeLabel(nil, nil))
	assert.Equal(t, " (👤 Петя)", AssigneeLabel(&id, func(int64) string { return "Петя" }))
	// имя недоступно - пометка опускается
	assert.Equal(t, "", AssigneeLabel(&id, func(int64) string { return "" }))
	assert.Equal(t, "", AssigneeLabel(&id, nil))
}
