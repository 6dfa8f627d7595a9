// Тесты DAO. Запускаются против реальной базы данных из DATABASE_URL; при отсутствии переменной тесты пропускаются.
package dao

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/apierrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func TestMain(m *testing.M) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		var err error
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: false,
		}), &gorm.Config{
			TranslateError: true,
		})
		if err == nil {
			db.AutoMigrate(&Family{}, &FamilyMember{}, &Task{}, &ShoppingItem{}, &UserSettings{}, &ActivityLog{})
		}
	}

	code := m.Run()
	os.Exit(code)
}

var userIDSeq int64 = time.Now().UnixNano()

func newTestUserID() int64 {
	return atomic.AddInt64(&userIDSeq, 1)
}

func requireDB(t *testing.T) {
	if db == nil {
		t.Skip("DATABASE_URL not set")
	}
}

func TestEnsureFamilyIdempotent(t *testing.T) {
	requireDB(t)

	userID := newTestUserID()

	first, err := EnsureFamily(db, userID)
	require.NoError(t, err)
	second, err := EnsureFamily(db, userID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	member, err := GetFamilyMember(db, userID)
	require.NoError(t, err)
	assert.Equal(t, RoleParent, member.Role)
	assert.Equal(t, first.ID, member.FamilyID)
}

func TestJoinFamily(t *testing.T) {
	requireDB(t)

	parentID := newTestUserID()
	childID := newTestUserID()

	family, err := EnsureFamily(db, parentID)
	require.NoError(t, err)

	joined, err := JoinFamily(db, childID, family.ID)
	require.NoError(t, err)
	assert.Equal(t, family.ID, joined.ID)

	member, err := GetFamilyMember(db, childID)
	require.NoError(t, err)
	assert.Equal(t, RoleChild, member.Role)

	// повторное присоединение к своей семье идемпотентно
	_, err = JoinFamily(db, childID, family.ID)
	assert.NoError(t, err)

	// присоединение к чужой семье при действующем членстве отклоняется
	other, err := EnsureFamily(db, newTestUserID())
	require.NoError(t, err)
	_, err = JoinFamily(db, childID, other.ID)
	assert.ErrorIs(t, err, apierrors.ErrAlreadyInFamily)

	// членство не изменилось
	member, err = GetFamilyMember(db, childID)
	require.NoError(t, err)
	assert.Equal(t, family.ID, member.FamilyID)
}

func TestJoinFamilyNotFound(t *testing.T) {
	requireDB(t)

	_, err := JoinFamily(db, newTestUserID(), GenUUID())
	assert.ErrorIs(t, err, apierrors.ErrFamilyNotFound)
}

func TestLastParentProtected(t *testing.T) {
	requireDB(t)

	parentID := newTestUserID()
	family, err := EnsureFamily(db, parentID)
	require.NoError(t, err)

	err = RemoveMember(db, parentID, family.ID, parentID)
	assert.ErrorIs(t, err, apierrors.ErrLastParent)

	err = ChangeRole(db, parentID, family.ID, parentID, RoleChild)
	assert.ErrorIs(t, err, apierrors.ErrLastParent)

	// членство не изменилось
	member, err := GetFamilyMember(db, parentID)
	require.NoError(t, err)
	assert.Equal(t, RoleParent, member.Role)
}

func TestRemoveMember(t *testing.T) {
	requireDB(t)

	parentID := newTestUserID()
	childID := newTestUserID()

	family, err := EnsureFamily(db, parentID)
	require.NoError(t, err)
	_, err = JoinFamily(db, childID, family.ID)
	require.NoError(t, err)

	require.NoError(t, RemoveMember(db, parentID, family.ID, childID))

	_, err = GetFamilyMember(db, childID)
	assert.ErrorIs(t, err, apierrors.ErrNotInFamily)

	// действие попало в журнал
	rows, err := ActivityPage(db, family.ID, 0, ActivityPageSize, ActionRemove)
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestRemoveMemberNotFound(t *testing.T) {
	requireDB(t)

	parentID := newTestUserID()
	family, err := EnsureFamily(db, parentID)
	require.NoError(t, err)

	err = RemoveMember(db, parentID, family.ID, newTestUserID())
	assert.ErrorIs(t, err, apierrors.ErrMemberNotFound)
}

func TestChangeRolePromoteAndDemote(t *testing.T) {
	requireDB(t)

	parentID := newTestUserID()
	childID := newTestUserID()

	family, err := EnsureFamily(db, parentID)
	require.NoError(t, err)
	_, err = JoinFamily(db, childID, family.ID)
	require.NoError(t, err)

	require.NoError(t, ChangeRole(db, parentID, family.ID, childID, RoleParent))

	member, err := GetFamilyMember(db, childID)
	require.NoError(t, err)
	assert.Equal(t, RoleParent, member.Role)

	// теперь родителей двое, первого можно понизить
	require.NoError(t, ChangeRole(db, childID, family.ID, parentID, RoleChild))

	member, err = GetFamilyMember(db, parentID)
	require.NoError(t, err)
	assert.Equal(t, RoleChild, member.Role)
}

func TestRenameFamilyTruncates(t *testing.T) {
	requireDB(t)

	parentID := newTestUserID()
	family, err := EnsureFamily(db, parentID)
	require.NoError(t, err)

	long := ""
	for i := 0; i < 60; i++ {
		long += "и"
	}
	saved, err := RenameFamily(db, parentID, family.ID, long)
	require.NoError(t, err)
	assert.Len(t, []rune(saved), FamilyNameLimit)

	var stored Family
	require.NoError(t, db.First(&stored, "id = ?", family.ID).Error)
	assert.Equal(t, saved, stored.Name)
}

func TestAddAndListItems(t *testing.T) {
	requireDB(t)

	userID := newTestUserID()
	family, err := EnsureFamily(db, userID)
	require.NoError(t, err)

	first, err := AddItem(db, KindTask, family.ID, userID, "Купить молоко", nil)
	require.NoError(t, err)
	assert.False(t, first.Done)

	assignee := newTestUserID()
	second, err := AddItem(db, KindTask, family.ID, userID, "Полить цветы", &assignee)
	require.NoError(t, err)
	require.NotNil(t, second.AssignedTo)
	assert.Equal(t, assignee, *second.AssignedTo)

	items, err := OpenItems(db, KindTask, family.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	// порядок создания
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)
}

func TestCompleteItemTwice(t *testing.T) {
	requireDB(t)

	userID := newTestUserID()
	family, err := EnsureFamily(db, userID)
	require.NoError(t, err)

	item, err := AddItem(db, KindShopping, family.ID, userID, "Яйца", nil)
	require.NoError(t, err)

	done, err := CompleteItem(db, KindShopping, family.ID, userID, item.ID)
	require.NoError(t, err)
	assert.True(t, done.Done)
	assert.NotNil(t, done.CompletedAt)

	// повторное выполнение не находит открытой записи
	_, err = CompleteItem(db, KindShopping, family.ID, userID, item.ID)
	assert.ErrorIs(t, err, apierrors.ErrItemNotFound)
}

func TestCompleteItemForeignFamily(t *testing.T) {
	requireDB(t)

	userID := newTestUserID()
	family, err := EnsureFamily(db, userID)
	require.NoError(t, err)

	item, err := AddItem(db, KindTask, family.ID, userID, "Секретная задача", nil)
	require.NoError(t, err)

	strangerID := newTestUserID()
	other, err := EnsureFamily(db, strangerID)
	require.NoError(t, err)

	_, err = CompleteItem(db, KindTask, other.ID, strangerID, item.ID)
	assert.ErrorIs(t, err, apierrors.ErrItemNotFound)

	// запись осталась открытой
	items, err := OpenItems(db, KindTask, family.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestClearCompleted(t *testing.T) {
	requireDB(t)

	userID := newTestUserID()
	family, err := EnsureFamily(db, userID)
	require.NoError(t, err)

	open, err := AddItem(db, KindShopping, family.ID, userID, "Хлеб", nil)
	require.NoError(t, err)
	bought, err := AddItem(db, KindShopping, family.ID, userID, "Молоко", nil)
	require.NoError(t, err)
	_, err = CompleteItem(db, KindShopping, family.ID, userID, bought.ID)
	require.NoError(t, err)

	removed, err := ClearCompleted(db, KindShopping, family.ID, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	items, err := OpenItems(db, KindShopping, family.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, open.ID, items[0].ID)
}

func TestActivityPagination(t *testing.T) {
	requireDB(t)

	userID := newTestUserID()
	family, err := EnsureFamily(db, userID)
	require.NoError(t, err)

	for i := 0; i < 7; i++ {
		require.NoError(t, LogAction(db, family.ID, userID, "Действие", ActionTask))
		time.Sleep(time.Millisecond * 5)
	}

	page0, err := ActivityPage(db, family.ID, 0, ActivityPageSize, ActionTask)
	require.NoError(t, err)
	require.Len(t, page0, ActivityPageSize)

	page1, err := ActivityPage(db, family.ID, 1, ActivityPageSize, ActionTask)
	require.NoError(t, err)
	require.Len(t, page1, 2)

	// короткая страница означает конец журнала
	assert.Less(t, len(page1), ActivityPageSize)

	// все записи второй страницы старше записей первой
	for _, older := range page1 {
		for _, newer := range page0 {
			assert.True(t, older.CreatedAt.Before(newer.CreatedAt) || older.CreatedAt.Equal(newer.CreatedAt))
		}
	}
}

func TestActivityAdminFilter(t *testing.T) {
	requireDB(t)

	userID := newTestUserID()
	family, err := EnsureFamily(db, userID)
	require.NoError(t, err)

	require.NoError(t, LogAction(db, family.ID, userID, "Добавил задачу", ActionTask))
	require.NoError(t, LogAction(db, family.ID, userID, "Изменил название", ActionRename))
	require.NoError(t, LogAction(db, family.ID, userID, "Присоединился", ActionJoin))

	rows, err := ActivityPage(db, family.ID, 0, ActivityPageSize, "admin")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Contains(t, []string{ActionRole, ActionRemove, ActionRename, ActionJoin}, r.ActionType)
	}
}

func TestNotificationPref(t *testing.T) {
	requireDB(t)

	userID := newTestUserID()

	// без строки настроек действует значение по умолчанию
	pref, err := NotificationPref(db, userID)
	require.NoError(t, err)
	assert.Equal(t, NotifyAll, pref)

	require.NoError(t, SetNotificationPref(db, userID, NotifyOff))
	pref, err = NotificationPref(db, userID)
	require.NoError(t, err)
	assert.Equal(t, NotifyOff, pref)

	// upsert перезаписывает значение
	require.NoError(t, SetNotificationPref(db, userID, NotifyImportant))
	pref, err = NotificationPref(db, userID)
	require.NoError(t, err)
	assert.Equal(t, NotifyImportant, pref)

	assert.ErrorIs(t, SetNotificationPref(db, userID, "loud"), apierrors.ErrBadSetting)
}

func TestSetFamilyEmoji(t *testing.T) {
	requireDB(t)

	userID := newTestUserID()
	family, err := EnsureFamily(db, userID)
	require.NoError(t, err)

	require.NoError(t, SetFamilyEmoji(db, userID, family.ID, "task", "🎯"))

	var stored Family
	require.NoError(t, db.First(&stored, "id = ?", family.ID).Error)
	assert.Equal(t, "🎯", stored.EmojiTask)

	assert.ErrorIs(t, SetFamilyEmoji(db, userID, family.ID, "task", "не эмодзи вовсе"), apierrors.ErrEmojiTooLong)
	assert.ErrorIs(t, SetFamilyEmoji(db, userID, family.ID, "unknown", "🎯"), apierrors.ErrBadSetting)

	require.NoError(t, ResetFamilyEmojis(db, userID, family.ID))
	require.NoError(t, db.First(&stored, "id = ?", family.ID).Error)
	assert.Equal(t, "📋", stored.EmojiTask)
}
