// Тесты рассылки уведомлений. Фильтрация получателей проверяется чистыми тестами; сценарии с базой данных требуют DATABASE_URL и пропускаются без него.
package notifications

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/dao"
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
			db.AutoMigrate(&dao.Family{}, &dao.FamilyMember{}, &dao.Task{}, &dao.ShoppingItem{}, &dao.UserSettings{}, &dao.ActivityLog{})
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

// fakeSender записывает доставленные сообщения и умеет имитировать сбой транспорта для отдельных получателей.
type fakeSender struct {
	mu       sync.Mutex
	sent     map[int64][]string
	failFor  map[int64]bool
	attempts int
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[int64][]string), failFor: make(map[int64]bool)}
}

func (f *fakeSender) Send(chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failFor[chatID] {
		return errors.New("transport down")
	}
	f.sent[chatID] = append(f.sent[chatID], text)
	return nil
}

func (f *fakeSender) received(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[chatID]
}

func TestShouldNotify(t *testing.T) {
	cases := []struct {
		pref  string
		level Level
		want  bool
	}{
		{dao.NotifyAll, LevelAll, true},
		{dao.NotifyAll, LevelImportant, true},
		{dao.NotifyImportant, LevelAll, false},
		{dao.NotifyImportant, LevelImportant, true},
		{dao.NotifyOff, LevelAll, false},
		{dao.NotifyOff, LevelImportant, false},
		// отсутствующая настройка эквивалентна all
		{"", LevelAll, true},
		{"", LevelImportant, true},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, ShouldNotify(c.pref, c.level), "pref=%q level=%q", c.pref, c.level)
	}
}

func TestNotifyFamilyRecipients(t *testing.T) {
	requireDB(t)

	authorID := newTestUserID()
	allID := newTestUserID()
	offID := newTestUserID()
	importantID := newTestUserID()

	family, err := dao.EnsureFamily(db, authorID)
	require.NoError(t, err)
	for _, id := range []int64{allID, offID, importantID} {
		_, err = dao.JoinFamily(db, id, family.ID)
		require.NoError(t, err)
	}
	require.NoError(t, dao.SetNotificationPref(db, offID, dao.NotifyOff))
	require.NoError(t, dao.SetNotificationPref(db, importantID, dao.NotifyImportant))

	sender := newFakeSender()
	d := NewDispatcher(db, sender)

	d.NotifyFamily(family.ID, authorID, "Новая задача: Яйца", LevelAll)

	// автор не получает собственных событий
	assert.Empty(t, sender.received(authorID))
	// получатель с настройкой all получает событие
	require.Len(t, sender.received(allID), 1)
	assert.Contains(t, sender.received(allID)[0], "Яйца")
	// off не получает ничего, important пропускает обычные события
	assert.Empty(t, sender.received(offID))
	assert.Empty(t, sender.received(importantID))

	d.NotifyFamily(family.ID, authorID, "Участник удален", LevelImportant)

	assert.Len(t, sender.received(allID), 2)
	assert.Len(t, sender.received(importantID), 1)
	assert.Empty(t, sender.received(offID))
}

func TestNotifyFamilyDeliveryIsolation(t *testing.T) {
	requireDB(t)

	authorID := newTestUserID()
	brokenID := newTestUserID()
	okID := newTestUserID()

	family, err := dao.EnsureFamily(db, authorID)
	require.NoError(t, err)
	for _, id := range []int64{brokenID, okID} {
		_, err = dao.JoinFamily(db, id, family.ID)
		require.NoError(t, err)
	}

	sender := newFakeSender()
	sender.failFor[brokenID] = true
	d := NewDispatcher(db, sender)

	// сбой доставки одному получателю не мешает остальным и не возвращается наружу
	d.NotifyFamily(family.ID, authorID, "Событие", LevelAll)

	assert.Empty(t, sender.received(brokenID))
	assert.Len(t, sender.received(okID), 1)
}
