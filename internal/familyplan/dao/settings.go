// DAO для персональных настроек уведомлений.
package dao

import (
	"errors"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/apierrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Настройки пользователя. Строка создается при первом изменении настроек; до этого действует значение по умолчанию NotifyAll.
type UserSettings struct {
	UserID        int64  `gorm:"column:user_id;primaryKey" json:"user_id"`
	Notifications string `gorm:"default:'all'" json:"notifications"`
}

func (UserSettings) TableName() string { return "user_settings" }

// NotificationPref возвращает настройку уведомлений пользователя. При отсутствии строки настроек возвращается NotifyAll.
func NotificationPref(db *gorm.DB, userID int64) (string, error) {
	var settings UserSettings
	if err := db.Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NotifyAll, nil
		}
		return "", err
	}
	if settings.Notifications == "" {
		return NotifyAll, nil
	}
	return settings.Notifications, nil
}

// SetNotificationPref сохраняет настройку уведомлений пользователя. Менять настройку может только сам пользователь, поэтому ключом служит его telegram id.
func SetNotificationPref(db *gorm.DB, userID int64, pref string) error {
	switch pref {
	case NotifyAll, NotifyImportant, NotifyOff:
	default:
		return apierrors.ErrBadSetting
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"notifications"}),
	}).Create(&UserSettings{UserID: userID, Notifications: pref}).Error
}
