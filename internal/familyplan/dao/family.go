// DAO для работы с семьями и их участниками.
//
// Основные возможности:
//   - Ленивое создание семьи при первом обращении пользователя.
//   - Присоединение к семье по приглашению.
//   - Управление ролями участников с защитой последнего родителя.
//   - Переименование семьи и настройка эмодзи главного меню.
package dao

import (
	"errors"
	"fmt"
	"time"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/apierrors"
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/utils"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const FamilyNameLimit = 50

// Семьи
type Family struct {
	ID        uuid.UUID `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Name      string    `json:"name" gorm:"default:'Моя семья'"`
	OwnerID   int64     `json:"owner_id" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`

	// Настраиваемые эмодзи кнопок главного меню
	EmojiAdd      string `json:"emoji_add" gorm:"default:'➕'"`
	EmojiTask     string `json:"emoji_task" gorm:"default:'📋'"`
	EmojiShopping string `json:"emoji_shopping" gorm:"default:'🛒'"`
	EmojiFamily   string `json:"emoji_family" gorm:"default:'👨‍👩‍👧‍👦'"`
	EmojiHistory  string `json:"emoji_history" gorm:"default:'📜'"`
}

func (Family) TableName() string { return "families" }

// Участники семей. Пользователь состоит не более чем в одной семье, поэтому telegram id является первичным ключом.
type FamilyMember struct {
	UserID   int64     `gorm:"column:user_id;primaryKey" json:"user_id"`
	FamilyID uuid.UUID `gorm:"type:uuid;index" json:"family_id"`
	Role     string    `json:"role" gorm:"default:'child'"`
	JoinedAt time.Time `json:"joined_at"`

	Family *Family `json:"-" gorm:"foreignKey:FamilyID"`
}

func (FamilyMember) TableName() string { return "family_members" }

func (m *FamilyMember) IsParent() bool { return m.Role == RoleParent }

// EnsureFamily возвращает семью пользователя, при ее отсутствии создает новую с пользователем в роли родителя. Идемпотентна: повторный вызов для того же пользователя возвращает ту же семью и не создает дубликатов.
//
// Параметры:
//   - db: экземпляр gorm.DB для взаимодействия с базой данных.
//   - userID: telegram id пользователя.
//
// Возвращает:
//   - *Family: семья пользователя.
//   - error: ошибка базы данных.
func EnsureFamily(db *gorm.DB, userID int64) (*Family, error) {
	var member FamilyMember
	err := db.Preload("Family").Where("user_id = ?", userID).First(&member).Error
	if err == nil {
		return member.Family, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	family := Family{
		ID:        GenUUID(),
		OwnerID:   userID,
		CreatedAt: time.Now(),
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&family).Error; err != nil {
			return err
		}
		return tx.Create(&FamilyMember{
			UserID:   userID,
			FamilyID: family.ID,
			Role:     RoleParent,
			JoinedAt: time.Now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	// default читается из схемы, в создаваемой структуре его нет
	if family.Name == "" {
		if err := db.First(&family, "id = ?", family.ID).Error; err != nil {
			return nil, err
		}
	}
	return &family, nil
}

// GetFamilyMember возвращает участника с его семьей. Если пользователь не состоит ни в одной семье, возвращает ErrNotInFamily.
func GetFamilyMember(db *gorm.DB, userID int64) (*FamilyMember, error) {
	var member FamilyMember
	if err := db.Preload("Family").Where("user_id = ?", userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrNotInFamily
		}
		return nil, err
	}
	return &member, nil
}

// IsParent проверяет, является ли пользователь родителем в своей семье. Пользователь без семьи родителем не считается.
func IsParent(db *gorm.DB, userID int64) (bool, error) {
	member, err := GetFamilyMember(db, userID)
	if err != nil {
		if errors.Is(err, apierrors.ErrNotInFamily) {
			return false, nil
		}
		return false, err
	}
	return member.IsParent(), nil
}

// FamilyMembers возвращает всех участников семьи.
func FamilyMembers(db *gorm.DB, familyID uuid.UUID) ([]FamilyMember, error) {
	var members []FamilyMember
	if err := db.Where("family_id = ?", familyID).Order("joined_at").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// JoinFamily присоединяет пользователя к семье в роли ребенка и пишет запись в журнал активности. Повторное присоединение к своей семье идемпотентно. Присоединение при членстве в другой семье отклоняется с ErrAlreadyInFamily: сначала пользователь должен покинуть текущую семью.
//
// Параметры:
//   - db: экземпляр gorm.DB для взаимодействия с базой данных.
//   - userID: telegram id присоединяющегося пользователя.
//   - familyID: идентификатор семьи из пригласительной ссылки.
//
// Возвращает:
//   - *Family: семья, к которой присоединился пользователь.
//   - error: ErrFamilyNotFound, ErrAlreadyInFamily либо ошибка базы данных.
func JoinFamily(db *gorm.DB, userID int64, familyID uuid.UUID) (*Family, error) {
	var family Family
	if err := db.First(&family, "id = ?", familyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierrors.ErrFamilyNotFound
		}
		return nil, err
	}

	var existing FamilyMember
	err := db.Where("user_id = ?", userID).First(&existing).Error
	if err == nil {
		if existing.FamilyID == familyID {
			return &family, nil
		}
		return nil, apierrors.ErrAlreadyInFamily
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&FamilyMember{
			UserID:   userID,
			FamilyID: familyID,
			Role:     RoleChild,
			JoinedAt: time.Now(),
		}).Error; err != nil {
			return err
		}
		return LogAction(tx, familyID, userID, "Присоединился к семье", ActionJoin)
	})
	if err != nil {
		return nil, err
	}
	return &family, nil
}

// RemoveMember удаляет участника из семьи и пишет запись в журнал. Удаление единственного родителя семьи отклоняется с ErrLastParent, членство при этом не меняется.
//
// Параметры:
//   - db: экземпляр gorm.DB для взаимодействия с базой данных.
//   - requesterID: telegram id инициатора (проверка прав выполняется на уровне сервиса).
//   - familyID: семья, из которой удаляется участник.
//   - targetID: telegram id удаляемого участника.
func RemoveMember(db *gorm.DB, requesterID int64, familyID uuid.UUID, targetID int64) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var target FamilyMember
		if err := tx.Where("user_id = ? AND family_id = ?", targetID, familyID).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.ErrMemberNotFound
			}
			return err
		}

		if target.IsParent() {
			var parents int64
			if err := tx.Model(&FamilyMember{}).
				Where("family_id = ? AND role = ?", familyID, RoleParent).
				Count(&parents).Error; err != nil {
				return err
			}
			if parents <= 1 {
				return apierrors.ErrLastParent
			}
		}

		if err := tx.Delete(&target).Error; err != nil {
			return err
		}
		return LogAction(tx, familyID, requesterID, "Удалил участника из семьи", ActionRemove)
	})
}

// ChangeRole меняет роль участника семьи. Понижение единственного родителя до ребенка отклоняется с ErrLastParent.
func ChangeRole(db *gorm.DB, requesterID int64, familyID uuid.UUID, targetID int64, newRole string) error {
	if newRole != RoleParent && newRole != RoleChild {
		return fmt.Errorf("unknown role %q", newRole)
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var target FamilyMember
		if err := tx.Where("user_id = ? AND family_id = ?", targetID, familyID).First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierrors.ErrMemberNotFound
			}
			return err
		}

		if target.Role == newRole {
			return nil
		}

		if target.IsParent() && newRole == RoleChild {
			var parents int64
			if err := tx.Model(&FamilyMember{}).
				Where("family_id = ? AND role = ?", familyID, RoleParent).
				Count(&parents).Error; err != nil {
				return err
			}
			if parents <= 1 {
				return apierrors.ErrLastParent
			}
		}

		if err := tx.Model(&target).Update("role", newRole).Error; err != nil {
			return err
		}

		action := "Назначил участника родителем"
		if newRole == RoleChild {
			action = "Перевел участника в роль ребенка"
		}
		return LogAction(tx, familyID, requesterID, action, ActionRole)
	})
}

// RenameFamily меняет название семьи и пишет запись в журнал. Название обрезается до FamilyNameLimit рун.
//
// Возвращает:
//   - string: сохраненное название (после обрезки).
//   - error: ошибка базы данных.
func RenameFamily(db *gorm.DB, requesterID int64, familyID uuid.UUID, name string) (string, error) {
	name = utils.TruncateRunes(name, FamilyNameLimit)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Family{}).Where("id = ?", familyID).Update("name", name).Error; err != nil {
			return err
		}
		return LogAction(tx, familyID, requesterID, fmt.Sprintf("Изменил название семьи на: %s", name), ActionRename)
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// Слоты эмодзи главного меню и соответствующие им колонки таблицы families.
var emojiColumns = map[string]string{
	"add":      "emoji_add",
	"task":     "emoji_task",
	"shopping": "emoji_shopping",
	"family":   "emoji_family",
	"history":  "emoji_history",
}

// SetFamilyEmoji сохраняет эмодзи для указанного слота главного меню.
func SetFamilyEmoji(db *gorm.DB, requesterID int64, familyID uuid.UUID, slot string, emoji string) error {
	column, ok := emojiColumns[slot]
	if !ok {
		return apierrors.ErrBadSetting
	}
	// составные эмодзи занимают несколько рун
	if len([]rune(emoji)) > 5 {
		return apierrors.ErrEmojiTooLong
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Family{}).Where("id = ?", familyID).Update(column, emoji).Error; err != nil {
			return err
		}
		return LogAction(tx, familyID, requesterID, fmt.Sprintf("Изменил эмодзи кнопки на %s", emoji), ActionOther)
	})
}

// ResetFamilyEmojis возвращает всем кнопкам главного меню стандартные эмодзи.
func ResetFamilyEmojis(db *gorm.DB, requesterID int64, familyID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Family{}).Where("id = ?", familyID).Updates(map[string]interface{}{
			"emoji_add":      "➕",
			"emoji_task":     "📋",
			"emoji_shopping": "🛒",
			"emoji_family":   "👨‍👩‍👧‍👦",
			"emoji_history":  "📜",
		}).Error; err != nil {
			return err
		}
		return LogAction(tx, familyID, requesterID, "Сбросил настройки эмодзи", ActionOther)
	})
}
