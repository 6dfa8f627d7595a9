// DAO для журнала активности семьи.
//
// Основные возможности:
//   - Добавление записей журнала (append-only).
//   - Постраничное чтение в обратном хронологическом порядке.
//   - Фильтрация по категориям действий, включая сводный фильтр admin.
package dao

import (
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const ActivityPageSize = 5

// Журнал активности. Записи никогда не изменяются и не удаляются.
type ActivityLog struct {
	ID         uuid.UUID `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	FamilyID   uuid.UUID `gorm:"type:uuid;index" json:"family_id"`
	UserID     int64     `json:"user_id"`
	Action     string    `json:"action"`
	ActionType string    `gorm:"default:'other'" json:"action_type"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_log" }

// LogAction добавляет запись в журнал активности семьи.
//
// Параметры:
//   - db: экземпляр gorm.DB для взаимодействия с базой данных (может быть транзакцией).
//   - familyID: семья, к которой относится действие.
//   - userID: пользователь, совершивший действие.
//   - action: текстовое описание действия.
//   - actionType: категория действия (ActionTask, ActionShopping, ActionRole, ...).
func LogAction(db *gorm.DB, familyID uuid.UUID, userID int64, action string, actionType string) error {
	return db.Create(&ActivityLog{
		ID:         GenUUID(),
		FamilyID:   familyID,
		UserID:     userID,
		Action:     action,
		ActionType: actionType,
		CreatedAt:  time.Now(),
	}).Error
}

// Категории, попадающие в сводный фильтр admin.
var adminActionTypes = []string{ActionRole, ActionRemove, ActionRename, ActionJoin}

// ActivityPage возвращает страницу журнала активности семьи в обратном хронологическом порядке. Страница короче pageSize означает, что следующих страниц нет.
//
// Параметры:
//   - db: экземпляр gorm.DB для взаимодействия с базой данных.
//   - familyID: семья.
//   - page: номер страницы, начиная с 0.
//   - pageSize: размер страницы.
//   - filter: "all", "admin" либо конкретная категория действия.
//
// Возвращает:
//   - []ActivityLog: записи страницы.
//   - error: ошибка базы данных.
func ActivityPage(db *gorm.DB, familyID uuid.UUID, page int, pageSize int, filter string) ([]ActivityLog, error) {
	if page < 0 {
		page = 0
	}
	if pageSize <= 0 {
		pageSize = ActivityPageSize
	}

	query := db.Where("family_id = ?", familyID)
	switch filter {
	case "", "all":
	case "admin":
		query = query.Where("action_type IN ?", adminActionTypes)
	default:
		query = query.Where("action_type = ?", filter)
	}

	var rows []ActivityLog
	if err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset(page * pageSize).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
