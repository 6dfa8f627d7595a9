// DAO для работы с задачами и списком покупок.
//
// Основные возможности:
//   - Добавление записей с необязательным исполнителем.
//   - Списки открытых записей в порядке создания.
//   - Атомарное выполнение записи одним UPDATE (защита от двойного выполнения).
//   - Очистка выполненных записей.
package dao

import (
	"fmt"
	"time"

	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/apierrors"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemKind string

const (
	KindTask     ItemKind = "task"
	KindShopping ItemKind = "shopping"
)

// Задачи семьи
type Task struct {
	ID          uuid.UUID  `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	FamilyID    uuid.UUID  `gorm:"type:uuid;index" json:"family_id"`
	Text        string     `json:"text"`
	Done        bool       `json:"done"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	// nil означает "для всех"
	AssignedTo *int64 `json:"assigned_to,omitempty"`
}

func (Task) TableName() string { return "tasks" }

// Покупки семьи. Хранятся отдельно от задач, но жизненный цикл у записей одинаковый.
type ShoppingItem struct {
	ID          uuid.UUID  `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	FamilyID    uuid.UUID  `gorm:"type:uuid;index" json:"family_id"`
	Text        string     `json:"text"`
	IsBought    bool       `gorm:"column:is_bought" json:"is_bought"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedBy   int64      `json:"created_by"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"`
}

func (ShoppingItem) TableName() string { return "shopping" }

// Item - единое представление задачи или покупки для сервисного слоя.
type Item struct {
	ID          uuid.UUID
	FamilyID    uuid.UUID
	Kind        ItemKind
	Text        string
	Done        bool
	CreatedAt   time.Time
	CompletedAt *time.Time
	CreatedBy   int64
	AssignedTo  *int64
}

func taskToItem(t *Task) Item {
	return Item{
		ID:          t.ID,
		FamilyID:    t.FamilyID,
		Kind:        KindTask,
		Text:        t.Text,
		Done:        t.Done,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
		CreatedBy:   t.CreatedBy,
		AssignedTo:  t.AssignedTo,
	}
}

func shoppingToItem(s *ShoppingItem) Item {
	return Item{
		ID:          s.ID,
		FamilyID:    s.FamilyID,
		Kind:        KindShopping,
		Text:        s.Text,
		Done:        s.IsBought,
		CreatedAt:   s.CreatedAt,
		CompletedAt: s.CompletedAt,
		CreatedBy:   s.CreatedBy,
		AssignedTo:  s.AssignedTo,
	}
}

// AddItem создает задачу или покупку и пишет запись в журнал активности в одной транзакции.
//
// Параметры:
//   - db: экземпляр gorm.DB для взаимодействия с базой данных.
//   - kind: вид записи (задача или покупка).
//   - familyID: семья, которой принадлежит запись.
//   - userID: автор записи.
//   - text: текст записи.
//   - assignedTo: исполнитель; nil означает "для всех".
//
// Возвращает:
//   - *Item: созданная запись.
//   - error: ошибка базы данных.
func AddItem(db *gorm.DB, kind ItemKind, familyID uuid.UUID, userID int64, text string, assignedTo *int64) (*Item, error) {
	var item Item
	err := db.Transaction(func(tx *gorm.DB) error {
		switch kind {
		case KindTask:
			task := Task{
				ID:         GenUUID(),
				FamilyID:   familyID,
				Text:       text,
				CreatedAt:  time.Now(),
				CreatedBy:  userID,
				AssignedTo: assignedTo,
			}
			if err := tx.Create(&task).Error; err != nil {
				return err
			}
			item = taskToItem(&task)
			return LogAction(tx, familyID, userID, fmt.Sprintf("Добавил задачу: %s", text), ActionTask)
		case KindShopping:
			shopping := ShoppingItem{
				ID:         GenUUID(),
				FamilyID:   familyID,
				Text:       text,
				CreatedAt:  time.Now(),
				CreatedBy:  userID,
				AssignedTo: assignedTo,
			}
			if err := tx.Create(&shopping).Error; err != nil {
				return err
			}
			item = shoppingToItem(&shopping)
			return LogAction(tx, familyID, userID, fmt.Sprintf("Добавил покупку: %s", text), ActionShopping)
		default:
			return fmt.Errorf("unknown item kind %q", kind)
		}
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// OpenItems возвращает открытые записи семьи в порядке создания.
func OpenItems(db *gorm.DB, kind ItemKind, familyID uuid.UUID) ([]Item, error) {
	switch kind {
	case KindTask:
		var tasks []Task
		if err := db.Where("family_id = ? AND NOT done", familyID).
			Order("created_at").Find(&tasks).Error; err != nil {
			return nil, err
		}
		items := make([]Item, len(tasks))
		for i := range tasks {
			items[i] = taskToItem(&tasks[i])
		}
		return items, nil
	case KindShopping:
		var shopping []ShoppingItem
		if err := db.Where("family_id = ? AND NOT is_bought", familyID).
			Order("created_at").Find(&shopping).Error; err != nil {
			return nil, err
		}
		items := make([]Item, len(shopping))
		for i := range shopping {
			items[i] = shoppingToItem(&shopping[i])
		}
		return items, nil
	}
	return nil, fmt.Errorf("unknown item kind %q", kind)
}

// OpenItemsCount возвращает количество открытых записей семьи.
func OpenItemsCount(db *gorm.DB, kind ItemKind, familyID uuid.UUID) (int64, error) {
	var count int64
	switch kind {
	case KindTask:
		return count, db.Model(&Task{}).Where("family_id = ? AND NOT done", familyID).Count(&count).Error
	case KindShopping:
		return count, db.Model(&ShoppingItem{}).Where("family_id = ? AND NOT is_bought", familyID).Count(&count).Error
	}
	return 0, fmt.Errorf("unknown item kind %q", kind)
}

// CompleteItem помечает запись выполненной и пишет запись в журнал. Отметка выполняется одним условным UPDATE: две конкурентные отметки одной записи не приведут к двойной записи в журнале и двойному уведомлению - второй вызов получит ErrItemNotFound. Записи чужих семей также невидимы и дают ErrItemNotFound.
//
// Возвращает:
//   - *Item: запись в состоянии после выполнения.
//   - error: ErrItemNotFound либо ошибка базы данных.
func CompleteItem(db *gorm.DB, kind ItemKind, familyID uuid.UUID, userID int64, itemID uuid.UUID) (*Item, error) {
	now := time.Now()
	var item Item
	err := db.Transaction(func(tx *gorm.DB) error {
		switch kind {
		case KindTask:
			var task Task
			res := tx.Model(&task).Clauses(clause.Returning{}).
				Where("id = ? AND family_id = ? AND NOT done", itemID, familyID).
				Updates(map[string]interface{}{"done": true, "completed_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apierrors.ErrItemNotFound
			}
			item = taskToItem(&task)
			return LogAction(tx, familyID, userID, fmt.Sprintf("Выполнил задачу: %s", task.Text), ActionTask)
		case KindShopping:
			var shopping ShoppingItem
			res := tx.Model(&shopping).Clauses(clause.Returning{}).
				Where("id = ? AND family_id = ? AND NOT is_bought", itemID, familyID).
				Updates(map[string]interface{}{"is_bought": true, "completed_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return apierrors.ErrItemNotFound
			}
			item = shoppingToItem(&shopping)
			return LogAction(tx, familyID, userID, fmt.Sprintf("Купил: %s", shopping.Text), ActionShopping)
		default:
			return fmt.Errorf("unknown item kind %q", kind)
		}
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ClearCompleted удаляет выполненные записи семьи и пишет запись в журнал. Открытые записи не затрагиваются.
//
// Возвращает:
//   - int64: количество удаленных записей.
//   - error: ошибка базы данных.
func ClearCompleted(db *gorm.DB, kind ItemKind, familyID uuid.UUID, userID int64) (int64, error) {
	var removed int64
	err := db.Transaction(func(tx *gorm.DB) error {
		switch kind {
		case KindTask:
			res := tx.Where("family_id = ? AND done", familyID).Delete(&Task{})
			if res.Error != nil {
				return res.Error
			}
			removed = res.RowsAffected
		case KindShopping:
			res := tx.Where("family_id = ? AND is_bought", familyID).Delete(&ShoppingItem{})
			if res.Error != nil {
				return res.Error
			}
			removed = res.RowsAffected
		default:
			return fmt.Errorf("unknown item kind %q", kind)
		}
		if removed == 0 {
			return nil
		}
		return LogAction(tx, familyID, userID, fmt.Sprintf("Очистил выполненные (%d)", removed), ActionOther)
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
