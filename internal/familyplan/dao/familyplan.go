// DAO (Data Access Object) - предоставляет интерфейс для взаимодействия с базой данных.  Содержит функции для работы с сущностями приложения: семьями, участниками, задачами, покупками, настройками уведомлений и журналом активности.  Обеспечивает абстракцию от конкретной реализации базы данных и упрощает доступ к данным приложения.
//
// Основные возможности:
//   - Работа с семьями и участниками (создание, присоединение, роли, удаление).
//   - Управление задачами и покупками (создание, списки, выполнение, очистка).
//   - Настройки уведомлений пользователей.
//   - Журнал активности семьи с пагинацией и фильтрами.
package dao

import (
	"github.com/aisa-it/familyplan/familyplan.go/internal/familyplan/config"
	"github.com/gofrs/uuid"
)

// GenUUID генерирует уникальный идентификатор в формате UUID. Не принимает параметров и возвращает UUID.
//
// Возвращает:
//   - uuid.UUID: UUID, представляющий собой уникальный идентификатор.
func GenUUID() uuid.UUID {
	u2, _ := uuid.NewV4()
	return u2
}

var Config *config.Config

// Роли участников семьи
const (
	RoleParent = "parent"
	RoleChild  = "child"
)

// Настройки уведомлений пользователя
const (
	NotifyAll       = "all"
	NotifyImportant = "important"
	NotifyOff       = "off"
)

// Категории записей журнала активности
const (
	ActionTask     = "task"
	ActionShopping = "shopping"
	ActionRole     = "role"
	ActionRemove   = "remove"
	ActionRename   = "rename"
	ActionJoin     = "join"
	ActionOther    = "other"
)
