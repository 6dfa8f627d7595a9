// Пакет содержит определения ошибок, используемых в приложении familyplan для обработки различных ситуаций, возникающих при работе с семьями, списками задач и покупок.  Каждая ошибка имеет код, статус HTTP и описание, что позволяет удобно обрабатывать исключения и предоставлять информативные сообщения пользователю.  Русский текст ошибки показывается пользователю в Telegram как есть.
//
// Основные возможности:
//   - Определение ошибок прав доступа (действия, доступные только родителю).
//   - Защита от удаления последнего родителя семьи.
//   - Ошибки отсутствия сущностей (семья, задача, покупка, участник).
//   - Функция для форматирования сообщений об ошибках с использованием аргументов.
package apierrors

import (
	"fmt"
	"net/http"
)

type DefinedError struct {
	Code       int    `json:"code"`
	StatusCode int    `json:"-"`
	Err        string `json:"error"`
	RuErr      string `json:"ru_error,omitempty"`
}

func (e DefinedError) Error() string {
	return e.Err
}

var (
	// 1*** - family & membership errors
	ErrOnlyParent      = DefinedError{Code: 1001, StatusCode: http.StatusForbidden, Err: "action allowed for parent only", RuErr: "Это действие доступно только родителю."}
	ErrLastParent      = DefinedError{Code: 1002, StatusCode: http.StatusConflict, Err: "family must retain at least one parent", RuErr: "Нельзя удалить последнего родителя семьи."}
	ErrFamilyNotFound  = DefinedError{Code: 1003, StatusCode: http.StatusNotFound, Err: "family not found", RuErr: "Семья не найдена."}
	ErrMemberNotFound  = DefinedError{Code: 1004, StatusCode: http.StatusNotFound, Err: "family member not found", RuErr: "Участник не найден в вашей семье."}
	ErrAlreadyInFamily = DefinedError{Code: 1005, StatusCode: http.StatusConflict, Err: "user already belongs to another family", RuErr: "Вы уже состоите в другой семье. Сначала покиньте её."}
	ErrNotInFamily     = DefinedError{Code: 1006, StatusCode: http.StatusNotFound, Err: "user has no family", RuErr: "Вы пока не состоите в семье. Отправьте /start."}
	ErrBadInviteLink   = DefinedError{Code: 1007, StatusCode: http.StatusBadRequest, Err: "invite link is malformed", RuErr: "Пригласительная ссылка повреждена или устарела."}

	// 2*** - item errors
	ErrItemNotFound = DefinedError{Code: 2001, StatusCode: http.StatusNotFound, Err: "item not found in your family", RuErr: "Запись не найдена или уже выполнена."}

	// 3*** - settings errors
	ErrEmojiTooLong = DefinedError{Code: 3001, StatusCode: http.StatusBadRequest, Err: "emoji value too long", RuErr: "Пожалуйста, отправьте только один эмодзи."}
	ErrBadSetting   = DefinedError{Code: 3002, StatusCode: http.StatusBadRequest, Err: "unknown setting value", RuErr: "Неизвестное значение настройки."}
)

// Message формирует текст ошибки с аргументами. Используется для ошибок, содержащих placeholders в описании.
func Message(err DefinedError, args ...interface{}) string {
	if len(args) == 0 {
		return err.RuErr
	}
	return fmt.Sprintf(err.RuErr, args...)
}
