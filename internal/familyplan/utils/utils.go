// Вспомогательные функции, часто используемые в различных частях приложения.
//
// Основные возможности:
//   - Кодирование UUID в компактный base64url для пригласительных ссылок.
//   - Ограничение длины строк по рунам (названия семей, подписи кнопок).
//   - Преобразование слайсов в слайсы другого типа с применением функции.
package utils

import (
	"encoding/base64"
	"errors"

	"github.com/gofrs/uuid"
)

// UUIDToBase64 кодирует UUID в base64url без padding. Результат пригоден для deep link параметра Telegram (до 64 символов из [A-Za-z0-9_-]).
func UUIDToBase64(u uuid.UUID) string {
	return base64.RawURLEncoding.EncodeToString(u.Bytes())
}

// Base64ToUUID декодирует UUID из base64url представления.
//
// Возвращает:
//   - uuid.UUID: декодированный идентификатор.
//   - error: ошибка, если строка не является корректным представлением UUID.
func Base64ToUUID(encoded string) (uuid.UUID, error) {
	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return uuid.Nil, err
	}
	if len(b) != uuid.Size {
		return uuid.Nil, errors.New("invalid uuid length")
	}
	return uuid.FromBytes(b)
}

// TruncateRunes обрезает строку до limit рун. При обрезке последние три руны заменяются на многоточие.
func TruncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// SliceToSlice преобразует слайс одного типа в слайс другого с применением функции к каждому элементу.
func SliceToSlice[T any, U any](in *[]T, f func(*T) U) []U {
	if in == nil {
		return nil
	}
	res := make([]U, len(*in))
	for i := range *in {
		res[i] = f(&(*in)[i])
	}
	return res
}
