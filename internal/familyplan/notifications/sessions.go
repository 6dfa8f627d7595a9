// Пакет для управления диалоговыми сессиями Telegram бота.
// Содержит логику начала, продолжения и завершения сессий, а также обработку пользовательских ответов.
// Сессия - это последовательность шагов "вопрос-ответ" с функцией завершения, получающей все ответы.
//
// Основные возможности:
//   - Управление сессиями пользователей (одна активная сессия на пользователя).
//   - Пошаговый сбор ответов с преобразованием и валидацией.
//   - Истечение брошенных сессий по TTL: ответ в устаревшую сессию не выполняет действий.
package notifications

import (
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type SessionHandler struct {
	sessions map[int64]*Flow
	m        sync.RWMutex
	ttl      time.Duration
}

type Flow struct {
	steps     []Step
	position  int
	startedAt time.Time

	resultFunc func(userID int64, answers []interface{})

	Answers []interface{}
}

type Step struct {
	Question    tgbotapi.MessageConfig
	answer      interface{}
	convertFunc func(tgbotapi.Update) (interface{}, error)
}

func NewSessionHandler(ttl time.Duration) *SessionHandler {
	sh := SessionHandler{ttl: ttl}
	sh.sessions = make(map[int64]*Flow)
	return &sh
}

// StartSession начинает сессию пользователя, заменяя предыдущую, если она была. Возвращает первый шаг сессии.
func (sh *SessionHandler) StartSession(userID int64, flow Flow) (*Step, bool) {
	sh.m.Lock()
	defer sh.m.Unlock()
	flow.startedAt = time.Now()
	sh.sessions[userID] = &flow
	return flow.Next(userID)
}

// IsBusy проверяет, есть ли у пользователя активная сессия. Истекшие по TTL сессии удаляются здесь же.
func (sh *SessionHandler) IsBusy(userID int64) bool {
	sh.m.Lock()
	defer sh.m.Unlock()
	flow, ok := sh.sessions[userID]
	if !ok {
		return false
	}
	if sh.ttl > 0 && time.Since(flow.startedAt) > sh.ttl {
		delete(sh.sessions, userID)
		return false
	}
	return true
}

// Next возвращает следующий шаг сессии. Когда шагов не осталось, вызывается функция завершения с собранными ответами и возвращается (nil, true).
func (sh *SessionHandler) Next(userID int64) (*Step, bool) {
	if !sh.IsBusy(userID) {
		return nil, true
	}
	sh.m.RLock()
	defer sh.m.RUnlock()
	flow := sh.sessions[userID]
	return flow.Next(userID)
}

// Answer передает ответ пользователя текущему шагу сессии.
func (sh *SessionHandler) Answer(userID int64, update tgbotapi.Update) error {
	if !sh.IsBusy(userID) {
		return nil
	}
	sh.m.RLock()
	defer sh.m.RUnlock()
	flow := sh.sessions[userID]
	return flow.Answer(update)
}

// Abort завершает сессию пользователя без вызова функции завершения.
func (sh *SessionHandler) Abort(userID int64) {
	sh.m.Lock()
	defer sh.m.Unlock()
	delete(sh.sessions, userID)
}

func (flow *Flow) Next(userID int64) (*Step, bool) {
	if flow.position > len(flow.steps)-1 {
		for _, step := range flow.steps {
			flow.Answers = append(flow.Answers, step.answer)
		}
		flow.resultFunc(userID, flow.Answers)
		return nil, true
	}
	step := flow.steps[flow.position]
	return &step, false
}

func (flow *Flow) Answer(update tgbotapi.Update) error {
	if err := flow.steps[flow.position].Answer(update); err != nil {
		return err
	}
	flow.position = flow.position + 1
	return nil
}

func (step *Step) Answer(update tgbotapi.Update) error {
	res, err := step.convertFunc(update)
	if err != nil {
		return err
	}
	step.answer = res
	return nil
}

func convertString(update tgbotapi.Update) (interface{}, error) {
	if update.Message == nil || update.Message.Text == "" {
		return nil, errors.New("пришлите текст")
	}
	return update.Message.Text, nil
}

func convertCallback(update tgbotapi.Update) (interface{}, error) {
	if update.CallbackQuery == nil {
		return nil, errors.New("нажмите на кнопку выбора")
	}
	return update.CallbackData(), nil
}
