package ws

import "github.com/cwrk-planet/chat-relay/internal/domain"

// Типы кадров протокола
const (
	TypeYourIdentity = "your_identity" // имя, под которым подключился клиент
	TypeHistory      = "history"       // вся история комнаты
	TypeMessage      = "message"       // системное или чат-сообщение
	TypeChatMessage  = "chat_message"  // входящее от клиента
	TypeError        = "error"         // ошибка только отправителю
)

type IdentityFrame struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type HistoryFrame struct {
	Type string           `json:"type"`
	Msgs []domain.Message `json:"msgs"`
}

// MessageFrame: system=true для join/leave, иначе с именем отправителя.
type MessageFrame struct {
	Type   string `json:"type"`
	System bool   `json:"system"`
	Name   string `json:"name,omitempty"`
	Text   string `json:"text"`
}

type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// InboundFrame: для chat_message поле content обязано присутствовать,
// пустая строка допустима и сохраняется как есть.
type InboundFrame struct {
	Type    string  `json:"type" validate:"required"`
	Content *string `json:"content" validate:"required_if=Type chat_message"`
}

func identityFrame(name string) IdentityFrame {
	return IdentityFrame{Type: TypeYourIdentity, Name: name}
}

func historyFrame(msgs []domain.Message) HistoryFrame {
	if msgs == nil {
		msgs = []domain.Message{}
	}
	return HistoryFrame{Type: TypeHistory, Msgs: msgs}
}

func systemFrame(text string) MessageFrame {
	return MessageFrame{Type: TypeMessage, System: true, Text: text}
}

func chatFrame(name, text string) MessageFrame {
	return MessageFrame{Type: TypeMessage, System: false, Name: name, Text: text}
}

func errorFrame(msg string) ErrorFrame {
	return ErrorFrame{Type: TypeError, Error: msg}
}
