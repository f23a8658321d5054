package models

type HubEventType string

const (
	HubEventTypeMessage       HubEventType = "message"
	HubEventTypeInfoShort     HubEventType = "info_short"
	HubEventTypeError         HubEventType = "error"
	HubEventTypeLuaPrint      HubEventType = "lua_print"
	HubEventTypeRtModelChange HubEventType = "rt_model_change"
)

// HubEvent is anything published to the notification hub.
type HubEvent interface {
	GetType() HubEventType
}

type HubMessage struct {
	Content string `json:"content"`
}

func (m HubMessage) GetType() HubEventType {
	return HubEventTypeMessage
}

type HubInfoShort struct {
	Content string `json:"content"`
}

func (m HubInfoShort) GetType() HubEventType {
	return HubEventTypeInfoShort
}

type HubError struct {
	Error string `json:"error"`
}

func (m HubError) GetType() HubEventType {
	return HubEventTypeError
}

type HubLuaPrint struct {
	Content string     `json:"content"`
	Ctx     RuntimeCtx `json:"-"`
}

func (m HubLuaPrint) GetType() HubEventType {
	return HubEventTypeLuaPrint
}

// HubRtModelChange signals that stored run state changed.
type HubRtModelChange struct{}

func (m HubRtModelChange) GetType() HubEventType {
	return HubEventTypeRtModelChange
}
