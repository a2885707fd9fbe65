package domain

import "fmt"

// Defaults applied to sparse payloads before delivery.
const (
	DefaultTitle = "Update"
	DefaultBody  = "You have a new notification."
	DefaultIcon  = "/icons/icon-192x192.png"
	DefaultLink  = "/"
)

const maxPayloadTextLen = 1000

// Action is a clickable button rendered on a displayed notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Payload is the provider-displayable message carried by a task.
type Payload struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Icon    string   `json:"icon,omitempty"`
	Image   string   `json:"image,omitempty"`
	Link    string   `json:"link,omitempty"`
	Actions []Action `json:"actions,omitempty"`
}

func (p *Payload) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: payload is required", ErrValidation)
	}
	if p.Title == "" {
		return fmt.Errorf("%w: payload title is required", ErrValidation)
	}
	if p.Body == "" {
		return fmt.Errorf("%w: payload body is required", ErrValidation)
	}
	if titleLen := len([]rune(p.Title)); titleLen > maxPayloadTextLen {
		return fmt.Errorf("%w: payload title exceeds %d characters (got %d)", ErrValidation, maxPayloadTextLen, titleLen)
	}
	if bodyLen := len([]rune(p.Body)); bodyLen > maxPayloadTextLen {
		return fmt.Errorf("%w: payload body exceeds %d characters (got %d)", ErrValidation, maxPayloadTextLen, bodyLen)
	}
	for i, action := range p.Actions {
		if action.Action == "" || action.Title == "" {
			return fmt.Errorf("%w: action %d requires action and title", ErrValidation, i)
		}
	}
	return nil
}

// Normalized returns a copy with display defaults filled in.
func (p Payload) Normalized() Payload {
	if p.Title == "" {
		p.Title = DefaultTitle
	}
	if p.Body == "" {
		p.Body = DefaultBody
	}
	if p.Icon == "" {
		p.Icon = DefaultIcon
	}
	if p.Link == "" {
		p.Link = DefaultLink
	}
	return p
}
