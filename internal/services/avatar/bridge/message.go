// Package bridge decodes messages posted by the embedded avatar editor.
package bridge

import (
	"encoding/json"
	"regexp"
	"strings"

	apperrors "github.com/swoplabs/swopcredit/internal/platform/errors"
)

// Source is the only message source the bridge accepts.
const Source = "readyplayerme"

// Event names emitted by the editor embed.
const (
	EventFrameReady     = "v1.frame.ready"
	EventAvatarExported = "v1.avatar.exported"
	EventUserSet        = "v1.user.set"
)

var modelURLPattern = regexp.MustCompile(`^https://models\.readyplayer\.me/[A-Za-z0-9]+\.glb$`)

// Message is one decoded editor message. Exactly one variant implements it
// per decoded payload; callers switch on the concrete type.
type Message interface {
	isMessage()
}

// FrameReady signals the editor finished loading and will start posting
// JSON events.
type FrameReady struct{}

// AvatarExported carries the exported model URL.
type AvatarExported struct {
	URL string
}

// UserSet signals the editor bound an editor-side account.
type UserSet struct {
	UserID string
}

// Unrecognized preserves messages the bridge does not understand so callers
// can log them without failing the stream.
type Unrecognized struct {
	Source    string
	EventName string
	Raw       string
}

func (FrameReady) isMessage()     {}
func (AvatarExported) isMessage() {}
func (UserSet) isMessage()        {}
func (Unrecognized) isMessage()   {}

type rawMessage struct {
	Source    string `json:"source"`
	EventName string `json:"eventName"`
	Data      struct {
		URL string `json:"url"`
		ID  string `json:"id"`
	} `json:"data"`
}

// ValidateModelURL checks an exported model URL against the published
// pattern.
func ValidateModelURL(url string) error {
	if !modelURLPattern.MatchString(strings.TrimSpace(url)) {
		return apperrors.New(apperrors.CodeAvatarURLInvalid, "avatar url must match https://models.readyplayer.me/<id>.glb")
	}
	return nil
}

// Decode parses one raw editor message into its variant.
//
// Older embeds post the bare model URL as a plain string instead of the
// JSON envelope; that form decodes as AvatarExported too.
func Decode(payload []byte) (Message, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil, apperrors.New(apperrors.CodeAvatarEventMalformed, "empty message")
	}

	if !strings.HasPrefix(trimmed, "{") {
		url := strings.Trim(trimmed, `"`)
		if err := ValidateModelURL(url); err == nil {
			return AvatarExported{URL: url}, nil
		}
		return Unrecognized{Raw: trimmed}, nil
	}

	var raw rawMessage
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeAvatarEventMalformed, "malformed message", err)
	}
	if raw.Source != Source {
		return Unrecognized{Source: raw.Source, EventName: raw.EventName, Raw: trimmed}, nil
	}

	switch raw.EventName {
	case EventFrameReady:
		return FrameReady{}, nil
	case EventUserSet:
		return UserSet{UserID: strings.TrimSpace(raw.Data.ID)}, nil
	case EventAvatarExported:
		url := strings.TrimSpace(raw.Data.URL)
		if err := ValidateModelURL(url); err != nil {
			return nil, err
		}
		return AvatarExported{URL: url}, nil
	default:
		return Unrecognized{Source: raw.Source, EventName: raw.EventName, Raw: trimmed}, nil
	}
}
