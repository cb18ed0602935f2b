package domain

import (
	"encoding/json"
	"fmt"
)

// Notification is a single message delivered by the subscription. Ack must be
// called exactly once after the message has been handled, whatever the outcome,
// so the broker never redelivers it to this run.
type Notification struct {
	ID      string
	Payload []byte
	Ack     func()
}

// ObjectNotice is the payload of a bucket notification. Only the object key
// matters to us; an empty Name means the notification is not actionable.
type ObjectNotice struct {
	Name string `json:"name"`
}

func ParseObjectNotice(payload []byte) (ObjectNotice, error) {
	var notice ObjectNotice

	err := json.Unmarshal(payload, &notice)
	if err != nil {
		return ObjectNotice{}, fmt.Errorf("error parsing notification payload: %w", err)
	}

	return notice, nil
}
