package amqp

import (
	"encoding/json"
	"time"
)

// Mirror operations carried on the wire.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// MirrorMessage tells the worker to replay one activity write into the
// mirror. It carries only identifiers; for upserts the worker fetches the
// current row from the origin store, so stale deliveries converge on the
// latest state.
type MirrorMessage struct {
	Op         string    `json:"op"`
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Day        string    `json:"day"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewUpsertMessage(activityID, userID, day string) *MirrorMessage {
	return &MirrorMessage{
		Op:         OpUpsert,
		ActivityID: activityID,
		UserID:     userID,
		Day:        day,
		Timestamp:  time.Now(),
	}
}

func NewDeleteMessage(activityID, userID, day string) *MirrorMessage {
	return &MirrorMessage{
		Op:         OpDelete,
		ActivityID: activityID,
		UserID:     userID,
		Day:        day,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *MirrorMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MirrorMessageFromJSON creates a message from JSON bytes.
func MirrorMessageFromJSON(data []byte) (*MirrorMessage, error) {
	var msg MirrorMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
