package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"pillars/internal/core"
)

// MessageVersion is bumped whenever DaySavedMessage changes shape.
const MessageVersion = 1

// DaySavedMessage announces that every section of a date was persisted.
// It carries only the date; consumers read the day back from the store.
type DaySavedMessage struct {
	Date          string    `json:"date"`
	Version       int       `json:"version"`
	NetProfit     string    `json:"net_profit"`
	ChangedPrices []string  `json:"changed_prices,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewDaySavedMessage creates a message for d stamped now.
func NewDaySavedMessage(d core.Date, netProfit string, changedPrices []string) *DaySavedMessage {
	return &DaySavedMessage{
		Date:          d.Key(),
		Version:       MessageVersion,
		NetProfit:     netProfit,
		ChangedPrices: changedPrices,
		Timestamp:     time.Now(),
	}
}

// Day parses the message date.
func (m *DaySavedMessage) Day() (core.Date, error) {
	return core.ParseDate(m.Date)
}

// ToJSON converts the message to JSON bytes
func (m *DaySavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DaySavedMessageFromJSON decodes and checks a message body.
func DaySavedMessageFromJSON(data []byte) (*DaySavedMessage, error) {
	var msg DaySavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Version != MessageVersion {
		return nil, fmt.Errorf("unsupported message version %d", msg.Version)
	}
	if _, err := msg.Day(); err != nil {
		return nil, err
	}
	return &msg, nil
}
