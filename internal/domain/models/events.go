package models

// Push event types delivered over the authoritative push channel.
// The sequence number is strictly increasing per session so clients
// can discard stale or out-of-order deliveries.

type EventType string

const (
	EventCandleComplete   EventType = "candle_complete"
	EventCandleIncomplete EventType = "candle_incomplete"
	EventWindowLoaded     EventType = "window_loaded"
	EventPositioned       EventType = "positioned"
	EventEndOfData        EventType = "end_of_data"
)

// PushEvent is the single message shape on the push path.
type PushEvent struct {
	Seq         uint64    `json:"seq"`
	Type        EventType `json:"type"`
	Timeframe   string    `json:"timeframe"`
	Candle      *Bar      `json:"candle,omitempty"`
	Bars        []Bar     `json:"bars,omitempty"`
	VirtualTime int64     `json:"virtual_time,omitempty"`
}
