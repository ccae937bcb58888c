package models

// Event is one extracted win record as stored.
// LogTime keeps the raw string exactly as it appeared in the upload;
// windowed views parse it on demand and drop events that don't parse.
type Event struct {
	ID         int64  `json:"id"`
	LogTime    string `json:"log_time"`
	Nickname   string `json:"nickname"`
	ItemType   string `json:"item_type"`
	Quantity   int    `json:"quantity"`
	UniqueSign string `json:"-"`
	DeviceID   string `json:"device_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// Device identifies one remote log-producing agent
type Device struct {
	DeviceID       string  `json:"device_id"`
	TemplateID     string  `json:"template_id"`
	Nickname       string  `json:"nickname"`
	Secret         string  `json:"-"`
	LastSeen       float64 `json:"last_seen"`
	ProcessRunning bool    `json:"process_running"`
	FirstSeen      float64 `json:"first_seen"`
}

// Node is the dashboard view of a device, with derived liveness
type Node struct {
	DeviceID       string `json:"device_id"`
	TemplateID     string `json:"template_id"`
	Nickname       string `json:"nickname"`
	IsOnline       bool   `json:"is_online"`
	ProcessRunning bool   `json:"process_running"`
}

// RankEntry is one row of the current-round ranking
type RankEntry struct {
	Nickname string `json:"nickname"`
	WinTimes int    `json:"win_times"`
	WinSum   int    `json:"win_sum"`
}

// HistoryDay is one closed-day aggregate, computed or operator-overridden
type HistoryDay struct {
	Date      string `json:"date"`
	UserCount int    `json:"user_count"`
	DailySum  int    `json:"daily_sum"`
	IsManual  bool   `json:"is_manual"`
}

// RoundReset is a manually set round-start instant for a device+template scope
type RoundReset struct {
	DeviceID   string `json:"device_id"`
	TemplateID string `json:"template_id"`
	ResetAt    string `json:"reset_at"`
}

// DailyOverride is an operator-supplied replacement for a computed daily aggregate
type DailyOverride struct {
	Date        string `json:"date"`
	DeviceID    string `json:"device_id"`
	TemplateID  string `json:"template_id"`
	ManualUsers int    `json:"manual_users"`
	ManualSum   int    `json:"manual_sum"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
