package models

// ClientSignals carries the browser characteristics collected by the platform
// UI alongside a vote attempt. The fingerprint, identity hash and bot detector
// read only this value; nothing in the service touches ambient browser state.
type ClientSignals struct {
	UserAgent      string `json:"user_agent"`
	Language       string `json:"language"`
	ScreenWidth    int    `json:"screen_width"`
	ScreenHeight   int    `json:"screen_height"`
	TimezoneOffset int    `json:"timezone_offset"`
	Platform       string `json:"platform"`
	CanvasData     string `json:"canvas_data"`

	Interaction InteractionSignals `json:"interaction"`
}

// InteractionSignals is the behavioral slice of the payload, populated by the
// UI's event collectors before submission.
type InteractionSignals struct {
	MouseEvents      int   `json:"mouse_events"`
	KeyEvents        int   `json:"key_events"`
	Webdriver        bool  `json:"webdriver"`
	TimeToInteractMs int64 `json:"time_to_interact_ms"`
	TouchSupport     bool  `json:"touch_support"`
	MaxTouchPoints   int   `json:"max_touch_points"`
}
