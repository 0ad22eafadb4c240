package httpapi

// CalendarsResponse lists the registered calendar names.
type CalendarsResponse struct {
	Calendars []string `json:"calendars"`
}

// CalendarResponse describes one calendar's regular pattern and bounds.
type CalendarResponse struct {
	Name       string   `json:"name"`
	Timezone   string   `json:"timezone"`
	Weekdays   []string `json:"weekdays"`
	Open       string   `json:"open"`
	Close      string   `json:"close"`
	BreakStart string   `json:"break_start,omitempty"`
	BreakEnd   string   `json:"break_end,omitempty"`
	Side       string   `json:"side"`
	FirstDate  string   `json:"first_date"`
	LastDate   string   `json:"last_date"`
}

// SessionsResponse lists session dates, ascending.
type SessionsResponse struct {
	Calendar string   `json:"calendar"`
	Sessions []string `json:"sessions"`
}

// ScheduleRow is the wire form of one schedule row. Instants are RFC 3339 in
// UTC; break fields are omitted for sessions without a break.
type ScheduleRow struct {
	Session    string `json:"session"`
	Open       string `json:"open"`
	BreakStart string `json:"break_start,omitempty"`
	BreakEnd   string `json:"break_end,omitempty"`
	Close      string `json:"close"`
}

// ScheduleResponse holds schedule rows for a range of sessions.
type ScheduleResponse struct {
	Calendar string        `json:"calendar"`
	Rows     []ScheduleRow `json:"rows"`
}

// SessionCheckResponse answers an is-session query.
type SessionCheckResponse struct {
	Calendar  string `json:"calendar"`
	Date      string `json:"date"`
	IsSession bool   `json:"is_session"`
}

// SessionResponse answers a single-session navigation query.
type SessionResponse struct {
	Calendar string `json:"calendar"`
	Session  string `json:"session"`
}

// MinuteCheckResponse answers an is-trading-minute or is-break-minute query.
type MinuteCheckResponse struct {
	Calendar string `json:"calendar"`
	Minute   string `json:"minute"`
	Result   bool   `json:"result"`
}

// MinuteResponse answers a single-instant navigation query.
type MinuteResponse struct {
	Calendar string `json:"calendar"`
	Minute   string `json:"minute"`
}

// MinutesResponse lists the trading minutes of one session, ascending.
type MinutesResponse struct {
	Calendar string   `json:"calendar"`
	Session  string   `json:"session"`
	Minutes  []string `json:"minutes"`
}
