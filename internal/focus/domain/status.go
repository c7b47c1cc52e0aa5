package domain

// Status is the getStatus snapshot. Timestamps are unix milliseconds and
// encode as null when the timer is not running.
type Status struct {
	TimerEndTime  *int64    `json:"timerEndTime"`
	TimerDuration *int64    `json:"timerDuration"`
	IsActive      bool      `json:"isActive"`
	AllowedSites  AllowList `json:"allowedSites"`
}

// NewStatus builds a Status from state.
func NewStatus(timer TimerState, allowed AllowList) Status {
	st := Status{IsActive: timer.IsActive, AllowedSites: allowed}
	if st.AllowedSites == nil {
		st.AllowedSites = AllowList{}
	}
	if timer.EndTime != nil {
		ms := timer.EndTime.UnixMilli()
		st.TimerEndTime = &ms
	}
	if timer.Duration != nil {
		ms := timer.Duration.Milliseconds()
		st.TimerDuration = &ms
	}
	return st
}

// SiteExport is the export/import file format.
type SiteExport struct {
	AllowedSites AllowList `json:"allowedSites"`
}
