package session

// Session is the record stored under "<prefix>:<SessionID>".
//
// CSRFToken is fixed for the lifetime of the record; a new session always
// carries a new id and a new token.
type Session struct {
	SessionID string `json:"-"`
	UserID    string `json:"userId"`
	UserRole  string `json:"userRole"`
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
	CSRFToken string `json:"csrfToken"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}
