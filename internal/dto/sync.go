package dto

// SyncRequest triggers a manual sync run for one user.
type SyncRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// ConnectRequest finishes the OAuth consent flow for a user.
type ConnectRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Code        string `json:"code" binding:"required"`
	RedirectURI string `json:"redirect_uri"`
	// TwoWaySync defaults to enabled when omitted.
	TwoWaySync *bool `json:"two_way_sync"`
}
