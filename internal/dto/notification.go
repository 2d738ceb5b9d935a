package dto

// RegisterPushTokenRequest registers a device for push delivery
type RegisterPushTokenRequest struct {
	Token    string `json:"token" validate:"required,max=512"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

// UnregisterPushTokenRequest removes a device registration
type UnregisterPushTokenRequest struct {
	Token string `json:"token" validate:"required,max=512"`
}

// TestNotificationRequest enqueues a notification for the current user
type TestNotificationRequest struct {
	Channel string `json:"channel" validate:"omitempty,oneof=push email"`
	Title   string `json:"title" validate:"max=255"`
	Body    string `json:"body" validate:"max=2000"`
}
