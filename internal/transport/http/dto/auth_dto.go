package dto

type JoinRequest struct {
	LinkToken   string `json:"link_token" validate:"required,max=128"`
	DisplayName string `json:"display_name" validate:"required,max=64"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthMeResponse struct {
	ID          int64  `json:"id"`
	PageID      int64  `json:"page_id"`
	Role        string `json:"role"`
	DisplayName string `json:"display_name,omitempty"`
}

type AuthTokensResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresInSec int64          `json:"expires_in_sec"`
	Me           AuthMeResponse `json:"me"`
}

type LogoutResponse struct {
	OK bool `json:"ok"`
}
