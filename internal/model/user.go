package model

// User is the profile of a signed-in reader.
type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profile_image,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}
