package models

// PrivacyFlags is the subset of a user's privacy settings that matters
// when showing them to a matched stranger.
type PrivacyFlags struct {
	ShowUsername bool `json:"show_username"`
	ShowAvatar   bool `json:"show_avatar"`
}

// ProfileSnapshot is the profile data captured at joinQueue time.
// The matchmaker works only against this snapshot so the matching
// critical section never touches the database.
type ProfileSnapshot struct {
	UserID      string       `json:"user_id,omitempty"`
	Username    string       `json:"username,omitempty"`
	DisplayName string       `json:"display_name,omitempty"`
	AvatarURL   string       `json:"avatar_url,omitempty"`
	IsVerified  bool         `json:"is_verified"`
	Gender      string       `json:"gender,omitempty"`
	Interests   []string     `json:"interests,omitempty"`
	Privacy     PrivacyFlags `json:"-"`
}

// SnapshotUser builds a ProfileSnapshot from a stored account.
func SnapshotUser(u *User) ProfileSnapshot {
	return ProfileSnapshot{
		UserID:      u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		IsVerified:  u.IsVerified,
		Gender:      u.Gender,
		Interests:   u.Interests,
		Privacy: PrivacyFlags{
			ShowUsername: u.ShowUsername,
			ShowAvatar:   u.ShowAvatar,
		},
	}
}

// DisplayProfile is what the partner actually receives in stranger:matched.
// Hidden fields are nil pointers so json omits the key entirely instead of
// sending an empty string.
type DisplayProfile struct {
	Username    *string  `json:"username,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	AvatarURL   *string  `json:"avatar_url,omitempty"`
	IsVerified  bool     `json:"is_verified"`
	Interests   []string `json:"interests,omitempty"`
}

// Sanitized applies the owner's privacy flags and returns the profile
// as the stranger is allowed to see it.
func (p ProfileSnapshot) Sanitized() DisplayProfile {
	out := DisplayProfile{
		DisplayName: p.DisplayName,
		IsVerified:  p.IsVerified,
		Interests:   p.Interests,
	}
	if p.Privacy.ShowUsername && p.Username != "" {
		name := p.Username
		out.Username = &name
	}
	if p.Privacy.ShowAvatar && p.AvatarURL != "" {
		url := p.AvatarURL
		out.AvatarURL = &url
	}
	return out
}
