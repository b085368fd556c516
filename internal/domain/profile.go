package domain

import "time"

// Identity is what the external identity provider asserts about the caller.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	PhotoURL    string `json:"photo_url"`
}

type Profile struct {
	UID         string    `json:"uid" bson:"_id"`
	Email       string    `json:"email" bson:"email"`
	DisplayName string    `json:"display_name" bson:"display_name"`
	PhotoURL    string    `json:"photo_url" bson:"photo_url"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

func (u ProfileUpdate) Apply(p *Profile, now time.Time) {
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.PhotoURL != nil {
		p.PhotoURL = *u.PhotoURL
	}
	p.UpdatedAt = now
}
