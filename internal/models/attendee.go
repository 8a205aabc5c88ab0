package models

type Attendee struct {
	Ref           string      `gorm:"primaryKey;size:16" json:"ref"`
	Name          string      `json:"name"`
	Email         string      `gorm:"index" json:"email"`
	OriginalEmail string      `gorm:"index" json:"original_email"`
	PhoneNumber   string      `json:"phone_number"`
	Type          string      `json:"type"`
	Affiliation   string      `json:"affiliation"`
	Preferences   Preferences `gorm:"type:jsonb" json:"preferences"`
	Registered    bool        `gorm:"not null;default:false" json:"registered"`
	Source        string      `json:"source"`
}

func (Attendee) TableName() string {
	return "attendees"
}

// AttendeeView is an attendee row together with the flags derived from it on
// every read. The flags are never persisted.
type AttendeeView struct {
	Attendee
	AccessConf   bool `json:"accessConf"`
	AccessGala   bool `json:"accessGala"`
	Transferable bool `json:"transferable"`
}
