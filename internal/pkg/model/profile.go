package model

// Profile is owned by the auth subsystem; this service only reads it for
// pairing ratings and display metadata.
type Profile struct {
	Id       string `gorm:"primaryKey"`
	Username string
	Rating   int
}

func (Profile) TableName() string {
	return "profile"
}
