package models

import "time"

// OTPChannel is the identifier type a code is bound to.
type OTPChannel string

const (
	ChannelEmail  OTPChannel = "email"
	ChannelMobile OTPChannel = "mobile"
)

// Valid reports whether the channel is one of the supported kinds.
func (c OTPChannel) Valid() bool {
	return c == ChannelEmail || c == ChannelMobile
}

// OTPRecord keeps track of the one-time code issued for an identifier on a channel.
// A new request for the same pair overwrites the previous row.
type OTPRecord struct {
	BaseModel
	Identifier string     `gorm:"size:255;not null;uniqueIndex:idx_otp_identifier_channel" json:"identifier"`
	Channel    OTPChannel `gorm:"size:16;not null;uniqueIndex:idx_otp_identifier_channel" json:"channel"`
	Code       string     `gorm:"size:6;not null" json:"-"`
	Verified   bool       `gorm:"not null" json:"verified"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
}

// Active reports whether the record is still inside its validity window.
func (r *OTPRecord) Active(now time.Time) bool {
	return r.ExpiresAt.After(now)
}
