package model

import "time"

// Settings is the singleton row of the settings table.
type Settings struct {
	ID                   uint      `gorm:"column:id;primaryKey;autoIncrement:false;check:chk_settings_singleton,id = 1"`
	UserName             string    `gorm:"column:userName;type:text"`
	EnableNotifications  Flag      `gorm:"column:enableNotifications;type:integer"`
	EnableBluetoothAudio Flag      `gorm:"column:enableBluetoothAudio;type:integer"`
	SoundVolume          int       `gorm:"column:soundVolume;type:integer"`
	UpdatedAt            time.Time `gorm:"column:updatedAt"`
}

func (Settings) TableName() string { return "settings" }

// SettingsID is the only id the settings table accepts.
const SettingsID = 1

// AppSettings are the user preferences shared by the server and the client.
type AppSettings struct {
	UserName             string `json:"userName"`
	EnableNotifications  bool   `json:"enableNotifications"`
	EnableBluetoothAudio bool   `json:"enableBluetoothAudio"`
	SoundVolume          int    `json:"soundVolume"`
}

// DefaultAppSettings returns the values used when nothing has been stored yet.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		UserName:             "User",
		EnableNotifications:  true,
		EnableBluetoothAudio: false,
		SoundVolume:          75,
	}
}

// AppSettingsPatch carries a partial settings update; nil fields are kept.
type AppSettingsPatch struct {
	UserName             *string `json:"userName,omitempty"`
	EnableNotifications  *bool   `json:"enableNotifications,omitempty"`
	EnableBluetoothAudio *bool   `json:"enableBluetoothAudio,omitempty"`
	SoundVolume          *int    `json:"soundVolume,omitempty"`
}

// Merge applies p on top of s.
func (s AppSettings) Merge(p AppSettingsPatch) AppSettings {
	if p.UserName != nil {
		s.UserName = *p.UserName
	}
	if p.EnableNotifications != nil {
		s.EnableNotifications = *p.EnableNotifications
	}
	if p.EnableBluetoothAudio != nil {
		s.EnableBluetoothAudio = *p.EnableBluetoothAudio
	}
	if p.SoundVolume != nil {
		s.SoundVolume = *p.SoundVolume
	}
	return s
}

// AppSettings converts the stored row.
func (s Settings) AppSettings() AppSettings {
	return AppSettings{
		UserName:             s.UserName,
		EnableNotifications:  bool(s.EnableNotifications),
		EnableBluetoothAudio: bool(s.EnableBluetoothAudio),
		SoundVolume:          s.SoundVolume,
	}
}

// SettingsFromApp builds the singleton row for a.
func SettingsFromApp(a AppSettings) Settings {
	return Settings{
		ID:                   SettingsID,
		UserName:             a.UserName,
		EnableNotifications:  Flag(a.EnableNotifications),
		EnableBluetoothAudio: Flag(a.EnableBluetoothAudio),
		SoundVolume:          a.SoundVolume,
	}
}
