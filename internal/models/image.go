package models

import "time"

// Image is an uploaded picture. Bytes live inline in Data unless a blob store
// holds them under StorageKey.
type Image struct {
	BaseModel
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	StorageKey  string    `json:"-"`
	Data        []byte    `gorm:"type:bytea" json:"-"`
	UploadDate  time.Time `json:"uploadDate"`
}
