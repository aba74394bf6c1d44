package entity

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
)

type FaceBoundingBox struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
}

type FaceMetadata struct {
	Confidence  float64         `json:"confidence"`
	BoundingBox FaceBoundingBox `json:"bounding_box"`
	Brightness  float64         `json:"brightness"`
	Sharpness   float64         `json:"sharpness"`
}

func (m FaceMetadata) Value() (driver.Value, error) {
	return jsoniter.Marshal(m)
}

func (m *FaceMetadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return jsoniter.Unmarshal(v, m)
	case string:
		return jsoniter.Unmarshal([]byte(v), m)
	case nil:
		*m = FaceMetadata{}
		return nil
	default:
		return errors.New("unsupported source type for face metadata")
	}
}

// EnrollmentRecord binds an employee to the face handle currently indexed for
// them. FaceID references a live FaceStore entry iff IsActive is true.
type EnrollmentRecord struct {
	EmployeeID        string       `db:"employee_id"`
	FaceID            string       `db:"face_id"`
	EnrollmentDate    time.Time    `db:"enrollment_date"`
	LastLogin         sql.NullTime `db:"last_login"`
	ThumbnailS3Key    string       `db:"thumbnail_s3_key"`
	IsActive          bool         `db:"is_active"`
	ReEnrollmentCount int          `db:"re_enrollment_count"`
	FaceData          FaceMetadata `db:"face_data"`
}
