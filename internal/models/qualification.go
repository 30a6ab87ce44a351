package models

import "time"

// QualificationType categorises a submitted credential document.
type QualificationType string

// Recognised qualification types.
const (
	QualificationTypeEducation    QualificationType = "education"
	QualificationTypeTeaching     QualificationType = "teaching"
	QualificationTypeProfessional QualificationType = "professional"
	QualificationTypeLanguage     QualificationType = "language"
	QualificationTypeOther        QualificationType = "other"
)

// QualificationStatus is the moderation state of a credential.
type QualificationStatus string

// Moderation states. There is no path from rejected back to pending; a
// resubmission is a brand-new qualification record.
const (
	QualificationStatusPending  QualificationStatus = "pending"
	QualificationStatusApproved QualificationStatus = "approved"
	QualificationStatusRejected QualificationStatus = "rejected"
)

// Qualification is a credential document submitted by a teacher for review.
type Qualification struct {
	ID            int64               `db:"id" json:"id"`
	UserID        int64               `db:"user_id" json:"user_id"`
	Name          string              `db:"name" json:"name"`
	Type          QualificationType   `db:"type" json:"type"`
	Issuer        string              `db:"issuer" json:"issuer"`
	Description   string              `db:"description" json:"description,omitempty"`
	FileURL       string              `db:"file_url" json:"file_url,omitempty"`
	Status        QualificationStatus `db:"status" json:"status"`
	ReviewComment string              `db:"review_comment" json:"review_comment,omitempty"`
	ReviewDate    *time.Time          `db:"review_date" json:"review_date,omitempty"`
	UploadTime    time.Time           `db:"upload_time" json:"upload_time"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}

// TeacherQualifications is a derived view of a teacher's approved credentials.
// It is recomputed from the qualification set on every read and never stored.
type TeacherQualifications struct {
	TeacherID           int64           `json:"teacher_id"`
	TeacherName         string          `json:"teacher_name"`
	TeachingCertificate string          `json:"teaching_certificate,omitempty"`
	Education           string          `json:"education,omitempty"`
	Major               string          `json:"major,omitempty"`
	OtherCertificates   []string        `json:"other_certificates"`
	Qualifications      []Qualification `json:"qualifications"`
}
