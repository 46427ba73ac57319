package model

// 开课班排课状态
const (
	ScheduleStatusPending   = "pending"
	ScheduleStatusScheduled = "scheduled"
)

// ClassOffering 开课班表，对应 class_offerings
//
// Version 用于提交时的乐观锁：同一开课班被两名排课人员同时提交时，后到者失败。
type ClassOffering struct {
	ClassID        string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"class_id"`
	SemesterID     string  `gorm:"type:uuid;not null;index"                       json:"semester_id"`
	Code           string  `gorm:"type:varchar(32);not null"                      json:"code"`
	Title          string  `gorm:"type:varchar(200);not null"                     json:"title"`
	InstructorID   *string `gorm:"type:varchar(64)"                               json:"instructor_id,omitempty"`
	EnrolledCount  int     `gorm:"not null;default:0"                             json:"enrolled_count"`
	ScheduleStatus string  `gorm:"type:varchar(20);not null;default:'pending'"    json:"schedule_status"`
	VersionedModel

	Semester *Semester `gorm:"foreignKey:SemesterID;references:SemesterID" json:"semester,omitempty"`
}

// TableName 指定表名
func (ClassOffering) TableName() string { return "class_offerings" }
