package models

// Lesson is the transport record exchanged with the upstream feed and
// returned to read-path callers. Values are immutable and freely copied.
type Lesson struct {
	Date            string  `json:"date"`
	Plan            int     `json:"lesson_plan"`
	ClassroomID     int     `json:"id_classroom"`
	Classroom       string  `json:"classroom"`
	Combined        bool    `json:"flag_combine"`
	Start           int     `json:"start"`
	End             int     `json:"end"`
	TeacherName     string  `json:"teacher_name"`
	TeacherBirthday *int64  `json:"teacher_birthday,omitempty"`
	Subject         string  `json:"lesson_name"`
	SubjectShort    *string `json:"lesson_name_short,omitempty"`
}
