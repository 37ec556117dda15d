package models

// Teacher is a persisted teacher row. Identity is the full name; rows are
// created on first sighting and never mutated afterwards.
type Teacher struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Birthday *int64 `db:"birthday"`
}

// LessonDefinition is a persisted subject row. Identity is the subject
// title; the owning teacher is fixed at creation.
type LessonDefinition struct {
	ID        int64   `db:"id"`
	TeacherID int64   `db:"id_teacher"`
	Name      string  `db:"name"`
	Short     *string `db:"short"`
}

// Occurrence is one scheduled class session on a specific date.
type Occurrence struct {
	ID          int64  `db:"id"`
	LessonID    int64  `db:"id_lesson"`
	ClassroomID int    `db:"id_classroom"`
	Classroom   string `db:"classroom"`
	Plan        int    `db:"lesson_plan"`
	Start       int    `db:"start"`
	End         int    `db:"end"`
	Date        string `db:"date"`
	Combined    bool   `db:"flag_combine"`
}

// ScheduleRow is an occurrence joined with its definition, as served by the
// week query.
type ScheduleRow struct {
	ID          int64  `db:"id" json:"id"`
	LessonName  string `db:"lesson_name" json:"lesson_name"`
	ClassroomID int    `db:"id_classroom" json:"id_classroom"`
	Classroom   string `db:"classroom" json:"classroom"`
	Plan        int    `db:"lesson_plan" json:"lesson_plan"`
	Start       int    `db:"start" json:"start"`
	End         int    `db:"end" json:"end"`
	Date        string `db:"date" json:"date"`
	Combined    bool   `db:"flag_combine" json:"flag_combine"`
}

// DayRow is an occurrence joined with definition and teacher, as returned
// by the dates query before mapping back into Lesson values.
type DayRow struct {
	LessonName      string  `db:"lesson_name"`
	LessonNameShort *string `db:"lesson_name_short"`
	ClassroomID     int     `db:"id_classroom"`
	Classroom       string  `db:"classroom"`
	Plan            int     `db:"lesson_plan"`
	Start           int     `db:"start"`
	End             int     `db:"end"`
	Date            string  `db:"date"`
	Combined        bool    `db:"flag_combine"`
	TeacherName     string  `db:"teacher_name"`
	TeacherBirthday *int64  `db:"teacher_birthday"`
}

// Lesson maps the joined row back into the transport record.
func (r DayRow) Lesson() Lesson {
	return Lesson{
		Date:            r.Date,
		Plan:            r.Plan,
		ClassroomID:     r.ClassroomID,
		Classroom:       r.Classroom,
		Combined:        r.Combined,
		Start:           r.Start,
		End:             r.End,
		TeacherName:     r.TeacherName,
		TeacherBirthday: r.TeacherBirthday,
		Subject:         r.LessonName,
		SubjectShort:    r.LessonNameShort,
	}
}
