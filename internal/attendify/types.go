package attendify

// LoginResponse is returned by POST /api/login. On failure the backend sets
// the Error field instead of the token.
type LoginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	Error       string `json:"error,omitempty"`
}

// EnrollmentRequest is the payload for POST /api/enroll.
type EnrollmentRequest struct {
	Name              string `json:"name"`
	RegNo             string `json:"reg_no"`
	Course            string `json:"course"`
	Year              int    `json:"year"`
	Semester          int    `json:"semester"`
	FacialImageBase64 string `json:"facial_image_base64"`
	Consent           bool   `json:"consent"`
	Username          string `json:"username,omitempty"`
	Password          string `json:"password,omitempty"`
}

// EnrollmentResponse is returned by POST /api/enroll.
type EnrollmentResponse struct {
	Message   string `json:"message,omitempty"`
	StudentID int    `json:"student_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StudentInfo identifies the matched student in a recognition response.
type StudentInfo struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	RegNo    string `json:"reg_no"`
	Course   string `json:"course"`
	Year     int    `json:"year"`
	Semester int    `json:"semester"`
}

// ClassInfo identifies the class a recognition was logged against.
type ClassInfo struct {
	ID        int    `json:"id"`
	CourseID  int    `json:"course_id"`
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// RecognitionResponse is returned by POST /api/recognize. Matched without
// AttendanceLogged means the face was recognized outside any class window.
type RecognitionResponse struct {
	Matched          bool         `json:"matched"`
	Score            float64      `json:"score,omitempty"`
	AttendanceLogged bool         `json:"attendance_logged,omitempty"`
	Reason           string       `json:"reason,omitempty"`
	Student          *StudentInfo `json:"student,omitempty"`
	Class            *ClassInfo   `json:"class,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// AttendanceLog is a single attendance record in a student report.
type AttendanceLog struct {
	AttendanceID int    `json:"attendance_id"`
	ClassID      int    `json:"class_id"`
	Timestamp    string `json:"timestamp"`
	Status       string `json:"status"`
}

// AttendanceSummary totals present/absent records.
type AttendanceSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// StudentReport is returned by GET /api/student/attendance.
type StudentReport struct {
	StudentID int               `json:"student_id"`
	Logs      []AttendanceLog   `json:"logs"`
	Summary   AttendanceSummary `json:"summary"`
	Error     string            `json:"error,omitempty"`
}

// ClassTally is the per-class breakdown in an admin report.
type ClassTally struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
}

// AdminReport is returned by GET /api/admin/reports.
type AdminReport struct {
	TotalRecords    int                   `json:"total_records"`
	Present         int                   `json:"present"`
	Absent          int                   `json:"absent"`
	AbsenteeismRate float64               `json:"absenteeism_rate"`
	ByClass         map[string]ClassTally `json:"by_class"`
	Error           string                `json:"error,omitempty"`
}

// ConsentResponse is returned by POST /api/consent.
type ConsentResponse struct {
	Message      string `json:"message,omitempty"`
	ConsentGiven bool   `json:"consent_given"`
	Error        string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
