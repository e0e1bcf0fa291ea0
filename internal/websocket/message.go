package websocket

import (
	"encoding/json"

	"notification-service/internal/course"
)

// EventType identifies a socket event using a custom enum type for better
// type safety.
type EventType string

const (
	// Client → server
	EventJoinCourses EventType = "join-courses"
	EventJoinCourse  EventType = "join-course"
	EventLeaveCourse EventType = "leave-course"

	// Server → client
	EventCoursesJoined    EventType = "courses-joined"
	EventEnrollmentError  EventType = "enrollment-error"
	EventCourseJoined     EventType = "course-joined"
	EventCourseJoinFailed EventType = "course-join-failed"
	EventCourseLeft       EventType = "course-left"
	EventNewAssignment    EventType = "new-assignment"

	// Protocol-level failures (malformed payloads)
	EventError EventType = "error"
)

func (et EventType) String() string {
	return string(et)
}

// Envelope is the wire format for inbound socket events. Data stays raw until
// the event type is known.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Message is the wire format for outbound socket events.
type Message struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// Inbound payloads

type JoinCoursesRequest struct {
	UserID    string      `json:"userId"`
	CourseIDs []course.ID `json:"courseIds"`
}

type JoinCourseRequest struct {
	UserID   string    `json:"userId"`
	CourseID course.ID `json:"courseId"`
}

// Outbound payloads

type CoursesJoinedData struct {
	EnrolledCourses []course.ID `json:"enrolledCourses"`
	RejectedCourses []course.ID `json:"rejectedCourses"`
}

type EnrollmentErrorData struct {
	Message        string      `json:"message"`
	InvalidCourses []course.ID `json:"invalidCourses"`
}

type CourseJoinedData struct {
	CourseID course.ID `json:"courseId"`
	Success  bool      `json:"success"`
}

type CourseJoinFailedData struct {
	CourseID course.ID `json:"courseId"`
	Message  string    `json:"message"`
}

type CourseLeftData struct {
	CourseID course.ID `json:"courseId"`
}

type AssignmentData struct {
	Type    string         `json:"type"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Message constructors for type safety and consistency

func NewCoursesJoinedMessage(authorized, rejected []course.ID) *Message {
	if authorized == nil {
		authorized = []course.ID{}
	}
	if rejected == nil {
		rejected = []course.ID{}
	}
	return &Message{
		Type: EventCoursesJoined,
		Data: CoursesJoinedData{EnrolledCourses: authorized, RejectedCourses: rejected},
	}
}

func NewEnrollmentErrorMessage(rejected []course.ID) *Message {
	return &Message{
		Type: EventEnrollmentError,
		Data: EnrollmentErrorData{
			Message:        "You are not enrolled in some of the requested courses",
			InvalidCourses: rejected,
		},
	}
}

func NewCourseJoinedMessage(courseID course.ID) *Message {
	return &Message{
		Type: EventCourseJoined,
		Data: CourseJoinedData{CourseID: courseID, Success: true},
	}
}

func NewCourseJoinFailedMessage(courseID course.ID, reason string) *Message {
	return &Message{
		Type: EventCourseJoinFailed,
		Data: CourseJoinFailedData{CourseID: courseID, Message: reason},
	}
}

func NewCourseLeftMessage(courseID course.ID) *Message {
	return &Message{
		Type: EventCourseLeft,
		Data: CourseLeftData{CourseID: courseID},
	}
}

func NewErrorMessage(code, message string) *Message {
	return &Message{
		Type: EventError,
		Data: ErrorData{Code: code, Message: message},
	}
}
