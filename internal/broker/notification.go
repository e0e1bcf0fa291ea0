// Package broker consumes assignment notifications from the message queue
// and hands them to the broadcast relay, reconnecting indefinitely when the
// broker goes away.
package broker

import (
	"encoding/json"
	"errors"
	"fmt"

	"notification-service/internal/course"
)

// Notification is one queued assignment event. Only courseId is required;
// extra fields ride along verbatim in Payload.
type Notification struct {
	CourseID        course.ID
	CourseName      string
	AssignmentTitle string
	TeacherName     string

	// Payload is the full decoded message body, passed through to clients
	// unchanged.
	Payload map[string]any
}

// ParseNotification decodes a queue message body. A body that is not a JSON
// object or lacks a normalizable courseId is a permanent failure: the caller
// rejects it without requeueing.
func ParseNotification(body []byte) (*Notification, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid notification body: %w", err)
	}

	raw, ok := payload["courseId"]
	if !ok {
		return nil, errors.New("notification missing courseId")
	}
	courseID, err := course.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid notification courseId: %w", err)
	}

	n := &Notification{
		CourseID: courseID,
		Payload:  payload,
	}
	n.CourseName, _ = payload["courseName"].(string)
	n.AssignmentTitle, _ = payload["assignmentTitle"].(string)
	n.TeacherName, _ = payload["teacherName"].(string)

	return n, nil
}

// Relay fans a notification out to the live subscribers of its course room
// and reports how many connections it reached.
type Relay interface {
	Relay(n *Notification) int
}
