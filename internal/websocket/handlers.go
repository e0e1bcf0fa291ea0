package websocket

import (
	"encoding/json"

	"log/slog"

	"github.com/samber/lo"

	"notification-service/internal/course"
)

// dispatch routes an inbound event to its handler. Called from the client's
// read pump, so events from one connection are handled strictly in arrival
// order.
func (h *Hub) dispatch(c *Client, env *Envelope) {
	switch env.Type {
	case EventJoinCourses:
		h.handleJoinCourses(c, env.Data)
	case EventJoinCourse:
		h.handleJoinCourse(c, env.Data)
	case EventLeaveCourse:
		h.handleLeaveCourse(c, env.Data)
	default:
		slog.Debug("Unknown event type", "clientID", c.id, "type", env.Type)
		c.sendError("UNKNOWN_EVENT", "Unknown event type: "+env.Type.String())
	}
}

// handleJoinCourses validates the requested subscriptions against the
// enrollment oracle and joins the authorized subset. The oracle answer is
// awaited before any membership mutation.
func (h *Hub) handleJoinCourses(c *Client, data json.RawMessage) {
	var req JoinCoursesRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Debug("Malformed join-courses payload", "clientID", c.id, "error", err)
		c.sendError("INVALID_MESSAGE", "Invalid join-courses payload")
		return
	}

	requested := lo.Uniq(req.CourseIDs)
	enrolled := h.enrollment.EnrolledCourses(c.ctx, req.UserID)

	authorized, rejected := lo.FilterReject(requested, func(id course.ID, _ int) bool {
		return enrolled.Contains(id)
	})

	if len(rejected) > 0 {
		// Security-relevant: an attempted subscription to courses the user
		// is not enrolled in.
		slog.Warn("Unauthorized course subscription attempt",
			"clientID", c.id, "userID", req.UserID, "courses", rejected)
		c.SendMessage(NewEnrollmentErrorMessage(rejected))
	}

	// The connection may have dropped while the oracle call was pending; in
	// that case the registry record is gone and nothing may be mutated, the
	// presence store included.
	if !h.registry.BindUser(c.id, req.UserID) {
		return
	}
	h.markOnline(req.UserID)

	for _, courseID := range authorized {
		if !h.registry.Join(c.id, courseID) {
			return
		}
		slog.Info("Client joined course room", "clientID", c.id, "userID", req.UserID, "courseId", courseID)
	}

	c.SendMessage(NewCoursesJoinedMessage(authorized, rejected))
}

// handleJoinCourse is the single-course variant. Failure leaves no partial
// state behind.
func (h *Hub) handleJoinCourse(c *Client, data json.RawMessage) {
	var req JoinCourseRequest
	if err := json.Unmarshal(data, &req); err != nil {
		slog.Debug("Malformed join-course payload", "clientID", c.id, "error", err)
		c.sendError("INVALID_MESSAGE", "Invalid join-course payload")
		return
	}

	enrolled := h.enrollment.EnrolledCourses(c.ctx, req.UserID)
	if !enrolled.Contains(req.CourseID) {
		slog.Warn("Unauthorized course subscription attempt",
			"clientID", c.id, "userID", req.UserID, "courseId", req.CourseID)
		c.SendMessage(NewCourseJoinFailedMessage(req.CourseID, "Not enrolled in this course"))
		return
	}

	// As with join-courses: a connection that dropped during the oracle call
	// must not leave an online mark behind.
	if !h.registry.BindUser(c.id, req.UserID) {
		return
	}
	h.markOnline(req.UserID)

	if !h.registry.Join(c.id, req.CourseID) {
		return
	}
	slog.Info("Client joined course room", "clientID", c.id, "userID", req.UserID, "courseId", req.CourseID)

	c.SendMessage(NewCourseJoinedMessage(req.CourseID))
}

// handleLeaveCourse removes the membership edge unconditionally. The payload
// is the bare course id, as the original clients send it.
func (h *Hub) handleLeaveCourse(c *Client, data json.RawMessage) {
	var courseID course.ID
	if err := json.Unmarshal(data, &courseID); err != nil {
		slog.Debug("Malformed leave-course payload", "clientID", c.id, "error", err)
		c.sendError("INVALID_MESSAGE", "Invalid leave-course payload")
		return
	}

	h.registry.Leave(c.id, courseID)
	slog.Info("Client left course room", "clientID", c.id, "courseId", courseID)

	c.SendMessage(NewCourseLeftMessage(courseID))
}
