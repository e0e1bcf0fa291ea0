package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-service/internal/course"
	"notification-service/internal/registry"
)

// fakeOracle is an in-memory enrollment service.
type fakeOracle struct {
	enrolled map[string]course.Set
}

func (f *fakeOracle) EnrolledCourses(_ context.Context, userID string) course.Set {
	if s, ok := f.enrolled[userID]; ok {
		return s
	}
	return course.Set{}
}

func newTestHub(enrolled map[string]course.Set) *Hub {
	return NewHub(registry.New(), &fakeOracle{enrolled: enrolled}, nil)
}

// fakePresence records every online/offline mark.
type fakePresence struct {
	mu      sync.Mutex
	online  []string
	offline []string
}

func (p *fakePresence) SetUserOnline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online = append(p.online, userID)
	return nil
}

func (p *fakePresence) SetUserOffline(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offline = append(p.offline, userID)
	return nil
}

// newTestClient creates a registered client without a real socket; outbound
// messages accumulate in its send buffer.
func newTestClient(h *Hub) *Client {
	c := NewClient(h, nil)
	h.registerClient(c)
	return c
}

// receivedMessage is the decoded shape of one outbound envelope.
type receivedMessage struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

func recvMessage(t *testing.T, c *Client) receivedMessage {
	t.Helper()

	select {
	case data := <-c.send:
		var msg receivedMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return receivedMessage{}
	}
}

func requireNoMessage(t *testing.T, c *Client) {
	t.Helper()

	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	default:
	}
}

func TestJoinCoursesPartitionsAuthorizedAndRejected(t *testing.T) {
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(1, 3)})
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[1,2,3]}`))

	// The unauthorized attempt is surfaced first as a distinct signal.
	errMsg := recvMessage(t, c)
	require.Equal(t, EventEnrollmentError, errMsg.Type)
	var errData EnrollmentErrorData
	require.NoError(t, json.Unmarshal(errMsg.Data, &errData))
	assert.Equal(t, []course.ID{2}, errData.InvalidCourses)
	assert.NotEmpty(t, errData.Message)

	joined := recvMessage(t, c)
	require.Equal(t, EventCoursesJoined, joined.Type)
	var joinedData CoursesJoinedData
	require.NoError(t, json.Unmarshal(joined.Data, &joinedData))
	assert.ElementsMatch(t, []course.ID{1, 3}, joinedData.EnrolledCourses)
	assert.Equal(t, []course.ID{2}, joinedData.RejectedCourses)

	// Only authorized edges exist.
	assert.Contains(t, h.registry.Members(1), c.id)
	assert.Empty(t, h.registry.Members(2))
	assert.Contains(t, h.registry.Members(3), c.id)

	userID, ok := h.registry.UserOf(c.id)
	require.True(t, ok)
	assert.Equal(t, "alice", userID)
}

func TestJoinCoursesAllAuthorizedEmitsNoViolation(t *testing.T) {
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(1, 2)})
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[1,2]}`))

	joined := recvMessage(t, c)
	assert.Equal(t, EventCoursesJoined, joined.Type)
	requireNoMessage(t, c)
}

func TestJoinCoursesEmptyRequestIsValid(t *testing.T) {
	h := newTestHub(nil)
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[]}`))

	joined := recvMessage(t, c)
	require.Equal(t, EventCoursesJoined, joined.Type)
	assert.JSONEq(t, `{"enrolledCourses":[],"rejectedCourses":[]}`, string(joined.Data))
	requireNoMessage(t, c)
}

func TestJoinCoursesNormalizesHeterogeneousIDs(t *testing.T) {
	// "1" (string) and 1 (number) denote the same course everywhere.
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(1, 2)})
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":["1",2.0]}`))

	joined := recvMessage(t, c)
	require.Equal(t, EventCoursesJoined, joined.Type)
	var joinedData CoursesJoinedData
	require.NoError(t, json.Unmarshal(joined.Data, &joinedData))
	assert.ElementsMatch(t, []course.ID{1, 2}, joinedData.EnrolledCourses)
	assert.Empty(t, joinedData.RejectedCourses)
}

func TestJoinCoursesDuplicateIDsCollapse(t *testing.T) {
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(1)})
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[1,"1",1]}`))

	joined := recvMessage(t, c)
	var joinedData CoursesJoinedData
	require.NoError(t, json.Unmarshal(joined.Data, &joinedData))
	assert.Equal(t, []course.ID{1}, joinedData.EnrolledCourses)
	assert.Len(t, h.registry.Members(1), 1)
}

func TestJoinCoursesRejoinIsIdempotent(t *testing.T) {
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(1)})
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[1]}`))
	recvMessage(t, c)
	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[1]}`))
	joined := recvMessage(t, c)

	assert.Equal(t, EventCoursesJoined, joined.Type)
	assert.Len(t, h.registry.Members(1), 1)
	assert.Len(t, h.registry.Rooms(c.id), 1)
}

func TestJoinCoursesOracleFailureRejectsEverything(t *testing.T) {
	// Unknown user: the oracle reports no enrollment at all.
	h := newTestHub(nil)
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"mallory","courseIds":[1,2]}`))

	errMsg := recvMessage(t, c)
	assert.Equal(t, EventEnrollmentError, errMsg.Type)

	joined := recvMessage(t, c)
	var joinedData CoursesJoinedData
	require.NoError(t, json.Unmarshal(joined.Data, &joinedData))
	assert.Empty(t, joinedData.EnrolledCourses)
	assert.ElementsMatch(t, []course.ID{1, 2}, joinedData.RejectedCourses)
	assert.Empty(t, h.registry.Rooms(c.id))
}

func TestJoinCoursesMalformedPayload(t *testing.T) {
	h := newTestHub(nil)
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":["abc"]}`))

	msg := recvMessage(t, c)
	assert.Equal(t, EventError, msg.Type)
	assert.Empty(t, h.registry.Rooms(c.id))
}

func TestJoinCourseSuccess(t *testing.T) {
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(5)})
	c := newTestClient(h)

	h.handleJoinCourse(c, json.RawMessage(`{"userId":"alice","courseId":"5"}`))

	msg := recvMessage(t, c)
	require.Equal(t, EventCourseJoined, msg.Type)
	assert.JSONEq(t, `{"courseId":5,"success":true}`, string(msg.Data))
	assert.Contains(t, h.registry.Members(5), c.id)
}

func TestJoinCourseNotEnrolled(t *testing.T) {
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(5)})
	c := newTestClient(h)

	h.handleJoinCourse(c, json.RawMessage(`{"userId":"alice","courseId":6}`))

	msg := recvMessage(t, c)
	require.Equal(t, EventCourseJoinFailed, msg.Type)
	var failed CourseJoinFailedData
	require.NoError(t, json.Unmarshal(msg.Data, &failed))
	assert.Equal(t, course.ID(6), failed.CourseID)
	assert.NotEmpty(t, failed.Message)

	// No partial state change on failure.
	assert.Empty(t, h.registry.Members(6))
	assert.Empty(t, h.registry.Rooms(c.id))
}

func TestLeaveCourse(t *testing.T) {
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(1)})
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[1]}`))
	recvMessage(t, c)

	h.handleLeaveCourse(c, json.RawMessage(`1`))

	msg := recvMessage(t, c)
	require.Equal(t, EventCourseLeft, msg.Type)
	assert.JSONEq(t, `{"courseId":1}`, string(msg.Data))
	assert.Empty(t, h.registry.Members(1))
	assert.Empty(t, h.registry.Rooms(c.id))
}

func TestLeaveCourseNeverJoinedIsNoOp(t *testing.T) {
	h := newTestHub(nil)
	c := newTestClient(h)

	// The original clients send the bare course id, sometimes as a string.
	h.handleLeaveCourse(c, json.RawMessage(`"7"`))

	msg := recvMessage(t, c)
	assert.Equal(t, EventCourseLeft, msg.Type)
}

func TestDisconnectCleansUpEverything(t *testing.T) {
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(1, 2)})
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[1,2]}`))
	recvMessage(t, c)

	h.unregisterClient(c)

	assert.Empty(t, h.registry.Members(1))
	assert.Empty(t, h.registry.Members(2))
	assert.Equal(t, 0, h.registry.ConnectionCount())

	// A second unregister for the same connection must be a no-op.
	h.unregisterClient(c)
	assert.Equal(t, 0, h.registry.ConnectionCount())
}

func TestJoinAfterDisconnectIsNoOp(t *testing.T) {
	// Models an oracle response landing after the connection dropped: the
	// resulting mutation must not resurrect registry state.
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(1)})
	c := newTestClient(h)

	h.unregisterClient(c)
	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[1]}`))

	assert.Empty(t, h.registry.Members(1))
	assert.Equal(t, 0, h.registry.ConnectionCount())
}

func TestPresenceFollowsJoinAndDisconnect(t *testing.T) {
	presence := &fakePresence{}
	h := NewHub(registry.New(), &fakeOracle{enrolled: map[string]course.Set{"alice": course.NewSet(1)}}, presence)
	c := newTestClient(h)

	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[1]}`))
	recvMessage(t, c)
	h.unregisterClient(c)

	assert.Equal(t, []string{"alice"}, presence.online)
	assert.Equal(t, []string{"alice"}, presence.offline)
}

func TestJoinAfterDisconnectLeavesNoPresenceMark(t *testing.T) {
	// A join whose oracle call outlives the connection must not mark the
	// user online: the offline mark already happened (or never will, since
	// no user was bound), so a late online mark would be permanent.
	presence := &fakePresence{}
	h := NewHub(registry.New(), &fakeOracle{enrolled: map[string]course.Set{"alice": course.NewSet(1)}}, presence)
	c := newTestClient(h)

	h.unregisterClient(c)
	h.handleJoinCourses(c, json.RawMessage(`{"userId":"alice","courseIds":[1]}`))
	h.handleJoinCourse(c, json.RawMessage(`{"userId":"alice","courseId":1}`))

	assert.Empty(t, presence.online)
	assert.Empty(t, presence.offline)
	assert.Empty(t, h.registry.Members(1))
}

func TestSendAfterUnregisterFailsCleanly(t *testing.T) {
	h := newTestHub(nil)
	c := newTestClient(h)

	h.unregisterClient(c)

	err := c.sendRaw([]byte(`{}`))
	assert.ErrorIs(t, err, ErrClientDisconnected)
}

func TestDispatchUnknownEventType(t *testing.T) {
	h := newTestHub(nil)
	c := newTestClient(h)

	h.dispatch(c, &Envelope{Type: "subscribe-everything"})

	msg := recvMessage(t, c)
	assert.Equal(t, EventError, msg.Type)
}

func TestStats(t *testing.T) {
	h := newTestHub(map[string]course.Set{"alice": course.NewSet(1)})
	c1 := newTestClient(h)
	c2 := newTestClient(h)

	h.handleJoinCourses(c1, json.RawMessage(`{"userId":"alice","courseIds":[1]}`))
	recvMessage(t, c1)

	stats := h.Stats()
	assert.Equal(t, 2, stats.ConnectedClients)
	assert.Equal(t, map[course.ID]int{1: 1}, stats.RoomCounts)
	_ = c2
}
