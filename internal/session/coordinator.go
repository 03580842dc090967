package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classlive/backend/internal/models"
)

// RoomStudents is the transport room every joined student belongs to.
const RoomStudents = "students"

const persistTimeout = 5 * time.Second

// Transport is what the coordinator needs from the realtime layer: per-client
// send, room and global broadcast, and forced disconnect.
type Transport interface {
	SendToClient(clientID, event string, payload interface{})
	BroadcastToRoom(room, event string, payload interface{})
	BroadcastAll(event string, payload interface{})
	JoinRoom(clientID, room string)
	Disconnect(clientID string)
}

// PollStore persists poll state. Writes are issued after the in-memory
// transition commits and are best-effort; the coordinator never rolls back
// in-memory state on a store failure.
type PollStore interface {
	Create(ctx context.Context, p *models.Poll) error
	SaveAnswer(ctx context.Context, pollID uuid.UUID, options []models.PollOption, ans models.PollAnswer) error
	End(ctx context.Context, id uuid.UUID, endedAt time.Time) error
}

// StudentStore persists durable student identities.
type StudentStore interface {
	Upsert(ctx context.Context, name string, joinedAt time.Time) (uuid.UUID, error)
	SetInactive(ctx context.Context, id uuid.UUID) error
}

// Bounds are the server-side limits for create-poll input. Clients enforce
// the same bounds; the coordinator re-validates anyway.
type Bounds struct {
	MinOptions     int
	MaxOptions     int
	MinTimeSeconds int
	MaxTimeSeconds int
	DefaultSeconds int
}

// EndReason identifies what ended a poll.
type EndReason string

const (
	EndReasonTimeout EndReason = "timeout"
	EndReasonManual  EndReason = "manual"
)

// Coordinator holds the authoritative in-memory session state: who is
// connected, who the teacher is, and which poll is active. Every operation
// runs under one lock, so state transitions never interleave; persistence is
// deferred to a single worker that applies store writes in event order.
type Coordinator struct {
	transport Transport
	polls     PollStore
	students  StudentStore
	bounds    Bounds
	logger    *zap.Logger

	mu       sync.Mutex
	registry *Registry
	current  *models.Poll
	timer    *time.Timer

	persistCh chan persistJob
	done      chan struct{}
	closeOnce sync.Once

	// one tick of maxTime; tests shrink it to run sub-second polls
	timeUnit time.Duration
}

type persistJob struct {
	op string
	fn func(ctx context.Context) error
}

// NewCoordinator creates a session coordinator with empty state and starts
// its persistence worker.
func NewCoordinator(transport Transport, polls PollStore, students StudentStore, bounds Bounds, logger *zap.Logger) *Coordinator {
	c := &Coordinator{
		transport: transport,
		polls:     polls,
		students:  students,
		bounds:    bounds,
		logger:    logger,
		registry:  NewRegistry(),
		persistCh: make(chan persistJob, 256),
		done:      make(chan struct{}),
		timeUnit:  time.Second,
	}
	go c.persistLoop()
	return c
}

// Close stops the persistence worker after flushing queued writes.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// HandleTeacherJoin registers the connection as the teacher, silently
// replacing any prior one, and sends it the current student count.
func (c *Coordinator) HandleTeacherJoin(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.RegisterTeacher(clientID)
	c.transport.SendToClient(clientID, "students-count", c.registry.Count())
	c.logger.Info("teacher connected", zap.String("client_id", clientID))
}

// HandleStudentJoin upserts the durable student record, registers the
// connection, notifies the teacher, and delivers the active poll if one is
// running so a late joiner can still answer.
func (c *Coordinator) HandleStudentJoin(ctx context.Context, clientID, name string) {
	joinedAt := time.Now()
	studentID, err := c.students.Upsert(ctx, name, joinedAt)
	if err != nil {
		c.logger.Error("student join upsert", zap.String("name", name), zap.Error(err))
		c.transport.SendToClient(clientID, "error", "Failed to join")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.registry.RegisterStudent(clientID, studentID, name)
	c.transport.JoinRoom(clientID, RoomStudents)

	if teacher := c.registry.TeacherID(); teacher != "" {
		c.transport.SendToClient(teacher, "student-joined", map[string]interface{}{
			"name": name,
			"id":   studentID,
		})
		c.transport.SendToClient(teacher, "students-count", c.registry.Count())
	}
	if c.current != nil {
		c.transport.SendToClient(clientID, "poll-started", c.current)
	}
	c.logger.Info("student joined", zap.String("name", name))
}

// HandleCreatePoll validates and creates a poll, reporting failures to the
// initiating connection only.
func (c *Coordinator) HandleCreatePoll(ctx context.Context, clientID, question string, options []string, maxTime int) {
	if _, err := c.CreatePoll(ctx, question, options, maxTime); err != nil {
		c.transport.SendToClient(clientID, "error", err.Error())
	}
}

// CreatePoll force-ends any active poll, then creates, persists, broadcasts,
// and arms the expiry timer for a new one. Returns a ValidationError for
// malformed input, leaving poll state untouched.
func (c *Coordinator) CreatePoll(ctx context.Context, question string, options []string, maxTime int) (*models.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &ValidationError{Reason: "Question must not be empty"}
	}
	opts := make([]models.PollOption, 0, len(options))
	for _, o := range options {
		if o = strings.TrimSpace(o); o != "" {
			opts = append(opts, models.PollOption{Text: o})
		}
	}
	if len(opts) < c.bounds.MinOptions || len(opts) > c.bounds.MaxOptions {
		return nil, &ValidationError{Reason: fmt.Sprintf("Polls need %d to %d options", c.bounds.MinOptions, c.bounds.MaxOptions)}
	}
	if maxTime == 0 {
		maxTime = c.bounds.DefaultSeconds
	}
	if maxTime < c.bounds.MinTimeSeconds || maxTime > c.bounds.MaxTimeSeconds {
		return nil, &ValidationError{Reason: fmt.Sprintf("Time limit must be %d to %d seconds", c.bounds.MinTimeSeconds, c.bounds.MaxTimeSeconds)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// end-previous-then-create, never rejection
	if c.current != nil {
		c.endLocked(EndReasonManual)
	}

	poll := &models.Poll{
		ID:        uuid.New(),
		Question:  question,
		Options:   opts,
		MaxTime:   maxTime,
		Status:    models.PollStatusActive,
		CreatedAt: time.Now(),
		Answers:   []models.PollAnswer{},
	}
	c.current = poll

	snapshot := poll.Clone()
	c.persist("create poll", func(ctx context.Context) error {
		return c.polls.Create(ctx, snapshot)
	})

	pollID := poll.ID
	c.timer = time.AfterFunc(time.Duration(maxTime)*c.timeUnit, func() {
		c.expire(pollID)
	})

	c.transport.BroadcastToRoom(RoomStudents, "poll-started", poll)
	c.logger.Info("poll created", zap.String("poll_id", poll.ID.String()), zap.String("question", question))
	return poll, nil
}

// HandleSubmitAnswer records an answer, reporting failures to the submitting
// connection only. Answers from connections that never joined as a student
// are dropped without a reply; there is no session to report into.
func (c *Coordinator) HandleSubmitAnswer(ctx context.Context, clientID string, optionIndex int) {
	if err := c.SubmitAnswer(ctx, clientID, optionIndex); err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return
		}
		c.transport.SendToClient(clientID, "error", err.Error())
	}
}

// SubmitAnswer applies one student's answer to the active poll: the in-memory
// tally and answer list mutate first, atomically under the coordinator lock,
// then the snapshot is persisted and the updated tally sent to the teacher.
// Returns a StateConflictError when there is no active poll, the student
// already answered, or the option index is out of range, and a NotFoundError
// when the connection is not a joined student.
func (c *Coordinator) SubmitAnswer(ctx context.Context, clientID string, optionIndex int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	student, ok := c.registry.Student(clientID)
	if !ok {
		return &NotFoundError{Reason: "Connection has not joined as a student"}
	}
	if c.current == nil {
		return &StateConflictError{Reason: "No active poll"}
	}
	if c.current.HasAnswerFrom(student.StudentID) {
		return &StateConflictError{Reason: "You have already answered this poll"}
	}
	if optionIndex < 0 || optionIndex >= len(c.current.Options) {
		return &StateConflictError{Reason: "Invalid option"}
	}

	answer := models.PollAnswer{
		StudentID:   student.StudentID,
		StudentName: student.Name,
		OptionIndex: optionIndex,
		AnsweredAt:  time.Now(),
	}
	c.current.Options[optionIndex].Votes++
	c.current.Answers = append(c.current.Answers, answer)

	snapshot := c.current.Clone()
	c.persist("save answer", func(ctx context.Context) error {
		return c.polls.SaveAnswer(ctx, snapshot.ID, snapshot.Options, answer)
	})

	if teacher := c.registry.TeacherID(); teacher != "" {
		c.transport.SendToClient(teacher, "poll-results-updated", snapshot)
	}
	c.transport.SendToClient(clientID, "answer-submitted", map[string]bool{"success": true})
	c.logger.Info("answer recorded", zap.String("student", student.Name), zap.Int("option", optionIndex))
	return nil
}

// HandleEndPoll ends the active poll on teacher request; no-op when idle.
func (c *Coordinator) HandleEndPoll(ctx context.Context, clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return
	}
	c.endLocked(EndReasonManual)
}

// expire is the timer callback. The poll id it was armed for is compared to
// the live pointer so a stale timer from a since-replaced poll never ends a
// newer one.
func (c *Coordinator) expire(pollID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.ID != pollID {
		return
	}
	c.endLocked(EndReasonTimeout)
}

// endLocked closes the active poll: stamps it ended, cancels the timer,
// clears the current pointer, persists, and broadcasts full results to
// everyone. Callers hold c.mu and have checked c.current != nil.
func (c *Coordinator) endLocked(reason EndReason) {
	poll := c.current
	c.current = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}

	endedAt := time.Now()
	poll.Status = models.PollStatusEnded
	poll.EndedAt = &endedAt

	c.persist("end poll", func(ctx context.Context) error {
		return c.polls.End(ctx, poll.ID, endedAt)
	})

	c.transport.BroadcastAll("poll-ended", poll)
	c.logger.Info("poll ended",
		zap.String("poll_id", poll.ID.String()),
		zap.String("reason", string(reason)),
	)
}

// HandleKickStudent removes a student on teacher request.
func (c *Coordinator) HandleKickStudent(ctx context.Context, clientID, studentID string) {
	id, err := uuid.Parse(studentID)
	if err != nil {
		c.transport.SendToClient(clientID, "error", "Invalid student id")
		return
	}
	_ = c.KickStudent(ctx, id)
}

// KickStudent notifies and force-disconnects the connection mapped to the
// durable id, and marks the record inactive either way. A missing live
// connection is reported as NotFoundError but the inactive mark still
// happens: the goal state is already achieved.
func (c *Coordinator) KickStudent(ctx context.Context, studentID uuid.UUID) error {
	c.mu.Lock()
	connID, ok := c.registry.FindConnection(studentID)
	if ok {
		c.transport.SendToClient(connID, "kicked", nil)
		c.transport.Disconnect(connID)
	}
	c.persist("mark student inactive", func(ctx context.Context) error {
		return c.students.SetInactive(ctx, studentID)
	})
	c.mu.Unlock()
	c.logger.Info("student kicked", zap.String("student_id", studentID.String()), zap.Bool("was_connected", ok))
	if !ok {
		return &NotFoundError{Reason: "No live connection for student"}
	}
	return nil
}

// HandleDisconnect cleans up after a dropped connection: frees the teacher
// slot or removes the student, marks the durable record inactive, and tells
// the teacher about the departure.
func (c *Coordinator) HandleDisconnect(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed, wasTeacher := c.registry.Unregister(clientID)
	if wasTeacher {
		c.logger.Info("teacher disconnected", zap.String("client_id", clientID))
		return
	}
	if removed == nil {
		return
	}

	studentID := removed.StudentID
	c.persist("mark student inactive", func(ctx context.Context) error {
		return c.students.SetInactive(ctx, studentID)
	})

	if teacher := c.registry.TeacherID(); teacher != "" {
		c.transport.SendToClient(teacher, "student-left", map[string]string{"name": removed.Name})
		c.transport.SendToClient(teacher, "students-count", c.registry.Count())
	}
	c.logger.Info("student left", zap.String("name", removed.Name))
}

// SenderInfo resolves a connection to a chat display name and role. Used by
// the chat relay.
func (c *Coordinator) SenderInfo(clientID string) (name, role string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if clientID != "" && clientID == c.registry.TeacherID() {
		return "Teacher", models.RoleTeacher
	}
	if p, ok := c.registry.Student(clientID); ok {
		return p.Name, models.RoleStudent
	}
	return "Unknown", models.RoleStudent
}

// CurrentPoll returns a copy of the active poll, or nil when idle.
func (c *Coordinator) CurrentPoll() *models.Poll {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current.Clone()
}

// StudentCount returns the number of currently connected students.
func (c *Coordinator) StudentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.registry.Count()
}

// persist queues a store write behind the event path. Callers enqueue while
// holding the session lock, so the worker sees writes in the same order the
// in-memory transitions committed: a poll row always lands before its answer
// rows, and an answer snapshot never overwrites a later one. Failures are
// logged and dropped; a full queue drops the write rather than stalling the
// session.
func (c *Coordinator) persist(op string, fn func(ctx context.Context) error) {
	select {
	case <-c.done:
	case c.persistCh <- persistJob{op: op, fn: fn}:
	default:
		c.logger.Warn("persist queue full, dropping write", zap.String("op", op))
	}
}

func (c *Coordinator) persistLoop() {
	for {
		select {
		case job := <-c.persistCh:
			c.runPersist(job)
		case <-c.done:
			for {
				select {
				case job := <-c.persistCh:
					c.runPersist(job)
				default:
					return
				}
			}
		}
	}
}

func (c *Coordinator) runPersist(job persistJob) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := job.fn(ctx); err != nil {
		c.logger.Warn("persist "+job.op, zap.Error(err))
	}
}
