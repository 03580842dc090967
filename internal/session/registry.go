package session

import "github.com/google/uuid"

// Participant is a connected student's identity as tracked by the registry.
// The durable id is name-keyed, so it survives reconnects with the same name.
type Participant struct {
	StudentID uuid.UUID
	Name      string
}

// Registry tracks which live connections are students and which one is the
// teacher. It is not safe for concurrent use; the coordinator's lock guards
// every access.
type Registry struct {
	teacherID string
	students  map[string]Participant // clientID -> identity
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{students: make(map[string]Participant)}
}

// RegisterTeacher records clientID as the teacher. A later call silently
// replaces the prior teacher; the old connection is not notified or closed.
func (r *Registry) RegisterTeacher(clientID string) {
	r.teacherID = clientID
}

// TeacherID returns the current teacher connection id, or "" if none.
func (r *Registry) TeacherID() string {
	return r.teacherID
}

// RegisterStudent associates a connection with a student identity.
func (r *Registry) RegisterStudent(clientID string, studentID uuid.UUID, name string) {
	r.students[clientID] = Participant{StudentID: studentID, Name: name}
}

// Student returns the identity registered for a connection.
func (r *Registry) Student(clientID string) (Participant, bool) {
	p, ok := r.students[clientID]
	return p, ok
}

// Unregister removes a connection. It returns the removed student identity
// (nil for non-students) and whether the connection was the teacher.
func (r *Registry) Unregister(clientID string) (removed *Participant, wasTeacher bool) {
	if clientID == r.teacherID && r.teacherID != "" {
		r.teacherID = ""
		return nil, true
	}
	if p, ok := r.students[clientID]; ok {
		delete(r.students, clientID)
		return &p, false
	}
	return nil, false
}

// Count returns the number of currently connected students.
func (r *Registry) Count() int {
	return len(r.students)
}

// FindConnection returns the connection currently mapped to a durable student
// id. Linear scan; the registry holds one classroom's worth of entries.
func (r *Registry) FindConnection(studentID uuid.UUID) (clientID string, ok bool) {
	for id, p := range r.students {
		if p.StudentID == studentID {
			return id, true
		}
	}
	return "", false
}
