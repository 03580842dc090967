package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistryTeacherSlot(t *testing.T) {
	r := NewRegistry()
	require.Empty(t, r.TeacherID())

	r.RegisterTeacher("conn-1")
	require.Equal(t, "conn-1", r.TeacherID())

	// a later teacher-join replaces the slot silently
	r.RegisterTeacher("conn-2")
	require.Equal(t, "conn-2", r.TeacherID())

	removed, wasTeacher := r.Unregister("conn-2")
	require.Nil(t, removed)
	require.True(t, wasTeacher)
	require.Empty(t, r.TeacherID())
}

func TestRegistryStudents(t *testing.T) {
	r := NewRegistry()
	annID, benID := uuid.New(), uuid.New()

	r.RegisterStudent("conn-1", annID, "Ann")
	r.RegisterStudent("conn-2", benID, "Ben")
	require.Equal(t, 2, r.Count())

	p, ok := r.Student("conn-1")
	require.True(t, ok)
	require.Equal(t, "Ann", p.Name)
	require.Equal(t, annID, p.StudentID)

	connID, ok := r.FindConnection(benID)
	require.True(t, ok)
	require.Equal(t, "conn-2", connID)

	removed, wasTeacher := r.Unregister("conn-1")
	require.False(t, wasTeacher)
	require.NotNil(t, removed)
	require.Equal(t, "Ann", removed.Name)
	require.Equal(t, 1, r.Count())

	_, ok = r.FindConnection(annID)
	require.False(t, ok)
}

func TestRegistryUnregisterUnknown(t *testing.T) {
	r := NewRegistry()
	removed, wasTeacher := r.Unregister("no-such-conn")
	require.Nil(t, removed)
	require.False(t, wasTeacher)
}

func TestRegistryCountIgnoresTeacher(t *testing.T) {
	r := NewRegistry()
	r.RegisterTeacher("teacher-conn")
	r.RegisterStudent("conn-1", uuid.New(), "Ann")
	require.Equal(t, 1, r.Count())
}
