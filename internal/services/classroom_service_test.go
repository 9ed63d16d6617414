// internal/services/classroom_service_test.go
package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludora/ludora-backend/internal/models"
)

var codePattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{8}$`)

func TestCreateClassroom_GeneratesInvitationCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClassroomService(db)
	teacher := createTestUser(t, db, models.UserTypeTeacher)

	classroom, err := svc.CreateClassroom(context.Background(), teacher.ID, &CreateClassroomRequest{
		Name:       "Science 4A",
		GradeLevel: "4",
	})
	require.NoError(t, err)

	assert.True(t, classroom.IsActive)
	assert.Regexp(t, codePattern, classroom.InvitationCode)
}

func TestCreateClassroom_StudentRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClassroomService(db)
	student := createTestUser(t, db, models.UserTypeStudent)

	_, err := svc.CreateClassroom(context.Background(), student.ID, &CreateClassroomRequest{Name: "Nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only teachers")
}

func TestRegenerateInvitationCode_InvalidatesOldCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClassroomService(db)
	consents := NewConsentService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)

	classroom, err := svc.CreateClassroom(context.Background(), teacher.ID, &CreateClassroomRequest{Name: "History"})
	require.NoError(t, err)
	oldCode := classroom.InvitationCode

	updated, err := svc.RegenerateInvitationCode(context.Background(), classroom.ID, teacher.ID)
	require.NoError(t, err)
	assert.NotEqual(t, oldCode, updated.InvitationCode)
	assert.Regexp(t, codePattern, updated.InvitationCode)

	student := createTestUser(t, db, models.UserTypeStudent)
	_, err = consents.LinkTeacher(context.Background(), student.ID, &LinkTeacherRequest{InvitationCode: oldCode})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invitation code not found")
}

func TestJoinAndLeaveClassroom(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClassroomService(db)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	student := createTestUser(t, db, models.UserTypeStudent)

	classroom, err := svc.CreateClassroom(context.Background(), teacher.ID, &CreateClassroomRequest{Name: "Art"})
	require.NoError(t, err)

	membership, err := svc.JoinClassroom(context.Background(), student.ID, classroom.InvitationCode)
	require.NoError(t, err)
	assert.Nil(t, membership.LeftAt)

	// Double join rejected while active.
	_, err = svc.JoinClassroom(context.Background(), student.ID, classroom.InvitationCode)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already a member")

	require.NoError(t, svc.LeaveClassroom(context.Background(), student.ID, classroom.ID))

	memberships, err := svc.ListStudentClassrooms(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Empty(t, memberships)

	// Rejoining reactivates the old membership row.
	rejoined, err := svc.JoinClassroom(context.Background(), student.ID, classroom.InvitationCode)
	require.NoError(t, err)
	assert.Equal(t, membership.ID, rejoined.ID)
	assert.Nil(t, rejoined.LeftAt)
}

func TestUpdateClassroom_OwnershipEnforced(t *testing.T) {
	db := setupTestDB(t)
	svc := NewClassroomService(db)
	owner := createTestUser(t, db, models.UserTypeTeacher)
	other := createTestUser(t, db, models.UserTypeTeacher)

	classroom, err := svc.CreateClassroom(context.Background(), owner.ID, &CreateClassroomRequest{Name: "Music"})
	require.NoError(t, err)

	_, err = svc.UpdateClassroom(context.Background(), classroom.ID, other.ID, &UpdateClassroomRequest{Name: "Hijacked"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
