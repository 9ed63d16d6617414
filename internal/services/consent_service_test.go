// internal/services/consent_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ludora/ludora-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named in-memory database keeps the schema visible to every
	// connection in the pool while isolating tests from each other.
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.TeacherLink{},
		&models.ParentConsent{},
		&models.Classroom{},
		&models.ClassroomMembership{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, userType models.UserType) *models.User {
	t.Helper()

	user := &models.User{
		Username: "user_" + uuid.NewString()[:8],
		Email:    uuid.NewString()[:8] + "@test.local",
		UserType: userType,
		Status:   models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("Sup3r$ecret"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestClassroom(t *testing.T, db *gorm.DB, teacherID uuid.UUID, code string) *models.Classroom {
	t.Helper()

	classroom := &models.Classroom{
		TeacherID:      teacherID,
		Name:           "Math 5B",
		InvitationCode: code,
		IsActive:       true,
	}
	require.NoError(t, db.Create(classroom).Error)
	return classroom
}

func TestGetConsentStatus_NonStudentAlwaysComplete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)

	for _, userType := range []models.UserType{models.UserTypeTeacher, models.UserTypeParent, models.UserTypeAdmin} {
		status, err := svc.GetConsentStatus(context.Background(), uuid.New(), userType)
		require.NoError(t, err)
		assert.Equal(t, models.EnforcementComplete, status.Status)
		assert.False(t, status.NeedsTeacher)
		assert.False(t, status.NeedsConsent)
	}
}

func TestGetConsentStatus_UnlinkedStudentNeedsTeacher(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)

	status, err := svc.GetConsentStatus(context.Background(), student.ID, models.UserTypeStudent)
	require.NoError(t, err)

	assert.Equal(t, models.EnforcementNeedTeacher, status.Status)
	assert.True(t, status.NeedsTeacher)
	assert.True(t, status.NeedsConsent)
	assert.Nil(t, status.LinkedTeacherID)
}

func TestGetConsentStatus_TeacherLinkPrecedesConsent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)
	parent := createTestUser(t, db, models.UserTypeParent)

	// A consent row without a teacher link still reads need_teacher.
	require.NoError(t, db.Create(&models.ParentConsent{
		StudentID: student.ID,
		ParentID:  parent.ID,
		GrantedAt: time.Now(),
	}).Error)

	status, err := svc.GetConsentStatus(context.Background(), student.ID, models.UserTypeStudent)
	require.NoError(t, err)
	assert.Equal(t, models.EnforcementNeedTeacher, status.Status)
}

func TestGetConsentStatus_LinkedWithoutConsent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)
	teacher := createTestUser(t, db, models.UserTypeTeacher)

	require.NoError(t, db.Create(&models.TeacherLink{
		StudentID: student.ID,
		TeacherID: teacher.ID,
	}).Error)

	status, err := svc.GetConsentStatus(context.Background(), student.ID, models.UserTypeStudent)
	require.NoError(t, err)

	assert.Equal(t, models.EnforcementNeedConsent, status.Status)
	assert.False(t, status.NeedsTeacher)
	assert.True(t, status.NeedsConsent)
	require.NotNil(t, status.LinkedTeacherID)
	assert.Equal(t, teacher.ID, *status.LinkedTeacherID)
}

func TestGetConsentStatus_LinkedAndConsented(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	parent := createTestUser(t, db, models.UserTypeParent)

	require.NoError(t, db.Create(&models.TeacherLink{StudentID: student.ID, TeacherID: teacher.ID}).Error)
	require.NoError(t, db.Create(&models.ParentConsent{
		StudentID: student.ID,
		ParentID:  parent.ID,
		GrantedAt: time.Now(),
	}).Error)

	status, err := svc.GetConsentStatus(context.Background(), student.ID, models.UserTypeStudent)
	require.NoError(t, err)
	assert.Equal(t, models.EnforcementComplete, status.Status)
	assert.True(t, status.HasParentConsent)
}

func TestGetConsentStatus_RevokedConsentDropsBack(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	parent := createTestUser(t, db, models.UserTypeParent)

	require.NoError(t, db.Create(&models.TeacherLink{StudentID: student.ID, TeacherID: teacher.ID}).Error)

	consent, err := svc.GrantConsent(context.Background(), parent.ID, student.ID)
	require.NoError(t, err)
	require.NotNil(t, consent)

	status, err := svc.GetConsentStatus(context.Background(), student.ID, models.UserTypeStudent)
	require.NoError(t, err)
	require.Equal(t, models.EnforcementComplete, status.Status)

	require.NoError(t, svc.RevokeConsent(context.Background(), parent.ID, student.ID))

	status, err = svc.GetConsentStatus(context.Background(), student.ID, models.UserTypeStudent)
	require.NoError(t, err)
	assert.Equal(t, models.EnforcementNeedConsent, status.Status)
}

func TestLinkTeacher_Success(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	classroom := createTestClassroom(t, db, teacher.ID, "ABCD2345")

	link, err := svc.LinkTeacher(context.Background(), student.ID, &LinkTeacherRequest{InvitationCode: "abcd2345"})
	require.NoError(t, err)

	assert.Equal(t, teacher.ID, link.TeacherID)
	require.NotNil(t, link.ClassroomID)
	assert.Equal(t, classroom.ID, *link.ClassroomID)
	assert.Equal(t, "ABCD2345", link.InvitationCode)

	// Membership is created alongside the link.
	var membership models.ClassroomMembership
	require.NoError(t, db.Where("student_id = ? AND classroom_id = ?", student.ID, classroom.ID).First(&membership).Error)
	assert.Nil(t, membership.LeftAt)

	status, err := svc.GetConsentStatus(context.Background(), student.ID, models.UserTypeStudent)
	require.NoError(t, err)
	assert.Equal(t, models.EnforcementNeedConsent, status.Status)
}

func TestLinkTeacher_AlreadyLinked(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	createTestClassroom(t, db, teacher.ID, "ABCD2345")
	createTestClassroom(t, db, teacher.ID, "WXYZ6789")

	_, err := svc.LinkTeacher(context.Background(), student.ID, &LinkTeacherRequest{InvitationCode: "ABCD2345"})
	require.NoError(t, err)

	_, err = svc.LinkTeacher(context.Background(), student.ID, &LinkTeacherRequest{InvitationCode: "WXYZ6789"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already linked")
}

func TestLinkTeacher_UnknownCode(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)

	_, err := svc.LinkTeacher(context.Background(), student.ID, &LinkTeacherRequest{InvitationCode: "NOPE2345"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invitation code not found")
}

func TestLinkTeacher_InactiveClassroomCodeRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	classroom := createTestClassroom(t, db, teacher.ID, "ABCD2345")
	require.NoError(t, db.Model(classroom).Update("is_active", false).Error)

	_, err := svc.LinkTeacher(context.Background(), student.ID, &LinkTeacherRequest{InvitationCode: "ABCD2345"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invitation code not found")
}

func TestLinkTeacher_NonStudentRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	other := createTestUser(t, db, models.UserTypeTeacher)
	createTestClassroom(t, db, other.ID, "ABCD2345")

	_, err := svc.LinkTeacher(context.Background(), teacher.ID, &LinkTeacherRequest{InvitationCode: "ABCD2345"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only student accounts")
}

func TestGrantConsent_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)
	parent := createTestUser(t, db, models.UserTypeParent)

	first, err := svc.GrantConsent(context.Background(), parent.ID, student.ID)
	require.NoError(t, err)

	second, err := svc.GrantConsent(context.Background(), parent.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.ParentConsent{}).Where("student_id = ?", student.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestGrantConsent_NonParentRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	student := createTestUser(t, db, models.UserTypeStudent)
	teacher := createTestUser(t, db, models.UserTypeTeacher)

	_, err := svc.GrantConsent(context.Background(), teacher.ID, student.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only parent accounts")
}

func TestRevokeConsent_NotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	parent := createTestUser(t, db, models.UserTypeParent)

	err := svc.RevokeConsent(context.Background(), parent.ID, uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGetLinkedStudents(t *testing.T) {
	db := setupTestDB(t)
	svc := NewConsentService(db, nil)
	teacher := createTestUser(t, db, models.UserTypeTeacher)
	createTestClassroom(t, db, teacher.ID, "ABCD2345")

	for i := 0; i < 3; i++ {
		student := createTestUser(t, db, models.UserTypeStudent)
		_, err := svc.LinkTeacher(context.Background(), student.ID, &LinkTeacherRequest{InvitationCode: "ABCD2345"})
		require.NoError(t, err)
	}

	links, err := svc.GetLinkedStudents(context.Background(), teacher.ID)
	require.NoError(t, err)
	assert.Len(t, links, 3)
}
