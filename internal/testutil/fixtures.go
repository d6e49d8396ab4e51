package testutil

import (
	"sync"
	"testing"

	"github.com/Baaaki/chapterhub/internal/models"
	"github.com/Baaaki/chapterhub/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultPassword is the plain-text password of every fixture user.
const DefaultPassword = "Test123456"

// fixtureHash is computed once; argon2 at production cost is slow enough to
// matter when a test creates many users.
var (
	fixtureHashOnce sync.Once
	fixtureHash     string
	fixtureHashErr  error
)

func passwordHash(t *testing.T) string {
	t.Helper()
	fixtureHashOnce.Do(func() {
		fixtureHash, fixtureHashErr = utils.HashPassword(DefaultPassword)
	})
	if fixtureHashErr != nil {
		t.Fatalf("Failed to hash fixture password: %v", fixtureHashErr)
	}
	return fixtureHash
}

// CreateUser inserts a user whose email is derived from username.
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: passwordHash(t),
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create user %s: %v", username, err)
	}
	return user
}

// DefaultTestUser returns a default test user (regular user)
func DefaultTestUser(t *testing.T, db *gorm.DB) *models.User {
	return CreateUser(t, db, "testuser", models.RoleUser)
}

// DefaultAdminUser returns a default admin user
func DefaultAdminUser(t *testing.T, db *gorm.DB) *models.User {
	return CreateUser(t, db, "admin", models.RoleAdmin)
}

func CreateChapter(t *testing.T, db *gorm.DB, name string, createdBy uuid.UUID) *models.Chapter {
	t.Helper()

	chapter := &models.Chapter{Name: name, City: "Istanbul", CreatedBy: createdBy}
	if err := db.Create(chapter).Error; err != nil {
		t.Fatalf("Failed to create chapter %s: %v", name, err)
	}
	return chapter
}

func CreateGroup(t *testing.T, db *gorm.DB, name string, createdBy uuid.UUID) *models.SecretGroup {
	t.Helper()

	group := &models.SecretGroup{Name: name, CreatedBy: createdBy}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("Failed to create group %s: %v", name, err)
	}
	return group
}

func AddChapterMember(t *testing.T, db *gorm.DB, chapterID, userID uuid.UUID) {
	t.Helper()

	member := &models.ChapterMember{RoomID: chapterID, UserID: userID, Role: models.MemberRoleMember}
	if err := db.Omit("Chapter", "User").Create(member).Error; err != nil {
		t.Fatalf("Failed to add chapter member: %v", err)
	}
}

func AddGroupMember(t *testing.T, db *gorm.DB, groupID, userID uuid.UUID) {
	t.Helper()

	member := &models.GroupMember{RoomID: groupID, UserID: userID, Role: models.MemberRoleMember}
	if err := db.Omit("Group", "User").Create(member).Error; err != nil {
		t.Fatalf("Failed to add group member: %v", err)
	}
}
