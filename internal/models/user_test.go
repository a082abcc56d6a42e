package models_test

import (
	"reflect"
	"testing"

	"skillswap/backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

// TestBeforeCreate_GeneratesUUID verifies that every entity hook fills an empty ID.
func TestBeforeCreate_GeneratesUUID(t *testing.T) {
	user := &models.User{Email: "a@example.com", Skills: pq.StringArray{"go"}}
	req := &models.ServiceRequest{Title: "Logo design"}
	ch := &models.ChatChannel{ServiceRequestID: "r1"}
	ex := &models.SkillExchange{OfferedSkill: "go"}

	assert.NoError(t, user.BeforeCreate(nil))
	assert.NoError(t, req.BeforeCreate(nil))
	assert.NoError(t, ch.BeforeCreate(nil))
	assert.NoError(t, ex.BeforeCreate(nil))

	for _, id := range []string{user.ID, req.ID, ch.ID, ex.ID} {
		parsed, err := uuid.Parse(id)
		assert.NoError(t, err, "ID must be a valid UUID string")
		assert.NotEqual(t, uuid.Nil, parsed)
	}
}

// TestBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID}

	err := user.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, user.ID)
}

// TestBeforeCreate_MultipleUsers verifies unique UUIDs are generated for multiple users.
func TestBeforeCreate_MultipleUsers(t *testing.T) {
	users := []*models.User{{Email: "1"}, {Email: "2"}, {Email: "3"}}
	generatedIDs := make(map[string]bool)

	for _, user := range users {
		assert.NoError(t, user.BeforeCreate(nil))
		assert.NotContains(t, generatedIDs, user.ID, "Each user should have a unique ID")
		generatedIDs[user.ID] = true
	}

	assert.Equal(t, len(users), len(generatedIDs))
}

// TestStructTags guards the tags the schema and the API rely on.
func TestStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})

	email, found := userType.FieldByName("Email")
	assert.True(t, found)
	assert.Contains(t, email.Tag.Get("gorm"), "uniqueIndex", "Email should have unique index")

	hash, found := userType.FieldByName("PasswordHash")
	assert.True(t, found)
	assert.Equal(t, "-", hash.Tag.Get("json"), "password hash must never be serialized")

	skills, found := reflect.TypeOf(models.ServiceRequest{}).FieldByName("Skills")
	assert.True(t, found)
	assert.Contains(t, skills.Tag.Get("gorm"), "type:text[]", "Skills should use PostgreSQL array type")

	reqID, found := reflect.TypeOf(models.ChatChannel{}).FieldByName("ServiceRequestID")
	assert.True(t, found)
	assert.Contains(t, reqID.Tag.Get("gorm"), "uniqueIndex", "one channel per service request")
}

func TestChatChannel_IsParticipant(t *testing.T) {
	ch := models.ChatChannel{OwnerID: "owner", AssigneeID: "assignee"}

	assert.True(t, ch.IsParticipant("owner"))
	assert.True(t, ch.IsParticipant("assignee"))
	assert.False(t, ch.IsParticipant("stranger"))
	assert.False(t, ch.IsParticipant(""))
	assert.ElementsMatch(t, []string{"owner", "assignee"}, ch.ParticipantIDs())
}

func TestServiceRequest_IsAssignee(t *testing.T) {
	r := models.ServiceRequest{OwnerID: "owner"}
	assert.False(t, r.IsAssignee("b"))

	b := "b"
	r.AssignedTo = &b
	assert.True(t, r.IsAssignee("b"))
	assert.False(t, r.IsAssignee("owner"))
}

// BenchmarkUserBeforeCreate measures UUID generation performance.
func BenchmarkUserBeforeCreate(b *testing.B) {
	user := &models.User{Email: "benchmark@example.com"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		user.ID = ""
		_ = user.BeforeCreate(nil)
	}
}
