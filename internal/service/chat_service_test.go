package service

import (
	"encoding/json"
	"learning_platform_backend/internal/model"
	"learning_platform_backend/internal/repository"
	"learning_platform_backend/internal/testutil"
	"learning_platform_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type chatFixture struct {
	db      *gorm.DB
	svc     *ChatService
	hub     *ChatHub
	student model.Participant
	admin   model.Participant
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db := testutil.NewDB(t)
	chats := repository.NewChatRepository(db)
	hub := NewChatHub(nil, nil)
	go hub.Run()
	t.Cleanup(hub.Stop)

	svc := NewChatService(
		chats,
		repository.NewTopicContentRepository(db),
		NewParticipantResolver(repository.NewStudentRepository(db), repository.NewAdminRepository(db)),
		newLocalStorage(t),
		hub,
	)
	return &chatFixture{
		db:      db,
		svc:     svc,
		hub:     hub,
		student: model.StudentParticipant(testutil.CreateStudent(t, db, "learner@example.com").ID),
		admin:   model.AdminParticipant(testutil.CreateAdmin(t, db, "tutor@example.com", model.RoleTeacher).ID),
	}
}

func (f *chatFixture) connect(t *testing.T, who model.Participant) *Client {
	t.Helper()
	c := &Client{Hub: f.hub, Send: make(chan []byte, 8), Who: who}
	require.True(t, f.hub.join(c))
	require.Eventually(t, func() bool { return f.hub.IsOnline(who) }, time.Second, 10*time.Millisecond)
	return c
}

func nextEvent(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case raw := <-c.Send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
	return WSMessage{}
}

func TestSendValidatesParticipants(t *testing.T) {
	f := newChatFixture(t)
	other := model.StudentParticipant(testutil.CreateStudent(t, f.db, "peer@example.com").ID)

	cases := []struct {
		name string
		req  SendChatRequest
		want error
	}{
		{"no receiver", SendChatRequest{Message: "hi"}, util.ErrValidation},
		{"student to student", SendChatRequest{Receiver: other, Message: "hi"}, util.ErrValidation},
		{"unknown admin", SendChatRequest{Receiver: model.AdminParticipant(999), Message: "hi"}, util.ErrAdminNotFound},
		{"help request without content", SendChatRequest{Receiver: f.admin, Message: "hi", MessageType: model.ChatContentHelpRequest}, util.ErrValidation},
		{"unknown content", SendChatRequest{Receiver: f.admin, Message: "hi", TopicContentID: ptr(uint(999))}, util.ErrTopicContentNotFound},
		{"bad type", SendChatRequest{Receiver: f.admin, Message: "hi", MessageType: "broadcast"}, util.ErrValidation},
		{"empty", SendChatRequest{Receiver: f.admin, Message: "  "}, util.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Send(t.Context(), f.student, tc.req, nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestConversationFlow(t *testing.T) {
	f := newChatFixture(t)
	tutor := f.connect(t, f.admin)
	subject := testutil.CreateSubject(t, f.db, "Geography")
	content := testutil.CreateContent(t, f.db, testutil.CreateTopic(t, f.db, subject.ID, "Rivers").ID, "l1")

	help, err := f.svc.Send(t.Context(), f.student, SendChatRequest{
		Receiver:       f.admin,
		Message:        "Stuck on lesson one",
		TopicContentID: &content.ID,
		LessonInfoID:   "l1",
		MessageType:    model.ChatContentHelpRequest,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, EventNewMessage, nextEvent(t, tutor).Type)

	_, err = f.svc.Send(t.Context(), f.student, SendChatRequest{Receiver: f.admin, Message: "Any time today?"}, nil)
	require.NoError(t, err)
	nextEvent(t, tutor)
	reply, err := f.svc.Send(t.Context(), f.admin, SendChatRequest{Receiver: f.student, Message: "Yes, at four"}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ChatGeneral, reply.MessageType)
	nextEvent(t, tutor)

	convo, err := f.svc.Conversation(f.student, f.admin)
	require.NoError(t, err)
	require.Len(t, convo, 3)
	assert.Equal(t, help.ID, convo[0].ID)
	assert.Equal(t, reply.ID, convo[2].ID)

	unread, err := f.svc.UnreadCount(f.admin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	// marking viewed only touches what the student sent
	n, err := f.svc.MarkViewed(f.admin, f.student)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	unread, err = f.svc.UnreadCount(f.admin)
	require.NoError(t, err)
	assert.Zero(t, unread)
	unread, err = f.svc.UnreadCount(f.student)
	require.NoError(t, err)
	assert.EqualValues(t, 1, unread)

	partners, err := f.svc.Partners(f.student)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, f.admin, partners[0].Participant)
	assert.True(t, partners[0].Online)

	partners, err = f.svc.Partners(f.admin)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.False(t, partners[0].Online)
}

func TestDeleteChatMessages(t *testing.T) {
	f := newChatFixture(t)
	msg, err := f.svc.Send(t.Context(), f.student, SendChatRequest{Receiver: f.admin, Message: "first"}, nil)
	require.NoError(t, err)
	other := model.StudentParticipant(testutil.CreateStudent(t, f.db, "nosy@example.com").ID)

	assert.ErrorIs(t, f.svc.DeleteMessage(t.Context(), msg.ID, other), util.ErrPermissionDenied)
	require.NoError(t, f.svc.DeleteMessage(t.Context(), msg.ID, f.admin))
	assert.ErrorIs(t, f.svc.DeleteMessage(t.Context(), msg.ID, f.admin), util.ErrMessageNotFound)

	for _, text := range []string{"one", "two"} {
		_, err := f.svc.Send(t.Context(), f.student, SendChatRequest{Receiver: f.admin, Message: text}, nil)
		require.NoError(t, err)
	}
	n, err := f.svc.DeleteConversation(f.admin, f.student)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	convo, err := f.svc.Conversation(f.student, f.admin)
	require.NoError(t, err)
	assert.Empty(t, convo)
}
