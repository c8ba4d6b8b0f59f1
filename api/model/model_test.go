package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/titanforge/titanforge/model"
)

func TestValidateSubmitGoal(t *testing.T) {
	assert.NoError(t, (&SubmitGoal{Description: "Launch a marketing campaign"}).ValidateSubmitGoal())
	assert.Error(t, (&SubmitGoal{}).ValidateSubmitGoal())
	assert.Error(t, (&SubmitGoal{Description: "   "}).ValidateSubmitGoal())
}

func TestValidateUpdateTask(t *testing.T) {
	tests := []struct {
		name    string
		update  UpdateTask
		wantErr bool
	}{
		{name: "in progress", update: UpdateTask{Status: "in_progress", AgentID: "backend_developer"}},
		{name: "completed", update: UpdateTask{Status: "completed", AgentID: "qa_manager"}},
		{name: "back to pending", update: UpdateTask{Status: "pending", AgentID: "ceo"}, wantErr: true},
		{name: "unknown status", update: UpdateTask{Status: "archived", AgentID: "ceo"}, wantErr: true},
		{name: "missing agent", update: UpdateTask{Status: "failed"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.update.ValidateUpdateTask()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, model.TaskStatus(tt.update.Status), tt.update.TaskStatus())
		})
	}
}

func TestSendMessageToAgentMessage(t *testing.T) {
	dto := SendMessage{SenderID: "mcp", RecipientID: "ceo", Message: "hello", UserID: "usr_1"}
	assert.NoError(t, dto.ValidateSendMessage())

	msg := dto.ToAgentMessage()
	assert.Equal(t, "mcp", msg.SenderID)
	assert.Equal(t, "hello", msg.Text())
	assert.Equal(t, "usr_1", msg.UserID)

	assert.Error(t, (&SendMessage{SenderID: "mcp", RecipientID: "ceo"}).ValidateSendMessage())
}

func TestValidateCreateLead(t *testing.T) {
	assert.NoError(t, (&CreateLead{Email: "ada@example.com", Name: "Ada"}).ValidateCreateLead())
	assert.Error(t, (&CreateLead{Email: "not-an-email", Name: "Ada"}).ValidateCreateLead())
	assert.Error(t, (&CreateLead{Email: "ada@example.com"}).ValidateCreateLead())
}

func TestValidateRegister(t *testing.T) {
	assert.NoError(t, (&Register{Email: "ada@example.com", Password: "short"}).ValidateRegister())
	assert.Error(t, (&Register{Email: "ada", Password: "long enough"}).ValidateRegister())
}

func TestValidateRecoverTasks(t *testing.T) {
	assert.NoError(t, (&RecoverTasks{}).ValidateRecoverTasks())
	assert.Error(t, (&RecoverTasks{ThresholdMinutes: -1}).ValidateRecoverTasks())
}
