package registry

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	ids := IDs()
	assert.Len(t, ids, 21)
	assert.True(t, sort.StringsAreSorted(ids))
	assert.True(t, IsRegistered(CEO))
	assert.True(t, IsRegistered(NotificationAgent))
	assert.False(t, IsRegistered(MCP))
	assert.False(t, IsRegistered("janitor"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "QA Manager", DisplayName(QAManager))
	assert.Equal(t, "HR Manager", DisplayName(HRManager))
	assert.Equal(t, "ghost", DisplayName("ghost"))
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "qa_manager", Suggest("qa_manger"))
	assert.Equal(t, "backend_developer", Suggest("backend_develper"))
	assert.Equal(t, "ceo", Suggest("cfo"))
	assert.Empty(t, Suggest("zzzzzzzzzz"))
}
