package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store/memory"
)

func stashMessage(t *testing.T, st *memory.Store, id, target int, body string, createdAt time.Time, selfDestruct bool) {
	t.Helper()
	require.NoError(t, st.Save(context.Background(), &models.Message{
		ID: id, SenderID: 99, TargetID: target, Body: body,
		CreatedAt: createdAt, SelfDestruct: selfDestruct,
	}))
}

func TestDeliverStashedAscendingIDOrder(t *testing.T) {
	st := memory.New()
	reg := NewRegistry()
	d := NewStashDeliverer(st, NewRecipientFilter(st), reg, zap.NewNop().Sugar())

	now := time.Now().UTC()
	user := &models.User{ID: 1, Username: "bob", LastLogout: now.Add(-time.Hour)}
	st.AddUser(*user)
	for _, id := range []int{5, 2, 7} {
		stashMessage(t, st, id, 1, "m", now.Add(-time.Minute), false)
	}

	conn := &fakeSender{}
	reg.Register("c1", "bob", conn)
	require.NoError(t, d.DeliverStashed(context.Background(), user, "c1"))

	assert.Equal(t, []int{2, 5, 7}, conn.ids())
}

func TestDeliverStashedOnlyToNewConnection(t *testing.T) {
	st := memory.New()
	reg := NewRegistry()
	d := NewStashDeliverer(st, NewRecipientFilter(st), reg, zap.NewNop().Sugar())

	now := time.Now().UTC()
	user := &models.User{ID: 1, Username: "bob", LastLogout: now.Add(-time.Hour)}
	st.AddUser(*user)
	stashMessage(t, st, 1, 1, "hello", now.Add(-time.Minute), false)

	fresh := &fakeSender{}
	existing := &fakeSender{}
	reg.Register("fresh", "bob", fresh)
	reg.Register("existing", "bob", existing)
	require.NoError(t, d.DeliverStashed(context.Background(), user, "fresh"))

	assert.Len(t, fresh.msgs, 1)
	assert.Empty(t, existing.msgs, "replay goes only to the connection that just opened")
}

func TestDeliverStashedRespectsLastLogout(t *testing.T) {
	st := memory.New()
	reg := NewRegistry()
	d := NewStashDeliverer(st, NewRecipientFilter(st), reg, zap.NewNop().Sugar())

	now := time.Now().UTC()
	user := &models.User{ID: 1, Username: "bob", LastLogout: now.Add(-time.Hour)}
	st.AddUser(*user)
	stashMessage(t, st, 1, 1, "before logout", now.Add(-2*time.Hour), false)
	stashMessage(t, st, 2, 1, "after logout", now.Add(-time.Minute), false)

	conn := &fakeSender{}
	reg.Register("c1", "bob", conn)
	require.NoError(t, d.DeliverStashed(context.Background(), user, "c1"))

	assert.Equal(t, []string{"after logout"}, conn.bodies())
}

func TestDeliverStashedDropsExpiredSelfDestruct(t *testing.T) {
	st := memory.New()
	reg := NewRegistry()
	d := NewStashDeliverer(st, NewRecipientFilter(st), reg, zap.NewNop().Sugar())

	now := time.Now().UTC()
	user := &models.User{ID: 1, Username: "bob", LastLogout: now.Add(-72 * time.Hour)}
	st.AddUser(*user)
	stashMessage(t, st, 1, 1, "expired secret", now.Add(-48*time.Hour), true)
	stashMessage(t, st, 2, 1, "fresh secret", now.Add(-time.Hour), true)
	stashMessage(t, st, 3, 1, "old but regular", now.Add(-48*time.Hour), false)

	conn := &fakeSender{}
	reg.Register("c1", "bob", conn)
	require.NoError(t, d.DeliverStashed(context.Background(), user, "c1"))

	assert.Equal(t, []string{"fresh secret", "old but regular"}, conn.bodies())
}

func TestDeliverStashedAppliesFilter(t *testing.T) {
	st := memory.New()
	reg := NewRegistry()
	d := NewStashDeliverer(st, NewRecipientFilter(st), reg, zap.NewNop().Sugar())

	now := time.Now().UTC()
	user := &models.User{ID: 1, Username: "bob", LastLogout: now.Add(-time.Hour)}
	st.AddUser(*user)
	require.NoError(t, st.AddFilter(context.Background(), 1, "lottery"))
	stashMessage(t, st, 1, 1, "you won the LOTTERY", now.Add(-time.Minute), false)
	stashMessage(t, st, 2, 1, "lunch?", now.Add(-time.Minute), false)

	conn := &fakeSender{}
	reg.Register("c1", "bob", conn)
	require.NoError(t, d.DeliverStashed(context.Background(), user, "c1"))

	assert.Equal(t, []string{"lunch?"}, conn.bodies())
}
