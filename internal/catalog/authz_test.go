package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/2beens/fitlog/internal/auth"
)

func TestCanMutate(t *testing.T) {
	owner := &auth.Session{UserID: 10}
	otherUser := &auth.Session{UserID: 20}
	admin := &auth.Session{UserID: 30, IsAdmin: true}
	superuser := &auth.Session{UserID: 40, IsSuperuser: true}

	globalItem := &Item{ID: 1, Name: "Squat"}
	ownedItem := &Item{ID: 2, Name: "Deadlift", OwnerID: intPtr(10)}

	for name, tc := range map[string]struct {
		session  *auth.Session
		item     *Item
		expected bool
	}{
		"owner mutates own item":           {session: owner, item: ownedItem, expected: true},
		"other user cannot":                {session: otherUser, item: ownedItem, expected: false},
		"regular user on global":           {session: owner, item: globalItem, expected: false},
		"superuser on global":              {session: superuser, item: globalItem, expected: true},
		"superuser on someone else's item": {session: superuser, item: ownedItem, expected: false},
		"admin on global":                  {session: admin, item: globalItem, expected: true},
		"admin on someone else's item":     {session: admin, item: ownedItem, expected: true},
		"no session":                       {session: nil, item: globalItem, expected: false},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, CanMutate(tc.session, tc.item))
		})
	}
}

func TestCanManageGlobal(t *testing.T) {
	assert.False(t, CanManageGlobal(nil))
	assert.False(t, CanManageGlobal(&auth.Session{UserID: 10}))
	assert.True(t, CanManageGlobal(&auth.Session{UserID: 20, IsSuperuser: true}))
	assert.True(t, CanManageGlobal(&auth.Session{UserID: 30, IsAdmin: true}))
}
