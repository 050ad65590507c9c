package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReduce_GuestIsKeptOffWriteScreens(t *testing.T) {
	s := Reduce(InitialState(), EnterGuest{})
	assert.True(t, s.Guest)
	assert.Equal(t, ScreenTimeline, s.Screen)

	s = Reduce(s, Navigate{To: ScreenMap})
	assert.Equal(t, ScreenMap, s.Screen)

	for _, screen := range []Screen{ScreenUpload, ScreenPublish} {
		next := Reduce(s, Navigate{To: screen})
		assert.Equal(t, ScreenMap, next.Screen)
		assert.Equal(t, GuestToast, next.Toast)
		assert.Empty(t, Reduce(next, DismissToast{}).Toast)
	}
}

func TestReduce_SignedInUserNavigatesFreely(t *testing.T) {
	s := Reduce(InitialState(), Navigate{To: ScreenPublish})
	assert.Equal(t, ScreenPublish, s.Screen)
	assert.Empty(t, s.Toast)
}

func TestReduce_Logout(t *testing.T) {
	guest := Reduce(Reduce(InitialState(), EnterGuest{}), Navigate{To: ScreenAnniversary})
	s := Reduce(guest, Logout{})
	assert.False(t, s.Guest)
	assert.Equal(t, ScreenAnniversary, s.Screen)

	user := Reduce(Reduce(InitialState(), ShowAuthView{View: AuthRegister}), Navigate{To: ScreenDiscovery})
	assert.Equal(t, AuthRegister, user.AuthView)
	assert.Equal(t, InitialState(), Reduce(user, Logout{}))
}
