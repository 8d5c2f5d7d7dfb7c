package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextEmpty(t *testing.T) {
	var ctx Context

	_, ok := ctx.Get()
	require.False(t, ok)

	cookie, ok := ctx.Cookie()
	require.False(t, ok)
	require.Empty(t, cookie)

	_, err := ctx.Require()
	require.ErrorIs(t, err, ErrNoSession)
}

func TestContextSetThenGet(t *testing.T) {
	var ctx Context
	ctx.Set(Session{Cookie: "PHPSESSID=abc; lang=zh", Username: "alice"})

	cookie, ok := ctx.Cookie()
	require.True(t, ok)
	require.Equal(t, "PHPSESSID=abc; lang=zh", cookie)

	username, ok := ctx.Username()
	require.True(t, ok)
	require.Equal(t, "alice", username)
}

func TestContextSetReplaces(t *testing.T) {
	var ctx Context
	ctx.Set(Session{Cookie: "PHPSESSID=abc; lang=zh", Username: "alice"})
	ctx.Set(Session{Cookie: "PHPSESSID=def"})

	sess, ok := ctx.Get()
	require.True(t, ok)
	require.Equal(t, Session{Cookie: "PHPSESSID=def"}, sess)

	ctx.Clear()
	_, ok = ctx.Get()
	require.False(t, ok)
}

// there is no expiry detection, a stale session still reads back as present
func TestContextDoesNotExpire(t *testing.T) {
	var ctx Context
	ctx.Set(Session{Cookie: "PHPSESSID=stale", Username: "alice"})

	sess, err := ctx.Require()
	require.NoError(t, err)
	require.Equal(t, "PHPSESSID=stale", sess.Cookie)
}

func TestContextConcurrentSet(t *testing.T) {
	var ctx Context
	sessions := []Session{
		{Cookie: "a=1", Username: "a"},
		{Cookie: "b=2", Username: "b"},
		{Cookie: "c=3", Username: "c"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(s Session) {
			defer wg.Done()
			ctx.Set(s)
			_, _ = ctx.Get()
		}(sessions[i%len(sessions)])
	}
	wg.Wait()

	sess, ok := ctx.Get()
	require.True(t, ok)
	// never a mix of two logins
	require.Contains(t, sessions, sess)
}
