// Package session holds the authenticated state every portal operation runs
// under. A Session is a plain value and is passed explicitly, Context only
// exists for callers that want a single "current" session.
package session

import (
	"errors"
	"sync"
)

var ErrNoSession = errors.New("no session, log in first")

// Session is the cookie material and identity returned by a successful login.
//
// There is no expiry, a session is valid until the portal starts rejecting
// requests made with it, which callers observe as ordinary request failures.
type Session struct {
	// Cookie is the raw "k=v; k2=v2" cookie string.
	Cookie   string
	Username string
}

func (s Session) Empty() bool {
	return s.Cookie == "" && s.Username == ""
}

// Context holds the current session. Set replaces the session as a whole,
// concurrent logins resolve as last writer wins.
type Context struct {
	mutex   sync.RWMutex
	current Session
	present bool
}

func (c *Context) Set(sess Session) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.current = sess
	c.present = true
}

func (c *Context) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.current = Session{}
	c.present = false
}

// Get returns a snapshot of the current session, the lock is only held for
// the copy.
func (c *Context) Get() (Session, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.current, c.present
}

// Require is Get that returns ErrNoSession when nothing is set.
func (c *Context) Require() (Session, error) {
	sess, ok := c.Get()
	if !ok {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (c *Context) Cookie() (string, bool) {
	sess, ok := c.Get()
	return sess.Cookie, ok
}

func (c *Context) Username() (string, bool) {
	sess, ok := c.Get()
	return sess.Username, ok
}
