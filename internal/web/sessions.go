// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/docbench/internal/export"
	"github.com/pdiddy/docbench/pkg/types"
)

// session holds one browser's state: at most one staged upload, one
// converted document, and the most recent export result. A failed parse
// leaves the previous document untouched.
type session struct {
	id string

	mu         sync.Mutex
	upload     string
	doc        *types.Document
	lastExport *export.Result
	lastSeen   time.Time
	parsing    bool
}

// beginParse marks the session as parsing. It reports false when a
// parse is already running; overlapping parses are rejected, not queued.
func (s *session) beginParse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.parsing {
		return false
	}
	s.parsing = true
	return true
}

func (s *session) endParse() {
	s.mu.Lock()
	s.parsing = false
	s.mu.Unlock()
}

// setUpload stages a new upload path and returns the previous one so
// the caller can remove the file.
func (s *session) setUpload(path string) (prior string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prior = s.upload
	s.upload = path
	return prior
}

func (s *session) uploadPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload
}

// setDocument replaces the session's document and invalidates the last
// export, which belonged to the previous document.
func (s *session) setDocument(doc *types.Document) {
	s.mu.Lock()
	s.doc = doc
	s.lastExport = nil
	s.mu.Unlock()
}

func (s *session) document() *types.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

func (s *session) setLastExport(res export.Result) {
	s.mu.Lock()
	s.lastExport = &res
	s.mu.Unlock()
}

func (s *session) exportResult() (export.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastExport == nil {
		return export.Result{}, false
	}
	return *s.lastExport, true
}

// sessionStore tracks sessions by cookie value and evicts idle ones.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

const defaultSessionTTL = 2 * time.Hour

func newSessionStore(ttl time.Duration) *sessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &sessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
}

// lookup returns the session for id and refreshes its idle timer.
func (st *sessionStore) lookup(id string) (*session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if ok {
		s.mu.Lock()
		s.lastSeen = time.Now()
		s.mu.Unlock()
	}
	return s, ok
}

func (st *sessionStore) create() *session {
	s := &session{id: uuid.NewString()}
	s.lastSeen = time.Now()

	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()
	return s
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// evictIdle removes sessions idle longer than the TTL and returns their
// staged upload paths so the caller can delete the files. Sessions with
// a parse in flight are kept.
func (st *sessionStore) evictIdle(now time.Time) []string {
	st.mu.Lock()
	defer st.mu.Unlock()

	var uploads []string
	for id, s := range st.sessions {
		s.mu.Lock()
		expired := !s.parsing && now.Sub(s.lastSeen) > st.ttl
		upload := s.upload
		s.mu.Unlock()

		if expired {
			delete(st.sessions, id)
			if upload != "" {
				uploads = append(uploads, upload)
			}
		}
	}
	return uploads
}

// start launches the eviction loop. cleanup receives the upload paths of
// evicted sessions.
func (st *sessionStore) start(interval time.Duration, cleanup func([]string)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-st.stop:
				return
			case now := <-ticker.C:
				if uploads := st.evictIdle(now); len(uploads) > 0 && cleanup != nil {
					cleanup(uploads)
				}
			}
		}
	}()
}

func (st *sessionStore) close() {
	st.stopOnce.Do(func() { close(st.stop) })
}
