package server

import "sync"

// Member pairs a local session with its registered username so fan-out can
// run on a snapshot without re-entering the lock.
type Member struct {
	Session  *clientSession
	Username string
}

// Registry is the process-local bookkeeping of live connections: which
// session belongs to which username and which sessions sit in which room on
// this instance. It is a cache of the shared directory, never the source of
// truth, and holds its single lock only across map mutations.
type Registry struct {
	mu          sync.Mutex
	defaultRoom string
	byUser      map[string]*clientSession
	bySession   map[*clientSession]string
	rooms       map[string]map[*clientSession]struct{}
}

// NewRegistry initializes an empty registry; registered sessions start in
// defaultRoom's local set.
func NewRegistry(defaultRoom string) *Registry {
	return &Registry{
		defaultRoom: defaultRoom,
		byUser:      make(map[string]*clientSession),
		bySession:   make(map[*clientSession]string),
		rooms:       make(map[string]map[*clientSession]struct{}),
	}
}

// Register adds the session<->username mapping and places the session into
// the default room's local set.
func (r *Registry) Register(sess *clientSession, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[username] = sess
	r.bySession[sess] = username
	r.addToRoomLocked(sess, r.defaultRoom)
}

// MoveLocal shifts the session between room sets. Absence from fromRoom is
// a no-op; the move still lands the session in toRoom.
func (r *Registry) MoveLocal(sess *clientSession, fromRoom, toRoom string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if members, ok := r.rooms[fromRoom]; ok {
		delete(members, sess)
		if len(members) == 0 {
			delete(r.rooms, fromRoom)
		}
	}
	r.addToRoomLocked(sess, toRoom)
}

// Deregister purges the session from both mappings and from every room set
// it could be in.
func (r *Registry) Deregister(sess *clientSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if username, ok := r.bySession[sess]; ok {
		if r.byUser[username] == sess {
			delete(r.byUser, username)
		}
		delete(r.bySession, sess)
	}
	for room, members := range r.rooms {
		delete(members, sess)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
}

// LookupByUsername resolves the local session for a user, if connected here.
func (r *Registry) LookupByUsername(username string) (*clientSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.byUser[username]
	return sess, ok
}

// UsernameOf returns the registered username for a session.
func (r *Registry) UsernameOf(sess *clientSession) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	username, ok := r.bySession[sess]
	return username, ok
}

// LocalMembers snapshots the sessions currently in a room on this instance.
func (r *Registry) LocalMembers(room string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := make([]Member, 0, len(r.rooms[room]))
	for sess := range r.rooms[room] {
		members = append(members, Member{Session: sess, Username: r.bySession[sess]})
	}
	return members
}

func (r *Registry) addToRoomLocked(sess *clientSession, room string) {
	if _, ok := r.rooms[room]; !ok {
		r.rooms[room] = make(map[*clientSession]struct{})
	}
	r.rooms[room][sess] = struct{}{}
}
