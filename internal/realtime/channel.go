package realtime

// CleanupPolicy controls what happens to a channel when its last member
// leaves.
type CleanupPolicy int

const (
	// Permanent channels survive with zero members (the global channel).
	Permanent CleanupPolicy = iota
	// AutoCleanupOnEmpty channels are deleted the moment they empty out.
	AutoCleanupOnEmpty
)

// GlobalChannel is the reserved name of the permanent broadcast group every
// session belongs to.
const GlobalChannel = "global"

// Channel is a named broadcast group of sessions. It is not internally
// locked; the manager's lock guards all membership mutation.
type Channel struct {
	Name   string
	Policy CleanupPolicy

	members map[string]*Session
}

func newChannel(name string, policy CleanupPolicy) *Channel {
	return &Channel{
		Name:    name,
		Policy:  policy,
		members: make(map[string]*Session),
	}
}

func (ch *Channel) register(s *Session) {
	ch.members[s.ID] = s
}

func (ch *Channel) deregister(sessionID string) {
	delete(ch.members, sessionID)
}

func (ch *Channel) has(sessionID string) bool {
	_, ok := ch.members[sessionID]
	return ok
}

// MemberCount returns the number of member sessions.
func (ch *Channel) MemberCount() int {
	return len(ch.members)
}

// snapshot returns the current members; callers send outside the manager
// lock so one slow connection cannot stall membership operations.
func (ch *Channel) snapshot() []*Session {
	out := make([]*Session, 0, len(ch.members))
	for _, s := range ch.members {
		out = append(out, s)
	}
	return out
}
