package command

// Session is the identity bound to one connection or request. The zero
// value is logged out. A successful login or logout changes it, and so does
// deleting the account it names, whether by delete_account or from
// elsewhere before the next gated command.
type Session struct {
	user string
}

// NewSession returns a session already logged in as user, for transports
// that restore identity from a token or cookie. An empty user gives a
// logged-out session.
func NewSession(user string) *Session {
	return &Session{user: user}
}

func (s *Session) User() string {
	if s == nil {
		return ""
	}
	return s.user
}

func (s *Session) LoggedIn() bool {
	return s.User() != ""
}

func (s *Session) login(user string) {
	s.user = user
}

func (s *Session) logout() {
	s.user = ""
}
