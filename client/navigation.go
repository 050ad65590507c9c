package client

type Screen string

const (
	ScreenDiscovery   Screen = "discovery"
	ScreenTimeline    Screen = "timeline"
	ScreenMap         Screen = "map"
	ScreenAnniversary Screen = "anniversary"
	ScreenPublish     Screen = "publish"
	ScreenUpload      Screen = "upload"
	ScreenAlbumList   Screen = "album_list"
)

type AuthView string

const (
	AuthLogin    AuthView = "login"
	AuthRegister AuthView = "register"
)

// GuestToast is shown when a guest tries to open a write screen.
const GuestToast = "🔒 访客模式下无法操作"

// State is what the app shell shows.
type State struct {
	Screen   Screen
	AuthView AuthView
	Guest    bool
	Toast    string
}

func InitialState() State {
	return State{Screen: ScreenTimeline, AuthView: AuthLogin}
}

type Action interface {
	isAction()
}

type (
	Navigate     struct{ To Screen }
	EnterGuest   struct{}
	Logout       struct{}
	ShowAuthView struct{ View AuthView }
	DismissToast struct{}
)

func (Navigate) isAction()     {}
func (EnterGuest) isAction()   {}
func (Logout) isAction()       {}
func (ShowAuthView) isAction() {}
func (DismissToast) isAction() {}

func writeScreen(s Screen) bool {
	return s == ScreenPublish || s == ScreenUpload
}

// Reduce returns the state after a.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case Navigate:
		if s.Guest && writeScreen(a.To) {
			s.Toast = GuestToast
			return s
		}
		s.Screen = a.To
	case EnterGuest:
		s.Guest = true
		s.Screen = ScreenTimeline
		s.Toast = ""
	case Logout:
		if s.Guest {
			s.Guest = false
			s.Toast = ""
			return s
		}
		return InitialState()
	case ShowAuthView:
		s.AuthView = a.View
	case DismissToast:
		s.Toast = ""
	}
	return s
}
