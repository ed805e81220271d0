// Package browser drives an interactive Gopher session.
//
// A Session owns the navigation history and the single active fetch. The
// caller runs a loop over Session.Events and passes each event to
// Session.Handle, which updates history and calls the Listener:
//
//	s := browser.New(client)
//	s.OpenURL(ctx, "gopher://gopher.floodgap.com/", "")
//	for ev := range s.Events() {
//		s.Handle(ev, listener)
//	}
package browser
