// Package mpris exports the org.mpris.MediaPlayer2 surface on the desktop
// session bus, forwarding every method call to the Controller Façade and
// projecting its player-state snapshots onto MPRIS properties. The teacher
// only ever used godbus client-side against BlueZ (streams/bluetooth.go);
// exporting a service is new territory, built on the same library.
package mpris

import (
	"context"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/mehroj-r/ym-bridge/internal/models"
)

const (
	objectPath  = dbus.ObjectPath("/org/mpris/MediaPlayer2")
	ifaceRoot   = "org.mpris.MediaPlayer2"
	ifacePlayer = "org.mpris.MediaPlayer2.Player"
)

// controller is the subset of facade.Facade the MPRIS adapter drives.
type controller interface {
	State() models.PlayerState
	Subscribe(id string) <-chan models.PlayerState
	Unsubscribe(id string)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayPause(ctx context.Context) error
	StopPlayback(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Seek(ctx context.Context, offsetUS int64) error
	SetPosition(ctx context.Context, trackID string, positionUS int64) error
	SetVolume(ctx context.Context, v float64) error
}

// Service owns the session-bus connection and the exported MPRIS objects.
type Service struct {
	ctrl   controller
	name   string
	subID  string
	conn   *dbus.Conn
	props  *prop.Properties
	stopCh chan struct{}
}

// New builds a Service. Call Start to connect and export it.
func New(ctrl controller, mprisName string) *Service {
	return &Service{ctrl: ctrl, name: mprisName, subID: "mpris:" + mprisName}
}

// Start connects to the session bus, exports both MPRIS interfaces, requests
// the well-known bus name, and begins forwarding façade state changes onto
// exported properties.
func (s *Service) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return err
	}
	s.conn = conn

	root := &rootHandler{ctrl: s.ctrl}
	player := &playerHandler{ctrl: s.ctrl}

	if err := conn.Export(root, objectPath, ifaceRoot); err != nil {
		return err
	}
	if err := conn.Export(player, objectPath, ifacePlayer); err != nil {
		return err
	}

	exported, err := prop.Export(conn, objectPath, s.propSpec())
	if err != nil {
		return err
	}
	s.props = exported

	node := &introspect.Node{
		Name: string(objectPath),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			prop.IntrospectData,
			rootIntrospection(),
			playerIntrospection(),
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), objectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		return err
	}

	reply, err := conn.RequestName("org.mpris.MediaPlayer2."+s.name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		slog.Warn("mpris: bus name already taken, exported unnamed", "name", s.name)
	}

	s.stopCh = make(chan struct{})
	go s.watch(s.ctrl.Subscribe(s.subID))
	s.applyState(s.ctrl.State())
	return nil
}

// Stop unsubscribes from façade updates and closes the bus connection.
func (s *Service) Stop() {
	if s.stopCh != nil {
		close(s.stopCh)
	}
	s.ctrl.Unsubscribe(s.subID)
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

func (s *Service) watch(ch <-chan models.PlayerState) {
	for {
		select {
		case <-s.stopCh:
			return
		case state, ok := <-ch:
			if !ok {
				return
			}
			s.applyState(state)
		}
	}
}

func (s *Service) applyState(state models.PlayerState) {
	if s.props == nil {
		return
	}
	s.props.SetMust(ifacePlayer, "PlaybackStatus", string(state.Status))
	s.props.SetMust(ifacePlayer, "Volume", state.Volume)
	s.props.SetMust(ifacePlayer, "Position", state.PositionUS)
	s.props.SetMust(ifacePlayer, "CanGoNext", state.CanGoNext)
	s.props.SetMust(ifacePlayer, "CanGoPrevious", state.CanGoPrevious)
	s.props.SetMust(ifacePlayer, "CanPlay", state.CanPlay)
	s.props.SetMust(ifacePlayer, "CanPause", state.CanPause)
	s.props.SetMust(ifacePlayer, "CanSeek", state.CanSeek)
	s.props.SetMust(ifacePlayer, "CanControl", state.CanControl)
	s.props.SetMust(ifacePlayer, "Metadata", metadataOf(state.Track))
}

func metadataOf(track models.Track) map[string]dbus.Variant {
	trackObj := dbus.ObjectPath(string(objectPath) + "/track/" + sanitizeTrackID(track.ID))
	md := map[string]dbus.Variant{
		"mpris:trackid": dbus.MakeVariant(trackObj),
		"xesam:title":   dbus.MakeVariant(track.Title),
		"xesam:album":   dbus.MakeVariant(track.Album),
		"mpris:length":  dbus.MakeVariant(track.Duration * 1000),
	}
	if track.Artist != "" {
		md["xesam:artist"] = dbus.MakeVariant([]string{track.Artist})
	}
	if track.ArtURL != "" {
		md["mpris:artUrl"] = dbus.MakeVariant(track.ArtURL)
	}
	return md
}

// sanitizeTrackID maps a cloud track id onto the object-path character set
// ([A-Za-z0-9_]), since MPRIS trackids are object paths, not free strings.
func sanitizeTrackID(id string) string {
	if id == "" {
		return "none"
	}
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
