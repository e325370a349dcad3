package mpris

import (
	"context"
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
)

var errInvalidVolume = errors.New("mpris: Volume property must be a double")

// rootHandler implements the org.mpris.MediaPlayer2 method surface.
// godbus.Conn.Export finds these via reflection; every exported method's
// final return value must be *dbus.Error.
type rootHandler struct {
	ctrl controller
}

func (r *rootHandler) Raise() *dbus.Error { return nil }

func (r *rootHandler) Quit() *dbus.Error {
	if err := r.ctrl.StopPlayback(context.Background()); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// playerHandler implements the org.mpris.MediaPlayer2.Player method surface.
type playerHandler struct {
	ctrl controller
}

func (p *playerHandler) Next() *dbus.Error {
	if err := p.ctrl.Next(context.Background()); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (p *playerHandler) Previous() *dbus.Error {
	if err := p.ctrl.Previous(context.Background()); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (p *playerHandler) Pause() *dbus.Error {
	if err := p.ctrl.Pause(context.Background()); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (p *playerHandler) PlayPause() *dbus.Error {
	if err := p.ctrl.PlayPause(context.Background()); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (p *playerHandler) Stop() *dbus.Error {
	if err := p.ctrl.StopPlayback(context.Background()); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (p *playerHandler) Play() *dbus.Error {
	if err := p.ctrl.Play(context.Background()); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (p *playerHandler) Seek(offsetUS int64) *dbus.Error {
	if err := p.ctrl.Seek(context.Background(), offsetUS); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

// SetPosition's track_id argument is an object path of the form
// .../track/{id}; only the trailing segment is meaningful to the façade.
func (p *playerHandler) SetPosition(trackID dbus.ObjectPath, positionUS int64) *dbus.Error {
	segments := strings.Split(string(trackID), "/")
	id := segments[len(segments)-1]
	if err := p.ctrl.SetPosition(context.Background(), id, positionUS); err != nil {
		return dbus.MakeFailedError(err)
	}
	return nil
}

func (p *playerHandler) OpenUri(_ string) *dbus.Error { return nil }

func rootIntrospection() introspect.Interface {
	return introspect.Interface{
		Name: ifaceRoot,
		Methods: []introspect.Method{
			{Name: "Raise"},
			{Name: "Quit"},
		},
		Properties: []introspect.Property{
			{Name: "CanQuit", Type: "b", Access: "read"},
			{Name: "CanRaise", Type: "b", Access: "read"},
			{Name: "HasTrackList", Type: "b", Access: "read"},
			{Name: "Identity", Type: "s", Access: "read"},
			{Name: "DesktopEntry", Type: "s", Access: "read"},
			{Name: "SupportedUriSchemes", Type: "as", Access: "read"},
			{Name: "SupportedMimeTypes", Type: "as", Access: "read"},
		},
	}
}

func playerIntrospection() introspect.Interface {
	arg := func(name, typ string, dir introspect.Direction) introspect.Arg {
		return introspect.Arg{Name: name, Type: typ, Direction: string(dir)}
	}
	return introspect.Interface{
		Name: ifacePlayer,
		Methods: []introspect.Method{
			{Name: "Next"},
			{Name: "Previous"},
			{Name: "Pause"},
			{Name: "PlayPause"},
			{Name: "Stop"},
			{Name: "Play"},
			{Name: "Seek", Args: []introspect.Arg{arg("Offset", "x", introspect.DirectionIn)}},
			{Name: "SetPosition", Args: []introspect.Arg{
				arg("TrackId", "o", introspect.DirectionIn),
				arg("Position", "x", introspect.DirectionIn),
			}},
			{Name: "OpenUri", Args: []introspect.Arg{arg("Uri", "s", introspect.DirectionIn)}},
		},
		Signals: []introspect.Signal{
			{Name: "Seeked", Args: []introspect.Arg{arg("Position", "x", introspect.DirectionOut)}},
		},
		Properties: []introspect.Property{
			{Name: "PlaybackStatus", Type: "s", Access: "read"},
			{Name: "LoopStatus", Type: "s", Access: "read"},
			{Name: "Rate", Type: "d", Access: "read"},
			{Name: "Shuffle", Type: "b", Access: "read"},
			{Name: "Volume", Type: "d", Access: "readwrite"},
			{Name: "Position", Type: "x", Access: "read"},
			{Name: "MinimumRate", Type: "d", Access: "read"},
			{Name: "MaximumRate", Type: "d", Access: "read"},
			{Name: "CanGoNext", Type: "b", Access: "read"},
			{Name: "CanGoPrevious", Type: "b", Access: "read"},
			{Name: "CanPlay", Type: "b", Access: "read"},
			{Name: "CanPause", Type: "b", Access: "read"},
			{Name: "CanSeek", Type: "b", Access: "read"},
			{Name: "CanControl", Type: "b", Access: "read"},
			{Name: "Metadata", Type: "a{sv}", Access: "read"},
		},
	}
}

func (s *Service) propSpec() map[string]map[string]*prop.Prop {
	st := s.ctrl.State()
	return map[string]map[string]*prop.Prop{
		ifaceRoot: {
			"CanQuit":             {Value: true, Writable: false, Emit: prop.EmitFalse},
			"CanRaise":            {Value: false, Writable: false, Emit: prop.EmitFalse},
			"HasTrackList":        {Value: false, Writable: false, Emit: prop.EmitFalse},
			"Identity":            {Value: "ym-bridge", Writable: false, Emit: prop.EmitFalse},
			"DesktopEntry":        {Value: "ym-bridge", Writable: false, Emit: prop.EmitFalse},
			"SupportedUriSchemes": {Value: []string{"https"}, Writable: false, Emit: prop.EmitFalse},
			"SupportedMimeTypes":  {Value: []string{"audio/mpeg", "audio/aac"}, Writable: false, Emit: prop.EmitFalse},
		},
		ifacePlayer: {
			"PlaybackStatus": {Value: string(st.Status), Writable: false, Emit: prop.EmitTrue},
			"LoopStatus":     {Value: "None", Writable: false, Emit: prop.EmitFalse},
			"Rate":           {Value: 1.0, Writable: false, Emit: prop.EmitFalse},
			"Shuffle":        {Value: false, Writable: false, Emit: prop.EmitFalse},
			"Volume": {
				Value: st.Volume, Writable: true, Emit: prop.EmitTrue,
				Callback: func(c *prop.Change) *dbus.Error {
					v, ok := c.Value.(float64)
					if !ok {
						return dbus.MakeFailedError(errInvalidVolume)
					}
					if err := s.ctrl.SetVolume(context.Background(), v); err != nil {
						return dbus.MakeFailedError(err)
					}
					return nil
				},
			},
			"Position":      {Value: st.PositionUS, Writable: false, Emit: prop.EmitFalse},
			"MinimumRate":   {Value: 1.0, Writable: false, Emit: prop.EmitFalse},
			"MaximumRate":   {Value: 1.0, Writable: false, Emit: prop.EmitFalse},
			"CanGoNext":     {Value: st.CanGoNext, Writable: false, Emit: prop.EmitTrue},
			"CanGoPrevious": {Value: st.CanGoPrevious, Writable: false, Emit: prop.EmitTrue},
			"CanPlay":       {Value: st.CanPlay, Writable: false, Emit: prop.EmitTrue},
			"CanPause":      {Value: st.CanPause, Writable: false, Emit: prop.EmitTrue},
			"CanSeek":       {Value: st.CanSeek, Writable: false, Emit: prop.EmitTrue},
			"CanControl":    {Value: st.CanControl, Writable: false, Emit: prop.EmitTrue},
			"Metadata":      {Value: metadataOf(st.Track), Writable: false, Emit: prop.EmitTrue},
		},
	}
}
