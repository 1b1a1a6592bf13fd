package scriptlib

import (
	"go.uber.org/zap"

	"github.com/wippyai/scriptlib/handle"
	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/vec"
)

// Asset proxies. Assets outlive scenes and are never owned by an entity.
type (
	Mesh     struct{ proxy }
	Material struct{ proxy }
	Audio    struct{ proxy }
	Prefab   struct{ proxy }
)

// asset issues an asset ref. The zero handle yields an invalid proxy, which is
// how an unset slot such as a renderer without a mesh is reported.
func (b *Binding) asset(kind native.AssetKind, h native.Handle) (proxy, error) {
	if h.IsZero() {
		return proxy{}, nil
	}
	return b.issue(handle.KindAsset, h, native.Handle{}, uint32(kind))
}

func (b *Binding) lookupAsset(kind native.AssetKind, name string) (proxy, bool) {
	h, ok := b.engine.Asset(kind, name)
	if !ok {
		return proxy{}, false
	}
	p, err := b.asset(kind, h)
	if err != nil {
		b.misconfigured("asset not issued", zap.String("asset", name), zap.Error(err))
		return proxy{}, false
	}
	return p, true
}

func (p Prefab) templateHandle() (native.Handle, error) {
	return p.handle("Prefab.Instantiate")
}

// Instantiate spawns an instance of the prefab into the active scene.
func (p Prefab) Instantiate(at vec.Vector3) (Entity, error) {
	if p.b == nil {
		_, err := p.handle("Prefab.Instantiate")
		return Entity{}, err
	}
	return p.b.World().Instantiate(p, at)
}

// AudioSource plays audio clips positioned in the scene.
type AudioSource struct{ proxy }

func (s AudioSource) Muted() (bool, error) {
	h, err := s.handle("AudioSource.Muted")
	if err != nil {
		return false, err
	}
	v, err := s.b.engine.Muted(h)
	if err != nil {
		return false, s.b.nativeErr("AudioSource", "Muted", err)
	}
	return v, nil
}

func (s AudioSource) SetMuted(v bool) error {
	h, err := s.handle("AudioSource.SetMuted")
	if err != nil {
		return err
	}
	if err := s.b.engine.SetMuted(h, v); err != nil {
		return s.b.nativeErr("AudioSource", "SetMuted", err)
	}
	return nil
}

func (s AudioSource) Volume() (float32, error) {
	h, err := s.handle("AudioSource.Volume")
	if err != nil {
		return 0, err
	}
	v, err := s.b.engine.Volume(h)
	if err != nil {
		return 0, s.b.nativeErr("AudioSource", "Volume", err)
	}
	return v, nil
}

func (s AudioSource) SetVolume(v float32) error {
	h, err := s.handle("AudioSource.SetVolume")
	if err != nil {
		return err
	}
	if err := s.b.engine.SetVolume(h, v); err != nil {
		return s.b.nativeErr("AudioSource", "SetVolume", err)
	}
	return nil
}

// SetPosition sets the 3-D position of the source.
func (s AudioSource) SetPosition(v vec.Vector3) error {
	h, err := s.handle("AudioSource.SetPosition")
	if err != nil {
		return err
	}
	if err := s.b.engine.SetSourcePosition(h, v); err != nil {
		return s.b.nativeErr("AudioSource", "SetPosition", err)
	}
	return nil
}

func (s AudioSource) SetRotation(q vec.Quaternion) error {
	h, err := s.handle("AudioSource.SetRotation")
	if err != nil {
		return err
	}
	if err := s.b.engine.SetSourceRotation(h, q); err != nil {
		return s.b.nativeErr("AudioSource", "SetRotation", err)
	}
	return nil
}

func (s AudioSource) SetVelocity(v vec.Vector3) error {
	h, err := s.handle("AudioSource.SetVelocity")
	if err != nil {
		return err
	}
	if err := s.b.engine.SetSourceVelocity(h, v); err != nil {
		return s.b.nativeErr("AudioSource", "SetVelocity", err)
	}
	return nil
}

// CreateInstance creates a playable instance of clip on this source. The
// instance dies with the source's entity.
func (s AudioSource) CreateInstance(clip Audio) (AudioInstance, error) {
	e, err := s.entry("AudioSource.CreateInstance")
	if err != nil {
		return AudioInstance{}, err
	}
	ch, err := clip.handle("Audio")
	if err != nil {
		return AudioInstance{}, err
	}
	ih, err := s.b.engine.NewAudioInstance(e.Handle, ch)
	if err != nil {
		return AudioInstance{}, s.b.nativeErr("AudioSource", "CreateInstance", err)
	}
	p, err := s.b.issue(handle.KindAudioInstance, ih, e.Owner, 0)
	if err != nil {
		return AudioInstance{}, err
	}
	return AudioInstance{p}, nil
}

// OneShot plays clip once without an instance to control.
func (s AudioSource) OneShot(clip Audio) error {
	h, err := s.handle("AudioSource.OneShot")
	if err != nil {
		return err
	}
	ch, err := clip.handle("Audio")
	if err != nil {
		return err
	}
	if err := s.b.engine.OneShot(h, ch); err != nil {
		return s.b.nativeErr("AudioSource", "OneShot", err)
	}
	return nil
}

// AudioInstance is a controllable playback of a clip.
type AudioInstance struct{ proxy }

func (i AudioInstance) Play() error {
	h, err := i.handle("AudioInstance.Play")
	if err != nil {
		return err
	}
	if err := i.b.engine.Play(h); err != nil {
		return i.b.nativeErr("AudioInstance", "Play", err)
	}
	return nil
}

func (i AudioInstance) Stop() error {
	h, err := i.handle("AudioInstance.Stop")
	if err != nil {
		return err
	}
	if err := i.b.engine.Stop(h); err != nil {
		return i.b.nativeErr("AudioInstance", "Stop", err)
	}
	return nil
}

// AudioListener is the point audio is heard from.
type AudioListener struct{ proxy }

func (l AudioListener) Enabled() (bool, error) {
	h, err := l.handle("AudioListener.Enabled")
	if err != nil {
		return false, err
	}
	v, err := l.b.engine.ListenerEnabled(h)
	if err != nil {
		return false, l.b.nativeErr("AudioListener", "Enabled", err)
	}
	return v, nil
}

func (l AudioListener) SetEnabled(v bool) error {
	h, err := l.handle("AudioListener.SetEnabled")
	if err != nil {
		return err
	}
	if err := l.b.engine.SetListenerEnabled(h, v); err != nil {
		return l.b.nativeErr("AudioListener", "SetEnabled", err)
	}
	return nil
}
