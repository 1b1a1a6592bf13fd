package sim

import (
	"fmt"

	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/vec"
)

type audioSource struct {
	muted    bool
	volume   float32
	pos      vec.Vector3
	rot      vec.Quaternion
	velocity vec.Vector3
}

type audioInstance struct {
	source  native.Handle
	clip    native.Handle
	playing bool
}

type listener struct {
	enabled bool
}

type camera struct {
	fov, near, far float32
}

// OneShot records a fire-and-forget playback.
type OneShot struct {
	Source native.Handle
	Clip   native.Handle
}

func (e *Engine) source(h native.Handle) (*audioSource, error) {
	ent, err := e.entity(h)
	if err != nil {
		return nil, err
	}
	if ent.source == nil {
		return nil, fmt.Errorf("%v audio source: %w", h, ErrNoComponent)
	}
	return ent.source, nil
}

func (e *Engine) clip(h native.Handle) error {
	if h.Scene == 0 {
		for _, c := range e.assets[native.AssetAudio] {
			if c == h {
				return nil
			}
		}
	}
	return fmt.Errorf("audio clip %v: %w", h, ErrNoObject)
}

func (e *Engine) NewAudioInstance(source, clip native.Handle) (native.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.source(source); err != nil {
		return native.Handle{}, err
	}
	if err := e.clip(clip); err != nil {
		return native.Handle{}, err
	}
	e.nextObject++
	e.instances[e.nextObject] = &audioInstance{source: source, clip: clip}
	return native.Handle{Object: e.nextObject}, nil
}

func (e *Engine) OneShot(source, clip native.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.source(source); err != nil {
		return err
	}
	if err := e.clip(clip); err != nil {
		return err
	}
	e.oneShots = append(e.oneShots, OneShot{Source: source, Clip: clip})
	return nil
}

// OneShots returns the one-shot playbacks issued so far.
func (e *Engine) OneShots() []OneShot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]OneShot(nil), e.oneShots...)
}

func (e *Engine) instance(h native.Handle) (*audioInstance, error) {
	inst, ok := e.instances[h.Object]
	if !ok || h.Scene != 0 {
		return nil, fmt.Errorf("audio instance %v: %w", h, ErrNoObject)
	}
	return inst, nil
}

func (e *Engine) Play(h native.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, err := e.instance(h)
	if err != nil {
		return err
	}
	inst.playing = true
	return nil
}

func (e *Engine) Stop(h native.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, err := e.instance(h)
	if err != nil {
		return err
	}
	inst.playing = false
	return nil
}

// Playing reports whether an audio instance is playing.
func (e *Engine) Playing(h native.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	inst, err := e.instance(h)
	return err == nil && inst.playing
}

func (e *Engine) Muted(h native.Handle) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.source(h)
	if err != nil {
		return false, err
	}
	return s.muted, nil
}

func (e *Engine) SetMuted(h native.Handle, v bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.source(h)
	if err != nil {
		return err
	}
	s.muted = v
	return nil
}

func (e *Engine) Volume(h native.Handle) (float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.source(h)
	if err != nil {
		return 0, err
	}
	return s.volume, nil
}

func (e *Engine) SetVolume(h native.Handle, v float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.source(h)
	if err != nil {
		return err
	}
	s.volume = v
	return nil
}

func (e *Engine) SetSourcePosition(h native.Handle, v vec.Vector3) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.source(h)
	if err != nil {
		return err
	}
	s.pos = v
	return nil
}

func (e *Engine) SetSourceRotation(h native.Handle, q vec.Quaternion) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.source(h)
	if err != nil {
		return err
	}
	s.rot = q
	return nil
}

func (e *Engine) SetSourceVelocity(h native.Handle, v vec.Vector3) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, err := e.source(h)
	if err != nil {
		return err
	}
	s.velocity = v
	return nil
}

func (e *Engine) ListenerEnabled(h native.Handle) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return false, err
	}
	if ent.listener == nil {
		return false, fmt.Errorf("%v audio listener: %w", h, ErrNoComponent)
	}
	return ent.listener.enabled, nil
}

func (e *Engine) SetListenerEnabled(h native.Handle, v bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.entity(h)
	if err != nil {
		return err
	}
	if ent.listener == nil {
		return fmt.Errorf("%v audio listener: %w", h, ErrNoComponent)
	}
	ent.listener.enabled = v
	return nil
}

func (e *Engine) renderer(h native.Handle) (*entity, error) {
	ent, err := e.entity(h)
	if err != nil {
		return nil, err
	}
	if !ent.renderer {
		return nil, fmt.Errorf("%v mesh renderer: %w", h, ErrNoComponent)
	}
	return ent, nil
}

func (e *Engine) Mesh(h native.Handle) (native.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.renderer(h)
	if err != nil {
		return native.Handle{}, err
	}
	return ent.mesh, nil
}

func (e *Engine) SetMesh(h, mesh native.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.renderer(h)
	if err != nil {
		return err
	}
	ent.mesh = mesh
	return nil
}

func (e *Engine) Material(h native.Handle) (native.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.renderer(h)
	if err != nil {
		return native.Handle{}, err
	}
	return ent.material, nil
}

func (e *Engine) SetMaterial(h, material native.Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ent, err := e.renderer(h)
	if err != nil {
		return err
	}
	ent.material = material
	return nil
}

func (e *Engine) camera(h native.Handle) (*camera, error) {
	ent, err := e.entity(h)
	if err != nil {
		return nil, err
	}
	if ent.camera == nil {
		return nil, fmt.Errorf("%v camera: %w", h, ErrNoComponent)
	}
	return ent.camera, nil
}

func (e *Engine) FoV(h native.Handle) (float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.camera(h)
	if err != nil {
		return 0, err
	}
	return c.fov, nil
}

func (e *Engine) SetFoV(h native.Handle, v float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.camera(h)
	if err != nil {
		return err
	}
	c.fov = v
	return nil
}

func (e *Engine) NearClip(h native.Handle) (float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.camera(h)
	if err != nil {
		return 0, err
	}
	return c.near, nil
}

func (e *Engine) SetNearClip(h native.Handle, v float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.camera(h)
	if err != nil {
		return err
	}
	c.near = v
	return nil
}

func (e *Engine) FarClip(h native.Handle) (float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.camera(h)
	if err != nil {
		return 0, err
	}
	return c.far, nil
}

func (e *Engine) SetFarClip(h native.Handle, v float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.camera(h)
	if err != nil {
		return err
	}
	c.far = v
	return nil
}
