package runner

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/wippyai/scriptlib/errors"
	"github.com/wippyai/scriptlib/native"
	"github.com/wippyai/scriptlib/native/sim"
	"github.com/wippyai/scriptlib/vec"
)

// Scene is the file format the runner loads:
//
//	physics = true
//	meshes = ["cube"]
//
//	[[entity]]
//	name = "Ground"
//	actor = "static"
//	collider = { half_extents = [10, 0.5, 10] }
//
//	  [[entity.behavior]]
//	  type = "Spawner"
//	  fields = { Prefab = "Crate", Interval = 1.0 }
//
//	[[system]]
//	script = "scripts/census.lua"
//	select = "has('DynamicActor')"
type Scene struct {
	Physics   bool      `toml:"physics"`
	Gravity   []float32 `toml:"gravity"`
	Meshes    []string  `toml:"meshes"`
	Materials []string  `toml:"materials"`
	Audio     []string  `toml:"audio"`

	Prefabs  []EntityDef `toml:"prefab"`
	Entities []EntityDef `toml:"entity"`
	Systems  []SystemDef `toml:"system"`
}

// EntityDef declares an entity or a prefab. Rotation is yaw, pitch and roll
// in radians.
type EntityDef struct {
	Name     string    `toml:"name"`
	Position []float32 `toml:"position"`
	Rotation []float32 `toml:"rotation"`
	Scale    []float32 `toml:"scale"`
	Tags     uint64    `toml:"tags"`

	Mesh     string `toml:"mesh"`
	Material string `toml:"material"`

	Actor     string       `toml:"actor"`
	Kinematic bool         `toml:"kinematic"`
	Gravity   bool         `toml:"gravity"`
	Mass      float32      `toml:"mass"`
	Collider  *ColliderDef `toml:"collider"`

	AudioSource   bool `toml:"audio_source"`
	AudioListener bool `toml:"audio_listener"`
	Camera        bool `toml:"camera"`

	Behaviors []BehaviorDef `toml:"behavior"`
}

// ColliderDef declares a box collider.
type ColliderDef struct {
	Name        string    `toml:"name"`
	HalfExtents []float32 `toml:"half_extents"`
	Trigger     bool      `toml:"trigger"`
}

// BehaviorDef attaches a behavior. Type names a registered Go behavior;
// Script names a .lua, .js or .wasm file whose base name becomes the type
// unless Type is set.
type BehaviorDef struct {
	Type   string         `toml:"type"`
	Script string         `toml:"script"`
	Fields map[string]any `toml:"fields"`
}

// SystemDef adds a system. Select is an expression selector; when empty, Tags
// selects by tag mask, and no Tags selects every entity.
type SystemDef struct {
	Type   string         `toml:"type"`
	Script string         `toml:"script"`
	Select string         `toml:"select"`
	Tags   uint64         `toml:"tags"`
	Fields map[string]any `toml:"fields"`
}

// DecodeScene parses a scene document.
func DecodeScene(src string) (*Scene, error) {
	var sc Scene
	md, err := toml.Decode(src, &sc)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "decode scene")
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown scene key %s", keys[0]))
	}
	return &sc, nil
}

func vec3(what string, v []float32, def vec.Vector3) (vec.Vector3, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 3:
		return vec.Vector3{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return vec.Vector3{}, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("%s needs 3 components, got %d", what, len(v)))
	}
}

func parseActor(s string) (native.ActorKind, error) {
	switch s {
	case "":
		return 0, nil
	case "static":
		return native.ActorStatic, nil
	case "dynamic":
		return native.ActorDynamic, nil
	default:
		return 0, errors.InvalidEnum(errors.PhaseConfig, s, "actor")
	}
}

// spec converts a definition into a spawn spec, resolving asset names.
func (d EntityDef) spec(eng *sim.Engine) (sim.EntitySpec, error) {
	spec := sim.EntitySpec{
		Name:          d.Name,
		Tags:          d.Tags,
		Kinematic:     d.Kinematic,
		Gravity:       d.Gravity,
		Mass:          d.Mass,
		AudioSource:   d.AudioSource,
		AudioListener: d.AudioListener,
		Camera:        d.Camera,
	}
	var err error
	if spec.Position, err = vec3(d.Name+" position", d.Position, vec.Vector3{}); err != nil {
		return spec, err
	}
	if spec.Scale, err = vec3(d.Name+" scale", d.Scale, vec.Splat3(1)); err != nil {
		return spec, err
	}
	rot, err := vec3(d.Name+" rotation", d.Rotation, vec.Vector3{})
	if err != nil {
		return spec, err
	}
	spec.Rotation = vec.FromEuler(rot.X, rot.Y, rot.Z)
	if spec.Actor, err = parseActor(d.Actor); err != nil {
		return spec, err
	}
	if d.Mesh != "" {
		h, ok := eng.Asset(native.AssetMesh, d.Mesh)
		if !ok {
			return spec, errors.NotFound(errors.PhaseConfig, "mesh", d.Mesh)
		}
		spec.Mesh = h
	}
	if d.Material != "" {
		h, ok := eng.Asset(native.AssetMaterial, d.Material)
		if !ok {
			return spec, errors.NotFound(errors.PhaseConfig, "material", d.Material)
		}
		spec.Material = h
	}
	if d.Collider != nil {
		half, err := vec3(d.Name+" collider", d.Collider.HalfExtents, vec.Splat3(0.5))
		if err != nil {
			return spec, err
		}
		spec.Collider = &sim.ColliderSpec{Name: d.Collider.Name, HalfExtents: half, Trigger: d.Collider.Trigger}
	}
	return spec, nil
}

// fieldValue converts a decoded TOML value into a designer parameter. Three
// element number arrays become vectors.
func fieldValue(v any) any {
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return v
	}
	var out [3]float32
	for i, x := range arr {
		switch n := x.(type) {
		case float64:
			out[i] = float32(n)
		case int64:
			out[i] = float32(n)
		default:
			return v
		}
	}
	return vec.Vector3{X: out[0], Y: out[1], Z: out[2]}
}
